// NichePulse - Instagram Niche Analytics Service
// Copyright 2026 NichePulse contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nichepulse/nichepulse

package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/nichepulse/nichepulse/internal/logging"
	"github.com/nichepulse/nichepulse/internal/metrics"
)

const (
	// maxReopenAttempts bounds recovery before the cache degrades
	// permanently for the process lifetime.
	maxReopenAttempts = 10

	// reopenBackoffStep and reopenBackoffCap shape the linear backoff
	// between reopen attempts.
	reopenBackoffStep = 100 * time.Millisecond
	reopenBackoffCap  = 3 * time.Second
)

// Badger is a durable Cache backed by BadgerDB with native per-entry TTL.
//
// Failure handling mirrors the cache contract: operation errors are logged
// and surfaced as misses/no-ops, a background recovery loop reopens the
// database with capped linear backoff, and after maxReopenAttempts the
// cache degrades permanently to no-op behavior.
type Badger struct {
	mu       sync.RWMutex
	db       *badger.DB
	path     string
	degraded bool

	recovering sync.Once
}

// NewBadger opens (or creates) a Badger-backed cache at path.
func NewBadger(path string) (*Badger, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // routed through zerolog instead
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Badger{db: db, path: path}, nil
}

// Get retrieves a value. Expired and missing keys are misses; so is any
// backend error.
func (c *Badger) Get(_ context.Context, key string) ([]byte, bool) {
	db, ok := c.handle()
	if !ok {
		metrics.CacheMisses.Inc()
		return nil, false
	}

	var value []byte
	err := db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			c.noteFailure("get", err)
		}
		metrics.CacheMisses.Inc()
		return nil, false
	}

	metrics.CacheHits.Inc()
	return value, true
}

// Set stores a value with the given TTL. Errors are logged, not returned.
func (c *Badger) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	db, ok := c.handle()
	if !ok {
		return
	}

	err := db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry([]byte(key), value).WithTTL(ttl))
	})
	if err != nil {
		c.noteFailure("set", err)
	}
}

// Delete removes a key. Safe for missing keys; errors are logged, not returned.
func (c *Badger) Delete(_ context.Context, key string) {
	db, ok := c.handle()
	if !ok {
		return
	}

	err := db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		c.noteFailure("delete", err)
	}
}

// Degraded reports whether the cache has permanently given up on its backend.
func (c *Badger) Degraded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.degraded
}

// Close closes the underlying database.
func (c *Badger) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}

// handle returns the live database handle, or false while degraded,
// recovering, or closed.
func (c *Badger) handle() (*badger.DB, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.degraded || c.db == nil {
		return nil, false
	}
	return c.db, true
}

// noteFailure logs an operation error and kicks off recovery exactly once.
func (c *Badger) noteFailure(op string, err error) {
	logging.Error().Err(err).Str("op", op).Msg("Cache operation failed")
	c.recovering.Do(func() { go c.recover() })
}

// recover tries to reopen the database with capped linear backoff. While it
// runs, the cache serves misses. On success normal operation resumes; after
// maxReopenAttempts the cache degrades permanently.
func (c *Badger) recover() {
	c.mu.Lock()
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			logging.Warn().Err(err).Msg("Closing cache before reopen failed")
		}
		c.db = nil
	}
	c.mu.Unlock()

	for attempt := 1; attempt <= maxReopenAttempts; attempt++ {
		backoff := min(time.Duration(attempt)*reopenBackoffStep, reopenBackoffCap)
		time.Sleep(backoff)

		opts := badger.DefaultOptions(c.path)
		opts.Logger = nil
		db, err := badger.Open(opts)
		if err == nil {
			c.mu.Lock()
			c.db = db
			c.recovering = sync.Once{}
			c.mu.Unlock()
			logging.Info().Int("attempt", attempt).Msg("Cache reopened")
			return
		}
		logging.Warn().Err(err).Int("attempt", attempt).Msg("Cache reopen failed")
	}

	c.mu.Lock()
	c.degraded = true
	c.mu.Unlock()
	metrics.CacheDegraded.Set(1)
	logging.Error().Msg("Cache reopen attempts exhausted, continuing without cache")
}
