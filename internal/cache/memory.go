// NichePulse - Instagram Niche Analytics Service
// Copyright 2026 NichePulse contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nichepulse/nichepulse

package cache

import (
	"context"
	"sync"
	"time"
)

// entry is a cached value with its expiration time.
type entry struct {
	value     []byte
	expiresAt time.Time
}

// Memory is a thread-safe in-memory cache with per-entry TTL. It backs the
// cache layer in tests and serves as an in-process alternative to the
// Badger-backed cache for deployments without a data directory.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]entry
	stats   MemoryStats

	cleanupInterval time.Duration
	stop            chan struct{}
	stopOnce        sync.Once
}

// MemoryStats tracks cache effectiveness counters.
type MemoryStats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	TotalKeys int64
}

// NewMemory creates an in-memory cache. A background goroutine sweeps
// expired entries every cleanupInterval (5 minutes when zero) until Close
// is called.
func NewMemory(cleanupInterval time.Duration) *Memory {
	if cleanupInterval <= 0 {
		cleanupInterval = 5 * time.Minute
	}
	m := &Memory{
		entries:         make(map[string]entry),
		cleanupInterval: cleanupInterval,
		stop:            make(chan struct{}),
	}
	go m.cleanupLoop()
	return m
}

// Get retrieves a value, treating expired entries as misses and removing
// them eagerly.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		m.count(func(s *MemoryStats) { s.Misses++ })
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		m.count(func(s *MemoryStats) { s.Misses++; s.Evictions++ })
		return nil, false
	}

	m.count(func(s *MemoryStats) { s.Hits++ })
	return e.value, true
}

// Set stores a value with the given TTL, overwriting any existing entry.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	m.mu.Lock()
	m.entries[key] = entry{value: value, expiresAt: time.Now().Add(ttl)}
	total := int64(len(m.entries))
	m.mu.Unlock()

	m.count(func(s *MemoryStats) { s.TotalKeys = total })
}

// Delete removes an entry. Safe to call for missing keys.
func (m *Memory) Delete(_ context.Context, key string) {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()

	m.count(func(s *MemoryStats) { s.Evictions++ })
}

// Stats returns a snapshot of the counters.
func (m *Memory) Stats() MemoryStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats
}

// Close stops the background sweeper. The cache remains usable afterwards;
// expired entries are then only evicted lazily on Get.
func (m *Memory) Close() {
	m.stopOnce.Do(func() { close(m.stop) })
}

func (m *Memory) count(update func(*MemoryStats)) {
	m.mu.Lock()
	update(&m.stats)
	m.mu.Unlock()
}

// cleanupLoop periodically removes expired entries.
func (m *Memory) cleanupLoop() {
	ticker := time.NewTicker(m.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.cleanup()
		case <-m.stop:
			return
		}
	}
}

func (m *Memory) cleanup() {
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, e := range m.entries {
		if now.After(e.expiresAt) {
			delete(m.entries, key)
			m.stats.Evictions++
		}
	}
	m.stats.TotalKeys = int64(len(m.entries))
}
