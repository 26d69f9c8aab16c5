// NichePulse - Instagram Niche Analytics Service
// Copyright 2026 NichePulse contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nichepulse/nichepulse

// Package store persists niche aggregates in an embedded DuckDB database.
//
// The store is the durable layer behind the analysis cache: every completed
// analysis is upserted here keyed by normalized niche, and reads fall back to
// it when the cache misses. Signal lists are stored as JSON text columns so
// the schema stays stable while the signal shapes evolve.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/nichepulse/nichepulse/internal/config"
	"github.com/nichepulse/nichepulse/internal/logging"
)

// ErrNotFound is returned when no aggregate exists for the requested niche.
var ErrNotFound = errors.New("niche aggregate not found")

// Store wraps the DuckDB connection and provides aggregate access methods.
type Store struct {
	conn *sql.DB
	cfg  *config.DatabaseConfig

	// Prepared statement caching
	stmtCache   map[string]*sql.Stmt
	stmtCacheMu sync.RWMutex
}

// New creates a new database connection and initializes the schema.
func New(cfg *config.DatabaseConfig) (*Store, error) {
	numThreads := cfg.Threads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}

	// Ensure parent directory exists for database file.
	// Use 0750 permissions (owner: rwx, group: rx, other: none) per gosec G301.
	if cfg.Path != ":memory:" {
		dbDir := filepath.Dir(cfg.Path)
		if dbDir != "" && dbDir != "." {
			if err := os.MkdirAll(dbDir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dbDir, err)
			}
		}
	}

	// Disable auto-install/auto-load to prevent hangs in restricted network
	// environments. The schema only uses core types, no extensions.
	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s&autoinstall_known_extensions=false&autoload_known_extensions=false",
		cfg.Path, numThreads, cfg.MaxMemory)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{
		conn:      conn,
		cfg:       cfg,
		stmtCache: make(map[string]*sql.Stmt),
	}

	s.configureConnectionPool()

	if err := s.createTables(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Int("threads", numThreads).
		Msg("DuckDB store initialized")

	return s, nil
}

// configureConnectionPool tunes the sql.DB pool for an embedded database.
func (s *Store) configureConnectionPool() {
	maxConns := runtime.NumCPU()
	if maxConns < 2 {
		maxConns = 2
	}
	s.conn.SetMaxOpenConns(maxConns)
	s.conn.SetMaxIdleConns(2)
	s.conn.SetConnMaxLifetime(1 * time.Hour)
	s.conn.SetConnMaxIdleTime(5 * time.Minute)
}

// getStmt returns a cached prepared statement for the query, preparing and
// caching it on first use.
func (s *Store) getStmt(ctx context.Context, query string) (*sql.Stmt, error) {
	s.stmtCacheMu.RLock()
	stmt, ok := s.stmtCache[query]
	s.stmtCacheMu.RUnlock()
	if ok {
		return stmt, nil
	}

	s.stmtCacheMu.Lock()
	defer s.stmtCacheMu.Unlock()

	// Re-check under the write lock
	if stmt, ok := s.stmtCache[query]; ok {
		return stmt, nil
	}

	stmt, err := s.conn.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}
	s.stmtCache[query] = stmt
	return stmt, nil
}

// clearStatementCache closes and discards all cached prepared statements.
func (s *Store) clearStatementCache() {
	s.stmtCacheMu.Lock()
	defer s.stmtCacheMu.Unlock()

	for query, stmt := range s.stmtCache {
		if err := stmt.Close(); err != nil {
			logging.Warn().Err(err).Msg("Failed to close cached statement")
		}
		delete(s.stmtCache, query)
	}
}

// Ping verifies the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.conn.PingContext(ctx)
}

// Close releases prepared statements and closes the database connection.
func (s *Store) Close() error {
	s.clearStatementCache()
	return s.conn.Close()
}
