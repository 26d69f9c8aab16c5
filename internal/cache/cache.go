// NichePulse - Instagram Niche Analytics Service
// Copyright 2026 NichePulse contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nichepulse/nichepulse

// Package cache provides the fast-path key/value store layered in front of
// the persistent aggregate store.
//
// The contract is deliberately error-free: a broken cache must never fail an
// analysis request. Implementations degrade to misses and no-ops when their
// backing store is unavailable.
package cache

import (
	"context"
	"time"
)

// KeyPrefix is prepended to every normalized niche to form its cache key.
const KeyPrefix = "niche_analysis_"

// Key returns the cache key for a normalized niche.
func Key(niche string) string {
	return KeyPrefix + niche
}

// Cache is the minimal contract the refresh orchestrator depends on.
// All operations are best-effort: Get returns a miss rather than an error,
// Set and Delete are silent no-ops when the backing store is unavailable.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Delete(ctx context.Context, key string)
}

// Noop is a Cache that stores nothing. It is wired when the cache backend
// cannot be opened at startup, preserving the "continue without cache"
// behavior of the service.
type Noop struct{}

// NewNoop returns a cache that always misses.
func NewNoop() *Noop { return &Noop{} }

// Get always reports a miss.
func (*Noop) Get(context.Context, string) ([]byte, bool) { return nil, false }

// Set discards the value.
func (*Noop) Set(context.Context, string, []byte, time.Duration) {}

// Delete does nothing.
func (*Noop) Delete(context.Context, string) {}
