// NichePulse - Instagram Niche Analytics Service
// Copyright 2026 NichePulse contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nichepulse/nichepulse

// Package analysis orchestrates niche analyses across the cache, the durable
// store and the signal collectors.
//
// Read path for a niche, in order:
//
//  1. Cache. A hit is trusted for its full TTL and served as-is.
//  2. Store. An aggregate younger than the freshness window is served and
//     re-cached.
//  3. Collection. All four signal families are gathered, the aggregate is
//     built, upserted and cached.
//
// A forced refresh skips steps 1 and 2. Concurrent requests for the same
// niche are coalesced so a popular niche triggers at most one collection.
package analysis

import (
	"context"
	"errors"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/sync/singleflight"

	"github.com/nichepulse/nichepulse/internal/cache"
	"github.com/nichepulse/nichepulse/internal/collector"
	"github.com/nichepulse/nichepulse/internal/logging"
	"github.com/nichepulse/nichepulse/internal/metrics"
	"github.com/nichepulse/nichepulse/internal/models"
	"github.com/nichepulse/nichepulse/internal/store"
)

// Source identifies which layer served an analysis.
type Source string

// Analysis sources, from cheapest to most expensive.
const (
	SourceCache     Source = "cache"
	SourceStore     Source = "store"
	SourceCollected Source = "collected"
)

// AggregateStore is the durable layer the orchestrator reads and writes.
// *store.Store satisfies it.
type AggregateStore interface {
	FindByNiche(ctx context.Context, niche string) (*models.NicheAggregate, error)
	Upsert(ctx context.Context, agg *models.NicheAggregate) error
}

// Service is the refresh orchestrator.
type Service struct {
	store     AggregateStore
	cache     cache.Cache
	collector collector.SignalCollector
	builder   *Builder

	freshnessWindow time.Duration
	cacheTTL        time.Duration

	flights singleflight.Group
	now     func() time.Time
}

// Options configures a Service.
type Options struct {
	Store           AggregateStore
	Cache           cache.Cache
	Collector       collector.SignalCollector
	Builder         *Builder
	FreshnessWindow time.Duration
	CacheTTL        time.Duration

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// NewService creates the orchestrator. A nil cache falls back to a no-op.
func NewService(opts Options) *Service {
	c := opts.Cache
	if c == nil {
		c = cache.NewNoop()
	}
	b := opts.Builder
	if b == nil {
		b = NewBuilder()
	}
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}

	return &Service{
		store:           opts.Store,
		cache:           c,
		collector:       opts.Collector,
		builder:         b,
		freshnessWindow: opts.FreshnessWindow,
		cacheTTL:        opts.CacheTTL,
		now:             now,
	}
}

// flightResult carries an analysis and its source through singleflight.
type flightResult struct {
	agg    *models.NicheAggregate
	source Source
}

// GetOrRefresh returns the analysis for a niche, serving from the cheapest
// layer that has a usable result. The niche is normalized before lookup.
func (s *Service) GetOrRefresh(ctx context.Context, niche string) (*models.NicheAggregate, Source, error) {
	return s.analyze(ctx, niche, false)
}

// ForceRefresh re-collects and rebuilds the analysis regardless of cache and
// store freshness, then re-primes both layers.
func (s *Service) ForceRefresh(ctx context.Context, niche string) (*models.NicheAggregate, Source, error) {
	return s.analyze(ctx, niche, true)
}

func (s *Service) analyze(ctx context.Context, niche string, force bool) (*models.NicheAggregate, Source, error) {
	norm, err := Normalize(niche)
	if err != nil {
		return nil, "", err
	}

	if !force {
		if agg, ok := s.cacheGet(ctx, norm); ok {
			metrics.AnalysesServedTotal.WithLabelValues(string(SourceCache)).Inc()
			logging.Info().Str("niche", norm).Msg("Returning cached analysis")
			return agg, SourceCache, nil
		}
	}

	// Coalesce concurrent work per niche. Forced refreshes coalesce only
	// with other forced refreshes; a forced caller must never receive a
	// store-fresh result.
	key := norm
	if force {
		key = "force\x00" + norm
	}

	v, err, _ := s.flights.Do(key, func() (interface{}, error) {
		agg, source, err := s.refresh(ctx, norm, force)
		if err != nil {
			return nil, err
		}
		return flightResult{agg: agg, source: source}, nil
	})
	if err != nil {
		return nil, "", err
	}

	res := v.(flightResult)
	return res.agg, res.source, nil
}

// refresh runs the store-fallback / collect path for a normalized niche.
func (s *Service) refresh(ctx context.Context, norm string, force bool) (*models.NicheAggregate, Source, error) {
	existing, err := s.store.FindByNiche(ctx, norm)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		metrics.AnalysisFailuresTotal.WithLabelValues("store").Inc()
		return nil, "", &PersistError{Niche: norm, Err: err}
	}

	if !force && existing != nil {
		if s.now().Sub(existing.LastUpdated) < s.freshnessWindow {
			s.cacheSet(ctx, norm, existing)
			metrics.AnalysesServedTotal.WithLabelValues(string(SourceStore)).Inc()
			return existing, SourceStore, nil
		}
	}

	logging.Info().Str("niche", norm).Bool("forced", force).Msg("Starting new analysis")

	signals, err := collector.Collect(ctx, s.collector, norm)
	if err != nil {
		metrics.AnalysisFailuresTotal.WithLabelValues("collection").Inc()
		return nil, "", &CollectionError{Niche: norm, Err: err}
	}

	agg := s.builder.Build(norm, signals)
	if existing != nil {
		agg.CreatedAt = existing.CreatedAt
	}

	if err := s.store.Upsert(ctx, agg); err != nil {
		metrics.AnalysisFailuresTotal.WithLabelValues("store").Inc()
		return nil, "", &PersistError{Niche: norm, Err: err}
	}

	s.cacheSet(ctx, norm, agg)

	metrics.AnalysesServedTotal.WithLabelValues(string(SourceCollected)).Inc()
	logging.Info().Str("niche", norm).Msg("Niche analysis completed")
	return agg, SourceCollected, nil
}

// cacheGet looks up and decodes a cached analysis. A corrupt entry is
// dropped and treated as a miss.
func (s *Service) cacheGet(ctx context.Context, norm string) (*models.NicheAggregate, bool) {
	data, ok := s.cache.Get(ctx, cache.Key(norm))
	if !ok {
		return nil, false
	}

	var agg models.NicheAggregate
	if err := json.Unmarshal(data, &agg); err != nil {
		logging.Warn().Str("niche", norm).Err(err).Msg("Dropping undecodable cache entry")
		s.cache.Delete(ctx, cache.Key(norm))
		return nil, false
	}
	return &agg, true
}

// cacheSet encodes and stores an analysis. Cache failures are absorbed by
// the cache layer; the analysis is already durable in the store.
func (s *Service) cacheSet(ctx context.Context, norm string, agg *models.NicheAggregate) {
	data, err := json.Marshal(agg)
	if err != nil {
		logging.Warn().Str("niche", norm).Err(err).Msg("Failed to encode analysis for cache")
		return
	}
	s.cache.Set(ctx, cache.Key(norm), data, s.cacheTTL)
}
