// NichePulse - Instagram Niche Analytics Service
// Copyright 2026 NichePulse contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nichepulse/nichepulse

// Package sweeper re-collects stale niche aggregates in the background so
// popular niches stay warm without waiting for the next client request.
// The sweeper is opt-in and off by default.
package sweeper

import (
	"context"
	"time"

	"github.com/nichepulse/nichepulse/internal/analysis"
	"github.com/nichepulse/nichepulse/internal/logging"
	"github.com/nichepulse/nichepulse/internal/metrics"
	"github.com/nichepulse/nichepulse/internal/models"
)

// batchSize bounds how many aggregates one sweep inspects.
const batchSize = 25

// Lister lists recently updated aggregates from the store.
type Lister interface {
	ListRecent(ctx context.Context, limit int) ([]*models.NicheAggregate, error)
}

// Refresher re-collects one niche, bypassing cache and freshness checks.
type Refresher interface {
	ForceRefresh(ctx context.Context, niche string) (*models.NicheAggregate, analysis.Source, error)
}

// Sweeper periodically refreshes aggregates whose last update is older than
// the freshness window. Implements suture.Service.
type Sweeper struct {
	store     Lister
	refresher Refresher
	interval  time.Duration
	window    time.Duration
	now       func() time.Time
}

// New creates a sweeper. interval controls how often a sweep runs; window is
// the staleness threshold and should match the orchestrator's freshness
// window.
func New(store Lister, refresher Refresher, interval, window time.Duration) *Sweeper {
	return &Sweeper{
		store:     store,
		refresher: refresher,
		interval:  interval,
		window:    window,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Serve implements suture.Service. Blocks until the context is canceled.
func (s *Sweeper) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logging.Info().
		Dur("interval", s.interval).
		Dur("window", s.window).
		Msg("Freshness sweeper started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// sweep refreshes every stale aggregate in the most recent batch. Failures
// on individual niches are logged and skipped; the next tick retries them.
func (s *Sweeper) sweep(ctx context.Context) {
	start := s.now()

	aggs, err := s.store.ListRecent(ctx, batchSize)
	if err != nil {
		logging.Error().Err(err).Msg("Sweep aborted: listing aggregates failed")
		return
	}

	var refreshed, failed int
	for _, agg := range aggs {
		if ctx.Err() != nil {
			return
		}
		if s.now().Sub(agg.LastUpdated) <= s.window {
			continue
		}

		if _, _, err := s.refresher.ForceRefresh(ctx, agg.Niche); err != nil {
			failed++
			logging.Warn().
				Err(err).
				Str("niche", agg.Niche).
				Msg("Sweep refresh failed")
			continue
		}
		refreshed++
	}

	metrics.SweepsTotal.Inc()
	if refreshed > 0 || failed > 0 {
		logging.Info().
			Int("refreshed", refreshed).
			Int("failed", failed).
			Int("inspected", len(aggs)).
			Dur("duration", s.now().Sub(start)).
			Msg("Sweep completed")
	}
}

// String implements fmt.Stringer for suture's log messages.
func (s *Sweeper) String() string {
	return "freshness-sweeper"
}
