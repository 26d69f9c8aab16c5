// NichePulse - Instagram Niche Analytics Service
// Copyright 2026 NichePulse contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nichepulse/nichepulse

// Package collector gathers the four raw signal families for a niche:
// trending hashtags, trending audios, top influencers and viral posts.
//
// Hashtag signals are fetched from the public hashtag pages behind a circuit
// breaker and an outbound rate limiter. The remaining three families have no
// stable public source and are synthesized from seeded distributions that
// match the shapes observed in the wild.
//
// Collection is all-or-nothing: the four families are fetched concurrently
// and a failure in any one fails the whole collection, so a stored aggregate
// never mixes fresh and missing signals.
package collector

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nichepulse/nichepulse/internal/metrics"
	"github.com/nichepulse/nichepulse/internal/models"
)

// Signals is the complete raw input of one niche analysis.
type Signals struct {
	Hashtags    []models.HashtagSignal
	Audios      []models.AudioSignal
	Influencers []models.InfluencerSignal
	ViralPosts  []models.ViralPostSignal
}

// SignalCollector produces the four signal families for a niche.
type SignalCollector interface {
	Hashtags(ctx context.Context, niche string) ([]models.HashtagSignal, error)
	Audios(ctx context.Context, niche string) ([]models.AudioSignal, error)
	Influencers(ctx context.Context, niche string) ([]models.InfluencerSignal, error)
	ViralPosts(ctx context.Context, niche string) ([]models.ViralPostSignal, error)
}

// Collect fetches all four signal families concurrently. The first failure
// cancels the remaining fetches and fails the collection.
func Collect(ctx context.Context, sc SignalCollector, niche string) (*Signals, error) {
	var signals Signals

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		start := time.Now()
		hashtags, err := sc.Hashtags(gctx, niche)
		metrics.CollectionDuration.WithLabelValues("hashtags").Observe(time.Since(start).Seconds())
		if err != nil {
			return fmt.Errorf("hashtag collection failed: %w", err)
		}
		signals.Hashtags = hashtags
		return nil
	})

	g.Go(func() error {
		start := time.Now()
		audios, err := sc.Audios(gctx, niche)
		metrics.CollectionDuration.WithLabelValues("audios").Observe(time.Since(start).Seconds())
		if err != nil {
			return fmt.Errorf("audio collection failed: %w", err)
		}
		signals.Audios = audios
		return nil
	})

	g.Go(func() error {
		start := time.Now()
		influencers, err := sc.Influencers(gctx, niche)
		metrics.CollectionDuration.WithLabelValues("influencers").Observe(time.Since(start).Seconds())
		if err != nil {
			return fmt.Errorf("influencer collection failed: %w", err)
		}
		signals.Influencers = influencers
		return nil
	})

	g.Go(func() error {
		start := time.Now()
		posts, err := sc.ViralPosts(gctx, niche)
		metrics.CollectionDuration.WithLabelValues("viral_posts").Observe(time.Since(start).Seconds())
		if err != nil {
			return fmt.Errorf("viral post collection failed: %w", err)
		}
		signals.ViralPosts = posts
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &signals, nil
}
