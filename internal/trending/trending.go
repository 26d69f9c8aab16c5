// NichePulse - Instagram Niche Analytics Service
// Copyright 2026 NichePulse contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nichepulse/nichepulse

// Package trending projects cross-niche signal rankings out of the stored
// aggregates.
//
// Each projection reads either a single niche's aggregate or flattens the
// signals of the most recently updated aggregates, sorts by the family's
// headline metric and truncates to the requested limit. Projections never
// trigger collection; an unknown niche yields an empty list.
package trending

import (
	"context"
	"errors"
	"sort"

	"github.com/nichepulse/nichepulse/internal/analysis"
	"github.com/nichepulse/nichepulse/internal/models"
	"github.com/nichepulse/nichepulse/internal/store"
)

// flattenAggregates bounds how many recent aggregates feed a cross-niche
// projection.
const flattenAggregates = 5

// Reader is the slice of the store the projections need.
// *store.Store satisfies it.
type Reader interface {
	FindByNiche(ctx context.Context, niche string) (*models.NicheAggregate, error)
	ListRecent(ctx context.Context, limit int) ([]*models.NicheAggregate, error)
}

// Service serves the four trending projections.
type Service struct {
	reader Reader
}

// NewService creates a projection service over the given store.
func NewService(reader Reader) *Service {
	return &Service{reader: reader}
}

// Hashtags returns up to limit hashtag signals ordered by post count
// descending. An empty niche flattens across recent aggregates.
func (s *Service) Hashtags(ctx context.Context, niche string, limit int) ([]models.HashtagSignal, error) {
	aggs, err := s.source(ctx, niche)
	if err != nil {
		return nil, err
	}

	var signals []models.HashtagSignal
	for _, agg := range aggs {
		signals = append(signals, agg.TrendingHashtags...)
	}

	sort.SliceStable(signals, func(i, j int) bool {
		return signals[i].Posts > signals[j].Posts
	})
	if len(signals) > limit {
		signals = signals[:limit]
	}
	return signals, nil
}

// Audios returns up to limit audio signals ordered by play count descending.
func (s *Service) Audios(ctx context.Context, niche string, limit int) ([]models.AudioSignal, error) {
	aggs, err := s.source(ctx, niche)
	if err != nil {
		return nil, err
	}

	var signals []models.AudioSignal
	for _, agg := range aggs {
		signals = append(signals, agg.TrendingAudios...)
	}

	sort.SliceStable(signals, func(i, j int) bool {
		return signals[i].Plays > signals[j].Plays
	})
	if len(signals) > limit {
		signals = signals[:limit]
	}
	return signals, nil
}

// Influencers returns up to limit influencer signals ordered by follower
// count descending.
func (s *Service) Influencers(ctx context.Context, niche string, limit int) ([]models.InfluencerSignal, error) {
	aggs, err := s.source(ctx, niche)
	if err != nil {
		return nil, err
	}

	var signals []models.InfluencerSignal
	for _, agg := range aggs {
		signals = append(signals, agg.TopInfluencers...)
	}

	sort.SliceStable(signals, func(i, j int) bool {
		return signals[i].Followers > signals[j].Followers
	})
	if len(signals) > limit {
		signals = signals[:limit]
	}
	return signals, nil
}

// ViralPosts returns up to limit viral posts ordered by likes descending.
func (s *Service) ViralPosts(ctx context.Context, niche string, limit int) ([]models.ViralPostSignal, error) {
	aggs, err := s.source(ctx, niche)
	if err != nil {
		return nil, err
	}

	var signals []models.ViralPostSignal
	for _, agg := range aggs {
		signals = append(signals, agg.ViralPosts...)
	}

	sort.SliceStable(signals, func(i, j int) bool {
		return signals[i].Likes > signals[j].Likes
	})
	if len(signals) > limit {
		signals = signals[:limit]
	}
	return signals, nil
}

// source resolves which aggregates feed a projection. A niche that was never
// analyzed is not an error, it contributes no signals.
func (s *Service) source(ctx context.Context, niche string) ([]*models.NicheAggregate, error) {
	if niche != "" {
		norm, err := analysis.Normalize(niche)
		if err != nil {
			return nil, err
		}
		agg, err := s.reader.FindByNiche(ctx, norm)
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return []*models.NicheAggregate{agg}, nil
	}

	return s.reader.ListRecent(ctx, flattenAggregates)
}
