// NichePulse - Instagram Niche Analytics Service
// Copyright 2026 NichePulse contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nichepulse/nichepulse

package collector

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/nichepulse/nichepulse/internal/config"
	"github.com/nichepulse/nichepulse/internal/models"
)

// SyntheticSource generates the audio, influencer and viral post signal
// families. There is no stable public source for these, so they are drawn
// from distributions matching observed real-world shapes. A fixed seed makes
// the output reproducible for tests.
type SyntheticSource struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// NewSyntheticSource creates a source seeded with the given seed.
// Seed 0 means time-seeded, non-reproducible output.
func NewSyntheticSource(seed int64) *SyntheticSource {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &SyntheticSource{
		rng: rand.New(rand.NewSource(seed)),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Audios returns two trending audio tracks themed on the niche.
func (s *SyntheticSource) Audios(ctx context.Context, niche string) ([]models.AudioSignal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()

	return []models.AudioSignal{
		{
			Title:       fmt.Sprintf("%s Motivation", niche),
			Plays:       s.rng.Int63n(2000000) + 100000,
			Trend:       fmt.Sprintf("+%d%%", s.rng.Intn(50)+10),
			Duration:    s.rng.Intn(60) + 30,
			Genre:       "Motivational",
			LastUpdated: now,
		},
		{
			Title:       fmt.Sprintf("%s Vibes", niche),
			Plays:       s.rng.Int63n(1500000) + 50000,
			Trend:       fmt.Sprintf("+%d%%", s.rng.Intn(40)+5),
			Duration:    s.rng.Intn(45) + 15,
			Genre:       "Chill",
			LastUpdated: now,
		},
	}, nil
}

// Influencers returns the two leading accounts for the niche.
func (s *SyntheticSource) Influencers(ctx context.Context, niche string) ([]models.InfluencerSignal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()

	return []models.InfluencerSignal{
		{
			Username:    fmt.Sprintf("@%s_expert", niche),
			Followers:   s.rng.Int63n(3000000) + 500000,
			Engagement:  s.rng.Float64()*10 + 5,
			Posts:       int64(s.rng.Intn(1000) + 100),
			Category:    niche,
			Verified:    s.rng.Float64() > 0.5,
			LastUpdated: now,
		},
		{
			Username:    fmt.Sprintf("@%s_guru", niche),
			Followers:   s.rng.Int63n(2500000) + 300000,
			Engagement:  s.rng.Float64()*8 + 4,
			Posts:       int64(s.rng.Intn(800) + 50),
			Category:    niche,
			Verified:    s.rng.Float64() > 0.7,
			LastUpdated: now,
		},
	}, nil
}

// ViralPosts returns the current standout post for the niche.
func (s *SyntheticSource) ViralPosts(ctx context.Context, niche string) ([]models.ViralPostSignal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()

	postedAgo := time.Duration(s.rng.Float64() * float64(7*24*time.Hour))

	return []models.ViralPostSignal{
		{
			ID:       fmt.Sprintf("post_%d_1", now.UnixMilli()),
			Username: fmt.Sprintf("@%s_creator", niche),
			Caption:  fmt.Sprintf("Amazing %s content that's going viral! #%s #viral #trending", niche, niche),
			Likes:    s.rng.Int63n(100000) + 10000,
			Comments: s.rng.Int63n(5000) + 500,
			Shares:   s.rng.Int63n(2000) + 100,
			Views:    s.rng.Int63n(500000) + 50000,
			Hashtags: []string{"#" + niche, "#viral", "#trending"},
			Audio:    fmt.Sprintf("%s Vibes", niche),
			PostedAt: now.Add(-postedAgo),
			Category: niche,
		},
	}, nil
}

// Collector is the production SignalCollector: live hashtag pages plus the
// synthetic source for the remaining families.
type Collector struct {
	*HashtagFetcher
	*SyntheticSource
}

// New assembles the production collector from configuration.
func New(cfg *config.CollectorConfig) *Collector {
	return &Collector{
		HashtagFetcher:  NewHashtagFetcher(cfg),
		SyntheticSource: NewSyntheticSource(cfg.Seed),
	}
}
