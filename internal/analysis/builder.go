// NichePulse - Instagram Niche Analytics Service
// Copyright 2026 NichePulse contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nichepulse/nichepulse

package analysis

import (
	"fmt"
	"time"

	"github.com/nichepulse/nichepulse/internal/collector"
	"github.com/nichepulse/nichepulse/internal/models"
)

// Market size bounds, in accounts reachable within the niche.
const (
	minMarketSize = 1_000_000
	maxMarketSize = 11_000_000 // exclusive
)

// Competition thresholds over the mean influencer engagement percentage.
const (
	highCompetitionEngagement   = 9.0
	mediumCompetitionEngagement = 6.0
)

// bestPostingTimes are the peak engagement windows. They are stable across
// niches; per-niche timing would need audience activity data the collectors
// do not gather.
var bestPostingTimes = []string{"9:00 AM", "1:00 PM", "7:00 PM"}

// contentIdeaTemplates generate the suggested formats for a niche.
var contentIdeaTemplates = []string{
	"%s transformation stories",
	"%s tips and tricks",
	"%s behind the scenes",
	"%s day in the life",
	"%s before and after",
}

// Builder turns collected signals into a niche aggregate. Build is pure:
// the same niche, signals and clock produce the same aggregate.
type Builder struct {
	now func() time.Time
}

// NewBuilder creates a builder using the real clock.
func NewBuilder() *Builder {
	return &Builder{now: func() time.Time { return time.Now().UTC() }}
}

// NewBuilderWithClock creates a builder with an injected clock for tests.
func NewBuilderWithClock(now func() time.Time) *Builder {
	return &Builder{now: now}
}

// Build assembles the aggregate for a normalized niche from its collected
// signals. LastUpdated, CreatedAt and UpdatedAt are all set to the build
// time; the orchestrator carries CreatedAt forward across refreshes.
func (b *Builder) Build(niche string, signals *collector.Signals) *models.NicheAggregate {
	now := b.now()

	return &models.NicheAggregate{
		Niche:            niche,
		TrendingHashtags: signals.Hashtags,
		TrendingAudios:   signals.Audios,
		TopInfluencers:   signals.Influencers,
		ViralPosts:       signals.ViralPosts,
		BestPostingTimes: append([]string(nil), bestPostingTimes...),
		ContentIdeas:     contentIdeas(niche),
		MarketSize:       marketSize(signals),
		Competition:      competition(signals),
		LastUpdated:      now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func contentIdeas(niche string) []string {
	ideas := make([]string, 0, len(contentIdeaTemplates))
	for _, tmpl := range contentIdeaTemplates {
		ideas = append(ideas, fmt.Sprintf(tmpl, niche))
	}
	return ideas
}

// marketSize estimates reachable accounts from total signal volume, clamped
// to the plausible range.
func marketSize(signals *collector.Signals) int64 {
	var volume int64
	for _, h := range signals.Hashtags {
		volume += h.Posts
	}
	for _, a := range signals.Audios {
		volume += a.Plays
	}
	for _, i := range signals.Influencers {
		volume += i.Followers
	}
	for _, p := range signals.ViralPosts {
		volume += p.Views
	}

	if volume < minMarketSize {
		return minMarketSize
	}
	if volume >= maxMarketSize {
		return maxMarketSize - 1
	}
	return volume
}

// competition grades the niche by mean influencer engagement: accounts in a
// crowded niche sustain higher engagement to stay visible. Falls back to
// medium when no influencer signals were collected.
func competition(signals *collector.Signals) models.Competition {
	if len(signals.Influencers) == 0 {
		return models.CompetitionMedium
	}

	var total float64
	for _, i := range signals.Influencers {
		total += i.Engagement
	}
	mean := total / float64(len(signals.Influencers))

	switch {
	case mean >= highCompetitionEngagement:
		return models.CompetitionHigh
	case mean >= mediumCompetitionEngagement:
		return models.CompetitionMedium
	default:
		return models.CompetitionLow
	}
}
