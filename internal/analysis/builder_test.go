// NichePulse - Instagram Niche Analytics Service
// Copyright 2026 NichePulse contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nichepulse/nichepulse

package analysis

import (
	"reflect"
	"testing"
	"time"

	"github.com/nichepulse/nichepulse/internal/collector"
	"github.com/nichepulse/nichepulse/internal/models"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func sampleSignals() *collector.Signals {
	return &collector.Signals{
		Hashtags: []models.HashtagSignal{
			{Tag: "#fitness", Posts: 2_000_000, Trend: "+0%"},
		},
		Audios: []models.AudioSignal{
			{Title: "fitness Motivation", Plays: 1_500_000},
			{Title: "fitness Vibes", Plays: 800_000},
		},
		Influencers: []models.InfluencerSignal{
			{Username: "@fitness_expert", Followers: 900_000, Engagement: 7.0},
			{Username: "@fitness_guru", Followers: 600_000, Engagement: 6.0},
		},
		ViralPosts: []models.ViralPostSignal{
			{ID: "p1", Likes: 50_000, Views: 200_000},
		},
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	b := NewBuilderWithClock(fixedClock(now))

	a1 := b.Build("fitness", sampleSignals())
	a2 := b.Build("fitness", sampleSignals())

	if !reflect.DeepEqual(a1, a2) {
		t.Error("identical inputs produced different aggregates")
	}
}

func TestBuildDerivedFields(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	b := NewBuilderWithClock(fixedClock(now))

	agg := b.Build("fitness", sampleSignals())

	if agg.Niche != "fitness" {
		t.Errorf("expected niche fitness, got %q", agg.Niche)
	}
	wantTimes := []string{"9:00 AM", "1:00 PM", "7:00 PM"}
	if !reflect.DeepEqual(agg.BestPostingTimes, wantTimes) {
		t.Errorf("unexpected posting times: %v", agg.BestPostingTimes)
	}
	wantIdeas := []string{
		"fitness transformation stories",
		"fitness tips and tricks",
		"fitness behind the scenes",
		"fitness day in the life",
		"fitness before and after",
	}
	if !reflect.DeepEqual(agg.ContentIdeas, wantIdeas) {
		t.Errorf("unexpected content ideas: %v", agg.ContentIdeas)
	}
	// 2M posts + 2.3M plays + 1.5M followers + 200k views
	if agg.MarketSize != 6_000_000 {
		t.Errorf("expected market size 6000000, got %d", agg.MarketSize)
	}
	if !agg.LastUpdated.Equal(now) || !agg.CreatedAt.Equal(now) || !agg.UpdatedAt.Equal(now) {
		t.Errorf("expected all timestamps at build time, got %v/%v/%v",
			agg.LastUpdated, agg.CreatedAt, agg.UpdatedAt)
	}
}

func TestMarketSizeClamping(t *testing.T) {
	tiny := &collector.Signals{
		Hashtags: []models.HashtagSignal{{Tag: "#obscure", Posts: 1_200}},
	}
	if got := marketSize(tiny); got != minMarketSize {
		t.Errorf("expected floor %d for tiny niche, got %d", minMarketSize, got)
	}

	huge := &collector.Signals{
		Hashtags:    []models.HashtagSignal{{Posts: 500_000_000}},
		Influencers: []models.InfluencerSignal{{Followers: 50_000_000}},
	}
	if got := marketSize(huge); got != maxMarketSize-1 {
		t.Errorf("expected ceiling %d for huge niche, got %d", maxMarketSize-1, got)
	}
}

func TestCompetitionGrading(t *testing.T) {
	tests := []struct {
		name        string
		engagements []float64
		want        models.Competition
	}{
		{"high engagement", []float64{12.0, 10.0}, models.CompetitionHigh},
		{"medium engagement", []float64{7.0, 6.0}, models.CompetitionMedium},
		{"low engagement", []float64{4.0, 5.0}, models.CompetitionLow},
		{"boundary high", []float64{9.0}, models.CompetitionHigh},
		{"boundary medium", []float64{6.0}, models.CompetitionMedium},
		{"no influencers", nil, models.CompetitionMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signals := &collector.Signals{}
			for _, e := range tt.engagements {
				signals.Influencers = append(signals.Influencers, models.InfluencerSignal{Engagement: e})
			}
			if got := competition(signals); got != tt.want {
				t.Errorf("competition(%v) = %q, want %q", tt.engagements, got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"Fitness", "fitness", false},
		{"  Travel Hacks  ", "travel hacks", false},
		{"FOOD", "food", false},
		{"", "", true},
		{"   ", "", true},
		{string(make([]byte, 101)), "", true},
	}

	for _, tt := range tests {
		got, err := Normalize(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("Normalize(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("Normalize(%q): unexpected error %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
