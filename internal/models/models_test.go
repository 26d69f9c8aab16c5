// NichePulse - Instagram Niche Analytics Service
// Copyright 2026 NichePulse contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nichepulse/nichepulse

package models

import (
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func TestCompetitionValid(t *testing.T) {
	for _, c := range []Competition{CompetitionLow, CompetitionMedium, CompetitionHigh} {
		if !c.Valid() {
			t.Errorf("Competition(%q).Valid() = false, want true", c)
		}
	}
	for _, c := range []Competition{"", "extreme", "LOW"} {
		if c.Valid() {
			t.Errorf("Competition(%q).Valid() = true, want false", c)
		}
	}
}

func TestNicheAggregateJSONFieldNames(t *testing.T) {
	agg := NicheAggregate{
		Niche:            "fitness",
		TrendingHashtags: []HashtagSignal{{Tag: "#fitness", Posts: 120000, Trend: "+12%"}},
		TrendingAudios:   []AudioSignal{{Title: "Fitness Motivation", Plays: 500000, Trend: "+20%", Duration: 45, Genre: "Motivational"}},
		TopInfluencers:   []InfluencerSignal{{Username: "@fitness_expert", Followers: 1200000, Engagement: 7.5, Verified: true}},
		ViralPosts:       []ViralPostSignal{{ID: "post_1", Username: "@fitness_creator", Likes: 45000, Hashtags: []string{"#fitness"}}},
		BestPostingTimes: []string{"9:00 AM", "1:00 PM", "7:00 PM"},
		ContentIdeas:     []string{"fitness tips and tricks"},
		MarketSize:       5_000_000,
		Competition:      CompetitionMedium,
		LastUpdated:      time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC),
	}

	data, err := json.Marshal(agg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	// Wire names follow the persisted document layout; clients depend on them.
	for _, field := range []string{
		`"niche"`, `"trendingHashtags"`, `"trendingAudios"`, `"topInfluencers"`,
		`"viralPosts"`, `"bestPostingTimes"`, `"contentIdeas"`, `"marketSize"`,
		`"competition"`, `"lastUpdated"`,
	} {
		if !strings.Contains(string(data), field) {
			t.Errorf("marshaled aggregate missing field %s", field)
		}
	}

	var decoded NicheAggregate
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Niche != "fitness" || decoded.MarketSize != 5_000_000 {
		t.Errorf("round trip lost data: %+v", decoded)
	}
	if decoded.Competition != CompetitionMedium {
		t.Errorf("competition = %q, want %q", decoded.Competition, CompetitionMedium)
	}
}

func TestViralPostOptionalFieldsOmitted(t *testing.T) {
	post := ViralPostSignal{ID: "p1", Username: "@u", Hashtags: []string{}}
	data, err := json.Marshal(post)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), `"views"`) {
		t.Error("zero views should be omitted")
	}
	if strings.Contains(string(data), `"audio"`) {
		t.Error("empty audio should be omitted")
	}
}

func TestAPIResponseErrorShape(t *testing.T) {
	resp := APIResponse{
		Success: false,
		Message: "Failed to analyze niche",
		Error:   &APIError{Code: "COLLECTION_FAILED", Message: "hashtag fetch timed out"},
	}
	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), `"cached"`) {
		t.Error("cached=false should be omitted from the envelope")
	}
	if !strings.Contains(string(data), `"COLLECTION_FAILED"`) {
		t.Error("error code missing from envelope")
	}
}
