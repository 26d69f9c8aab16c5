// NichePulse - Instagram Niche Analytics Service
// Copyright 2026 NichePulse contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nichepulse/nichepulse

package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nichepulse/nichepulse/internal/config"
	"github.com/nichepulse/nichepulse/internal/models"
)

func testCollectorConfig(baseURL string) *config.CollectorConfig {
	return &config.CollectorConfig{
		BaseURL:   baseURL,
		Timeout:   5 * time.Second,
		RateLimit: 1000, // effectively unlimited for tests
		Seed:      42,
	}
}

func hashtagPage(posts string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html><head><title>#fitness</title></head>
<body>
<main>
<header>
<span title=%q>%s</span> posts
</header>
</main>
</body></html>`, posts, posts)
}

func TestHashtagFetcherParsesPostCount(t *testing.T) {
	var gotPath, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(hashtagPage("1,234,567")))
	}))
	defer srv.Close()

	f := NewHashtagFetcher(testCollectorConfig(srv.URL))
	signals, err := f.Hashtags(context.Background(), "fitness")
	if err != nil {
		t.Fatalf("Hashtags failed: %v", err)
	}

	if gotPath != "/explore/tags/fitness/" {
		t.Errorf("expected hashtag page path, got %q", gotPath)
	}
	if !strings.Contains(gotUA, "Mozilla") {
		t.Errorf("expected browser user agent, got %q", gotUA)
	}
	if len(signals) != 1 {
		t.Fatalf("expected 1 hashtag signal, got %d", len(signals))
	}
	if signals[0].Tag != "#fitness" {
		t.Errorf("expected tag #fitness, got %q", signals[0].Tag)
	}
	if signals[0].Posts != 1234567 {
		t.Errorf("expected 1234567 posts, got %d", signals[0].Posts)
	}
	if signals[0].Trend != "+0%" {
		t.Errorf("expected placeholder trend, got %q", signals[0].Trend)
	}
}

func TestHashtagFetcherErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	f := NewHashtagFetcher(testCollectorConfig(srv.URL))
	_, err := f.Hashtags(context.Background(), "fitness")
	if err == nil {
		t.Fatal("expected error on non-200 status")
	}
}

func TestHashtagFetcherNoCountInPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><span title="not a number">x</span></body></html>`))
	}))
	defer srv.Close()

	f := NewHashtagFetcher(testCollectorConfig(srv.URL))
	_, err := f.Hashtags(context.Background(), "fitness")
	if err == nil {
		t.Fatal("expected error when page carries no post count")
	}
}

func TestParseGroupedInt(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"1,234,567", 1234567, false},
		{"42", 42, false},
		{" 987 ", 987, false},
		{"", 0, true},
		{"abc", 0, true},
		{"12.5", 0, true},
	}

	for _, tt := range tests {
		got, err := parseGroupedInt(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseGroupedInt(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseGroupedInt(%q): unexpected error %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseGroupedInt(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestSyntheticSourceShapes(t *testing.T) {
	src := NewSyntheticSource(42)
	ctx := context.Background()

	audios, err := src.Audios(ctx, "fitness")
	if err != nil {
		t.Fatalf("Audios failed: %v", err)
	}
	if len(audios) != 2 {
		t.Fatalf("expected 2 audio signals, got %d", len(audios))
	}
	if audios[0].Title != "fitness Motivation" || audios[1].Title != "fitness Vibes" {
		t.Errorf("unexpected audio titles: %q, %q", audios[0].Title, audios[1].Title)
	}
	if audios[0].Plays < 100000 || audios[0].Plays >= 2100000 {
		t.Errorf("first audio plays out of range: %d", audios[0].Plays)
	}
	if audios[1].Plays < 50000 || audios[1].Plays >= 1550000 {
		t.Errorf("second audio plays out of range: %d", audios[1].Plays)
	}
	if audios[0].Duration < 30 || audios[0].Duration >= 90 {
		t.Errorf("first audio duration out of range: %d", audios[0].Duration)
	}

	influencers, err := src.Influencers(ctx, "fitness")
	if err != nil {
		t.Fatalf("Influencers failed: %v", err)
	}
	if len(influencers) != 2 {
		t.Fatalf("expected 2 influencer signals, got %d", len(influencers))
	}
	if influencers[0].Username != "@fitness_expert" || influencers[1].Username != "@fitness_guru" {
		t.Errorf("unexpected usernames: %q, %q", influencers[0].Username, influencers[1].Username)
	}
	if influencers[0].Followers < 500000 || influencers[0].Followers >= 3500000 {
		t.Errorf("expert followers out of range: %d", influencers[0].Followers)
	}
	if influencers[0].Engagement < 5 || influencers[0].Engagement >= 15 {
		t.Errorf("expert engagement out of range: %f", influencers[0].Engagement)
	}
	if influencers[0].Category != "fitness" {
		t.Errorf("expected category fitness, got %q", influencers[0].Category)
	}

	posts, err := src.ViralPosts(ctx, "fitness")
	if err != nil {
		t.Fatalf("ViralPosts failed: %v", err)
	}
	if len(posts) != 1 {
		t.Fatalf("expected 1 viral post, got %d", len(posts))
	}
	p := posts[0]
	if p.Username != "@fitness_creator" {
		t.Errorf("unexpected username: %q", p.Username)
	}
	if p.Likes < 10000 || p.Likes >= 110000 {
		t.Errorf("likes out of range: %d", p.Likes)
	}
	if len(p.Hashtags) != 3 || p.Hashtags[0] != "#fitness" {
		t.Errorf("unexpected hashtags: %v", p.Hashtags)
	}
	if p.Audio != "fitness Vibes" {
		t.Errorf("unexpected audio: %q", p.Audio)
	}
	age := time.Since(p.PostedAt)
	if age < 0 || age > 7*24*time.Hour+time.Minute {
		t.Errorf("posted time out of 7 day window: %v", p.PostedAt)
	}
}

func TestSyntheticSourceDeterministicWithSeed(t *testing.T) {
	ctx := context.Background()

	a1, _ := NewSyntheticSource(7).Audios(ctx, "travel")
	a2, _ := NewSyntheticSource(7).Audios(ctx, "travel")

	if a1[0].Plays != a2[0].Plays || a1[0].Trend != a2[0].Trend {
		t.Errorf("same seed produced different audio signals: %+v vs %+v", a1[0], a2[0])
	}
}

// failingCollector implements SignalCollector with one failing family.
type failingCollector struct {
	*SyntheticSource
	hashtagErr error
}

func (f *failingCollector) Hashtags(ctx context.Context, niche string) ([]models.HashtagSignal, error) {
	if f.hashtagErr != nil {
		return nil, f.hashtagErr
	}
	return []models.HashtagSignal{{Tag: "#" + niche, Posts: 100, Trend: "+0%", LastUpdated: time.Now()}}, nil
}

func TestCollectAllFamilies(t *testing.T) {
	sc := &failingCollector{SyntheticSource: NewSyntheticSource(42)}

	signals, err := Collect(context.Background(), sc, "fitness")
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	if len(signals.Hashtags) != 1 {
		t.Errorf("expected 1 hashtag signal, got %d", len(signals.Hashtags))
	}
	if len(signals.Audios) != 2 {
		t.Errorf("expected 2 audio signals, got %d", len(signals.Audios))
	}
	if len(signals.Influencers) != 2 {
		t.Errorf("expected 2 influencer signals, got %d", len(signals.Influencers))
	}
	if len(signals.ViralPosts) != 1 {
		t.Errorf("expected 1 viral post, got %d", len(signals.ViralPosts))
	}
}

func TestCollectAllOrNothing(t *testing.T) {
	boom := errors.New("upstream refused")
	sc := &failingCollector{SyntheticSource: NewSyntheticSource(42), hashtagErr: boom}

	_, err := Collect(context.Background(), sc, "fitness")
	if err == nil {
		t.Fatal("expected collection to fail when one family fails")
	}
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped upstream error, got %v", err)
	}
}

func TestCollectRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sc := &failingCollector{SyntheticSource: NewSyntheticSource(42)}
	_, err := Collect(ctx, sc, "fitness")
	if err == nil {
		t.Fatal("expected error on cancelled context")
	}
}
