// NichePulse - Instagram Niche Analytics Service
// Copyright 2026 NichePulse contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nichepulse/nichepulse

package sweeper

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nichepulse/nichepulse/internal/analysis"
	"github.com/nichepulse/nichepulse/internal/models"
)

type fakeLister struct {
	aggs []*models.NicheAggregate
	err  error
}

func (f *fakeLister) ListRecent(context.Context, int) ([]*models.NicheAggregate, error) {
	return f.aggs, f.err
}

type fakeRefresher struct {
	mu        sync.Mutex
	refreshed []string
	err       error
}

func (f *fakeRefresher) ForceRefresh(_ context.Context, niche string) (*models.NicheAggregate, analysis.Source, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, "", f.err
	}
	f.refreshed = append(f.refreshed, niche)
	return &models.NicheAggregate{Niche: niche}, analysis.SourceCollected, nil
}

func (f *fakeRefresher) niches() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.refreshed...)
}

func aggUpdatedAt(niche string, when time.Time) *models.NicheAggregate {
	return &models.NicheAggregate{Niche: niche, LastUpdated: when}
}

func TestSweepRefreshesOnlyStaleAggregates(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	lister := &fakeLister{aggs: []*models.NicheAggregate{
		aggUpdatedAt("fitness", now.Add(-2*time.Hour)),
		aggUpdatedAt("travel", now.Add(-30*time.Minute)),
		aggUpdatedAt("food", now.Add(-90*time.Minute)),
	}}
	refresher := &fakeRefresher{}

	s := New(lister, refresher, time.Minute, time.Hour)
	s.now = func() time.Time { return now }

	s.sweep(context.Background())

	got := refresher.niches()
	if len(got) != 2 || got[0] != "fitness" || got[1] != "food" {
		t.Errorf("refreshed = %v, want [fitness food]", got)
	}
}

func TestSweepSkipsFreshAggregates(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	lister := &fakeLister{aggs: []*models.NicheAggregate{
		aggUpdatedAt("fitness", now.Add(-10*time.Minute)),
	}}
	refresher := &fakeRefresher{}

	s := New(lister, refresher, time.Minute, time.Hour)
	s.now = func() time.Time { return now }

	s.sweep(context.Background())

	if got := refresher.niches(); len(got) != 0 {
		t.Errorf("refreshed = %v, want none", got)
	}
}

func TestSweepContinuesPastFailures(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	lister := &fakeLister{aggs: []*models.NicheAggregate{
		aggUpdatedAt("fitness", now.Add(-2*time.Hour)),
		aggUpdatedAt("food", now.Add(-2*time.Hour)),
	}}
	refresher := &fakeRefresher{err: errors.New("collection failed")}

	s := New(lister, refresher, time.Minute, time.Hour)
	s.now = func() time.Time { return now }

	// Must not panic or abort; both refreshes fail and are logged.
	s.sweep(context.Background())

	if got := refresher.niches(); len(got) != 0 {
		t.Errorf("refreshed = %v, want none", got)
	}
}

func TestSweepAbortsOnListError(t *testing.T) {
	lister := &fakeLister{err: errors.New("database locked")}
	refresher := &fakeRefresher{}

	s := New(lister, refresher, time.Minute, time.Hour)
	s.sweep(context.Background())

	if got := refresher.niches(); len(got) != 0 {
		t.Errorf("refreshed = %v, want none", got)
	}
}

func TestServeStopsOnContextCancel(t *testing.T) {
	lister := &fakeLister{}
	refresher := &fakeRefresher{}
	s := New(lister, refresher, 10*time.Millisecond, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve returned %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve did not stop after cancel")
	}
}
