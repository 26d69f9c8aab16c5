// NichePulse - Instagram Niche Analytics Service
// Copyright 2026 NichePulse contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nichepulse/nichepulse

package analysis

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nichepulse/nichepulse/internal/cache"
	"github.com/nichepulse/nichepulse/internal/models"
	"github.com/nichepulse/nichepulse/internal/store"
)

// fakeStore is an in-memory AggregateStore with call counters.
type fakeStore struct {
	mu        sync.Mutex
	rows      map[string]*models.NicheAggregate
	finds     int
	upserts   int
	upsertErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: make(map[string]*models.NicheAggregate)}
}

func (f *fakeStore) FindByNiche(_ context.Context, niche string) (*models.NicheAggregate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finds++
	agg, ok := f.rows[niche]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *agg
	return &cp, nil
}

func (f *fakeStore) Upsert(_ context.Context, agg *models.NicheAggregate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	if f.upsertErr != nil {
		return f.upsertErr
	}
	cp := *agg
	f.rows[agg.Niche] = &cp
	return nil
}

// fakeSignals implements collector.SignalCollector with a collection counter
// and optional error / blocking gate.
type fakeSignals struct {
	collections atomic.Int64
	hashtagErr  error
	gate        chan struct{} // if set, Hashtags blocks until closed
}

func (f *fakeSignals) Hashtags(ctx context.Context, niche string) ([]models.HashtagSignal, error) {
	f.collections.Add(1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.hashtagErr != nil {
		return nil, f.hashtagErr
	}
	return []models.HashtagSignal{{Tag: "#" + niche, Posts: 2_000_000, Trend: "+0%"}}, nil
}

func (f *fakeSignals) Audios(context.Context, string) ([]models.AudioSignal, error) {
	return []models.AudioSignal{{Title: "Motivation", Plays: 1_000_000}}, nil
}

func (f *fakeSignals) Influencers(_ context.Context, niche string) ([]models.InfluencerSignal, error) {
	return []models.InfluencerSignal{{Username: "@" + niche + "_expert", Followers: 800_000, Engagement: 7.5}}, nil
}

func (f *fakeSignals) ViralPosts(context.Context, string) ([]models.ViralPostSignal, error) {
	return []models.ViralPostSignal{{ID: "p1", Likes: 40_000, Views: 100_000}}, nil
}

type serviceFixture struct {
	svc     *Service
	store   *fakeStore
	cache   *cache.Memory
	signals *fakeSignals
	now     time.Time
}

func newFixture(t *testing.T) *serviceFixture {
	t.Helper()

	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	st := newFakeStore()
	mem := cache.NewMemory(time.Minute)
	t.Cleanup(mem.Close)
	sig := &fakeSignals{}

	svc := NewService(Options{
		Store:           st,
		Cache:           mem,
		Collector:       sig,
		Builder:         NewBuilderWithClock(fixedClock(now)),
		FreshnessWindow: time.Hour,
		CacheTTL:        time.Hour,
		Now:             fixedClock(now),
	})

	return &serviceFixture{svc: svc, store: st, cache: mem, signals: sig, now: now}
}

func TestGetOrRefreshCollectsOnFullMiss(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	agg, source, err := f.svc.GetOrRefresh(ctx, "fitness")
	if err != nil {
		t.Fatalf("GetOrRefresh failed: %v", err)
	}
	if source != SourceCollected {
		t.Errorf("expected collected source, got %q", source)
	}
	if agg.Niche != "fitness" {
		t.Errorf("expected niche fitness, got %q", agg.Niche)
	}
	if f.signals.collections.Load() != 1 {
		t.Errorf("expected 1 collection, got %d", f.signals.collections.Load())
	}
	if f.store.upserts != 1 {
		t.Errorf("expected 1 upsert, got %d", f.store.upserts)
	}
	if _, ok := f.cache.Get(ctx, cache.Key("fitness")); !ok {
		t.Error("expected analysis to be cached after collection")
	}
}

func TestGetOrRefreshServesFromCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, _, err := f.svc.GetOrRefresh(ctx, "fitness"); err != nil {
		t.Fatalf("priming request failed: %v", err)
	}

	agg, source, err := f.svc.GetOrRefresh(ctx, "fitness")
	if err != nil {
		t.Fatalf("GetOrRefresh failed: %v", err)
	}
	if source != SourceCache {
		t.Errorf("expected cache source, got %q", source)
	}
	if agg.Niche != "fitness" {
		t.Errorf("expected niche fitness, got %q", agg.Niche)
	}
	if f.signals.collections.Load() != 1 {
		t.Errorf("cache hit should not re-collect, got %d collections", f.signals.collections.Load())
	}
}

func TestGetOrRefreshServesFreshStoreRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Row 30 minutes old, inside the 1 hour freshness window. Cache empty.
	f.store.rows["travel"] = &models.NicheAggregate{
		Niche:       "travel",
		MarketSize:  4_000_000,
		Competition: models.CompetitionLow,
		LastUpdated: f.now.Add(-30 * time.Minute),
		CreatedAt:   f.now.Add(-24 * time.Hour),
	}

	agg, source, err := f.svc.GetOrRefresh(ctx, "travel")
	if err != nil {
		t.Fatalf("GetOrRefresh failed: %v", err)
	}
	if source != SourceStore {
		t.Errorf("expected store source, got %q", source)
	}
	if agg.MarketSize != 4_000_000 {
		t.Errorf("expected stored aggregate, got market size %d", agg.MarketSize)
	}
	if f.signals.collections.Load() != 0 {
		t.Error("fresh store row should not trigger collection")
	}
	if _, ok := f.cache.Get(ctx, cache.Key("travel")); !ok {
		t.Error("fresh store row should be re-cached")
	}
}

func TestGetOrRefreshRecollectsStaleRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created := f.now.Add(-48 * time.Hour)
	f.store.rows["travel"] = &models.NicheAggregate{
		Niche:       "travel",
		LastUpdated: f.now.Add(-2 * time.Hour), // beyond the 1 hour window
		CreatedAt:   created,
	}

	agg, source, err := f.svc.GetOrRefresh(ctx, "travel")
	if err != nil {
		t.Fatalf("GetOrRefresh failed: %v", err)
	}
	if source != SourceCollected {
		t.Errorf("expected collected source for stale row, got %q", source)
	}
	if f.signals.collections.Load() != 1 {
		t.Errorf("expected re-collection, got %d collections", f.signals.collections.Load())
	}
	if !agg.CreatedAt.Equal(created) {
		t.Errorf("expected CreatedAt carried forward from first analysis, got %v", agg.CreatedAt)
	}
	if !agg.LastUpdated.Equal(f.now) {
		t.Errorf("expected LastUpdated reset to refresh time, got %v", agg.LastUpdated)
	}
}

func TestForceRefreshBypassesCacheAndFreshness(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Prime both layers with a perfectly fresh analysis
	if _, _, err := f.svc.GetOrRefresh(ctx, "fitness"); err != nil {
		t.Fatalf("priming request failed: %v", err)
	}

	agg, source, err := f.svc.ForceRefresh(ctx, "fitness")
	if err != nil {
		t.Fatalf("ForceRefresh failed: %v", err)
	}
	if source != SourceCollected {
		t.Errorf("expected collected source on force, got %q", source)
	}
	if f.signals.collections.Load() != 2 {
		t.Errorf("expected force to re-collect, got %d collections", f.signals.collections.Load())
	}
	if agg.Niche != "fitness" {
		t.Errorf("expected niche fitness, got %q", agg.Niche)
	}
	if f.store.upserts != 2 {
		t.Errorf("expected second upsert on force, got %d", f.store.upserts)
	}
}

func TestAnalyzeNormalizesNiche(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	agg, _, err := f.svc.GetOrRefresh(ctx, "  FitNess ")
	if err != nil {
		t.Fatalf("GetOrRefresh failed: %v", err)
	}
	if agg.Niche != "fitness" {
		t.Errorf("expected normalized niche fitness, got %q", agg.Niche)
	}

	// Differently-cased request hits the same cache entry
	_, source, err := f.svc.GetOrRefresh(ctx, "FITNESS")
	if err != nil {
		t.Fatalf("second request failed: %v", err)
	}
	if source != SourceCache {
		t.Errorf("expected cache hit across casings, got %q", source)
	}
}

func TestAnalyzeRejectsInvalidNiche(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, niche := range []string{"", "   ", string(make([]byte, 101))} {
		if _, _, err := f.svc.GetOrRefresh(ctx, niche); !errors.Is(err, ErrInvalidNiche) {
			t.Errorf("GetOrRefresh(%q): expected ErrInvalidNiche, got %v", niche, err)
		}
	}
}

func TestCollectionFailurePersistsNothing(t *testing.T) {
	f := newFixture(t)
	f.signals.hashtagErr = errors.New("upstream down")
	ctx := context.Background()

	_, _, err := f.svc.GetOrRefresh(ctx, "fitness")
	var collErr *CollectionError
	if !errors.As(err, &collErr) {
		t.Fatalf("expected CollectionError, got %v", err)
	}
	if collErr.Niche != "fitness" {
		t.Errorf("expected error for fitness, got %q", collErr.Niche)
	}
	if f.store.upserts != 0 {
		t.Error("failed collection must not write to store")
	}
	if _, ok := f.cache.Get(ctx, cache.Key("fitness")); ok {
		t.Error("failed collection must not populate cache")
	}
}

func TestUpsertFailureReturnsPersistError(t *testing.T) {
	f := newFixture(t)
	f.store.upsertErr = errors.New("disk full")
	ctx := context.Background()

	_, _, err := f.svc.GetOrRefresh(ctx, "fitness")
	var persistErr *PersistError
	if !errors.As(err, &persistErr) {
		t.Fatalf("expected PersistError, got %v", err)
	}
}

func TestConcurrentRequestsCoalesce(t *testing.T) {
	f := newFixture(t)
	f.signals.gate = make(chan struct{})
	ctx := context.Background()

	const n = 8
	var wg sync.WaitGroup
	results := make([]Source, n)
	errs := make([]error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i], errs[i] = f.svc.GetOrRefresh(ctx, "fitness")
		}(i)
	}

	// Let the requests pile up on the blocked collection, then release
	time.Sleep(50 * time.Millisecond)
	close(f.signals.gate)
	wg.Wait()

	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("request %d failed: %v", i, errs[i])
		}
		if results[i] != SourceCollected {
			t.Errorf("request %d: expected collected source, got %q", i, results[i])
		}
	}
	if got := f.signals.collections.Load(); got != 1 {
		t.Errorf("expected exactly 1 collection for %d concurrent requests, got %d", n, got)
	}
	if f.store.upserts != 1 {
		t.Errorf("expected exactly 1 upsert, got %d", f.store.upserts)
	}
}

func TestCorruptCacheEntryTreatedAsMiss(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.cache.Set(ctx, cache.Key("fitness"), []byte("{not json"), time.Hour)

	_, source, err := f.svc.GetOrRefresh(ctx, "fitness")
	if err != nil {
		t.Fatalf("GetOrRefresh failed: %v", err)
	}
	if source != SourceCollected {
		t.Errorf("corrupt cache entry should fall through to collection, got %q", source)
	}
}
