// NichePulse - Instagram Niche Analytics Service
// Copyright 2026 NichePulse contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nichepulse/nichepulse

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/nichepulse/nichepulse/internal/metrics"
	"github.com/nichepulse/nichepulse/internal/models"
)

// FindByNiche returns the stored aggregate for the given normalized niche.
// Returns ErrNotFound when the niche has never been analyzed.
func (s *Store) FindByNiche(ctx context.Context, niche string) (*models.NicheAggregate, error) {
	start := time.Now()

	query := `SELECT niche, trending_hashtags, trending_audios, top_influencers,
		viral_posts, best_posting_times, content_ideas, market_size, competition,
		last_updated, created_at, updated_at
		FROM niche_aggregates WHERE niche = ?`

	stmt, err := s.getStmt(ctx, query)
	if err != nil {
		metrics.RecordStoreQuery("find_by_niche", time.Since(start), err)
		return nil, err
	}

	agg, err := scanAggregate(stmt.QueryRowContext(ctx, niche))
	metrics.RecordStoreQuery("find_by_niche", time.Since(start), ignoreNotFound(err))
	if err != nil {
		return nil, err
	}
	return agg, nil
}

// Upsert inserts or replaces the aggregate for its niche. On conflict every
// analysis field is replaced and created_at is preserved from the existing
// row, so CreatedAt always reflects the first analysis of the niche.
//
// Concurrent upserts on the same key can raise DuckDB transaction conflicts,
// which are retried with short exponential backoff.
func (s *Store) Upsert(ctx context.Context, agg *models.NicheAggregate) error {
	start := time.Now()

	const maxRetries = 3
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		err := s.doUpsert(ctx, agg)
		if err == nil {
			metrics.RecordStoreQuery("upsert", time.Since(start), nil)
			return nil
		}
		lastErr = err

		if isTransactionConflict(err) {
			if attempt < maxRetries-1 {
				backoff := time.Millisecond * time.Duration(1<<uint(attempt)) // 1ms, 2ms, 4ms
				select {
				case <-time.After(backoff):
					continue
				case <-ctx.Done():
					metrics.RecordStoreQuery("upsert", time.Since(start), ctx.Err())
					return ctx.Err()
				}
			}
			continue
		}

		// Other errors (database closed, marshal failure) are not retryable
		metrics.RecordStoreQuery("upsert", time.Since(start), err)
		return err
	}

	err := fmt.Errorf("max retries exceeded: %w", lastErr)
	metrics.RecordStoreQuery("upsert", time.Since(start), err)
	return err
}

// isTransactionConflict reports whether the error is a DuckDB write-write
// conflict that should be retried.
func isTransactionConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "TransactionContext") ||
		strings.Contains(msg, "Conflict on") ||
		strings.Contains(msg, "write-write conflict")
}

func (s *Store) doUpsert(ctx context.Context, agg *models.NicheAggregate) error {
	hashtags, err := json.Marshal(agg.TrendingHashtags)
	if err != nil {
		return fmt.Errorf("failed to marshal trending hashtags: %w", err)
	}
	audios, err := json.Marshal(agg.TrendingAudios)
	if err != nil {
		return fmt.Errorf("failed to marshal trending audios: %w", err)
	}
	influencers, err := json.Marshal(agg.TopInfluencers)
	if err != nil {
		return fmt.Errorf("failed to marshal top influencers: %w", err)
	}
	posts, err := json.Marshal(agg.ViralPosts)
	if err != nil {
		return fmt.Errorf("failed to marshal viral posts: %w", err)
	}
	postingTimes, err := json.Marshal(agg.BestPostingTimes)
	if err != nil {
		return fmt.Errorf("failed to marshal posting times: %w", err)
	}
	ideas, err := json.Marshal(agg.ContentIdeas)
	if err != nil {
		return fmt.Errorf("failed to marshal content ideas: %w", err)
	}

	query := `INSERT INTO niche_aggregates (
		niche, trending_hashtags, trending_audios, top_influencers, viral_posts,
		best_posting_times, content_ideas, market_size, competition,
		last_updated, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (niche) DO UPDATE SET
		trending_hashtags = EXCLUDED.trending_hashtags,
		trending_audios = EXCLUDED.trending_audios,
		top_influencers = EXCLUDED.top_influencers,
		viral_posts = EXCLUDED.viral_posts,
		best_posting_times = EXCLUDED.best_posting_times,
		content_ideas = EXCLUDED.content_ideas,
		market_size = EXCLUDED.market_size,
		competition = EXCLUDED.competition,
		last_updated = EXCLUDED.last_updated,
		updated_at = EXCLUDED.updated_at`

	stmt, err := s.getStmt(ctx, query)
	if err != nil {
		return err
	}

	_, err = stmt.ExecContext(ctx,
		agg.Niche, string(hashtags), string(audios), string(influencers), string(posts),
		string(postingTimes), string(ideas), agg.MarketSize, string(agg.Competition),
		agg.LastUpdated, agg.CreatedAt, agg.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert niche aggregate: %w", err)
	}
	return nil
}

// ListRecent returns up to limit aggregates ordered by last_updated
// descending. The trending projections flatten signals across these.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]*models.NicheAggregate, error) {
	start := time.Now()

	query := `SELECT niche, trending_hashtags, trending_audios, top_influencers,
		viral_posts, best_posting_times, content_ideas, market_size, competition,
		last_updated, created_at, updated_at
		FROM niche_aggregates ORDER BY last_updated DESC LIMIT ?`

	stmt, err := s.getStmt(ctx, query)
	if err != nil {
		metrics.RecordStoreQuery("list_recent", time.Since(start), err)
		return nil, err
	}

	rows, err := stmt.QueryContext(ctx, limit)
	if err != nil {
		metrics.RecordStoreQuery("list_recent", time.Since(start), err)
		return nil, fmt.Errorf("failed to query recent aggregates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*models.NicheAggregate
	for rows.Next() {
		agg, err := scanAggregate(rows)
		if err != nil {
			metrics.RecordStoreQuery("list_recent", time.Since(start), err)
			return nil, err
		}
		result = append(result, agg)
	}
	if err := rows.Err(); err != nil {
		metrics.RecordStoreQuery("list_recent", time.Since(start), err)
		return nil, fmt.Errorf("failed to iterate recent aggregates: %w", err)
	}

	metrics.RecordStoreQuery("list_recent", time.Since(start), nil)
	return result, nil
}

// Count returns the total number of stored aggregates.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM niche_aggregates`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count aggregates: %w", err)
	}
	return n, nil
}

// scanner abstracts sql.Row and sql.Rows for scanAggregate.
type scanner interface {
	Scan(dest ...any) error
}

func scanAggregate(row scanner) (*models.NicheAggregate, error) {
	var (
		agg          models.NicheAggregate
		hashtags     string
		audios       string
		influencers  string
		posts        string
		postingTimes string
		ideas        string
		competition  string
	)

	err := row.Scan(
		&agg.Niche, &hashtags, &audios, &influencers, &posts,
		&postingTimes, &ideas, &agg.MarketSize, &competition,
		&agg.LastUpdated, &agg.CreatedAt, &agg.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan niche aggregate: %w", err)
	}

	if err := json.Unmarshal([]byte(hashtags), &agg.TrendingHashtags); err != nil {
		return nil, fmt.Errorf("failed to unmarshal trending hashtags: %w", err)
	}
	if err := json.Unmarshal([]byte(audios), &agg.TrendingAudios); err != nil {
		return nil, fmt.Errorf("failed to unmarshal trending audios: %w", err)
	}
	if err := json.Unmarshal([]byte(influencers), &agg.TopInfluencers); err != nil {
		return nil, fmt.Errorf("failed to unmarshal top influencers: %w", err)
	}
	if err := json.Unmarshal([]byte(posts), &agg.ViralPosts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal viral posts: %w", err)
	}
	if err := json.Unmarshal([]byte(postingTimes), &agg.BestPostingTimes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal posting times: %w", err)
	}
	if err := json.Unmarshal([]byte(ideas), &agg.ContentIdeas); err != nil {
		return nil, fmt.Errorf("failed to unmarshal content ideas: %w", err)
	}

	agg.Competition = models.Competition(competition)
	return &agg, nil
}

// ignoreNotFound maps ErrNotFound to nil so a miss is not counted as a query
// error in metrics.
func ignoreNotFound(err error) error {
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}
