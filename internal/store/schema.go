// NichePulse - Instagram Niche Analytics Service
// Copyright 2026 NichePulse contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nichepulse/nichepulse

package store

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createTables creates the aggregate table and its indexes.
//
// All columns are defined in the initial CREATE TABLE statement: single source
// of truth for the complete schema and no migrations to run at startup. Signal
// lists are VARCHAR columns holding JSON so the table never changes shape when
// a signal gains a field.
func (s *Store) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	queries := []string{
		`CREATE TABLE IF NOT EXISTS niche_aggregates (
			niche              VARCHAR PRIMARY KEY,
			trending_hashtags  VARCHAR NOT NULL,
			trending_audios    VARCHAR NOT NULL,
			top_influencers    VARCHAR NOT NULL,
			viral_posts        VARCHAR NOT NULL,
			best_posting_times VARCHAR NOT NULL,
			content_ideas      VARCHAR NOT NULL,
			market_size        BIGINT NOT NULL,
			competition        VARCHAR NOT NULL,
			last_updated       TIMESTAMP NOT NULL,
			created_at         TIMESTAMP NOT NULL,
			updated_at         TIMESTAMP NOT NULL
		)`,
		// last_updated drives both the freshness check and the recency
		// ordering used by the trending projections.
		`CREATE INDEX IF NOT EXISTS idx_aggregates_last_updated
			ON niche_aggregates (last_updated)`,
	}

	for _, query := range queries {
		if _, err := s.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	return nil
}
