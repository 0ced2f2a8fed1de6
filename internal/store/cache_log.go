// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// cache_log.go records artifact invalidation events. Each entry captures
// which portfolio and cache key were dropped, when, and on which
// transition (publish/unpublish/visibility).
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// CacheLogStore handles cache invalidation log operations.
type CacheLogStore struct {
	db *sql.DB
}

// NewCacheLogStore creates a new CacheLogStore.
func NewCacheLogStore(db *sql.DB) *CacheLogStore {
	return &CacheLogStore{db: db}
}

// Log records an invalidation. Failures are logged and swallowed since
// the log is advisory.
func (s *CacheLogStore) Log(ctx context.Context, portfolioID uuid.UUID, cacheKey, action string) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cache_invalidation_log (portfolio_id, cache_key, action)
		VALUES ($1, $2, $3)
	`, portfolioID, cacheKey, action)
	if err != nil {
		slog.Warn("failed to log cache invalidation",
			"portfolio_id", portfolioID,
			"cache_key", cacheKey,
			"action", action,
			"error", err,
		)
		return
	}
	slog.Debug("cache invalidation logged",
		"portfolio_id", portfolioID,
		"cache_key", cacheKey,
		"action", action,
	)
}

// RecentEntries returns the most recent invalidation events for one
// portfolio, newest first.
func (s *CacheLogStore) RecentEntries(ctx context.Context, portfolioID uuid.UUID, limit int) ([]CacheLogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, portfolio_id, cache_key, action, invalidated_at
		FROM cache_invalidation_log
		WHERE portfolio_id = $1
		ORDER BY invalidated_at DESC, id DESC
		LIMIT $2
	`, portfolioID, limit)
	if err != nil {
		return nil, fmt.Errorf("query cache log: %w", err)
	}
	defer rows.Close()

	var entries []CacheLogEntry
	for rows.Next() {
		var e CacheLogEntry
		if err := rows.Scan(&e.ID, &e.PortfolioID, &e.CacheKey, &e.Action, &e.InvalidatedAt); err != nil {
			return nil, fmt.Errorf("scan cache log: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CacheLogEntry represents a single cache invalidation event.
type CacheLogEntry struct {
	ID            int64     `json:"id"`
	PortfolioID   uuid.UUID `json:"portfolio_id"`
	CacheKey      string    `json:"cache_key"`
	Action        string    `json:"action"`
	InvalidatedAt time.Time `json:"invalidated_at"`
}
