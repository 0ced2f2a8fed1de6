// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"devfolio/internal/models"
)

const (
	sourceKeyPrefix = "source:"

	// DefaultSourceTTL is how long fetched provider data is reused.
	DefaultSourceTTL = 10 * time.Minute
)

// SourceCache stores provider responses so repeated generations for the
// same account within the TTL do not hit the upstream API. Entries are
// JSON-encoded models.SourceData.
type SourceCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSourceCache creates a source cache backed by the given Valkey client.
func NewSourceCache(client *redis.Client, ttl time.Duration) *SourceCache {
	if ttl == 0 {
		ttl = DefaultSourceTTL
	}
	return &SourceCache{client: client, ttl: ttl}
}

// SourceKey returns the Valkey key for an account. Account names are
// case-insensitive upstream.
func SourceKey(account string) string {
	return sourceKeyPrefix + strings.ToLower(account)
}

// Get returns cached data for an account. A Valkey error is returned so
// the caller can count it; redis.Nil is reported as a plain miss.
func (sc *SourceCache) Get(ctx context.Context, account string) (*models.SourceData, bool, error) {
	raw, err := sc.client.Get(ctx, SourceKey(account)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("source cache get: %w", err)
	}

	var data models.SourceData
	if err := json.Unmarshal(raw, &data); err != nil {
		// A corrupt entry is dropped and treated as a miss.
		slog.Warn("source cache entry undecodable, dropping", "account", account, "error", err)
		sc.client.Del(ctx, SourceKey(account))
		return nil, false, nil
	}
	return &data, true, nil
}

// Set stores data for an account with the configured TTL.
func (sc *SourceCache) Set(ctx context.Context, account string, data *models.SourceData) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("source cache encode: %w", err)
	}
	if err := sc.client.Set(ctx, SourceKey(account), raw, sc.ttl).Err(); err != nil {
		return fmt.Errorf("source cache set: %w", err)
	}
	return nil
}

// Invalidate drops the cached data for an account.
func (sc *SourceCache) Invalidate(ctx context.Context, account string) error {
	if err := sc.client.Del(ctx, SourceKey(account)).Err(); err != nil {
		return fmt.Errorf("source cache invalidate: %w", err)
	}
	return nil
}
