// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// page.go provides a Valkey-backed cache of published portfolio pages,
// keyed by public slug. The public server fills it on a miss; publish
// transitions drop the affected slugs. A per-slug generation counter
// keeps a fill that raced an invalidation out of the cache.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// pageKeyPrefix is the Valkey key prefix for cached pages.
	pageKeyPrefix = "page:"

	// genKeyPrefix prefixes the per-slug invalidation counter.
	genKeyPrefix = "pagegen:"

	// generationTTL outlives any in-flight fill by a wide margin.
	generationTTL = 24 * time.Hour

	// DefaultPageTTL is how long a served page stays cached.
	DefaultPageTTL = 5 * time.Minute
)

// CachedPage is a published artifact plus what the server needs to
// answer without touching the database.
type CachedPage struct {
	HTML     []byte
	Unlisted bool
}

// PageCache manages published page caching in Valkey.
type PageCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPageCache creates a new page cache backed by the given Valkey client.
func NewPageCache(client *redis.Client, ttl time.Duration) *PageCache {
	if ttl == 0 {
		ttl = DefaultPageTTL
	}
	return &PageCache{client: client, ttl: ttl}
}

// PageKey returns the Valkey key holding the page for a slug.
func PageKey(slug string) string {
	return pageKeyPrefix + slug
}

func genKey(slug string) string {
	return genKeyPrefix + slug
}

// Unlisted pages are stored with a one-byte marker so a single GET
// returns both flag and body.
const (
	markerListed   = 'L'
	markerUnlisted = 'U'
)

// Fill is taken on a cache miss before the page is loaded from the
// database. Set stores the loaded page only if no invalidation of the slug
// happened since, so a slow read cannot bring an unpublished page back.
// The zero Fill never stores anything.
type Fill struct {
	Slug       string
	Generation int64
}

// errStaleFill aborts a fill overtaken by an invalidation.
var errStaleFill = errors.New("page invalidated during fill")

// Get retrieves the cached page for a slug together with a Fill for the
// miss path. Errors are logged and reported as a miss with an unusable
// Fill.
func (pc *PageCache) Get(ctx context.Context, slug string) (CachedPage, Fill, bool) {
	vals, err := pc.client.MGet(ctx, PageKey(slug), genKey(slug)).Result()
	if err != nil {
		slog.Warn("page cache get error", "slug", slug, "error", err)
		return CachedPage{}, Fill{}, false
	}

	var gen int64
	if raw, ok := vals[1].(string); ok {
		if gen, err = strconv.ParseInt(raw, 10, 64); err != nil {
			slog.Warn("page cache generation unreadable", "slug", slug, "value", raw)
			return CachedPage{}, Fill{}, false
		}
	}
	fill := Fill{Slug: slug, Generation: gen}

	raw, ok := vals[0].(string)
	if !ok || raw == "" {
		return CachedPage{}, fill, false
	}
	slog.Debug("page cache hit", "slug", slug)
	return CachedPage{HTML: []byte(raw[1:]), Unlisted: raw[0] == markerUnlisted}, fill, true
}

// Set stores a page loaded after fill was taken, with the configured TTL.
// It is skipped when the slug was invalidated in between.
func (pc *PageCache) Set(ctx context.Context, fill Fill, page CachedPage) {
	if fill.Slug == "" {
		return
	}
	marker := byte(markerListed)
	if page.Unlisted {
		marker = markerUnlisted
	}
	val := make([]byte, 0, len(page.HTML)+1)
	val = append(val, marker)
	val = append(val, page.HTML...)

	gk := genKey(fill.Slug)
	err := pc.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, gk).Int64()
		if err != nil && err != redis.Nil {
			return err
		}
		if cur != fill.Generation {
			return errStaleFill
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, PageKey(fill.Slug), val, pc.ttl)
			return nil
		})
		return err
	}, gk)

	switch {
	case err == nil:
	case errors.Is(err, errStaleFill), errors.Is(err, redis.TxFailedErr):
		slog.Debug("page cache fill skipped", "slug", fill.Slug, "reason", "invalidated")
	default:
		slog.Warn("page cache set error", "slug", fill.Slug, "error", err)
	}
}

// Invalidate removes the cached page of a slug and bumps its generation,
// which voids every Fill taken before.
func (pc *PageCache) Invalidate(ctx context.Context, slug string) error {
	gk := genKey(slug)
	_, err := pc.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, gk)
		pipe.Expire(ctx, gk, generationTTL)
		pipe.Del(ctx, PageKey(slug))
		return nil
	})
	if err != nil {
		slog.Warn("page cache invalidate error", "slug", slug, "error", err)
		return err
	}
	slog.Debug("page cache invalidated", "slug", slug)
	return nil
}
