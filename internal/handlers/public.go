// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"devfolio/internal/cache"
	"devfolio/internal/models"
	"devfolio/internal/slug"
)

// PageCache is the L2 cache of served pages, keyed by slug. The Fill
// returned on a miss must be taken before the database read.
// *cache.PageCache implements it.
type PageCache interface {
	Get(ctx context.Context, slug string) (cache.CachedPage, cache.Fill, bool)
	Set(ctx context.Context, fill cache.Fill, page cache.CachedPage)
}

// PublishedFinder loads a servable portfolio by slug.
type PublishedFinder interface {
	FindPublishedBySlug(ctx context.Context, slug string) (*models.Portfolio, error)
}

// Public serves frozen portfolio artifacts at /p/{slug}. It checks the L2
// Valkey page cache before the database and stores the page on a miss.
// The generated artifact is never served here.
type Public struct {
	portfolios PublishedFinder
	pages      PageCache
}

// NewPublic creates the public artifact server. pages may be nil when
// Valkey is not configured.
func NewPublic(portfolios PublishedFinder, pages PageCache) *Public {
	return &Public{portfolios: portfolios, pages: pages}
}

// Portfolio serves the published artifact of a slug. Unknown, unpublished
// and private portfolios are all answered with the same 404.
func (p *Public) Portfolio(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s := chi.URLParam(r, "slug")

	// Stored slugs are always canonical, so anything else cannot match.
	if slug.Validate(s) != nil {
		http.NotFound(w, r)
		return
	}

	var fill cache.Fill
	if p.pages != nil {
		cached, f, ok := p.pages.Get(ctx, s)
		if ok {
			writePage(w, cached)
			return
		}
		fill = f
	}

	portfolio, err := p.portfolios.FindPublishedBySlug(ctx, s)
	if err != nil {
		slog.Error("find published portfolio failed", "error", err, "slug", s)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if portfolio == nil || !portfolio.IsServable() {
		http.NotFound(w, r)
		return
	}

	page := cache.CachedPage{
		HTML:     []byte(*portfolio.PublishedHTML),
		Unlisted: portfolio.Visibility == models.VisibilityUnlisted,
	}
	if p.pages != nil {
		p.pages.Set(ctx, fill, page)
	}
	writePage(w, page)
}

func writePage(w http.ResponseWriter, page cache.CachedPage) {
	if page.Unlisted {
		w.Header().Set("X-Robots-Tag", "noindex")
	}
	writeHTML(w, http.StatusOK, page.HTML)
}
