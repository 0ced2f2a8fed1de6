// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package artifact propagates publish transitions to everything that holds
// a copy of a published page: the Valkey page cache, the optional S3
// mirror, and the invalidation audit log. Distribution is best-effort;
// failures are logged and never undo the transition that triggered them.
package artifact

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"devfolio/internal/cache"
	"devfolio/internal/models"
)

// Actions recorded in the invalidation log.
const (
	ActionPublish    = "publish"
	ActionUnpublish  = "unpublish"
	ActionVisibility = "visibility"
)

// DefaultTimeout bounds one distribution round.
const DefaultTimeout = 10 * time.Second

// PageInvalidator drops a cached page by slug.
type PageInvalidator interface {
	Invalidate(ctx context.Context, slug string) error
}

// Mirror keeps an external copy of published pages.
type Mirror interface {
	PutPage(ctx context.Context, slug string, html []byte, unlisted bool) error
	DeletePage(ctx context.Context, slug string) error
}

// AuditLog records invalidation events.
type AuditLog interface {
	Log(ctx context.Context, portfolioID uuid.UUID, cacheKey, action string)
}

// Distributor fans transitions out to the configured targets. Any target
// may be nil.
type Distributor struct {
	pages   PageInvalidator
	mirror  Mirror
	log     AuditLog
	timeout time.Duration
}

// NewDistributor creates a Distributor. Pass untyped nil for targets that
// are not configured.
func NewDistributor(pages PageInvalidator, mirror Mirror, log AuditLog) *Distributor {
	return &Distributor{pages: pages, mirror: mirror, log: log, timeout: DefaultTimeout}
}

// Published handles a successful publish. previousSlug is the slug the
// record held before, or "" on first assignment.
func (d *Distributor) Published(ctx context.Context, p *models.Portfolio, previousSlug string) {
	if d == nil {
		return
	}
	ctx, cancel := d.detach(ctx)
	defer cancel()

	slug := p.Slug()
	d.invalidate(ctx, p.ID, slug, ActionPublish)
	d.sync(ctx, p)

	if previousSlug != "" && previousSlug != slug {
		d.invalidate(ctx, p.ID, previousSlug, ActionPublish)
		d.remove(ctx, previousSlug)
	}
}

// Unpublished handles a successful unpublish.
func (d *Distributor) Unpublished(ctx context.Context, p *models.Portfolio) {
	if d == nil {
		return
	}
	ctx, cancel := d.detach(ctx)
	defer cancel()

	slug := p.Slug()
	if slug == "" {
		return
	}
	d.invalidate(ctx, p.ID, slug, ActionUnpublish)
	d.remove(ctx, slug)
}

// VisibilityChanged handles a visibility change. Only published records
// have anything to distribute.
func (d *Distributor) VisibilityChanged(ctx context.Context, p *models.Portfolio) {
	if d == nil || !p.IsPublished || p.Slug() == "" {
		return
	}
	ctx, cancel := d.detach(ctx)
	defer cancel()

	d.invalidate(ctx, p.ID, p.Slug(), ActionVisibility)
	d.sync(ctx, p)
}

// detach keeps distribution running after the triggering request returns
// while still bounding it.
func (d *Distributor) detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
}

func (d *Distributor) invalidate(ctx context.Context, id uuid.UUID, slug, action string) {
	if d.pages != nil {
		if err := d.pages.Invalidate(ctx, slug); err != nil {
			slog.Warn("page invalidation failed", "portfolio_id", id, "slug", slug, "error", err)
		}
	}
	if d.log != nil {
		d.log.Log(ctx, id, cache.PageKey(slug), action)
	}
}

// sync uploads the frozen artifact if it is servable, deletes the mirror
// copy otherwise.
func (d *Distributor) sync(ctx context.Context, p *models.Portfolio) {
	if d.mirror == nil {
		return
	}
	slug := p.Slug()
	if !p.IsServable() {
		d.remove(ctx, slug)
		return
	}
	unlisted := p.Visibility == models.VisibilityUnlisted
	if err := d.mirror.PutPage(ctx, slug, []byte(*p.PublishedHTML), unlisted); err != nil {
		slog.Warn("artifact mirror upload failed", "portfolio_id", p.ID, "slug", slug, "error", err)
		return
	}
	slog.Debug("artifact mirrored", "portfolio_id", p.ID, "slug", slug)
}

func (d *Distributor) remove(ctx context.Context, slug string) {
	if d.mirror == nil {
		return
	}
	if err := d.mirror.DeletePage(ctx, slug); err != nil {
		slog.Warn("artifact mirror delete failed", "slug", slug, "error", err)
	}
}
