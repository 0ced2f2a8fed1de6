// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package publish implements the portfolio publish lifecycle: freezing a
// generated artifact under a public slug, unpublishing, visibility
// changes and slug availability checks.
//
// Slug uniqueness is decided by the database. The lookup done before the
// write only gives callers an early, friendlier error; a unique violation
// during the guarded UPDATE is the authoritative answer.
package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"devfolio/internal/metrics"
	"devfolio/internal/models"
	"devfolio/internal/slug"
	"devfolio/internal/store"
)

// DefaultCooldownMonths is the minimum time between two different slugs.
const DefaultCooldownMonths = 6

// Store is the persistence the state machine needs. *store.PortfolioStore
// implements it.
type Store interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Portfolio, error)
	FindBySlug(ctx context.Context, slug string) (*models.Portfolio, error)
	Publish(ctx context.Context, pp store.PublishParams) (*models.Portfolio, error)
	Unpublish(ctx context.Context, id uuid.UUID) (*models.Portfolio, error)
	SetVisibility(ctx context.Context, id uuid.UUID, v models.Visibility) (*models.Portfolio, error)
}

// Distributor is notified after each successful transition.
// *artifact.Distributor implements it.
type Distributor interface {
	Published(ctx context.Context, p *models.Portfolio, previousSlug string)
	Unpublished(ctx context.Context, p *models.Portfolio)
	VisibilityChanged(ctx context.Context, p *models.Portfolio)
}

// Service runs publish transitions on single portfolio records.
type Service struct {
	store          Store
	distributor    Distributor
	metrics        *metrics.Recorder
	cooldownMonths int
	now            func() time.Time
	baseURL        string
}

// Option configures a Service.
type Option func(*Service)

// WithDistributor sets the post-transition distributor.
func WithDistributor(d Distributor) Option {
	return func(s *Service) { s.distributor = d }
}

// WithMetrics records transition outcomes on m.
func WithMetrics(m *metrics.Recorder) Option {
	return func(s *Service) { s.metrics = m }
}

// WithCooldownMonths sets the slug change cooldown. Zero disables it.
func WithCooldownMonths(months int) Option {
	return func(s *Service) { s.cooldownMonths = months }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithBaseURL sets the origin used to build public URLs.
func WithBaseURL(u string) Option {
	return func(s *Service) { s.baseURL = strings.TrimRight(u, "/") }
}

// New creates a Service.
func New(st Store, opts ...Option) *Service {
	s := &Service{
		store:          st,
		cooldownMonths: DefaultCooldownMonths,
		now:            time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Input is a publish request.
type Input struct {
	Slug string
	// Visibility is optional. When empty, a private record becomes
	// public and any other visibility is kept.
	Visibility models.Visibility
}

// Result is a successful publish.
type Result struct {
	Portfolio *models.Portfolio
	PublicURL string
}

// Availability is the answer of a slug pre-check.
type Availability struct {
	Slug      string `json:"slug"`
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

// Now returns the service clock's current time.
func (s *Service) Now() time.Time {
	return s.now()
}

// PublicURL returns the public address of a slug.
func (s *Service) PublicURL(slug string) string {
	return s.baseURL + "/p/" + slug
}

// Publish freezes the current generated artifact under the requested slug.
// Legal from Generated, Unpublished and Published (re-publish).
func (s *Service) Publish(ctx context.Context, ownerID, id uuid.UUID, in Input) (*Result, error) {
	res, err := s.publish(ctx, ownerID, id, in)
	s.metrics.IncTransition("publish", outcome(err))
	return res, err
}

func (s *Service) publish(ctx context.Context, ownerID, id uuid.UUID, in Input) (*Result, error) {
	p, err := s.load(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if !p.HasGenerated() {
		return nil, ErrNothingToPublish
	}

	newSlug, err := slug.NormalizeAndValidate(in.Slug)
	if err != nil {
		return nil, err
	}

	visibility, err := resolveVisibility(in.Visibility, p.Visibility)
	if err != nil {
		return nil, err
	}

	now := s.now()
	current := p.Slug()
	changing := current != newSlug

	if changing && current != "" {
		if err := s.checkCooldown(p, now); err != nil {
			return nil, err
		}
	}

	if changing {
		holder, err := s.store.FindBySlug(ctx, newSlug)
		if err != nil {
			return nil, fmt.Errorf("check slug: %w", err)
		}
		if holder != nil && holder.ID != p.ID {
			return nil, ErrSlugConflict
		}
	}

	updated, err := s.store.Publish(ctx, store.PublishParams{
		ID:              p.ID,
		ExpectedSlug:    p.PublicSlug,
		Slug:            newSlug,
		Visibility:      visibility,
		StampSlugChange: changing,
		CountSlugChange: changing && current != "",
		Now:             now,
	})
	switch {
	case errors.Is(err, store.ErrSlugTaken):
		return nil, ErrSlugConflict
	case errors.Is(err, store.ErrStaleRecord):
		return nil, ErrConcurrentUpdate
	case err != nil:
		return nil, err
	}

	slog.Info("portfolio published",
		"id", updated.ID,
		"slug", newSlug,
		"previous_slug", current,
		"visibility", updated.Visibility,
	)
	if s.distributor != nil {
		s.distributor.Published(ctx, updated, current)
	}

	return &Result{Portfolio: updated, PublicURL: s.PublicURL(newSlug)}, nil
}

// Unpublish takes a published portfolio offline, keeping its slug and
// artifacts.
func (s *Service) Unpublish(ctx context.Context, ownerID, id uuid.UUID) (*models.Portfolio, error) {
	p, err := s.unpublish(ctx, ownerID, id)
	s.metrics.IncTransition("unpublish", outcome(err))
	return p, err
}

func (s *Service) unpublish(ctx context.Context, ownerID, id uuid.UUID) (*models.Portfolio, error) {
	p, err := s.load(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if !p.IsPublished {
		return nil, ErrNotPublished
	}

	updated, err := s.store.Unpublish(ctx, p.ID)
	if errors.Is(err, store.ErrStaleRecord) {
		// Someone else unpublished it between our read and write.
		return nil, ErrNotPublished
	}
	if err != nil {
		return nil, err
	}

	slog.Info("portfolio unpublished", "id", updated.ID, "slug", updated.Slug())
	if s.distributor != nil {
		s.distributor.Unpublished(ctx, updated)
	}
	return updated, nil
}

// SetVisibility changes who may view the portfolio.
func (s *Service) SetVisibility(ctx context.Context, ownerID, id uuid.UUID, v models.Visibility) (*models.Portfolio, error) {
	p, err := s.setVisibility(ctx, ownerID, id, v)
	s.metrics.IncTransition("visibility", outcome(err))
	return p, err
}

func (s *Service) setVisibility(ctx context.Context, ownerID, id uuid.UUID, v models.Visibility) (*models.Portfolio, error) {
	if !v.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidVisibility, v)
	}
	p, err := s.load(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if p.Visibility == v {
		return p, nil
	}

	updated, err := s.store.SetVisibility(ctx, p.ID, v)
	if errors.Is(err, store.ErrStaleRecord) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	slog.Info("portfolio visibility changed", "id", updated.ID, "from", p.Visibility, "to", v)
	if s.distributor != nil {
		s.distributor.VisibilityChanged(ctx, updated)
	}
	return updated, nil
}

// CheckAvailability reports whether candidate could be published for the
// portfolio forID (uuid.Nil for none). It is advisory only; Publish may
// still lose a race for the same slug.
func (s *Service) CheckAvailability(ctx context.Context, candidate string, forID uuid.UUID) (Availability, error) {
	normalized, err := slug.NormalizeAndValidate(candidate)
	if err != nil {
		return Availability{Slug: normalized, Available: false, Reason: err.Error()}, nil
	}

	holder, err := s.store.FindBySlug(ctx, normalized)
	if err != nil {
		return Availability{}, fmt.Errorf("check slug: %w", err)
	}
	if holder != nil && holder.ID != forID {
		return Availability{Slug: normalized, Available: false, Reason: ErrSlugConflict.Error()}, nil
	}
	return Availability{Slug: normalized, Available: true}, nil
}

// load fetches a portfolio and checks ownership.
func (s *Service) load(ctx context.Context, ownerID, id uuid.UUID) (*models.Portfolio, error) {
	p, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load portfolio: %w", err)
	}
	if p == nil {
		return nil, ErrNotFound
	}
	if p.OwnerID != ownerID {
		return nil, ErrOwnership
	}
	return p, nil
}

// checkCooldown fails if the last slug change is younger than the
// cooldown window. The window is in calendar months.
func (s *Service) checkCooldown(p *models.Portfolio, now time.Time) error {
	if s.cooldownMonths <= 0 || p.SlugLastChangedAt == nil {
		return nil
	}
	until := p.SlugLastChangedAt.AddDate(0, s.cooldownMonths, 0)
	if now.Before(until) {
		return &CooldownError{Until: until}
	}
	return nil
}

func resolveVisibility(requested, current models.Visibility) (models.Visibility, error) {
	if requested != "" {
		if !requested.Valid() {
			return "", fmt.Errorf("%w: %q", ErrInvalidVisibility, requested)
		}
		return requested, nil
	}
	if current == "" || current == models.VisibilityPrivate {
		return models.VisibilityPublic, nil
	}
	return current, nil
}
