// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"devfolio/internal/models"
)

// PortfolioStore handles all portfolio-related database operations. The
// portfolios table carries a UNIQUE constraint on public_slug; writes that
// violate it return ErrSlugTaken.
type PortfolioStore struct {
	db *sql.DB
}

// NewPortfolioStore creates a new PortfolioStore with the given database connection.
func NewPortfolioStore(db *sql.DB) *PortfolioStore {
	return &PortfolioStore{db: db}
}

const portfolioColumns = `id, owner_id, template_id, title, source_account,
	generated_html, published_html, is_published, public_slug,
	slug_last_changed_at, slug_change_count, visibility, published_at,
	created_at, updated_at`

func scanPortfolio(row interface{ Scan(...any) error }, p *models.Portfolio) error {
	return row.Scan(
		&p.ID, &p.OwnerID, &p.TemplateID, &p.Title, &p.SourceAccount,
		&p.GeneratedHTML, &p.PublishedHTML, &p.IsPublished, &p.PublicSlug,
		&p.SlugLastChangedAt, &p.SlugChangeCount, &p.Visibility, &p.PublishedAt,
		&p.CreatedAt, &p.UpdatedAt,
	)
}

// findOne runs a single-row query. Returns nil if no row matched.
func (s *PortfolioStore) findOne(ctx context.Context, op, query string, args ...any) (*models.Portfolio, error) {
	p := &models.Portfolio{}
	err := scanPortfolio(s.db.QueryRowContext(ctx, query, args...), p)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// FindByID retrieves a portfolio by its UUID. Returns nil if not found.
func (s *PortfolioStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Portfolio, error) {
	return s.findOne(ctx, "find portfolio by id", `
		SELECT `+portfolioColumns+` FROM portfolios WHERE id = $1
	`, id)
}

// FindBySlug retrieves the portfolio holding a slug, published or not.
// Used for the optimistic availability check. Returns nil if free.
func (s *PortfolioStore) FindBySlug(ctx context.Context, slug string) (*models.Portfolio, error) {
	return s.findOne(ctx, "find portfolio by slug", `
		SELECT `+portfolioColumns+` FROM portfolios WHERE public_slug = $1
	`, slug)
}

// FindPublishedBySlug retrieves a servable portfolio by slug: published
// and not private. Used by the public artifact server.
func (s *PortfolioStore) FindPublishedBySlug(ctx context.Context, slug string) (*models.Portfolio, error) {
	return s.findOne(ctx, "find published portfolio", `
		SELECT `+portfolioColumns+` FROM portfolios
		WHERE public_slug = $1 AND is_published = TRUE AND visibility <> 'private'
	`, slug)
}

// ListByOwner returns all portfolios of an owner, newest first.
func (s *PortfolioStore) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Portfolio, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+portfolioColumns+`
		FROM portfolios
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list portfolios: %w", err)
	}
	defer rows.Close()

	var items []models.Portfolio
	for rows.Next() {
		var p models.Portfolio
		if err := scanPortfolio(rows, &p); err != nil {
			return nil, fmt.Errorf("scan portfolio: %w", err)
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

// Create inserts a new portfolio and returns it with the generated ID.
// New portfolios are never published and start private.
func (s *PortfolioStore) Create(ctx context.Context, p *models.Portfolio) (*models.Portfolio, error) {
	visibility := p.Visibility
	if visibility == "" {
		visibility = models.VisibilityPrivate
	}

	result := &models.Portfolio{}
	err := scanPortfolio(s.db.QueryRowContext(ctx, `
		INSERT INTO portfolios (owner_id, template_id, title, source_account, generated_html, visibility)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+portfolioColumns+`
	`, p.OwnerID, p.TemplateID, p.Title, p.SourceAccount, p.GeneratedHTML, visibility), result)
	if err != nil {
		return nil, fmt.Errorf("create portfolio: %w", err)
	}
	return result, nil
}

// GeneratedUpdate replaces the generated artifact of a portfolio.
type GeneratedUpdate struct {
	ID            uuid.UUID
	TemplateID    uuid.UUID
	Title         string
	SourceAccount string
	HTML          string
}

// UpdateGenerated replaces the generated artifact. The published artifact
// is left untouched.
func (s *PortfolioStore) UpdateGenerated(ctx context.Context, u GeneratedUpdate) (*models.Portfolio, error) {
	p, err := s.findOne(ctx, "update generated artifact", `
		UPDATE portfolios SET
			template_id = $2, title = $3, source_account = $4,
			generated_html = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING `+portfolioColumns+`
	`, u.ID, u.TemplateID, u.Title, u.SourceAccount, u.HTML)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrStaleRecord
	}
	return p, nil
}

// PublishParams describes a publish write.
type PublishParams struct {
	ID uuid.UUID
	// ExpectedSlug is the slug read before the write; the update only
	// applies if the row still holds it.
	ExpectedSlug *string
	Slug         string
	Visibility   models.Visibility
	// StampSlugChange sets slug_last_changed_at to Now (first assignment
	// or a change).
	StampSlugChange bool
	// CountSlugChange increments slug_change_count (change of an existing slug).
	CountSlugChange bool
	Now             time.Time
}

// Publish freezes the current generated artifact into the published
// artifact and binds the slug in one guarded UPDATE. The database copies
// generated_html itself, so the frozen copy is exactly what was stored at
// write time. Returns ErrSlugTaken on a unique violation and
// ErrStaleRecord if the guard no longer matches.
func (s *PortfolioStore) Publish(ctx context.Context, pp PublishParams) (*models.Portfolio, error) {
	p := &models.Portfolio{}
	err := scanPortfolio(s.db.QueryRowContext(ctx, `
		UPDATE portfolios SET
			published_html = generated_html,
			is_published = TRUE,
			public_slug = $2,
			visibility = $3,
			published_at = $4,
			slug_last_changed_at = CASE WHEN $5::boolean THEN $4 ELSE slug_last_changed_at END,
			slug_change_count = slug_change_count + CASE WHEN $6::boolean THEN 1 ELSE 0 END,
			updated_at = NOW()
		WHERE id = $1
		  AND public_slug IS NOT DISTINCT FROM $7
		  AND generated_html IS NOT NULL AND generated_html <> ''
		RETURNING `+portfolioColumns+`
	`, pp.ID, pp.Slug, pp.Visibility, pp.Now, pp.StampSlugChange, pp.CountSlugChange, pp.ExpectedSlug), p)
	if isSlugViolation(err) {
		return nil, ErrSlugTaken
	}
	if err == sql.ErrNoRows {
		return nil, ErrStaleRecord
	}
	if err != nil {
		return nil, fmt.Errorf("publish portfolio: %w", err)
	}
	return p, nil
}

// Unpublish clears is_published, keeping slug and artifacts. Returns
// ErrStaleRecord if the portfolio was not published at write time.
func (s *PortfolioStore) Unpublish(ctx context.Context, id uuid.UUID) (*models.Portfolio, error) {
	p, err := s.findOne(ctx, "unpublish portfolio", `
		UPDATE portfolios SET is_published = FALSE, updated_at = NOW()
		WHERE id = $1 AND is_published = TRUE
		RETURNING `+portfolioColumns+`
	`, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrStaleRecord
	}
	return p, nil
}

// SetVisibility changes who may see the portfolio.
func (s *PortfolioStore) SetVisibility(ctx context.Context, id uuid.UUID, v models.Visibility) (*models.Portfolio, error) {
	p, err := s.findOne(ctx, "set portfolio visibility", `
		UPDATE portfolios SET visibility = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+portfolioColumns+`
	`, id, v)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrStaleRecord
	}
	return p, nil
}
