// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"devfolio/internal/models"
)

// TemplateStore handles all template-related database operations.
type TemplateStore struct {
	db *sql.DB
}

// NewTemplateStore creates a new TemplateStore with the given database connection.
func NewTemplateStore(db *sql.DB) *TemplateStore {
	return &TemplateStore{db: db}
}

const templateColumns = `id, owner_id, name, description, html_content, version, is_default, created_at, updated_at`

func scanTemplate(row interface{ Scan(...any) error }, t *models.Template) error {
	return row.Scan(
		&t.ID, &t.OwnerID, &t.Name, &t.Description, &t.HTMLContent, &t.Version,
		&t.IsDefault, &t.CreatedAt, &t.UpdatedAt,
	)
}

// List returns the shared templates and those owned by ownerID, the
// default one first, then by name.
func (s *TemplateStore) List(ctx context.Context, ownerID uuid.UUID) ([]models.Template, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+templateColumns+`
		FROM templates
		WHERE owner_id IS NULL OR owner_id = $1
		ORDER BY is_default DESC, name
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var templates []models.Template
	for rows.Next() {
		var t models.Template
		if err := scanTemplate(rows, &t); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

// FindByID retrieves a template by its UUID. Returns nil if not found.
func (s *TemplateStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Template, error) {
	t := &models.Template{}
	err := scanTemplate(s.db.QueryRowContext(ctx, `
		SELECT `+templateColumns+` FROM templates WHERE id = $1
	`, id), t)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find template by id: %w", err)
	}
	return t, nil
}

// FindDefault returns the template used when a generation request does
// not name one. Returns nil if no default is set.
func (s *TemplateStore) FindDefault(ctx context.Context) (*models.Template, error) {
	t := &models.Template{}
	err := scanTemplate(s.db.QueryRowContext(ctx, `
		SELECT `+templateColumns+` FROM templates WHERE is_default = TRUE LIMIT 1
	`), t)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find default template: %w", err)
	}
	return t, nil
}

// Create inserts a new template. Does NOT make it the default. A nil
// OwnerID creates a shared template.
func (s *TemplateStore) Create(ctx context.Context, t *models.Template) (*models.Template, error) {
	result := &models.Template{}
	err := scanTemplate(s.db.QueryRowContext(ctx, `
		INSERT INTO templates (owner_id, name, description, html_content, version, is_default)
		VALUES ($1, $2, $3, $4, 1, FALSE)
		RETURNING `+templateColumns+`
	`, t.OwnerID, t.Name, t.Description, t.HTMLContent), result)
	if err != nil {
		return nil, fmt.Errorf("create template: %w", err)
	}
	return result, nil
}

// Update modifies a template and increments its version, which makes
// the engine's parsed-tree cache miss. Returns (nil, nil) when not found.
func (s *TemplateStore) Update(ctx context.Context, t *models.Template) (*models.Template, error) {
	result := &models.Template{}
	err := scanTemplate(s.db.QueryRowContext(ctx, `
		UPDATE templates SET
			name = $1, description = $2, html_content = $3,
			version = version + 1, updated_at = NOW()
		WHERE id = $4
		RETURNING `+templateColumns+`
	`, t.Name, t.Description, t.HTMLContent, t.ID), result)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update template: %w", err)
	}
	return result, nil
}

// SetDefault makes a shared template the default, clearing the flag on
// every other template. Owned templates cannot become the default.
func (s *TemplateStore) SetDefault(ctx context.Context, id uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var shared bool
	err = tx.QueryRowContext(ctx, `SELECT owner_id IS NULL FROM templates WHERE id = $1 FOR UPDATE`, id).Scan(&shared)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("set default template %s: %w", id, ErrTemplateNotFound)
	}
	if err != nil {
		return fmt.Errorf("load template: %w", err)
	}
	if !shared {
		return fmt.Errorf("set default template %s: %w", id, ErrOwnedTemplate)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE templates SET is_default = FALSE WHERE is_default = TRUE AND id <> $1`, id); err != nil {
		return fmt.Errorf("clear default template: %w", err)
	}

	res, err := tx.ExecContext(ctx, `UPDATE templates SET is_default = TRUE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("set default template: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("set default template %s: %w", id, ErrTemplateNotFound)
	}

	return tx.Commit()
}

// Delete removes a template by ID. The default template and templates
// still referenced by portfolios are kept.
func (s *TemplateStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM templates WHERE id = $1 AND is_default = FALSE`, id)
	if isForeignKeyViolation(err) {
		return fmt.Errorf("delete template %s: %w", id, ErrTemplateInUse)
	}
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	if n, _ := result.RowsAffected(); n > 0 {
		return nil
	}

	existing, err := s.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("delete template %s: %w", id, ErrTemplateNotFound)
	}
	return fmt.Errorf("delete template %s: %w", id, ErrDefaultTemplate)
}
