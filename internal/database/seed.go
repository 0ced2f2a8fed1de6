// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package database

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
)

//go:embed templates/default.html
var defaultTemplateHTML string

// DefaultTemplateName is the name of the template installed by Seed.
const DefaultTemplateName = "Classic"

// Seed installs the built-in default template if no templates exist, so
// generation works on a fresh database.
func Seed(ctx context.Context, db *sql.DB) error {
	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM templates").Scan(&count); err != nil {
		return fmt.Errorf("seed check templates: %w", err)
	}

	if count > 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO templates (name, description, html_content, is_default)
		VALUES ($1, $2, $3, TRUE)
	`, DefaultTemplateName, "Single page with profile header and project cards", defaultTemplateHTML)
	if err != nil {
		return fmt.Errorf("seed insert default template: %w", err)
	}

	slog.Info("database seeded with default template", "name", DefaultTemplateName)
	return nil
}
