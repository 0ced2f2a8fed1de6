// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrSlugTaken is returned when a write violates the unique constraint
	// on portfolios.public_slug. It is the authoritative conflict signal.
	ErrSlugTaken = errors.New("public slug already taken")

	// ErrStaleRecord is returned when a guarded update matched no row
	// because the record changed between read and write.
	ErrStaleRecord = errors.New("record changed concurrently")

	ErrTemplateNotFound = errors.New("template not found")
	// ErrDefaultTemplate is returned when deleting the default template.
	ErrDefaultTemplate = errors.New("default template cannot be deleted")
	// ErrTemplateInUse is returned when deleting a template that
	// portfolios still reference.
	ErrTemplateInUse = errors.New("template is used by portfolios")
	// ErrOwnedTemplate is returned when an owner's private template is
	// made the default.
	ErrOwnedTemplate = errors.New("only shared templates can be the default")
)

const (
	uniqueViolation      = "23505"
	foreignKeyViolation  = "23503"
	publicSlugConstraint = "portfolios_public_slug_key"
)

// isSlugViolation reports whether err is a unique violation on the
// public slug constraint.
func isSlugViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == uniqueViolation && pgErr.ConstraintName == publicSlugConstraint
}

// isForeignKeyViolation reports whether err is a foreign key violation.
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation
}
