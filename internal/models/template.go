// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// Template is a portfolio layout stored in the database. HTMLContent uses
// the placeholder syntax understood by the engine package ({{NAME}},
// {{#KEY}}...{{/KEY}}, {{#PROJECTS}}...{{/PROJECTS}}). Every content update
// bumps Version so compiled trees cached by the engine miss automatically.
// A nil OwnerID marks a shared template.
type Template struct {
	ID          uuid.UUID  `json:"id"`
	OwnerID     *uuid.UUID `json:"owner_id,omitempty"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	HTMLContent string     `json:"html_content"`
	Version     int        `json:"version"`
	IsDefault   bool       `json:"is_default"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// OwnedBy reports whether ownerID owns the template.
func (t *Template) OwnedBy(ownerID uuid.UUID) bool {
	return t.OwnerID != nil && *t.OwnerID == ownerID
}

// UsableBy reports whether ownerID may render with the template.
func (t *Template) UsableBy(ownerID uuid.UUID) bool {
	return t.OwnerID == nil || *t.OwnerID == ownerID
}
