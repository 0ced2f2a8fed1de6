// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// Visibility controls who may see a published portfolio.
type Visibility string

const (
	VisibilityPrivate  Visibility = "private"
	VisibilityUnlisted Visibility = "unlisted"
	VisibilityPublic   Visibility = "public"
)

// Valid reports whether v is one of the known visibility values.
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPrivate, VisibilityUnlisted, VisibilityPublic:
		return true
	}
	return false
}

// PortfolioState is the lifecycle position of a portfolio record. It is
// derived from the stored columns, never persisted on its own.
type PortfolioState string

const (
	StateDraft       PortfolioState = "draft"
	StateGenerated   PortfolioState = "generated"
	StatePublished   PortfolioState = "published"
	StateUnpublished PortfolioState = "unpublished"
)

// Portfolio is a generated portfolio page owned by a single user. The
// generated artifact is replaced by every generation run; the published
// artifact is a frozen copy taken at publish time and only changes on an
// explicit re-publish.
type Portfolio struct {
	ID                uuid.UUID  `json:"id"`
	OwnerID           uuid.UUID  `json:"owner_id"`
	TemplateID        uuid.UUID  `json:"template_id"`
	Title             string     `json:"title"`
	SourceAccount     string     `json:"source_account"`
	GeneratedHTML     *string    `json:"-"`
	PublishedHTML     *string    `json:"-"`
	IsPublished       bool       `json:"is_published"`
	PublicSlug        *string    `json:"public_slug,omitempty"`
	SlugLastChangedAt *time.Time `json:"slug_last_changed_at,omitempty"`
	SlugChangeCount   int        `json:"slug_change_count"`
	Visibility        Visibility `json:"visibility"`
	PublishedAt       *time.Time `json:"published_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// HasGenerated returns true if a non-empty generated artifact exists.
func (p *Portfolio) HasGenerated() bool {
	return p.GeneratedHTML != nil && *p.GeneratedHTML != ""
}

// Slug returns the current public slug or an empty string.
func (p *Portfolio) Slug() string {
	if p.PublicSlug == nil {
		return ""
	}
	return *p.PublicSlug
}

// State derives the lifecycle state from the stored fields.
func (p *Portfolio) State() PortfolioState {
	switch {
	case p.IsPublished:
		return StatePublished
	case p.PublishedHTML != nil && p.PublicSlug != nil:
		return StateUnpublished
	case p.HasGenerated():
		return StateGenerated
	default:
		return StateDraft
	}
}

// IsServable reports whether the public server may hand out the frozen
// artifact: it must be published, frozen, and not private.
func (p *Portfolio) IsServable() bool {
	return p.IsPublished && p.PublishedHTML != nil && p.Visibility != VisibilityPrivate
}
