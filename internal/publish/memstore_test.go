// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package publish

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"devfolio/internal/models"
	"devfolio/internal/store"
)

// memStore mirrors the PostgreSQL store semantics in memory: the slug
// index plays the unique constraint and Publish applies the same guard.
type memStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]*models.Portfolio
	slugs   map[string]uuid.UUID

	// beforePublish runs inside Publish before the lock is taken, to
	// interleave a competing writer.
	beforePublish func()
}

func newMemStore() *memStore {
	return &memStore{
		records: make(map[uuid.UUID]*models.Portfolio),
		slugs:   make(map[string]uuid.UUID),
	}
}

func clone(p *models.Portfolio) *models.Portfolio {
	c := *p
	return &c
}

func (m *memStore) add(p *models.Portfolio) *models.Portfolio {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Visibility == "" {
		p.Visibility = models.VisibilityPrivate
	}
	m.records[p.ID] = clone(p)
	if p.PublicSlug != nil {
		m.slugs[*p.PublicSlug] = p.ID
	}
	return p
}

func (m *memStore) get(id uuid.UUID) *models.Portfolio {
	m.mu.Lock()
	defer m.mu.Unlock()
	return clone(m.records[id])
}

func (m *memStore) FindByID(_ context.Context, id uuid.UUID) (*models.Portfolio, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.records[id]
	if !ok {
		return nil, nil
	}
	return clone(p), nil
}

func (m *memStore) FindBySlug(_ context.Context, slug string) (*models.Portfolio, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.slugs[slug]
	if !ok {
		return nil, nil
	}
	return clone(m.records[id]), nil
}

func (m *memStore) Publish(_ context.Context, pp store.PublishParams) (*models.Portfolio, error) {
	if m.beforePublish != nil {
		m.beforePublish()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.records[pp.ID]
	if !ok || !sameSlug(p.PublicSlug, pp.ExpectedSlug) || !p.HasGenerated() {
		return nil, store.ErrStaleRecord
	}
	if holder, taken := m.slugs[pp.Slug]; taken && holder != p.ID {
		return nil, store.ErrSlugTaken
	}

	if p.PublicSlug != nil {
		delete(m.slugs, *p.PublicSlug)
	}
	m.slugs[pp.Slug] = p.ID

	frozen := *p.GeneratedHTML
	slug := pp.Slug
	now := pp.Now
	p.PublishedHTML = &frozen
	p.IsPublished = true
	p.PublicSlug = &slug
	p.Visibility = pp.Visibility
	p.PublishedAt = &now
	if pp.StampSlugChange {
		p.SlugLastChangedAt = &now
	}
	if pp.CountSlugChange {
		p.SlugChangeCount++
	}
	p.UpdatedAt = time.Now()
	return clone(p), nil
}

func (m *memStore) Unpublish(_ context.Context, id uuid.UUID) (*models.Portfolio, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.records[id]
	if !ok || !p.IsPublished {
		return nil, store.ErrStaleRecord
	}
	p.IsPublished = false
	return clone(p), nil
}

func (m *memStore) SetVisibility(_ context.Context, id uuid.UUID, v models.Visibility) (*models.Portfolio, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.records[id]
	if !ok {
		return nil, store.ErrStaleRecord
	}
	p.Visibility = v
	return clone(p), nil
}

func sameSlug(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// spyDistributor records notifications.
type spyDistributor struct {
	mu          sync.Mutex
	published   []string
	previous    []string
	unpublished []string
	visibility  []models.Visibility
}

func (d *spyDistributor) Published(_ context.Context, p *models.Portfolio, previous string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.published = append(d.published, p.Slug())
	d.previous = append(d.previous, previous)
}

func (d *spyDistributor) Unpublished(_ context.Context, p *models.Portfolio) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.unpublished = append(d.unpublished, p.Slug())
}

func (d *spyDistributor) VisibilityChanged(_ context.Context, p *models.Portfolio) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.visibility = append(d.visibility, p.Visibility)
}
