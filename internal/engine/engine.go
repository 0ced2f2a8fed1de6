// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package engine provides the placeholder template engine that turns a
// portfolio template and a render context into a static HTML document.
//
// Templates are scanned into a tree of TextNode, ScalarNode,
// ConditionalNode and LoopNode values and rendered by a tree walker, so
// nested blocks pair up correctly. Rendering is pure and safe for
// concurrent use.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"devfolio/internal/metrics"
	"devfolio/internal/models"
)

// TemplateSource loads stored templates by ID. It returns (nil, nil) when
// the template does not exist. Implemented by *store.TemplateStore.
type TemplateSource interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Template, error)
}

// Engine renders stored templates. It keeps an in-memory cache (L1) of
// parsed trees keyed by ID+version, so repeated generations skip the scan.
type Engine struct {
	templates TemplateSource
	cache     *treeCache
	strict    bool
	metrics   *metrics.Recorder
}

// Option configures an Engine.
type Option func(*Engine)

// WithStrict makes unknown placeholders fail loudly. Intended for
// development and test environments; production stays permissive.
func WithStrict(strict bool) Option {
	return func(e *Engine) { e.strict = strict }
}

// WithMetrics records render outcomes and durations.
func WithMetrics(m *metrics.Recorder) Option {
	return func(e *Engine) { e.metrics = m }
}

// New creates a new template engine with an empty L1 cache.
func New(templates TemplateSource, opts ...Option) *Engine {
	e := &Engine{
		templates: templates,
		cache:     newTreeCache(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// InvalidateTemplate removes a specific template from the L1 cache.
func (e *Engine) InvalidateTemplate(id string) {
	e.cache.invalidate(id)
}

// RenderTemplate loads the template by ID and renders it against rc.
// A missing template fails with ErrMissingSource.
func (e *Engine) RenderTemplate(ctx context.Context, templateID uuid.UUID, rc RenderContext) (string, error) {
	tmpl, err := e.templates.FindByID(ctx, templateID)
	if err != nil {
		return "", fmt.Errorf("load template: %w", err)
	}
	if tmpl == nil {
		return "", &RenderError{Kind: KindMissingSource, Pos: -1, Msg: "template " + templateID.String() + " not found"}
	}

	return e.render(tmpl.ID.String(), tmpl.Version, tmpl.HTMLContent, rc)
}

// Preview renders an ad-hoc template source. Not cached since preview
// sources are ephemeral.
func (e *Engine) Preview(source string, rc RenderContext) (string, error) {
	return e.render("", 0, source, rc)
}

// Validate parses source and reports syntax errors without rendering.
func (e *Engine) Validate(source string) error {
	_, err := Parse(source)
	return err
}

// render parses (or fetches from L1) and executes a template. If id is
// non-empty the parsed tree is cached.
func (e *Engine) render(id string, version int, source string, rc RenderContext) (string, error) {
	start := time.Now()

	var tree *Tree
	if id != "" {
		tree = e.cache.get(id, version)
	}

	if tree == nil {
		var err error
		tree, err = Parse(source)
		if err != nil {
			e.metrics.ObserveRender(metrics.ResultError, time.Since(start))
			return "", err
		}
		if id != "" {
			e.cache.put(id, version, tree)
		}
	}

	out, err := tree.Execute(rc, Options{Strict: e.strict})
	if err != nil {
		e.metrics.ObserveRender(metrics.ResultError, time.Since(start))
		slog.Warn("template render failed", "template_id", id, "error", err)
		return "", err
	}

	e.metrics.ObserveRender(metrics.ResultSuccess, time.Since(start))
	return out, nil
}
