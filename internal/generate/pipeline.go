// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package generate implements the generation pipeline: fetch provider
// data (through an explicit cache), build the render context, render the
// template and persist the generated artifact. Rendering always finishes
// before anything is written.
package generate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"devfolio/internal/engine"
	"devfolio/internal/metrics"
	"devfolio/internal/models"
	"devfolio/internal/store"
)

// Provider fetches profile and repository data for an account. Any
// error fails the whole fetch.
type Provider interface {
	Fetch(ctx context.Context, account string) (*models.SourceData, error)
}

// SourceCache holds provider data between generations.
// *cache.SourceCache implements it.
type SourceCache interface {
	Get(ctx context.Context, account string) (*models.SourceData, bool, error)
	Set(ctx context.Context, account string, data *models.SourceData) error
	Invalidate(ctx context.Context, account string) error
}

// Renderer renders stored and ad-hoc templates. *engine.Engine implements it.
type Renderer interface {
	RenderTemplate(ctx context.Context, templateID uuid.UUID, rc engine.RenderContext) (string, error)
	Preview(source string, rc engine.RenderContext) (string, error)
}

// Store persists generated artifacts. *store.PortfolioStore implements it.
type Store interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Portfolio, error)
	Create(ctx context.Context, p *models.Portfolio) (*models.Portfolio, error)
	UpdateGenerated(ctx context.Context, u store.GeneratedUpdate) (*models.Portfolio, error)
}

// Templates resolves the default template and checks who may use a
// template. *store.TemplateStore implements it.
type Templates interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Template, error)
	FindDefault(ctx context.Context) (*models.Template, error)
}

// Pipeline runs generations.
type Pipeline struct {
	provider     Provider
	cache        SourceCache
	renderer     Renderer
	store        Store
	templates    Templates
	metrics      *metrics.Recorder
	fetchTimeout time.Duration
	now          func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithCache reuses provider data through c.
func WithCache(c SourceCache) Option {
	return func(p *Pipeline) { p.cache = c }
}

// WithTemplates enables falling back to the default template and
// rejects templates owned by someone else.
func WithTemplates(t Templates) Option {
	return func(p *Pipeline) { p.templates = t }
}

// WithMetrics records generation outcomes and fetch durations.
func WithMetrics(m *metrics.Recorder) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithFetchTimeout bounds each provider fetch in addition to the
// provider's own client timeout.
func WithFetchTimeout(d time.Duration) Option {
	return func(p *Pipeline) { p.fetchTimeout = d }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New creates a Pipeline.
func New(provider Provider, renderer Renderer, st Store, opts ...Option) *Pipeline {
	p := &Pipeline{
		provider: provider,
		renderer: renderer,
		store:    st,
		now:      time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Request is one generation.
type Request struct {
	OwnerID uuid.UUID
	// TemplateID may be uuid.Nil to use the default template.
	TemplateID uuid.UUID
	// PortfolioID regenerates an existing portfolio when set.
	PortfolioID uuid.UUID
	Selection   Selection
}

// Result reports the stored portfolio.
type Result struct {
	Portfolio *models.Portfolio
	Created   bool
}

// Generate fetches, renders and persists. The returned portfolio ID is
// the generated artifact's identifier.
func (p *Pipeline) Generate(ctx context.Context, req Request) (*Result, error) {
	res, err := p.generate(ctx, req)
	p.metrics.IncGeneration(generationOutcome(err))
	return res, err
}

func (p *Pipeline) generate(ctx context.Context, req Request) (*Result, error) {
	account := strings.TrimSpace(req.Selection.Account)
	if account == "" {
		return nil, fmt.Errorf("%w: account is required", ErrInvalidSelection)
	}
	req.Selection.Account = account

	var existing *models.Portfolio
	if req.PortfolioID != uuid.Nil {
		var err error
		existing, err = p.store.FindByID(ctx, req.PortfolioID)
		if err != nil {
			return nil, fmt.Errorf("load portfolio: %w", err)
		}
		if existing == nil {
			return nil, ErrNotFound
		}
		if existing.OwnerID != req.OwnerID {
			return nil, ErrOwnership
		}
	}

	templateID := req.TemplateID
	if templateID == uuid.Nil && existing != nil {
		// Regeneration keeps the layout the owner picked.
		templateID = existing.TemplateID
	}
	templateID, err := p.resolveTemplate(ctx, req.OwnerID, templateID)
	if err != nil {
		return nil, err
	}

	data, err := p.source(ctx, account, req.Selection.Refresh)
	if err != nil {
		return nil, err
	}

	rc := BuildContext(data, req.Selection, p.now())
	html, err := p.renderer.RenderTemplate(ctx, templateID, rc)
	if err != nil {
		return nil, err
	}

	title, _ := rc.Fields[FieldTitle].(string)

	if existing != nil {
		updated, err := p.store.UpdateGenerated(ctx, store.GeneratedUpdate{
			ID:            existing.ID,
			TemplateID:    templateID,
			Title:         title,
			SourceAccount: account,
			HTML:          html,
		})
		if errors.Is(err, store.ErrStaleRecord) {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, err
		}
		slog.Info("portfolio regenerated", "id", updated.ID, "account", account, "template_id", templateID, "projects", len(rc.Projects))
		return &Result{Portfolio: updated}, nil
	}

	created, err := p.store.Create(ctx, &models.Portfolio{
		OwnerID:       req.OwnerID,
		TemplateID:    templateID,
		Title:         title,
		SourceAccount: account,
		GeneratedHTML: &html,
		Visibility:    models.VisibilityPrivate,
	})
	if err != nil {
		return nil, err
	}
	slog.Info("portfolio generated", "id", created.ID, "account", account, "template_id", templateID, "projects", len(rc.Projects))
	return &Result{Portfolio: created, Created: true}, nil
}

// Preview renders source against live data for sel.Account, or sample
// data when no account is given. Nothing is stored.
func (p *Pipeline) Preview(ctx context.Context, source string, sel Selection) (string, error) {
	data := SampleData()
	if account := strings.TrimSpace(sel.Account); account != "" {
		var err error
		if data, err = p.source(ctx, account, sel.Refresh); err != nil {
			return "", err
		}
	}
	return p.renderer.Preview(source, BuildContext(data, sel, p.now()))
}

// InvalidateSource drops cached provider data for an account.
func (p *Pipeline) InvalidateSource(ctx context.Context, account string) error {
	if p.cache == nil {
		return nil
	}
	return p.cache.Invalidate(ctx, strings.TrimSpace(account))
}

func (p *Pipeline) resolveTemplate(ctx context.Context, owner, id uuid.UUID) (uuid.UUID, error) {
	if id != uuid.Nil {
		if p.templates == nil {
			return id, nil
		}
		t, err := p.templates.FindByID(ctx, id)
		if err != nil {
			return uuid.Nil, fmt.Errorf("find template: %w", err)
		}
		// A missing template is reported by the renderer.
		if t != nil && !t.UsableBy(owner) {
			return uuid.Nil, ErrTemplateForbidden
		}
		return id, nil
	}
	if p.templates == nil {
		return uuid.Nil, ErrNoTemplate
	}
	def, err := p.templates.FindDefault(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("find default template: %w", err)
	}
	if def == nil {
		return uuid.Nil, ErrNoTemplate
	}
	return def.ID, nil
}

// source returns provider data, from the cache when possible. Cache
// failures fall through to the provider.
func (p *Pipeline) source(ctx context.Context, account string, refresh bool) (*models.SourceData, error) {
	if p.cache != nil {
		if refresh {
			if err := p.cache.Invalidate(ctx, account); err != nil {
				slog.Warn("source cache invalidate failed", "account", account, "error", err)
			}
		} else {
			data, ok, err := p.cache.Get(ctx, account)
			switch {
			case err != nil:
				slog.Warn("source cache get failed", "account", account, "error", err)
				p.metrics.IncProviderCache(metrics.ResultError)
			case ok:
				p.metrics.IncProviderCache(metrics.ResultHit)
				return data, nil
			default:
				p.metrics.IncProviderCache(metrics.ResultMiss)
			}
		}
	}

	data, err := p.fetch(ctx, account)
	if err != nil {
		return nil, err
	}

	if p.cache != nil {
		if err := p.cache.Set(ctx, account, data); err != nil {
			slog.Warn("source cache set failed", "account", account, "error", err)
		}
	}
	return data, nil
}

func (p *Pipeline) fetch(ctx context.Context, account string) (*models.SourceData, error) {
	if p.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.fetchTimeout)
		defer cancel()
	}

	start := time.Now()
	data, err := p.provider.Fetch(ctx, account)
	if err == nil && data == nil {
		err = errors.New("provider returned no data")
	}
	if err != nil {
		p.metrics.ObserveProviderFetch(metrics.ResultError, time.Since(start))
		slog.Warn("provider fetch failed", "account", account, "error", err)
		return nil, &UpstreamError{Account: account, Err: err}
	}
	p.metrics.ObserveProviderFetch(metrics.ResultSuccess, time.Since(start))
	return data, nil
}

func generationOutcome(err error) string {
	var re *engine.RenderError
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrUpstreamData):
		return "upstream_error"
	case errors.As(err, &re):
		return "render_error"
	case errors.Is(err, ErrInvalidSelection), errors.Is(err, ErrNoTemplate):
		return "invalid_request"
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrOwnership), errors.Is(err, ErrTemplateForbidden):
		return "rejected"
	default:
		return "error"
	}
}
