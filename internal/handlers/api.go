// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"devfolio/internal/generate"
	"devfolio/internal/middleware"
	"devfolio/internal/models"
	"devfolio/internal/publish"
	"devfolio/internal/store"
)

// Generator is the generation pipeline as seen by the API.
type Generator interface {
	Generate(ctx context.Context, req generate.Request) (*generate.Result, error)
	Preview(ctx context.Context, source string, sel generate.Selection) (string, error)
	InvalidateSource(ctx context.Context, account string) error
}

// Publisher is the publish state machine as seen by the API.
type Publisher interface {
	Publish(ctx context.Context, ownerID, id uuid.UUID, in publish.Input) (*publish.Result, error)
	Unpublish(ctx context.Context, ownerID, id uuid.UUID) (*models.Portfolio, error)
	SetVisibility(ctx context.Context, ownerID, id uuid.UUID, v models.Visibility) (*models.Portfolio, error)
	CheckAvailability(ctx context.Context, candidate string, forID uuid.UUID) (publish.Availability, error)
	PublicURL(slug string) string
	Now() time.Time
}

// PortfolioReader loads portfolios for the read endpoints.
type PortfolioReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Portfolio, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Portfolio, error)
}

// TemplateReader lists stored templates.
type TemplateReader interface {
	List(ctx context.Context, ownerID uuid.UUID) ([]models.Template, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Template, error)
}

// CacheLogReader lists artifact invalidation events.
// *store.CacheLogStore implements it.
type CacheLogReader interface {
	RecentEntries(ctx context.Context, portfolioID uuid.UUID, limit int) ([]store.CacheLogEntry, error)
}

// API groups the JSON endpoints under /api. Every handler expects the
// owner ID in the request context (middleware.RequireOwner).
type API struct {
	generator  Generator
	publisher  Publisher
	portfolios PortfolioReader
	templates  TemplateReader
	cacheLog   CacheLogReader
}

// NewAPI creates the API handler group.
func NewAPI(gen Generator, pub Publisher, portfolios PortfolioReader, templates TemplateReader, cacheLog CacheLogReader) *API {
	return &API{
		generator:  gen,
		publisher:  pub,
		portfolios: portfolios,
		templates:  templates,
		cacheLog:   cacheLog,
	}
}

// Cache log page size.
const (
	defaultCacheLogLimit = 20
	maxCacheLogLimit     = 100
)

// --- Request and response shapes ---

type selectionFields struct {
	Account      string   `json:"account" validate:"omitempty,account"`
	Repositories []string `json:"repositories" validate:"max=100,dive,required,max=100"`
	IncludeForks bool     `json:"include_forks"`
	Limit        int      `json:"limit" validate:"gte=0,lte=100"`
	Title        string   `json:"title" validate:"max=200"`
	Refresh      bool     `json:"refresh"`
}

func (s selectionFields) selection() generate.Selection {
	return generate.Selection{
		Account:      s.Account,
		Repositories: s.Repositories,
		IncludeForks: s.IncludeForks,
		Limit:        s.Limit,
		Title:        s.Title,
		Refresh:      s.Refresh,
	}
}

type generateRequest struct {
	TemplateID  string `json:"template_id" validate:"omitempty,uuid"`
	PortfolioID string `json:"portfolio_id" validate:"omitempty,uuid"`
	selectionFields
}

type generateResponse struct {
	GeneratedArtifactID uuid.UUID      `json:"generated_artifact_id"`
	Created             bool           `json:"created"`
	Portfolio           *portfolioView `json:"portfolio"`
}

type publishRequest struct {
	Slug       string `json:"slug" validate:"required,max=200"`
	Visibility string `json:"visibility" validate:"omitempty,oneof=public unlisted private"`
}

type publishResponse struct {
	PublicURL string         `json:"public_url"`
	Slug      string         `json:"slug"`
	Portfolio *portfolioView `json:"portfolio"`
}

type visibilityRequest struct {
	Visibility string `json:"visibility" validate:"required,oneof=public unlisted private"`
}

type previewRequest struct {
	Source     string `json:"source" validate:"required_without=TemplateID,max=500000"`
	TemplateID string `json:"template_id" validate:"omitempty,uuid"`
	selectionFields
}

// portfolioView adds derived fields to the stored record.
type portfolioView struct {
	*models.Portfolio
	State     models.PortfolioState `json:"state"`
	PublicURL string                `json:"public_url,omitempty"`
}

type templateSummary struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Version     int       `json:"version"`
	IsDefault   bool      `json:"is_default"`
	Shared      bool      `json:"shared"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (a *API) view(p *models.Portfolio) *portfolioView {
	v := &portfolioView{Portfolio: p, State: p.State()}
	if p.IsPublished && p.PublicSlug != nil {
		v.PublicURL = a.publisher.PublicURL(*p.PublicSlug)
	}
	return v
}

// --- Handlers ---

// Generate runs the generation pipeline and stores the generated artifact.
// 201 for a new portfolio, 200 when an existing one was regenerated.
func (a *API) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	res, err := a.generator.Generate(r.Context(), generate.Request{
		OwnerID:     a.owner(r),
		TemplateID:  parseOptionalUUID(req.TemplateID),
		PortfolioID: parseOptionalUUID(req.PortfolioID),
		Selection:   req.selection(),
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, generateResponse{
		GeneratedArtifactID: res.Portfolio.ID,
		Created:             res.Created,
		Portfolio:           a.view(res.Portfolio),
	})
}

// Publish freezes the generated artifact under the requested slug.
func (a *API) Publish(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r)
	if !ok {
		return
	}
	var req publishRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	res, err := a.publisher.Publish(r.Context(), a.owner(r), id, publish.Input{
		Slug:       req.Slug,
		Visibility: models.Visibility(req.Visibility),
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, publishResponse{
		PublicURL: res.PublicURL,
		Slug:      res.Portfolio.Slug(),
		Portfolio: a.view(res.Portfolio),
	})
}

// Unpublish takes a published portfolio offline, keeping its slug.
func (a *API) Unpublish(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r)
	if !ok {
		return
	}
	if _, err := a.publisher.Unpublish(r.Context(), a.owner(r), id); err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// SetVisibility changes who may see the portfolio.
func (a *API) SetVisibility(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r)
	if !ok {
		return
	}
	var req visibilityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	p, err := a.publisher.SetVisibility(r.Context(), a.owner(r), id, models.Visibility(req.Visibility))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a.view(p))
}

// ListPortfolios returns the caller's portfolios, newest first.
func (a *API) ListPortfolios(w http.ResponseWriter, r *http.Request) {
	items, err := a.portfolios.ListByOwner(r.Context(), a.owner(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	views := make([]*portfolioView, 0, len(items))
	for i := range items {
		views = append(views, a.view(&items[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"portfolios": views})
}

// GetPortfolio returns one of the caller's portfolios.
func (a *API) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	p, ok := a.ownedPortfolio(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, a.view(p))
}

// GeneratedArtifact serves the current generated HTML of a portfolio so
// the owner can review it before publishing.
func (a *API) GeneratedArtifact(w http.ResponseWriter, r *http.Request) {
	p, ok := a.ownedPortfolio(w, r)
	if !ok {
		return
	}
	if !p.HasGenerated() {
		a.fail(w, r, publish.ErrNothingToPublish)
		return
	}
	writeHTML(w, http.StatusOK, []byte(*p.GeneratedHTML))
}

// CacheLog lists the most recent invalidations of a portfolio's public
// page, newest first.
func (a *API) CacheLog(w http.ResponseWriter, r *http.Request) {
	p, ok := a.ownedPortfolio(w, r)
	if !ok {
		return
	}
	limit := defaultCacheLogLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxCacheLogLimit {
			a.fail(w, r, badRequest(fmt.Sprintf("limit must be between 1 and %d", maxCacheLogLimit)))
			return
		}
		limit = n
	}
	entries, err := a.cacheLog.RecentEntries(r.Context(), p.ID, limit)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if entries == nil {
		entries = []store.CacheLogEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// CheckAvailability answers whether a slug could be published. The
// publish call remains the authoritative check.
func (a *API) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	var forID uuid.UUID
	if raw := r.URL.Query().Get("portfolio_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			a.fail(w, r, badRequest("portfolio_id must be a UUID"))
			return
		}
		forID = id
	}

	res, err := a.publisher.CheckAvailability(r.Context(), chi.URLParam(r, "slug"), forID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ListTemplates returns template metadata without the HTML bodies.
func (a *API) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := a.templates.List(r.Context(), a.owner(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	out := make([]templateSummary, 0, len(templates))
	for _, t := range templates {
		out = append(out, templateSummary{
			ID:          t.ID,
			Name:        t.Name,
			Description: t.Description,
			Version:     t.Version,
			IsDefault:   t.IsDefault,
			Shared:      t.OwnerID == nil,
			UpdatedAt:   t.UpdatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"templates": out})
}

// PreviewTemplate renders a template source, or a stored template, against
// live data for the given account or sample data. Nothing is stored.
func (a *API) PreviewTemplate(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	source := req.Source
	if source == "" {
		t, err := a.templates.FindByID(r.Context(), uuid.MustParse(req.TemplateID))
		if err != nil {
			a.fail(w, r, err)
			return
		}
		if t == nil {
			a.fail(w, r, store.ErrTemplateNotFound)
			return
		}
		if !t.UsableBy(a.owner(r)) {
			a.fail(w, r, errTemplateForbidden)
			return
		}
		source = t.HTMLContent
	}

	out, err := a.generator.Preview(r.Context(), source, req.selection())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeHTML(w, http.StatusOK, []byte(out))
}

// InvalidateSource drops cached provider data for an account so the next
// generation fetches fresh data.
func (a *API) InvalidateSource(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")
	if !validAccount(account) {
		a.fail(w, r, &requestError{status: http.StatusUnprocessableEntity, msg: "invalid account name"})
		return
	}
	if err := a.generator.InvalidateSource(r.Context(), account); err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- Helpers ---

func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, err, a.publisher.Now())
}

// owner returns the caller set by middleware.RequireOwner.
func (a *API) owner(r *http.Request) uuid.UUID {
	id, _ := middleware.OwnerID(r.Context())
	return id
}

// pathID parses the {id} URL parameter, answering 400 when malformed.
func (a *API) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, badRequest("portfolio id must be a UUID"))
		return uuid.Nil, false
	}
	return id, true
}

// ownedPortfolio loads the {id} portfolio and checks the caller owns it.
func (a *API) ownedPortfolio(w http.ResponseWriter, r *http.Request) (*models.Portfolio, bool) {
	id, ok := a.pathID(w, r)
	if !ok {
		return nil, false
	}
	p, err := a.portfolios.FindByID(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return nil, false
	}
	if p == nil {
		a.fail(w, r, publish.ErrNotFound)
		return nil, false
	}
	if p.OwnerID != a.owner(r) {
		a.fail(w, r, publish.ErrOwnership)
		return nil, false
	}
	return p, true
}

// parseOptionalUUID returns uuid.Nil for an empty string. Inputs are
// already validated.
func parseOptionalUUID(s string) uuid.UUID {
	if s == "" {
		return uuid.Nil
	}
	id, _ := uuid.Parse(s)
	return id
}

func writeHTML(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(body)
}
