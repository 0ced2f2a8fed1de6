// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"devfolio/internal/engine"
	"devfolio/internal/generate"
	"devfolio/internal/middleware"
	"devfolio/internal/models"
	"devfolio/internal/publish"
	"devfolio/internal/store"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// --- Fakes ---

type fakeGenerator struct {
	gotReq     generate.Request
	gotSource  string
	gotSel     generate.Selection
	invalidate string
	result     *generate.Result
	err        error
}

func (f *fakeGenerator) Generate(_ context.Context, req generate.Request) (*generate.Result, error) {
	f.gotReq = req
	return f.result, f.err
}

func (f *fakeGenerator) Preview(_ context.Context, source string, sel generate.Selection) (string, error) {
	f.gotSource = source
	f.gotSel = sel
	if f.err != nil {
		return "", f.err
	}
	return "<p>preview:" + source + "</p>", nil
}

func (f *fakeGenerator) InvalidateSource(_ context.Context, account string) error {
	f.invalidate = account
	return f.err
}

type fakePublisher struct {
	gotOwner uuid.UUID
	gotID    uuid.UUID
	gotIn    publish.Input
	gotVis   models.Visibility
	gotForID uuid.UUID
	gotSlug  string
	result   *models.Portfolio
	err      error
}

func (f *fakePublisher) Publish(_ context.Context, ownerID, id uuid.UUID, in publish.Input) (*publish.Result, error) {
	f.gotOwner, f.gotID, f.gotIn = ownerID, id, in
	if f.err != nil {
		return nil, f.err
	}
	return &publish.Result{Portfolio: f.result, PublicURL: f.PublicURL(f.result.Slug())}, nil
}

func (f *fakePublisher) Unpublish(_ context.Context, ownerID, id uuid.UUID) (*models.Portfolio, error) {
	f.gotOwner, f.gotID = ownerID, id
	return f.result, f.err
}

func (f *fakePublisher) SetVisibility(_ context.Context, ownerID, id uuid.UUID, v models.Visibility) (*models.Portfolio, error) {
	f.gotOwner, f.gotID, f.gotVis = ownerID, id, v
	return f.result, f.err
}

func (f *fakePublisher) CheckAvailability(_ context.Context, candidate string, forID uuid.UUID) (publish.Availability, error) {
	f.gotSlug, f.gotForID = candidate, forID
	if f.err != nil {
		return publish.Availability{}, f.err
	}
	return publish.Availability{Slug: strings.ToLower(candidate), Available: true}, nil
}

func (f *fakePublisher) PublicURL(slug string) string {
	return "https://folio.example.com/p/" + slug
}

func (f *fakePublisher) Now() time.Time { return testNow }

type memPortfolios struct {
	items map[uuid.UUID]*models.Portfolio
	err   error
}

func (m *memPortfolios) FindByID(_ context.Context, id uuid.UUID) (*models.Portfolio, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.items[id], nil
}

func (m *memPortfolios) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]models.Portfolio, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []models.Portfolio
	for _, p := range m.items {
		if p.OwnerID == ownerID {
			out = append(out, *p)
		}
	}
	return out, nil
}

type memTemplates struct {
	items []models.Template
}

func (m *memTemplates) List(_ context.Context, ownerID uuid.UUID) ([]models.Template, error) {
	var out []models.Template
	for _, t := range m.items {
		if t.UsableBy(ownerID) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memTemplates) FindByID(_ context.Context, id uuid.UUID) (*models.Template, error) {
	for i := range m.items {
		if m.items[i].ID == id {
			return &m.items[i], nil
		}
	}
	return nil, nil
}

func (m *memTemplates) Create(_ context.Context, t *models.Template) (*models.Template, error) {
	created := *t
	created.ID = uuid.New()
	created.Version = 1
	m.items = append(m.items, created)
	return &created, nil
}

func (m *memTemplates) Update(_ context.Context, t *models.Template) (*models.Template, error) {
	for i := range m.items {
		if m.items[i].ID == t.ID {
			m.items[i].Name = t.Name
			m.items[i].Description = t.Description
			m.items[i].HTMLContent = t.HTMLContent
			m.items[i].Version++
			updated := m.items[i]
			return &updated, nil
		}
	}
	return nil, nil
}

func (m *memTemplates) SetDefault(_ context.Context, id uuid.UUID) error {
	for _, t := range m.items {
		if t.ID == id && t.OwnerID != nil {
			return fmt.Errorf("set default template %s: %w", id, store.ErrOwnedTemplate)
		}
	}
	found := false
	for i := range m.items {
		m.items[i].IsDefault = m.items[i].ID == id
		found = found || m.items[i].ID == id
	}
	if !found {
		return fmt.Errorf("set default template %s: %w", id, store.ErrTemplateNotFound)
	}
	return nil
}

func (m *memTemplates) Delete(_ context.Context, id uuid.UUID) error {
	for i := range m.items {
		if m.items[i].ID != id {
			continue
		}
		if m.items[i].IsDefault {
			return fmt.Errorf("delete template %s: %w", id, store.ErrDefaultTemplate)
		}
		m.items = append(m.items[:i], m.items[i+1:]...)
		return nil
	}
	return fmt.Errorf("delete template %s: %w", id, store.ErrTemplateNotFound)
}

func ptr[T any](v T) *T { return &v }

// memCacheLog records the arguments of the last RecentEntries call.
type memCacheLog struct {
	entries  []store.CacheLogEntry
	gotID    uuid.UUID
	gotLimit int
}

func (m *memCacheLog) RecentEntries(_ context.Context, id uuid.UUID, limit int) ([]store.CacheLogEntry, error) {
	m.gotID, m.gotLimit = id, limit
	var out []store.CacheLogEntry
	for _, e := range m.entries {
		if e.PortfolioID == id && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

// --- Harness ---

type apiHarness struct {
	owner      uuid.UUID
	gen        *fakeGenerator
	pub        *fakePublisher
	portfolios *memPortfolios
	templates  *memTemplates
	cacheLog   *memCacheLog
	router     chi.Router
}

func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()
	h := &apiHarness{
		owner:      uuid.New(),
		gen:        &fakeGenerator{},
		pub:        &fakePublisher{},
		portfolios: &memPortfolios{items: map[uuid.UUID]*models.Portfolio{}},
		templates:  &memTemplates{},
		cacheLog:   &memCacheLog{},
	}
	api := NewAPI(h.gen, h.pub, h.portfolios, h.templates, h.cacheLog)

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RequireOwner)
		r.Post("/portfolios/generate", api.Generate)
		r.Get("/portfolios", api.ListPortfolios)
		r.Get("/portfolios/{id}", api.GetPortfolio)
		r.Get("/portfolios/{id}/generated", api.GeneratedArtifact)
		r.Get("/portfolios/{id}/cache-log", api.CacheLog)
		r.Post("/portfolios/{id}/publish", api.Publish)
		r.Post("/portfolios/{id}/unpublish", api.Unpublish)
		r.Put("/portfolios/{id}/visibility", api.SetVisibility)
		r.Get("/slugs/{slug}/availability", api.CheckAvailability)
		r.Get("/templates", api.ListTemplates)
		r.Post("/templates/preview", api.PreviewTemplate)
		r.Delete("/sources/{account}/cache", api.InvalidateSource)
	})
	h.router = r
	return h
}

func (h *apiHarness) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set(middleware.OwnerHeader, h.owner.String())
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.router.ServeHTTP(rr, req)
	return rr
}

func (h *apiHarness) addPortfolio(owner uuid.UUID, mutate func(*models.Portfolio)) *models.Portfolio {
	html := "<h1>Ada</h1>"
	p := &models.Portfolio{
		ID:            uuid.New(),
		OwnerID:       owner,
		TemplateID:    uuid.New(),
		Title:         "Ada",
		SourceAccount: "ada",
		GeneratedHTML: &html,
		Visibility:    models.VisibilityPrivate,
		CreatedAt:     testNow,
		UpdatedAt:     testNow,
	}
	if mutate != nil {
		mutate(p)
	}
	h.portfolios.items[p.ID] = p
	return p
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rr.Body.String())
	}
	return body
}

// --- Tests ---

func TestGenerate(t *testing.T) {
	t.Run("creates and returns the artifact id", func(t *testing.T) {
		h := newAPIHarness(t)
		p := h.addPortfolio(h.owner, nil)
		h.gen.result = &generate.Result{Portfolio: p, Created: true}
		tmpl := uuid.New()

		rr := h.do(t, http.MethodPost, "/api/portfolios/generate", `{
			"template_id": "`+tmpl.String()+`",
			"account": "ada",
			"repositories": ["engine", "notes"],
			"include_forks": true,
			"limit": 5,
			"title": "Ada's work",
			"refresh": true
		}`)

		if rr.Code != http.StatusCreated {
			t.Fatalf("status: got %d, want 201 (body %s)", rr.Code, rr.Body.String())
		}
		body := decodeBody(t, rr)
		if body["generated_artifact_id"] != p.ID.String() {
			t.Errorf("generated_artifact_id: got %v, want %s", body["generated_artifact_id"], p.ID)
		}

		got := h.gen.gotReq
		if got.OwnerID != h.owner || got.TemplateID != tmpl || got.PortfolioID != uuid.Nil {
			t.Errorf("request ids: %+v", got)
		}
		sel := got.Selection
		if sel.Account != "ada" || len(sel.Repositories) != 2 || !sel.IncludeForks || sel.Limit != 5 || sel.Title != "Ada's work" || !sel.Refresh {
			t.Errorf("selection not passed through: %+v", sel)
		}
	})

	t.Run("regenerate answers 200", func(t *testing.T) {
		h := newAPIHarness(t)
		p := h.addPortfolio(h.owner, nil)
		h.gen.result = &generate.Result{Portfolio: p}

		rr := h.do(t, http.MethodPost, "/api/portfolios/generate",
			`{"account":"ada","portfolio_id":"`+p.ID.String()+`"}`)

		if rr.Code != http.StatusOK {
			t.Fatalf("status: got %d, want 200", rr.Code)
		}
		if h.gen.gotReq.PortfolioID != p.ID || h.gen.gotReq.TemplateID != uuid.Nil {
			t.Errorf("ids: %+v", h.gen.gotReq)
		}
	})

	t.Run("rejects bad requests before the pipeline", func(t *testing.T) {
		tests := []struct {
			name   string
			body   string
			status int
		}{
			{"malformed json", `{"account":`, http.StatusBadRequest},
			{"empty body", ``, http.StatusBadRequest},
			{"unknown field", `{"account":"ada","colour":"red"}`, http.StatusBadRequest},
			{"two objects", `{"account":"ada"}{"account":"bob"}`, http.StatusBadRequest},
			{"bad template id", `{"account":"ada","template_id":"nope"}`, http.StatusUnprocessableEntity},
			{"bad account", `{"account":"-ada"}`, http.StatusUnprocessableEntity},
			{"limit too large", `{"account":"ada","limit":1000}`, http.StatusUnprocessableEntity},
			{"negative limit", `{"account":"ada","limit":-1}`, http.StatusUnprocessableEntity},
			{"empty repository name", `{"account":"ada","repositories":[""]}`, http.StatusUnprocessableEntity},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				h := newAPIHarness(t)
				h.gen.err = errors.New("pipeline must not run")

				rr := h.do(t, http.MethodPost, "/api/portfolios/generate", tt.body)
				if rr.Code != tt.status {
					t.Fatalf("status: got %d, want %d (body %s)", rr.Code, tt.status, rr.Body.String())
				}
				if h.gen.gotReq.Selection.Account != "" {
					t.Error("pipeline should not have been called")
				}
			})
		}
	})

	t.Run("validation details name the json field", func(t *testing.T) {
		h := newAPIHarness(t)
		rr := h.do(t, http.MethodPost, "/api/portfolios/generate", `{"account":"ada","limit":1000}`)

		body := decodeBody(t, rr)
		details, _ := body["details"].([]any)
		if len(details) != 1 || !strings.Contains(details[0].(string), "'limit'") {
			t.Errorf("details: got %v", body["details"])
		}
	})

	t.Run("missing account is rejected by the pipeline", func(t *testing.T) {
		h := newAPIHarness(t)
		h.gen.err = generate.ErrInvalidSelection

		rr := h.do(t, http.MethodPost, "/api/portfolios/generate", `{}`)
		if rr.Code != http.StatusUnprocessableEntity {
			t.Errorf("status: got %d, want 422", rr.Code)
		}
	})

	t.Run("requires an owner", func(t *testing.T) {
		h := newAPIHarness(t)
		req := httptest.NewRequest(http.MethodPost, "/api/portfolios/generate", strings.NewReader(`{"account":"ada"}`))
		rr := httptest.NewRecorder()
		h.router.ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("status: got %d, want 401", rr.Code)
		}
	})
}

func TestPublish(t *testing.T) {
	t.Run("returns public url and slug", func(t *testing.T) {
		h := newAPIHarness(t)
		p := h.addPortfolio(h.owner, func(p *models.Portfolio) {
			s := "ada-lovelace"
			p.PublicSlug = &s
			p.IsPublished = true
			p.PublishedHTML = p.GeneratedHTML
			p.Visibility = models.VisibilityPublic
		})
		h.pub.result = p

		rr := h.do(t, http.MethodPost, "/api/portfolios/"+p.ID.String()+"/publish",
			`{"slug":"Ada Lovelace","visibility":"public"}`)

		if rr.Code != http.StatusOK {
			t.Fatalf("status: got %d, want 200 (body %s)", rr.Code, rr.Body.String())
		}
		body := decodeBody(t, rr)
		if body["public_url"] != "https://folio.example.com/p/ada-lovelace" {
			t.Errorf("public_url: got %v", body["public_url"])
		}
		if body["slug"] != "ada-lovelace" {
			t.Errorf("slug: got %v", body["slug"])
		}
		portfolio, _ := body["portfolio"].(map[string]any)
		if portfolio["state"] != string(models.StatePublished) {
			t.Errorf("portfolio.state: got %v", portfolio["state"])
		}
		if _, leaked := portfolio["generated_html"]; leaked {
			t.Error("artifact html should not be part of the JSON view")
		}

		if h.pub.gotOwner != h.owner || h.pub.gotID != p.ID {
			t.Errorf("ids not passed through: owner=%s id=%s", h.pub.gotOwner, h.pub.gotID)
		}
		if h.pub.gotIn.Slug != "Ada Lovelace" || h.pub.gotIn.Visibility != models.VisibilityPublic {
			t.Errorf("input: got %+v", h.pub.gotIn)
		}
	})

	t.Run("visibility is optional", func(t *testing.T) {
		h := newAPIHarness(t)
		p := h.addPortfolio(h.owner, func(p *models.Portfolio) {
			s := "ada"
			p.PublicSlug = &s
		})
		h.pub.result = p

		rr := h.do(t, http.MethodPost, "/api/portfolios/"+p.ID.String()+"/publish", `{"slug":"ada"}`)
		if rr.Code != http.StatusOK {
			t.Fatalf("status: got %d, want 200", rr.Code)
		}
		if h.pub.gotIn.Visibility != "" {
			t.Errorf("visibility should be left to the service, got %q", h.pub.gotIn.Visibility)
		}
	})

	t.Run("request errors", func(t *testing.T) {
		tests := []struct {
			name   string
			path   string
			body   string
			status int
		}{
			{"bad id", "/api/portfolios/not-a-uuid/publish", `{"slug":"ada"}`, http.StatusBadRequest},
			{"missing slug", "/api/portfolios/" + uuid.NewString() + "/publish", `{}`, http.StatusUnprocessableEntity},
			{"bad visibility", "/api/portfolios/" + uuid.NewString() + "/publish", `{"slug":"ada","visibility":"secret"}`, http.StatusUnprocessableEntity},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				h := newAPIHarness(t)
				rr := h.do(t, http.MethodPost, tt.path, tt.body)
				if rr.Code != tt.status {
					t.Errorf("status: got %d, want %d", rr.Code, tt.status)
				}
			})
		}
	})

	t.Run("cooldown sets Retry-After", func(t *testing.T) {
		h := newAPIHarness(t)
		h.pub.err = &publish.CooldownError{Until: testNow.Add(36 * time.Hour)}

		rr := h.do(t, http.MethodPost, "/api/portfolios/"+uuid.NewString()+"/publish", `{"slug":"grace"}`)

		if rr.Code != http.StatusTooManyRequests {
			t.Fatalf("status: got %d, want 429", rr.Code)
		}
		if got := rr.Header().Get("Retry-After"); got != "129600" {
			t.Errorf("Retry-After: got %q, want 129600", got)
		}
		body := decodeBody(t, rr)
		if body["code"] != "cooldown_active" {
			t.Errorf("code: got %v", body["code"])
		}
		if body["retry_at"] != testNow.Add(36*time.Hour).Format(time.RFC3339) {
			t.Errorf("retry_at: got %v", body["retry_at"])
		}
	})
}

func TestUnpublish(t *testing.T) {
	h := newAPIHarness(t)
	id := uuid.New()
	h.pub.result = &models.Portfolio{ID: id}

	rr := h.do(t, http.MethodPost, "/api/portfolios/"+id.String()+"/unpublish", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if body := decodeBody(t, rr); body["status"] != "ok" {
		t.Errorf("status field: got %v", body["status"])
	}
	if h.pub.gotID != id || h.pub.gotOwner != h.owner {
		t.Error("ids not passed through")
	}

	h.pub.err = publish.ErrNotPublished
	rr = h.do(t, http.MethodPost, "/api/portfolios/"+id.String()+"/unpublish", "")
	if rr.Code != http.StatusConflict {
		t.Errorf("not published: got %d, want 409", rr.Code)
	}
}

func TestSetVisibility(t *testing.T) {
	h := newAPIHarness(t)
	p := h.addPortfolio(h.owner, func(p *models.Portfolio) { p.Visibility = models.VisibilityUnlisted })
	h.pub.result = p

	rr := h.do(t, http.MethodPut, "/api/portfolios/"+p.ID.String()+"/visibility", `{"visibility":"unlisted"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200 (body %s)", rr.Code, rr.Body.String())
	}
	if h.pub.gotVis != models.VisibilityUnlisted {
		t.Errorf("visibility: got %q", h.pub.gotVis)
	}
	if body := decodeBody(t, rr); body["visibility"] != "unlisted" {
		t.Errorf("response visibility: got %v", body["visibility"])
	}

	rr = h.do(t, http.MethodPut, "/api/portfolios/"+p.ID.String()+"/visibility", `{}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("missing visibility: got %d, want 422", rr.Code)
	}
}

func TestGetPortfolio(t *testing.T) {
	h := newAPIHarness(t)
	mine := h.addPortfolio(h.owner, nil)
	theirs := h.addPortfolio(uuid.New(), nil)

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"own portfolio", "/api/portfolios/" + mine.ID.String(), http.StatusOK},
		{"other owner", "/api/portfolios/" + theirs.ID.String(), http.StatusForbidden},
		{"unknown", "/api/portfolios/" + uuid.NewString(), http.StatusNotFound},
		{"bad id", "/api/portfolios/42", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := h.do(t, http.MethodGet, tt.path, "")
			if rr.Code != tt.status {
				t.Errorf("status: got %d, want %d", rr.Code, tt.status)
			}
		})
	}

	rr := h.do(t, http.MethodGet, "/api/portfolios/"+mine.ID.String(), "")
	body := decodeBody(t, rr)
	if body["state"] != string(models.StateGenerated) {
		t.Errorf("state: got %v, want generated", body["state"])
	}
	if _, ok := body["public_url"]; ok {
		t.Error("unpublished portfolio should not expose a public url")
	}
}

func TestCacheLog(t *testing.T) {
	h := newAPIHarness(t)
	mine := h.addPortfolio(h.owner, nil)
	theirs := h.addPortfolio(uuid.New(), nil)
	at := testNow.Add(-time.Hour)
	h.cacheLog.entries = []store.CacheLogEntry{
		{ID: 2, PortfolioID: mine.ID, CacheKey: "page:ada", Action: "unpublish", InvalidatedAt: at},
		{ID: 1, PortfolioID: mine.ID, CacheKey: "page:ada", Action: "publish", InvalidatedAt: at.Add(-time.Hour)},
		{ID: 3, PortfolioID: theirs.ID, CacheKey: "page:grace", Action: "publish", InvalidatedAt: at},
	}
	path := "/api/portfolios/" + mine.ID.String() + "/cache-log"

	rr := h.do(t, http.MethodGet, path, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	items, _ := decodeBody(t, rr)["entries"].([]any)
	if len(items) != 2 {
		t.Fatalf("got %d entries, want 2", len(items))
	}
	if first := items[0].(map[string]any); first["action"] != "unpublish" {
		t.Errorf("newest entry: %v", first)
	}
	if h.cacheLog.gotLimit != defaultCacheLogLimit {
		t.Errorf("limit: got %d, want %d", h.cacheLog.gotLimit, defaultCacheLogLimit)
	}

	rr = h.do(t, http.MethodGet, path+"?limit=1", "")
	if items, _ := decodeBody(t, rr)["entries"].([]any); len(items) != 1 {
		t.Errorf("limit=1: got %d entries", len(items))
	}

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"other owner", "/api/portfolios/" + theirs.ID.String() + "/cache-log", http.StatusForbidden},
		{"unknown", "/api/portfolios/" + uuid.NewString() + "/cache-log", http.StatusNotFound},
		{"zero limit", path + "?limit=0", http.StatusBadRequest},
		{"limit too large", path + "?limit=101", http.StatusBadRequest},
		{"non-numeric limit", path + "?limit=all", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rr := h.do(t, http.MethodGet, tt.path, ""); rr.Code != tt.status {
				t.Errorf("status: got %d, want %d", rr.Code, tt.status)
			}
		})
	}

	empty := h.addPortfolio(h.owner, nil)
	rr = h.do(t, http.MethodGet, "/api/portfolios/"+empty.ID.String()+"/cache-log", "")
	if !strings.Contains(rr.Body.String(), `"entries":[]`) {
		t.Errorf("no entries should encode as an empty list, got %s", rr.Body.String())
	}
}

func TestListPortfolios(t *testing.T) {
	h := newAPIHarness(t)
	h.addPortfolio(h.owner, nil)
	h.addPortfolio(h.owner, nil)
	h.addPortfolio(uuid.New(), nil)

	rr := h.do(t, http.MethodGet, "/api/portfolios", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	items, _ := decodeBody(t, rr)["portfolios"].([]any)
	if len(items) != 2 {
		t.Errorf("got %d portfolios, want 2", len(items))
	}
}

func TestListPortfoliosStoreError(t *testing.T) {
	h := newAPIHarness(t)
	h.portfolios.err = errors.New("connection refused")

	rr := h.do(t, http.MethodGet, "/api/portfolios", "")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d, want 500", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "connection refused") {
		t.Error("internal error detail should not leak to the client")
	}
}

func TestGeneratedArtifact(t *testing.T) {
	h := newAPIHarness(t)
	p := h.addPortfolio(h.owner, nil)
	empty := h.addPortfolio(h.owner, func(p *models.Portfolio) { p.GeneratedHTML = nil })

	rr := h.do(t, http.MethodGet, "/api/portfolios/"+p.ID.String()+"/generated", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if rr.Body.String() != "<h1>Ada</h1>" {
		t.Errorf("body: got %q", rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type: got %q", ct)
	}

	rr = h.do(t, http.MethodGet, "/api/portfolios/"+empty.ID.String()+"/generated", "")
	if rr.Code != http.StatusConflict {
		t.Errorf("no artifact: got %d, want 409", rr.Code)
	}
}

func TestCheckAvailability(t *testing.T) {
	h := newAPIHarness(t)
	forID := uuid.New()

	rr := h.do(t, http.MethodGet, "/api/slugs/Ada/availability?portfolio_id="+forID.String(), "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if h.pub.gotSlug != "Ada" || h.pub.gotForID != forID {
		t.Errorf("passed slug=%q forID=%s", h.pub.gotSlug, h.pub.gotForID)
	}
	body := decodeBody(t, rr)
	if body["available"] != true || body["slug"] != "ada" {
		t.Errorf("body: %v", body)
	}

	rr = h.do(t, http.MethodGet, "/api/slugs/ada/availability?portfolio_id=nope", "")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bad portfolio_id: got %d, want 400", rr.Code)
	}
}

func TestListTemplates(t *testing.T) {
	h := newAPIHarness(t)
	h.templates.items = []models.Template{
		{ID: uuid.New(), Name: "Classic", HTMLContent: "<html>big</html>", Version: 2, IsDefault: true},
		{ID: uuid.New(), Name: "Minimal", HTMLContent: "<html>small</html>", Version: 1, OwnerID: &h.owner},
		{ID: uuid.New(), Name: "Someone else's", HTMLContent: "<html>other</html>", Version: 1, OwnerID: ptr(uuid.New())},
	}

	rr := h.do(t, http.MethodGet, "/api/templates", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "html_content") {
		t.Error("listing should not include template bodies")
	}
	items, _ := decodeBody(t, rr)["templates"].([]any)
	if len(items) != 2 {
		t.Fatalf("got %d templates, want 2", len(items))
	}
	first := items[0].(map[string]any)
	if first["name"] != "Classic" || first["is_default"] != true || first["shared"] != true {
		t.Errorf("first template: %v", first)
	}
	if second := items[1].(map[string]any); second["name"] != "Minimal" || second["shared"] != false {
		t.Errorf("second template: %v", second)
	}
}

func TestPreviewTemplate(t *testing.T) {
	t.Run("inline source", func(t *testing.T) {
		h := newAPIHarness(t)
		rr := h.do(t, http.MethodPost, "/api/templates/preview", `{"source":"{{NAME}}","account":"ada","limit":3}`)

		if rr.Code != http.StatusOK {
			t.Fatalf("status: got %d, want 200 (body %s)", rr.Code, rr.Body.String())
		}
		if rr.Body.String() != "<p>preview:{{NAME}}</p>" {
			t.Errorf("body: got %q", rr.Body.String())
		}
		if h.gen.gotSel.Account != "ada" || h.gen.gotSel.Limit != 3 {
			t.Errorf("selection: %+v", h.gen.gotSel)
		}
	})

	t.Run("stored template", func(t *testing.T) {
		h := newAPIHarness(t)
		id := uuid.New()
		h.templates.items = []models.Template{{ID: id, Name: "Classic", HTMLContent: "<h1>{{NAME}}</h1>"}}

		rr := h.do(t, http.MethodPost, "/api/templates/preview", `{"template_id":"`+id.String()+`"}`)
		if rr.Code != http.StatusOK {
			t.Fatalf("status: got %d, want 200", rr.Code)
		}
		if h.gen.gotSource != "<h1>{{NAME}}</h1>" {
			t.Errorf("source: got %q", h.gen.gotSource)
		}
	})

	t.Run("another owner's template", func(t *testing.T) {
		h := newAPIHarness(t)
		id := uuid.New()
		h.templates.items = []models.Template{{ID: id, Name: "Private", HTMLContent: "<h1>secret</h1>", OwnerID: ptr(uuid.New())}}

		rr := h.do(t, http.MethodPost, "/api/templates/preview", `{"template_id":"`+id.String()+`"}`)
		if rr.Code != http.StatusForbidden {
			t.Fatalf("status: got %d, want 403", rr.Code)
		}
		if h.gen.gotSource != "" {
			t.Error("another owner's source must not be rendered")
		}
	})

	t.Run("errors", func(t *testing.T) {
		tests := []struct {
			name   string
			body   string
			genErr error
			status int
		}{
			{"neither source nor template", `{}`, nil, http.StatusUnprocessableEntity},
			{"unknown template", `{"template_id":"` + uuid.NewString() + `"}`, nil, http.StatusNotFound},
			{"render error", `{"source":"{{#A}}"}`, &engine.RenderError{Kind: engine.KindSyntax, Field: "A", Pos: 0, Msg: "unclosed block"}, http.StatusUnprocessableEntity},
			{"upstream failure", `{"source":"x","account":"ada"}`, &generate.UpstreamError{Account: "ada", Err: errors.New("503")}, http.StatusBadGateway},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				h := newAPIHarness(t)
				h.gen.err = tt.genErr
				rr := h.do(t, http.MethodPost, "/api/templates/preview", tt.body)
				if rr.Code != tt.status {
					t.Errorf("status: got %d, want %d (body %s)", rr.Code, tt.status, rr.Body.String())
				}
			})
		}
	})
}

func TestInvalidateSource(t *testing.T) {
	h := newAPIHarness(t)

	rr := h.do(t, http.MethodDelete, "/api/sources/ada-l/cache", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if h.gen.invalidate != "ada-l" {
		t.Errorf("invalidated %q, want ada-l", h.gen.invalidate)
	}

	rr = h.do(t, http.MethodDelete, "/api/sources/bad_name/cache", "")
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("invalid account: got %d, want 422", rr.Code)
	}
}

func TestValidAccount(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"ada", true},
		{"Ada-Lovelace", true},
		{"a1", true},
		{strings.Repeat("a", 39), true},
		{strings.Repeat("a", 40), false},
		{"", false},
		{"-ada", false},
		{"ada-", false},
		{"ada--l", false},
		{"ada_l", false},
		{"ada l", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := validAccount(tt.in); got != tt.want {
				t.Errorf("validAccount(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
