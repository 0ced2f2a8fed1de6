// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"devfolio/internal/middleware"
	"devfolio/internal/models"
	"devfolio/internal/store"
)

// errTemplateForbidden is returned when an owner reads another owner's
// template or modifies a shared one.
var errTemplateForbidden = errors.New("template belongs to another owner")

// TemplateManager persists templates. *store.TemplateStore implements it.
type TemplateManager interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Template, error)
	Create(ctx context.Context, t *models.Template) (*models.Template, error)
	Update(ctx context.Context, t *models.Template) (*models.Template, error)
	SetDefault(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// TemplateCompiler checks template syntax and owns the parsed-tree cache.
// *engine.Engine implements it.
type TemplateCompiler interface {
	Validate(source string) error
	InvalidateTemplate(id string)
}

// Templates manages stored templates. Sources are parsed before they are
// saved, so a stored template never fails with a syntax error later.
// Owners manage their own templates; shared templates are read-only here
// and only an operator can change which one is the default.
type Templates struct {
	store    TemplateManager
	compiler TemplateCompiler
}

// NewTemplates creates the template management handlers.
func NewTemplates(st TemplateManager, compiler TemplateCompiler) *Templates {
	return &Templates{store: st, compiler: compiler}
}

type templateRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=1000"`
	HTMLContent string `json:"html_content" validate:"required,max=500000"`
}

func (req templateRequest) template(id, ownerID uuid.UUID) *models.Template {
	return &models.Template{
		ID:          id,
		OwnerID:     &ownerID,
		Name:        req.Name,
		Description: req.Description,
		HTMLContent: req.HTMLContent,
	}
}

// Create stores a new, non-default template owned by the caller.
func (h *Templates) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	owner := h.owner(r)
	t, err := h.store.Create(r.Context(), req.template(uuid.Nil, owner))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	slog.Info("template created", "template_id", t.ID, "owner_id", owner, "name", t.Name)
	writeJSON(w, http.StatusCreated, t)
}

// Get returns one shared or owned template including its source.
func (h *Templates) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	t, err := h.load(r, id, (*models.Template).UsableBy)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// Update replaces a template's name, description and source. The version
// bump makes the next render parse the new source.
func (h *Templates) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if _, err := h.load(r, id, (*models.Template).OwnedBy); err != nil {
		h.fail(w, r, err)
		return
	}
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	t, err := h.store.Update(r.Context(), req.template(id, h.owner(r)))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if t == nil {
		h.fail(w, r, store.ErrTemplateNotFound)
		return
	}
	h.compiler.InvalidateTemplate(id.String())
	slog.Info("template updated", "template_id", t.ID, "version", t.Version)
	writeJSON(w, http.StatusOK, t)
}

// SetDefault makes a shared template the one used when a generation names
// none. It is mounted behind middleware.RequireOperator.
func (h *Templates) SetDefault(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.store.SetDefault(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	slog.Info("default template changed", "template_id", id)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Delete removes an owned template that is not in use.
func (h *Templates) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if _, err := h.load(r, id, (*models.Template).OwnedBy); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.store.Delete(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	h.compiler.InvalidateTemplate(id.String())
	slog.Info("template deleted", "template_id", id)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decode reads a template body and rejects sources that do not parse.
func (h *Templates) decode(w http.ResponseWriter, r *http.Request) (templateRequest, bool) {
	var req templateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return req, false
	}
	if err := h.compiler.Validate(req.HTMLContent); err != nil {
		h.fail(w, r, err)
		return req, false
	}
	return req, true
}

// load finds a template and checks the caller against it with allowed.
func (h *Templates) load(r *http.Request, id uuid.UUID, allowed func(*models.Template, uuid.UUID) bool) (*models.Template, error) {
	t, err := h.store.FindByID(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, store.ErrTemplateNotFound
	}
	if !allowed(t, h.owner(r)) {
		return nil, errTemplateForbidden
	}
	return t, nil
}

func (h *Templates) owner(r *http.Request) uuid.UUID {
	id, _ := middleware.OwnerID(r.Context())
	return id
}

func (h *Templates) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, badRequest("template id must be a UUID"))
		return uuid.Nil, false
	}
	return id, true
}

func (h *Templates) fail(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, err, time.Now())
}
