// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"devfolio/internal/engine"
	"devfolio/internal/generate"
	"devfolio/internal/publish"
	"devfolio/internal/store"
)

// errorBody is the JSON shape of every API error.
type errorBody struct {
	Error   string     `json:"error"`
	Code    string     `json:"code,omitempty"`
	Details []string   `json:"details,omitempty"`
	RetryAt *time.Time `json:"retry_at,omitempty"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("encode response failed", "error", err)
	}
}

// errorMapping is one row of the error to status table.
type errorMapping struct {
	target error
	status int
	code   string
}

// errorTable is checked in order with errors.Is. Render errors and
// cooldowns carry extra data and are handled before it.
var errorTable = []errorMapping{
	{publish.ErrInvalidSlug, http.StatusUnprocessableEntity, "invalid_slug"},
	{publish.ErrReservedSlug, http.StatusUnprocessableEntity, "reserved_slug"},
	{publish.ErrInvalidVisibility, http.StatusUnprocessableEntity, "invalid_visibility"},
	{generate.ErrInvalidSelection, http.StatusUnprocessableEntity, "invalid_selection"},
	{generate.ErrNoTemplate, http.StatusUnprocessableEntity, "no_template"},
	{publish.ErrSlugConflict, http.StatusConflict, "slug_conflict"},
	{publish.ErrConcurrentUpdate, http.StatusConflict, "concurrent_update"},
	{publish.ErrNothingToPublish, http.StatusConflict, "nothing_to_publish"},
	{publish.ErrNotPublished, http.StatusConflict, "not_published"},
	{publish.ErrNotFound, http.StatusNotFound, "not_found"},
	{generate.ErrNotFound, http.StatusNotFound, "not_found"},
	{publish.ErrOwnership, http.StatusForbidden, "forbidden"},
	{generate.ErrOwnership, http.StatusForbidden, "forbidden"},
	{generate.ErrTemplateForbidden, http.StatusForbidden, "forbidden"},
	{generate.ErrUpstreamData, http.StatusBadGateway, "upstream_unavailable"},
	{store.ErrTemplateNotFound, http.StatusNotFound, "template_not_found"},
	{store.ErrDefaultTemplate, http.StatusConflict, "default_template"},
	{store.ErrTemplateInUse, http.StatusConflict, "template_in_use"},
	{store.ErrOwnedTemplate, http.StatusConflict, "owned_template"},
	{errTemplateForbidden, http.StatusForbidden, "forbidden"},
}

// writeError maps a service error to its HTTP status and writes it.
// Anything unrecognized is logged and answered with a bare 500.
func writeError(w http.ResponseWriter, r *http.Request, err error, now time.Time) {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		writeJSON(w, reqErr.status, errorBody{Error: reqErr.msg, Details: reqErr.details})
		return
	}

	var cooldown *publish.CooldownError
	if errors.As(err, &cooldown) {
		secs := int64(cooldown.RetryAfter(now) / time.Second)
		w.Header().Set("Retry-After", strconv.FormatInt(max(secs, 1), 10))
		until := cooldown.Until.UTC()
		writeJSON(w, http.StatusTooManyRequests, errorBody{
			Error:   err.Error(),
			Code:    "cooldown_active",
			RetryAt: &until,
		})
		return
	}

	var renderErr *engine.RenderError
	if errors.As(err, &renderErr) {
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{
			Error: renderErr.Error(),
			Code:  "render_" + string(renderErr.Kind),
		})
		return
	}

	for _, m := range errorTable {
		if errors.Is(err, m.target) {
			writeJSON(w, m.status, errorBody{Error: err.Error(), Code: m.code})
			return
		}
	}

	slog.Error("request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"error", err,
	)
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
}
