// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"time"
)

// CheckFunc checks one dependency.
type CheckFunc func(ctx context.Context) error

// healthTimeout bounds all checks of one request.
const healthTimeout = 2 * time.Second

// Health reports liveness and the state of each registered dependency.
type Health struct {
	checks map[string]CheckFunc
}

// NewHealth creates a health handler. A nil check is skipped, so optional
// dependencies can be passed unconditionally.
func NewHealth(checks map[string]CheckFunc) *Health {
	h := &Health{checks: make(map[string]CheckFunc, len(checks))}
	for name, fn := range checks {
		if fn != nil {
			h.checks[name] = fn
		}
	}
	return h
}

// ServeHTTP answers 200 when every check passes and 503 otherwise.
func (h *Health) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	names := slices.Sorted(maps.Keys(h.checks))

	status := http.StatusOK
	results := make(map[string]string, len(names))
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			slog.Warn("health check failed", "check", name, "error", err)
			results[name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	writeJSON(w, status, map[string]any{"status": overall, "checks": results})
}
