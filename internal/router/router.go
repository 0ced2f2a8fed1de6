// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router sets up all HTTP routes and middleware chains for
// devfolio. Routes are split into the public artifact pages and the
// owner-scoped JSON API.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"devfolio/internal/handlers"
	"devfolio/internal/metrics"
	"devfolio/internal/middleware"
)

// New creates and returns the configured Chi router with all middleware
// and route groups wired up. m and limiter may be nil. An empty
// operatorHash disables the operator routes.
func New(api *handlers.API, templates *handlers.Templates, public *handlers.Public, health http.Handler, m *metrics.Recorder, limiter *middleware.RateLimiter, operatorHash []byte) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.Metrics(m))
	r.Use(middleware.SecureHeaders)

	r.Method(http.MethodGet, "/health", health)
	r.Method(http.MethodGet, "/metrics", m.Handler())

	// Published portfolios.
	r.With(middleware.ArtifactHeaders).Get("/p/{slug}", public.Portfolio)

	r.Route("/api", func(r chi.Router) {
		// Operator routes change templates shared by every owner.
		r.Route("/operator", func(r chi.Router) {
			r.Use(middleware.RequireOperator(operatorHash))
			r.Post("/templates/{id}/default", templates.SetDefault)
		})

		// Owner API. Identity comes from the gateway header.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireOwner)
			ownerRoutes(r, api, templates, limiter)
		})
	})

	return r
}

// ownerRoutes mounts the endpoints that act on the caller's own data.
func ownerRoutes(r chi.Router, api *handlers.API, templates *handlers.Templates, limiter *middleware.RateLimiter) {
	r.Route("/portfolios", func(r chi.Router) {
		r.Get("/", api.ListPortfolios)
		r.With(rateLimited(limiter)).Post("/generate", api.Generate)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", api.GetPortfolio)
			r.With(middleware.ArtifactHeaders).Get("/generated", api.GeneratedArtifact)
			r.Get("/cache-log", api.CacheLog)
			r.Post("/publish", api.Publish)
			r.Post("/unpublish", api.Unpublish)
			r.Put("/visibility", api.SetVisibility)
		})
	})

	r.Get("/slugs/{slug}/availability", api.CheckAvailability)

	r.Route("/templates", func(r chi.Router) {
		r.Get("/", api.ListTemplates)
		r.Post("/", templates.Create)
		r.With(middleware.ArtifactHeaders).Post("/preview", api.PreviewTemplate)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", templates.Get)
			r.Put("/", templates.Update)
			r.Delete("/", templates.Delete)
		})
	})

	r.Delete("/sources/{account}/cache", api.InvalidateSource)
}

// rateLimited returns the limiter's middleware, or a pass-through when no
// limiter is configured.
func rateLimited(limiter *middleware.RateLimiter) func(http.Handler) http.Handler {
	if limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return limiter.Middleware
}
