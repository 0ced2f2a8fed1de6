// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package metrics exposes Prometheus instrumentation for rendering,
// generation, provider fetches and publish transitions. All Recorder
// methods are safe to call on a nil receiver so components can run
// without metrics wired.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result labels.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultHit     = "hit"
	ResultMiss    = "miss"
)

// Recorder holds the registered collectors.
type Recorder struct {
	reg             *prom.Registry
	renders         *prom.CounterVec
	renderDuration  prom.Histogram
	generations     *prom.CounterVec
	providerFetches *prom.HistogramVec
	providerCache   *prom.CounterVec
	transitions     *prom.CounterVec
	httpRequests    *prom.HistogramVec
}

// New constructs and registers the collectors on reg. A nil reg gets a
// fresh registry.
func New(reg *prom.Registry) *Recorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	r := &Recorder{
		reg: reg,
		renders: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "devfolio",
			Name:      "template_renders_total",
			Help:      "Template renders by result",
		}, []string{"result"}),
		renderDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "devfolio",
			Name:      "template_render_duration_seconds",
			Help:      "Duration of template parse and render",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1},
		}),
		generations: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "devfolio",
			Name:      "generations_total",
			Help:      "Generation pipeline runs by outcome",
		}, []string{"outcome"}),
		providerFetches: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "devfolio",
			Name:      "provider_fetch_duration_seconds",
			Help:      "Duration of external project data fetches",
			Buckets:   prom.DefBuckets,
		}, []string{"result"}),
		providerCache: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "devfolio",
			Name:      "provider_cache_lookups_total",
			Help:      "Provider data cache lookups by result",
		}, []string{"result"}),
		transitions: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "devfolio",
			Name:      "publish_transitions_total",
			Help:      "Publish state machine transitions by outcome",
		}, []string{"transition", "outcome"}),
		httpRequests: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "devfolio",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration by method, route pattern and status",
			Buckets:   prom.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	reg.MustRegister(r.renders, r.renderDuration, r.generations, r.providerFetches, r.providerCache, r.transitions, r.httpRequests)
	return r
}

// Registry returns the registry the collectors live on.
func (r *Recorder) Registry() *prom.Registry {
	if r == nil {
		return nil
	}
	return r.reg
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

func (r *Recorder) ObserveRender(result string, d time.Duration) {
	if r == nil {
		return
	}
	r.renders.WithLabelValues(result).Inc()
	r.renderDuration.Observe(d.Seconds())
}

func (r *Recorder) IncGeneration(outcome string) {
	if r == nil {
		return
	}
	r.generations.WithLabelValues(outcome).Inc()
}

func (r *Recorder) ObserveProviderFetch(result string, d time.Duration) {
	if r == nil {
		return
	}
	r.providerFetches.WithLabelValues(result).Observe(d.Seconds())
}

func (r *Recorder) IncProviderCache(result string) {
	if r == nil {
		return
	}
	r.providerCache.WithLabelValues(result).Inc()
}

// IncTransition counts a publish/unpublish/visibility attempt. outcome is
// "success" or a short error label such as "slug_conflict".
func (r *Recorder) IncTransition(transition, outcome string) {
	if r == nil {
		return
	}
	r.transitions.WithLabelValues(transition, outcome).Inc()
}

// ObserveHTTP records one served request. route should be the router
// pattern, not the raw path, to keep label cardinality bounded.
func (r *Recorder) ObserveHTTP(method, route string, status int, d time.Duration) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}
