// Package server implements the HTTP transport layer: the cached data API,
// health and metrics endpoints, and the cache admin surface.
package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/VL13N/FullStackNexus-sub002/internal/cache"
	"github.com/VL13N/FullStackNexus-sub002/internal/fetch"
	"github.com/VL13N/FullStackNexus-sub002/internal/storage"
	"github.com/VL13N/FullStackNexus-sub002/internal/telemetry"
)

// ReadyChecker reports whether the system is ready to serve traffic.
type ReadyChecker func(ctx context.Context) error

// Deps holds all dependencies for the HTTP server.
type Deps struct {
	Cache      *cache.Cache
	Fetcher    *fetch.Fetcher
	Providers  *fetch.Registry
	Store      storage.SnapshotStore // nil = snapshot endpoint unavailable
	ReadyCheck ReadyChecker          // nil = always ready (for tests)
	Metrics    *telemetry.Metrics    // nil = no request metrics
	Registry   *prometheus.Registry  // nil = no /metrics endpoint
	AdminToken string                // "" = admin surface open
}

// New creates an http.Handler with all routes and middleware wired.
func New(deps Deps) http.Handler {
	s := &server{deps: deps}

	r := chi.NewRouter()

	// Global middleware
	r.Use(s.recovery)
	r.Use(s.requestID)
	r.Use(s.logging)
	if deps.Metrics != nil {
		r.Use(metricsMiddleware(deps.Metrics))
	}

	// System endpoints
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	if deps.Registry != nil {
		r.Get("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}).ServeHTTP)
	}

	// Cached data API
	r.Get("/api/{provider}/*", s.handleData)

	// Cache admin surface
	r.Route("/admin/cache", func(r chi.Router) {
		r.Use(s.adminAuth)
		r.Get("/stats", s.handleStats)
		r.Post("/invalidate", s.handleInvalidate)
		r.Post("/snapshot", s.handleSnapshot)
	})

	return r
}

type server struct {
	deps Deps
}
