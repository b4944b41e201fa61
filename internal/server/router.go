// Package server exposes stacks over HTTP with JSON envelopes.
package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Option configures the router
type Option func(*Handler)

// WithLogger sets the handler logger
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) { h.logger = logger }
}

// NewRouter builds the API router over a stack backend
func NewRouter(stacks Stacks, opts ...Option) *chi.Mux {
	r := chi.NewRouter()
	handler := NewHandler(stacks, opts...)

	// middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(instrument)

	r.Get("/healthz", handler.Health)
	r.Handle("/metrics", promhttp.Handler())

	// == v1 ==
	r.Get("/v1/servers/{server}/stacks", handler.ListStacks)                      // list stacks
	r.Get("/v1/servers/{server}/stacks/{stack}/compose", handler.GetCompose)      // fetch raw document
	r.Patch("/v1/servers/{server}/stacks/{stack}/compose", handler.UpdateCompose) // apply or preview a change-set
	r.Get("/v1/servers/{server}/stacks/{stack}/snapshots", handler.ListSnapshots) // list snapshots

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondFail(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondFail(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}
