package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.withRequestID)
	r.Use(s.logRequests)
	r.Use(s.recoverPanics)
	r.Use(s.allowCORS)
	r.Use(s.limitBody)

	// Session endpoints used by the browser UI (no auth required)
	r.Post("/login", s.handleLogin)
	r.Get("/healthcheck", s.handleHealthcheck)

	// Monitoring (no auth required)
	r.Get("/status", s.handleStatus)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(s.requireSession)

		r.Route("/valves", func(r chi.Router) {
			r.Get("/", s.handleListValves)
			r.Put("/{id}", s.handleUpdateValve)
		})
	})

	// Browser UI owns every other path.
	if s.ui != nil {
		r.Handle("/*", s.ui)
	}

	return r
}
