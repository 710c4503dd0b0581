package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Get("/api/v1/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Get("/api/v1/ir/{action}", s.handleAction)
		r.Post("/api/v1/ir/{action}", s.handleAction)
		r.Get("/api/v1/events", s.handleEvents)

		if s.injector != nil {
			r.Post("/api/v1/dev/frame", s.handleInjectFrame)
		}

		// Root paths kept for older clients.
		for _, action := range legacyActions {
			r.Get("/"+string(action), s.handleLegacy(action))
			r.Post("/"+string(action), s.handleLegacy(action))
		}
	})

	return r
}

// handleHealth returns the server health and dispatcher state.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"state":   s.dispatcher.Snapshot(),
	})
}
