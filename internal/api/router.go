package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter constructs the chi router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware, outermost first.
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		// Open endpoints.
		r.Get("/health", s.handleHealth)
		r.Post("/auth/login", s.handleLogin)

		// Authenticated endpoints.
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Get("/state", s.handleState)
			r.Post("/control/leds/{id}/toggle", s.handleToggleLED)
			r.Post("/control/pushbuttons/{id}/press", s.handlePressPushbutton)

			r.Get("/readings", s.handleListReadings)
			r.Get("/readings/stats", s.handleReadingStats)
			r.Get("/history/transitions", s.handleListTransitions)

			r.Post("/auth/ws-ticket", s.handleWSTicket)

			// Admin endpoints.
			r.Group(func(r chi.Router) {
				r.Use(s.requireAdmin)

				r.Get("/audit", s.handleListAudit)
				r.Post("/users", s.handleCreateUser)
				r.Get("/users", s.handleListUsers)
			})
		})

		// WebSocket authenticates via single-use ticket, not bearer token.
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns a simple health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.version,
	})
}
