package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jmorren/authcore/internal/auth"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.securityHeadersMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)
	r.Use(s.rateLimitMiddleware)

	r.Route("/api", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		r.Route("/auth", func(r chi.Router) {
			// Public endpoints
			r.Post("/register", s.handle(s.handleRegister))
			r.Post("/login", s.handle(s.handleLogin))
			r.Get("/refresh", s.handle(s.handleRefresh))
			r.Post("/logout", s.handle(s.handleLogout))

			// Protected endpoints
			r.Group(func(r chi.Router) {
				r.Use(s.requireAuth)

				r.Get("/me", s.handle(s.handleMe))
				r.Patch("/update", s.handle(s.handleUpdateProfile))
				r.Put("/password", s.handle(s.handleUpdatePassword))

				// Admin endpoints
				r.Group(func(r chi.Router) {
					r.Use(s.requireRoles(auth.RoleAdmin))

					r.Get("/admin/users", s.handle(s.handleListUsers))
					r.Get("/admin/audit", s.handle(s.handleListAuditEvents))
				})
			})
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	}, "Service healthy")
}
