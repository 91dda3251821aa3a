/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the frontend

ROUTE GROUPS:
  /api/login            Public
  /api/logout           Session
  /api/password         Session
  /api/periods/*        Session; admin checks happen in the desk

AUTHENTICATION:
  Every route except /api/login requires "Authorization: Bearer <token>"
  with a token returned by /api/login. Sessions live in memory and do not
  survive a restart.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// DefaultAllowedOrigins are used when no origins are configured.
var DefaultAllowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	if len(allowedOrigins) == 0 {
		allowedOrigins = DefaultAllowedOrigins
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Post("/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(h.requireSession)

			r.Post("/logout", h.Logout)
			r.Post("/password", h.ChangePassword)

			r.Route("/periods", func(r chi.Router) {
				r.Get("/", h.ListPeriods)

				r.Route("/{year}/{month}", func(r chi.Router) {
					r.Delete("/", h.DeletePeriod)
					r.Get("/records", h.GetRecords)
					r.Put("/records", h.SaveRecords)
					r.Post("/import", h.ImportPeriod)
					r.Post("/delete-request", h.RequestDelete)
					r.Get("/export", h.ExportPeriod)
					r.Get("/audit", h.ListAudit)
				})
			})
		})
	})

	return r
}
