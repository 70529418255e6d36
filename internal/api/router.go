package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/isdelr/bizops-api/internal/api/handlers"
	"github.com/isdelr/bizops-api/internal/api/response"
	"github.com/isdelr/bizops-api/internal/logger"
	"github.com/isdelr/bizops-api/internal/ratelimit"
	"github.com/isdelr/bizops-api/internal/telemetry"
)

// Dependencies are the collaborators the router wires into handlers.
type Dependencies struct {
	CORSOrigins []string
	Auth        func(http.Handler) http.Handler
	Limiter     ratelimit.Limiter // Optional
	Users       *handlers.UserHandler
	Events      *handlers.EventHandler
	Health      *handlers.HealthHandler
	WebSocket   *handlers.WebSocketHandler
	Resources   []handlers.ResourceRoutes
}

// NewRouter creates and configures a new Chi router.
func NewRouter(deps Dependencies) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logger.RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(telemetry.Middleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "X-Request-Id"},
		ExposedHeaders:   []string{"Link", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.NotFound(response.NotFound)
	r.MethodNotAllowed(response.MethodNotAllowed)

	r.Handle("/metrics", telemetry.Handler())

	// API versioning
	r.Route("/api/v1", func(r chi.Router) {
		if deps.Limiter != nil {
			r.Use(ratelimit.Middleware(deps.Limiter))
		}
		r.NotFound(response.NotFound)
		r.MethodNotAllowed(response.MethodNotAllowed)

		r.Get("/health", deps.Health.Get)
		r.Post("/auth/login", deps.Users.Login)

		r.Group(func(r chi.Router) {
			r.Use(deps.Auth)
			r.Use(deps.Users.RequireAccount)

			r.Post("/auth/logout", deps.Users.Logout)
			r.Get("/auth/me", deps.Users.GetMe)
			r.Get("/activity", deps.Events.GetRecent)
			r.Get("/ws", deps.WebSocket.Serve)

			for _, res := range deps.Resources {
				r.Route("/"+res.Name(), res.Routes)
			}
		})
	})

	return r
}
