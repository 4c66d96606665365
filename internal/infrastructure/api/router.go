package api

import (
	"net/http"

	"shopify-app-auth/internal/infrastructure/metrics"
	"shopify-app-auth/internal/logging"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// RouterConfig carries the cross-cutting settings of the HTTP router
type RouterConfig struct {
	// AllowedOrigins enables CORS for the listed origins; CORS is off when empty.
	AllowedOrigins []string
}

// NewRouter wires the login flow, webhook, health and metrics endpoints
func NewRouter(
	auth *AuthHandlers,
	webhooks *WebhookHandlers,
	m *metrics.Metrics,
	logger zerolog.Logger,
	cfg RouterConfig,
) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(m.Middleware)
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Public routes
	r.Get("/health", Health)
	r.Method(http.MethodGet, "/metrics", m.Handler())

	r.Get("/login", auth.Login)
	r.Get("/authenticate", auth.Authenticate)
	r.Post("/authenticate", auth.Authenticate)
	r.Get("/finalize", auth.Finalize)

	r.Post("/webhooks/app-uninstalled", webhooks.AppUninstalled)

	// Routes requiring a logged-in shop
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireShop)
		r.Get("/", auth.Index)
		r.Get("/logout", auth.Logout)
		r.Post("/logout", auth.Logout)
	})

	return r
}
