package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gophermarket/gophermarket/internal/middleware"
)

// RouterConfig collects everything the route table needs.
type RouterConfig struct {
	Logger        *slog.Logger
	IsDevelopment bool
	MaxBodySize   int64
	CORS          middleware.CORSConfig
	Auth          middleware.AuthConfig
	RateLimit     middleware.RateLimitConfig

	// TrustedProxies may set X-Forwarded-For; empty means the TCP peer is the client.
	TrustedProxies middleware.TrustedProxies

	Health   *HealthHandler
	Listings *ListingHandler
	Profiles *ProfileHandler
	Metrics  *MetricsHandler

	// Uploads serves locally stored images under /uploads/. Nil disables it.
	Uploads http.Handler
}

const defaultMaxBodySize = 32 << 20

// NewRouter builds the chi route table.
func NewRouter(cfg RouterConfig) *chi.Mux {
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = defaultMaxBodySize
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.ClientIP(cfg.TrustedProxies))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recoverer(cfg.Logger, cfg.IsDevelopment))
	r.Use(middleware.Security(middleware.SecurityConfig{IsDevelopment: cfg.IsDevelopment}))
	r.Use(middleware.CORS(cfg.CORS))

	// Health endpoints (no auth, no rate limit)
	r.Get("/healthz", cfg.Health.Healthz)
	r.Get("/readyz", cfg.Health.Readyz)
	if cfg.Metrics != nil {
		r.Get("/metrics", cfg.Metrics.Metrics)
	}

	if cfg.Uploads != nil {
		r.With(middleware.PublicAssets).
			Handle("/uploads/*", http.StripPrefix("/uploads/", cfg.Uploads))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.MaxBodySize(cfg.MaxBodySize))
		r.Use(middleware.RateLimit(cfg.RateLimit))
		r.Use(middleware.Auth(cfg.Auth))

		r.Route("/listings", func(r chi.Router) {
			r.Get("/", cfg.Listings.List)
			r.Post("/", cfg.Listings.Create)
			r.Get("/my", cfg.Listings.ListMine)
			r.Get("/{id}", cfg.Listings.Get)
			r.Patch("/{id}", cfg.Listings.Update)
			r.Delete("/{id}", cfg.Listings.Delete)
		})

		r.Route("/profiles", func(r chi.Router) {
			r.Get("/me", cfg.Profiles.Get)
			r.Post("/me", cfg.Profiles.Create)
			r.Put("/me", cfg.Profiles.Update)
		})
	})

	// 404 and 405 handlers
	r.NotFound(NotFound)
	r.MethodNotAllowed(MethodNotAllowed)

	return r
}
