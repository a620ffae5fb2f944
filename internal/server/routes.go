package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/snerberd/snerberd/internal/config"
	"github.com/snerberd/snerberd/internal/handler"
	"github.com/snerberd/snerberd/internal/metrics"
	"github.com/snerberd/snerberd/internal/middleware"
	"github.com/snerberd/snerberd/internal/model"
)

// KeyStore is the API key storage used for authentication and key management.
type KeyStore interface {
	middleware.KeyLookup
	handler.APIKeyStore
}

// Dependencies are the collaborators wired into the router.
type Dependencies struct {
	Config  *config.Config
	Logger  *slog.Logger
	Records handler.RecordService
	Keys    KeyStore
	Health  *handler.HealthHandler
	Metrics metrics.Recorder

	// Optional. A nil AuthCache disables auth caching, a nil Limiter
	// disables rate limiting and a nil MetricsHandler hides /metrics.
	AuthCache      middleware.AuthCache
	Limiter        middleware.RateLimiter
	Invalidator    handler.KeyInvalidator
	MetricsHandler http.Handler
}

// NewRouter configures the chi router with all routes and middleware.
func NewRouter(deps Dependencies) *chi.Mux {
	cfg := deps.Config
	logger := deps.Logger

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Security(middleware.SecurityConfig{IsDevelopment: cfg.IsDevelopment()}))
	r.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: cfg.GetCORSAllowedOrigins(),
		MaxAge:         86400,
	}))
	r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))

	// Health endpoints (no auth required)
	r.Get("/healthz", deps.Health.Healthz)
	r.Get("/readyz", deps.Health.Readyz)
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	authCfg := middleware.AuthConfig{
		Logger:      logger,
		Keys:        deps.Keys,
		Cache:       deps.AuthCache,
		Metrics:     deps.Metrics,
		MinDuration: cfg.AuthMinDuration,
	}

	rateLimitCfg := middleware.RateLimitConfig{
		Logger:        logger,
		Limiter:       deps.Limiter,
		Metrics:       deps.Metrics,
		APIEnabled:    cfg.RateLimitAPIEnabled,
		PublicEnabled: cfg.RateLimitPublicEnabled,
		PublicRPS:     cfg.RateLimitPublicRPS,
		PublicBurst:   cfg.RateLimitPublicBurst,
	}

	// Reads are public; writes need a key with write scope.
	for _, kind := range model.Kinds {
		h := handler.NewRecordHandler(kind, deps.Records, logger)

		r.Route("/"+kind.Plural, func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(middleware.RateLimitPublic(rateLimitCfg))
				r.Get("/", h.List)
				r.Get("/{id}", h.Get)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(authCfg))
				r.Use(middleware.RateLimitAPI(rateLimitCfg))
				r.Use(middleware.RequireWrite())
				r.Post("/", h.Create)
				r.With(middleware.RemoveBlanks).Patch("/{id}", h.Update)
				r.Delete("/{id}", h.Delete)
			})
		})
	}

	apiKeyHandler := handler.NewAPIKeyHandler(logger, deps.Keys, deps.Invalidator, cfg.AppEnv)

	// API key management (requires admin scope for mutations)
	r.Route("/api-keys", func(r chi.Router) {
		r.Use(middleware.Auth(authCfg))
		r.Use(middleware.RateLimitAPI(rateLimitCfg))

		r.With(middleware.RequireRead()).Get("/", apiKeyHandler.ListAPIKeys)
		r.With(middleware.RequireAdmin()).Post("/", apiKeyHandler.CreateAPIKey)
		r.With(middleware.RequireAdmin()).Delete("/{key_id}", apiKeyHandler.RevokeAPIKey)
		r.With(middleware.RequireAdmin()).Post("/{key_id}/rotate", apiKeyHandler.RotateAPIKey)
	})

	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)

	return r
}
