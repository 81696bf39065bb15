// Package api provides the HTTP API for the trip planner.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/gonsw/gonsw/internal/api/handler"
	"github.com/gonsw/gonsw/internal/api/middleware"
	"github.com/gonsw/gonsw/internal/auth"
	"github.com/gonsw/gonsw/internal/favorite"
	"github.com/gonsw/gonsw/internal/provider/resilience"
	"github.com/gonsw/gonsw/internal/transit"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version         string
	BuildTime       string
	Logger          zerolog.Logger
	ServiceName     string
	Metrics         *middleware.Metrics
	AuthService     *auth.Service
	TransitService  *transit.Service
	FavoriteService *favorite.Service

	// Registry exposes provider circuit breaker state on /v1/ops/status (optional).
	Registry *resilience.Registry

	// Dependencies are checked by /v1/ops/ready, keyed by subsystem name.
	Dependencies map[string]handler.Pinger

	// RequireTLS rejects requests a proxy forwarded over plain HTTP.
	RequireTLS bool
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Set default service name if not provided
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "gonsw-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)            // Real IP extraction
	r.Use(middleware.SecurityHeaders)      // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))
	r.Use(middleware.ContentTypeJSON)
	r.Use(middleware.RequireJSON)

	// Initialize handlers
	opsHandler := handler.NewOpsHandler(handler.OpsHandlerConfig{
		Version:      cfg.Version,
		BuildTime:    cfg.BuildTime,
		Transit:      cfg.TransitService,
		Registry:     cfg.Registry,
		Dependencies: cfg.Dependencies,
	})
	authHandler := handler.NewAuthHandler(cfg.AuthService)
	journeyHandler := handler.NewJourneyHandler(cfg.TransitService, cfg.Logger)
	favoriteHandler := handler.NewFavoriteHandler(cfg.FavoriteService)

	authMiddleware := middleware.Auth(cfg.AuthService)

	// Create rate limit middleware for different endpoint categories
	authRateLimit := middleware.RateLimitByIP(middleware.AuthRateLimit)           // 10 req/min
	expensiveRateLimit := middleware.RateLimitByIP(middleware.ExpensiveRateLimit) // 30 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)   // 100 req/min

	r.Route("/v1", func(r chi.Router) {
		// Anonymous device tokens - strict rate limiting
		r.With(authRateLimit).Post("/auth/device", authHandler.IssueDeviceToken)

		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.With(authMiddleware).Get("/status", opsHandler.SystemStatus)
		})

		// Journey search calls the trip planner on every cache miss
		r.With(expensiveRateLimit).Get("/journeys", journeyHandler.SearchJourneys)

		r.Group(func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Get("/stations/nearest", journeyHandler.NearestStation)
			r.Get("/vehicles", journeyHandler.VehiclePositions)
		})

		// Saved routes (authenticated) - device-based rate limiting
		r.Route("/me", func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(middleware.RateLimitByDevice(middleware.StandardRateLimit)) // 100 req/min per device

			r.Get("/favorites", favoriteHandler.ListFavorites)
			r.Post("/favorites", favoriteHandler.SaveFavorite)
			r.Post("/favorites:toggle", favoriteHandler.ToggleFavorite)
			r.Delete("/favorites", favoriteHandler.RemovePair)
			r.Delete("/favorites/all", favoriteHandler.ClearFavorites)
		})
	})

	return r
}
