package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"github.com/vendo-app/vendo-api/internal/domain/subscription"
	"github.com/vendo-app/vendo-api/pkg/middleware"
	"github.com/vendo-app/vendo-api/pkg/observability"
)

// NewRouter configures all routes against the initialized dependencies.
func NewRouter(deps *Dependencies) http.Handler {
	cfg := deps.Config

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(deps.Logger))
	r.Use(middleware.Recovery(deps.Logger))
	if cfg.Observability.MetricsEnabled {
		r.Use(observability.MetricsMiddleware)
	}
	if cfg.Server.RateLimitPerSecond > 0 && cfg.Server.RateLimitBurst > 0 {
		limiter := rate.NewLimiter(rate.Limit(cfg.Server.RateLimitPerSecond), cfg.Server.RateLimitBurst)
		r.Use(middleware.RateLimit(limiter))
	}

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(corsHandler.Handler)

	registerUtilityRoutes(r, deps)

	// Public routes, no authentication required
	r.Mount("/auth", deps.AuthHandler.Routes())
	r.Mount("/products", deps.ProductHandler.PublicRoutes())
	r.Mount("/subscriptions/plans", deps.SubscriptionHandler.PublicRoutes())

	// Authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate([]byte(cfg.Auth.JWTSecret)))

		r.Mount("/users", deps.UserHandler.Routes())
		r.Mount("/subscriptions", deps.SubscriptionHandler.Routes())
		r.Mount("/cart", deps.CartHandler.Routes())

		r.Group(func(r chi.Router) {
			r.Use(subscription.RequirePremium(deps.SubscriptionService))
			r.Use(subscription.RequireSeller(deps.SubscriptionService))
			r.Mount("/seller/products", deps.ProductHandler.SellerRoutes())
		})

		r.Group(func(r chi.Router) {
			r.Use(subscription.RequireMemberships)
			r.Mount("/admin/subscriptions", deps.SubscriptionHandler.AdminRoutes())
		})
	})

	deps.Logger.Info("routes configured")
	return r
}

// registerUtilityRoutes registers health check, metrics, and other utility routes
func registerUtilityRoutes(r chi.Router, deps *Dependencies) {
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		if err := deps.DB.Health(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("database unhealthy"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready"))
	})

	if deps.Config.Observability.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
}
