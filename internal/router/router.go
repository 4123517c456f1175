// Package router assembles the chi router: global middleware, the versioned
// API routes with their role gates, and the operational endpoints.
package router

import (
	"net/http"

	"github.com/LsSens/backend-erp/internal/config"
	"github.com/LsSens/backend-erp/internal/handlers"
	"github.com/LsSens/backend-erp/internal/middleware"
	"github.com/LsSens/backend-erp/internal/observability"
	"github.com/LsSens/backend-erp/pkg/api"
	appErrors "github.com/LsSens/backend-erp/pkg/errors"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Router creates and configures the HTTP router
type Router struct {
	cfg          *config.Config
	users        *handlers.UserHandler
	integrations *handlers.IntegrationHandler
	health       *handlers.HealthHandler
	auth         *middleware.Authenticator
	limiter      *middleware.IPRateLimiter
	metrics      *observability.Collector
	errors       *appErrors.ErrorHandler
	logger       *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	cfg *config.Config,
	users *handlers.UserHandler,
	integrations *handlers.IntegrationHandler,
	health *handlers.HealthHandler,
	auth *middleware.Authenticator,
	limiter *middleware.IPRateLimiter,
	metrics *observability.Collector,
	errorHandler *appErrors.ErrorHandler,
	logger *zap.Logger,
) *Router {
	return &Router{
		cfg:          cfg,
		users:        users,
		integrations: integrations,
		health:       health,
		auth:         auth,
		limiter:      limiter,
		metrics:      metrics,
		errors:       errorHandler,
		logger:       logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(rt.errors.Middleware)
	router.Use(middleware.Logger(rt.logger))
	if rt.metrics != nil {
		router.Use(middleware.Metrics(rt.metrics))
	}
	router.Use(middleware.SecurityHeaders)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   rt.cfg.Server.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	if rt.limiter != nil {
		router.Use(rt.limiter.Middleware)
	}
	if rt.cfg.Server.RequestTimeout > 0 {
		router.Use(middleware.Timeout(rt.cfg.Server.RequestTimeout))
	}

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		api.Error(w, http.StatusNotFound, "Route not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		api.Error(w, http.StatusNotFound, "Route not found")
	})

	if rt.metrics != nil {
		router.Method(http.MethodGet, rt.cfg.Observability.MetricsPath, rt.metrics.Handler())
	}

	router.Route(rt.cfg.APIPrefix(), func(r chi.Router) {
		r.Get("/health", rt.health.Health)
		r.Get("/ready", rt.health.Ready)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", rt.users.Login)
			r.With(rt.auth.Authenticate, middleware.RequireUser).Get("/me", rt.users.Me)
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(rt.auth.Authenticate)

			r.With(middleware.RequireManager).Get("/", rt.users.ListUsers)
			r.With(middleware.RequireUser).Get("/{id}", rt.users.GetUser)
			r.With(middleware.RequireAdmin).Post("/", rt.users.CreateUser)
			r.With(middleware.RequireAdmin).Put("/{id}", rt.users.UpdateUser)
			r.With(middleware.RequireAdmin).Delete("/{id}", rt.users.DeleteUser)
		})

		r.Route("/marketplace-integrations", func(r chi.Router) {
			r.Use(rt.auth.Authenticate)

			r.With(middleware.RequireManager).Get("/", rt.integrations.ListIntegrations)
			r.With(middleware.RequireUser).Get("/user/{userId}", rt.integrations.ListByUser)
			r.With(middleware.RequireManager).Get("/type/{marketplaceType}", rt.integrations.ListByType)
			r.With(middleware.RequireManager).Get("/status/{status}", rt.integrations.ListByStatus)
			r.With(middleware.RequireUser).Get("/{id}", rt.integrations.GetIntegration)
			r.With(middleware.RequireUser).Post("/", rt.integrations.CreateIntegration)
			r.With(middleware.RequireUser).Put("/{id}", rt.integrations.UpdateIntegration)
			r.With(middleware.RequireUser).Patch("/{id}/status", rt.integrations.UpdateStatus)
			r.With(middleware.RequireUser).Patch("/{id}/refresh-token", rt.integrations.RefreshToken)
			r.With(middleware.RequireUser).Delete("/{userId}/{marketplaceType}/{id}", rt.integrations.DeleteIntegration)
		})
	})

	return router
}
