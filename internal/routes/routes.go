package routes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/BradenHooton/tavern-gate/internal/handlers"
	middlewareCustom "github.com/BradenHooton/tavern-gate/internal/middleware"
	pkghttp "github.com/BradenHooton/tavern-gate/pkg/http"
	pkglogger "github.com/BradenHooton/tavern-gate/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// RouterConfig carries everything the HTTP surface is assembled from
type RouterConfig struct {
	AuthHandler    *handlers.AuthHandler
	Health         handlers.HealthChecker
	Logger         *slog.Logger
	AuditLogger    *pkglogger.AuditLogger
	IPConfig       *pkghttp.IPConfig
	RateLimit      middlewareCustom.RateLimitConfig
	CORS           *middlewareCustom.CORSConfig
	Env            string
	RequestTimeout time.Duration
}

// NewRouter builds the middleware chain and registers every route
func NewRouter(cfg RouterConfig) chi.Router {
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Env}))
	router.Use(middlewareCustom.CORS(cfg.CORS))
	router.Use(middlewareCustom.SecureLogger(cfg.Logger, cfg.IPConfig))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(cfg.RequestTimeout))

	router.Get("/health", handlers.Health(cfg.Health))

	RegisterRoutes(router, cfg.AuthHandler, middlewareCustom.LoginRateLimit(cfg.RateLimit, cfg.AuditLogger))

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		pkghttp.WriteNotFound(w, "Not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		pkghttp.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	return router
}

// RegisterRoutes registers the gatekeeper API. Only login is rate limited.
func RegisterRoutes(router chi.Router, authHandler *handlers.AuthHandler, loginRateLimit func(http.Handler) http.Handler) {
	router.Route("/api/auth", func(r chi.Router) {
		r.With(loginRateLimit).Post("/login", authHandler.Login)
		r.Get("/validate", authHandler.Validate)
	})
}
