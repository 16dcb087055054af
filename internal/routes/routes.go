package routes

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/BradenHooton/adminauth/internal/auth"
	"github.com/BradenHooton/adminauth/internal/handlers"
	"github.com/BradenHooton/adminauth/internal/middleware"
	pkghttp "github.com/BradenHooton/adminauth/pkg/http"
)

// RouterConfig carries everything NewRouter wires together
type RouterConfig struct {
	AuthHandler    *handlers.AuthHandler
	HealthHandler  *handlers.HealthHandler
	Sessions       auth.SessionRequirer
	LoginRateLimit middleware.RateLimitConfig
	CORS           *middleware.CORSConfig
	IPConfig       *pkghttp.IPConfig
	Env            string
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

// NewRouter builds the HTTP handler with the global middleware stack
func NewRouter(cfg RouterConfig) chi.Router {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(middleware.SecurityHeaders(middleware.SecurityHeadersConfig{Env: cfg.Env}))
	if cfg.CORS != nil {
		router.Use(middleware.CORS(cfg.CORS))
	}
	router.Use(middleware.SecureLogger(cfg.Logger, cfg.IPConfig))
	router.Use(chimiddleware.Recoverer)
	router.Use(chimiddleware.Timeout(timeout))

	router.Get("/health", cfg.HealthHandler.Health)

	router.Route("/api/admin", func(r chi.Router) {
		RegisterRoutes(r, cfg.AuthHandler, cfg.Sessions, cfg.LoginRateLimit)
	})

	return router
}

// RegisterRoutes registers the admin auth routes on router
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	sessions auth.SessionRequirer,
	loginRateLimit middleware.RateLimitConfig,
) {
	// Public routes - no session required
	router.With(middleware.RateLimitByIP(loginRateLimit)).Post("/login", authHandler.Login)
	router.Post("/logout", authHandler.Logout)

	// Protected routes - session required
	router.Group(func(r chi.Router) {
		r.Use(auth.RequireSession(sessions))

		r.Get("/session", authHandler.Session)
		r.Get("/mfa/qr", authHandler.MFAQRCode)
	})
}
