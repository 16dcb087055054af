package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/BradenHooton/adminauth/internal/auth"
	"github.com/BradenHooton/adminauth/internal/background"
	"github.com/BradenHooton/adminauth/internal/config"
	"github.com/BradenHooton/adminauth/internal/database"
	"github.com/BradenHooton/adminauth/internal/handlers"
	"github.com/BradenHooton/adminauth/internal/middleware"
	"github.com/BradenHooton/adminauth/internal/repositories"
	"github.com/BradenHooton/adminauth/internal/routes"
	"github.com/BradenHooton/adminauth/internal/services"
	pkgauth "github.com/BradenHooton/adminauth/pkg/auth"
	pkghttp "github.com/BradenHooton/adminauth/pkg/http"
	pkglogger "github.com/BradenHooton/adminauth/pkg/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// errMissingCredentials keeps the server from starting without an admin account
var errMissingCredentials = errors.New("admin credentials are not configured")

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, logCloser := pkglogger.New(pkglogger.Config{
		Level: cfg.Server.LogLevel,
		File:  cfg.Server.LogFile,
	})
	defer logCloser.Close()
	slog.SetDefault(logger)

	logger.Info("configuration loaded",
		slog.String("env", cfg.Server.Env),
		slog.String("attempt_store", cfg.RateLimit.Store))

	if !cfg.Admin.Configured() {
		logger.Error("ADMIN_USERNAME and ADMIN_PASSWORD (or ADMIN_PASSWORD_HASH) must be set")
		return errMissingCredentials
	}
	if cfg.Admin.PasswordHash != "" && !pkgauth.IsBcryptHash(cfg.Admin.PasswordHash) {
		return fmt.Errorf("ADMIN_PASSWORD_HASH is not a bcrypt hash")
	}

	ipConfig, err := pkghttp.NewIPConfig(cfg.Server.TrustedProxies)
	if err != nil {
		return fmt.Errorf("invalid TRUSTED_PROXIES: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		store    repositories.AttemptStore
		dbHealth handlers.HealthChecker
	)
	switch cfg.RateLimit.Store {
	case config.StorePostgres:
		db, err := database.NewConnection(&cfg.Database, logger)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()

		if err := db.Migrate(ctx); err != nil {
			return err
		}
		store = repositories.NewLoginAttemptRepository(db)
		dbHealth = db
	default:
		memStore, err := repositories.NewMemoryAttemptStore(cfg.RateLimit.MaxIdentities)
		if err != nil {
			return err
		}
		store = memStore
	}

	// Initialize services
	rateLimiter := services.NewRateLimitService(store, services.RateLimitConfig{
		MaxAttempts:     cfg.RateLimit.MaxAttempts,
		Window:          cfg.RateLimit.Window,
		LockoutDuration: cfg.RateLimit.Lockout,
	}, logger)

	validator := auth.NewCredentialValidator(auth.Credentials{
		Username:     cfg.Admin.Username,
		Password:     cfg.Admin.Password,
		PasswordHash: cfg.Admin.PasswordHash,
	})
	totpManager := auth.NewTOTPManager(cfg.Admin.TOTPSecret, cfg.Admin.TOTPIssuer, cfg.Admin.Username)
	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelay:   cfg.RateLimit.FailureDelay,
		RandomDelay: cfg.RateLimit.FailureJitter,
	})
	authService := services.NewAuthService(validator, totpManager, rateLimiter, timingDelay, logger, cfg.Server.Env)

	sessions := auth.NewSessionManager(auth.SessionConfig{
		Secret:   cfg.Session.Secret,
		Duration: cfg.Session.Duration,
		Cookie: auth.CookieConfig{
			Domain:   cfg.Session.CookieDomain,
			Secure:   cfg.Server.IsProduction(),
			SameSite: cfg.Session.SameSite,
		},
	}, logger)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, sessions, totpManager, ipConfig, logger)
	healthHandler := handlers.NewHealthHandler(dbHealth)

	router := routes.NewRouter(routes.RouterConfig{
		AuthHandler:   authHandler,
		HealthHandler: healthHandler,
		Sessions:      sessions,
		LoginRateLimit: middleware.RateLimitConfig{
			RequestsPerMinute: cfg.RateLimit.LoginRequestsPerMinute,
			IPConfig:          ipConfig,
		},
		CORS:     middleware.DefaultCORSConfig(cfg.Server.AllowedOrigins),
		IPConfig: ipConfig,
		Env:      cfg.Server.Env,
		Logger:   logger,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start cleanup task
	cleanupManager := background.NewCleanupManager(store, logger, cfg.RateLimit.CleanupInterval)
	go cleanupManager.Start(ctx)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			slog.String("addr", server.Addr),
			slog.Bool("totp_enabled", totpManager.Enabled()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			cleanupManager.Stop()
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	logger.Info("server stopped gracefully")
	return nil
}
