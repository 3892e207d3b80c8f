package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/BradenHooton/tavern-gate/internal/auth"
	"github.com/BradenHooton/tavern-gate/internal/background"
	"github.com/BradenHooton/tavern-gate/internal/config"
	"github.com/BradenHooton/tavern-gate/internal/database"
	"github.com/BradenHooton/tavern-gate/internal/handlers"
	middlewareCustom "github.com/BradenHooton/tavern-gate/internal/middleware"
	"github.com/BradenHooton/tavern-gate/internal/repositories"
	"github.com/BradenHooton/tavern-gate/internal/routes"
	"github.com/BradenHooton/tavern-gate/internal/services"
	pkgauth "github.com/BradenHooton/tavern-gate/pkg/auth"
	"github.com/BradenHooton/tavern-gate/pkg/geoip"
	pkghttp "github.com/BradenHooton/tavern-gate/pkg/http"
	pkglogger "github.com/BradenHooton/tavern-gate/pkg/logger"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.Server.LogLevel)}))
	slog.SetDefault(logger)

	logger.Info("configuration loaded",
		slog.String("env", cfg.Server.Env),
		slog.String("db_driver", cfg.Database.Driver),
		slog.String("rate_limit_scope", cfg.Auth.RateLimitScope))

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	migrateCtx, migrateCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.Migrate(migrateCtx); err != nil {
		migrateCancel()
		logger.Error("failed to apply migrations", slog.Any("error", err))
		os.Exit(1)
	}
	migrateCancel()

	// Initialize repositories
	attemptRepo := repositories.NewLoginAttemptRepository(db)
	blockRepo := repositories.NewBlockRepository(db)
	tokenRepo := repositories.NewAuthTokenRepository(db)

	verifier, err := pkgauth.NewPassphraseVerifier(cfg.Auth.Passphrase, cfg.Auth.PassphraseHash)
	if err != nil {
		logger.Error("invalid LOGIN_PASSPHRASE_HASH", slog.Any("error", err))
		os.Exit(1)
	}
	if cfg.Auth.PassphraseHash == "" && cfg.Auth.Passphrase == config.DefaultPassphrase {
		logger.Warn("using the default login passphrase; set LOGIN_PASSPHRASE or LOGIN_PASSPHRASE_HASH")
	}

	ipConfig, invalidProxies := pkghttp.NewIPConfig(cfg.Server.TrustedProxies)
	if len(invalidProxies) > 0 {
		logger.Warn("ignoring invalid TRUSTED_PROXIES entries", slog.String("entries", strings.Join(invalidProxies, ",")))
	}

	auditLogger := pkglogger.NewAuditLogger(logger, cfg.Server.Env)

	// Timing delay for rejected logins
	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelayMs:   cfg.Auth.TimingDelayBaseMs,
		RandomDelayMs: cfg.Auth.TimingDelayRandomMs,
	})

	// Block alerts via AWS SES when configured
	var notifier services.BlockNotifier = services.NoopBlockNotifier{}
	if cfg.AlertsEnabled() {
		sesCtx, sesCancel := context.WithTimeout(context.Background(), 10*time.Second)
		sesNotifier, err := services.NewSESBlockNotifier(sesCtx, cfg.Alert.AWSRegion, cfg.Alert.EmailFrom, cfg.Alert.EmailTo, logger)
		sesCancel()
		if err != nil {
			logger.Error("failed to initialize block alerts", slog.Any("error", err))
			os.Exit(1)
		}
		notifier = sesNotifier
		logger.Info("block alerts enabled", slog.String("region", cfg.Alert.AWSRegion))
	}

	gatekeeper := services.NewGatekeeperService(
		db,
		attemptRepo,
		blockRepo,
		tokenRepo,
		verifier,
		timingDelay,
		notifier,
		services.GatekeeperConfig{
			MaxFailedAttempts: cfg.Auth.MaxFailedAttempts,
			FailureWindow:     cfg.Auth.FailureWindow,
			BlockDuration:     cfg.Auth.BlockDuration,
			TokenTTL:          cfg.Auth.TokenTTL,
		},
		logger,
		auditLogger,
	)

	if cfg.Alert.GeoIPDBPath != "" {
		geoReader, err := geoip.Open(cfg.Alert.GeoIPDBPath)
		if err != nil {
			logger.Warn("country lookups disabled", slog.Any("error", err))
		} else {
			defer geoReader.Close()
			gatekeeper.SetLocator(geoReader)
			logger.Info("country lookups enabled", slog.String("path", cfg.Alert.GeoIPDBPath))
		}
	}

	cookieConfig := auth.DefaultCookieConfig(cfg.IsProduction())
	cookieConfig.MaxAge = cfg.Auth.CookieMaxAge

	authHandler := handlers.NewAuthHandler(gatekeeper, ipConfig, cookieConfig, cfg.Server.FrontendURL)

	router := routes.NewRouter(routes.RouterConfig{
		AuthHandler: authHandler,
		Health:      db,
		Logger:      logger,
		AuditLogger: auditLogger,
		IPConfig:    ipConfig,
		RateLimit: middlewareCustom.RateLimitConfig{
			Requests: cfg.Auth.RateLimitRequests,
			Window:   cfg.Auth.RateLimitWindow,
			Scope:    cfg.Auth.RateLimitScope,
			IPConfig: ipConfig,
		},
		CORS:           middlewareCustom.DefaultCORSConfig(cfg.Server.FrontendURL),
		Env:            cfg.Server.Env,
		RequestTimeout: cfg.Server.WriteTimeout,
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start cleanup task
	cleanupManager := background.NewCleanupManager(blockRepo, tokenRepo, cfg.Auth.TokenTTL, logger, cfg.Auth.CleanupInterval)
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	go cleanupManager.Start(cleanupCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	// Let in-flight block alerts finish
	gatekeeper.WaitForAlerts()

	logger.Info("server stopped gracefully")
}

func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}
