package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/BradenHooton/warden/internal/auth"
	"github.com/BradenHooton/warden/internal/background"
	"github.com/BradenHooton/warden/internal/config"
	"github.com/BradenHooton/warden/internal/database"
	"github.com/BradenHooton/warden/internal/handlers"
	"github.com/BradenHooton/warden/internal/metrics"
	"github.com/BradenHooton/warden/internal/middleware"
	"github.com/BradenHooton/warden/internal/repositories"
	"github.com/BradenHooton/warden/internal/routes"
	"github.com/BradenHooton/warden/internal/services"
	"github.com/BradenHooton/warden/internal/worker"
	pkgauth "github.com/BradenHooton/warden/pkg/auth"
	pkghttp "github.com/BradenHooton/warden/pkg/http"
	pkglogger "github.com/BradenHooton/warden/pkg/logger"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	var autoMigrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long:  `Start the HTTP API, the hashing pool and the background cleanup.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, autoMigrate)
		},
	}

	cmd.Flags().BoolVar(&autoMigrate, "migrate", false, "apply pending migrations before serving")

	return cmd
}

func runServe(cmd *cobra.Command, autoMigrate bool) error {
	cfg, err := config.Load()
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}

	logger := newLogger(cfg.Server.LogLevel, os.Stdout)
	slog.SetDefault(logger)
	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewConnection(ctx, &cfg.Database, logger)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer db.Close()

	if autoMigrate {
		if err := database.MigrateUp(ctx, db.Pool, logger); err != nil {
			return oops.Code("MIGRATION_FAILED").With("operation", "migrate up").Wrap(err)
		}
	}

	registry, m := metrics.NewRegistry()

	// Hashing
	pool := worker.New(cfg.Hash.Workers, cfg.Hash.QueueSize, worker.WithQueueObserver(m.HashQueue))
	defer pool.Close()
	m.HashWorkers.Set(float64(pool.Size()))

	params := pkgauth.DefaultHashParams()
	params.Lanes = cfg.Hash.Lanes
	params.TimeCost = cfg.Hash.TimeCost
	params.MemoryKiB = cfg.Hash.MemoryKiB
	hasher := auth.NewHasher(pool, cfg.Hash.Secret, params)

	tokens := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Expiration, cfg.JWT.Issuer)
	audit := pkglogger.NewAuditLogger(logger)

	// Repositories
	credRepo := repositories.NewCredentialRepository(db.Pool)
	historyRepo := repositories.NewLoginHistoryRepository(db.Pool)
	resetRepo := repositories.NewPasswordResetRepository(db.Pool)

	// Services
	lockout := services.NewLoginHistoryService(historyRepo, services.LockoutPolicy{
		AllowedFailedAttempts: cfg.Security.AllowedFailedLoginAttempts,
		LockDuration:          cfg.Security.AccountLockDuration,
	}, logger, audit, m)

	credService := services.NewCredentialService(credRepo, hasher, lockout, tokens, logger, audit, m)

	var mailer services.ResetMailer
	if cfg.Email.Enabled {
		sesMailer, err := services.NewSESResetMailer(ctx, cfg.Email.AWSRegion, cfg.Email.FromEmail, cfg.Email.ResetURL, logger)
		if err != nil {
			return oops.Code("MAILER_INIT_FAILED").Wrap(err)
		}
		mailer = sesMailer
	} else {
		logger.Warn("email delivery disabled, reset tickets will not be sent")
	}

	resetService := services.NewPasswordResetService(resetRepo, credRepo, hasher, mailer, services.PasswordResetConfig{
		TimePeriod:      cfg.Security.PasswordResetTimePeriod,
		MinResponseTime: cfg.Security.ResetMinResponseTime,
	}, logger, audit, m)

	// HTTP
	ipConfig := pkghttp.NewIPConfig(cfg.Server.TrustedProxies)

	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(middleware.SecurityHeaders(middleware.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.Server.AllowedOrigins)))
	router.Use(middleware.SecureLogger(logger, ipConfig))
	router.Use(chimiddleware.Recoverer)
	router.Use(chimiddleware.Timeout(60 * time.Second))

	routes.RegisterRoutes(
		router,
		handlers.NewCredentialHandler(credService, logger),
		handlers.NewResetHandler(resetService, logger),
		handlers.Health(db),
		metrics.Handler(registry),
	)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Background cleanup
	cleanup := background.NewCleanupManager(resetRepo, historyRepo, background.CleanupConfig{
		Interval:      cfg.Security.CleanupInterval,
		ResetLifetime: cfg.Security.PasswordResetTimePeriod,
		StreakWindow:  cfg.Security.AccountLockDuration,
	}, logger, m)
	go cleanup.Start(ctx)
	defer cleanup.Stop()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return oops.Code("SERVER_FAILED").Wrap(err)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return oops.Code("SHUTDOWN_FAILED").Wrap(err)
	}
	resetService.Wait()

	logger.Info("server stopped gracefully")
	cmd.Println("warden stopped")
	return nil
}
