// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cvms-ng/cvms-backend/internal/account"
	"github.com/cvms-ng/cvms-backend/internal/admin"
	"github.com/cvms-ng/cvms-backend/internal/audit"
	"github.com/cvms-ng/cvms-backend/internal/auth"
	"github.com/cvms-ng/cvms-backend/internal/config"
	"github.com/cvms-ng/cvms-backend/internal/core"
	"github.com/cvms-ng/cvms-backend/internal/health"
	"github.com/cvms-ng/cvms-backend/internal/middleware"
	"github.com/cvms-ng/cvms-backend/internal/notify"
	"github.com/cvms-ng/cvms-backend/internal/server"
	"github.com/cvms-ng/cvms-backend/internal/subaccount"
	"github.com/cvms-ng/cvms-backend/internal/verification"
	"github.com/cvms-ng/cvms-backend/internal/vin"
)

const (
	drainDelay = 5 * time.Second
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen // bootstrap code is inherently verbose
func run(configPath string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	var telemetry *core.Telemetry
	if cfg.Otel.Enabled {
		tel, telErr := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
		if telErr != nil {
			logger.Warn("failed to initialize telemetry", "error", telErr)
		} else {
			telemetry = tel
			logger.Info("OpenTelemetry tracer initialized",
				"endpoint", cfg.Otel.Endpoint,
			)
		}
	}

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	logger.Info("database connected",
		"max_open_conns", cfg.Database.MaxOpenConns,
		"max_idle_conns", cfg.Database.MaxIdleConns,
	)

	redis, err := core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	logger.Info("redis connected",
		"pool_size", cfg.Redis.PoolSize,
	)

	if cfg.IsDevelopment() {
		if _, statErr := os.Stat(cfg.JWT.PrivateKeyPath); errors.Is(
			statErr, os.ErrNotExist,
		) {
			logger.Warn("signing keys missing, generating a development pair",
				"private_key", cfg.JWT.PrivateKeyPath,
			)
			if genErr := auth.GenerateKeyPair(
				cfg.JWT.PrivateKeyPath,
				cfg.JWT.PublicKeyPath,
			); genErr != nil {
				return genErr
			}
		}
	}

	jwtManager, err := auth.NewJWTManager(cfg.JWT)
	if err != nil {
		return err
	}
	logger.Info("JWT manager initialized", "algorithm", "ES256")

	mailer := notify.NewMailer(cfg.Notify, cfg.App.BaseURL, logger)
	sms := notify.NewSMSSender(cfg.Notify, logger)

	auditRepo := audit.NewRepository(db.DB)
	auditSvc := audit.NewService(auditRepo, logger)
	auditHandler := audit.NewHandler(auditSvc)

	accountRepo := account.NewRepository(db.DB)
	accountSvc := account.NewService(db.DB, accountRepo, mailer, sms, logger)
	accountHandler := account.NewHandler(accountSvc)

	authRepo := auth.NewRepository(db.DB)
	authSvc := auth.NewService(
		authRepo, jwtManager, accountSvc, mailer, auditSvc, redis.Client,
	)
	authHandler := auth.NewHandler(authSvc)

	subRepo := subaccount.NewRepository(db.DB)
	subSvc := subaccount.NewService(db.DB, subRepo, logger)
	subHandler := subaccount.NewHandler(subSvc)

	ninClient := verification.NewNINClient(cfg.Verify, logger)
	verRepo := verification.NewRepository(db.DB)
	verSvc := verification.NewService(
		verRepo, accountSvc, ninClient, mailer, cfg.Storage.MediaRoot, logger,
	)
	verHandler := verification.NewHandler(verSvc)

	statusClient := vin.NewStatusClient(cfg.Vin, logger)
	vinRepo := vin.NewRepository(db.DB)
	vinSvc := vin.NewService(
		db.DB, vinRepo, statusClient, cfg.Storage.UploadRoot, logger,
	)
	vinHandler := vin.NewHandler(vinSvc)

	healthHandler := health.NewHandler(db, redis)

	adminHandler := admin.NewHandler(admin.HandlerConfig{
		Stats:      admin.NewStatsRepository(db.DB),
		DBStats:    db.Stats,
		RedisStats: redis.PoolStats,
		DBPing:     db.Ping,
		RedisPing:  redis.Ping,
	})

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(logger))
	router.Use(
		middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
			Limit: middleware.PerMinute(
				cfg.RateLimit.Requests,
				cfg.RateLimit.Burst,
			),
			FailOpen: true,
		}).Handler,
	)
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.CORS(cfg.CORS))

	healthHandler.RegisterRoutes(router)

	router.Get("/.well-known/jwks.json", jwtManager.GetJWKSHandler())

	authenticator := middleware.Authenticator(authSvc)
	roleLimiter := middleware.RoleRateLimiter(
		redis.Client, middleware.DefaultRoleLimits,
	)
	authenticated := func(next http.Handler) http.Handler {
		return authenticator(roleLimiter(next))
	}
	adminOnly := middleware.RequireAdmin

	router.Route("/v1", func(r chi.Router) {
		accountHandler.RegisterRoutes(r, authenticated)
		authHandler.RegisterRoutes(r, authenticated)
		verHandler.RegisterRoutes(r, authenticated)
		subHandler.RegisterRoutes(r, authenticated)
		vinHandler.RegisterRoutes(r, authenticated)
		auditHandler.RegisterRoutes(r, authenticated)
		adminHandler.RegisterRoutes(r, authenticated, adminOnly)
	})

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	if err := redis.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	if err := db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("application stopped")
	return nil
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
