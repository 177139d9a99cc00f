// Copyright (c) 2026 Altair. All rights reserved.
// Author: quang.nv.dn@gmail.com

// Command api is the entry point for the Altair identity API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool).
//  4. Connect to Redis.
//  5. Run database migrations (idempotent).
//  6. Wire HTTP handlers.
//  7. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
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

	"github.com/nvquang/altair/internal/api"
	"github.com/nvquang/altair/internal/identity/account"
	"github.com/nvquang/altair/internal/identity/auth"
	"github.com/nvquang/altair/internal/identity/oauth"
	"github.com/nvquang/altair/internal/identity/rbac"
	"github.com/nvquang/altair/internal/identity/session"
	"github.com/nvquang/altair/internal/identity/verify"
	"github.com/nvquang/altair/internal/platform/config"
	"github.com/nvquang/altair/internal/platform/constants"
	"github.com/nvquang/altair/internal/platform/mailer"
	"github.com/nvquang/altair/internal/platform/migration"
	pgstore "github.com/nvquang/altair/internal/platform/postgres"
	redisstore "github.com/nvquang/altair/internal/platform/redis"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Add global context to all log entries.
	log := rawLog.With(slog.String("app", constants.AppName))
	slog.SetDefault(log)

	log.Info("[Altair] service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", constants.AppName))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
	)

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// Long-lived context for background workers (rate limiter cleanup).
	// Cancelled only once shutdown begins.
	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing postgres pool")
		pool.Close()
	}()

	// ── 4. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing redis client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis close error", slog.Any("error", cerr))
		}
	}()

	// ── 5. Migrations ─────────────────────────────────────────────────────
	must(log, migration.Run(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 6. Outbound Mail ──────────────────────────────────────────────────
	var sender mailer.CodeSender
	if cfg.IsProduction() {
		sesSender, err := mailer.NewSESSender(startupCtx, cfg.AWSRegion, cfg.MailFromAddress)
		must(log, err, "initialize ses sender")
		sender = sesSender
	} else {
		sender = &mailer.LogSender{Logger: log}
	}

	// ── 7. Health handlers (wired with real dependency checkers) ──────────
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func() error {
			return pgstore.Ping(context.Background(), pool)
		},
		CheckCache: func() error {
			return redisstore.Ping(context.Background(), rdb)
		},
	}, log)

	// ── 8. Domain Wiring ──────────────────────────────────────────────────
	catalog := rbac.DefaultCatalog()

	sessionRepository := session.NewPostgresRepository(pool)
	sessionManager := session.NewManager(sessionRepository, cfg.SessionTTL, log)

	verifyRepository := verify.NewRedisRepository(rdb)
	verifier := verify.NewVerifier(verifyRepository, sender, cfg.CodeTTL, cfg.CodeMaxAttempts, cfg.ResendWindow, log)

	accountRepository := account.NewPostgresRepository(pool)
	accountService := account.NewService(accountRepository, sessionManager, catalog, log)
	accountHandler := account.NewHandler(accountService)

	providers := oauth.NewRegistry(oauthProviders(cfg)...)
	states := oauth.NewStateSigner(cfg.SessionSecret)
	linker := oauth.NewLinker(accountRepository, log)

	authService := auth.NewService(accountRepository, sessionManager, verifier, providers, states, linker, log)
	authHandler := auth.NewHandler(authService)

	// ── 9. HTTP Server ────────────────────────────────────────────────────
	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Auth:      authHandler,
		Account:   accountHandler,
	}

	server := api.NewServer(appCtx, cfg, log, authService, handlers)

	// ── 10. Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server stopped cleanly")
}

// oauthProviders builds the provider set from whatever credentials are
// configured. A provider with no client ID simply is not registered.
func oauthProviders(cfg *config.Config) []oauth.Provider {
	var providers []oauth.Provider

	if cfg.GoogleClientID != "" {
		providers = append(providers, oauth.NewGoogleProvider(
			cfg.GoogleClientID,
			cfg.GoogleClientSecret,
			cfg.OAuthRedirectBase+"/google/callback",
		))
	}

	if cfg.GithubClientID != "" {
		providers = append(providers, oauth.NewGitHubProvider(
			cfg.GithubClientID,
			cfg.GithubClientSecret,
			cfg.OAuthRedirectBase+"/github/callback",
		))
	}

	return providers
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is intentionally limited to startup wiring. After startup, all errors
// must be returned and handled explicitly (never panic).
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
