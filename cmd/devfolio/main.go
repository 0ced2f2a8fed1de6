// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package main is the entry point for the devfolio server.
// It loads configuration, connects to services, sets up routing, and starts
// the HTTP server with graceful shutdown support.
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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"devfolio/internal/artifact"
	"devfolio/internal/cache"
	"devfolio/internal/config"
	"devfolio/internal/database"
	"devfolio/internal/engine"
	"devfolio/internal/generate"
	"devfolio/internal/handlers"
	"devfolio/internal/metrics"
	"devfolio/internal/middleware"
	"devfolio/internal/provider/github"
	"devfolio/internal/publish"
	"devfolio/internal/router"
	"devfolio/internal/storage"
	"devfolio/internal/store"
)

// Generation hits the upstream provider, so each owner gets a small budget.
const (
	generateLimit  = 10
	generatePeriod = time.Minute
)

func main() {
	// Load configuration from environment variables and .env files.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Structured logger: text in development, JSON everywhere else.
	slog.SetDefault(newLogger(cfg))

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
		"strict_templates", cfg.StrictTemplates,
		"slug_cooldown_months", cfg.SlugCooldownMonths,
	)

	ctx := context.Background()

	// Connect to PostgreSQL.
	db, err := database.Connect(cfg.DSN())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run pending migrations.
	if err := database.Migrate(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Seed the default template (no-op if one already exists).
	if err := database.Seed(ctx, db); err != nil {
		slog.Error("failed to seed database", "error", err)
		os.Exit(1)
	}

	// Connect to Valkey (page cache and provider data cache).
	valkeyClient, err := cache.ConnectValkey(ctx, cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword, cfg.ValkeyDB)
	if err != nil {
		slog.Error("failed to connect to valkey", "error", err)
		os.Exit(1)
	}
	defer valkeyClient.Close()

	pageCache := cache.NewPageCache(valkeyClient, cfg.PageCacheTTL)
	sourceCache := cache.NewSourceCache(valkeyClient, cfg.ProviderCacheTTL)

	// Initialize data stores.
	portfolioStore := store.NewPortfolioStore(db)
	templateStore := store.NewTemplateStore(db)
	cacheLogStore := store.NewCacheLogStore(db)

	// The S3 mirror of published pages is optional.
	var mirror artifact.Mirror
	if cfg.StorageEnabled() {
		storageClient, err := storage.New(
			cfg.S3Endpoint, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey,
			cfg.S3Bucket, cfg.S3PublicURL,
		)
		if err != nil {
			slog.Error("failed to initialize S3 storage", "error", err)
			os.Exit(1)
		}
		if storageClient != nil {
			mirror = storageClient
			slog.Info("s3 mirror connected", "endpoint", cfg.S3Endpoint, "bucket", storageClient.Bucket())
		}
	} else {
		slog.Warn("s3 storage not configured, published pages are not mirrored")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.New(reg)

	distributor := artifact.NewDistributor(pageCache, mirror, cacheLogStore)

	eng := engine.New(templateStore,
		engine.WithStrict(cfg.StrictTemplates),
		engine.WithMetrics(recorder),
	)

	provider := github.New(cfg.GitHubAPIURL, cfg.GitHubToken, cfg.ProviderTimeout)
	if cfg.GitHubToken == "" {
		slog.Warn("GITHUB_TOKEN not set, provider requests use the anonymous rate limit")
	}

	pipeline := generate.New(provider, eng, portfolioStore,
		generate.WithCache(sourceCache),
		generate.WithTemplates(templateStore),
		generate.WithMetrics(recorder),
		generate.WithFetchTimeout(cfg.ProviderTimeout),
	)

	publisher := publish.New(portfolioStore,
		publish.WithDistributor(distributor),
		publish.WithMetrics(recorder),
		publish.WithCooldownMonths(cfg.SlugCooldownMonths),
		publish.WithBaseURL(cfg.BaseURL),
	)

	limiter := middleware.NewRateLimiter(generateLimit, generatePeriod)
	defer limiter.Stop()

	// Create handler groups with their dependencies.
	apiHandlers := handlers.NewAPI(pipeline, publisher, portfolioStore, templateStore, cacheLogStore)
	templateHandlers := handlers.NewTemplates(templateStore, eng)
	publicHandlers := handlers.NewPublic(portfolioStore, pageCache)
	health := handlers.NewHealth(map[string]handlers.CheckFunc{
		"database": db.PingContext,
		"valkey": func(ctx context.Context) error {
			return valkeyClient.Ping(ctx).Err()
		},
	})

	// Set up the Chi router with all middleware and routes.
	r := router.New(apiHandlers, templateHandlers, publicHandlers, health, recorder, limiter, []byte(cfg.OperatorTokenHash))

	// Create the HTTP server with sensible timeouts. WriteTimeout covers a
	// generation waiting on the provider.
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.ProviderTimeout + 30*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Start the server in a goroutine so we can listen for shutdown signals.
	go func() {
		slog.Info("server starting", "addr", cfg.Addr(), "base_url", cfg.BaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain connections.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}

func newLogger(cfg *config.Config) *slog.Logger {
	if cfg.IsDev() {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
}
