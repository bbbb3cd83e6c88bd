// Package main initializes and runs the flagon evaluation service.
//
// It is the composition root: configuration, logging, the definition store,
// the decision cache, the evaluation engine with its invalidation hook, and
// the HTTP surface are wired together here, with metrics on a separate
// listener and graceful shutdown on SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/flagonhq/flagon/internal/cache"
	"github.com/flagonhq/flagon/internal/config"
	"github.com/flagonhq/flagon/internal/engine"
	"github.com/flagonhq/flagon/internal/logger"
	"github.com/flagonhq/flagon/internal/server"
	"github.com/flagonhq/flagon/internal/store"
)

func main() {
	if err := run(); err != nil {
		log.Printf("Fatal error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// 1. Configuration & Logging
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger := logger.New(&cfg.App)
	slog.SetDefault(appLogger)
	cfg.LogConfig(appLogger)

	// 2. Decision cache: Redis when configured, otherwise in-process.
	cacheSvc, err := buildCache(ctx, cfg, appLogger)
	if err != nil {
		return err
	}
	defer cacheSvc.Close()

	// 3. Definition store. The database is required: universe defaults alone
	// cover startup races, not a deliberately storeless deployment.
	if !cfg.Database.IsConfigured() {
		return fmt.Errorf("database configuration is required (set FLAGON_DB_URL or FLAGON_DB_HOST)")
	}

	pool, err := store.NewPool(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	if err := store.Migrate(ctx, pool); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	notifier := store.NewNotifier()
	repo := store.NewPostgresStore(pool, notifier)

	// 4. Engine + invalidation wiring. Mutations through this process evict
	// their cache entries synchronously with the commit.
	eng := engine.New(&cfg.Toggles, repo, cacheSvc, appLogger)
	engine.NewInvalidator(&cfg.Toggles, cacheSvc, appLogger).Bind(notifier)

	// 5. HTTP surfaces
	api := server.NewAPI(eng, &cfg.Toggles)

	apiServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      api.Router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:    net.JoinHostPort(cfg.Server.Host, cfg.Server.MetricsPort),
		Handler: metricsMux,
	}

	errChan := make(chan error, 2)
	go func() {
		appLogger.Info("evaluation API listening", slog.String("addr", apiServer.Addr))
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("api server failed: %w", err)
		}
	}()
	go func() {
		appLogger.Info("metrics listening", slog.String("addr", metricsServer.Addr))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("metrics server failed: %w", err)
		}
	}()

	// 6. Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		appLogger.Info("shutdown signal received", slog.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.App.ShutdownTimeout)
	defer cancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("api server shutdown failed", slog.Any("error", err))
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("metrics server shutdown failed", slog.Any("error", err))
	}

	appLogger.Info("service exited")
	return nil
}

// memoryCacheCapacity bounds the in-process cache when Redis is absent.
// Three keys per flag plus one per switch and sample fits comfortably.
const memoryCacheCapacity = 100_000

func buildCache(ctx context.Context, cfg *config.Config, log *slog.Logger) (cache.Service, error) {
	if !cfg.Redis.IsConfigured() {
		log.Warn("redis not configured, using in-process decision cache")
		return cache.NewMemoryCache(memoryCacheCapacity, cfg.Toggles.CacheTTL)
	}

	client, err := cache.NewRedisClient(ctx, &cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return cache.NewRedisCache(client), nil
}
