package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tokenarcade/relay/service/config"
	"github.com/tokenarcade/relay/service/db"
	"github.com/tokenarcade/relay/service/events"
	"github.com/tokenarcade/relay/service/metrics"
	"github.com/tokenarcade/relay/service/solana"
	"github.com/tokenarcade/relay/service/temporal"
)

func main() {
	// Load and validate configuration from environment.
	cfg := config.MustLoad()

	logger := setupLogger(cfg.LogLevel)
	logger.Info("starting confirmation follow-up worker",
		"temporal_address", cfg.TemporalAddress,
		"namespace", cfg.TemporalNamespace,
		"task_queue", cfg.TemporalTaskQueue,
		"log_level", cfg.LogLevel,
	)

	if !cfg.FollowUpEnabled() {
		logger.Error("TEMPORAL_ADDRESS is required for the worker")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Prometheus metrics collector (default registry).
	metricsCollector := metrics.NewMetrics(nil)

	// Metrics HTTP server. The worker has no API surface, only /metrics.
	metricsAddr := getEnv("METRICS_ADDR", ":9091")
	metricsServer := &http.Server{
		Addr:    metricsAddr,
		Handler: promhttp.Handler(),
	}
	go func() {
		logger.Info("starting metrics HTTP server", "addr", metricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown metrics server", "error", err)
		}
	}()

	// RPC endpoint pool for status sweeps.
	pool := solana.NewPool(cfg.SolanaRPCURL, solana.DefaultFallbackURLs, solana.NewRPCClient)
	confirmer := solana.NewConfirmer(pool, cfg.ConfirmMaxPolls, cfg.ConfirmPollInterval, metricsCollector, logger)
	logger.Info("initialized RPC endpoint pool",
		"primary", cfg.SolanaRPCURL,
		"total_endpoints", len(pool.Endpoints()),
	)

	// Submission journal. Optional: without it final statuses are only
	// published, not persisted.
	var store *db.Store
	if cfg.JournalEnabled() {
		dbPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer dbPool.Close()

		if err := dbPool.Ping(ctx); err != nil {
			logger.Error("failed to ping database", "error", err)
			os.Exit(1)
		}
		store = db.NewStore(dbPool)
		logger.Info("connected to database, submission journal enabled")
	} else {
		logger.Warn("DATABASE_URL not set, journal writes disabled")
	}

	// Event publisher. Optional.
	var publisher events.Publisher
	if cfg.EventsEnabled() {
		jsPublisher, err := events.NewPublisher(cfg.NATSURL, metricsCollector, logger)
		if err != nil {
			logger.Error("failed to create NATS publisher", "error", err)
			os.Exit(1)
		}
		defer jsPublisher.Close()
		publisher = jsPublisher
		logger.Info("connected to NATS", "url", cfg.NATSURL)
	} else {
		logger.Warn("NATS_URL not set, event publishing disabled")
	}

	workerConfig := temporal.WorkerConfig{
		TemporalAddress:   cfg.TemporalAddress,
		TemporalNamespace: cfg.TemporalNamespace,
		TaskQueue:         cfg.TemporalTaskQueue,
		Checker:           confirmer,
		Metrics:           metricsCollector,
		Logger:            logger,
	}
	if store != nil {
		workerConfig.Store = store
	}
	if publisher != nil {
		workerConfig.Publisher = publisher
	}

	worker, err := temporal.NewWorker(workerConfig)
	if err != nil {
		logger.Error("failed to create temporal worker", "error", err)
		os.Exit(1)
	}

	logger.Info("worker initialized, all dependencies ready",
		"journal", cfg.JournalEnabled(),
		"events", cfg.EventsEnabled(),
	)

	workerErrors := make(chan error, 1)
	go func() {
		logger.Info("starting temporal worker")
		workerErrors <- worker.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-workerErrors:
		logger.Error("temporal worker error", "error", err)
		os.Exit(1)
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())

		logger.Info("stopping temporal worker")
		worker.Stop()
		logger.Info("worker shutdown complete")
	}
}

// setupLogger creates a structured logger with the given log level.
func setupLogger(levelStr string) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// getEnv returns the value of an environment variable or a default if not set.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
