package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tokenarcade/relay/service/config"
	"github.com/tokenarcade/relay/service/db"
	"github.com/tokenarcade/relay/service/events"
	"github.com/tokenarcade/relay/service/metrics"
	"github.com/tokenarcade/relay/service/relay"
	"github.com/tokenarcade/relay/service/server"
	"github.com/tokenarcade/relay/service/solana"
	"github.com/tokenarcade/relay/service/temporal"
	"github.com/tokenarcade/relay/service/wallet"
)

func main() {
	// Load and validate configuration from environment.
	// This fails fast if any required config is missing or invalid.
	cfg := config.MustLoad()

	logger := setupLogger(cfg.LogLevel)
	logger.Info("starting relay server",
		"addr", cfg.ServerAddr(),
		"log_level", cfg.LogLevel,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Prometheus metrics collector (default registry).
	metricsCollector := metrics.NewMetrics(nil)

	// Signing wallet. An empty or invalid secret runs the relay in
	// read-only mode rather than crashing.
	walletManager, err := wallet.NewManager(cfg.WalletSecretKey, logger)
	if err != nil {
		logger.Error("failed to load signing key, continuing unconfigured", "error", err)
	}
	defer walletManager.Close()

	// RPC endpoint pool: configured primary plus public fallbacks.
	pool := solana.NewPool(cfg.SolanaRPCURL, solana.DefaultFallbackURLs, solana.NewRPCClient)
	logger.Info("initialized RPC endpoint pool",
		"primary", cfg.SolanaRPCURL,
		"total_endpoints", len(pool.Endpoints()),
	)

	submitter := solana.NewSubmitter(pool, cfg.SubmitMaxAttempts, metricsCollector, logger)
	reader := solana.NewReader(pool, metricsCollector, logger)

	// Connectivity probe: a failed blockhash fetch is worth a loud warning
	// at startup, but endpoints may recover, so it is not fatal.
	if blockhash, err := reader.LatestBlockhash(ctx); err != nil {
		logger.Warn("chain connectivity probe failed on all endpoints", "error", err)
	} else {
		logger.Info("chain connectivity verified", "blockhash", blockhash)
	}

	confirmer := solana.NewConfirmer(pool, cfg.ConfirmMaxPolls, cfg.ConfirmPollInterval, metricsCollector, logger)
	concentrationCache := solana.NewConcentrationCache(
		reader.Concentration,
		cfg.ConcentrationCacheSize,
		cfg.ConcentrationCacheTTL,
		metricsCollector,
		logger,
	)

	// Submission journal. Optional: without DATABASE_URL the relay runs
	// without persistence.
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
		logger.Warn("DATABASE_URL not set, submission journal disabled")
	}

	// Event publisher. Optional: without NATS_URL no lifecycle events are
	// published.
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

	// Temporal client for confirmation follow-ups. Optional: without
	// TEMPORAL_ADDRESS unconfirmed submissions stay unconfirmed.
	var starter temporal.Starter
	if cfg.FollowUpEnabled() {
		temporalClient, err := temporal.NewClient(
			cfg.TemporalAddress,
			cfg.TemporalNamespace,
			cfg.TemporalTaskQueue,
			logger,
		)
		if err != nil {
			logger.Error("failed to create temporal client", "error", err)
			os.Exit(1)
		}
		defer temporalClient.Close()
		starter = temporalClient
		logger.Info("connected to temporal",
			"address", cfg.TemporalAddress,
			"namespace", cfg.TemporalNamespace,
			"task_queue", cfg.TemporalTaskQueue,
		)
	} else {
		logger.Warn("TEMPORAL_ADDRESS not set, confirmation follow-up disabled")
	}

	relayCfg := relay.Config{
		Signer:    walletManager,
		Submitter: submitter,
		Confirmer: confirmer,
		Publisher: publisher,
		Starter:   starter,
		Metrics:   metricsCollector,
		Logger:    logger,
	}
	if store != nil {
		relayCfg.Journal = store
	}
	relayService := relay.NewService(relayCfg)

	serverCfg := server.Config{
		Addr:    cfg.ServerAddr(),
		Relay:   relayService,
		Reader:  reader,
		Conc:    concentrationCache,
		Checker: confirmer,
		Metrics: metricsCollector,
		Logger:  logger,
	}
	if store != nil {
		serverCfg.Journal = store
	}
	httpServer := server.New(serverCfg)

	logger.Info("relay server initialized, all dependencies ready",
		"wallet_configured", walletManager.IsConfigured(),
		"journal", cfg.JournalEnabled(),
		"events", cfg.EventsEnabled(),
		"follow_up", cfg.FollowUpEnabled(),
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- httpServer.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error("server error", "error", err)
		os.Exit(1)
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown server gracefully", "error", err)
			os.Exit(1)
		}

		logger.Info("server shutdown complete")
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
