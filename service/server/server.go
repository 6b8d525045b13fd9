// Package server exposes the relay over HTTP: submission, journal lookups,
// live status checks, and chain read endpoints.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tokenarcade/relay/service/db"
	"github.com/tokenarcade/relay/service/metrics"
	"github.com/tokenarcade/relay/service/relay"
	"github.com/tokenarcade/relay/service/solana"
)

// RelayService is the submission surface the server fronts.
// *relay.Service satisfies this.
type RelayService interface {
	WalletConfigured() bool
	WalletPublicKey() (string, bool)
	SubmitAndConfirm(ctx context.Context, base64Tx string) relay.Outcome
}

// ChainReader answers read-only chain queries. *solana.Reader satisfies
// this, except Concentration which is served through the cache.
type ChainReader interface {
	Balance(ctx context.Context, address string) (uint64, error)
	TokenBalance(ctx context.Context, owner, mint string) (uint64, error)
	TokenDecimals(ctx context.Context, mint string) (uint8, error)
	AssociatedTokenAccount(ctx context.Context, owner, mint string) (string, error)
}

// ConcentrationSource serves holder-concentration lookups.
// *solana.ConcentrationCache satisfies this.
type ConcentrationSource interface {
	Get(ctx context.Context, mint string) *solana.Concentration
}

// StatusChecker runs a live one-shot signature status sweep.
// *solana.Confirmer satisfies this.
type StatusChecker interface {
	CheckStatus(ctx context.Context, signature string) (*solana.Status, error)
}

// Journal is the read side of the submission journal. *db.Store satisfies
// this. A nil Journal disables the journal endpoints.
type Journal interface {
	GetSubmissionBySignature(ctx context.Context, signature string) (*db.Submission, error)
	ListSubmissions(ctx context.Context, limit int32) ([]*db.Submission, error)
}

// Server is the relay's HTTP front end.
type Server struct {
	addr    string
	relay   RelayService
	reader  ChainReader
	conc    ConcentrationSource
	checker StatusChecker
	journal Journal
	metrics *metrics.Metrics
	logger  *slog.Logger
	server  *http.Server
}

// Config collects the Server dependencies. Journal and Metrics are
// optional; the other fields are required.
type Config struct {
	Addr    string
	Relay   RelayService
	Reader  ChainReader
	Conc    ConcentrationSource
	Checker StatusChecker
	Journal Journal          // Optional
	Metrics *metrics.Metrics // Optional
	Logger  *slog.Logger
}

// New creates an HTTP server with the given dependencies.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		addr:    cfg.Addr,
		relay:   cfg.Relay,
		reader:  cfg.Reader,
		conc:    cfg.Conc,
		checker: cfg.Checker,
		journal: cfg.Journal,
		metrics: cfg.Metrics,
		logger:  logger,
	}
}

// Handler builds the route table. Exposed so tests can drive the full mux
// through httptest without a listening socket.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /api/v1/wallet", handleGetWallet(s.relay, s.logger))
	mux.Handle("POST /api/v1/submissions", handleSubmit(s.relay, s.logger))
	mux.Handle("GET /api/v1/submissions/{signature}/status", handleGetStatus(s.checker, s.logger))

	if s.journal != nil {
		mux.Handle("GET /api/v1/submissions", handleListSubmissions(s.journal, s.logger))
		mux.Handle("GET /api/v1/submissions/{signature}", handleGetSubmission(s.journal, s.logger))
	} else {
		s.logger.Warn("journal not configured, submission listing endpoints disabled")
	}

	mux.Handle("GET /api/v1/wallets/{address}/balance", handleGetBalance(s.reader, s.logger))
	mux.Handle("GET /api/v1/wallets/{address}/tokens/{mint}/balance", handleGetTokenBalance(s.reader, s.logger))
	mux.Handle("GET /api/v1/wallets/{address}/tokens/{mint}/account", handleGetTokenAccount(s.reader, s.logger))
	mux.Handle("GET /api/v1/tokens/{mint}/decimals", handleGetTokenDecimals(s.reader, s.logger))
	mux.Handle("GET /api/v1/tokens/{mint}/concentration", handleGetConcentration(s.conc, s.logger))

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	if s.metrics != nil {
		mux.Handle("GET /metrics", promhttp.Handler())
	}

	var handler http.Handler = mux
	if s.metrics != nil {
		handler = metrics.HTTPMetricsMiddleware(s.metrics, "api")(handler)
	}
	return corsMiddleware(handler)
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // submissions hold the request through the poll budget
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting HTTP server", "addr", s.addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// corsMiddleware adds CORS headers to all responses and handles OPTIONS
// preflight requests.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
