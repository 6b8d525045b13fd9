package solana

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tokenarcade/relay/service/metrics"
)

const (
	// DefaultMaxPrimaryAttempts is how many times the primary endpoint is
	// tried before the fallback sweep. Five attempts realize the full
	// 2s,4s,8s,16s backoff ladder.
	DefaultMaxPrimaryAttempts = 5

	submitRequestTimeout = 10 * time.Second
	backoffBase          = 2 * time.Second
	backoffCap           = 16 * time.Second
)

// Receipt describes how a submission went: which endpoint accepted the
// transaction (empty when none did) and how many sends were made.
type Receipt struct {
	Endpoint string
	Attempts int
}

// Submitter sends signed transactions through the endpoint pool.
//
// The primary endpoint is retried with exponential backoff, but only on
// rate-limit rejections; any other error fails the submission immediately
// because sendTransaction is not idempotent and a blind retry risks a
// double send. When the primary's attempt budget is exhausted, each
// fallback is tried once, in order.
//
// A Submitter holds no mutable state, so concurrent submissions from
// different callers are independent.
type Submitter struct {
	pool        *Pool
	maxAttempts int
	metrics     *metrics.Metrics
	logger      *slog.Logger

	sleep func(d time.Duration) // swapped out in tests
}

// NewSubmitter creates a submitter over the given pool.
// maxPrimaryAttempts <= 0 selects DefaultMaxPrimaryAttempts.
// If m is nil, no metrics are recorded.
func NewSubmitter(pool *Pool, maxPrimaryAttempts int, m *metrics.Metrics, logger *slog.Logger) *Submitter {
	if maxPrimaryAttempts <= 0 {
		maxPrimaryAttempts = DefaultMaxPrimaryAttempts
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Submitter{
		pool:        pool,
		maxAttempts: maxPrimaryAttempts,
		metrics:     m,
		logger:      logger,
		sleep:       time.Sleep,
	}
}

// backoff returns the delay before the given 1-based primary attempt's
// retry: 2s, 4s, 8s, 16s, capped at 16s.
func backoff(attempt int) time.Duration {
	d := backoffBase << uint(attempt-1)
	if d > backoffCap {
		d = backoffCap
	}
	return d
}

// Submit sends signed transaction bytes and returns the base58 signature
// string the network knows the transaction by, the endpoint that accepted
// it, and how many sends were made in total.
func (s *Submitter) Submit(ctx context.Context, signedTx []byte) (string, *Receipt, error) {
	primary := s.pool.Primary()
	receipt := &Receipt{}

	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		receipt.Attempts++
		sig, err := s.send(ctx, primary, signedTx)
		if err == nil {
			receipt.Endpoint = primary.URL
			s.logger.InfoContext(ctx, "transaction submitted",
				"endpoint", primary.URL,
				"signature", sig,
				"attempt", attempt,
			)
			return sig, receipt, nil
		}

		if !isRateLimited(err) {
			// Non-rate-limit errors never retry and never reach the
			// fallbacks: the primary gave a definitive answer.
			s.logger.ErrorContext(ctx, "transaction submission failed",
				"endpoint", primary.URL,
				"attempt", attempt,
				"error", err,
			)
			return "", receipt, fmt.Errorf("send transaction: %w", err)
		}

		s.metrics.RecordRateLimitHit(primary.URL)
		lastErr = err

		if attempt < s.maxAttempts {
			wait := backoff(attempt)
			s.logger.WarnContext(ctx, "rate limited, sleeping before retry",
				"endpoint", primary.URL,
				"attempt", attempt,
				"backoff", wait,
			)
			s.sleep(wait)
		}
	}

	s.logger.WarnContext(ctx, "primary endpoint exhausted, sweeping fallbacks",
		"endpoint", primary.URL,
		"attempts", s.maxAttempts,
	)

	for _, fb := range s.pool.Fallbacks() {
		s.metrics.RecordEndpointFailover(fb.URL, "send_transaction")
		receipt.Attempts++
		sig, err := s.send(ctx, fb, signedTx)
		if err == nil {
			receipt.Endpoint = fb.URL
			s.logger.InfoContext(ctx, "transaction submitted via fallback",
				"endpoint", fb.URL,
				"signature", sig,
			)
			return sig, receipt, nil
		}
		s.logger.WarnContext(ctx, "fallback submission failed",
			"endpoint", fb.URL,
			"error", err,
		)
		lastErr = err
	}

	return "", receipt, fmt.Errorf("all endpoints exhausted: %w", lastErr)
}

// send performs one bounded sendTransaction call against one endpoint.
func (s *Submitter) send(ctx context.Context, ep Endpoint, signedTx []byte) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, submitRequestTimeout)
	defer cancel()

	start := time.Now()
	sig, err := ep.Client.SendTransaction(callCtx, signedTx)
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.RecordRPCCall(ep.URL, "sendTransaction", status, time.Since(start).Seconds())

	if err != nil {
		return "", err
	}
	return sig.String(), nil
}
