package solana

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/tokenarcade/relay/service/metrics"
)

const (
	// DefaultMaxPolls bounds a confirmation attempt at roughly 30 seconds
	// with the default 1s spacing.
	DefaultMaxPolls     = 30
	DefaultPollInterval = time.Second

	// consecutiveErrorLimit is how many RPC-level errors in a row an
	// endpoint gets before the poll cursor moves to the next one.
	consecutiveErrorLimit = 2

	statusRequestTimeout = 5 * time.Second
)

// Confirmation is the outcome of polling for a signature.
// Confirmed == false with a nil error is a valid soft result: the poll
// budget ran out before the network gave a terminal answer, and the caller
// must treat the transaction as "unknown, check explorer".
type Confirmation struct {
	Confirmed bool
	Slot      uint64
}

// Status is a one-shot view of a signature, as reported by the first
// endpoint in the pool that answers.
type Status struct {
	State    string // "processing", "confirmed", "finalized" or "failed"
	Slot     uint64
	ChainErr interface{}
}

// Confirmer polls transaction status across the endpoint pool until a
// terminal state or the poll budget runs out.
//
// Polls are strictly sequential; each poll's outcome decides the endpoint
// for the next one. "Not yet visible" is a normal pending state, distinct
// from RPC-level errors: only the latter advance the cursor, and only
// after consecutiveErrorLimit in a row. The cursor never wraps: once the
// last fallback is reached, polling stays there.
type Confirmer struct {
	pool         *Pool
	maxPolls     int
	pollInterval time.Duration
	metrics      *metrics.Metrics
	logger       *slog.Logger

	sleep func(d time.Duration) // swapped out in tests
}

// NewConfirmer creates a confirmer over the given pool.
// maxPolls <= 0 selects DefaultMaxPolls; pollInterval <= 0 selects
// DefaultPollInterval. If m is nil, no metrics are recorded.
func NewConfirmer(pool *Pool, maxPolls int, pollInterval time.Duration, m *metrics.Metrics, logger *slog.Logger) *Confirmer {
	if maxPolls <= 0 {
		maxPolls = DefaultMaxPolls
	}
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Confirmer{
		pool:         pool,
		maxPolls:     maxPolls,
		pollInterval: pollInterval,
		metrics:      m,
		logger:       logger,
		sleep:        time.Sleep,
	}
}

// AwaitConfirmation polls until the signature reaches a terminal state or
// the budget is exhausted. A chain-side rejection returns a
// *TransactionFailedError; budget exhaustion returns Confirmed == false
// with a nil error.
func (c *Confirmer) AwaitConfirmation(ctx context.Context, signature string) (*Confirmation, error) {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return nil, fmt.Errorf("invalid signature %q: %w", signature, err)
	}

	endpoints := c.pool.Endpoints()
	cursor := 0
	consecutiveErrs := 0

	for poll := 1; poll <= c.maxPolls; poll++ {
		ep := endpoints[cursor]
		status, err := c.query(ctx, ep, sig)

		switch {
		case err != nil:
			consecutiveErrs++
			c.logger.WarnContext(ctx, "status poll failed",
				"endpoint", ep.URL,
				"signature", signature,
				"poll", poll,
				"consecutive_errors", consecutiveErrs,
				"error", err,
			)
			if consecutiveErrs >= consecutiveErrorLimit && cursor < len(endpoints)-1 {
				c.metrics.RecordEndpointFailover(ep.URL, "signature_status")
				cursor++
				consecutiveErrs = 0
				c.logger.InfoContext(ctx, "switching status poll endpoint",
					"endpoint", endpoints[cursor].URL,
					"signature", signature,
				)
			} else if consecutiveErrs >= consecutiveErrorLimit {
				// Last endpoint: stay on it, but reset the counter so the
				// failover log above doesn't fire every poll.
				consecutiveErrs = 0
			}

		case status == nil || !status.Terminal():
			// Not visible yet, or still processing. Normal pending state.
			consecutiveErrs = 0

		case status.Err != nil:
			c.metrics.RecordConfirmationPolls(poll)
			c.logger.WarnContext(ctx, "transaction rejected on chain",
				"signature", signature,
				"slot", status.Slot,
				"chain_error", fmt.Sprintf("%v", status.Err),
			)
			return nil, &TransactionFailedError{Signature: signature, ChainErr: status.Err}

		default: // confirmed or finalized
			c.metrics.RecordConfirmationPolls(poll)
			c.logger.InfoContext(ctx, "transaction confirmed",
				"signature", signature,
				"slot", status.Slot,
				"status", string(status.ConfirmationStatus),
				"polls", poll,
			)
			return &Confirmation{Confirmed: true, Slot: status.Slot}, nil
		}

		if poll < c.maxPolls {
			c.sleep(c.pollInterval)
		}
	}

	c.metrics.RecordConfirmationPolls(c.maxPolls)
	c.logger.WarnContext(ctx, "poll budget exhausted without terminal status",
		"signature", signature,
		"polls", c.maxPolls,
	)
	return &Confirmation{Confirmed: false}, nil
}

// CheckStatus sweeps the pool once and returns the first answer it gets.
// It is used for live status lookups and for follow-up checks after the
// in-request poll budget has run out.
func (c *Confirmer) CheckStatus(ctx context.Context, signature string) (*Status, error) {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return nil, fmt.Errorf("invalid signature %q: %w", signature, err)
	}

	var lastErr error
	for _, ep := range c.pool.Endpoints() {
		status, err := c.query(ctx, ep, sig)
		if err != nil {
			c.logger.WarnContext(ctx, "status check failed, trying next endpoint",
				"endpoint", ep.URL,
				"signature", signature,
				"error", err,
			)
			lastErr = err
			continue
		}
		if status == nil {
			return &Status{State: "processing"}, nil
		}
		return &Status{
			State:    statusState(status),
			Slot:     status.Slot,
			ChainErr: status.Err,
		}, nil
	}
	return nil, fmt.Errorf("all endpoints failed: %w", lastErr)
}

// query performs one bounded getSignatureStatuses call.
func (c *Confirmer) query(ctx context.Context, ep Endpoint, sig solana.Signature) (*SignatureStatus, error) {
	callCtx, cancel := context.WithTimeout(ctx, statusRequestTimeout)
	defer cancel()

	start := time.Now()
	status, err := ep.Client.SignatureStatus(callCtx, sig)
	result := "success"
	if err != nil {
		result = "error"
	}
	c.metrics.RecordRPCCall(ep.URL, "getSignatureStatuses", result, time.Since(start).Seconds())
	return status, err
}

func statusState(s *SignatureStatus) string {
	switch {
	case s.Err != nil:
		return "failed"
	case s.ConfirmationStatus == rpc.ConfirmationStatusFinalized:
		return "finalized"
	case s.ConfirmationStatus == rpc.ConfirmationStatusConfirmed:
		return "confirmed"
	default:
		return "processing"
	}
}
