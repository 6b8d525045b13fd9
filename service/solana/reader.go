package solana

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gagliardetto/solana-go"
	"golang.org/x/sync/errgroup"

	"github.com/tokenarcade/relay/service/metrics"
)

const (
	// DefaultTokenDecimals is the common decimal count in this ecosystem
	// (USDC and most SPL tokens). It is the degraded answer when every
	// endpoint fails a decimals lookup: display and estimation paths can
	// proceed on it, whereas balance reads never guess.
	DefaultTokenDecimals = 6

	readRequestTimeout   = 5 * time.Second
	concentrationTimeout = 5 * time.Second
	top5Holders          = 5
	top10Holders         = 10
)

// ErrNoTokenAccount means the owner holds no token account for the mint.
var ErrNoTokenAccount = errors.New("no token account for mint")

// Reader serves read-only chain queries. Every query iterates the endpoint
// pool primary-first, logging and moving on after any RPC or transport
// error; queries differ only in what happens when the whole pool fails.
type Reader struct {
	pool    *Pool
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewReader creates a reader over the given pool.
// If m is nil, no metrics are recorded.
func NewReader(pool *Pool, m *metrics.Metrics, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{pool: pool, metrics: m, logger: logger}
}

// Balance returns the lamport balance of an account. Exact balances have
// no safe default, so the error propagates when all endpoints fail.
func (r *Reader) Balance(ctx context.Context, address string) (uint64, error) {
	account, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", address, err)
	}

	var balance uint64
	err = r.eachEndpoint(ctx, "getBalance", func(callCtx context.Context, ep Endpoint) error {
		var err error
		balance, err = ep.Client.Balance(callCtx, account)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("balance lookup for %s: %w", address, err)
	}
	return balance, nil
}

// TokenBalance returns the raw token amount the owner holds for a mint,
// summed across the owner's token accounts. Like Balance, failure
// propagates: callers needing an exact amount cannot proceed on a guess.
func (r *Reader) TokenBalance(ctx context.Context, owner, mint string) (uint64, error) {
	ownerKey, mintKey, err := parseOwnerAndMint(owner, mint)
	if err != nil {
		return 0, err
	}

	var total uint64
	err = r.eachEndpoint(ctx, "getTokenAccountsByOwner", func(callCtx context.Context, ep Endpoint) error {
		accounts, err := ep.Client.TokenAccountsByOwner(callCtx, ownerKey, mintKey)
		if err != nil {
			return err
		}
		total = 0
		for _, acc := range accounts {
			total += acc.Amount
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("token balance lookup for %s/%s: %w", owner, mint, err)
	}
	return total, nil
}

// TokenDecimals returns a mint's decimal count. When every endpoint fails
// it degrades to DefaultTokenDecimals with a logged warning instead of
// failing the caller.
func (r *Reader) TokenDecimals(ctx context.Context, mint string) (uint8, error) {
	mintKey, err := solana.PublicKeyFromBase58(mint)
	if err != nil {
		return 0, fmt.Errorf("invalid mint %q: %w", mint, err)
	}

	var decimals uint8
	err = r.eachEndpoint(ctx, "getTokenSupply", func(callCtx context.Context, ep Endpoint) error {
		supply, err := ep.Client.TokenSupply(callCtx, mintKey)
		if err != nil {
			return err
		}
		decimals = supply.Decimals
		return nil
	})
	if err != nil {
		r.logger.WarnContext(ctx, "decimals lookup failed on all endpoints, using default",
			"mint", mint,
			"default", DefaultTokenDecimals,
			"error", err,
		)
		return DefaultTokenDecimals, nil
	}
	return decimals, nil
}

// AssociatedTokenAccount returns the address of the owner's token account
// for a mint: the on-chain account when one exists, ErrNoTokenAccount
// otherwise.
func (r *Reader) AssociatedTokenAccount(ctx context.Context, owner, mint string) (string, error) {
	ownerKey, mintKey, err := parseOwnerAndMint(owner, mint)
	if err != nil {
		return "", err
	}

	var accounts []TokenAccount
	err = r.eachEndpoint(ctx, "getTokenAccountsByOwner", func(callCtx context.Context, ep Endpoint) error {
		var err error
		accounts, err = ep.Client.TokenAccountsByOwner(callCtx, ownerKey, mintKey)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("token account lookup for %s/%s: %w", owner, mint, err)
	}
	if len(accounts) == 0 {
		return "", ErrNoTokenAccount
	}

	// Prefer the canonical associated token account when it is among the
	// owner's accounts; otherwise return the largest.
	if ata, _, err := solana.FindAssociatedTokenAddress(ownerKey, mintKey); err == nil {
		for _, acc := range accounts {
			if acc.Address.Equals(ata) {
				return acc.Address.String(), nil
			}
		}
	}
	largest := accounts[0]
	for _, acc := range accounts[1:] {
		if acc.Amount > largest.Amount {
			largest = acc
		}
	}
	return largest.Address.String(), nil
}

// LatestBlockhash returns a recent blockhash as a base58 string. Useful as
// a connectivity probe and for callers assembling transactions client-side.
func (r *Reader) LatestBlockhash(ctx context.Context) (string, error) {
	var hash solana.Hash
	err := r.eachEndpoint(ctx, "getLatestBlockhash", func(callCtx context.Context, ep Endpoint) error {
		var err error
		hash, err = ep.Client.LatestBlockhash(callCtx)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("blockhash lookup: %w", err)
	}
	return hash.String(), nil
}

// Concentration computes the share of a mint's supply held by its largest
// holders. The two underlying queries run in parallel under one shared
// timeout. This signal is advisory and must never block a caller's primary
// workflow, so any partial failure yields nil rather than an error.
func (r *Reader) Concentration(ctx context.Context, mint string) *Concentration {
	mintKey, err := solana.PublicKeyFromBase58(mint)
	if err != nil {
		r.logger.WarnContext(ctx, "invalid mint for concentration lookup", "mint", mint, "error", err)
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, concentrationTimeout)
	defer cancel()

	var (
		holdings []TokenHolding
		supply   *TokenSupply
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.eachEndpoint(gctx, "getTokenLargestAccounts", func(callCtx context.Context, ep Endpoint) error {
			var err error
			holdings, err = ep.Client.TokenLargestAccounts(callCtx, mintKey)
			return err
		})
	})
	g.Go(func() error {
		return r.eachEndpoint(gctx, "getTokenSupply", func(callCtx context.Context, ep Endpoint) error {
			var err error
			supply, err = ep.Client.TokenSupply(callCtx, mintKey)
			return err
		})
	})

	if err := g.Wait(); err != nil {
		r.logger.WarnContext(ctx, "concentration lookup failed", "mint", mint, "error", err)
		return nil
	}
	if supply == nil || supply.Amount == 0 || len(holdings) == 0 {
		r.logger.WarnContext(ctx, "concentration lookup returned no usable data", "mint", mint)
		return nil
	}

	return computeConcentration(holdings, supply.Amount)
}

// computeConcentration turns a largest-first holding list and total supply
// into percentage shares.
func computeConcentration(holdings []TokenHolding, supply uint64) *Concentration {
	sumTop := func(n int) uint64 {
		if n > len(holdings) {
			n = len(holdings)
		}
		var sum uint64
		for _, h := range holdings[:n] {
			sum += h.Amount
		}
		return sum
	}

	pct := func(amount uint64) float64 {
		return float64(amount) / float64(supply) * 100
	}

	return &Concentration{
		Top5Pct:    pct(sumTop(top5Holders)),
		Top10Pct:   pct(sumTop(top10Holders)),
		LargestPct: pct(holdings[0].Amount),
	}
}

// eachEndpoint runs call against the pool primary-first, stopping at the
// first success. Each call is bounded by readRequestTimeout. The last
// error is returned when every endpoint fails.
func (r *Reader) eachEndpoint(ctx context.Context, method string, call func(ctx context.Context, ep Endpoint) error) error {
	var lastErr error
	for i, ep := range r.pool.Endpoints() {
		callCtx, cancel := context.WithTimeout(ctx, readRequestTimeout)
		start := time.Now()
		err := call(callCtx, ep)
		cancel()

		status := "success"
		if err != nil {
			status = "error"
		}
		r.metrics.RecordRPCCall(ep.URL, method, status, time.Since(start).Seconds())

		if err == nil {
			return nil
		}
		lastErr = err
		r.logger.WarnContext(ctx, "read query failed, trying next endpoint",
			"endpoint", ep.URL,
			"method", method,
			"error", err,
		)
		if i < r.pool.Len()-1 {
			r.metrics.RecordEndpointFailover(ep.URL, method)
		}
	}
	return lastErr
}

func parseOwnerAndMint(owner, mint string) (solana.PublicKey, solana.PublicKey, error) {
	ownerKey, err := solana.PublicKeyFromBase58(owner)
	if err != nil {
		return solana.PublicKey{}, solana.PublicKey{}, fmt.Errorf("invalid owner %q: %w", owner, err)
	}
	mintKey, err := solana.PublicKeyFromBase58(mint)
	if err != nil {
		return solana.PublicKey{}, solana.PublicKey{}, fmt.Errorf("invalid mint %q: %w", mint, err)
	}
	return ownerKey, mintKey, nil
}
