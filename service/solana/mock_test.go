package solana

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/gagliardetto/solana-go"
)

// mockRPCClient implements RPCClient for testing. Each method consumes the
// next scripted response in order, so tests can express sequences like
// "rate-limited twice, then success". When a script runs out, the last
// entry repeats.
type mockRPCClient struct {
	mu sync.Mutex

	sendResults   []sendResult
	sendCalls     int
	statusResults []statusResult
	statusCalls   int

	balance    uint64
	balanceErr error

	tokenAccounts    []TokenAccount
	tokenAccountsErr error

	supply    *TokenSupply
	supplyErr error

	holdings    []TokenHolding
	holdingsErr error

	blockhash    solana.Hash
	blockhashErr error
}

type sendResult struct {
	sig solana.Signature
	err error
}

type statusResult struct {
	status *SignatureStatus
	err    error
}

func (m *mockRPCClient) SendTransaction(ctx context.Context, signedTx []byte) (solana.Signature, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sendResults) == 0 {
		return solana.Signature{}, nil
	}
	i := m.sendCalls
	if i >= len(m.sendResults) {
		i = len(m.sendResults) - 1
	}
	m.sendCalls++
	return m.sendResults[i].sig, m.sendResults[i].err
}

func (m *mockRPCClient) SignatureStatus(ctx context.Context, sig solana.Signature) (*SignatureStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.statusResults) == 0 {
		return nil, nil
	}
	i := m.statusCalls
	if i >= len(m.statusResults) {
		i = len(m.statusResults) - 1
	}
	m.statusCalls++
	return m.statusResults[i].status, m.statusResults[i].err
}

func (m *mockRPCClient) Balance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	return m.balance, m.balanceErr
}

func (m *mockRPCClient) TokenAccountsByOwner(ctx context.Context, owner, mint solana.PublicKey) ([]TokenAccount, error) {
	return m.tokenAccounts, m.tokenAccountsErr
}

func (m *mockRPCClient) TokenSupply(ctx context.Context, mint solana.PublicKey) (*TokenSupply, error) {
	return m.supply, m.supplyErr
}

func (m *mockRPCClient) TokenLargestAccounts(ctx context.Context, mint solana.PublicKey) ([]TokenHolding, error) {
	return m.holdings, m.holdingsErr
}

func (m *mockRPCClient) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	return m.blockhash, m.blockhashErr
}

func (m *mockRPCClient) sendCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sendCalls
}

func (m *mockRPCClient) statusCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statusCalls
}

// testPool builds a pool whose endpoints resolve to the given mocks, in
// order: the first mock is the primary, the rest are fallbacks.
func testPool(mocks ...*mockRPCClient) *Pool {
	urls := make(map[string]*mockRPCClient, len(mocks))
	primary := "http://primary.test"
	urls[primary] = mocks[0]
	fallbacks := make([]string, 0, len(mocks)-1)
	for i, m := range mocks[1:] {
		u := "http://fallback" + string(rune('0'+i)) + ".test"
		urls[u] = m
		fallbacks = append(fallbacks, u)
	}
	return NewPool(primary, fallbacks, func(u string) RPCClient {
		return urls[u]
	})
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
