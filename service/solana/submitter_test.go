package solana

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errRateLimited = errors.New("HTTP error: 429 Too Many Requests")
	errServer      = errors.New("HTTP error: 500 Internal Server Error")
)

func testSignature() solana.Signature {
	return solana.MustSignatureFromBase58("5j7s6NiJS3JAkvgkoc18WVAsiSaci2pxB2A6ueCJP4tprA2TFg9wSyTLeYouxPBJEMzJinENTkpA52YStRW5Dia7")
}

// newTestSubmitter replaces the real sleep with a recorder so backoff
// schedules can be asserted without waiting.
func newTestSubmitter(pool *Pool, maxAttempts int) (*Submitter, *[]time.Duration) {
	s := NewSubmitter(pool, maxAttempts, nil, testLogger())
	var slept []time.Duration
	s.sleep = func(d time.Duration) { slept = append(slept, d) }
	return s, &slept
}

func TestSubmit_SucceedsFirstAttempt(t *testing.T) {
	primary := &mockRPCClient{sendResults: []sendResult{{sig: testSignature()}}}
	fallback := &mockRPCClient{}
	s, slept := newTestSubmitter(testPool(primary, fallback), 5)

	sig, receipt, err := s.Submit(context.Background(), []byte{1, 2, 3})

	require.NoError(t, err)
	assert.Equal(t, testSignature().String(), sig)
	assert.Equal(t, 1, primary.sendCallCount())
	assert.Equal(t, 0, fallback.sendCallCount())
	assert.Equal(t, 1, receipt.Attempts)
	assert.Equal(t, "http://primary.test", receipt.Endpoint)
	assert.Empty(t, *slept)
}

func TestSubmit_RateLimitBackoffLadder(t *testing.T) {
	// Primary rate-limits on every call: exactly maxAttempts calls go to
	// the primary, with 2s,4s,8s,16s sleeps between them, before any
	// fallback is contacted.
	primary := &mockRPCClient{sendResults: []sendResult{{err: errRateLimited}}}
	fallback := &mockRPCClient{sendResults: []sendResult{{sig: testSignature()}}}
	s, slept := newTestSubmitter(testPool(primary, fallback), 5)

	sig, receipt, err := s.Submit(context.Background(), []byte{1})

	require.NoError(t, err)
	assert.Equal(t, testSignature().String(), sig)
	assert.Equal(t, 5, primary.sendCallCount())
	assert.Equal(t, 1, fallback.sendCallCount())
	assert.Equal(t, 6, receipt.Attempts)
	assert.Equal(t, "http://fallback0.test", receipt.Endpoint)
	assert.Equal(t, []time.Duration{
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
	}, *slept)
}

func TestSubmit_BackoffCapsAtSixteenSeconds(t *testing.T) {
	primary := &mockRPCClient{sendResults: []sendResult{{err: errRateLimited}}}
	fallback := &mockRPCClient{sendResults: []sendResult{{sig: testSignature()}}}
	s, slept := newTestSubmitter(testPool(primary, fallback), 7)

	_, _, err := s.Submit(context.Background(), []byte{1})

	require.NoError(t, err)
	assert.Equal(t, []time.Duration{
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		16 * time.Second,
		16 * time.Second,
	}, *slept)
}

func TestSubmit_NonRateLimitErrorFailsFast(t *testing.T) {
	// A non-rate-limit error is definitive: no retry, no fallback contact.
	primary := &mockRPCClient{sendResults: []sendResult{{err: errServer}}}
	fallback := &mockRPCClient{sendResults: []sendResult{{sig: testSignature()}}}
	s, slept := newTestSubmitter(testPool(primary, fallback), 5)

	sig, receipt, err := s.Submit(context.Background(), []byte{1})

	require.Error(t, err)
	assert.Empty(t, sig)
	assert.Equal(t, 1, primary.sendCallCount())
	assert.Equal(t, 0, fallback.sendCallCount())
	assert.Equal(t, 1, receipt.Attempts)
	assert.Empty(t, receipt.Endpoint)
	assert.Empty(t, *slept)
}

func TestSubmit_RateLimitRecoversOnRetry(t *testing.T) {
	primary := &mockRPCClient{sendResults: []sendResult{
		{err: errRateLimited},
		{err: errRateLimited},
		{sig: testSignature()},
	}}
	s, slept := newTestSubmitter(testPool(primary), 5)

	sig, receipt, err := s.Submit(context.Background(), []byte{1})

	require.NoError(t, err)
	assert.Equal(t, testSignature().String(), sig)
	assert.Equal(t, 3, primary.sendCallCount())
	assert.Equal(t, 3, receipt.Attempts)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, *slept)
}

func TestSubmit_FallbackSweepInOrder(t *testing.T) {
	primary := &mockRPCClient{sendResults: []sendResult{{err: errRateLimited}}}
	fb1 := &mockRPCClient{sendResults: []sendResult{{err: errServer}}}
	fb2 := &mockRPCClient{sendResults: []sendResult{{sig: testSignature()}}}
	s, _ := newTestSubmitter(testPool(primary, fb1, fb2), 2)

	sig, receipt, err := s.Submit(context.Background(), []byte{1})

	require.NoError(t, err)
	assert.Equal(t, testSignature().String(), sig)
	// Each fallback is tried exactly once, in order.
	assert.Equal(t, 2, primary.sendCallCount())
	assert.Equal(t, 1, fb1.sendCallCount())
	assert.Equal(t, 1, fb2.sendCallCount())
	assert.Equal(t, 4, receipt.Attempts)
	assert.Equal(t, "http://fallback1.test", receipt.Endpoint)
}

func TestSubmit_AllEndpointsExhausted(t *testing.T) {
	primary := &mockRPCClient{sendResults: []sendResult{{err: errRateLimited}}}
	fb := &mockRPCClient{sendResults: []sendResult{{err: errServer}}}
	s, _ := newTestSubmitter(testPool(primary, fb), 2)

	sig, receipt, err := s.Submit(context.Background(), []byte{1})

	require.Error(t, err)
	assert.Empty(t, sig)
	assert.Equal(t, 3, receipt.Attempts)
	assert.Empty(t, receipt.Endpoint)
	assert.Contains(t, err.Error(), "all endpoints exhausted")
	assert.ErrorIs(t, err, errServer)
}

func TestIsRateLimited(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"http 429", errors.New("HTTP error: 429 Too Many Requests"), true},
		{"bare 429", errors.New("got 429 from server"), true},
		{"marker phrase", errors.New("Rate limit exceeded for api key"), true},
		{"rate-limited variant", errors.New("request was rate-limited upstream"), true},
		{"too many requests", errors.New("too many requests, slow down"), true},
		{"other http error", errors.New("HTTP error: 503 Service Unavailable"), false},
		{"429 inside a larger number", errors.New("slot 14294 not found"), false},
		{"timeout", context.DeadlineExceeded, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRateLimited(tt.err))
		})
	}
}
