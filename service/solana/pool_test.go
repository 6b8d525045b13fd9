package solana

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPool_OrderAndDeduplication(t *testing.T) {
	dialed := []string{}
	dial := func(u string) RPCClient {
		dialed = append(dialed, u)
		return &mockRPCClient{}
	}

	pool := NewPool("http://primary.test", []string{
		"http://fb1.test",
		"http://primary.test", // duplicate of the primary, must be dropped
		"http://fb2.test",
	}, dial)

	require.Equal(t, 3, pool.Len())
	assert.Equal(t, "http://primary.test", pool.Primary().URL)

	fallbacks := pool.Fallbacks()
	require.Len(t, fallbacks, 2)
	assert.Equal(t, "http://fb1.test", fallbacks[0].URL)
	assert.Equal(t, "http://fb2.test", fallbacks[1].URL)

	// The duplicate was never dialed.
	assert.Equal(t, []string{"http://primary.test", "http://fb1.test", "http://fb2.test"}, dialed)
}

func TestPool_EndpointsReturnsCopy(t *testing.T) {
	pool := NewPool("http://primary.test", []string{"http://fb.test"}, func(string) RPCClient {
		return &mockRPCClient{}
	})

	eps := pool.Endpoints()
	require.Len(t, eps, 2)
	eps[0].URL = "mutated"
	assert.Equal(t, "http://primary.test", pool.Primary().URL)
}
