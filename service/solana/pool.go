package solana

import "github.com/gagliardetto/solana-go/rpc"

// DefaultFallbackURLs are the public RPC endpoints tried, in order, when
// the primary is exhausted. Public nodes rate-limit aggressively, so they
// are a safety net rather than a primary transport.
var DefaultFallbackURLs = []string{
	rpc.MainNetBeta_RPC,
	"https://solana-rpc.publicnode.com",
	"https://rpc.ankr.com/solana",
}

// Endpoint pairs an RPC URL with the client that talks to it. The URL is
// kept for logging and metrics labels.
type Endpoint struct {
	URL    string
	Client RPCClient
}

// Pool is an ordered, immutable list of RPC endpoints. The first entry is
// the operator-configured primary and is authoritative; the rest are public
// fallbacks tried strictly in order.
type Pool struct {
	endpoints []Endpoint
}

// NewPool builds a pool from the primary URL and a fallback list, dialing
// each with the given constructor. Fallbacks that duplicate the primary
// are dropped so the primary is never retried under a different name.
func NewPool(primaryURL string, fallbackURLs []string, dial func(url string) RPCClient) *Pool {
	endpoints := []Endpoint{{URL: primaryURL, Client: dial(primaryURL)}}
	for _, u := range fallbackURLs {
		if u == primaryURL {
			continue
		}
		endpoints = append(endpoints, Endpoint{URL: u, Client: dial(u)})
	}
	return &Pool{endpoints: endpoints}
}

// Primary returns the authoritative endpoint.
func (p *Pool) Primary() Endpoint {
	return p.endpoints[0]
}

// Fallbacks returns the fallback endpoints in traversal order.
func (p *Pool) Fallbacks() []Endpoint {
	out := make([]Endpoint, len(p.endpoints)-1)
	copy(out, p.endpoints[1:])
	return out
}

// Endpoints returns all endpoints, primary first.
func (p *Pool) Endpoints() []Endpoint {
	out := make([]Endpoint, len(p.endpoints))
	copy(out, p.endpoints)
	return out
}

// Len returns the number of endpoints in the pool.
func (p *Pool) Len() int {
	return len(p.endpoints)
}
