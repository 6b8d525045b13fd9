package solana

import (
	"context"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/tokenarcade/relay/service/metrics"
)

const (
	// DefaultCacheSize bounds the cache with LRU eviction so a stream of
	// one-off mints cannot grow it without limit.
	DefaultCacheSize = 512

	// DefaultCacheTTL is how long both successful and nil results are
	// kept. Caching nil means a transient failure for one mint does not
	// trigger repeated expensive re-queries inside the window.
	DefaultCacheTTL = 5 * time.Minute
)

// ConcentrationFunc is the expensive lookup the cache fronts.
type ConcentrationFunc func(ctx context.Context, mint string) *Concentration

// ConcentrationCache memoizes holder-concentration lookups per mint.
//
// The underlying query costs two RPC round trips and is issued repeatedly
// for rapid successive evaluations of new tokens, so results are held for
// a fixed TTL in a fixed-capacity LRU. That includes nil "looked it up and
// it's unavailable" results. Expired entries are treated as misses.
// Concurrent lookups for the same mint are collapsed into a single flight.
type ConcentrationCache struct {
	lookup  ConcentrationFunc
	entries *lru.Cache[string, cacheEntry]
	ttl     time.Duration
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger

	now func() time.Time // swapped out in tests
}

type cacheEntry struct {
	value   *Concentration // nil is a valid, cached "unavailable" answer
	expires time.Time
}

// NewConcentrationCache creates a cache in front of lookup.
// size <= 0 selects DefaultCacheSize; ttl <= 0 selects DefaultCacheTTL.
// If m is nil, no metrics are recorded.
func NewConcentrationCache(lookup ConcentrationFunc, size int, ttl time.Duration, m *metrics.Metrics, logger *slog.Logger) *ConcentrationCache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	entries, _ := lru.New[string, cacheEntry](size) // only errors on size <= 0
	return &ConcentrationCache{
		lookup:  lookup,
		entries: entries,
		ttl:     ttl,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// Get returns the cached concentration for a mint, computing and caching
// it on a miss. A nil return can mean either a cached or a fresh
// "unavailable" answer; callers treat both the same way.
func (c *ConcentrationCache) Get(ctx context.Context, mint string) *Concentration {
	if entry, ok := c.entries.Get(mint); ok && c.now().Before(entry.expires) {
		c.metrics.RecordCacheHit()
		return entry.value
	}
	c.metrics.RecordCacheMiss()

	// Collapse concurrent lookups for the same mint into one round trip.
	value, _, _ := c.group.Do(mint, func() (interface{}, error) {
		result := c.lookup(ctx, mint)
		c.entries.Add(mint, cacheEntry{
			value:   result,
			expires: c.now().Add(c.ttl),
		})
		c.logger.DebugContext(ctx, "concentration cached",
			"mint", mint,
			"available", result != nil,
			"ttl", c.ttl,
		)
		return result, nil
	})
	return value.(*Concentration)
}

// Purge removes expired entries. The LRU already bounds memory, so this is
// housekeeping for long-idle processes; call it from a background ticker
// if desired.
func (c *ConcentrationCache) Purge() int {
	removed := 0
	now := c.now()
	for _, mint := range c.entries.Keys() {
		if entry, ok := c.entries.Peek(mint); ok && !now.Before(entry.expires) {
			c.entries.Remove(mint)
			removed++
		}
	}
	return removed
}

// Len returns the number of entries currently held, expired or not.
func (c *ConcentrationCache) Len() int {
	return c.entries.Len()
}
