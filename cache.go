package aiguard

import (
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// cacheEntry wraps a stored value with bookkeeping metadata.
type cacheEntry struct {
	value          any
	createdAt      time.Time
	lastAccessNano atomic.Int64
	sizeBytes      int
}

// ResponseCache is a bounded response store with strict LRU eviction.
// Both Get hits and Set count as a "touch" for recency. Entries have no
// TTL: they live until evicted by capacity pressure or process restart.
// Callers that need staleness checks encode an expiry into the stored
// value and treat an expired hit as a miss.
//
// Keys are treated as opaque; normalizing request content into a stable
// fingerprint is the caller's job (see Fingerprint).
type ResponseCache struct {
	store   *lru.Cache[string, *cacheEntry]
	maxSize int
	enabled atomic.Bool

	hits      atomic.Int64
	misses    atomic.Int64
	writes    atomic.Int64
	evictions atomic.Int64
	startedAt time.Time
}

// NewResponseCache creates a ResponseCache holding at most cfg.MaxSize
// entries. cfg.MaxSize must be positive.
func NewResponseCache(cfg CacheConfig) (*ResponseCache, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	c := &ResponseCache{
		maxSize:   cfg.MaxSize,
		startedAt: time.Now(),
	}
	c.enabled.Store(cfg.Enabled)

	store, err := lru.NewWithEvict[string, *cacheEntry](cfg.MaxSize, func(string, *cacheEntry) {
		c.evictions.Add(1)
	})
	if err != nil {
		return nil, configError("cache: %v", err)
	}
	c.store = store
	return c, nil
}

// Get returns the cached value for key. A disabled cache always misses but
// still records the miss, so health reporting can tell "disabled" apart
// from "no cacheable traffic".
func (c *ResponseCache) Get(key string) (any, bool) {
	if !c.enabled.Load() {
		c.misses.Add(1)
		return nil, false
	}

	entry, ok := c.store.Get(key)
	if !ok {
		c.misses.Add(1)
		return nil, false
	}

	entry.lastAccessNano.Store(time.Now().UnixNano())
	c.hits.Add(1)
	return entry.value, true
}

// Set stores a value under key, evicting the least-recently-touched entry
// when the cache is full. A no-op while the cache is disabled.
func (c *ResponseCache) Set(key string, value any) {
	if !c.enabled.Load() {
		return
	}

	entry := &cacheEntry{
		value:     value,
		createdAt: time.Now(),
		sizeBytes: approxSize(value),
	}
	entry.lastAccessNano.Store(entry.createdAt.UnixNano())

	c.store.Add(key, entry)
	c.writes.Add(1)
}

// SetEnabled toggles the cache at runtime without dropping stored entries.
func (c *ResponseCache) SetEnabled(enabled bool) {
	c.enabled.Store(enabled)
}

// Stats reports cache state and counters without mutating recency order.
func (c *ResponseCache) Stats() CacheStats {
	hits := c.hits.Load()
	misses := c.misses.Load()

	hitRate := 0.0
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return CacheStats{
		Enabled: c.enabled.Load(),
		Size:    c.store.Len(),
		MaxSize: c.maxSize,
		HitRate: hitRate,
		Metrics: CacheMetrics{
			Hits:      hits,
			Misses:    misses,
			Writes:    c.writes.Load(),
			Evictions: c.evictions.Load(),
			StartedAt: c.startedAt,
		},
	}
}

// approxSize estimates the payload size for byte-oriented values. Other
// types report zero rather than paying for reflection on the write path.
func approxSize(v any) int {
	switch p := v.(type) {
	case string:
		return len(p)
	case []byte:
		return len(p)
	default:
		return 0
	}
}
