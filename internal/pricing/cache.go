package pricing

import (
	"context"
	"sync"
)

// PriceCache stores resolved prices keyed by token and minute bucket.
// Entries live for the cache's lifetime; there is no eviction, which is
// acceptable for short-lived analysis processes. A long-running deployment
// should use the Redis-backed implementation with a TTL instead.
type PriceCache interface {
	Get(ctx context.Context, token string, bucket int64) (float64, bool)
	Put(ctx context.Context, token string, bucket int64, price float64)
}

type cacheKey struct {
	token  string
	bucket int64
}

// MemoryCache is the default in-process PriceCache.
type MemoryCache struct {
	mu     sync.RWMutex
	prices map[cacheKey]float64
}

// NewMemoryCache creates an empty in-memory price cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{prices: make(map[cacheKey]float64)}
}

func (c *MemoryCache) Get(_ context.Context, token string, bucket int64) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	price, ok := c.prices[cacheKey{token, bucket}]
	return price, ok
}

func (c *MemoryCache) Put(_ context.Context, token string, bucket int64, price float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prices[cacheKey{token, bucket}] = price
}
