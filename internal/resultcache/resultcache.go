// Package resultcache implements the optional materialized-row result
// cache (spec §9 / SPEC_FULL.md component C14), adapting the teacher's
// ristretto-backed QueryCache (internal/database/spatial_optimizer.go)
// into a row-level cache keyed by (namespace, row index); Collection.ValueAt
// uses the field name as the namespace.
// ristretto's probabilistic admission is acceptable here — unlike the
// plan cache (C6), a miss just re-reads the row from the batch, so
// probabilistic eviction cannot violate any correctness invariant. The
// one invariant this cache must uphold is determinism: a cache hit and a
// cache miss for the same key must resolve to the identical value (spec
// §9's result-cache correctness constraint).
package resultcache

import (
	"fmt"
	"sync/atomic"

	"github.com/dgraph-io/ristretto"
)

// Cache is a probabilistic, bounded cache of materialized row values. A
// nil *Cache is safe to call methods on and always misses (disabled
// result caching when Options.ResultCacheSize == 0).
type Cache struct {
	cache  *ristretto.Cache
	hits   int64
	misses int64
}

// New constructs a result cache sized to hold approximately maxEntries
// entries. maxEntries <= 0 returns nil (disabled).
func New(maxEntries int) (*Cache, error) {
	if maxEntries <= 0 {
		return nil, nil
	}
	rc, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: int64(maxEntries) * 10,
		MaxCost:     int64(maxEntries),
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("resultcache: %w", err)
	}
	return &Cache{cache: rc}, nil
}

// Key returns the cache key for row rowIndex under the given namespace
// (typically a field name or a plan's structural key).
func Key(namespace string, rowIndex int) string {
	return fmt.Sprintf("%s#%d", namespace, rowIndex)
}

// Get looks up a previously materialized value.
func (c *Cache) Get(key string) (any, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c.cache.Get(key)
	if ok {
		atomic.AddInt64(&c.hits, 1)
	} else {
		atomic.AddInt64(&c.misses, 1)
	}
	return v, ok
}

// Set stores a materialized value under key with unit cost.
func (c *Cache) Set(key string, value any) {
	if c == nil {
		return
	}
	c.cache.Set(key, value, 1)
}

// Stats reports hit/miss counters.
type Stats struct {
	Hits   int64
	Misses int64
}

func (c *Cache) Stats() Stats {
	if c == nil {
		return Stats{}
	}
	return Stats{Hits: atomic.LoadInt64(&c.hits), Misses: atomic.LoadInt64(&c.misses)}
}

// Close releases the underlying ristretto cache's background goroutines.
func (c *Cache) Close() {
	if c == nil {
		return
	}
	c.cache.Close()
}
