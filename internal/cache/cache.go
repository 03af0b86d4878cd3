// Package cache implements the plan cache (spec §4.6, component C6): a
// bounded structural-key -> *plan.Plan map with deterministic,
// ordinal-ordered eviction. ristretto's probabilistic TinyLFU admission
// cannot guarantee the hard capacity bound and oldest-first eviction order
// spec §4.6/invariant 8 require, so this cache is hand-rolled from
// sync.Map plus an explicit ordinal counter — the teacher's ristretto
// usage (internal/database/spatial_optimizer.go) is instead adapted into
// the optional result cache (see resultcache).
package cache

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/arx-os/arxquery/internal/metrics"
	"github.com/arx-os/arxquery/internal/plan"
)

// DefaultCapacity is the default maximum number of distinct plan shapes
// the cache holds before evicting (spec §4.6).
const DefaultCapacity = 256

type entry struct {
	plan    *plan.Plan
	ordinal uint64
}

// PlanCache is a bounded, structural-key plan cache. It is safe for
// concurrent use; lookups never block on eviction.
type PlanCache struct {
	capacity   int
	collection string
	metrics    *metrics.Collector

	mu      sync.Mutex // guards ordinal bookkeeping and eviction only
	entries sync.Map   // string -> *entry
	size    int64
	ordinal uint64

	hits   uint64
	misses uint64
}

// New constructs a plan cache with the given capacity. capacity <= 0 falls
// back to DefaultCapacity.
func New(capacity int, collection string, mc *metrics.Collector) *PlanCache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &PlanCache{capacity: capacity, collection: collection, metrics: mc}
}

// Get returns the cached plan for key, if present, reporting a hit or
// miss via the metrics collector.
func (c *PlanCache) Get(key string) (*plan.Plan, bool) {
	v, ok := c.entries.Load(key)
	if !ok {
		atomic.AddUint64(&c.misses, 1)
		c.metrics.CacheMiss(c.collection)
		return nil, false
	}
	atomic.AddUint64(&c.hits, 1)
	c.metrics.CacheHit(c.collection)
	return v.(*entry).plan, true
}

// Put inserts p under key. If the cache is at capacity, the oldest 25% of
// entries by insertion ordinal are evicted first (spec §4.6's bulk
// eviction, avoiding an eviction on every single insert once full).
func (c *PlanCache) Put(key string, p *plan.Plan) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries.Load(key); exists {
		return
	}

	if int(atomic.LoadInt64(&c.size)) >= c.capacity {
		c.evictOldestLocked()
	}

	c.ordinal++
	c.entries.Store(key, &entry{plan: p, ordinal: c.ordinal})
	atomic.AddInt64(&c.size, 1)
	c.metrics.SetCacheSize(int(atomic.LoadInt64(&c.size)))
}

// evictOldestLocked removes the oldest ceil(capacity/4) entries by
// ordinal. Callers must hold c.mu.
func (c *PlanCache) evictOldestLocked() {
	type kv struct {
		key     string
		ordinal uint64
	}
	var all []kv
	c.entries.Range(func(k, v any) bool {
		all = append(all, kv{key: k.(string), ordinal: v.(*entry).ordinal})
		return true
	})
	sort.Slice(all, func(i, j int) bool { return all[i].ordinal < all[j].ordinal })

	evictCount := (c.capacity + 3) / 4
	if evictCount > len(all) {
		evictCount = len(all)
	}
	for i := 0; i < evictCount; i++ {
		c.entries.Delete(all[i].key)
	}
	atomic.AddInt64(&c.size, -int64(evictCount))
	c.metrics.CacheEvicted(evictCount)
	c.metrics.SetCacheSize(int(atomic.LoadInt64(&c.size)))
}

// Clear removes every cached plan.
func (c *PlanCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Range(func(k, _ any) bool {
		c.entries.Delete(k)
		return true
	})
	atomic.StoreInt64(&c.size, 0)
	c.metrics.SetCacheSize(0)
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Hits   uint64
	Misses uint64
	Size   int
}

// Stats returns a snapshot of the cache's hit/miss/size counters.
func (c *PlanCache) Stats() Stats {
	return Stats{
		Hits:   atomic.LoadUint64(&c.hits),
		Misses: atomic.LoadUint64(&c.misses),
		Size:   int(atomic.LoadInt64(&c.size)),
	}
}
