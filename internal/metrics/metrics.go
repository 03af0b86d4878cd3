// Package metrics wires the engine's Prometheus instrumentation, grounded
// on the teacher's promauto usage (gateway/metrics.go) but scoped to the
// cache and executor counters/gauges SPEC_FULL.md's ambient stack section
// calls for.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds the query engine's Prometheus metrics. A nil *Collector
// is safe to call methods on — every method no-ops — so callers that pass
// no registry pay no instrumentation cost (spec's Options.Registry is
// optional).
type Collector struct {
	cacheHits     *prometheus.CounterVec
	cacheMisses   *prometheus.CounterVec
	cacheEvicted  prometheus.Counter
	cacheSize     prometheus.Gauge
	queriesTotal  *prometheus.CounterVec
	queryDuration *prometheus.HistogramVec
	chunksSkipped prometheus.Counter
}

// NewCollector registers the engine's metrics against reg. If reg is nil,
// NewCollector returns nil, and every method becomes a safe no-op.
func NewCollector(reg *prometheus.Registry) *Collector {
	if reg == nil {
		return nil
	}
	fac := promauto.With(reg)
	return &Collector{
		cacheHits: fac.NewCounterVec(prometheus.CounterOpts{
			Name: "arxquery_plan_cache_hits_total",
			Help: "Total number of plan cache lookups that hit.",
		}, []string{"collection"}),
		cacheMisses: fac.NewCounterVec(prometheus.CounterOpts{
			Name: "arxquery_plan_cache_misses_total",
			Help: "Total number of plan cache lookups that missed.",
		}, []string{"collection"}),
		cacheEvicted: fac.NewCounter(prometheus.CounterOpts{
			Name: "arxquery_plan_cache_evictions_total",
			Help: "Total number of plan cache entries evicted for capacity.",
		}),
		cacheSize: fac.NewGauge(prometheus.GaugeOpts{
			Name: "arxquery_plan_cache_size",
			Help: "Current number of entries held in the plan cache.",
		}),
		queriesTotal: fac.NewCounterVec(prometheus.CounterOpts{
			Name: "arxquery_queries_total",
			Help: "Total number of queries executed, by terminal operation.",
		}, []string{"terminal", "outcome"}),
		queryDuration: fac.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "arxquery_query_duration_seconds",
			Help:    "Query execution latency in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"terminal"}),
		chunksSkipped: fac.NewCounter(prometheus.CounterOpts{
			Name: "arxquery_zonemap_chunks_skipped_total",
			Help: "Total number of chunks skipped by a zone-map may_match decision.",
		}),
	}
}

func (c *Collector) CacheHit(collection string) {
	if c == nil {
		return
	}
	c.cacheHits.WithLabelValues(collection).Inc()
}

func (c *Collector) CacheMiss(collection string) {
	if c == nil {
		return
	}
	c.cacheMisses.WithLabelValues(collection).Inc()
}

func (c *Collector) CacheEvicted(n int) {
	if c == nil {
		return
	}
	c.cacheEvicted.Add(float64(n))
}

func (c *Collector) SetCacheSize(n int) {
	if c == nil {
		return
	}
	c.cacheSize.Set(float64(n))
}

func (c *Collector) ObserveQuery(terminal, outcome string, seconds float64) {
	if c == nil {
		return
	}
	c.queriesTotal.WithLabelValues(terminal, outcome).Inc()
	c.queryDuration.WithLabelValues(terminal).Observe(seconds)
}

func (c *Collector) ChunksSkipped(n int) {
	if c == nil {
		return
	}
	c.chunksSkipped.Add(float64(n))
}
