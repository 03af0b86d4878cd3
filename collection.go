// Package arxquery is the public entry point for the query engine: an
// immutable, columnar Collection over a single batch of rows, queried
// through a cached, pushed-down predicate plan (spec §1–§2).
package arxquery

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arx-os/arxquery/internal/cache"
	"github.com/arx-os/arxquery/internal/column"
	arxerrors "github.com/arx-os/arxquery/internal/errors"
	"github.com/arx-os/arxquery/internal/executor"
	"github.com/arx-os/arxquery/internal/metrics"
	"github.com/arx-os/arxquery/internal/options"
	"github.com/arx-os/arxquery/internal/plan"
	"github.com/arx-os/arxquery/internal/resultcache"
)

// MaterializeFunc converts one selected row of batch into a caller-defined
// T value for the materialize_all terminal (spec §4.9/§6, component C9).
// row is an absolute row index into the Collection's underlying batch.
type MaterializeFunc func(batch *column.Batch, row int) any

// Collection is a finite, immutable, ordered set of rows backed by a
// single column.Batch. All query operations are read-only: a Collection
// never mutates its underlying batch (spec §1's immutability invariant).
type Collection struct {
	name          string
	batch         *column.Batch
	opts          *options.Options
	planner       *cache.PlanCache
	results       *resultcache.Cache
	metrics       *metrics.Collector
	logger        *zap.Logger
	materializeFn MaterializeFunc
}

// New constructs a Collection named name over batch, using opts (or
// options.Default() if nil). materializeFn is optional (spec §6's
// new_collection(batch, field_index_map, materialize_fn, cache_capacity));
// a nil materializeFn means the materialize_all terminal only reports
// RowIndices, never Result.Values.
func New(name string, batch *column.Batch, materializeFn MaterializeFunc, opts *options.Options) (*Collection, error) {
	if batch == nil {
		return nil, arxerrors.NewInternal("arxquery.New", "batch must not be nil")
	}
	if opts == nil {
		opts = options.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	mc := metrics.NewCollector(opts.Registry)
	rc, err := resultcache.New(opts.ResultCacheSize)
	if err != nil {
		return nil, err
	}
	return &Collection{
		name:          name,
		batch:         batch,
		opts:          opts,
		planner:       cache.New(opts.CacheCapacity, name, mc),
		results:       rc,
		metrics:       mc,
		logger:        logger,
		materializeFn: materializeFn,
	}, nil
}

// Query resolves req against the collection's schema (consulting the plan
// cache by structural shape), executes it, and returns the terminal
// result. ctx cancellation is honored mid-execution (spec §5).
func (c *Collection) Query(ctx context.Context, req plan.Request) (executor.Result, error) {
	start := timeNow()
	queryID := uuid.New()

	var p *plan.Plan
	probe, err := plan.Analyze(c.batch, req)
	if err != nil {
		return executor.Result{}, err
	}
	key := probe.StructuralKey()
	if cached, ok := c.planner.Get(key); ok {
		p = cached
	} else {
		p = probe
		c.planner.Put(key, p)
	}

	cfg := executor.Config{
		ChunkSize:         c.opts.ChunkSize,
		ParallelThreshold: c.opts.ParallelThreshold,
		Metrics:           c.metrics,
		Materialize:       executor.MaterializeFunc(c.materializeFn),
	}
	res, err := executor.Run(ctx, c.batch, p, cfg)

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.metrics.ObserveQuery(terminalLabel(p.Terminal), outcome, timeNow().Sub(start).Seconds())

	if err != nil {
		c.logger.Debug("query failed", zap.String("collection", c.name), zap.String("query_id", queryID.String()), zap.Error(err))
	}
	return res, err
}

func terminalLabel(t plan.TerminalOp) string {
	switch t {
	case plan.TerminalMaterialize:
		return "materialize"
	case plan.TerminalCount:
		return "count"
	case plan.TerminalAny:
		return "any"
	case plan.TerminalAll:
		return "all"
	case plan.TerminalFirst:
		return "first"
	case plan.TerminalFirstOrDefault:
		return "first_or_default"
	case plan.TerminalTakeN:
		return "take_n"
	case plan.TerminalAggregate:
		return "aggregate"
	case plan.TerminalGroupBy:
		return "group_by"
	default:
		return "unknown"
	}
}

// CacheStats reports the plan cache's hit/miss/size counters.
func (c *Collection) CacheStats() cache.Stats {
	return c.planner.Stats()
}

// ClearCache empties the plan cache.
func (c *Collection) ClearCache() {
	c.planner.Clear()
}

// NumRows returns the collection's fixed row count.
func (c *Collection) NumRows() int { return c.batch.NumRows }

// ValueAt returns field's value at row, consulting the optional result
// cache first (spec §4.7's optional row-value cache, C14). Safe to call
// repeatedly for the same (field, row): a cache hit and a cache miss
// always agree, since the underlying batch never mutates.
func (c *Collection) ValueAt(field string, row int) (any, error) {
	idx, ok := c.batch.ColumnIndex(field)
	if !ok {
		return nil, arxerrors.NewSchemaMismatch("arxquery.ValueAt", "unknown field: "+field)
	}
	if row < 0 || row >= c.batch.NumRows {
		return nil, arxerrors.NewInternal("arxquery.ValueAt", "row index out of range")
	}

	key := resultcache.Key(field, row)
	if v, ok := c.results.Get(key); ok {
		return v, nil
	}
	v := column.ValueAt(c.batch.Column(idx), row)
	c.results.Set(key, v)
	return v, nil
}

// timeNow is isolated so it is the only place this package calls time.Now,
// keeping query-duration measurement auditable and easy to stub in tests.
func timeNow() time.Time { return time.Now() }
