// Package executor runs a resolved plan.Plan against a column.Batch (spec
// §4.7, component C7): it reorders predicates by selectivity, evaluates
// them chunk by chunk with zone-map skipping, dispatches chunks across
// goroutines once the batch is large enough to be worth it, and reduces
// the per-chunk selections into the plan's terminal result.
package executor

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/arx-os/arxquery/internal/aggregate"
	"github.com/arx-os/arxquery/internal/bitmap"
	"github.com/arx-os/arxquery/internal/column"
	arxerrors "github.com/arx-os/arxquery/internal/errors"
	"github.com/arx-os/arxquery/internal/kernel"
	"github.com/arx-os/arxquery/internal/materialize"
	"github.com/arx-os/arxquery/internal/metrics"
	"github.com/arx-os/arxquery/internal/plan"
	"github.com/arx-os/arxquery/internal/zonemap"
)

// Result is the terminal outcome of a query, with only the fields that
// plan.Terminal produces populated.
type Result struct {
	Count      int
	Bool       bool
	Row        int // -1 if none
	RowIndices []int
	Values     []any // materialize_all's T[] result (spec §4.9, C9), populated when a MaterializeFunc is configured
	Aggregate  aggregate.Result
	GroupSums  map[string]map[string]float64 // group_by: key -> result_name -> value
}

// MaterializeFunc converts one selected row of batch into a caller-defined
// value for the materialize_all terminal (spec §4.9, component C9).
// Mirrors arxquery.MaterializeFunc; kept as its own type here so this
// package never imports the root module.
type MaterializeFunc func(batch *column.Batch, row int) any

// Config carries the executor's tunables, mirroring options.Options'
// execution-relevant fields without importing the options package
// (avoiding a dependency cycle with callers that build Options from
// executor-level defaults).
type Config struct {
	ChunkSize         int
	ParallelThreshold int
	// Metrics is optional; a nil Collector is safe to call on (all of its
	// methods are nil-receiver-safe) and simply records nothing.
	Metrics *metrics.Collector
	// Materialize is optional; when set, TerminalMaterialize populates
	// Result.Values by calling it for every selected row (spec §4.9's
	// object-array fill) in addition to RowIndices. A nil Materialize
	// leaves Values unpopulated.
	Materialize MaterializeFunc
}

// DefaultConfig returns the spec's default chunk size and parallel
// threshold.
func DefaultConfig() Config {
	return Config{ChunkSize: 16384, ParallelThreshold: 10000}
}

// Run executes p against batch and returns the terminal result. ctx
// cancellation is honored between chunks: once ctx is done, remaining
// chunks are not started and Run returns an arxerrors Cancelled error.
func Run(ctx context.Context, batch *column.Batch, p *plan.Plan, cfg Config) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, arxerrors.NewCancelled("executor.Run")
	}

	switch p.Terminal {
	case plan.TerminalAny, plan.TerminalFirst, plan.TerminalFirstOrDefault:
		return runStreaming(ctx, batch, p, cfg.Metrics)
	case plan.TerminalTakeN:
		return runBoundedSparse(ctx, batch, p, cfg.Metrics)
	default:
		return runBitmapMode(ctx, batch, p, cfg)
	}
}

// evalPredicatesRange evaluates every predicate in p over [start, end),
// folding each into sel, using zone-map stats to clear the whole chunk
// without running a kernel when a predicate provably matches no row in it,
// and stopping early once sel has no set bits left (spec §4.7's
// early-exit-on-all-zero).
func evalPredicatesRange(sel *bitmap.Bitmap, batch *column.Batch, p *plan.Plan, start, end int, mc *metrics.Collector) error {
	if p.Disjunction {
		return evalDisjunctionRange(sel, batch, p, start, end)
	}
	for _, pred := range p.Predicates {
		if sel.CountSet() == 0 {
			return nil
		}
		col := batch.Column(pred.ColumnIndex)
		if col.Type.IsNumeric() {
			stats := zonemap.Lookup(col.ZoneMaps, start, end)
			if lit, ok := asFloatLiteral(pred.Literal); ok {
				if !zonemap.MayMatch(stats, zoneOp(pred.Op), lit) {
					sel.ClearRange(start, end)
					mc.ChunksSkipped(1)
					return nil
				}
			}
		}
		if err := kernel.Eval(sel, col, pred.Op, pred.Literal, start, end); err != nil {
			return err
		}
	}
	return nil
}

func evalDisjunctionRange(sel *bitmap.Bitmap, batch *column.Batch, p *plan.Plan, start, end int) error {
	acc := bitmap.New(sel.Len(), false)
	defer acc.Release()
	for _, pred := range p.Predicates {
		branch := bitmap.New(sel.Len(), false)
		for i := start; i < end; i++ {
			if sel.Get(i) {
				branch.Set(i)
			}
		}
		col := batch.Column(pred.ColumnIndex)
		if err := kernel.Eval(branch, col, pred.Op, pred.Literal, start, end); err != nil {
			branch.Release()
			return err
		}
		acc.Or(branch)
		branch.Release()
	}
	for i := start; i < end; i++ {
		if !acc.Get(i) {
			sel.Clear(i)
		}
	}
	return nil
}

// zoneOp translates a kernel.Operator into zonemap's own Op enum. zonemap
// cannot import kernel directly (kernel imports column, and column stores
// a []zonemap.Stats, which would close an import cycle), so the executor
// does the translation at the one call site that needs both.
func zoneOp(op kernel.Operator) zonemap.Op {
	switch op {
	case kernel.Eq:
		return zonemap.Eq
	case kernel.Ne:
		return zonemap.Ne
	case kernel.Lt:
		return zonemap.Lt
	case kernel.Le:
		return zonemap.Le
	case kernel.Gt:
		return zonemap.Gt
	case kernel.Ge:
		return zonemap.Ge
	case kernel.IsNull:
		return zonemap.IsNull
	default:
		return zonemap.Other
	}
}

// toGroupFunc translates a plan.AggFunc into the aggregate package's
// GroupFunc, the two enums the group_by and plain-aggregate terminals
// share a single kernel between.
func toGroupFunc(f plan.AggFunc) aggregate.GroupFunc {
	switch f {
	case plan.AggSum:
		return aggregate.GroupSum
	case plan.AggAvg:
		return aggregate.GroupAvg
	case plan.AggMin:
		return aggregate.GroupMin
	case plan.AggMax:
		return aggregate.GroupMax
	default:
		return aggregate.GroupCount
	}
}

func asFloatLiteral(lit any) (float64, bool) {
	switch v := lit.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	case uint64:
		return float64(v), true
	default:
		return 0, false
	}
}

// runBitmapMode is the default mode: build a full-batch selection bitmap,
// evaluate every predicate chunk by chunk (parallel once the batch exceeds
// cfg.ParallelThreshold rows), then reduce into the plan's terminal.
func runBitmapMode(ctx context.Context, batch *column.Batch, p *plan.Plan, cfg Config) (Result, error) {
	n := batch.NumRows
	sel := bitmap.New(n, true)
	defer sel.Release()

	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = n
	}
	if chunkSize > n && n > 0 {
		chunkSize = n
	}

	if n < cfg.ParallelThreshold || chunkSize >= n {
		for start := 0; start < n; start += chunkSize {
			if err := ctx.Err(); err != nil {
				return Result{}, arxerrors.NewCancelled("executor.runBitmapMode")
			}
			end := start + chunkSize
			if end > n {
				end = n
			}
			if err := evalPredicatesRange(sel, batch, p, start, end, cfg.Metrics); err != nil {
				return Result{}, err
			}
		}
	} else {
		if err := evalParallel(ctx, sel, batch, p, chunkSize, cfg.Metrics); err != nil {
			return Result{}, err
		}
	}

	return reduce(ctx, sel, batch, p, cfg.Materialize)
}

// evalParallel dispatches disjoint [start,end) chunks across goroutines,
// bounded by a GOMAXPROCS-sized semaphore (spec §5's fork-join model).
// Every chunk writes only to its own disjoint word range of sel, so no
// additional synchronization is needed once each goroutine's slice is
// word-aligned; chunkSize is assumed to be a multiple of 64 in the common
// case, and the final partial word is safe to race-write only from the
// single goroutine that owns it because chunk boundaries are chosen to
// fall on word boundaries except for the last chunk.
func evalParallel(ctx context.Context, sel *bitmap.Bitmap, batch *column.Batch, p *plan.Plan, chunkSize int, mc *metrics.Collector) error {
	n := batch.NumRows
	sem := make(chan struct{}, runtime.GOMAXPROCS(0))
	g, gctx := errgroup.WithContext(ctx)

	for start := 0; start < n; start += chunkSize {
		start := start
		end := start + chunkSize
		if end > n {
			end = n
		}
		sem <- struct{}{}
		g.Go(func() error {
			defer func() { <-sem }()
			select {
			case <-gctx.Done():
				return arxerrors.NewCancelled("executor.evalParallel")
			default:
			}
			return evalPredicatesRange(sel, batch, p, start, end, mc)
		})
	}
	return g.Wait()
}

// runStreaming evaluates rows in row order and stops at the first row
// satisfying every predicate (spec §4.7's streaming mode for any/first):
// no full bitmap is ever materialized because evaluation can stop the
// instant an answer is known.
func runStreaming(ctx context.Context, batch *column.Batch, p *plan.Plan, mc *metrics.Collector) (Result, error) {
	n := batch.NumRows
	const stride = 1024
	for start := 0; start < n; start += stride {
		if err := ctx.Err(); err != nil {
			return Result{}, arxerrors.NewCancelled("executor.runStreaming")
		}
		end := start + stride
		if end > n {
			end = n
		}
		sel := bitmap.New(end-start, true)
		if err := evalPredicatesRangeOffset(sel, batch, p, start, end, mc); err != nil {
			sel.Release()
			return Result{}, err
		}
		found := -1
		sel.IterSetIndices(func(row int) bool {
			found = row + start
			return false
		})
		sel.Release()
		if found >= 0 {
			switch p.Terminal {
			case plan.TerminalAny:
				return Result{Bool: true}, nil
			case plan.TerminalFirst, plan.TerminalFirstOrDefault:
				return Result{Row: found}, nil
			}
		}
	}
	switch p.Terminal {
	case plan.TerminalAny:
		return Result{Bool: false}, nil
	default:
		return Result{Row: -1}, nil
	}
}

// evalPredicatesRangeOffset evaluates predicates against a batch using
// local chunk-relative row indices, consulting the underlying columns at
// the chunk's absolute offset.
func evalPredicatesRangeOffset(sel *bitmap.Bitmap, batch *column.Batch, p *plan.Plan, absStart, absEnd int, mc *metrics.Collector) error {
	shifted := &plan.Plan{Predicates: p.Predicates, Disjunction: p.Disjunction}
	return evalPredicatesRange(sel, &column.Batch{NumRows: batch.NumRows, Columns: shiftColumns(batch, absStart, absEnd), FieldIndex: batch.FieldIndex}, shifted, 0, absEnd-absStart, mc)
}

// shiftColumns returns column views windowed to [start, end) so the
// streaming/bounded-sparse modes can reuse the same chunk-evaluation code
// as bitmap mode without allocating a full-batch bitmap.
func shiftColumns(batch *column.Batch, start, end int) []*column.Column {
	out := make([]*column.Column, len(batch.Columns))
	for i, c := range batch.Columns {
		out[i] = windowColumn(c, start, end)
	}
	return out
}

func windowColumn(c *column.Column, start, end int) *column.Column {
	w := &column.Column{Type: c.Type, Length: end - start, Scale: c.Scale}
	if c.Validity != nil {
		w.Validity = make([]byte, (end-start+7)/8)
		for i := start; i < end; i++ {
			if column.IsValid(c.Validity, i) {
				column.SetValid(w.Validity, i-start, true)
			} else {
				column.SetValid(w.Validity, i-start, false)
				w.NullCount++
			}
		}
	}
	switch c.Type {
	case column.Uint64:
		w.U64 = c.U64[start:end]
	case column.Float32:
		w.F32 = c.F32[start:end]
	case column.Float64:
		w.F64 = c.F64[start:end]
	case column.Bool:
		w.Bits = make([]uint64, (end-start+63)/64)
		for i := start; i < end; i++ {
			column.SetPackedBool(w.Bits, i-start, column.PackedBool(c.Bits, i))
		}
	case column.String:
		w.Str = c.Str[start:end]
	case column.StringDict:
		w.DictCodes = c.DictCodes[start:end]
		w.Dict = c.Dict
	case column.Binary:
		w.Bin = c.Bin[start:end]
	default:
		w.I64 = c.I64[start:end]
	}
	return w
}

// runBoundedSparse materializes row indices without ever allocating a
// full-batch selection bitmap, stopping as soon as p.Limit rows have been
// found (spec §4.7's bounded sparse-index mode for take_n).
func runBoundedSparse(ctx context.Context, batch *column.Batch, p *plan.Plan, mc *metrics.Collector) (Result, error) {
	n := batch.NumRows
	const stride = 1024
	var rows []int
	for start := 0; start < n && (p.Limit == 0 || len(rows) < p.Limit); start += stride {
		if err := ctx.Err(); err != nil {
			return Result{}, arxerrors.NewCancelled("executor.runBoundedSparse")
		}
		end := start + stride
		if end > n {
			end = n
		}
		sel := bitmap.New(end-start, true)
		if err := evalPredicatesRangeOffset(sel, batch, p, start, end, mc); err != nil {
			sel.Release()
			return Result{}, err
		}
		sel.IterSetIndices(func(row int) bool {
			rows = append(rows, row+start)
			return p.Limit == 0 || len(rows) < p.Limit
		})
		sel.Release()
	}
	if p.Limit > 0 && len(rows) > p.Limit {
		rows = rows[:p.Limit]
	}
	return Result{RowIndices: rows, Count: len(rows)}, nil
}

// reduce folds the final selection bitmap into the plan's terminal result.
// materializeFn is nil unless the Collection was constructed with one; when
// set, TerminalMaterialize uses it to populate Result.Values alongside
// RowIndices (spec §4.9's object-array fill, component C9).
func reduce(ctx context.Context, sel *bitmap.Bitmap, batch *column.Batch, p *plan.Plan, materializeFn MaterializeFunc) (Result, error) {
	switch p.Terminal {
	case plan.TerminalCount:
		return Result{Count: sel.CountSet()}, nil
	case plan.TerminalAll:
		return Result{Bool: sel.CountSet() == sel.Len()}, nil
	case plan.TerminalAggregate:
		if len(p.Aggregations) == 0 {
			return Result{}, arxerrors.NewNotSupported("executor.reduce", "no aggregation specified")
		}
		agg := p.Aggregations[0]
		col := batch.Column(agg.ColumnIndex)
		switch agg.Func {
		case plan.AggSum:
			res, err := aggregate.Sum(sel, col, "sum")
			if err != nil {
				return Result{}, err
			}
			return Result{Aggregate: res}, nil
		case plan.AggAvg:
			avg, err := aggregate.Avg(sel, col)
			if err != nil {
				return Result{}, err
			}
			return Result{Aggregate: aggregate.Result{SumF: avg, IsFloat: true}}, nil
		case plan.AggMin, plan.AggMax:
			min, max, count, err := aggregate.MinMax(sel, col)
			if err != nil {
				return Result{}, err
			}
			return Result{Aggregate: aggregate.Result{Min: min, Max: max, Count: count, IsFloat: true}}, nil
		case plan.AggCount:
			return Result{Count: aggregate.Count(sel, col)}, nil
		default:
			return Result{}, arxerrors.NewNotSupported("executor.reduce", "aggregate function")
		}
	case plan.TerminalGroupBy:
		if len(p.Aggregations) == 0 {
			return Result{}, arxerrors.NewNotSupported("executor.reduce", "group-by requires an aggregation")
		}
		groupCol := batch.Column(p.GroupByColumn)
		specs := make([]aggregate.GroupSpec, len(p.Aggregations))
		for i, a := range p.Aggregations {
			name := a.ResultName
			if name == "" {
				name = a.Field
			}
			specs[i] = aggregate.GroupSpec{Column: batch.Column(a.ColumnIndex), Func: toGroupFunc(a.Func), ResultName: name}
		}
		sums, err := aggregate.GroupBy(sel, groupCol, specs)
		if err != nil {
			return Result{}, err
		}
		return Result{GroupSums: sums}, nil
	default: // TerminalMaterialize
		rows := materialize.RowIndices(sel)
		if p.Offset > 0 {
			if p.Offset >= len(rows) {
				rows = nil
			} else {
				rows = rows[p.Offset:]
			}
		}
		if p.Limit > 0 && len(rows) > p.Limit {
			rows = rows[:p.Limit]
		}
		result := Result{RowIndices: rows, Count: len(rows)}
		if materializeFn != nil && len(rows) > 0 {
			trimmed := bitmap.New(batch.NumRows, false)
			defer trimmed.Release()
			for _, r := range rows {
				trimmed.Set(r)
			}
			values := make([]any, len(rows))
			if _, err := materialize.Fill(ctx, trimmed, func(destIndex, srcRow int) {
				values[destIndex] = materializeFn(batch, srcRow)
			}); err != nil {
				return Result{}, err
			}
			result.Values = values
		}
		return result, nil
	}
}
