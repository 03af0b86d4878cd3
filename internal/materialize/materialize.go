// Package materialize copies selected rows out of a Batch into contiguous
// result storage (spec §4.9, component C9). The row count is known exactly
// before any allocation happens (from the selection bitmap's CountSet), so
// the materializer allocates precisely once rather than growing a slice.
package materialize

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/arx-os/arxquery/internal/bitmap"
)

// parallelThreshold is the result row count above which materialization
// splits into concurrent chunked runs (spec §4.9).
const parallelThreshold = 10000

// runSpan is the number of rows each parallel fill goroutine claims,
// chosen so that run boundaries stay cheap to compute while keeping each
// goroutine's share of work well above scheduling overhead (spec §4.9).
const runSpan = 4096

// RowIndices returns the selected row positions in ascending order, without
// copying any column data — the zero-allocation-beyond-the-index-list
// alternative spec §4.9 calls for when a caller only needs row identity
// (e.g. a subsequent aggregation pass), not materialized values.
func RowIndices(sel *bitmap.Bitmap) []int {
	count := sel.CountSet()
	out := make([]int, 0, count)
	sel.IterSetIndices(func(row int) bool {
		out = append(out, row)
		return true
	})
	return out
}

// Fill calls copyRow(destIndex, srcRow) for every selected row,
// writing into a result exactly sized to sel.CountSet(). Below
// parallelThreshold rows it fills sequentially; above it, ascending order
// is preserved by precomputing row indices, then copying fixed-size runs
// of runSpan concurrently via errgroup — every run's destination range is
// disjoint, so no synchronization is needed inside copyRow (spec §4.9,
// §5's concurrency model).
func Fill(ctx context.Context, sel *bitmap.Bitmap, copyRow func(destIndex, srcRow int)) (int, error) {
	count := sel.CountSet()
	if count == 0 {
		return 0, nil
	}
	if count < parallelThreshold {
		destIdx := 0
		sel.IterSetIndices(func(row int) bool {
			copyRow(destIdx, row)
			destIdx++
			return true
		})
		return count, nil
	}

	rows := RowIndices(sel)
	g, gctx := errgroup.WithContext(ctx)
	for start := 0; start < len(rows); start += runSpan {
		start := start
		end := start + runSpan
		if end > len(rows) {
			end = len(rows)
		}
		g.Go(func() error {
			for i := start; i < end; i++ {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
				copyRow(i, rows[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return count, nil
}
