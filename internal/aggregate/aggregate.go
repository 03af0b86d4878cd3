// Package aggregate implements the ungrouped and grouped reduction kernels
// the executor's terminal aggregate/group-by stage calls (spec §4.8,
// component C8). The dense/sparse choice is made once per call over the
// whole column: when every row is selected and the column has no nulls, a
// tight loop runs with no per-row bitmap test; otherwise only set bits are
// visited via the bitmap's trailing-zero-count walk.
package aggregate

import (
	"fmt"
	"math"

	"github.com/arx-os/arxquery/internal/bitmap"
	"github.com/arx-os/arxquery/internal/column"
	arxerrors "github.com/arx-os/arxquery/internal/errors"
)

// Result is the outcome of a single ungrouped aggregation.
type Result struct {
	Sum      int64
	SumF     float64
	Min      float64
	Max      float64
	Count    int
	IsFloat  bool
	Overflow bool
}

// isDense reports whether sel has every row set and col has no nulls over
// [0, n) — the fast path that skips per-row validity and bitmap checks
// entirely (spec §4.8's dense/sparse dispatch).
func isDense(sel *bitmap.Bitmap, col *column.Column, n int) bool {
	return sel.CountSet() == n && col.NullCount == 0
}

// Sum computes the sum of col restricted to sel, widening integers into
// int64 accumulation and detecting overflow (spec §4.8's widening-sum
// invariant). Floating columns accumulate as float64 with no overflow
// check (naive sequential sum, matching spec's explicit float semantics).
func Sum(sel *bitmap.Bitmap, col *column.Column, op string) (Result, error) {
	n := col.Length
	res := Result{}
	switch col.Type {
	case column.Float32, column.Float64:
		res.IsFloat = true
		walk(sel, col, n, func(i int) {
			if col.Type == column.Float32 {
				res.SumF += float64(col.F32[i])
			} else {
				res.SumF += col.F64[i]
			}
			res.Count++
		})
	default:
		overflowed := false
		walk(sel, col, n, func(i int) {
			v := intValue(col, i)
			next := res.Sum + v
			if (v > 0 && next < res.Sum) || (v < 0 && next > res.Sum) {
				overflowed = true
			}
			res.Sum = next
			res.Count++
		})
		res.Overflow = overflowed
	}
	if res.Count == 0 {
		return res, arxerrors.NewEmptySequence("aggregate.Sum")
	}
	if res.Overflow {
		return res, arxerrors.NewSumOverflow("aggregate.Sum", col.Length)
	}
	return res, nil
}

// Avg computes the mean. Integer/decimal columns sum exactly then divide
// as float64 (spec §4.8's "truncated avg" note applies only to the
// decimal's display scale, not the arithmetic itself).
func Avg(sel *bitmap.Bitmap, col *column.Column) (float64, error) {
	sum, err := Sum(sel, col, "avg")
	if err != nil {
		return 0, err
	}
	if sum.IsFloat {
		return sum.SumF / float64(sum.Count), nil
	}
	return float64(sum.Sum) / float64(sum.Count), nil
}

// MinMax computes the minimum and maximum selected value.
func MinMax(sel *bitmap.Bitmap, col *column.Column) (min, max float64, count int, err error) {
	n := col.Length
	min, max = math.Inf(1), math.Inf(-1)
	walk(sel, col, n, func(i int) {
		v := floatValue(col, i)
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
		count++
	})
	if count == 0 {
		return 0, 0, 0, arxerrors.NewEmptySequence("aggregate.MinMax")
	}
	return min, max, count, nil
}

// Count returns the number of selected, non-null rows.
func Count(sel *bitmap.Bitmap, col *column.Column) int {
	n := col.Length
	count := 0
	walk(sel, col, n, func(int) { count++ })
	return count
}

func walk(sel *bitmap.Bitmap, col *column.Column, n int, fn func(i int)) {
	if isDense(sel, col, n) {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}
	sel.IterSetIndices(func(i int) bool {
		if col.Validity != nil && !column.IsValid(col.Validity, i) {
			return true
		}
		fn(i)
		return true
	})
}

func intValue(col *column.Column, i int) int64 {
	if col.Type == column.Uint64 {
		return int64(col.U64[i])
	}
	return col.I64[i]
}

func floatValue(col *column.Column, i int) float64 {
	switch col.Type {
	case column.Float32:
		return float64(col.F32[i])
	case column.Float64:
		return col.F64[i]
	case column.Uint64:
		return float64(col.U64[i])
	default:
		return float64(col.I64[i])
	}
}

// smallCardinalityThreshold is the distinct-group-count boundary below
// which grouped aggregation uses a dense array indexed by dictionary code
// instead of a hash map (spec §4.8).
const smallCardinalityThreshold = 256

// GroupFunc identifies a per-group reduction kernel (spec §3's group_by
// triple (op, column_index, result_name)).
type GroupFunc uint8

const (
	GroupSum GroupFunc = iota
	GroupAvg
	GroupMin
	GroupMax
	GroupCount
)

// GroupSpec names one aggregate the group_by terminal computes: which
// column it reads and what the result is reported as.
type GroupSpec struct {
	Column     *column.Column
	Func       GroupFunc
	ResultName string
}

// accState accumulates every statistic a GroupFunc might need for one
// (group, spec) pair, so a single pass over the selection computes every
// requested aggregate at once rather than one pass per spec.
type accState struct {
	sum      float64
	count    int
	min, max float64
	hasRange bool
}

func (a *accState) add(v float64) {
	a.sum += v
	a.count++
	if !a.hasRange {
		a.min, a.max = v, v
		a.hasRange = true
	} else {
		if v < a.min {
			a.min = v
		}
		if v > a.max {
			a.max = v
		}
	}
}

func (a accState) result(f GroupFunc) float64 {
	switch f {
	case GroupSum:
		return a.sum
	case GroupAvg:
		if a.count == 0 {
			return 0
		}
		return a.sum / float64(a.count)
	case GroupMin:
		return a.min
	case GroupMax:
		return a.max
	case GroupCount:
		return float64(a.count)
	default:
		return 0
	}
}

// GroupBy computes every aggregate in specs, grouped by groupCol's value at
// each selected row, for a key column of any logical type (spec §3's
// group_by terminal is not restricted to dictionary-encoded string keys).
// When groupCol is column.StringDict with at most smallCardinalityThreshold
// distinct values, an array indexed directly by dictionary code is used
// instead of a map (spec §4.8's array-indexed grouping fast path); every
// other type or cardinality falls back to a generic string-keyed map.
// Returns group label -> result name -> value.
func GroupBy(sel *bitmap.Bitmap, groupCol *column.Column, specs []GroupSpec) (map[string]map[string]float64, error) {
	if len(specs) == 0 {
		return nil, arxerrors.NewNotSupported("aggregate.GroupBy", "no aggregations specified")
	}
	if groupCol.Type == column.StringDict && len(groupCol.Dict) <= smallCardinalityThreshold {
		return groupByDictCode(sel, groupCol, specs), nil
	}
	return groupByGenericKey(sel, groupCol, specs), nil
}

func groupByDictCode(sel *bitmap.Bitmap, groupCol *column.Column, specs []GroupSpec) map[string]map[string]float64 {
	accs := make([][]accState, len(groupCol.Dict))
	seen := make([]bool, len(groupCol.Dict))
	sel.IterSetIndices(func(i int) bool {
		if groupCol.Validity != nil && !column.IsValid(groupCol.Validity, i) {
			return true
		}
		code := groupCol.DictCodes[i]
		if accs[code] == nil {
			accs[code] = make([]accState, len(specs))
		}
		seen[code] = true
		accumulateRow(accs[code], specs, i)
		return true
	})
	out := make(map[string]map[string]float64, len(groupCol.Dict))
	for code, row := range accs {
		if seen[code] {
			out[groupCol.Dict[code]] = finalize(row, specs)
		}
	}
	return out
}

func groupByGenericKey(sel *bitmap.Bitmap, groupCol *column.Column, specs []GroupSpec) map[string]map[string]float64 {
	accs := make(map[string][]accState)
	sel.IterSetIndices(func(i int) bool {
		label, ok := groupKey(groupCol, i)
		if !ok {
			return true
		}
		row, ok := accs[label]
		if !ok {
			row = make([]accState, len(specs))
			accs[label] = row
		}
		accumulateRow(row, specs, i)
		return true
	})
	out := make(map[string]map[string]float64, len(accs))
	for label, row := range accs {
		out[label] = finalize(row, specs)
	}
	return out
}

// groupKey extracts row i's group-key value as a string, using the row's
// natural Go type so a boolean key naturally labels groups "true"/"false"
// (spec's S6 scenario: group_by key=IsActive).
func groupKey(col *column.Column, i int) (string, bool) {
	v := column.ValueAt(col, i)
	if v == nil {
		return "", false
	}
	return fmt.Sprint(v), true
}

func accumulateRow(row []accState, specs []GroupSpec, i int) {
	for si, spec := range specs {
		v, ok := specValue(spec.Column, i)
		if !ok {
			continue
		}
		row[si].add(v)
	}
}

func finalize(row []accState, specs []GroupSpec) map[string]float64 {
	out := make(map[string]float64, len(specs))
	for si, spec := range specs {
		out[spec.ResultName] = row[si].result(spec.Func)
	}
	return out
}

// specValue widens column col's row i to float64 for accumulation,
// reporting false when the row is null under col's own validity bitmap.
func specValue(col *column.Column, i int) (float64, bool) {
	if col.Validity != nil && !column.IsValid(col.Validity, i) {
		return 0, false
	}
	if col.Type == column.Bool {
		if column.PackedBool(col.Bits, i) {
			return 1, true
		}
		return 0, true
	}
	return floatValue(col, i), true
}
