// Package zonemap implements per-chunk min/max/null summary statistics and
// the may_match decision the executor consults before running a kernel
// over a chunk it can prove would contribute nothing (spec §4.3, C3).
//
// Stats are computed once, at batch construction time, by the column
// package (see column.Column.ZoneMaps) and never recomputed afterward —
// this package only folds and queries precomputed stats, so it stays a
// leaf with no dependency on column and no per-query scan cost.
package zonemap

import "math"

// ChunkSize is the row granularity a zone map is built over: column.Column
// stores one Stats entry per ChunkSize-row span, computed once when its
// batch is constructed (spec §3/§4.3: "built once at batch construction;
// immutable thereafter").
const ChunkSize = 8192

// Stats summarizes one chunk of a numeric column: the inclusive value
// range as float64 (sufficient precision for skip decisions across every
// numeric LogicalType spec §4.3 lists) and whether every row is null.
type Stats struct {
	Min     float64
	Max     float64
	AllNull bool
}

// Op is zonemap's own copy of the handful of comparison operators a skip
// decision can be made for. It mirrors a subset of kernel.Operator's
// values without importing the kernel package — column.Column stores a
// []Stats per column (see column.ZoneMaps), and kernel already imports
// column, so zonemap importing kernel would close a cycle. Callers (the
// executor) translate kernel.Operator to Op at the call site.
type Op uint8

const (
	Eq Op = iota
	Ne
	Lt
	Le
	Gt
	Ge
	IsNull
	Other // In, IsNotNull, string operations, or any non-range-checkable op
)

// GlobalStats folds a run of per-chunk Stats into a single summary; Lookup
// uses it to fold the chunks a row range overlaps (spec §4.3). No query is
// short-circuited on whole-column stats.
func GlobalStats(chunks []Stats) Stats {
	g := Stats{Min: math.Inf(1), Max: math.Inf(-1), AllNull: true}
	for _, s := range chunks {
		if s.AllNull {
			continue
		}
		g.AllNull = false
		if s.Min < g.Min {
			g.Min = s.Min
		}
		if s.Max > g.Max {
			g.Max = s.Max
		}
	}
	return g
}

// Lookup folds the precomputed zones covering the half-open row range
// [start, end) into one Stats value, an O(number-of-overlapping-chunks)
// operation rather than a rescan of the underlying values — the chunks a
// query touches are almost always a handful of ChunkSize-sized entries,
// not the full column. A query range with no corresponding zone data
// (empty zones, or a range beyond what was computed) returns a fully
// permissive Stats so MayMatch never skips on missing information.
func Lookup(zones []Stats, start, end int) Stats {
	permissive := Stats{Min: math.Inf(-1), Max: math.Inf(1)}
	if len(zones) == 0 || start >= end {
		return permissive
	}
	firstChunk := start / ChunkSize
	lastChunk := (end - 1) / ChunkSize
	if firstChunk >= len(zones) {
		return permissive
	}
	if lastChunk >= len(zones) {
		lastChunk = len(zones) - 1
	}
	return GlobalStats(zones[firstChunk : lastChunk+1])
}

// MayMatch reports whether the chunk summarized by s could possibly
// contain a row satisfying op against lit. A false return proves the chunk
// can be skipped entirely without evaluating a single row (spec §4.3's
// skip decision table). An all-null chunk matches only IsNull. Otherwise,
// operators without a useful range argument (In, IsNull, IsNotNull, string
// operations, equality against non-numeric literals) return true — no skip
// decision is made for them here.
func MayMatch(s Stats, op Op, lit float64) bool {
	if s.AllNull {
		return op == IsNull
	}
	switch op {
	case Eq:
		return lit >= s.Min && lit <= s.Max
	case Ne:
		return !(s.Min == s.Max && s.Min == lit)
	case Lt:
		return s.Min < lit
	case Le:
		return s.Min <= lit
	case Gt:
		return s.Max > lit
	case Ge:
		return s.Max >= lit
	default:
		return true
	}
}
