package column

import (
	"math"

	"github.com/arx-os/arxquery/internal/zonemap"
)

// buildZoneMaps computes col's zone maps once, chunk by chunk, so the
// executor's zonemap.Lookup is an O(1)-ish precomputed-table consult
// instead of a rescan of the column's values on every predicate
// evaluation (spec §3/§4.3). Returns nil for non-numeric types, which
// never participate in zone-map skip decisions.
func buildZoneMaps(col *Column) []zonemap.Stats {
	if !col.Type.IsNumeric() {
		return nil
	}
	n := col.Length
	if n == 0 {
		return nil
	}
	chunks := (n + zonemap.ChunkSize - 1) / zonemap.ChunkSize
	zones := make([]zonemap.Stats, chunks)
	for c := 0; c < chunks; c++ {
		start := c * zonemap.ChunkSize
		end := start + zonemap.ChunkSize
		if end > n {
			end = n
		}
		zones[c] = buildOneZone(col, start, end)
	}
	return zones
}

func buildOneZone(col *Column, start, end int) zonemap.Stats {
	min, max := math.Inf(1), math.Inf(-1)
	sawValue := false
	for i := start; i < end; i++ {
		if !IsValid(col.Validity, i) {
			continue
		}
		v := numericValueAt(col, i)
		sawValue = true
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if !sawValue {
		return zonemap.Stats{AllNull: true}
	}
	return zonemap.Stats{Min: min, Max: max}
}

// numericValueAt widens row i of a numeric column to float64, sufficient
// precision for zone-map range comparisons across every numeric
// LogicalType spec §4.3 lists.
func numericValueAt(col *Column, i int) float64 {
	switch col.Type {
	case Uint64:
		return float64(col.U64[i])
	case Float32:
		return float64(col.F32[i])
	case Float64:
		return col.F64[i]
	default:
		return float64(col.I64[i])
	}
}
