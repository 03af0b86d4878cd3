package plan

import (
	"fmt"

	"github.com/arx-os/arxquery/internal/predicate"
)

// Aggregation names one reduction the terminal aggregate/group-by op
// computes over a resolved column.
type Aggregation struct {
	ColumnIndex int
	Field       string
	Func        AggFunc

	// ResultName is the key the terminal result is reported under (spec
	// §3's group_by triple (op, column_index, result_name)). Defaults to
	// Field when empty (the plain TerminalAggregate path has no group-by
	// keying and doesn't need distinct names).
	ResultName string
}

// AggFunc identifies an aggregate kernel (spec §4.8).
type AggFunc uint8

const (
	AggSum AggFunc = iota
	AggAvg
	AggMin
	AggMax
	AggCount
)

// Plan is the fully resolved, analyzer-checked query the executor runs.
// Predicates have already been selectivity-reordered (spec §4.4) by the
// time a Plan reaches the executor.
type Plan struct {
	Predicates    []predicate.Predicate
	Disjunction   bool // top-level Or rather than And
	Limit         int  // 0 means unbounded
	Offset        int
	OrderBy       *OrderBy
	Terminal      TerminalOp
	Aggregations  []Aggregation
	GroupByField  string
	GroupByColumn int

	// TouchedColumns lists every column index any predicate, order-by,
	// group-by, or aggregation references (spec §4.5). The executor does not
	// consult it.
	TouchedColumns []int

	// FullyPushed reports whether the whole plan can execute as a single
	// bitmap pass without a fallback row-at-a-time re-check. False for any
	// plan containing an Or, whether at the top level or nested in an And
	// (spec §4.5's pushdown boundary).
	FullyPushed bool
}

// StructuralKey returns a cache key capturing the plan's full shape: field
// names, operators, literal values, terminal op, limit/offset, order-by,
// and group-by/aggregations. Two queries differing only in a literal
// constant get distinct keys — parameterized sharing is an explicit
// non-goal (spec §4.6).
func (p *Plan) StructuralKey() string {
	key := make([]byte, 0, 128)
	if p.Disjunction {
		key = append(key, "or|"...)
	} else {
		key = append(key, "and|"...)
	}
	for _, pr := range p.Predicates {
		key = append(key, pr.Field...)
		key = append(key, ':')
		key = appendUint(key, uint64(pr.Op))
		key = append(key, ':')
		key = append(key, fmt.Sprintf("%T=%v", pr.Literal, pr.Literal)...)
		key = append(key, '|')
	}
	key = append(key, "term:"...)
	key = appendUint(key, uint64(p.Terminal))
	if p.OrderBy != nil {
		key = append(key, "|ob:"...)
		key = append(key, p.OrderBy.Field...)
		if p.OrderBy.Descending {
			key = append(key, ":desc"...)
		}
	}
	key = append(key, "|lim:"...)
	key = appendUint(key, uint64(p.Limit))
	key = append(key, "|off:"...)
	key = appendUint(key, uint64(p.Offset))
	if p.GroupByField != "" {
		key = append(key, "|gb:"...)
		key = append(key, p.GroupByField...)
	}
	for _, a := range p.Aggregations {
		key = append(key, "|agg:"...)
		key = append(key, a.Field...)
		key = append(key, ':')
		key = appendUint(key, uint64(a.Func))
		key = append(key, ':')
		key = append(key, a.ResultName...)
	}
	return string(key)
}

func appendUint(dst []byte, v uint64) []byte {
	if v == 0 {
		return append(dst, '0')
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return append(dst, buf[i:]...)
}
