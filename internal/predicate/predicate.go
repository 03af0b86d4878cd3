// Package predicate defines the resolved predicate representation the
// analyzer (C5) produces and the executor (C7) evaluates, plus the
// selectivity-based reordering pass spec §4.4 requires before evaluation
// begins (component C4).
package predicate

import (
	"sort"

	"github.com/arx-os/arxquery/internal/kernel"
)

// Predicate is a single resolved comparison or membership test against one
// column, with the field already bound to a column index by the analyzer.
type Predicate struct {
	ColumnIndex int
	Field       string
	Op          kernel.Operator
	Literal     any

	// EstimatedSelectivity is the fraction of rows (0..1) this predicate is
	// expected to retain, used only to choose evaluation order — it never
	// affects correctness.
	EstimatedSelectivity float64
}

// defaultSelectivity returns a rough a-priori selectivity per operator,
// grounded on the conventional rule-of-thumb planners use absent column
// statistics (spec §4.4): equality is assumed highly selective, inequality
// barely selective at all, ordering comparisons roughly a third.
func defaultSelectivity(op kernel.Operator) float64 {
	switch op {
	case kernel.Eq:
		return 0.1
	case kernel.Ne:
		return 0.9
	case kernel.Lt, kernel.Le, kernel.Gt, kernel.Ge:
		return 0.33
	case kernel.In:
		return 0.2
	case kernel.IsNull:
		return 0.05
	case kernel.IsNotNull:
		return 0.95
	case kernel.Contains:
		return 0.25
	case kernel.StartsWith, kernel.EndsWith:
		return 0.15
	default:
		return 0.5
	}
}

// EstimateSelectivity assigns p.EstimatedSelectivity using zoneStats when
// available (a tighter, data-driven estimate restricted to the predicate's
// own chunk range) and defaultSelectivity otherwise.
func EstimateSelectivity(p *Predicate, zoneSelectivity float64, haveZoneStats bool) {
	if haveZoneStats {
		p.EstimatedSelectivity = zoneSelectivity
		return
	}
	p.EstimatedSelectivity = defaultSelectivity(p.Op)
}

// reorderThreshold is the minimum spread between the most and least
// selective predicate's estimate before reordering is worth the sort cost
// (spec §4.4: "only reorder when the spread exceeds 0.20").
const reorderThreshold = 0.20

// ReorderForAll sorts preds ascending by estimated selectivity in place —
// cheapest-to-fail-fast first — for a conjunction ("all") plan, stably so
// predicates with equal selectivity keep their original relative order
// (determinism invariant, spec §4.4/§8).
func ReorderForAll(preds []Predicate) {
	reorder(preds, false)
}

// ReorderForAny sorts preds descending by estimated selectivity in place —
// most-likely-to-succeed first — for a disjunction ("any") plan.
func ReorderForAny(preds []Predicate) {
	reorder(preds, true)
}

func reorder(preds []Predicate, descending bool) {
	if len(preds) < 2 {
		return
	}
	min, max := preds[0].EstimatedSelectivity, preds[0].EstimatedSelectivity
	for _, p := range preds[1:] {
		if p.EstimatedSelectivity < min {
			min = p.EstimatedSelectivity
		}
		if p.EstimatedSelectivity > max {
			max = p.EstimatedSelectivity
		}
	}
	if max-min <= reorderThreshold {
		return
	}
	sort.SliceStable(preds, func(i, j int) bool {
		if descending {
			return preds[i].EstimatedSelectivity > preds[j].EstimatedSelectivity
		}
		return preds[i].EstimatedSelectivity < preds[j].EstimatedSelectivity
	})
}
