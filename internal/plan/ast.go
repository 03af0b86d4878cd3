// Package plan turns a caller-supplied logical query expression into a
// resolved, analyzer-checked Plan the executor runs directly (spec §4.5,
// component C5).
package plan

import "github.com/arx-os/arxquery/internal/kernel"

// Expr is a logical predicate-tree node as supplied by the caller, before
// field names have been resolved against a batch's schema.
type Expr interface {
	isExpr()
}

// Compare is a leaf comparison: field op literal.
type Compare struct {
	Field   string
	Op      kernel.Operator
	Literal any
}

func (Compare) isExpr() {}

// And is a conjunction of sub-expressions (spec's "all").
type And struct{ Exprs []Expr }

func (And) isExpr() {}

// Or is a disjunction of sub-expressions (spec's "any"). Any plan
// containing Or at the top level cannot be fully represented as a single
// evaluation-order bitmap pass and is marked FullyPushed=false (spec
// §4.5).
type Or struct{ Exprs []Expr }

func (Or) isExpr() {}

// TerminalOp identifies what the executor does with the final selection.
type TerminalOp uint8

const (
	TerminalMaterialize TerminalOp = iota
	TerminalCount
	TerminalAny
	TerminalAll
	TerminalFirst
	TerminalFirstOrDefault
	TerminalTakeN
	TerminalAggregate
	TerminalGroupBy
)

// OrderBy names a sort column for a query. The analyzer resolves its field
// and it is part of the plan's structural key, but no stage sorts by it:
// results are always returned in ascending row order.
type OrderBy struct {
	Field      string
	Descending bool
}
