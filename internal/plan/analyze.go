package plan

import (
	"github.com/arx-os/arxquery/internal/column"
	arxerrors "github.com/arx-os/arxquery/internal/errors"
	"github.com/arx-os/arxquery/internal/predicate"
)

// Request is the caller-facing, unresolved query description the analyzer
// turns into a Plan.
type Request struct {
	Where        Expr
	Limit        int
	Offset       int
	OrderBy      *OrderBy
	Terminal     TerminalOp
	Aggregations []Aggregation
	GroupByField string
}

// Analyze resolves req's field names against batch's schema, flattens
// nested conjunctions into a single predicate list, and produces a Plan
// ready for selectivity reordering (spec §4.5). A top-level And is
// flattened and recursively merged with nested Ands; a nested Or causes
// FullyPushed=false since the executor's single bitmap pass cannot express
// mixed and/or composition directly.
func Analyze(batch *column.Batch, req Request) (*Plan, error) {
	p := &Plan{
		Limit:        req.Limit,
		Offset:       req.Offset,
		OrderBy:      req.OrderBy,
		Terminal:     req.Terminal,
		GroupByField: req.GroupByField,
		FullyPushed:  true,
	}

	touched := map[int]struct{}{}

	if req.Where != nil {
		preds, disjunction, fullyPushed, err := flatten(batch, req.Where, touched)
		if err != nil {
			return nil, err
		}
		p.Predicates = preds
		p.Disjunction = disjunction
		p.FullyPushed = p.FullyPushed && fullyPushed
		if len(preds) == 0 {
			return nil, arxerrors.NewEmptySequence("plan.Analyze")
		}
	}

	if req.OrderBy != nil {
		idx, ok := batch.ColumnIndex(req.OrderBy.Field)
		if !ok {
			return nil, arxerrors.NewSchemaMismatch("plan.Analyze", req.OrderBy.Field)
		}
		touched[idx] = struct{}{}
	}

	if req.GroupByField != "" {
		idx, ok := batch.ColumnIndex(req.GroupByField)
		if !ok {
			return nil, arxerrors.NewSchemaMismatch("plan.Analyze", req.GroupByField)
		}
		p.GroupByColumn = idx
		touched[idx] = struct{}{}
	}

	for _, a := range req.Aggregations {
		idx, ok := batch.ColumnIndex(a.Field)
		if !ok {
			return nil, arxerrors.NewSchemaMismatch("plan.Analyze", a.Field)
		}
		a.ColumnIndex = idx
		p.Aggregations = append(p.Aggregations, a)
		touched[idx] = struct{}{}
	}

	for i := range touched {
		p.TouchedColumns = append(p.TouchedColumns, i)
	}

	if p.Disjunction {
		predicate.ReorderForAny(p.Predicates)
	} else {
		predicate.ReorderForAll(p.Predicates)
	}

	return p, nil
}

// flatten resolves expr into a flat predicate list. It returns the
// predicates, whether the top-level combinator is a disjunction, and
// whether the overall shape is representable as a single bitmap pass.
func flatten(batch *column.Batch, expr Expr, touched map[int]struct{}) ([]predicate.Predicate, bool, bool, error) {
	switch e := expr.(type) {
	case Compare:
		idx, ok := batch.ColumnIndex(e.Field)
		if !ok {
			return nil, false, true, arxerrors.NewSchemaMismatch("plan.flatten", e.Field)
		}
		touched[idx] = struct{}{}
		p := predicate.Predicate{ColumnIndex: idx, Field: e.Field, Op: e.Op, Literal: e.Literal}
		predicate.EstimateSelectivity(&p, 0, false)
		return []predicate.Predicate{p}, false, true, nil
	case And:
		var out []predicate.Predicate
		fullyPushed := true
		for _, sub := range e.Exprs {
			preds, disjunction, ok, err := flatten(batch, sub, touched)
			if err != nil {
				return nil, false, true, err
			}
			if disjunction {
				fullyPushed = false
			}
			fullyPushed = fullyPushed && ok
			out = append(out, preds...)
		}
		return out, false, fullyPushed, nil
	case Or:
		var out []predicate.Predicate
		for _, sub := range e.Exprs {
			preds, nested, _, err := flatten(batch, sub, touched)
			if err != nil {
				return nil, false, true, err
			}
			if nested {
				// A nested Or beneath a top-level Or still flattens into the
				// same disjunction: spec §4.5 treats any-of-any as one flat
				// any-of predicates rather than nesting bitmap passes.
			}
			out = append(out, preds...)
		}
		return out, true, false, nil
	default:
		return nil, false, true, arxerrors.NewNotSupported("plan.flatten", "expression shape")
	}
}
