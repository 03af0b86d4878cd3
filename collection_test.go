package arxquery

import (
	"context"
	"math"
	"testing"

	"github.com/arx-os/arxquery/internal/column/columntest"
	"github.com/arx-os/arxquery/internal/kernel"
	"github.com/arx-os/arxquery/internal/options"
	"github.com/arx-os/arxquery/internal/plan"
)

// tenRowCollection builds the ten-record batch spec §8's end-to-end
// scenarios are defined against: Id, Value, Score, IsActive.
func tenRowCollection(t *testing.T) *Collection {
	t.Helper()
	ids := []int64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	values := []int64{-3, 0, 7, 12, 18, 25, 30, 55, 80, 100}
	scores := []float64{10.0, 20.0, 30.0, 40.0, 50.0, 10.0, 22.5, 40.0, 50.0, 60.0}
	active := []bool{true, false, true, true, false, true, false, true, false, true}

	batch, err := columntest.NewBuilder(10).
		Int64("Id", ids, nil).
		Int64("Value", values, nil).
		Float64("Score", scores, nil).
		Bool("IsActive", active, nil).
		Build()
	if err != nil {
		t.Fatal(err)
	}
	col, err := New("ten_row", batch, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	return col
}

func TestScenarioS1CountConjunction(t *testing.T) {
	c := tenRowCollection(t)
	res, err := c.Query(context.Background(), plan.Request{
		Where: plan.And{Exprs: []plan.Expr{
			plan.Compare{Field: "Value", Op: kernel.Gt, Literal: int64(20)},
			plan.Compare{Field: "IsActive", Op: kernel.Eq, Literal: true},
		}},
		Terminal: plan.TerminalCount,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Count != 3 {
		t.Fatalf("got %d, want 3", res.Count)
	}
}

func TestScenarioS2SumValue(t *testing.T) {
	c := tenRowCollection(t)
	res, err := c.Query(context.Background(), plan.Request{
		Where:        plan.Compare{Field: "Value", Op: kernel.Gt, Literal: int64(20)},
		Terminal:     plan.TerminalAggregate,
		Aggregations: []plan.Aggregation{{Field: "Value", Func: plan.AggSum}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Aggregate.Sum != 290 {
		t.Fatalf("got %d, want 290", res.Aggregate.Sum)
	}
}

func TestScenarioS3AvgScore(t *testing.T) {
	c := tenRowCollection(t)
	res, err := c.Query(context.Background(), plan.Request{
		Where:        plan.Compare{Field: "IsActive", Op: kernel.Eq, Literal: true},
		Terminal:     plan.TerminalAggregate,
		Aggregations: []plan.Aggregation{{Field: "Score", Func: plan.AggAvg}},
	})
	if err != nil {
		t.Fatal(err)
	}
	want := (10.0 + 30.0 + 40.0 + 10.0 + 40.0 + 60.0) / 6.0
	if math.Abs(res.Aggregate.SumF-want) > 1e-9 {
		t.Fatalf("got %v, want %v", res.Aggregate.SumF, want)
	}
}

func TestScenarioS4SkipTakeMaterialize(t *testing.T) {
	c := tenRowCollection(t)
	res, err := c.Query(context.Background(), plan.Request{
		Where:    plan.Compare{Field: "Value", Op: kernel.Gt, Literal: int64(0)},
		Terminal: plan.TerminalMaterialize,
		Offset:   1,
		Limit:    2,
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []int{2, 3}
	if len(res.RowIndices) != 2 || res.RowIndices[0] != want[0] || res.RowIndices[1] != want[1] {
		t.Fatalf("got %v, want %v", res.RowIndices, want)
	}
}

func TestScenarioS5AnyFalse(t *testing.T) {
	c := tenRowCollection(t)
	res, err := c.Query(context.Background(), plan.Request{
		Where:    plan.Compare{Field: "Value", Op: kernel.Gt, Literal: int64(1000)},
		Terminal: plan.TerminalAny,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Bool {
		t.Fatal("expected any() to be false")
	}
}

// TestScenarioS6GroupByIsActive exercises spec §8's S6 group-by scenario
// literally: group_by key=IsActive (a bool column, not a StringDict
// workaround) with two named aggregates, cnt=count(*) and sum=sum(Value).
func TestScenarioS6GroupByIsActive(t *testing.T) {
	c := tenRowCollection(t)
	res, err := c.Query(context.Background(), plan.Request{
		Terminal:     plan.TerminalGroupBy,
		GroupByField: "IsActive",
		Aggregations: []plan.Aggregation{
			{Field: "Value", Func: plan.AggCount, ResultName: "cnt"},
			{Field: "Value", Func: plan.AggSum, ResultName: "sum"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.GroupSums["true"]["cnt"] != 6 || res.GroupSums["true"]["sum"] != 196 {
		t.Fatalf("got true group %+v, want cnt=6 sum=196", res.GroupSums["true"])
	}
	if res.GroupSums["false"]["cnt"] != 4 || res.GroupSums["false"]["sum"] != 128 {
		t.Fatalf("got false group %+v, want cnt=4 sum=128", res.GroupSums["false"])
	}
}

func TestInvariantCountEqualsMaterializeLength(t *testing.T) {
	c := tenRowCollection(t)
	where := plan.Compare{Field: "Value", Op: kernel.Ge, Literal: int64(0)}
	countRes, err := c.Query(context.Background(), plan.Request{Where: where, Terminal: plan.TerminalCount})
	if err != nil {
		t.Fatal(err)
	}
	matRes, err := c.Query(context.Background(), plan.Request{Where: where, Terminal: plan.TerminalMaterialize})
	if err != nil {
		t.Fatal(err)
	}
	if countRes.Count != len(matRes.RowIndices) {
		t.Fatalf("count=%d, materialized len=%d", countRes.Count, len(matRes.RowIndices))
	}
}

func TestInvariantAnyEqualsCountGreaterThanZero(t *testing.T) {
	c := tenRowCollection(t)
	where := plan.Compare{Field: "Value", Op: kernel.Gt, Literal: int64(20)}
	countRes, err := c.Query(context.Background(), plan.Request{Where: where, Terminal: plan.TerminalCount})
	if err != nil {
		t.Fatal(err)
	}
	anyRes, err := c.Query(context.Background(), plan.Request{Where: where, Terminal: plan.TerminalAny})
	if err != nil {
		t.Fatal(err)
	}
	if anyRes.Bool != (countRes.Count > 0) {
		t.Fatalf("any()=%v, count>0=%v", anyRes.Bool, countRes.Count > 0)
	}
}

func TestInvariantConjunctionCommutative(t *testing.T) {
	c := tenRowCollection(t)
	p1 := plan.Compare{Field: "Value", Op: kernel.Gt, Literal: int64(0)}
	p2 := plan.Compare{Field: "IsActive", Op: kernel.Eq, Literal: true}

	r1, err := c.Query(context.Background(), plan.Request{
		Where:    plan.And{Exprs: []plan.Expr{p1, p2}},
		Terminal: plan.TerminalCount,
	})
	if err != nil {
		t.Fatal(err)
	}
	r2, err := c.Query(context.Background(), plan.Request{
		Where:    plan.And{Exprs: []plan.Expr{p2, p1}},
		Terminal: plan.TerminalCount,
	})
	if err != nil {
		t.Fatal(err)
	}
	if r1.Count != r2.Count {
		t.Fatalf("commutativity violated: %d != %d", r1.Count, r2.Count)
	}
}

func TestInvariantMonotonicityOfAdditionalPredicate(t *testing.T) {
	c := tenRowCollection(t)
	base := plan.Compare{Field: "Value", Op: kernel.Gt, Literal: int64(0)}
	extra := plan.Compare{Field: "IsActive", Op: kernel.Eq, Literal: true}

	baseRes, err := c.Query(context.Background(), plan.Request{Where: base, Terminal: plan.TerminalCount})
	if err != nil {
		t.Fatal(err)
	}
	combinedRes, err := c.Query(context.Background(), plan.Request{
		Where:    plan.And{Exprs: []plan.Expr{base, extra}},
		Terminal: plan.TerminalCount,
	})
	if err != nil {
		t.Fatal(err)
	}
	if combinedRes.Count > baseRes.Count {
		t.Fatalf("combined count %d exceeds base count %d", combinedRes.Count, baseRes.Count)
	}
}

func TestInvariantMinAvgMaxOrdering(t *testing.T) {
	c := tenRowCollection(t)
	where := plan.Compare{Field: "IsActive", Op: kernel.Eq, Literal: true}
	minRes, err := c.Query(context.Background(), plan.Request{
		Where: where, Terminal: plan.TerminalAggregate,
		Aggregations: []plan.Aggregation{{Field: "Score", Func: plan.AggMin}},
	})
	if err != nil {
		t.Fatal(err)
	}
	avgRes, err := c.Query(context.Background(), plan.Request{
		Where: where, Terminal: plan.TerminalAggregate,
		Aggregations: []plan.Aggregation{{Field: "Score", Func: plan.AggAvg}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !(minRes.Aggregate.Min <= avgRes.Aggregate.SumF && avgRes.Aggregate.SumF <= minRes.Aggregate.Max) {
		t.Fatalf("min=%v avg=%v max=%v out of order", minRes.Aggregate.Min, avgRes.Aggregate.SumF, minRes.Aggregate.Max)
	}
}

func TestPlanCacheRoundTrip(t *testing.T) {
	c := tenRowCollection(t)
	where := plan.Compare{Field: "Value", Op: kernel.Gt, Literal: int64(0)}
	if _, err := c.Query(context.Background(), plan.Request{Where: where, Terminal: plan.TerminalCount}); err != nil {
		t.Fatal(err)
	}
	stats := c.CacheStats()
	if stats.Size != 1 {
		t.Fatalf("expected 1 cached plan shape, got %d", stats.Size)
	}
	if _, err := c.Query(context.Background(), plan.Request{Where: where, Terminal: plan.TerminalCount}); err != nil {
		t.Fatal(err)
	}
	stats = c.CacheStats()
	if stats.Hits < 1 {
		t.Fatalf("expected at least one cache hit, got %+v", stats)
	}
	c.ClearCache()
	if c.CacheStats().Size != 0 {
		t.Fatal("expected empty cache after ClearCache")
	}
}

func TestQueryRejectsUnknownField(t *testing.T) {
	c := tenRowCollection(t)
	_, err := c.Query(context.Background(), plan.Request{
		Where:    plan.Compare{Field: "DoesNotExist", Op: kernel.Eq, Literal: int64(1)},
		Terminal: plan.TerminalCount,
	})
	if err == nil {
		t.Fatal("expected schema mismatch error")
	}
}

func TestValueAtRepeatLookupAgrees(t *testing.T) {
	t.Helper()
	ids := []int64{10, 11, 12}
	opts := options.Default()
	opts.ResultCacheSize = 64
	batch, err := columntest.NewBuilder(3).Int64("Id", ids, nil).Build()
	if err != nil {
		t.Fatal(err)
	}
	c, err := New("value_at", batch, nil, opts)
	if err != nil {
		t.Fatal(err)
	}

	v, err := c.ValueAt("Id", 1)
	if err != nil {
		t.Fatal(err)
	}
	if v.(int64) != 11 {
		t.Fatalf("want 11, got %v", v)
	}

	// Second lookup of the same (field, row) must agree with the first,
	// whether served from the result cache or recomputed.
	v2, err := c.ValueAt("Id", 1)
	if err != nil {
		t.Fatal(err)
	}
	if v2.(int64) != 11 {
		t.Fatalf("want 11 on repeat lookup, got %v", v2)
	}
}

func TestValueAtRejectsUnknownFieldAndOutOfRangeRow(t *testing.T) {
	c := tenRowCollection(t)
	if _, err := c.ValueAt("DoesNotExist", 0); err == nil {
		t.Fatal("expected schema mismatch error for unknown field")
	}
	if _, err := c.ValueAt("Id", 999); err == nil {
		t.Fatal("expected error for out-of-range row")
	}
}
