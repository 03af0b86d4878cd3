package predicate

import (
	"testing"

	"github.com/arx-os/arxquery/internal/kernel"
)

func TestReorderForAllAscendingWhenSpreadLarge(t *testing.T) {
	preds := []Predicate{
		{Field: "a", EstimatedSelectivity: 0.9},
		{Field: "b", EstimatedSelectivity: 0.1},
		{Field: "c", EstimatedSelectivity: 0.5},
	}
	ReorderForAll(preds)
	if preds[0].Field != "b" || preds[1].Field != "c" || preds[2].Field != "a" {
		t.Fatalf("got order %v, %v, %v", preds[0].Field, preds[1].Field, preds[2].Field)
	}
}

func TestReorderForAllSkippedWhenSpreadSmall(t *testing.T) {
	preds := []Predicate{
		{Field: "a", EstimatedSelectivity: 0.52},
		{Field: "b", EstimatedSelectivity: 0.50},
		{Field: "c", EstimatedSelectivity: 0.55},
	}
	ReorderForAll(preds)
	if preds[0].Field != "a" || preds[1].Field != "b" || preds[2].Field != "c" {
		t.Fatal("should not reorder when spread < threshold")
	}
}

func TestReorderForAnyDescending(t *testing.T) {
	preds := []Predicate{
		{Field: "a", EstimatedSelectivity: 0.1},
		{Field: "b", EstimatedSelectivity: 0.9},
	}
	ReorderForAny(preds)
	if preds[0].Field != "b" || preds[1].Field != "a" {
		t.Fatal("expected descending order for any-mode reorder")
	}
}

func TestReorderStableOnTies(t *testing.T) {
	preds := []Predicate{
		{Field: "first", EstimatedSelectivity: 0.9},
		{Field: "second", EstimatedSelectivity: 0.9},
		{Field: "third", EstimatedSelectivity: 0.1},
	}
	ReorderForAll(preds)
	if preds[0].Field != "third" {
		t.Fatal("lowest selectivity should sort first")
	}
	if preds[1].Field != "first" || preds[2].Field != "second" {
		t.Fatal("equal-selectivity predicates must keep original relative order")
	}
}

func TestEstimateSelectivityUsesZoneStatsWhenAvailable(t *testing.T) {
	p := &Predicate{Op: kernel.Eq}
	EstimateSelectivity(p, 0.42, true)
	if p.EstimatedSelectivity != 0.42 {
		t.Fatalf("got %v, want 0.42", p.EstimatedSelectivity)
	}
	EstimateSelectivity(p, 0.42, false)
	if p.EstimatedSelectivity != 0.1 {
		t.Fatalf("got %v, want default Eq selectivity 0.1", p.EstimatedSelectivity)
	}
}

func TestEstimateSelectivityStringOperationDefaults(t *testing.T) {
	cases := []struct {
		op   kernel.Operator
		want float64
	}{
		{kernel.Contains, 0.25},
		{kernel.StartsWith, 0.15},
		{kernel.EndsWith, 0.15},
	}
	for _, c := range cases {
		p := &Predicate{Op: c.op}
		EstimateSelectivity(p, 0, false)
		if p.EstimatedSelectivity != c.want {
			t.Fatalf("op %v: got %v, want %v", c.op, p.EstimatedSelectivity, c.want)
		}
	}
}
