package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/arx-os/arxquery"
	"github.com/arx-os/arxquery/internal/column/columntest"
	"github.com/arx-os/arxquery/internal/kernel"
	"github.com/arx-os/arxquery/internal/options"
	"github.com/arx-os/arxquery/internal/plan"
)

var benchRows int

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Run a synthetic mixed-query benchmark and print latency stats",
	RunE:  runBench,
}

func init() {
	benchCmd.Flags().IntVar(&benchRows, "rows", 1_000_000, "number of synthetic rows to generate")
}

func buildSyntheticCollection(n int) (*arxquery.Collection, error) {
	values := make([]int64, n)
	scores := make([]float64, n)
	active := make([]bool, n)
	for i := 0; i < n; i++ {
		values[i] = int64(i % 1000)
		scores[i] = float64(i%97) * 1.5
		active[i] = i%3 == 0
	}
	batch, err := columntest.NewBuilder(n).
		Int64("Value", values, nil).
		Float64("Score", scores, nil).
		Bool("IsActive", active, nil).
		Build()
	if err != nil {
		return nil, err
	}
	return arxquery.New("bench", batch, nil, options.Default())
}

func runBench(cmd *cobra.Command, args []string) error {
	col, err := buildSyntheticCollection(benchRows)
	if err != nil {
		return err
	}

	queries := []struct {
		name string
		req  plan.Request
	}{
		{"count(Value>500)", plan.Request{Where: plan.Compare{Field: "Value", Op: kernel.Gt, Literal: int64(500)}, Terminal: plan.TerminalCount}},
		{"any(Value>999)", plan.Request{Where: plan.Compare{Field: "Value", Op: kernel.Gt, Literal: int64(999)}, Terminal: plan.TerminalAny}},
		{"sum(Score where IsActive)", plan.Request{
			Where: plan.Compare{Field: "IsActive", Op: kernel.Eq, Literal: true}, Terminal: plan.TerminalAggregate,
			Aggregations: []plan.Aggregation{{Field: "Score", Func: plan.AggSum}},
		}},
	}

	for _, q := range queries {
		start := time.Now()
		if _, err := col.Query(context.Background(), q.req); err != nil {
			return fmt.Errorf("query %q: %w", q.name, err)
		}
		fmt.Printf("%-30s %v (rows=%d)\n", q.name, time.Since(start), benchRows)
	}

	stats := col.CacheStats()
	fmt.Printf("plan cache: hits=%d misses=%d size=%d\n", stats.Hits, stats.Misses, stats.Size)
	return nil
}
