package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arx-os/arxquery"
	"github.com/arx-os/arxquery/internal/column/columntest"
	"github.com/arx-os/arxquery/internal/kernel"
	"github.com/arx-os/arxquery/internal/plan"
)

var scenariosCmd = &cobra.Command{
	Use:   "scenarios",
	Short: "Run the ten-row end-to-end scenarios from the engine's test suite and print PASS/FAIL",
	RunE:  runScenarios,
}

type scenario struct {
	name string
	run  func(*arxquery.Collection) (bool, string)
}

func buildTenRowCollection() (*arxquery.Collection, error) {
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
		return nil, err
	}
	return arxquery.New("ten_row_bench", batch, nil, nil)
}

func scenarioList() []scenario {
	return []scenario{
		{
			name: "S1 count(Value>20 AND IsActive) == 3",
			run: func(c *arxquery.Collection) (bool, string) {
				res, err := c.Query(context.Background(), plan.Request{
					Where: plan.And{Exprs: []plan.Expr{
						plan.Compare{Field: "Value", Op: kernel.Gt, Literal: int64(20)},
						plan.Compare{Field: "IsActive", Op: kernel.Eq, Literal: true},
					}},
					Terminal: plan.TerminalCount,
				})
				if err != nil {
					return false, err.Error()
				}
				return res.Count == 3, fmt.Sprintf("got %d", res.Count)
			},
		},
		{
			name: "S2 sum(Value where Value>20) == 290",
			run: func(c *arxquery.Collection) (bool, string) {
				res, err := c.Query(context.Background(), plan.Request{
					Where:        plan.Compare{Field: "Value", Op: kernel.Gt, Literal: int64(20)},
					Terminal:     plan.TerminalAggregate,
					Aggregations: []plan.Aggregation{{Field: "Value", Func: plan.AggSum}},
				})
				if err != nil {
					return false, err.Error()
				}
				return res.Aggregate.Sum == 290, fmt.Sprintf("got %d", res.Aggregate.Sum)
			},
		},
		{
			name: "S5 any(Value>1000) == false",
			run: func(c *arxquery.Collection) (bool, string) {
				res, err := c.Query(context.Background(), plan.Request{
					Where:    plan.Compare{Field: "Value", Op: kernel.Gt, Literal: int64(1000)},
					Terminal: plan.TerminalAny,
				})
				if err != nil {
					return false, err.Error()
				}
				return !res.Bool, fmt.Sprintf("got %v", res.Bool)
			},
		},
	}
}

func runScenarios(cmd *cobra.Command, args []string) error {
	col, err := buildTenRowCollection()
	if err != nil {
		return err
	}
	failed := 0
	for _, s := range scenarioList() {
		ok, detail := s.run(col)
		status := "PASS"
		if !ok {
			status = "FAIL"
			failed++
		}
		fmt.Printf("[%s] %s (%s)\n", status, s.name, detail)
	}
	if failed > 0 {
		return fmt.Errorf("%d scenario(s) failed", failed)
	}
	return nil
}
