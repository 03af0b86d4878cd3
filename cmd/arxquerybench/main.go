// Command arxquerybench is the engine's scenario-runner and benchmark
// harness (spec §6, component C15), grounded on the teacher's cobra CLI
// structure (cmd/arx/main.go) with a narrower, query-engine-specific
// command set.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	Version = "dev"

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "arxquerybench",
	Short:         "arxquery scenario runner and benchmark harness",
	Long:          `arxquerybench runs the engine's end-to-end test scenarios and reports synthetic-workload benchmark statistics.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	var err error
	logger, err = zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	rootCmd.AddCommand(scenariosCmd, benchCmd)
	if err := rootCmd.Execute(); err != nil {
		logger.Error("command failed", zap.Error(err))
		os.Exit(1)
	}
}
