package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "calculator",
	Short: "SAM calculator service",
	Long: `calculator folds calculator actions (digits, operators, equals,
percent, reciprocal, square, square root) into a display state.

Commands:
  serve    - HTTP API with per-session calculators
  run      - fold a list of actions and print the result
  version  - print the build version`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
