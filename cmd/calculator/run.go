package main

import (
	"fmt"
	"io"
	"strings"

	"sam-calculator/internal/calculator"
	"sam-calculator/internal/observability"

	"github.com/spf13/cobra"
)

var runVerbose bool

var runCmd = &cobra.Command{
	Use:   "run action[:value]...",
	Short: "Fold actions through a fresh calculator and print the display",
	Long: `run applies each action in order and prints the final display.

Example:
  calculator run digit:1 digit:2 nextOp:plus digit:3 equals`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		proposals, err := parseProposals(args)
		if err != nil {
			return err
		}
		return fold(cmd.OutOrStdout(), proposals, runVerbose)
	},
}

func init() {
	runCmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "print the display after every action")
	rootCmd.AddCommand(runCmd)
}

// parseProposals turns "digit:7" style arguments into proposals.
func parseProposals(args []string) ([]calculator.Proposal, error) {
	proposals := make([]calculator.Proposal, 0, len(args))
	for _, arg := range args {
		action, value, _ := strings.Cut(arg, ":")
		if action == "" {
			return nil, fmt.Errorf("argument %q: missing action", arg)
		}
		proposals = append(proposals, calculator.Proposal{Action: action, Value: value})
	}
	return proposals, nil
}

// fold dispatches proposals in order and writes the resulting display to w.
// A proposal the dispatcher rejects stops the fold.
func fold(w io.Writer, proposals []calculator.Proposal, verbose bool) error {
	var renderer calculator.Renderer
	if verbose {
		renderer = calculator.RendererFunc(func(rep calculator.Representation) {
			printRepresentation(w, rep)
		})
	}

	tracker := calculator.NewTracker(renderer)
	model := calculator.NewModel(tracker, calculator.WithLogger(observability.Logger))
	dispatcher := calculator.NewDispatcher(model)

	for i, p := range proposals {
		if err := dispatcher.Next(p); err != nil {
			return fmt.Errorf("action %d: %w", i+1, err)
		}
	}

	if !verbose {
		printRepresentation(w, calculator.Represent(model.Data()))
	}
	return nil
}

func printRepresentation(w io.Writer, rep calculator.Representation) {
	if rep.Expression != "" {
		fmt.Fprintln(w, rep.Expression)
	}
	fmt.Fprintln(w, rep.Output)
}
