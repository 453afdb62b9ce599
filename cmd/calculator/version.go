package main

import (
	"fmt"

	"sam-calculator/internal/observability"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", observability.ServiceName(), observability.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
