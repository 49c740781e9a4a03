// Package main provides the entry point for the timelod CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/timelod/cmd/timelod/commands"
	"github.com/Sumatoshi-tech/timelod/pkg/version"
)

func main() {
	version.InitBinaryVersion()

	err := newRootCommand().Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "timelod",
		Short: "timelod - level-of-detail aggregation for profiler timelines",
		Long: `timelod indexes nested time intervals and aggregates them into
renderer-ready quad batches whose size is bounded regardless of trace length.

Commands:
  aggregate  Render one window and report its geometry
  sweep      Replay a zoom and pan sequence
  validate   Check trace files against the trace-event schema`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(commands.NewAggregateCommand())
	rootCmd.AddCommand(commands.NewSweepCommand())
	rootCmd.AddCommand(commands.NewValidateCommand())
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
