package main

import (
	"log/slog"

	"github.com/spf13/cobra"
)

var version = "dev"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gauntlet",
		Short: "Gauntlet - batch evaluation harness for agent functions",
		Long: `Gauntlet runs an agent program over a dataset, scores every output with
configured evaluators, aggregates the scores into statistics, and gates a
pass/fail verdict against declared thresholds.

It is built for repeatable, quantified regression testing of
non-deterministic functions in CI pipelines.`,
		Version:      version,
		SilenceUsage: true,
	}

	debugLogging := cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if *debugLogging {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
	}

	cmd.AddCommand(newRunCommand())
	cmd.AddCommand(newGateCommand())

	return cmd
}

func execute() error {
	rootCmd := newRootCommand()
	return rootCmd.Execute()
}
