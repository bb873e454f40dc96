package main

import (
	"log/slog"

	"github.com/spf13/cobra"
)

var version = "dev"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "librex",
		Short: "Librex - tournament-based algorithm selection",
		Long: `Librex trains and evaluates a tournament-rated algorithm selector.

It clusters problem instances, runs Swiss-system rating tournaments over a
solver portfolio inside each cluster, and serves per-instance solver
selections with an upper-confidence-bound policy over the learned ratings.`,
		Version:      version,
		SilenceUsage: true,
	}

	debugLogging := cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if *debugLogging {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
	}

	// Add subcommands
	cmd.AddCommand(newTrainCommand())
	cmd.AddCommand(newEvaluateCommand())
	cmd.AddCommand(newSelectCommand())
	cmd.AddCommand(newValidateCommand())

	return cmd
}

func execute() error {
	rootCmd := newRootCommand()
	return rootCmd.Execute()
}
