package main

import (
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tunelore/coverart/internal/worker"
)

var sweepLimit int

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Re-check stored covers for placeholders and generic art",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initService(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		limit := sweepLimit
		if limit == 0 {
			limit = cfg.Sweep.Limit
		}

		stats, err := env.Sweeper.Run(ctx, limit)
		if stats != nil {
			printSweepStats(stats)
		}
		return err
	},
}

func printSweepStats(stats *worker.SweepStats) {
	color.White("scanned:  %d", stats.Scanned)
	color.Green("verified: %d", stats.Verified)
	if stats.Flagged > 0 {
		color.Yellow("flagged:  %d", stats.Flagged)
	}
	if stats.Failed > 0 {
		color.Red("failed:   %d", stats.Failed)
	}
}

func init() {
	sweepCmd.Flags().IntVar(&sweepLimit, "limit", 0, "max songs to sweep (default from config)")
	rootCmd.AddCommand(sweepCmd)
}
