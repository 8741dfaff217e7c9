package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/courtline/content-cli/internal/monitoring"
)

var statusLookback int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pipeline health over the lookback window",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		snap, err := monitoring.NewCollector(st).Collect(ctx, statusLookback)
		if err != nil {
			return err
		}

		fmt.Printf("Pipeline status (last %dh, collected %s)\n",
			snap.LookbackHours, snap.CollectedAt.Format(time.RFC3339))
		fmt.Printf("  Runs:       %d total, %d published, %d skipped, %d failed (%.1f%% fail rate)\n",
			snap.RunsTotal, snap.RunsPublished, snap.RunsSkipped, snap.RunsFailed, snap.FailRate*100)
		fmt.Printf("  Quality:    avg score %.1f, %d review exhaustions, %d safety blocks\n",
			snap.AvgScore, snap.ReviewExhausted, snap.SafetyBlocked)
		fmt.Printf("  Spend:      $%.2f (avg %d tokens/run)\n", snap.SpendUSD, snap.AvgTokens)
		fmt.Printf("  Queue:      %d queued, %d titled\n", snap.TopicsQueued, snap.TopicsTitled)
		return nil
	},
}

func init() {
	statusCmd.Flags().IntVar(&statusLookback, "lookback", 24, "lookback window in hours")
	rootCmd.AddCommand(statusCmd)
}
