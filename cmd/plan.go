package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the daily topic mix that generate would process",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		plan, err := env.Planner.PlanDaily(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("Daily plan for %s (%d topics)\n", plan.Date.Format("2006-01-02"), plan.Total())
		for _, topic := range plan.Topics() {
			title := topic.GeneratedTitle
			if title == "" {
				title = topic.Subject + " (untitled)"
			}
			fmt.Printf("  [%-10s] p%d  %s\n", topic.ArticleType, topic.Priority, title)
		}
		return nil
	},
}

var titlesCmd = &cobra.Command{
	Use:   "titles",
	Short: "Generate titles for queued topics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		titled, err := env.Planner.GenerateTitles(ctx)
		if err != nil {
			return err
		}
		zap.L().Info("title pass complete", zap.Int("titled", titled))
		return nil
	},
}

var (
	ideasPillar string
	ideasCount  int
)

var ideasCmd = &cobra.Command{
	Use:   "ideas",
	Short: "Generate topic ideas for a content pillar",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		seeded, err := env.Planner.GenerateIdeas(ctx, ideasPillar, ideasCount)
		if err != nil {
			return err
		}
		zap.L().Info("idea generation complete",
			zap.String("pillar", ideasPillar),
			zap.Int("seeded", seeded),
		)
		return nil
	},
}

func init() {
	ideasCmd.Flags().StringVar(&ideasPillar, "pillar", "", "pillar ID or slug (required)")
	ideasCmd.Flags().IntVar(&ideasCount, "count", 10, "number of ideas to request")
	_ = ideasCmd.MarkFlagRequired("pillar")

	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(titlesCmd)
	rootCmd.AddCommand(ideasCmd)
}
