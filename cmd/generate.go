package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/courtline/content-cli/internal/model"
)

var (
	generateLimit int
	generateTopic string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate articles from the topic queue",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if generateTopic != "" {
			topic, err := env.Store.GetTopic(ctx, generateTopic)
			if err != nil {
				return err
			}
			result, err := env.Pipeline.Run(ctx, *topic)
			if err != nil {
				return err
			}
			logResult(result)
			return nil
		}

		summary, err := env.Pipeline.RunBatch(ctx, generateLimit)
		if err != nil {
			return err
		}
		zap.L().Info("generation batch complete",
			zap.Int("processed", summary.Processed),
			zap.Int("published", summary.Published),
			zap.Int("skipped", summary.Skipped),
			zap.Int("failed", summary.Failed),
			zap.Float64("cost_usd", summary.TotalCostUSD),
			zap.Float64("budget_remaining_usd", env.Budget.Remaining()),
		)
		return nil
	},
}

func logResult(result *model.GenerationResult) {
	fields := []zap.Field{
		zap.String("topic_id", result.TopicID),
		zap.String("outcome", string(result.Outcome)),
		zap.Float64("cost_usd", result.Metrics.TotalCostUSD),
	}
	if result.Article != nil {
		fields = append(fields, zap.String("slug", result.Article.Slug))
	}
	if result.Failure != nil {
		fields = append(fields,
			zap.String("stage", result.Failure.Stage),
			zap.String("kind", string(result.Failure.Kind)),
			zap.String("error", result.Failure.Message),
		)
	}
	zap.L().Info("generation complete", fields...)
}

func init() {
	generateCmd.Flags().IntVar(&generateLimit, "limit", 10, "maximum topics to process")
	generateCmd.Flags().StringVar(&generateTopic, "topic", "", "generate a single topic by ID")
	rootCmd.AddCommand(generateCmd)
}
