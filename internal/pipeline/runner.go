package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/courtline/content-cli/internal/model"
	"github.com/courtline/content-cli/internal/store"
)

// BatchSummary tallies the outcomes of one generation batch.
type BatchSummary struct {
	Processed    int     `json:"processed"`
	Published    int     `json:"published"`
	Skipped      int     `json:"skipped"`
	Failed       int     `json:"failed"`
	TotalCostUSD float64 `json:"total_cost_usd"`
}

// RunBatch processes up to limit topics sequentially, titled topics first,
// then bare queued ones. A topic failure is recorded and the batch moves on;
// only an unusable store or an exhausted daily budget stops the loop.
func (p *Pipeline) RunBatch(ctx context.Context, limit int) (*BatchSummary, error) {
	if limit <= 0 {
		limit = 10
	}

	topics, err := p.store.FetchTopics(ctx, store.TopicFilter{Status: model.TopicStatusTitled, Limit: limit})
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: fetch titled topics")
	}
	if remaining := limit - len(topics); remaining > 0 {
		queued, err := p.store.FetchTopics(ctx, store.TopicFilter{Status: model.TopicStatusQueued, Limit: remaining})
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: fetch queued topics")
		}
		topics = append(topics, queued...)
	}

	summary := &BatchSummary{}
	for _, topic := range topics {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}

		result, err := p.Run(ctx, topic)
		if eris.Is(err, ErrBudgetExhausted) {
			zap.L().Warn("pipeline: daily budget exhausted, stopping batch",
				zap.Int("processed", summary.Processed),
			)
			return summary, nil
		}
		if err != nil {
			return summary, eris.Wrapf(err, "pipeline: topic %s", topic.ID)
		}

		summary.Processed++
		summary.TotalCostUSD += result.Metrics.TotalCostUSD
		switch result.Outcome {
		case model.OutcomePublished:
			summary.Published++
		case model.OutcomeSkipped:
			summary.Skipped++
		default:
			summary.Failed++
		}
	}
	return summary, nil
}
