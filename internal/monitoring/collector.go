// Package monitoring watches generation health: run outcomes, spend, and
// queue depth, with webhook alerts when thresholds are breached.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/courtline/content-cli/internal/model"
	"github.com/courtline/content-cli/internal/store"
)

// MetricsSnapshot holds a point-in-time view of pipeline health.
type MetricsSnapshot struct {
	// Run metrics within the lookback window.
	RunsTotal     int     `json:"runs_total"`
	RunsPublished int     `json:"runs_published"`
	RunsSkipped   int     `json:"runs_skipped"`
	RunsFailed    int     `json:"runs_failed"`
	FailRate      float64 `json:"fail_rate"`
	SpendUSD      float64 `json:"spend_usd"`
	AvgScore      float64 `json:"avg_score"`
	AvgTokens     int     `json:"avg_tokens"`

	// Failure breakdown by kind.
	ReviewExhausted int `json:"review_exhausted"`
	SafetyBlocked   int `json:"safety_blocked"`

	// Queue depth at collection time.
	TopicsQueued int `json:"topics_queued"`
	TopicsTitled int `json:"topics_titled"`

	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// Collector gathers metrics from the store.
type Collector struct {
	store store.Store
}

func NewCollector(st store.Store) *Collector {
	return &Collector{store: st}
}

// Collect gathers a snapshot over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	if lookbackHours <= 0 {
		lookbackHours = 24
	}
	snap := &MetricsSnapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   time.Now().UTC(),
	}
	cutoff := snap.CollectedAt.Add(-time.Duration(lookbackHours) * time.Hour)

	runs, err := c.store.ListRuns(ctx, store.RunFilter{Since: cutoff, Limit: 10000})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	snap.RunsTotal = len(runs)
	var totalScore float64
	var totalTokens int64
	var scoredRuns int

	for _, r := range runs {
		switch r.Status {
		case model.RunStatusPublished:
			snap.RunsPublished++
		case model.RunStatusSkipped:
			snap.RunsSkipped++
		case model.RunStatusFailed:
			snap.RunsFailed++
		}
		if r.Result == nil {
			continue
		}
		snap.SpendUSD += r.Result.Metrics.TotalCostUSD
		in, out := r.Result.Metrics.TotalTokens()
		totalTokens += in + out
		if r.Result.Metrics.FinalScore > 0 {
			totalScore += float64(r.Result.Metrics.FinalScore)
			scoredRuns++
		}
		if r.Result.Failure != nil {
			switch r.Result.Failure.Kind {
			case model.FailReviewExhausted:
				snap.ReviewExhausted++
			case model.FailSafetyBlocked:
				snap.SafetyBlocked++
			}
		}
	}

	if finished := snap.RunsPublished + snap.RunsFailed; finished > 0 {
		snap.FailRate = float64(snap.RunsFailed) / float64(finished)
	}
	if snap.RunsTotal > 0 {
		snap.AvgTokens = int(totalTokens / int64(snap.RunsTotal))
	}
	if scoredRuns > 0 {
		snap.AvgScore = totalScore / float64(scoredRuns)
	}

	queued, err := c.store.FetchTopics(ctx, store.TopicFilter{Status: model.TopicStatusQueued})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: fetch queued topics")
	}
	snap.TopicsQueued = len(queued)

	titled, err := c.store.FetchTopics(ctx, store.TopicFilter{Status: model.TopicStatusTitled})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: fetch titled topics")
	}
	snap.TopicsTitled = len(titled)

	return snap, nil
}
