// Package planner fills the topic queue and turns queued topics into titled
// ones ahead of generation. Title work runs through the batch API when enough
// topics are waiting, with a primer request to warm the prompt cache first.
package planner

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/courtline/content-cli/internal/config"
	"github.com/courtline/content-cli/internal/model"
	"github.com/courtline/content-cli/internal/store"
	"github.com/courtline/content-cli/pkg/anthropic"
)

// Planner schedules topic work: idea generation, daily mix planning, and
// pre-generation title batches.
type Planner struct {
	cfg   *config.Config
	store store.Store
	ai    anthropic.Client
}

func New(cfg *config.Config, st store.Store, aiClient anthropic.Client) *Planner {
	return &Planner{cfg: cfg, store: st, ai: aiClient}
}

// DailyPlan is the mix of topics selected for one day of generation.
type DailyPlan struct {
	Date       time.Time     `json:"date"`
	HowTo      []model.Topic `json:"how_to"`
	Pillar     []model.Topic `json:"pillar"`
	Comparison []model.Topic `json:"comparison"`
}

// Topics flattens the plan in processing order: pillar first (the expensive
// anchor piece), then comparisons, then how-tos.
func (p *DailyPlan) Topics() []model.Topic {
	out := make([]model.Topic, 0, len(p.Pillar)+len(p.Comparison)+len(p.HowTo))
	out = append(out, p.Pillar...)
	out = append(out, p.Comparison...)
	out = append(out, p.HowTo...)
	return out
}

// Total is the number of topics in the plan.
func (p *DailyPlan) Total() int {
	return len(p.Pillar) + len(p.Comparison) + len(p.HowTo)
}

// PlanDaily selects the day's topic mix from the ready queue, titled topics
// first within each type. A short queue yields a short plan, never an error.
func (p *Planner) PlanDaily(ctx context.Context) (*DailyPlan, error) {
	plan := &DailyPlan{Date: time.Now().UTC()}

	mix := []struct {
		articleType model.ArticleType
		count       int
		dest        *[]model.Topic
	}{
		{model.ArticleTypeHowTo, defaultCount(p.cfg.Planner.DailyHowTo, 8), &plan.HowTo},
		{model.ArticleTypePillar, defaultCount(p.cfg.Planner.DailyPillar, 1), &plan.Pillar},
		{model.ArticleTypeComparison, defaultCount(p.cfg.Planner.DailyComparison, 1), &plan.Comparison},
	}

	for _, slot := range mix {
		picked, err := p.pickReady(ctx, slot.articleType, slot.count)
		if err != nil {
			return nil, err
		}
		*slot.dest = picked
	}
	return plan, nil
}

// pickReady fetches up to count topics of one type, preferring titled over
// bare queued ones.
func (p *Planner) pickReady(ctx context.Context, articleType model.ArticleType, count int) ([]model.Topic, error) {
	if count <= 0 {
		return nil, nil
	}

	topics, err := p.store.FetchTopics(ctx, store.TopicFilter{
		Status:      model.TopicStatusTitled,
		ArticleType: articleType,
		Limit:       count,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "planner: fetch titled %s topics", articleType)
	}
	if remaining := count - len(topics); remaining > 0 {
		queued, err := p.store.FetchTopics(ctx, store.TopicFilter{
			Status:      model.TopicStatusQueued,
			ArticleType: articleType,
			Limit:       remaining,
		})
		if err != nil {
			return nil, eris.Wrapf(err, "planner: fetch queued %s topics", articleType)
		}
		topics = append(topics, queued...)
	}
	return topics, nil
}

func defaultCount(configured, fallback int) int {
	if configured > 0 {
		return configured
	}
	return fallback
}
