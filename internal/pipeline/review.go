package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/courtline/content-cli/internal/model"
	"github.com/courtline/content-cli/pkg/anthropic"
)

const reviewMaxTokens = 2048

// runReviewLoop reviews the draft and rewrites it until it passes or the
// rewrite budget runs out. With a budget of N rewrites the loop performs at
// most N+1 reviews. The returned review is the last one issued; callers
// decide what a terminal FAIL means.
func (p *Pipeline) runReviewLoop(ctx context.Context, log *zap.Logger, result *model.GenerationResult,
	topic model.Topic, outline *model.Outline, draft string) (string, model.ReviewResult, error) {

	maxRewrites := p.cfg.Pipeline.MaxRewriteAttempts
	var review model.ReviewResult

	for attempt := 0; ; {
		start := time.Now()
		var usage anthropic.TokenUsage
		var err error
		review, usage, err = p.reviewDraft(ctx, topic, outline, draft)
		p.record(result, model.StageReview, p.cfg.Anthropic.SonnetModel, start, usage, err)
		if err != nil {
			return draft, review, err
		}
		result.Metrics.ReviewPasses++

		if review.Status == model.ReviewPass {
			log.Info("pipeline: review passed",
				zap.Int("score", review.Score),
				zap.Int("rewrites", attempt),
			)
			return draft, review, nil
		}
		if attempt >= maxRewrites {
			log.Warn("pipeline: review budget exhausted",
				zap.Int("score", review.Score),
				zap.Int("rewrites", attempt),
				zap.Strings("issues", review.Issues),
			)
			return draft, review, nil
		}

		log.Info("pipeline: review failed, rewriting",
			zap.Int("score", review.Score),
			zap.Int("attempt", attempt+1),
		)

		start = time.Now()
		revised, usage, err := p.rewriteDraft(ctx, topic, outline, draft, review)
		p.record(result, model.StageRewrite, p.draftModel(topic), start, usage, err)
		if err != nil {
			return draft, review, err
		}
		draft = revised
		result.Metrics.Rewrites++
		attempt++
	}
}

// reviewDraft scores the draft. The model's own pass/fail claim is discarded:
// the verdict is recomputed locally from the score so a contradictory
// response cannot publish a low-scoring draft.
func (p *Pipeline) reviewDraft(ctx context.Context, topic model.Topic, outline *model.Outline, draft string) (model.ReviewResult, anthropic.TokenUsage, error) {
	target := model.WordTargets[topic.ArticleType]

	prompt := fmt.Sprintf(`You are a strict editor for a pickleball blog aimed at recreational players.
Review this draft against the outline and scoring criteria.

Criteria (score 0-100):
- Covers every outline section with substance
- Accurate, practical advice a recreational player can use
- Natural use of the target keyword "%s"
- Length near %d-%d words
- Clear structure, no filler, no repetition
- Matches the voice described in your system prompt; flag any phrase it forbids

Outline:
%s

Draft:
%s

Respond with only a JSON object. sectionsToRewrite holds the zero-based
indices of outline sections that need rework; praise names what must be kept.
{"status": "PASS" or "FAIL", "score": 0-100, "issues": ["..."], "sectionsToRewrite": [0], "praise": "..."}`,
		topic.TargetKeyword, target.Min, target.Max, formatOutline(outline), draft)

	text, usage, err := p.complete(ctx, p.cfg.Anthropic.SonnetModel, reviewMaxTokens, p.style.SystemPrompt(), prompt)
	if err != nil {
		return model.ReviewResult{}, usage, eris.Wrap(err, "pipeline: review")
	}

	var review model.ReviewResult
	if err := json.Unmarshal([]byte(anthropic.CleanJSON(text)), &review); err != nil {
		return model.ReviewResult{}, usage, eris.Wrapf(ErrMalformedResponse, "review: %v", err)
	}
	review.Normalize(p.cfg.Pipeline.PassingScore)
	return review, usage, nil
}
