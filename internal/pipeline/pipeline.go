// Package pipeline turns a queued topic into a published article through a
// fixed sequence of model stages: safety screen, outline, draft, a bounded
// review loop, polish, a final safety screen, and image curation. Topics are
// processed one at a time; a failed topic never blocks the next one.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/courtline/content-cli/internal/budget"
	"github.com/courtline/content-cli/internal/config"
	"github.com/courtline/content-cli/internal/cost"
	"github.com/courtline/content-cli/internal/model"
	"github.com/courtline/content-cli/internal/resilience"
	"github.com/courtline/content-cli/internal/safety"
	"github.com/courtline/content-cli/internal/store"
	"github.com/courtline/content-cli/pkg/anthropic"
)

// ImageCurator selects or generates a hero image for an article. Returns the
// asset and the cost incurred.
type ImageCurator interface {
	Curate(ctx context.Context, article *model.Article) (*model.ImageAsset, float64, error)
}

// Notifier escalates drafts that exhausted the review loop to a human editor.
type Notifier interface {
	EscalateReview(ctx context.Context, topic model.Topic, review model.ReviewResult, draft string) error
}

// Pipeline orchestrates article generation for single topics.
type Pipeline struct {
	cfg      *config.Config
	store    store.Store
	ai       anthropic.Client
	gate     *safety.Gate
	curator  ImageCurator
	notifier Notifier
	costCalc *cost.Calculator
	budget   *budget.Tracker
	style    StyleProfile
	retryCfg resilience.RetryConfig
	breaker  *resilience.CircuitBreaker
}

// Option configures a Pipeline beyond the required collaborators.
type Option func(*Pipeline)

// WithStyleProfile replaces the default house voice.
func WithStyleProfile(style StyleProfile) Option {
	return func(p *Pipeline) {
		p.style = style
	}
}

// New creates a Pipeline. curator and notifier may be nil, which disables
// image curation and editorial escalation respectively.
func New(
	cfg *config.Config,
	st store.Store,
	aiClient anthropic.Client,
	gate *safety.Gate,
	curator ImageCurator,
	notifier Notifier,
	spend *budget.Tracker,
	opts ...Option,
) *Pipeline {
	tuning := resilience.Tuning{
		MaxAttempts:       cfg.Resilience.MaxAttempts,
		InitialBackoffMs:  cfg.Resilience.InitialBackoffMs,
		MaxBackoffMs:      cfg.Resilience.MaxBackoffMs,
		BackoffMultiplier: cfg.Resilience.BackoffMultiplier,
		JitterFraction:    cfg.Resilience.JitterFraction,
		BreakerFailures:   cfg.Resilience.BreakerFailures,
		BreakerResetSecs:  cfg.Resilience.BreakerResetSecs,
	}
	retryCfg := tuning.Retry()
	retryCfg.OnRetry = resilience.RetryLogger("anthropic", "create_message")

	p := &Pipeline{
		cfg:      cfg,
		store:    st,
		ai:       aiClient,
		gate:     gate,
		curator:  curator,
		notifier: notifier,
		costCalc: cost.NewCalculator(cost.DefaultRates()),
		budget:   spend,
		style:    DefaultStyleProfile(),
		retryCfg: retryCfg,
		breaker:  resilience.NewCircuitBreaker(tuning.Breaker()),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run generates one article from a topic. The returned result always carries
// the metrics accumulated up to the point of failure. The error return is
// non-nil only when the store itself is unusable or the daily budget is
// exhausted; per-topic failures are reported through the result.
func (p *Pipeline) Run(ctx context.Context, topic model.Topic) (*model.GenerationResult, error) {
	log := zap.L().With(zap.String("topic_id", topic.ID), zap.String("subject", topic.Subject))

	if p.budget != nil && !p.budget.Allow() {
		return nil, ErrBudgetExhausted
	}

	log.Info("pipeline: starting generation",
		zap.String("article_type", string(topic.ArticleType)),
		zap.String("keyword", topic.TargetKeyword),
	)

	result := &model.GenerationResult{
		TopicID: topic.ID,
		Metrics: model.GenerationMetrics{StartedAt: time.Now().UTC()},
	}

	run, err := p.store.CreateRun(ctx, topic.ID)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create run")
	}

	defer func() {
		result.Metrics.FinishedAt = time.Now().UTC()
		status := runStatus(result.Outcome)
		if err := p.store.CompleteRun(ctx, run.ID, status, result); err != nil {
			log.Warn("pipeline: failed to record run result", zap.Error(err))
		}
	}()

	// Stage 1: keyword dedup. Runs before the claim so a duplicate costs
	// nothing and leaves no half-claimed topic behind.
	keyword := strings.ToLower(strings.TrimSpace(topic.TargetKeyword))
	existing, err := p.store.CountArticlesByKeyword(ctx, keyword)
	if err != nil {
		p.fail(ctx, log, result, topic, model.StageDedup, model.FailServiceError, err, nil, "")
		return result, nil
	}
	if existing > 0 {
		log.Info("pipeline: duplicate keyword, skipping", zap.String("keyword", keyword))
		p.setStatus(ctx, log, topic.ID, model.TopicStatusSkipped, store.TopicPatch{})
		result.Outcome = model.OutcomeSkipped
		result.SkipReason = "duplicate keyword: " + keyword
		return result, nil
	}

	// Stage 2: claim the topic.
	if err := p.store.PatchTopicStatus(ctx, topic.ID, model.TopicStatusInProgress, store.TopicPatch{}); err != nil {
		p.fail(ctx, log, result, topic, model.StageDedup, model.FailServiceError,
			eris.Wrap(err, "pipeline: claim topic"), nil, "")
		return result, nil
	}

	// Stage 3: pre-generation safety screen.
	start := time.Now()
	verdict, usage, err := p.gate.CheckTopic(ctx, topic.Subject, topic.TargetKeyword)
	p.record(result, model.StageSafetyTopic, p.cfg.Anthropic.HaikuModel, start, usage, err)
	if err != nil {
		p.fail(ctx, log, result, topic, model.StageSafetyTopic, model.FailServiceError, err, nil, p.revertStatus(topic))
		return result, nil
	}
	if verdict.Blocked() {
		p.fail(ctx, log, result, topic, model.StageSafetyTopic, model.FailSafetyBlocked,
			eris.Errorf("topic blocked: %s", verdict.Reason), verdict.Categories, p.revertStatus(topic))
		return result, nil
	}

	// Stage 4: outline.
	start = time.Now()
	outline, usage, err := p.generateOutline(ctx, topic)
	p.record(result, model.StageOutline, p.draftModel(topic), start, usage, err)
	if err != nil {
		p.fail(ctx, log, result, topic, model.StageOutline, kindOf(err), err, nil, p.revertStatus(topic))
		return result, nil
	}

	// Stage 5: draft.
	start = time.Now()
	draft, usage, err := p.writeDraft(ctx, topic, outline)
	p.record(result, model.StageDraft, p.draftModel(topic), start, usage, err)
	if err != nil {
		p.fail(ctx, log, result, topic, model.StageDraft, kindOf(err), err, nil, p.revertStatus(topic))
		return result, nil
	}

	// Stage 6: bounded review loop.
	draft, review, err := p.runReviewLoop(ctx, log, result, topic, outline, draft)
	if err != nil {
		p.fail(ctx, log, result, topic, model.StageReview, kindOf(err), err, nil, p.revertStatus(topic))
		return result, nil
	}
	result.Metrics.FinalScore = review.Score
	if review.Status != model.ReviewPass && !p.cfg.Pipeline.PublishOnReviewFail {
		p.escalate(ctx, log, topic, review, draft)
		p.fail(ctx, log, result, topic, model.StageReview, model.FailReviewExhausted,
			eris.Errorf("review exhausted after %d rewrites with score %d", result.Metrics.Rewrites, review.Score),
			review.Issues, p.revertStatus(topic))
		return result, nil
	}

	// Stage 7: polish metadata.
	start = time.Now()
	meta, usage, err := p.polish(ctx, topic, outline, draft)
	p.record(result, model.StagePolish, p.cfg.Anthropic.HaikuModel, start, usage, err)
	if err != nil {
		p.fail(ctx, log, result, topic, model.StagePolish, kindOf(err), err, nil, p.revertStatus(topic))
		return result, nil
	}

	// Stage 8: final safety screen over the finished draft.
	start = time.Now()
	verdict, usage, err = p.gate.CheckContent(ctx, draft)
	p.record(result, model.StageSafetyFinal, p.cfg.Anthropic.HaikuModel, start, usage, err)
	if err != nil {
		p.fail(ctx, log, result, topic, model.StageSafetyFinal, model.FailServiceError, err, nil, p.revertStatus(topic))
		return result, nil
	}
	if verdict.Blocked() {
		p.fail(ctx, log, result, topic, model.StageSafetyFinal, model.FailSafetyBlocked,
			eris.Errorf("draft blocked: %s", verdict.Reason), verdict.Categories, p.revertStatus(topic))
		return result, nil
	}

	article := p.assembleArticle(topic, outline, draft, meta, review.Score)

	// Stage 9: internal links. Failures fall back to stripping the
	// placeholders so none of them reach a published page.
	start = time.Now()
	usage, err = p.linkInternal(ctx, article)
	p.record(result, model.StageLink, p.cfg.Anthropic.HaikuModel, start, usage, err)
	if err != nil {
		log.Warn("pipeline: internal linking failed, stripping placeholders", zap.Error(err))
		article.Body = stripInternalMarkers(article.Body)
	}
	article.WordCount = model.CountWords(article.Body)
	article.ReadingTimeMin = model.ReadingTime(article.WordCount)

	// Stage 10: hero image. Failures here never sink the article.
	if p.curator != nil && !p.cfg.Images.Disabled {
		start = time.Now()
		asset, imgCost, err := p.curator.Curate(ctx, article)
		attempt := model.GenerationAttempt{
			Stage:    model.StageImage,
			Duration: time.Since(start),
			CostUSD:  imgCost,
			Status:   "ok",
		}
		if err != nil {
			attempt.Status = "error"
			attempt.Error = err.Error()
			log.Warn("pipeline: image curation failed, publishing without hero", zap.Error(err))
		} else {
			article.HeroImage = asset
		}
		result.Metrics.Record(attempt)
		if p.budget != nil && imgCost > 0 {
			p.budget.Record(imgCost)
		}
	}

	// Stage 11: persist and publish.
	if err := p.store.CreateArticle(ctx, article); err != nil {
		p.fail(ctx, log, result, topic, model.StagePersist, model.FailServiceError, err, nil, p.revertStatus(topic))
		return result, nil
	}
	if err := p.store.PatchTopicStatus(ctx, topic.ID, model.TopicStatusPublished, store.TopicPatch{}); err != nil {
		p.fail(ctx, log, result, topic, model.StagePersist, model.FailServiceError, err, nil, "")
		return result, nil
	}

	result.Outcome = model.OutcomePublished
	result.Article = article
	log.Info("pipeline: published",
		zap.String("slug", article.Slug),
		zap.Int("word_count", article.WordCount),
		zap.Int("score", review.Score),
		zap.Int("rewrites", result.Metrics.Rewrites),
		zap.Float64("cost_usd", result.Metrics.TotalCostUSD),
	)
	return result, nil
}

// revertStatus picks the recovery state for a failed topic: titled when the
// title work is already done, queued otherwise. Terminal skips are reserved
// for duplicate keywords.
func (p *Pipeline) revertStatus(topic model.Topic) model.TopicStatus {
	if topic.GeneratedTitle != "" {
		return model.TopicStatusTitled
	}
	return model.TopicStatusQueued
}

// fail records a stage failure on the result and moves the topic to revertTo
// when set. Status patch errors are logged, never propagated: the failure
// already owns the result.
func (p *Pipeline) fail(ctx context.Context, log *zap.Logger, result *model.GenerationResult,
	topic model.Topic, stage string, kind model.FailureKind, err error, issues []string,
	revertTo model.TopicStatus) {

	log.Error("pipeline: stage failed",
		zap.String("stage", stage),
		zap.String("kind", string(kind)),
		zap.Error(err),
	)
	result.Outcome = model.OutcomeFailed
	result.Failure = &model.StageFailure{
		Stage:   stage,
		Kind:    kind,
		Message: err.Error(),
		Issues:  issues,
	}
	if revertTo != "" {
		p.setStatus(ctx, log, topic.ID, revertTo, store.TopicPatch{})
	}
}

func (p *Pipeline) setStatus(ctx context.Context, log *zap.Logger, topicID string, to model.TopicStatus, patch store.TopicPatch) {
	if err := p.store.PatchTopicStatus(ctx, topicID, to, patch); err != nil {
		log.Warn("pipeline: failed to update topic status",
			zap.String("to", string(to)),
			zap.Error(err),
		)
	}
}

// record appends a model-call attempt to the metrics and charges its cost
// against the daily budget.
func (p *Pipeline) record(result *model.GenerationResult, stage, modelID string, start time.Time, usage anthropic.TokenUsage, err error) {
	attempt := model.GenerationAttempt{
		Stage:        stage,
		Model:        modelID,
		Duration:     time.Since(start),
		InputTokens:  usage.InputTokens,
		OutputTokens: usage.OutputTokens,
		CostUSD: p.costCalc.Claude(modelID, false,
			int(usage.InputTokens), int(usage.OutputTokens),
			int(usage.CacheCreationInputTokens), int(usage.CacheReadInputTokens)),
		Status: "ok",
	}
	if err != nil {
		attempt.Status = "error"
		attempt.Error = err.Error()
	}
	result.Metrics.Record(attempt)
	if p.budget != nil && attempt.CostUSD > 0 {
		p.budget.Record(attempt.CostUSD)
	}
}

// complete sends one message through the circuit breaker with retries and a
// per-stage timeout, returning the text content. A non-empty system string
// becomes the system prompt; writing stages pass the style profile here.
func (p *Pipeline) complete(ctx context.Context, modelID string, maxTokens int64, system, prompt string) (string, anthropic.TokenUsage, error) {
	if secs := p.cfg.Pipeline.StageTimeoutSecs; secs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(secs)*time.Second)
		defer cancel()
	}

	req := anthropic.MessageRequest{
		Model:     modelID,
		MaxTokens: maxTokens,
		Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
	}
	if system != "" {
		req.System = []anthropic.SystemBlock{{Text: system}}
	}

	resp, err := resilience.DoVal(ctx, p.retryCfg, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return resilience.ExecuteVal(ctx, p.breaker, func(ctx context.Context) (*anthropic.MessageResponse, error) {
			return p.ai.CreateMessage(ctx, req)
		})
	})
	if err != nil {
		return "", anthropic.TokenUsage{}, err
	}
	return anthropic.TextContent(resp), resp.Usage, nil
}

// draftModel routes pillar articles to the strongest model; everything else
// drafts on the mid tier.
func (p *Pipeline) draftModel(topic model.Topic) string {
	if topic.ArticleType == model.ArticleTypePillar {
		return p.cfg.Anthropic.OpusModel
	}
	return p.cfg.Anthropic.SonnetModel
}

func (p *Pipeline) escalate(ctx context.Context, log *zap.Logger, topic model.Topic, review model.ReviewResult, draft string) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.EscalateReview(ctx, topic, review, draft); err != nil {
		log.Warn("pipeline: editorial escalation failed", zap.Error(err))
	}
}

func (p *Pipeline) assembleArticle(topic model.Topic, outline *model.Outline, draft string, meta polishResult, score int) *model.Article {
	title := topic.GeneratedTitle
	if title == "" {
		title = meta.Title
	}
	if title == "" {
		title = outline.Title
	}

	keywords := appendUnique(meta.TargetKeywords, strings.ToLower(strings.TrimSpace(topic.TargetKeyword)))
	words := model.CountWords(draft)

	return &model.Article{
		TopicID:         topic.ID,
		Title:           title,
		Slug:            model.Slugify(title),
		MetaDescription: meta.Description,
		Body:            draft,
		Excerpt:         meta.Excerpt,
		Tags:            meta.Tags,
		TargetKeywords:  keywords,
		ArticleType:     topic.ArticleType,
		WordCount:       words,
		ReadingTimeMin:  model.ReadingTime(words),
		ReviewScore:     score,
	}
}

func appendUnique(list []string, item string) []string {
	if item == "" {
		return list
	}
	for _, existing := range list {
		if strings.EqualFold(existing, item) {
			return list
		}
	}
	return append(list, item)
}

func runStatus(outcome model.Outcome) model.RunStatus {
	switch outcome {
	case model.OutcomePublished:
		return model.RunStatusPublished
	case model.OutcomeSkipped:
		return model.RunStatusSkipped
	default:
		return model.RunStatusFailed
	}
}

// kindOf classifies a stage error for the failure record.
func kindOf(err error) model.FailureKind {
	if eris.Is(err, ErrMalformedResponse) {
		return model.FailParseError
	}
	return model.FailServiceError
}
