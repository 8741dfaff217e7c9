package pipeline

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtline/content-cli/internal/budget"
	"github.com/courtline/content-cli/internal/config"
	"github.com/courtline/content-cli/internal/model"
	"github.com/courtline/content-cli/internal/safety"
)

const (
	outlineJSON = `{
		"title": "How to Master the Pickleball Serve",
		"description": "Learn a consistent, legal pickleball serve.",
		"targetKeywords": ["pickleball serve", "serve technique"],
		"sections": [
			{"heading": "Grip and Stance", "points": ["continental grip", "feet behind the baseline"]},
			{"heading": "The Motion", "points": ["low to high swing", "contact below the waist"]}
		]
	}`
	draftText  = "Serving well starts with the grip. Hold the paddle with a relaxed continental grip and keep your feet behind the baseline. Swing low to high and make contact below the waist for a legal serve."
	reviewPass = `{"status": "PASS", "score": 88, "issues": [], "sectionsToRewrite": [], "praise": "clear, practical instruction"}`
	reviewFail = `{"status": "FAIL", "score": 62, "issues": ["thin coverage of the motion section"], "sectionsToRewrite": [1], "praise": "strong grip fundamentals"}`
	polishJSON = `{"title": "", "description": "Master the pickleball serve with grip, stance, and motion fundamentals.", "tags": ["serve", "fundamentals"], "targetKeywords": ["pickleball serve", "serve technique"], "excerpt": "A practical guide to a consistent serve."}`
	safeJSON   = `{"safe": true, "categories": [], "reason": ""}`
)

func testConfig() *config.Config {
	return &config.Config{
		Anthropic: config.AnthropicConfig{
			HaikuModel:  "claude-haiku-test",
			SonnetModel: "claude-sonnet-test",
			OpusModel:   "claude-opus-test",
		},
		Pipeline: config.PipelineConfig{
			MaxRewriteAttempts: 2,
			PassingScore:       80,
		},
		Images: config.ImagesConfig{Disabled: true},
	}
}

func testTopic(id string) model.Topic {
	return model.Topic{
		ID:            id,
		Subject:       "Improving your pickleball serve consistency",
		ArticleType:   model.ArticleTypeHowTo,
		TargetKeyword: "Pickleball Serve",
		Status:        model.TopicStatusQueued,
		Priority:      1,
	}
}

// newTestPipeline wires a pipeline with the safety gate disabled so tests can
// script only the generation stages. Safety-specific tests build their own.
func newTestPipeline(st *fakeStore, client *scriptedClient, notifier Notifier, spend *budget.Tracker) *Pipeline {
	cfg := testConfig()
	gate := safety.NewGate(client, cfg.Anthropic.HaikuModel, safety.DefaultTaxonomy(), safety.WithDisabled(true))
	return New(cfg, st, client, gate, nil, notifier, spend)
}

func TestRunPublishesOnFirstReviewPass(t *testing.T) {
	st := newFakeStore()
	topic := testTopic("t1")
	st.addTopic(topic)
	client := &scriptedClient{responses: []string{outlineJSON, draftText, reviewPass, polishJSON}}
	p := newTestPipeline(st, client, nil, nil)

	result, err := p.Run(context.Background(), topic)
	require.NoError(t, err)

	assert.Equal(t, model.OutcomePublished, result.Outcome)
	require.NotNil(t, result.Article)
	assert.Nil(t, result.Failure)
	assert.Equal(t, 4, client.callCount())

	assert.Equal(t, []model.TopicStatus{model.TopicStatusInProgress, model.TopicStatusPublished}, st.transitions["t1"])

	require.Len(t, st.articles, 1)
	article := st.articles[0]
	assert.Equal(t, "How to Master the Pickleball Serve", article.Title)
	assert.Equal(t, "how-to-master-the-pickleball-serve", article.Slug)
	assert.Contains(t, article.TargetKeywords, "pickleball serve")
	assert.Greater(t, article.WordCount, 0)
	assert.Equal(t, 88, article.ReviewScore)
	assert.Nil(t, article.HeroImage)

	assert.Equal(t, 88, result.Metrics.FinalScore)
	assert.Equal(t, 1, result.Metrics.ReviewPasses)
	assert.Equal(t, 0, result.Metrics.Rewrites)

	run, ok := st.runs["run-t1"]
	require.True(t, ok)
	assert.Equal(t, model.RunStatusPublished, run.Status)
	require.NotNil(t, run.Result)
	var stages []string
	for _, a := range run.Result.Metrics.Attempts {
		stages = append(stages, a.Stage)
	}
	assert.Equal(t, []string{
		model.StageSafetyTopic, model.StageOutline, model.StageDraft,
		model.StageReview, model.StagePolish, model.StageSafetyFinal, model.StageLink,
	}, stages)
}

func TestRunSkipsDuplicateKeywordWithoutSpend(t *testing.T) {
	st := newFakeStore()
	topic := testTopic("t1")
	st.addTopic(topic)
	st.keywords["pickleball serve"] = 1
	client := &scriptedClient{}
	p := newTestPipeline(st, client, nil, nil)

	result, err := p.Run(context.Background(), topic)
	require.NoError(t, err)

	assert.Equal(t, model.OutcomeSkipped, result.Outcome)
	assert.Contains(t, result.SkipReason, "pickleball serve")
	assert.Zero(t, client.callCount())
	assert.Zero(t, result.Metrics.TotalCostUSD)

	// Skipped before the claim: never marked in-progress.
	assert.Equal(t, []model.TopicStatus{model.TopicStatusSkipped}, st.transitions["t1"])
	assert.Equal(t, model.RunStatusSkipped, st.runs["run-t1"].Status)
}

func TestRunReviewLoopRewritesUntilPass(t *testing.T) {
	st := newFakeStore()
	topic := testTopic("t1")
	st.addTopic(topic)
	client := &scriptedClient{responses: []string{
		outlineJSON,
		draftText,
		reviewFail,
		draftText + " Practice against a wall daily.",
		reviewFail,
		draftText + " Practice against a wall daily. Track your make percentage.",
		reviewPass,
		polishJSON,
	}}
	p := newTestPipeline(st, client, nil, nil)

	result, err := p.Run(context.Background(), topic)
	require.NoError(t, err)

	assert.Equal(t, model.OutcomePublished, result.Outcome)
	assert.Equal(t, 3, result.Metrics.ReviewPasses)
	assert.Equal(t, 2, result.Metrics.Rewrites)
	assert.Equal(t, 88, result.Metrics.FinalScore)
	assert.Equal(t, 8, client.callCount())
}

func TestRunReviewExhaustionRequeuesAndEscalates(t *testing.T) {
	st := newFakeStore()
	topic := testTopic("t1")
	st.addTopic(topic)
	client := &scriptedClient{responses: []string{
		outlineJSON,
		draftText,
		reviewFail,
		draftText,
		reviewFail,
		draftText,
		reviewFail,
	}}
	notifier := &recordingNotifier{}
	p := newTestPipeline(st, client, notifier, nil)

	result, err := p.Run(context.Background(), topic)
	require.NoError(t, err)

	assert.Equal(t, model.OutcomeFailed, result.Outcome)
	require.NotNil(t, result.Failure)
	assert.Equal(t, model.FailReviewExhausted, result.Failure.Kind)
	assert.Equal(t, model.StageReview, result.Failure.Stage)
	assert.Equal(t, []string{"thin coverage of the motion section"}, result.Failure.Issues)

	// Two rewrites means three reviews, then stop. No polish call.
	assert.Equal(t, 7, client.callCount())
	assert.Equal(t, 3, result.Metrics.ReviewPasses)
	assert.Equal(t, 2, result.Metrics.Rewrites)

	assert.Equal(t, []model.TopicStatus{model.TopicStatusInProgress, model.TopicStatusQueued}, st.transitions["t1"])
	require.Len(t, notifier.escalated, 1)
	assert.Equal(t, "t1", notifier.escalated[0].ID)
	assert.Equal(t, model.RunStatusFailed, st.runs["run-t1"].Status)
}

func TestRunReviewVerdictRecomputedFromScore(t *testing.T) {
	// The reviewer claims FAIL but scores above the passing bar. The local
	// verdict wins and the article publishes without a rewrite.
	st := newFakeStore()
	topic := testTopic("t1")
	st.addTopic(topic)
	client := &scriptedClient{responses: []string{
		outlineJSON,
		draftText,
		`{"status": "FAIL", "score": 85, "issues": [], "sectionsToRewrite": [], "praise": ""}`,
		polishJSON,
	}}
	p := newTestPipeline(st, client, nil, nil)

	result, err := p.Run(context.Background(), topic)
	require.NoError(t, err)

	assert.Equal(t, model.OutcomePublished, result.Outcome)
	assert.Equal(t, 85, result.Metrics.FinalScore)
	assert.Equal(t, 0, result.Metrics.Rewrites)
}

func TestRunOutlineParseErrorRequeuesTopic(t *testing.T) {
	st := newFakeStore()
	topic := testTopic("t1")
	st.addTopic(topic)
	client := &scriptedClient{responses: []string{"I'd be happy to help with an outline!"}}
	p := newTestPipeline(st, client, nil, nil)

	result, err := p.Run(context.Background(), topic)
	require.NoError(t, err)

	assert.Equal(t, model.OutcomeFailed, result.Outcome)
	require.NotNil(t, result.Failure)
	assert.Equal(t, model.FailParseError, result.Failure.Kind)
	assert.Equal(t, model.StageOutline, result.Failure.Stage)

	assert.Equal(t, []model.TopicStatus{model.TopicStatusInProgress, model.TopicStatusQueued}, st.transitions["t1"])

	// Metrics still carry the failed attempt after the safety pass-through.
	run := st.runs["run-t1"]
	require.NotNil(t, run.Result)
	require.Len(t, run.Result.Metrics.Attempts, 2)
	assert.Equal(t, model.StageOutline, run.Result.Metrics.Attempts[1].Stage)
	assert.Equal(t, "error", run.Result.Metrics.Attempts[1].Status)
}

func TestRunFailureAfterTitlingRevertsToTitled(t *testing.T) {
	st := newFakeStore()
	topic := testTopic("t1")
	topic.Status = model.TopicStatusTitled
	topic.GeneratedTitle = "Serve Like You Mean It"
	st.addTopic(topic)
	client := &scriptedClient{responses: []string{"no outline today"}}
	p := newTestPipeline(st, client, nil, nil)

	result, err := p.Run(context.Background(), topic)
	require.NoError(t, err)

	assert.Equal(t, model.OutcomeFailed, result.Outcome)
	assert.Equal(t, []model.TopicStatus{model.TopicStatusInProgress, model.TopicStatusTitled}, st.transitions["t1"])
}

func TestRunSafetyKeywordBlockRequeuesWithoutModelCall(t *testing.T) {
	st := newFakeStore()
	topic := testTopic("t1")
	topic.Subject = "Best pickleball betting odds and parlay picks"
	st.addTopic(topic)
	client := &scriptedClient{}
	cfg := testConfig()
	gate := safety.NewGate(client, cfg.Anthropic.HaikuModel, safety.DefaultTaxonomy())
	p := New(cfg, st, client, gate, nil, nil, nil)

	result, err := p.Run(context.Background(), topic)
	require.NoError(t, err)

	assert.Equal(t, model.OutcomeFailed, result.Outcome)
	require.NotNil(t, result.Failure)
	assert.Equal(t, model.FailSafetyBlocked, result.Failure.Kind)
	assert.Equal(t, model.StageSafetyTopic, result.Failure.Stage)
	assert.Contains(t, result.Failure.Issues, "gambling")

	assert.Zero(t, client.callCount())
	assert.Equal(t, []model.TopicStatus{model.TopicStatusInProgress, model.TopicStatusQueued}, st.transitions["t1"])
}

func TestRunSafetyModelBlockRequeuesTopic(t *testing.T) {
	st := newFakeStore()
	topic := testTopic("t1")
	st.addTopic(topic)
	client := &scriptedClient{responses: []string{
		`{"safe": false, "categories": ["medical_advice"], "reason": "topic invites injury treatment advice"}`,
	}}
	cfg := testConfig()
	gate := safety.NewGate(client, cfg.Anthropic.HaikuModel, safety.DefaultTaxonomy())
	p := New(cfg, st, client, gate, nil, nil, nil)

	result, err := p.Run(context.Background(), topic)
	require.NoError(t, err)

	assert.Equal(t, model.OutcomeFailed, result.Outcome)
	assert.Equal(t, model.FailSafetyBlocked, result.Failure.Kind)
	assert.Equal(t, 1, client.callCount())
	assert.Equal(t, []model.TopicStatus{model.TopicStatusInProgress, model.TopicStatusQueued}, st.transitions["t1"])
}

func TestRunSafetyUnparseableVerdictFailsClosed(t *testing.T) {
	st := newFakeStore()
	topic := testTopic("t1")
	st.addTopic(topic)
	client := &scriptedClient{responses: []string{"this topic seems fine to me"}}
	cfg := testConfig()
	gate := safety.NewGate(client, cfg.Anthropic.HaikuModel, safety.DefaultTaxonomy())
	p := New(cfg, st, client, gate, nil, nil, nil)

	result, err := p.Run(context.Background(), topic)
	require.NoError(t, err)

	assert.Equal(t, model.OutcomeFailed, result.Outcome)
	assert.Equal(t, model.FailSafetyBlocked, result.Failure.Kind)
	assert.Equal(t, []model.TopicStatus{model.TopicStatusInProgress, model.TopicStatusQueued}, st.transitions["t1"])
}

func TestRunSafetyTransportErrorRequeuesTopic(t *testing.T) {
	st := newFakeStore()
	topic := testTopic("t1")
	st.addTopic(topic)
	client := &scriptedClient{errs: []error{eris.New("connection reset")}}
	cfg := testConfig()
	gate := safety.NewGate(client, cfg.Anthropic.HaikuModel, safety.DefaultTaxonomy())
	p := New(cfg, st, client, gate, nil, nil, nil)

	result, err := p.Run(context.Background(), topic)
	require.NoError(t, err)

	assert.Equal(t, model.OutcomeFailed, result.Outcome)
	assert.Equal(t, model.FailServiceError, result.Failure.Kind)
	assert.Equal(t, []model.TopicStatus{model.TopicStatusInProgress, model.TopicStatusQueued}, st.transitions["t1"])
}

func TestRunFinalSafetyBlockRequeuesTopic(t *testing.T) {
	st := newFakeStore()
	topic := testTopic("t1")
	st.addTopic(topic)
	client := &scriptedClient{responses: []string{
		safeJSON, // topic screen
		outlineJSON,
		draftText,
		reviewPass,
		polishJSON,
		`{"safe": false, "categories": ["medical_advice"], "reason": "draft recommends painkillers"}`,
	}}
	cfg := testConfig()
	gate := safety.NewGate(client, cfg.Anthropic.HaikuModel, safety.DefaultTaxonomy())
	p := New(cfg, st, client, gate, nil, nil, nil)

	result, err := p.Run(context.Background(), topic)
	require.NoError(t, err)

	assert.Equal(t, model.OutcomeFailed, result.Outcome)
	assert.Equal(t, model.FailSafetyBlocked, result.Failure.Kind)
	assert.Equal(t, model.StageSafetyFinal, result.Failure.Stage)
	assert.Empty(t, st.articles)
	assert.Equal(t, []model.TopicStatus{model.TopicStatusInProgress, model.TopicStatusQueued}, st.transitions["t1"])
}

func TestRunBudgetExhaustedStopsBeforeAnyWork(t *testing.T) {
	st := newFakeStore()
	topic := testTopic("t1")
	st.addTopic(topic)
	client := &scriptedClient{}
	spend := budget.NewTracker(1.0)
	spend.Record(2.0)
	p := newTestPipeline(st, client, nil, spend)

	result, err := p.Run(context.Background(), topic)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrBudgetExhausted))
	assert.Nil(t, result)

	assert.Zero(t, client.callCount())
	assert.Empty(t, st.runs)
	assert.Empty(t, st.transitions["t1"])
}

func TestRunImageCurationFailureDoesNotSinkArticle(t *testing.T) {
	st := newFakeStore()
	topic := testTopic("t1")
	st.addTopic(topic)
	client := &scriptedClient{responses: []string{outlineJSON, draftText, reviewPass, polishJSON}}
	cfg := testConfig()
	cfg.Images.Disabled = false
	gate := safety.NewGate(client, cfg.Anthropic.HaikuModel, safety.DefaultTaxonomy(), safety.WithDisabled(true))
	curator := &stubCurator{err: eris.New("unsplash: 503")}
	p := New(cfg, st, client, gate, curator, nil, nil)

	result, err := p.Run(context.Background(), topic)
	require.NoError(t, err)

	assert.Equal(t, model.OutcomePublished, result.Outcome)
	require.Len(t, st.articles, 1)
	assert.Nil(t, st.articles[0].HeroImage)
}

func TestRunAttachesHeroImage(t *testing.T) {
	st := newFakeStore()
	topic := testTopic("t1")
	st.addTopic(topic)
	client := &scriptedClient{responses: []string{outlineJSON, draftText, reviewPass, polishJSON}}
	cfg := testConfig()
	cfg.Images.Disabled = false
	gate := safety.NewGate(client, cfg.Anthropic.HaikuModel, safety.DefaultTaxonomy(), safety.WithDisabled(true))
	curator := &stubCurator{
		asset: &model.ImageAsset{URL: "https://images.example/serve.jpg", Source: "unsplash"},
		cost:  0.0,
	}
	p := New(cfg, st, client, gate, curator, nil, nil)

	result, err := p.Run(context.Background(), topic)
	require.NoError(t, err)

	assert.Equal(t, model.OutcomePublished, result.Outcome)
	require.NotNil(t, result.Article.HeroImage)
	assert.Equal(t, "unsplash", result.Article.HeroImage.Source)

	var stages []string
	for _, a := range result.Metrics.Attempts {
		stages = append(stages, a.Stage)
	}
	assert.Contains(t, stages, model.StageImage)
}

func TestRunPersistFailureRequeuesTopic(t *testing.T) {
	st := newFakeStore()
	topic := testTopic("t1")
	st.addTopic(topic)
	st.articleErr = eris.New("disk full")
	client := &scriptedClient{responses: []string{outlineJSON, draftText, reviewPass, polishJSON}}
	p := newTestPipeline(st, client, nil, nil)

	result, err := p.Run(context.Background(), topic)
	require.NoError(t, err)

	assert.Equal(t, model.OutcomeFailed, result.Outcome)
	assert.Equal(t, model.StagePersist, result.Failure.Stage)
	assert.Equal(t, model.FailServiceError, result.Failure.Kind)
	assert.Equal(t, []model.TopicStatus{model.TopicStatusInProgress, model.TopicStatusQueued}, st.transitions["t1"])
}

func TestRunUsesGeneratedTitleWhenPresent(t *testing.T) {
	st := newFakeStore()
	topic := testTopic("t1")
	topic.Status = model.TopicStatusTitled
	topic.GeneratedTitle = "7 Serve Drills That Actually Work"
	st.addTopic(topic)
	client := &scriptedClient{responses: []string{outlineJSON, draftText, reviewPass, polishJSON}}
	p := newTestPipeline(st, client, nil, nil)

	result, err := p.Run(context.Background(), topic)
	require.NoError(t, err)

	assert.Equal(t, model.OutcomePublished, result.Outcome)
	assert.Contains(t, client.prompts[0], "7 Serve Drills That Actually Work")
	assert.Equal(t, "7 Serve Drills That Actually Work", result.Article.Title)
	assert.Equal(t, "7-serve-drills-that-actually-work", result.Article.Slug)
}

func TestRunBatchFailureDoesNotBlockNextTopic(t *testing.T) {
	st := newFakeStore()
	bad := testTopic("bad")
	good := testTopic("good")
	good.TargetKeyword = "pickleball dink"
	st.addTopic(bad)
	st.addTopic(good)
	client := &scriptedClient{responses: []string{
		"no outline today",
		outlineJSON, draftText, reviewPass, polishJSON,
	}}
	p := newTestPipeline(st, client, nil, nil)

	summary, err := p.RunBatch(context.Background(), 10)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Published)
	assert.Equal(t, 0, summary.Skipped)

	assert.Equal(t, model.TopicStatusQueued, st.topics["bad"].Status)
	assert.Equal(t, model.TopicStatusPublished, st.topics["good"].Status)
}

func TestRunBatchPrefersTitledTopics(t *testing.T) {
	st := newFakeStore()
	queued := testTopic("queued")
	titled := testTopic("titled")
	titled.Status = model.TopicStatusTitled
	titled.GeneratedTitle = "The Third Shot Drop, Explained"
	titled.TargetKeyword = "third shot drop"
	st.addTopic(queued)
	st.addTopic(titled)
	client := &scriptedClient{responses: []string{outlineJSON, draftText, reviewPass, polishJSON}}
	p := newTestPipeline(st, client, nil, nil)

	summary, err := p.RunBatch(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 1, summary.Published)
	assert.Equal(t, model.TopicStatusPublished, st.topics["titled"].Status)
	assert.Equal(t, model.TopicStatusQueued, st.topics["queued"].Status)
}

func TestRunBatchStopsCleanlyOnBudgetExhaustion(t *testing.T) {
	st := newFakeStore()
	st.addTopic(testTopic("t1"))
	st.addTopic(testTopic("t2"))
	client := &scriptedClient{}
	spend := budget.NewTracker(1.0)
	spend.Record(5.0)
	p := newTestPipeline(st, client, nil, spend)

	summary, err := p.RunBatch(context.Background(), 10)
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Processed)
	assert.Zero(t, client.callCount())
	assert.Empty(t, st.runs)
}
