package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtline/content-cli/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func seedPillar(t *testing.T, s *SQLiteStore) model.Pillar {
	t.Helper()
	pillar := model.Pillar{
		ID:              "pillar-1",
		Title:           "Pickleball Technique",
		Slug:            "pickleball-technique",
		PrimaryKeywords: []string{"pickleball technique", "pickleball drills"},
		Active:          true,
	}
	require.NoError(t, s.CreatePillar(context.Background(), pillar))
	return pillar
}

func testTopic(id string, priority int) model.Topic {
	return model.Topic{
		ID:            id,
		PillarID:      "pillar-1",
		Subject:       "How to improve your third shot drop",
		ArticleType:   model.ArticleTypeHowTo,
		TargetKeyword: "third shot drop",
		Priority:      priority,
	}
}

func TestSeedTopicsSkipsDuplicates(t *testing.T) {
	s := newTestStore(t)
	seedPillar(t, s)
	ctx := context.Background()

	n, err := s.SeedTopics(ctx, []model.Topic{testTopic("t1", 1), testTopic("t2", 2)})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Re-seeding the same IDs inserts nothing.
	n, err = s.SeedTopics(ctx, []model.Topic{testTopic("t1", 1), testTopic("t3", 3)})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestFetchTopicsPriorityAscending(t *testing.T) {
	s := newTestStore(t)
	seedPillar(t, s)
	ctx := context.Background()

	_, err := s.SeedTopics(ctx, []model.Topic{
		testTopic("low", 50), testTopic("urgent", 1), testTopic("mid", 10),
	})
	require.NoError(t, err)

	topics, err := s.FetchTopics(ctx, TopicFilter{Status: model.TopicStatusQueued})
	require.NoError(t, err)
	require.Len(t, topics, 3)
	assert.Equal(t, "urgent", topics[0].ID)
	assert.Equal(t, "mid", topics[1].ID)
	assert.Equal(t, "low", topics[2].ID)

	topics, err = s.FetchTopics(ctx, TopicFilter{Status: model.TopicStatusQueued, Limit: 1})
	require.NoError(t, err)
	require.Len(t, topics, 1)
	assert.Equal(t, "urgent", topics[0].ID)
}

func TestPatchTopicStatusValidatesTransitions(t *testing.T) {
	s := newTestStore(t)
	seedPillar(t, s)
	ctx := context.Background()

	_, err := s.SeedTopics(ctx, []model.Topic{testTopic("t1", 1)})
	require.NoError(t, err)

	// queued -> published is illegal; the store must refuse it.
	err = s.PatchTopicStatus(ctx, "t1", model.TopicStatusPublished, TopicPatch{})
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrInvalidTransition))

	// Legal path: queued -> titled -> in-progress -> published.
	require.NoError(t, s.PatchTopicStatus(ctx, "t1", model.TopicStatusTitled, TopicPatch{GeneratedTitle: "Master the Third Shot Drop"}))
	topic, err := s.GetTopic(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, model.TopicStatusTitled, topic.Status)
	assert.Equal(t, "Master the Third Shot Drop", topic.GeneratedTitle)

	require.NoError(t, s.PatchTopicStatus(ctx, "t1", model.TopicStatusInProgress, TopicPatch{}))
	require.NoError(t, s.PatchTopicStatus(ctx, "t1", model.TopicStatusPublished, TopicPatch{}))

	// Terminal states accept nothing.
	err = s.PatchTopicStatus(ctx, "t1", model.TopicStatusQueued, TopicPatch{})
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrInvalidTransition))
}

func TestPatchTopicStatusNotFound(t *testing.T) {
	s := newTestStore(t)

	err := s.PatchTopicStatus(context.Background(), "missing", model.TopicStatusTitled, TopicPatch{})
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestInProgressRecoveryTransitions(t *testing.T) {
	s := newTestStore(t)
	seedPillar(t, s)
	ctx := context.Background()

	_, err := s.SeedTopics(ctx, []model.Topic{testTopic("t1", 1)})
	require.NoError(t, err)

	require.NoError(t, s.PatchTopicStatus(ctx, "t1", model.TopicStatusInProgress, TopicPatch{}))
	// A failed run resets the topic for a later retry.
	require.NoError(t, s.PatchTopicStatus(ctx, "t1", model.TopicStatusQueued, TopicPatch{}))

	topic, err := s.GetTopic(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, model.TopicStatusQueued, topic.Status)
}

func TestArticleRoundTripAndKeywordCount(t *testing.T) {
	s := newTestStore(t)
	seedPillar(t, s)
	ctx := context.Background()

	_, err := s.SeedTopics(ctx, []model.Topic{testTopic("t1", 1)})
	require.NoError(t, err)

	article := &model.Article{
		TopicID:         "t1",
		Title:           "Master the Third Shot Drop",
		Slug:            "master-the-third-shot-drop",
		MetaDescription: "A practical guide to the third shot drop.",
		Body:            "The third shot drop is the most important shot in pickleball...",
		Tags:            []string{"strategy", "soft game"},
		TargetKeywords:  []string{"Third Shot Drop", "pickleball strategy"},
		ArticleType:     model.ArticleTypeHowTo,
		WordCount:       1400,
		ReadingTimeMin:  7,
		ReviewScore:     88,
		HeroImage: &model.ImageAsset{
			URL:     "https://images.example.com/drop.jpg",
			Source:  "unsplash",
			AltText: "player hitting a drop shot",
		},
	}
	require.NoError(t, s.CreateArticle(ctx, article))
	assert.NotEmpty(t, article.ID)

	got, err := s.GetArticleBySlug(ctx, "master-the-third-shot-drop")
	require.NoError(t, err)
	assert.Equal(t, article.Title, got.Title)
	assert.Equal(t, article.Tags, got.Tags)
	assert.Equal(t, article.TargetKeywords, got.TargetKeywords)
	require.NotNil(t, got.HeroImage)
	assert.Equal(t, "unsplash", got.HeroImage.Source)

	// Dedup queries always use the lowercased keyword; the stored list keeps
	// whatever casing polish produced.
	count, err := s.CountArticlesByKeyword(ctx, "third shot drop")
	require.NoError(t, err)
	assert.Equal(t, 1, count, "keyword matching is case-insensitive")

	count, err = s.CountArticlesByKeyword(ctx, "Third Shot Drop")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = s.CountArticlesByKeyword(ctx, "dinking")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	_, err = s.GetArticleBySlug(ctx, "missing-slug")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestListArticlesNewestFirst(t *testing.T) {
	s := newTestStore(t)
	seedPillar(t, s)
	ctx := context.Background()

	_, err := s.SeedTopics(ctx, []model.Topic{testTopic("t1", 1), testTopic("t2", 2)})
	require.NoError(t, err)

	older := &model.Article{
		TopicID: "t1", Title: "Dinking Basics", Slug: "dinking-basics",
		Body: "...", Tags: []string{"strategy"}, ArticleType: model.ArticleTypeHowTo,
		PublishedAt: time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
	}
	newer := &model.Article{
		TopicID: "t2", Title: "Serve Footwork", Slug: "serve-footwork",
		Body: "...", ArticleType: model.ArticleTypeHowTo,
		PublishedAt: time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.CreateArticle(ctx, older))
	require.NoError(t, s.CreateArticle(ctx, newer))

	articles, err := s.ListArticles(ctx, 10)
	require.NoError(t, err)
	require.Len(t, articles, 2)
	assert.Equal(t, "serve-footwork", articles[0].Slug)
	assert.Equal(t, "dinking-basics", articles[1].Slug)
	assert.Equal(t, []string{"strategy"}, articles[1].Tags)
	// Summaries leave the body behind.
	assert.Empty(t, articles[0].Body)

	articles, err = s.ListArticles(ctx, 1)
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, "serve-footwork", articles[0].Slug)

	articles, err = s.ListArticles(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, articles)
}

func TestRunLifecycleAndCost(t *testing.T) {
	s := newTestStore(t)
	seedPillar(t, s)
	ctx := context.Background()

	_, err := s.SeedTopics(ctx, []model.Topic{testTopic("t1", 1)})
	require.NoError(t, err)

	run, err := s.CreateRun(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusRunning, run.Status)

	result := &model.GenerationResult{
		TopicID: "t1",
		Outcome: model.OutcomePublished,
		Metrics: model.GenerationMetrics{TotalCostUSD: 0.42, FinalScore: 85},
	}
	require.NoError(t, s.CompleteRun(ctx, run.ID, model.RunStatusPublished, result))

	runs, err := s.ListRuns(ctx, RunFilter{TopicID: "t1"})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunStatusPublished, runs[0].Status)
	require.NotNil(t, runs[0].Result)
	assert.Equal(t, 85, runs[0].Result.Metrics.FinalScore)

	total, err := s.CostSince(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.InDelta(t, 0.42, total, 1e-9)

	total, err = s.CostSince(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.InDelta(t, 0.0, total, 1e-9)

	err = s.CompleteRun(ctx, "missing-run", model.RunStatusFailed, nil)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestListPillars(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreatePillar(ctx, model.Pillar{
		ID: "p1", Title: "Technique", Slug: "technique",
		PrimaryKeywords: []string{"technique"}, Active: true,
	}))
	require.NoError(t, s.CreatePillar(ctx, model.Pillar{
		ID: "p2", Title: "Retired Gear", Slug: "retired-gear", Active: false,
	}))

	all, err := s.ListPillars(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active, err := s.ListPillars(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "p1", active[0].ID)
	assert.Equal(t, []string{"technique"}, active[0].PrimaryKeywords)
}
