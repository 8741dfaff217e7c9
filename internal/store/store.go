package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/courtline/content-cli/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = eris.New("store: not found")

// ErrInvalidTransition is returned when a status patch violates the topic
// transition table. Callers treat this as a logic error, not a retry case.
var ErrInvalidTransition = eris.New("store: invalid status transition")

// TopicFilter specifies criteria for fetching topics. Results are ordered by
// priority ascending (lower numbers first), then by creation time.
type TopicFilter struct {
	Status      model.TopicStatus `json:"status,omitempty"`
	ArticleType model.ArticleType `json:"article_type,omitempty"`
	PillarID    string            `json:"pillar_id,omitempty"`
	Limit       int               `json:"limit,omitempty"`
}

// TopicPatch carries optional fields set alongside a status transition.
type TopicPatch struct {
	GeneratedTitle string
}

// RunFilter specifies criteria for listing generation runs.
type RunFilter struct {
	TopicID string          `json:"topic_id,omitempty"`
	Status  model.RunStatus `json:"status,omitempty"`
	Since   time.Time       `json:"since,omitempty"`
	Limit   int             `json:"limit,omitempty"`
}

// Store defines the persistence interface for the content pipeline.
type Store interface {
	// Topics
	SeedTopics(ctx context.Context, topics []model.Topic) (int, error)
	FetchTopics(ctx context.Context, filter TopicFilter) ([]model.Topic, error)
	GetTopic(ctx context.Context, topicID string) (*model.Topic, error)
	PatchTopicStatus(ctx context.Context, topicID string, to model.TopicStatus, patch TopicPatch) error

	// Pillars
	CreatePillar(ctx context.Context, pillar model.Pillar) error
	ListPillars(ctx context.Context, activeOnly bool) ([]model.Pillar, error)

	// Articles
	CreateArticle(ctx context.Context, article *model.Article) error
	GetArticleBySlug(ctx context.Context, slug string) (*model.Article, error)
	// ListArticles returns the newest published articles without bodies,
	// for building the internal-link catalog. limit caps the result; a
	// non-positive limit returns nothing.
	ListArticles(ctx context.Context, limit int) ([]model.Article, error)
	CountArticlesByKeyword(ctx context.Context, keyword string) (int, error)

	// Runs
	CreateRun(ctx context.Context, topicID string) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, status model.RunStatus, result *model.GenerationResult) error
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)
	CostSince(ctx context.Context, since time.Time) (float64, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
