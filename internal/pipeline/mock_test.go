package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/courtline/content-cli/internal/model"
	"github.com/courtline/content-cli/internal/store"
	"github.com/courtline/content-cli/pkg/anthropic"
)

// scriptedClient returns canned responses in order and records every prompt
// and system block.
type scriptedClient struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	calls     int
	prompts   []string
	systems   []string
}

func (c *scriptedClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.prompts = append(c.prompts, req.Messages[0].Content)
	var system string
	if len(req.System) > 0 {
		system = req.System[0].Text
	}
	c.systems = append(c.systems, system)
	idx := c.calls
	c.calls++

	if idx < len(c.errs) && c.errs[idx] != nil {
		return nil, c.errs[idx]
	}
	if idx >= len(c.responses) {
		return nil, eris.Errorf("scripted client: unexpected call %d", idx)
	}
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: c.responses[idx]}},
		Usage:   anthropic.TokenUsage{InputTokens: 1000, OutputTokens: 500},
	}, nil
}

func (c *scriptedClient) CreateBatch(ctx context.Context, req anthropic.BatchRequest) (*anthropic.BatchResponse, error) {
	return nil, eris.New("scripted client: batch not supported")
}

func (c *scriptedClient) GetBatch(ctx context.Context, batchID string) (*anthropic.BatchResponse, error) {
	return nil, eris.New("scripted client: batch not supported")
}

func (c *scriptedClient) GetBatchResults(ctx context.Context, batchID string) (anthropic.BatchResultIterator, error) {
	return nil, eris.New("scripted client: batch not supported")
}

func (c *scriptedClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// fakeStore is an in-memory Store that records every status transition.
// Topics come back in insertion order so scripted responses line up.
type fakeStore struct {
	mu          sync.Mutex
	topics      map[string]*model.Topic
	order       []string
	articles    []*model.Article
	runs        map[string]*model.Run
	keywords    map[string]int
	transitions map[string][]model.TopicStatus
	keywordErr  error
	articleErr  error
	runErr      error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		topics:      make(map[string]*model.Topic),
		runs:        make(map[string]*model.Run),
		keywords:    make(map[string]int),
		transitions: make(map[string][]model.TopicStatus),
	}
}

func (f *fakeStore) addTopic(t model.Topic) {
	if t.Status == "" {
		t.Status = model.TopicStatusQueued
	}
	if _, ok := f.topics[t.ID]; !ok {
		f.order = append(f.order, t.ID)
	}
	f.topics[t.ID] = &t
}

func (f *fakeStore) SeedTopics(ctx context.Context, topics []model.Topic) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range topics {
		if _, ok := f.topics[t.ID]; !ok {
			f.addTopic(t)
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) FetchTopics(ctx context.Context, filter store.TopicFilter) ([]model.Topic, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Topic
	for _, id := range f.order {
		t := f.topics[id]
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		out = append(out, *t)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (f *fakeStore) GetTopic(ctx context.Context, topicID string) (*model.Topic, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.topics[topicID]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *t
	return &copied, nil
}

func (f *fakeStore) PatchTopicStatus(ctx context.Context, topicID string, to model.TopicStatus, patch store.TopicPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.topics[topicID]
	if !ok {
		return store.ErrNotFound
	}
	if !model.CanTransition(t.Status, to) {
		return eris.Wrapf(store.ErrInvalidTransition, "%s -> %s", t.Status, to)
	}
	t.Status = to
	if patch.GeneratedTitle != "" {
		t.GeneratedTitle = patch.GeneratedTitle
	}
	f.transitions[topicID] = append(f.transitions[topicID], to)
	return nil
}

func (f *fakeStore) CreatePillar(ctx context.Context, pillar model.Pillar) error { return nil }

func (f *fakeStore) ListPillars(ctx context.Context, activeOnly bool) ([]model.Pillar, error) {
	return nil, nil
}

func (f *fakeStore) CreateArticle(ctx context.Context, article *model.Article) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.articleErr != nil {
		return f.articleErr
	}
	f.articles = append(f.articles, article)
	for _, kw := range article.TargetKeywords {
		f.keywords[kw]++
	}
	return nil
}

func (f *fakeStore) GetArticleBySlug(ctx context.Context, slug string) (*model.Article, error) {
	return nil, store.ErrNotFound
}

func (f *fakeStore) addArticle(a model.Article) {
	f.articles = append(f.articles, &a)
}

func (f *fakeStore) ListArticles(ctx context.Context, limit int) ([]model.Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Article
	for _, a := range f.articles {
		out = append(out, *a)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeStore) CountArticlesByKeyword(ctx context.Context, keyword string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.keywordErr != nil {
		return 0, f.keywordErr
	}
	return f.keywords[keyword], nil
}

func (f *fakeStore) CreateRun(ctx context.Context, topicID string) (*model.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.runErr != nil {
		return nil, f.runErr
	}
	run := &model.Run{
		ID:        "run-" + topicID,
		TopicID:   topicID,
		Status:    model.RunStatusRunning,
		CreatedAt: time.Now().UTC(),
	}
	f.runs[run.ID] = run
	return run, nil
}

func (f *fakeStore) CompleteRun(ctx context.Context, runID string, status model.RunStatus, result *model.GenerationResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	run, ok := f.runs[runID]
	if !ok {
		return store.ErrNotFound
	}
	run.Status = status
	run.Result = result
	run.UpdatedAt = time.Now().UTC()
	return nil
}

func (f *fakeStore) ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Run
	for _, r := range f.runs {
		out = append(out, *r)
	}
	return out, nil
}

func (f *fakeStore) CostSince(ctx context.Context, since time.Time) (float64, error) {
	return 0, nil
}

func (f *fakeStore) Migrate(ctx context.Context) error { return nil }
func (f *fakeStore) Close() error                      { return nil }

// recordingNotifier captures editorial escalations.
type recordingNotifier struct {
	mu        sync.Mutex
	escalated []model.Topic
}

func (n *recordingNotifier) EscalateReview(ctx context.Context, topic model.Topic, review model.ReviewResult, draft string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.escalated = append(n.escalated, topic)
	return nil
}

// stubCurator returns a fixed asset.
type stubCurator struct {
	asset *model.ImageAsset
	cost  float64
	err   error
}

func (c *stubCurator) Curate(ctx context.Context, article *model.Article) (*model.ImageAsset, float64, error) {
	return c.asset, c.cost, c.err
}
