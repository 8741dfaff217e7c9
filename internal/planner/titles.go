package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/courtline/content-cli/internal/model"
	"github.com/courtline/content-cli/internal/store"
	"github.com/courtline/content-cli/pkg/anthropic"
)

const (
	titleMaxTokens    = 256
	directConcurrency = 4
)

// titleStyleGuide is the shared system prompt for title generation. In batch
// mode it is sent once with a cache breakpoint so every batch item reads it
// from the warm cache.
const titleStyleGuide = `You write article titles for a pickleball blog aimed at recreational players.

House style:
- 45 to 65 characters, plain language, no clickbait.
- Lead with the benefit or the question the reader has.
- Include the target keyword naturally, never stuffed.
- Numbers are fine ("5 Drills..."), ALL CAPS and exclamation marks are not.

Respond with only a JSON object: {"title": "..."}`

// GenerateTitles titles up to the configured batch of queued topics and
// moves each titled topic to the titled state. Large sets go through the
// batch API behind a cache primer; small sets or NoBatch fall back to
// direct concurrent requests. Topics whose title cannot be parsed stay
// queued and are retried on the next pass. Returns the number titled.
func (p *Planner) GenerateTitles(ctx context.Context) (int, error) {
	limit := defaultCount(p.cfg.Planner.TitleBatchSize, 20)
	topics, err := p.store.FetchTopics(ctx, store.TopicFilter{
		Status: model.TopicStatusQueued,
		Limit:  limit,
	})
	if err != nil {
		return 0, eris.Wrap(err, "planner: fetch queued topics")
	}
	if len(topics) == 0 {
		return 0, nil
	}

	var titles map[string]string
	if p.cfg.Anthropic.NoBatch || len(topics) < p.cfg.Anthropic.SmallBatchThreshold {
		titles, err = p.titlesDirect(ctx, topics)
	} else {
		titles, err = p.titlesBatch(ctx, topics)
	}
	if err != nil {
		return 0, err
	}

	titled := 0
	for _, topic := range topics {
		title, ok := titles[topic.ID]
		if !ok {
			continue
		}
		// A title whose slug collides with a published article would be
		// rejected at persist time; leave the topic queued for a fresh try.
		if _, err := p.store.GetArticleBySlug(ctx, model.Slugify(title)); err == nil {
			zap.L().Warn("planner: title collides with an existing article, topic stays queued",
				zap.String("topic_id", topic.ID),
				zap.String("title", title),
			)
			continue
		} else if !eris.Is(err, store.ErrNotFound) {
			return titled, eris.Wrap(err, "planner: check title slug")
		}
		if err := p.store.PatchTopicStatus(ctx, topic.ID, model.TopicStatusTitled,
			store.TopicPatch{GeneratedTitle: title}); err != nil {
			zap.L().Warn("planner: failed to store title",
				zap.String("topic_id", topic.ID),
				zap.Error(err),
			)
			continue
		}
		titled++
	}
	zap.L().Info("planner: titled topics",
		zap.Int("requested", len(topics)),
		zap.Int("titled", titled),
	)
	return titled, nil
}

// titlesDirect sends one request per topic with bounded concurrency.
func (p *Planner) titlesDirect(ctx context.Context, topics []model.Topic) (map[string]string, error) {
	results := make([]string, len(topics))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(directConcurrency)
	for i, topic := range topics {
		g.Go(func() error {
			resp, err := p.ai.CreateMessage(ctx, p.titleRequest(topic))
			if err != nil {
				return eris.Wrapf(err, "planner: title for topic %s", topic.ID)
			}
			title, err := parseTitle(resp)
			if err != nil {
				zap.L().Warn("planner: unparseable title, topic stays queued",
					zap.String("topic_id", topic.ID),
					zap.Error(err),
				)
				return nil
			}
			results[i] = title
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	titles := make(map[string]string, len(topics))
	for i, topic := range topics {
		if results[i] != "" {
			titles[topic.ID] = results[i]
		}
	}
	return titles, nil
}

// titlesBatch warms the prompt cache with a primer, then submits all topics
// as one batch keyed by topic ID.
func (p *Planner) titlesBatch(ctx context.Context, topics []model.Topic) (map[string]string, error) {
	system := anthropic.CachedSystem(titleStyleGuide)

	primer, err := anthropic.WarmCache(ctx, p.ai, anthropic.MessageRequest{
		Model:     p.cfg.Anthropic.HaikuModel,
		MaxTokens: titleMaxTokens,
		System:    system,
		Messages:  []anthropic.Message{{Role: "user", Content: titlePrompt(topics[0])}},
	})
	if err != nil {
		return nil, err
	}
	primer.Usage.LogUsage(p.cfg.Anthropic.HaikuModel, "title-primer")

	items := make([]anthropic.BatchRequestItem, 0, len(topics))
	for _, topic := range topics {
		items = append(items, anthropic.BatchRequestItem{
			CustomID: topic.ID,
			Params:   p.titleRequest(topic),
		})
	}

	batch, err := p.ai.CreateBatch(ctx, anthropic.BatchRequest{Requests: items})
	if err != nil {
		return nil, eris.Wrap(err, "planner: create title batch")
	}
	zap.L().Info("planner: title batch submitted",
		zap.String("batch_id", batch.ID),
		zap.Int("topics", len(topics)),
	)

	if _, err := anthropic.PollBatch(ctx, p.ai, batch.ID); err != nil {
		return nil, err
	}
	iter, err := p.ai.GetBatchResults(ctx, batch.ID)
	if err != nil {
		return nil, eris.Wrap(err, "planner: fetch title batch results")
	}
	responses, err := anthropic.CollectBatchResults(iter)
	if err != nil {
		return nil, err
	}

	titles := make(map[string]string, len(responses))
	for topicID, resp := range responses {
		title, err := parseTitle(resp)
		if err != nil {
			zap.L().Warn("planner: unparseable batch title, topic stays queued",
				zap.String("topic_id", topicID),
				zap.Error(err),
			)
			continue
		}
		titles[topicID] = title
	}
	return titles, nil
}

func (p *Planner) titleRequest(topic model.Topic) anthropic.MessageRequest {
	return anthropic.MessageRequest{
		Model:     p.cfg.Anthropic.HaikuModel,
		MaxTokens: titleMaxTokens,
		System:    anthropic.CachedSystem(titleStyleGuide),
		Messages:  []anthropic.Message{{Role: "user", Content: titlePrompt(topic)}},
	}
}

func titlePrompt(topic model.Topic) string {
	return fmt.Sprintf("Subject: %s\nArticle type: %s\nTarget keyword: %s",
		topic.Subject, topic.ArticleType, topic.TargetKeyword)
}

func parseTitle(resp *anthropic.MessageResponse) (string, error) {
	var out struct {
		Title string `json:"title"`
	}
	if err := json.Unmarshal([]byte(anthropic.CleanJSON(anthropic.TextContent(resp))), &out); err != nil {
		return "", eris.Wrap(err, "planner: parse title")
	}
	title := strings.TrimSpace(out.Title)
	if title == "" {
		return "", eris.New("planner: empty title")
	}
	return title, nil
}
