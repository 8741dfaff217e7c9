package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/courtline/content-cli/internal/model"
	"github.com/courtline/content-cli/internal/store"
	"github.com/courtline/content-cli/pkg/anthropic"
)

const ideasMaxTokens = 4096

// topicIdea is the shape the idea prompt asks the model for.
type topicIdea struct {
	Subject       string `json:"subject"`
	ArticleType   string `json:"article_type"`
	TargetKeyword string `json:"target_keyword"`
	Priority      int    `json:"priority"`
}

// GenerateIdeas asks the model for article ideas under one pillar and seeds
// them into the queue. Ideas with an unknown article type or an empty keyword
// are dropped rather than seeded broken. Returns the number of topics seeded.
func (p *Planner) GenerateIdeas(ctx context.Context, pillarID string, count int) (int, error) {
	if count <= 0 {
		count = 10
	}

	pillar, err := p.findPillar(ctx, pillarID)
	if err != nil {
		return 0, err
	}

	prompt := fmt.Sprintf(`You are a content strategist for a pickleball blog aimed at recreational players.
Propose %d article ideas for the content pillar below. Spread them across
article types and avoid overlapping keywords.

Pillar: %s
Primary keywords: %s
Secondary keywords: %s

Article types: how-to, pillar, comparison, summary.
Priority is 1 (write soon) to 5 (backlog).

Respond with only a JSON array:
[{"subject": "...", "article_type": "how-to", "target_keyword": "...", "priority": 1}]`,
		count, pillar.Title,
		strings.Join(pillar.PrimaryKeywords, ", "),
		strings.Join(pillar.SecondaryKeywords, ", "))

	resp, err := p.ai.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     p.cfg.Anthropic.SonnetModel,
		MaxTokens: ideasMaxTokens,
		Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return 0, eris.Wrap(err, "planner: generate ideas")
	}
	resp.Usage.LogUsage(p.cfg.Anthropic.SonnetModel, "ideas")

	var ideas []topicIdea
	if err := json.Unmarshal([]byte(anthropic.CleanJSON(anthropic.TextContent(resp))), &ideas); err != nil {
		return 0, eris.Wrap(err, "planner: parse ideas")
	}

	topics := make([]model.Topic, 0, len(ideas))
	for _, idea := range ideas {
		articleType := model.ArticleType(idea.ArticleType)
		keyword := strings.ToLower(strings.TrimSpace(idea.TargetKeyword))
		if !articleType.Valid() || keyword == "" || strings.TrimSpace(idea.Subject) == "" {
			zap.L().Warn("planner: dropping malformed idea",
				zap.String("subject", idea.Subject),
				zap.String("article_type", idea.ArticleType),
			)
			continue
		}
		priority := idea.Priority
		if priority < 1 || priority > 5 {
			priority = 3
		}
		topics = append(topics, model.Topic{
			ID:            uuid.NewString(),
			PillarID:      pillar.ID,
			Subject:       strings.TrimSpace(idea.Subject),
			ArticleType:   articleType,
			TargetKeyword: keyword,
			Priority:      priority,
			Status:        model.TopicStatusQueued,
		})
	}
	if len(topics) == 0 {
		return 0, eris.New("planner: no usable ideas in response")
	}

	seeded, err := p.store.SeedTopics(ctx, topics)
	if err != nil {
		return 0, eris.Wrap(err, "planner: seed topics")
	}
	zap.L().Info("planner: seeded topic ideas",
		zap.String("pillar", pillar.Title),
		zap.Int("seeded", seeded),
		zap.Int("dropped", len(ideas)-len(topics)),
	)
	return seeded, nil
}

// findPillar resolves a pillar by ID or slug among active pillars.
func (p *Planner) findPillar(ctx context.Context, idOrSlug string) (*model.Pillar, error) {
	pillars, err := p.store.ListPillars(ctx, true)
	if err != nil {
		return nil, eris.Wrap(err, "planner: list pillars")
	}
	for i := range pillars {
		if pillars[i].ID == idOrSlug || pillars[i].Slug == idOrSlug {
			return &pillars[i], nil
		}
	}
	return nil, eris.Wrapf(store.ErrNotFound, "pillar %q", idOrSlug)
}
