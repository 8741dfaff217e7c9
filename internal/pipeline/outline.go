package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/courtline/content-cli/internal/model"
	"github.com/courtline/content-cli/pkg/anthropic"
)

const outlineMaxTokens = 2048

// generateOutline produces the structural plan for a draft. The outline
// anchors every later stage: the draft writes against it and the review
// scores coverage of its sections.
func (p *Pipeline) generateOutline(ctx context.Context, topic model.Topic) (*model.Outline, anthropic.TokenUsage, error) {
	target := model.WordTargets[topic.ArticleType]

	prompt := fmt.Sprintf(`You are a content strategist for a pickleball blog aimed at recreational players.
Create an article outline.

Subject: %s
Article type: %s
Target keyword: %s
Target length: %d-%d words
%s
Respond with only a JSON object:
{
  "title": "...",
  "description": "... (under 160 characters)",
  "targetKeywords": ["primary keyword", "2-4 secondary keywords"],
  "sections": [
    {"heading": "...", "points": ["...", "..."]}
  ]
}`,
		topic.Subject, topic.ArticleType, topic.TargetKeyword, target.Min, target.Max,
		titleLine(topic))

	text, usage, err := p.complete(ctx, p.draftModel(topic), outlineMaxTokens, p.style.SystemPrompt(), prompt)
	if err != nil {
		return nil, usage, eris.Wrap(err, "pipeline: outline")
	}

	var outline model.Outline
	if err := json.Unmarshal([]byte(anthropic.CleanJSON(text)), &outline); err != nil {
		return nil, usage, eris.Wrapf(ErrMalformedResponse, "outline: %v", err)
	}
	if outline.Title == "" || len(outline.Sections) == 0 {
		return nil, usage, eris.Wrap(ErrMalformedResponse, "outline missing title or sections")
	}
	return &outline, usage, nil
}

// titleLine pins the outline to a pre-generated title when the topic has one.
func titleLine(topic model.Topic) string {
	if strings.TrimSpace(topic.GeneratedTitle) == "" {
		return ""
	}
	return fmt.Sprintf("Use this exact title: %s\n", topic.GeneratedTitle)
}
