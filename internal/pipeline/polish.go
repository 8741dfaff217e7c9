package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/courtline/content-cli/internal/model"
	"github.com/courtline/content-cli/pkg/anthropic"
)

const polishMaxTokens = 1024

// polishResult carries the publication metadata produced by the polish stage.
type polishResult struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Tags           []string `json:"tags"`
	TargetKeywords []string `json:"targetKeywords"`
	Excerpt        string   `json:"excerpt"`
}

// polish generates the publication metadata from the approved draft. Runs on
// the cheap tier; empty fields fall back to the outline's values.
func (p *Pipeline) polish(ctx context.Context, topic model.Topic, outline *model.Outline, draft string) (polishResult, anthropic.TokenUsage, error) {
	excerpt := model.TruncateOnRune(draft, 3000)

	prompt := fmt.Sprintf(`Write publication metadata for this pickleball article.

Title: %s
Target keyword: %s

Article opening:
%s

Respond with only a JSON object:
{"title": "final headline, may refine the working title",
 "description": "compelling, under 160 characters, includes the keyword",
 "tags": ["3-6 short topic tags"],
 "targetKeywords": ["primary keyword first, then secondaries"],
 "excerpt": "1-2 sentence teaser for listing pages"}`,
		outline.Title, topic.TargetKeyword, excerpt)

	text, usage, err := p.complete(ctx, p.cfg.Anthropic.HaikuModel, polishMaxTokens, p.style.SystemPrompt(), prompt)
	if err != nil {
		return polishResult{}, usage, eris.Wrap(err, "pipeline: polish")
	}

	var meta polishResult
	if err := json.Unmarshal([]byte(anthropic.CleanJSON(text)), &meta); err != nil {
		return polishResult{}, usage, eris.Wrapf(ErrMalformedResponse, "polish: %v", err)
	}
	if meta.Description == "" {
		meta.Description = outline.MetaDescription
	}
	if len(meta.Description) > 160 {
		meta.Description = model.TruncateOnRune(meta.Description, 157) + "..."
	}
	if len(meta.TargetKeywords) == 0 {
		meta.TargetKeywords = outline.TargetKeywords
	}
	return meta, usage, nil
}
