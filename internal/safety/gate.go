package safety

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/courtline/content-cli/internal/model"
	"github.com/courtline/content-cli/pkg/anthropic"
)

const verdictMaxTokens = 512

// keywordConfidence is reported for fast-path blocks. Substring matches are
// blunt, so the confidence stays well below a model verdict's certainty.
const keywordConfidence = 0.6

// Gate runs the two-phase content safety check: a keyword fast path against
// the taxonomy, then a model classification for anything the keywords miss.
// The gate fails closed: an unparseable model verdict blocks the input.
type Gate struct {
	client          anthropic.Client
	model           string
	tax             Taxonomy
	maxContentChars int
	disabled        bool
}

// Option configures a Gate.
type Option func(*Gate)

// WithMaxContentChars bounds how much of a draft is sent to the model check.
func WithMaxContentChars(n int) Option {
	return func(g *Gate) {
		if n > 0 {
			g.maxContentChars = n
		}
	}
}

// WithDisabled turns the gate into a pass-through. For local development only.
func WithDisabled(disabled bool) Option {
	return func(g *Gate) { g.disabled = disabled }
}

// NewGate creates a Gate using the given model for the classification phase.
func NewGate(client anthropic.Client, modelID string, tax Taxonomy, opts ...Option) *Gate {
	g := &Gate{
		client:          client,
		model:           modelID,
		tax:             tax,
		maxContentChars: 8000,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// CheckTopic screens a topic before any generation spend. The returned error
// is non-nil only for transport failures; a blocked verdict is not an error.
func (g *Gate) CheckTopic(ctx context.Context, subject, keyword string) (model.SafetyVerdict, anthropic.TokenUsage, error) {
	if g.disabled {
		return model.SafetyVerdict{Safe: true}, anthropic.TokenUsage{}, nil
	}

	// Phase 1: keyword fast path, no model call.
	if hits := g.tax.Match(subject + " " + keyword); len(hits) > 0 {
		zap.L().Info("safety: keyword block",
			zap.String("subject", subject),
			zap.Strings("categories", hits),
		)
		return model.SafetyVerdict{
			Safe:       false,
			Categories: hits,
			Reason:     "restricted keyword match",
			Confidence: keywordConfidence,
			KeywordHit: true,
		}, anthropic.TokenUsage{}, nil
	}

	// Phase 2: model classification.
	prompt := fmt.Sprintf(`You are a content safety classifier for a recreational pickleball blog.
Assess whether an article on this topic could stray into restricted territory.

Topic: %s
Target keyword: %s

Restricted categories: %s

Respond with only a JSON object:
{"safe": true|false, "categories": ["..."], "reason": "...", "confidence": 0.0-1.0}`,
		subject, keyword, strings.Join(g.tax.Names(), ", "))

	return g.classify(ctx, prompt)
}

// CheckContent screens a finished draft before publication. Only the first
// maxContentChars characters are sent; restricted content in an article
// written from a clean outline surfaces early.
func (g *Gate) CheckContent(ctx context.Context, content string) (model.SafetyVerdict, anthropic.TokenUsage, error) {
	if g.disabled {
		return model.SafetyVerdict{Safe: true}, anthropic.TokenUsage{}, nil
	}

	excerpt := model.TruncateOnRune(content, g.maxContentChars)

	// Phase 1: keyword fast path, no model call.
	if hits := g.tax.Match(excerpt); len(hits) > 0 {
		zap.L().Info("safety: content keyword block", zap.Strings("categories", hits))
		issues := make([]model.ContentIssue, len(hits))
		for i, hit := range hits {
			issues[i] = model.ContentIssue{Category: hit, Reason: "restricted keyword match"}
		}
		return model.SafetyVerdict{
			Safe:       false,
			Categories: hits,
			Reason:     "restricted keyword match",
			Confidence: keywordConfidence,
			KeywordHit: true,
			Issues:     issues,
		}, anthropic.TokenUsage{}, nil
	}

	// Phase 2: model classification.
	prompt := fmt.Sprintf(`You are a content safety classifier for a recreational pickleball blog.
Review this article excerpt for restricted content.

Restricted categories: %s

Article excerpt:
%s

Respond with only a JSON object. List one issue per offending passage, with
the nearest section heading.
{"safe": true|false, "categories": ["..."], "reason": "...", "confidence": 0.0-1.0,
 "issues": [{"section": "...", "category": "...", "reason": "..."}]}`,
		strings.Join(g.tax.Names(), ", "), excerpt)

	return g.classify(ctx, prompt)
}

func (g *Gate) classify(ctx context.Context, prompt string) (model.SafetyVerdict, anthropic.TokenUsage, error) {
	resp, err := g.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     g.model,
		MaxTokens: verdictMaxTokens,
		Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return model.SafetyVerdict{Safe: false}, anthropic.TokenUsage{}, eris.Wrap(err, "safety: classify")
	}

	text := anthropic.CleanJSON(anthropic.TextContent(resp))
	var verdict model.SafetyVerdict
	if err := json.Unmarshal([]byte(text), &verdict); err != nil {
		// Fail closed: an unreadable verdict blocks the input.
		zap.L().Warn("safety: unparseable verdict, blocking",
			zap.String("raw", text),
			zap.Error(err),
		)
		return model.SafetyVerdict{
			Safe:   false,
			Reason: "safety verdict unparseable",
		}, resp.Usage, nil
	}

	return verdict, resp.Usage, nil
}
