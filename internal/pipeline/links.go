package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/courtline/content-cli/internal/model"
	"github.com/courtline/content-cli/pkg/anthropic"
)

const linkMaxTokens = 8192

// linkCatalogLimit caps how many existing articles go into the linking
// prompt. The newest articles are the most likely link targets.
const linkCatalogLimit = 100

// internalMarker matches the [INTERNAL: topic] placeholders the draft stage
// plants for later resolution.
var internalMarker = regexp.MustCompile(`\[INTERNAL:\s*[^\]]+\]`)

type internalLink struct {
	AnchorText  string `json:"anchorText"`
	TargetSlug  string `json:"targetSlug"`
	TargetTitle string `json:"targetTitle"`
}

// linkResult carries the rewritten body and the link bookkeeping.
type linkResult struct {
	Content    string         `json:"content"`
	LinksAdded []internalLink `json:"linksAdded"`
	Unresolved []string       `json:"unresolved"`
}

// linkInternal resolves the draft's placeholders against the published
// catalog and adds a few more links where they fit, rewriting article.Body.
// With nothing to link to, placeholders are stripped without spending tokens.
func (p *Pipeline) linkInternal(ctx context.Context, article *model.Article) (anthropic.TokenUsage, error) {
	existing, err := p.store.ListArticles(ctx, linkCatalogLimit)
	if err != nil {
		return anthropic.TokenUsage{}, eris.Wrap(err, "pipeline: list articles for linking")
	}

	catalog := make([]model.Article, 0, len(existing))
	for _, a := range existing {
		if a.Slug != article.Slug {
			catalog = append(catalog, a)
		}
	}
	if len(catalog) == 0 {
		article.Body = stripInternalMarkers(article.Body)
		return anthropic.TokenUsage{}, nil
	}

	prompt := fmt.Sprintf(`You add internal links to a pickleball blog article.

Article (slug %q):
%s

Published articles to link to:
%s

Tasks:
1. Replace every [INTERNAL: topic] placeholder with a markdown link to the
   best matching article: [anchor text](/posts/slug). If none fits, remove
   the placeholder.
2. Add 2-4 more links where a published article is genuinely relevant.
3. Anchor text must read naturally in the sentence; never "click here".
4. Never link the same article twice, and never link the article to itself.

Respond with only a JSON object:
{"content": "the full article body with links added",
 "linksAdded": [{"anchorText": "...", "targetSlug": "...", "targetTitle": "..."}],
 "unresolved": ["placeholders that had no match"]}`,
		article.Slug, article.Body, formatLinkCatalog(catalog))

	text, usage, err := p.complete(ctx, p.cfg.Anthropic.HaikuModel, linkMaxTokens, "", prompt)
	if err != nil {
		return usage, eris.Wrap(err, "pipeline: link")
	}

	var res linkResult
	if err := json.Unmarshal([]byte(anthropic.CleanJSON(text)), &res); err != nil {
		return usage, eris.Wrapf(ErrMalformedResponse, "link: %v", err)
	}
	if strings.TrimSpace(res.Content) == "" {
		return usage, eris.Wrap(ErrMalformedResponse, "link: empty content")
	}

	article.Body = stripInternalMarkers(res.Content)
	zap.L().Info("pipeline: internal links added",
		zap.String("slug", article.Slug),
		zap.Int("links", len(res.LinksAdded)),
		zap.Int("unresolved", len(res.Unresolved)),
	)
	return usage, nil
}

func formatLinkCatalog(articles []model.Article) string {
	var b strings.Builder
	for _, a := range articles {
		fmt.Fprintf(&b, "- %s (slug: %s)", a.Title, a.Slug)
		if a.MetaDescription != "" {
			b.WriteString(": " + a.MetaDescription)
		}
		if len(a.Tags) > 0 {
			b.WriteString(" [" + strings.Join(a.Tags, ", ") + "]")
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// stripInternalMarkers removes placeholders that survived linking, so they
// never reach a published page.
func stripInternalMarkers(body string) string {
	return internalMarker.ReplaceAllString(body, "")
}
