package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/courtline/content-cli/internal/model"
	"github.com/courtline/content-cli/pkg/anthropic"
)

const draftMaxTokens = 8192

// writeDraft produces the full article body in markdown from the outline.
func (p *Pipeline) writeDraft(ctx context.Context, topic model.Topic, outline *model.Outline) (string, anthropic.TokenUsage, error) {
	target := model.WordTargets[topic.ArticleType]

	prompt := fmt.Sprintf(`Write a complete article in markdown following this outline exactly.

Title: %s
Target keyword: %s (use naturally, do not stuff)
Target length: %d-%d words

Outline:
%s

Where a closely related technique deserves its own article, mark it inline
as [INTERNAL: topic]. At most one marker per section; they become links later.
Write only the article body in markdown. Do not repeat the title as a heading.`,
		outline.Title, topic.TargetKeyword, target.Min, target.Max,
		formatOutline(outline))

	text, usage, err := p.complete(ctx, p.draftModel(topic), draftMaxTokens, p.style.SystemPrompt(), prompt)
	if err != nil {
		return "", usage, eris.Wrap(err, "pipeline: draft")
	}

	draft := strings.TrimSpace(text)
	if draft == "" {
		return "", usage, eris.Wrap(ErrMalformedResponse, "empty draft")
	}
	return draft, usage, nil
}

// rewriteDraft revises a draft against the reviewer's findings. The original
// outline stays in the prompt so a rewrite cannot drift off-structure.
func (p *Pipeline) rewriteDraft(ctx context.Context, topic model.Topic, outline *model.Outline, draft string, review model.ReviewResult) (string, anthropic.TokenUsage, error) {
	prompt := fmt.Sprintf(`An editor reviewed your draft and it did not pass.
Revise the article to address every issue. Keep the outline structure and target keyword usage.
%s%s
Title: %s
Target keyword: %s

Editor score: %d/100
Issues:
%s

Outline:
%s

Current draft:
%s

Write only the revised article body in markdown.`,
		sectionFocus(outline, review.SectionsToRewrite), praiseNote(review.Praise),
		outline.Title, topic.TargetKeyword, review.Score,
		bulletList(review.Issues),
		formatOutline(outline), draft)

	text, usage, err := p.complete(ctx, p.draftModel(topic), draftMaxTokens, p.style.SystemPrompt(), prompt)
	if err != nil {
		return "", usage, eris.Wrap(err, "pipeline: rewrite")
	}

	revised := strings.TrimSpace(text)
	if revised == "" {
		return "", usage, eris.Wrap(ErrMalformedResponse, "empty rewrite")
	}
	return revised, usage, nil
}

func formatOutline(outline *model.Outline) string {
	var b strings.Builder
	for _, section := range outline.Sections {
		b.WriteString("## " + section.Heading + "\n")
		for _, point := range section.Points {
			b.WriteString("- " + point + "\n")
		}
	}
	return b.String()
}

// sectionFocus names the outline sections the reviewer flagged for rework.
// Indices outside the outline are ignored.
func sectionFocus(outline *model.Outline, indices []int) string {
	var headings []string
	for _, i := range indices {
		if i >= 0 && i < len(outline.Sections) {
			headings = append(headings, outline.Sections[i].Heading)
		}
	}
	if len(headings) == 0 {
		return ""
	}
	return fmt.Sprintf("Focus the revision on these sections: %s.\n", strings.Join(headings, "; "))
}

func praiseNote(praise string) string {
	if strings.TrimSpace(praise) == "" {
		return "Preserve the parts of the draft that already work; do not rewrite passing sections.\n"
	}
	return fmt.Sprintf("The editor praised: %s. Preserve those elements unchanged.\n", praise)
}

func bulletList(items []string) string {
	if len(items) == 0 {
		return "- (none)"
	}
	var b strings.Builder
	for _, item := range items {
		b.WriteString("- " + item + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
