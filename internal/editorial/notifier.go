// Package editorial escalates drafts that exhausted the review loop to a
// human editor through a Notion review database.
package editorial

import (
	"context"
	"strconv"
	"strings"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/courtline/content-cli/internal/model"
	"github.com/courtline/content-cli/pkg/notion"
)

// Notion caps a rich text run at 2000 characters.
const maxBlockChars = 1900

// Limit how much of a long draft lands in the review page. Editors get the
// opening, the full draft stays in the run record.
const maxDraftBlocks = 8

// Notifier files review escalations as pages in a Notion database.
type Notifier struct {
	client   notion.Client
	reviewDB string
}

func New(client notion.Client, reviewDB string) *Notifier {
	return &Notifier{client: client, reviewDB: reviewDB}
}

// EscalateReview creates a review page for a draft that ran out of rewrite
// attempts without passing.
func (n *Notifier) EscalateReview(ctx context.Context, topic model.Topic, review model.ReviewResult, draft string) error {
	if n.reviewDB == "" {
		return eris.New("editorial: review database not configured")
	}

	title := topic.GeneratedTitle
	if title == "" {
		title = topic.Subject
	}

	req := &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(n.reviewDB),
		},
		Properties: notionapi.Properties{
			"Name":     notionapi.TitleProperty{Title: notion.Text(title)},
			"Status":   notionapi.SelectProperty{Select: notionapi.Option{Name: "Needs review"}},
			"Score":    notionapi.NumberProperty{Number: float64(review.Score)},
			"Topic ID": notionapi.RichTextProperty{RichText: notion.Text(topic.ID)},
			"Keyword":  notionapi.RichTextProperty{RichText: notion.Text(topic.TargetKeyword)},
		},
		Children: buildBody(review, draft),
	}

	page, err := n.client.CreatePage(ctx, req)
	if err != nil {
		return eris.Wrap(err, "editorial: escalate review")
	}
	zap.L().Info("editorial: review escalated",
		zap.String("topic_id", topic.ID),
		zap.String("page_id", string(page.ID)),
		zap.Int("score", review.Score),
	)
	return nil
}

func buildBody(review model.ReviewResult, draft string) []notionapi.Block {
	blocks := []notionapi.Block{
		heading("Reviewer issues"),
	}
	if len(review.Issues) == 0 {
		blocks = append(blocks, paragraph("No specific issues reported."))
	}
	for _, issue := range review.Issues {
		blocks = append(blocks, bullet(issue))
	}
	if len(review.SectionsToRewrite) > 0 {
		blocks = append(blocks, bullet("Flagged sections: "+joinIndices(review.SectionsToRewrite)))
	}
	if review.Praise != "" {
		blocks = append(blocks, paragraph("Reviewer praise: "+review.Praise))
	}

	blocks = append(blocks, heading("Draft"))
	for i, chunk := range chunkText(draft, maxBlockChars) {
		if i == maxDraftBlocks {
			blocks = append(blocks, paragraph("[draft truncated, full text in the run record]"))
			break
		}
		blocks = append(blocks, paragraph(chunk))
	}
	return blocks
}

func heading(text string) notionapi.Block {
	return notionapi.Heading2Block{
		BasicBlock: notionapi.BasicBlock{Object: "block", Type: notionapi.BlockTypeHeading2},
		Heading2:   notionapi.Heading{RichText: notion.Text(text)},
	}
}

func paragraph(text string) notionapi.Block {
	return notionapi.ParagraphBlock{
		BasicBlock: notionapi.BasicBlock{Object: "block", Type: notionapi.BlockTypeParagraph},
		Paragraph:  notionapi.Paragraph{RichText: notion.Text(text)},
	}
}

func bullet(text string) notionapi.Block {
	return notionapi.BulletedListItemBlock{
		BasicBlock:       notionapi.BasicBlock{Object: "block", Type: notionapi.BlockTypeBulletedListItem},
		BulletedListItem: notionapi.ListItem{RichText: notion.Text(text)},
	}
}

// chunkText splits text on word boundaries into pieces of at most size runes.
func joinIndices(indices []int) string {
	parts := make([]string, len(indices))
	for i, n := range indices {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ", ")
}

func chunkText(text string, size int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var chunks []string
	for len(text) > size {
		cut := strings.LastIndexByte(text[:size], ' ')
		if cut <= 0 {
			cut = size
		}
		chunks = append(chunks, strings.TrimSpace(text[:cut]))
		text = strings.TrimSpace(text[cut:])
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}
