// Package ingest loads topic backlogs from editor-maintained spreadsheets.
package ingest

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/courtline/content-cli/internal/model"
)

// Expected column order. A header row is detected and skipped automatically.
//
//	subject | article_type | target_keyword | priority | pillar_id
const (
	colSubject = iota
	colArticleType
	colKeyword
	colPriority
	colPillarID
	minColumns = 3
)

// Options configures the spreadsheet reader.
type Options struct {
	SheetIndex int    // default 0
	SheetName  string // if set, overrides SheetIndex
}

// ReadTopicsXLSX reads topics from a spreadsheet. Rows that cannot form a
// valid topic are reported in skipped and left out rather than failing the
// whole import.
func ReadTopicsXLSX(path string, opts Options) (topics []model.Topic, skipped int, err error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, 0, eris.Wrap(err, "ingest: open xlsx")
	}

	sheet, err := pickSheet(f, opts)
	if err != nil {
		return nil, 0, err
	}

	for i, row := range sheet.Rows {
		cells := rowToStrings(row)
		if i == 0 && isHeader(cells) {
			continue
		}
		if isEmpty(cells) {
			continue
		}

		topic, ok := parseRow(cells)
		if !ok {
			zap.L().Warn("ingest: skipping malformed row",
				zap.Int("row", i+1),
				zap.Strings("cells", cells),
			)
			skipped++
			continue
		}
		topics = append(topics, topic)
	}
	return topics, skipped, nil
}

func pickSheet(f *xlsx.File, opts Options) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("ingest: sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}
	if opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("ingest: sheet index %d out of range (%d sheets)", opts.SheetIndex, len(f.Sheets))
	}
	return f.Sheets[opts.SheetIndex], nil
}

func rowToStrings(row *xlsx.Row) []string {
	out := make([]string, len(row.Cells))
	for i, cell := range row.Cells {
		out[i] = strings.TrimSpace(cell.String())
	}
	return out
}

func isHeader(cells []string) bool {
	return len(cells) > 0 && strings.EqualFold(cells[colSubject], "subject")
}

func isEmpty(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}

func parseRow(cells []string) (model.Topic, bool) {
	if len(cells) < minColumns {
		return model.Topic{}, false
	}

	subject := cells[colSubject]
	articleType := model.ArticleType(strings.ToLower(cells[colArticleType]))
	keyword := strings.ToLower(cells[colKeyword])
	if subject == "" || keyword == "" || !articleType.Valid() {
		return model.Topic{}, false
	}

	priority := 3
	if len(cells) > colPriority && cells[colPriority] != "" {
		p, err := strconv.Atoi(cells[colPriority])
		if err != nil || p < 1 || p > 5 {
			return model.Topic{}, false
		}
		priority = p
	}

	pillarID := ""
	if len(cells) > colPillarID {
		pillarID = cells[colPillarID]
	}

	return model.Topic{
		ID:            uuid.NewString(),
		PillarID:      pillarID,
		Subject:       subject,
		ArticleType:   articleType,
		TargetKeyword: keyword,
		Priority:      priority,
		Status:        model.TopicStatusQueued,
	}, true
}
