package model

import "time"

// TopicStatus represents the queue state of a topic.
type TopicStatus string

const (
	TopicStatusQueued     TopicStatus = "queued"
	TopicStatusTitled     TopicStatus = "titled"
	TopicStatusInProgress TopicStatus = "in-progress"
	TopicStatusPublished  TopicStatus = "published"
	TopicStatusSkipped    TopicStatus = "skipped"
)

// validTransitions is the authoritative transition table. The store validates
// every status patch against it; there is no other mutation path.
var validTransitions = map[TopicStatus][]TopicStatus{
	TopicStatusQueued:     {TopicStatusTitled, TopicStatusInProgress, TopicStatusSkipped},
	TopicStatusTitled:     {TopicStatusInProgress, TopicStatusSkipped},
	TopicStatusInProgress: {TopicStatusPublished, TopicStatusSkipped, TopicStatusQueued, TopicStatusTitled},
	// published and skipped are terminal.
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to TopicStatus) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves the given status.
func (s TopicStatus) IsTerminal() bool {
	return len(validTransitions[s]) == 0
}

// Valid reports whether the status is a known value.
func (s TopicStatus) Valid() bool {
	switch s {
	case TopicStatusQueued, TopicStatusTitled, TopicStatusInProgress,
		TopicStatusPublished, TopicStatusSkipped:
		return true
	}
	return false
}

// ArticleType categorizes the kind of article a topic produces.
type ArticleType string

const (
	ArticleTypeHowTo      ArticleType = "how-to"
	ArticleTypePillar     ArticleType = "pillar"
	ArticleTypeComparison ArticleType = "comparison"
	ArticleTypeSummary    ArticleType = "summary"
)

// Valid reports whether the article type is a known value.
func (t ArticleType) Valid() bool {
	switch t {
	case ArticleTypeHowTo, ArticleTypePillar, ArticleTypeComparison, ArticleTypeSummary:
		return true
	}
	return false
}

// Topic is a queued unit of work describing what article to produce.
// Priority is ascending: lower numbers are picked up first.
type Topic struct {
	ID             string      `json:"id"`
	PillarID       string      `json:"pillar_id"`
	Subject        string      `json:"subject"`
	ArticleType    ArticleType `json:"article_type"`
	TargetKeyword  string      `json:"target_keyword"`
	GeneratedTitle string      `json:"generated_title,omitempty"`
	Priority       int         `json:"priority"`
	Status         TopicStatus `json:"status"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// Pillar groups topics under a shared keyword strategy.
type Pillar struct {
	ID                string    `json:"id"`
	Title             string    `json:"title"`
	Slug              string    `json:"slug"`
	PrimaryKeywords   []string  `json:"primary_keywords"`
	SecondaryKeywords []string  `json:"secondary_keywords"`
	Active            bool      `json:"active"`
	CreatedAt         time.Time `json:"created_at"`
}
