package model

// ReviewStatus is the verdict of an editorial review pass.
type ReviewStatus string

const (
	ReviewPass ReviewStatus = "PASS"
	ReviewFail ReviewStatus = "FAIL"
)

// ReviewResult is the structured output of a review pass. Status is always
// recomputed locally from Score against the passing threshold; the model's
// self-reported verdict is advisory only.
type ReviewResult struct {
	Status ReviewStatus `json:"status"`
	Score  int          `json:"score"`
	Issues []string     `json:"issues"`
	// SectionsToRewrite holds zero-based outline section indices the
	// reviewer flagged. Empty means the whole draft.
	SectionsToRewrite []int  `json:"sectionsToRewrite"`
	Praise            string `json:"praise"`
}

// Passed reports whether the score meets or exceeds the passing threshold.
func (r ReviewResult) Passed(passingScore int) bool {
	return r.Score >= passingScore
}

// Normalize clamps the score into [0, 100] and recomputes Status from it.
func (r *ReviewResult) Normalize(passingScore int) {
	if r.Score < 0 {
		r.Score = 0
	}
	if r.Score > 100 {
		r.Score = 100
	}
	if r.Passed(passingScore) {
		r.Status = ReviewPass
	} else {
		r.Status = ReviewFail
	}
}

// Outline is the structural plan a draft is written against.
type Outline struct {
	Title           string           `json:"title"`
	MetaDescription string           `json:"description"`
	TargetKeywords  []string         `json:"targetKeywords"`
	Sections        []OutlineSection `json:"sections"`
}

// OutlineSection is a single heading with the points it must cover.
type OutlineSection struct {
	Heading string   `json:"heading"`
	Points  []string `json:"points"`
}
