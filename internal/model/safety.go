package model

// SafetyVerdict is the outcome of a safety check on a topic or a draft.
type SafetyVerdict struct {
	Safe       bool     `json:"safe"`
	Categories []string `json:"categories,omitempty"`
	Reason     string   `json:"reason,omitempty"`
	Confidence float64  `json:"confidence,omitempty"`
	// Issues itemizes content-check findings per section. Empty for topic
	// checks, which judge a single subject line.
	Issues []ContentIssue `json:"issues,omitempty"`
	// KeywordHit is true when the fast keyword path blocked the input
	// without a model call.
	KeywordHit bool `json:"keyword_hit,omitempty"`
}

// ContentIssue locates one restricted-content finding within a draft.
type ContentIssue struct {
	Section  string `json:"section"`
	Category string `json:"category"`
	Reason   string `json:"reason"`
}

// Blocked is a convenience inverse of Safe.
func (v SafetyVerdict) Blocked() bool { return !v.Safe }
