package model

import "time"

// Stage names used in per-attempt metrics and failure reporting.
const (
	StageDedup       = "dedup"
	StageSafetyTopic = "safety-topic"
	StageOutline     = "outline"
	StageDraft       = "draft"
	StageReview      = "review"
	StageRewrite     = "rewrite"
	StagePolish      = "polish"
	StageSafetyFinal = "safety-final"
	StageLink        = "link"
	StageImage       = "image"
	StagePersist     = "persist"
)

// GenerationAttempt records one model call (or skipped equivalent) within a run.
type GenerationAttempt struct {
	Stage        string        `json:"stage"`
	Model        string        `json:"model,omitempty"`
	Duration     time.Duration `json:"duration"`
	InputTokens  int64         `json:"input_tokens"`
	OutputTokens int64         `json:"output_tokens"`
	CostUSD      float64       `json:"cost_usd"`
	Status       string        `json:"status"` // "ok" or "error"
	Error        string        `json:"error,omitempty"`
}

// GenerationMetrics aggregates everything a run consumed, whether or not the
// run succeeded. Metrics are always populated up to the point of failure.
type GenerationMetrics struct {
	Attempts     []GenerationAttempt `json:"attempts"`
	ReviewPasses int                 `json:"review_passes"`
	Rewrites     int                 `json:"rewrites"`
	FinalScore   int                 `json:"final_score"`
	TotalCostUSD float64             `json:"total_cost_usd"`
	StartedAt    time.Time           `json:"started_at"`
	FinishedAt   time.Time           `json:"finished_at"`
}

// Record appends an attempt and folds its cost into the total.
func (m *GenerationMetrics) Record(a GenerationAttempt) {
	m.Attempts = append(m.Attempts, a)
	m.TotalCostUSD += a.CostUSD
}

// TotalTokens sums input and output tokens across all attempts.
func (m *GenerationMetrics) TotalTokens() (in, out int64) {
	for _, a := range m.Attempts {
		in += a.InputTokens
		out += a.OutputTokens
	}
	return in, out
}

// Outcome is the terminal disposition of one topic run.
type Outcome string

const (
	OutcomePublished Outcome = "published"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
)

// FailureKind classifies why a run failed.
type FailureKind string

const (
	FailSafetyBlocked   FailureKind = "safety_blocked"
	FailParseError      FailureKind = "parse_error"
	FailServiceError    FailureKind = "service_error"
	FailReviewExhausted FailureKind = "review_exhausted"
)

// StageFailure pins a failure to the stage that produced it.
type StageFailure struct {
	Stage   string      `json:"stage"`
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
	Issues  []string    `json:"issues,omitempty"`
}

// GenerationResult is what a single topic run yields. Exactly one of Article
// or Failure is set unless the outcome is a skip, where both are nil.
type GenerationResult struct {
	TopicID    string            `json:"topic_id"`
	Outcome    Outcome           `json:"outcome"`
	SkipReason string            `json:"skip_reason,omitempty"`
	Article    *Article          `json:"article,omitempty"`
	Failure    *StageFailure     `json:"failure,omitempty"`
	Metrics    GenerationMetrics `json:"metrics"`
}
