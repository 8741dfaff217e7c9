package model

import "time"

// RunStatus is the lifecycle state of one generation run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusPublished RunStatus = "published"
	RunStatusSkipped   RunStatus = "skipped"
	RunStatusFailed    RunStatus = "failed"
)

// Run is the audit record of a single topic generation attempt. A topic that
// fails and is requeued accumulates multiple runs.
type Run struct {
	ID        string            `json:"id"`
	TopicID   string            `json:"topic_id"`
	Status    RunStatus         `json:"status"`
	Result    *GenerationResult `json:"result,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}
