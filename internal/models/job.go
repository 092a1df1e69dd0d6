package models

import "time"

// JobStatus represents the backend processing state for a job.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// CanTransition reports whether a job may move from s to next. Transitions
// are monotonic: completed and failed have no outgoing edges.
func (s JobStatus) CanTransition(next JobStatus) bool {
	if s.Terminal() {
		return false
	}
	switch s {
	case JobPending:
		return next == JobProcessing || next == JobCompleted || next == JobFailed
	case JobProcessing:
		return next == JobCompleted || next == JobFailed
	}
	return false
}

// Job records one processing run for a project. ProjectID is a weak
// reference; the project may have been deleted since.
type Job struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Status    JobStatus `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
