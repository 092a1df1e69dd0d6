package models

// StatusType classifies an ActionStatus for the view layer.
type StatusType string

const (
	StatusSuccess StatusType = "success"
	StatusError   StatusType = "error"
)

// ActionStatus is the outcome of a user-triggered workflow action. Errors
// are surfaced next to the triggering action; they never escalate past this
// object.
type ActionStatus struct {
	Type     StatusType `json:"type"`
	Message  string     `json:"message"`
	Progress int        `json:"progress,omitempty"` // 0-100
}

// OK reports whether the action succeeded.
func (s ActionStatus) OK() bool { return s.Type == StatusSuccess }

// Success builds a success status.
func Success(message string, progress int) ActionStatus {
	return ActionStatus{Type: StatusSuccess, Message: message, Progress: progress}
}

// Failure builds an error status.
func Failure(message string) ActionStatus {
	return ActionStatus{Type: StatusError, Message: message}
}
