package models

import "time"

// SupportRole identifies the author of a support message.
type SupportRole string

const (
	RoleUser     SupportRole = "user"
	RoleOperator SupportRole = "operator"
)

// SupportMessage is one entry in the support conversation. Messages sent by
// the user are created optimistically client-side and reconciled against the
// server's authoritative list on the next poll; LocalID never leaves the
// client.
type SupportMessage struct {
	ID        string      `json:"id,omitempty"`
	LocalID   string      `json:"-"`
	Role      SupportRole `json:"role"`
	Text      string      `json:"message"`
	CreatedAt time.Time   `json:"created_at"`
	Read      bool        `json:"read"`
	Pending   bool        `json:"-"`
}
