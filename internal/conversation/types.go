package conversation

import "errors"

// Role tags a turn as spoken by the user or by the assistant.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in a conversation. Turns are immutable once appended.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

var ErrNotFound = errors.New("conversation not found")
