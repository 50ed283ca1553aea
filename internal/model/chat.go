package model

import "time"

// ChatRole identifies the author of a conversation turn.
type ChatRole string

// Chat role constants.
const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
	RoleSystem    ChatRole = "system"
)

// ChatMessage is one turn in the advisor conversation. The conversation is
// an ordered, append-only sequence; the advisor holds no memory of its own
// and receives the full prior sequence on every call.
type ChatMessage struct {
	Timestamp time.Time
	ID        string
	Role      ChatRole
	Content   string
}
