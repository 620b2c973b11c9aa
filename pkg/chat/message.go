package chat

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry in the append-only conversation log. While a
// response streams, the newest assistant message has its Text replaced
// with each cumulative snapshot.
type Message struct {
	ID        string
	Role      Role
	Text      string
	CreatedAt time.Time
}

func newMessage(role Role, text string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
}
