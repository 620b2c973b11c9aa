// Package event carries the chat turn updates consumed by UI observers.
package event

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Type labels one kind of chat update.
type Type string

const (
	// TypeUserMessage announces an accepted user prompt.
	TypeUserMessage Type = "user_message"
	// TypeAssistantUpdate replaces the in-progress assistant text with a
	// cumulative snapshot.
	TypeAssistantUpdate Type = "assistant_update"
	TypeToolCall        Type = "tool_call"
	TypeToolResult      Type = "tool_result"
	TypeTurnComplete    Type = "turn_complete"
	TypeTurnError       Type = "turn_error"
	TypeReset           Type = "reset"
)

var knownTypes = map[Type]struct{}{
	TypeUserMessage:     {},
	TypeAssistantUpdate: {},
	TypeToolCall:        {},
	TypeToolResult:      {},
	TypeTurnComplete:    {},
	TypeTurnError:       {},
	TypeReset:           {},
}

// Event is a single update pushed to observers.
type Event struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
}

// New builds an event with ID and timestamp populated.
func New(typ Type, data any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      typ,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// Validate checks the event against the closed type set.
func (e Event) Validate() error {
	if e.Type == "" {
		return errors.New("event: type is empty")
	}
	if _, ok := knownTypes[e.Type]; !ok {
		return fmt.Errorf("event: unknown type %q", e.Type)
	}
	return nil
}

// MessageData describes a chat message update.
type MessageData struct {
	MessageID string `json:"message_id"`
	Role      string `json:"role"`
	Text      string `json:"text"`
}

// ToolCallData describes a model-requested tool invocation.
type ToolCallData struct {
	Name   string         `json:"name"`
	Params map[string]any `json:"params,omitempty"`
}

// ToolResultData describes the text a tool returned to the model.
type ToolResultData struct {
	Name     string        `json:"name"`
	Output   string        `json:"output,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
}

// ErrorData carries a one-line user-visible turn failure.
type ErrorData struct {
	Message string `json:"message"`
}

// Sink consumes events. A nil Sink is valid and drops everything.
type Sink func(Event)

// Emit forwards evt when the sink is non-nil.
func (s Sink) Emit(evt Event) {
	if s != nil {
		s(evt)
	}
}
