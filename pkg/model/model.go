// Package model defines the contract between the chat core and a
// language-model runtime. The runtime is an opaque capability: sessions
// are created with instructions and a tool set, and each turn either
// answers directly or requests tool calls for the caller to execute.
package model

import "context"

// Runtime is an inference backend capable of hosting sessions.
type Runtime interface {
	// CreateSession binds instructions and a tool set to a new session.
	// The session owns its own transcript.
	CreateSession(ctx context.Context, instructions string, tools []ToolDescriptor) (Session, error)
	// Availability reports whether the runtime can serve requests.
	Availability(ctx context.Context) Availability
}

// Session is one bound conversation with the model. Implementations are
// stateful and not safe for concurrent use; the chat controller
// guarantees a single outstanding call.
type Session interface {
	// Respond issues input and blocks for the model's complete turn.
	Respond(ctx context.Context, input Input, opts Options) (*Turn, error)
	// StreamRespond issues input and delivers cumulative snapshots via cb
	// in arrival order. The snapshot sequence is finite and not
	// restartable; a context cancellation stops it without a final
	// snapshot.
	StreamRespond(ctx context.Context, input Input, opts Options, cb StreamCallback) error
	// Close releases the session. The session must not be used afterward.
	Close() error
}

// Input is one submission to a session: either a user prompt or the
// results of the tool calls the previous turn requested.
type Input struct {
	Prompt      string
	ToolResults []ToolCallResult
}

// Options are the per-call generation parameters.
type Options struct {
	Temperature float64
}

// Turn is the model's complete output for one call: final content, or
// one or more tool-call requests to satisfy before the answer.
type Turn struct {
	Content   string
	ToolCalls []ToolCallRequest
}

// ToolCallRequest is a structured request emitted by the model asking
// the host to run a named tool.
type ToolCallRequest struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// ToolCallResult carries a tool's text back into the model context.
// Success and failure are both encoded in the text; there is no
// structured error channel toward the model.
type ToolCallResult struct {
	ID      string
	Name    string
	Content string
}

// ToolDescriptor describes one callable unit at session creation.
type ToolDescriptor struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// StreamCallback consumes snapshots produced by StreamRespond.
type StreamCallback func(Snapshot) error

// Snapshot is one streamed update. Content is cumulative: it holds the
// full text generated so far, so consumers replace rather than append.
// The snapshot with Final set carries any tool-call requests.
type Snapshot struct {
	Content   string
	ToolCalls []ToolCallRequest
	Final     bool
}
