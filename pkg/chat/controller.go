// Package chat owns the tool-augmented generation turn: one user prompt
// becomes a model call, a model-decided sequence of tool dispatches, and
// a streamed final answer.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/anthann/coffeechat/pkg/cart"
	"github.com/anthann/coffeechat/pkg/event"
	"github.com/anthann/coffeechat/pkg/logx"
	"github.com/anthann/coffeechat/pkg/model"
	"github.com/anthann/coffeechat/pkg/tool"
)

// ErrBusy rejects a submit while a turn is already in flight. The
// controller never interleaves generations; callers queue or retry.
var ErrBusy = errors.New("chat: a response is already in progress")

// ErrEmptyPrompt rejects blank submissions.
var ErrEmptyPrompt = errors.New("chat: prompt is empty")

const defaultMaxToolRounds = 8

// ConfigSource supplies the generation configuration current at submit
// time. Changing the returned value between turns forces a new session.
type ConfigSource func() GenerationConfig

// Controller drives one conversation against the model runtime.
type Controller struct {
	sessions *SessionManager
	registry *tool.Registry
	store    *cart.Store
	config   ConfigSource
	events   event.Sink

	maxToolRounds int

	mu         sync.Mutex
	messages   []Message
	responding bool
	lastErr    error
	cancel     context.CancelFunc
}

// NewController wires a controller. The cart store is held only so an
// explicit reset can empty it; no turn logic mutates it directly.
func NewController(sessions *SessionManager, registry *tool.Registry, store *cart.Store, config ConfigSource, events event.Sink) *Controller {
	return &Controller{
		sessions:      sessions,
		registry:      registry,
		store:         store,
		config:        config,
		events:        events,
		maxToolRounds: defaultMaxToolRounds,
	}
}

// Submit runs one complete turn for text and blocks until it finishes,
// is cancelled, or fails. Cancellation is not an error: the assistant
// message keeps whatever text had accumulated and Submit returns nil.
func (c *Controller) Submit(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyPrompt
	}

	c.mu.Lock()
	if c.responding {
		c.mu.Unlock()
		return ErrBusy
	}
	cfg := c.config()
	userMsg := newMessage(RoleUser, text)
	placeholder := newMessage(RoleAssistant, "")
	c.messages = append(c.messages, userMsg, placeholder)
	c.responding = true
	c.lastErr = nil
	turnCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()
	defer cancel()

	c.events.Emit(event.New(event.TypeUserMessage, event.MessageData{
		MessageID: userMsg.ID,
		Role:      string(RoleUser),
		Text:      text,
	}))

	err := c.runTurn(turnCtx, cfg, text)

	c.mu.Lock()
	c.responding = false
	c.cancel = nil
	if err != nil && !errors.Is(err, context.Canceled) {
		c.lastErr = err
	}
	c.mu.Unlock()

	switch {
	case err == nil:
		c.events.Emit(event.New(event.TypeTurnComplete, nil))
		return nil
	case errors.Is(err, context.Canceled):
		logx.Debug().Msg("turn cancelled")
		return nil
	default:
		logx.Error().Err(err).Msg("turn failed")
		c.events.Emit(event.New(event.TypeTurnError, event.ErrorData{Message: err.Error()}))
		return err
	}
}

// CancelActive cancels the in-flight turn, if any. Safe to call at any
// time.
func (c *Controller) CancelActive() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Reset cancels any active turn, clears the message log and the cart,
// and invalidates the session. This is the only path that empties the
// cart.
func (c *Controller) Reset() {
	c.CancelActive()
	c.mu.Lock()
	c.messages = nil
	c.lastErr = nil
	c.mu.Unlock()
	c.store.Clear()
	c.sessions.Invalidate()
	c.events.Emit(event.New(event.TypeReset, nil))
}

// Messages returns a copy of the ordered conversation log.
func (c *Controller) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Responding reports whether a turn is in flight.
func (c *Controller) Responding() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.responding
}

// Err returns the last turn failure, cleared on the next submit.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *Controller) runTurn(ctx context.Context, cfg GenerationConfig, prompt string) error {
	session, err := c.sessions.Ensure(ctx, cfg)
	if err != nil {
		return err
	}
	opts := model.Options{Temperature: cfg.Temperature}
	input := model.Input{Prompt: prompt}

	for round := 0; round < c.maxToolRounds; round++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		turn, err := c.callModel(ctx, session, input, opts, cfg.Streaming)
		if err != nil {
			return err
		}
		if len(turn.ToolCalls) == 0 {
			return nil
		}
		results, err := c.dispatchAll(ctx, turn.ToolCalls)
		if err != nil {
			return err
		}
		input = model.Input{ToolResults: results}
	}
	return fmt.Errorf("chat: model did not finish within %d tool rounds", c.maxToolRounds)
}

// callModel issues one session call. Streaming snapshots replace the
// placeholder's text in arrival order; the blocking path applies the
// complete content once.
func (c *Controller) callModel(ctx context.Context, session model.Session, input model.Input, opts model.Options, streaming bool) (*model.Turn, error) {
	if !streaming {
		turn, err := session.Respond(ctx, input, opts)
		if err != nil {
			return nil, err
		}
		if turn.Content != "" {
			c.replaceAssistantText(turn.Content)
		}
		return turn, nil
	}

	var final model.Turn
	sawFinal := false
	err := session.StreamRespond(ctx, input, opts, func(snap model.Snapshot) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if snap.Content != "" {
			c.replaceAssistantText(snap.Content)
		}
		if snap.Final {
			final = model.Turn{Content: snap.Content, ToolCalls: snap.ToolCalls}
			sawFinal = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !sawFinal {
		return nil, errors.New("chat: stream ended without a final snapshot")
	}
	return &final, nil
}

func (c *Controller) dispatchAll(ctx context.Context, calls []model.ToolCallRequest) ([]model.ToolCallResult, error) {
	results := make([]model.ToolCallResult, 0, len(calls))
	for _, call := range calls {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c.events.Emit(event.New(event.TypeToolCall, event.ToolCallData{
			Name:   call.Name,
			Params: call.Arguments,
		}))
		started := time.Now()
		text, err := c.registry.Dispatch(ctx, call.Name, call.Arguments)
		if err != nil {
			// Unknown tool or tool infrastructure failure: a
			// configuration defect, not model-correctable input.
			return nil, err
		}
		logx.Debug().Str("tool", call.Name).Dur("duration", time.Since(started)).Msg("tool dispatched")
		c.events.Emit(event.New(event.TypeToolResult, event.ToolResultData{
			Name:     call.Name,
			Output:   text,
			Duration: time.Since(started),
		}))
		results = append(results, model.ToolCallResult{
			ID:      call.ID,
			Name:    call.Name,
			Content: text,
		})
	}
	return results, nil
}

// replaceAssistantText overwrites the newest assistant message with a
// cumulative snapshot. Snapshots are full content, never deltas.
func (c *Controller) replaceAssistantText(text string) {
	var messageID string
	c.mu.Lock()
	for i := len(c.messages) - 1; i >= 0; i-- {
		if c.messages[i].Role == RoleAssistant {
			c.messages[i].Text = text
			messageID = c.messages[i].ID
			break
		}
	}
	c.mu.Unlock()
	c.events.Emit(event.New(event.TypeAssistantUpdate, event.MessageData{
		MessageID: messageID,
		Role:      string(RoleAssistant),
		Text:      text,
	}))
}
