package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/anthann/coffeechat/pkg/telemetry"
)

// ErrUnknownTool reports a dispatch for a name no tool is registered
// under. This is a configuration defect, not model-correctable input,
// so it is returned as an error instead of result text.
var ErrUnknownTool = errors.New("tool: unknown tool")

// Registry holds the tool set handed to the model at session creation.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool, rejecting nil tools, empty names, and duplicates.
func (r *Registry) Register(t Tool) error {
	if t == nil {
		return errors.New("tool: tool is nil")
	}
	name := strings.TrimSpace(t.Name())
	if name == "" {
		return errors.New("tool: tool name is empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool: %s already registered", name)
	}
	r.tools[name] = t
	r.order = append(r.order, name)
	return nil
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	return t, nil
}

// List returns the registered tools in registration order.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Descriptors exports name, description, and argument schema for every
// registered tool, in registration order.
func (r *Registry) Descriptors() []Descriptor {
	tools := r.List()
	out := make([]Descriptor, 0, len(tools))
	for _, t := range tools {
		out = append(out, Descriptor{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: t.Schema().AsMap(),
		})
	}
	return out
}

// Dispatch executes the named tool and returns its result text. The only
// dispatch-level failures are ErrUnknownTool and tool infrastructure
// errors; validation outcomes arrive inside the text.
func (r *Registry) Dispatch(ctx context.Context, name string, params map[string]any) (_ string, err error) {
	ctx, span := telemetry.StartSpan(ctx, "tool.dispatch",
		trace.WithAttributes(telemetry.SanitizeAttributes(
			attribute.String("tool.name", name),
		)...),
	)
	defer telemetry.EndSpan(span, err)

	t, err := r.Get(name)
	if err != nil {
		return "", err
	}
	started := time.Now()
	res, err := t.Execute(ctx, params)
	span.SetAttributes(attribute.Int64("tool.duration_ms", time.Since(started).Milliseconds()))
	if err != nil {
		return "", fmt.Errorf("tool: execute %s: %w", name, err)
	}
	if res == nil {
		return "", fmt.Errorf("tool: %s returned no result", name)
	}
	return res.Text, nil
}
