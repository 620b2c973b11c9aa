package chat

import (
	"context"
	"sync"

	"github.com/anthann/coffeechat/pkg/model"
	"github.com/anthann/coffeechat/pkg/tool"
)

// GenerationConfig is the configuration a session is bound to. Any
// change to it invalidates the live session; a fresh one is created on
// the next submit.
type GenerationConfig struct {
	Instructions string
	Temperature  float64
	Streaming    bool
}

// SessionManager holds at most one live model session.
type SessionManager struct {
	mu       sync.Mutex
	runtime  model.Runtime
	registry *tool.Registry

	session model.Session
	cfg     GenerationConfig
}

// NewSessionManager wires a manager over runtime and the tool registry.
func NewSessionManager(runtime model.Runtime, registry *tool.Registry) *SessionManager {
	return &SessionManager{runtime: runtime, registry: registry}
}

// Ensure returns the held session when cfg is unchanged since its
// creation, otherwise closes it and creates a new one bound to the
// current tool set and cfg.
func (m *SessionManager) Ensure(ctx context.Context, cfg GenerationConfig) (model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session != nil && m.cfg == cfg {
		return m.session, nil
	}
	if m.session != nil {
		_ = m.session.Close()
		m.session = nil
	}
	if avail := m.runtime.Availability(ctx); !avail.Available() {
		return nil, &model.UnavailableError{Reason: avail.Reason}
	}
	descriptors := m.registry.Descriptors()
	tools := make([]model.ToolDescriptor, 0, len(descriptors))
	for _, d := range descriptors {
		tools = append(tools, model.ToolDescriptor{
			Name:        d.Name,
			Description: d.Description,
			InputSchema: d.InputSchema,
		})
	}
	session, err := m.runtime.CreateSession(ctx, cfg.Instructions, tools)
	if err != nil {
		return nil, err
	}
	m.session = session
	m.cfg = cfg
	return session, nil
}

// Invalidate drops the held session. It does not cancel in-flight
// generation; callers cancel first.
func (m *SessionManager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session != nil {
		_ = m.session.Close()
		m.session = nil
	}
	m.cfg = GenerationConfig{}
}
