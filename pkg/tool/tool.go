// Package tool defines the named callable units the model may invoke and
// the registry that dispatches its requests.
package tool

import "context"

// Tool is a named unit the model can call. Execute returns result text
// for the model context; domain validation failures are folded into that
// text so the model can self-correct, and the error return is reserved
// for infrastructure faults.
type Tool interface {
	Name() string
	Description() string
	Schema() *JSONSchema
	Execute(ctx context.Context, params map[string]any) (*Result, error)
}

// Result carries the text fed back into the model context.
type Result struct {
	Text string
}

// JSONSchema is the subset of JSON Schema needed to describe tool
// arguments to a model runtime.
type JSONSchema struct {
	Type        string                 `json:"type"`
	Description string                 `json:"description,omitempty"`
	Properties  map[string]*JSONSchema `json:"properties,omitempty"`
	Required    []string               `json:"required,omitempty"`
	Enum        []any                  `json:"enum,omitempty"`
	Minimum     *float64               `json:"minimum,omitempty"`
}

// AsMap renders the schema as the loosely-typed map model adapters expect.
func (s *JSONSchema) AsMap() map[string]any {
	if s == nil {
		return map[string]any{"type": "object"}
	}
	out := map[string]any{"type": s.Type}
	if s.Description != "" {
		out["description"] = s.Description
	}
	if len(s.Properties) > 0 {
		props := make(map[string]any, len(s.Properties))
		for name, prop := range s.Properties {
			props[name] = prop.AsMap()
		}
		out["properties"] = props
	}
	if len(s.Required) > 0 {
		required := make([]any, 0, len(s.Required))
		for _, name := range s.Required {
			required = append(required, name)
		}
		out["required"] = required
	}
	if len(s.Enum) > 0 {
		out["enum"] = append([]any(nil), s.Enum...)
	}
	if s.Minimum != nil {
		out["minimum"] = *s.Minimum
	}
	return out
}

// Descriptor is the registry's export of a tool for session creation.
type Descriptor struct {
	Name        string
	Description string
	InputSchema map[string]any
}
