// Package anthropic adapts the official Anthropic SDK to the model
// runtime contract.
package anthropic

import (
	"context"
	"errors"
	"strings"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	modelpkg "github.com/anthann/coffeechat/pkg/model"
	"github.com/anthann/coffeechat/pkg/telemetry"
)

const defaultMaxTokens = 2048

var _ modelpkg.Runtime = (*Runtime)(nil)

// Runtime creates Anthropic-backed sessions.
type Runtime struct {
	client    *anthropicsdk.Client
	model     anthropicsdk.Model
	maxTokens int
	hasKey    bool
}

// NewRuntime wires a runtime for the given API key and model name.
func NewRuntime(apiKey, model string, maxTokens int) *Runtime {
	return NewRuntimeWithBaseURL(apiKey, model, "", maxTokens)
}

// NewRuntimeWithBaseURL additionally overrides the API base URL.
func NewRuntimeWithBaseURL(apiKey, model, baseURL string, maxTokens int) *Runtime {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := anthropicsdk.NewClient(opts...)
	return &Runtime{
		client:    &client,
		model:     anthropicsdk.Model(model),
		maxTokens: maxTokens,
		hasKey:    strings.TrimSpace(apiKey) != "",
	}
}

// Availability reports whether the runtime is usable. A missing API key
// maps to the feature-disabled reason.
func (r *Runtime) Availability(_ context.Context) modelpkg.Availability {
	if !r.hasKey {
		return modelpkg.MarkUnavailable(modelpkg.ReasonFeatureDisabled)
	}
	return modelpkg.MarkAvailable()
}

// CreateSession binds instructions and tools to a fresh transcript.
func (r *Runtime) CreateSession(_ context.Context, instructions string, tools []modelpkg.ToolDescriptor) (modelpkg.Session, error) {
	toolParams, err := convertTools(tools)
	if err != nil {
		return nil, err
	}
	return &session{
		runtime: r,
		system:  instructions,
		tools:   toolParams,
	}, nil
}

type session struct {
	runtime    *Runtime
	system     string
	tools      []anthropicsdk.ToolUnionParam
	transcript []anthropicsdk.MessageParam
	closed     bool
}

func (s *session) Respond(ctx context.Context, input modelpkg.Input, opts modelpkg.Options) (_ *modelpkg.Turn, err error) {
	if s.closed {
		return nil, errors.New("anthropic: session is closed")
	}
	ctx, span := telemetry.StartSpan(ctx, "model.anthropic.respond",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(telemetry.SanitizeAttributes(
			attribute.String("llm.provider", "anthropic"),
			attribute.String("llm.model", string(s.runtime.model)),
			attribute.Bool("llm.stream", false),
		)...),
	)
	defer telemetry.EndSpan(span, err)

	s.appendInput(input)
	message, err := s.runtime.client.Messages.New(ctx, s.params(opts))
	if err != nil {
		return nil, wrapSDKError(err)
	}
	s.transcript = append(s.transcript, message.ToParam())
	return turnFromMessage(*message), nil
}

func (s *session) StreamRespond(ctx context.Context, input modelpkg.Input, opts modelpkg.Options, cb modelpkg.StreamCallback) (err error) {
	if s.closed {
		return errors.New("anthropic: session is closed")
	}
	if cb == nil {
		return errors.New("anthropic: stream callback is required")
	}
	ctx, span := telemetry.StartSpan(ctx, "model.anthropic.stream_respond",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(telemetry.SanitizeAttributes(
			attribute.String("llm.provider", "anthropic"),
			attribute.String("llm.model", string(s.runtime.model)),
			attribute.Bool("llm.stream", true),
		)...),
	)
	defer telemetry.EndSpan(span, err)

	s.appendInput(input)
	stream := s.runtime.client.Messages.NewStreaming(ctx, s.params(opts))

	message := anthropicsdk.Message{}
	var cumulative strings.Builder
	for stream.Next() {
		event := stream.Current()
		if err := message.Accumulate(event); err != nil {
			return wrapSDKError(err)
		}
		switch delta := event.AsAny().(type) {
		case anthropicsdk.ContentBlockDeltaEvent:
			if text, ok := delta.Delta.AsAny().(anthropicsdk.TextDelta); ok {
				cumulative.WriteString(text.Text)
				if err := cb(modelpkg.Snapshot{Content: cumulative.String()}); err != nil {
					return err
				}
			}
		}
	}
	if err := stream.Err(); err != nil {
		return wrapSDKError(err)
	}

	s.transcript = append(s.transcript, message.ToParam())
	final := turnFromMessage(message)
	return cb(modelpkg.Snapshot{
		Content:   final.Content,
		ToolCalls: final.ToolCalls,
		Final:     true,
	})
}

func (s *session) Close() error {
	s.closed = true
	s.transcript = nil
	return nil
}

func (s *session) params(opts modelpkg.Options) anthropicsdk.MessageNewParams {
	maxTokens := s.runtime.maxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	params := anthropicsdk.MessageNewParams{
		Model:     s.runtime.model,
		MaxTokens: int64(maxTokens),
		Messages:  append([]anthropicsdk.MessageParam(nil), s.transcript...),
		// Anthropic accepts temperature in [0, 1]; the configurable range
		// is [0, 2], so clamp.
		Temperature: anthropicsdk.Float(clampTemperature(opts.Temperature)),
	}
	if trimmed := strings.TrimSpace(s.system); trimmed != "" {
		params.System = []anthropicsdk.TextBlockParam{{Text: s.system}}
	}
	if len(s.tools) > 0 {
		params.Tools = s.tools
	}
	return params
}

func (s *session) appendInput(input modelpkg.Input) {
	if len(input.ToolResults) > 0 {
		blocks := make([]anthropicsdk.ContentBlockParamUnion, 0, len(input.ToolResults))
		for _, result := range input.ToolResults {
			blocks = append(blocks, anthropicsdk.ContentBlockParamUnion{
				OfToolResult: &anthropicsdk.ToolResultBlockParam{
					ToolUseID: result.ID,
					Content: []anthropicsdk.ToolResultBlockParamContentUnion{
						{OfText: &anthropicsdk.TextBlockParam{Text: result.Content}},
					},
				},
			})
		}
		s.transcript = append(s.transcript, anthropicsdk.MessageParam{
			Role:    anthropicsdk.MessageParamRoleUser,
			Content: blocks,
		})
		return
	}
	prompt := input.Prompt
	if prompt == "" {
		// The API rejects empty content.
		prompt = "."
	}
	s.transcript = append(s.transcript, anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(prompt)))
}

func clampTemperature(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}
