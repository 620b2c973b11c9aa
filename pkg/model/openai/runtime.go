// Package openai adapts the official OpenAI SDK to the model runtime
// contract.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	modelpkg "github.com/anthann/coffeechat/pkg/model"
	"github.com/anthann/coffeechat/pkg/telemetry"
)

var _ modelpkg.Runtime = (*Runtime)(nil)

// Runtime creates OpenAI-backed sessions.
type Runtime struct {
	client    openaisdk.Client
	model     openaisdk.ChatModel
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
	return &Runtime{
		client:    openaisdk.NewClient(opts...),
		model:     openaisdk.ChatModel(model),
		maxTokens: maxTokens,
		hasKey:    strings.TrimSpace(apiKey) != "",
	}
}

// Availability reports whether the runtime is usable.
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
	s := &session{runtime: r, tools: toolParams}
	if strings.TrimSpace(instructions) != "" {
		s.transcript = append(s.transcript, buildSystemMessage(instructions))
	}
	return s, nil
}

type session struct {
	runtime    *Runtime
	tools      []openaisdk.ChatCompletionToolUnionParam
	transcript []openaisdk.ChatCompletionMessageParamUnion
	closed     bool
}

func (s *session) Respond(ctx context.Context, input modelpkg.Input, opts modelpkg.Options) (_ *modelpkg.Turn, err error) {
	if s.closed {
		return nil, errors.New("openai: session is closed")
	}
	ctx, span := telemetry.StartSpan(ctx, "model.openai.respond",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(telemetry.SanitizeAttributes(
			attribute.String("llm.provider", "openai"),
			attribute.String("llm.model", string(s.runtime.model)),
			attribute.Bool("llm.stream", false),
		)...),
	)
	defer telemetry.EndSpan(span, err)

	if err := s.appendInput(input); err != nil {
		return nil, err
	}
	completion, err := s.runtime.client.Chat.Completions.New(ctx, s.params(opts))
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, errors.New("openai: no choices in response")
	}
	message := completion.Choices[0].Message
	turn, err := turnFromMessage(message)
	if err != nil {
		return nil, err
	}
	s.transcript = append(s.transcript, assistantParam(turn))
	return turn, nil
}

func (s *session) StreamRespond(ctx context.Context, input modelpkg.Input, opts modelpkg.Options, cb modelpkg.StreamCallback) (err error) {
	if s.closed {
		return errors.New("openai: session is closed")
	}
	if cb == nil {
		return errors.New("openai: stream callback is required")
	}
	ctx, span := telemetry.StartSpan(ctx, "model.openai.stream_respond",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(telemetry.SanitizeAttributes(
			attribute.String("llm.provider", "openai"),
			attribute.String("llm.model", string(s.runtime.model)),
			attribute.Bool("llm.stream", true),
		)...),
	)
	defer telemetry.EndSpan(span, err)

	if err := s.appendInput(input); err != nil {
		return err
	}
	stream := s.runtime.client.Chat.Completions.NewStreaming(ctx, s.params(opts))
	defer stream.Close()

	acc := openaisdk.ChatCompletionAccumulator{}
	var cumulative strings.Builder
	for stream.Next() {
		chunk := stream.Current()
		if !acc.AddChunk(chunk) {
			return errors.New("openai: accumulate stream chunk failed")
		}
		if len(chunk.Choices) > 0 {
			if delta := chunk.Choices[0].Delta.Content; delta != "" {
				cumulative.WriteString(delta)
				if err := cb(modelpkg.Snapshot{Content: cumulative.String()}); err != nil {
					return err
				}
			}
		}
	}
	if err := stream.Err(); err != nil {
		return fmt.Errorf("openai: %w", err)
	}
	if len(acc.Choices) == 0 {
		return errors.New("openai: stream produced no choices")
	}
	turn, err := turnFromMessage(acc.Choices[0].Message)
	if err != nil {
		return err
	}
	s.transcript = append(s.transcript, assistantParam(turn))
	return cb(modelpkg.Snapshot{
		Content:   turn.Content,
		ToolCalls: turn.ToolCalls,
		Final:     true,
	})
}

func (s *session) Close() error {
	s.closed = true
	s.transcript = nil
	return nil
}

func (s *session) params(opts modelpkg.Options) openaisdk.ChatCompletionNewParams {
	params := openaisdk.ChatCompletionNewParams{
		Messages:    append([]openaisdk.ChatCompletionMessageParamUnion(nil), s.transcript...),
		Model:       s.runtime.model,
		Temperature: openaisdk.Float(opts.Temperature),
	}
	if s.runtime.maxTokens > 0 {
		params.MaxTokens = openaisdk.Int(int64(s.runtime.maxTokens))
	}
	if len(s.tools) > 0 {
		params.Tools = s.tools
	}
	return params
}

func (s *session) appendInput(input modelpkg.Input) error {
	if len(input.ToolResults) > 0 {
		for _, result := range input.ToolResults {
			id := strings.TrimSpace(result.ID)
			if id == "" {
				return errors.New("openai: tool result missing tool_call_id")
			}
			s.transcript = append(s.transcript, openaisdk.ToolMessage(result.Content, id))
		}
		return nil
	}
	s.transcript = append(s.transcript, buildUserMessage(input.Prompt))
	return nil
}
