package openai

import (
	"encoding/json"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go/v3"

	modelpkg "github.com/anthann/coffeechat/pkg/model"
)

func buildSystemMessage(content string) openaisdk.ChatCompletionMessageParamUnion {
	msg := openaisdk.ChatCompletionSystemMessageParam{}
	msg.Content.OfString = openaisdk.String(content)
	return openaisdk.ChatCompletionMessageParamUnion{OfSystem: &msg}
}

func buildUserMessage(content string) openaisdk.ChatCompletionMessageParamUnion {
	msg := openaisdk.ChatCompletionUserMessageParam{}
	msg.Content.OfString = openaisdk.String(content)
	return openaisdk.ChatCompletionMessageParamUnion{OfUser: &msg}
}

func assistantParam(turn *modelpkg.Turn) openaisdk.ChatCompletionMessageParamUnion {
	asst := openaisdk.ChatCompletionAssistantMessageParam{}
	if turn.Content != "" || len(turn.ToolCalls) == 0 {
		asst.Content.OfString = openaisdk.String(turn.Content)
	}
	for _, call := range turn.ToolCalls {
		asst.ToolCalls = append(asst.ToolCalls, openaisdk.ChatCompletionMessageToolCallUnionParam{
			OfFunction: &openaisdk.ChatCompletionMessageFunctionToolCallParam{
				ID: call.ID,
				Function: openaisdk.ChatCompletionMessageFunctionToolCallFunctionParam{
					Name:      call.Name,
					Arguments: encodeArguments(call.Arguments),
				},
			},
		})
	}
	return openaisdk.ChatCompletionMessageParamUnion{OfAssistant: &asst}
}

func convertTools(tools []modelpkg.ToolDescriptor) ([]openaisdk.ChatCompletionToolUnionParam, error) {
	if len(tools) == 0 {
		return nil, nil
	}
	out := make([]openaisdk.ChatCompletionToolUnionParam, 0, len(tools))
	for idx, desc := range tools {
		name := strings.TrimSpace(desc.Name)
		if name == "" {
			return nil, fmt.Errorf("openai: tools[%d]: missing name", idx)
		}
		def := openaisdk.FunctionDefinitionParam{Name: name}
		if strings.TrimSpace(desc.Description) != "" {
			def.Description = openaisdk.String(desc.Description)
		}
		if len(desc.InputSchema) > 0 {
			def.Parameters = openaisdk.FunctionParameters(desc.InputSchema)
		}
		out = append(out, openaisdk.ChatCompletionToolUnionParam{
			OfFunction: &openaisdk.ChatCompletionFunctionToolParam{Function: def},
		})
	}
	return out, nil
}

func turnFromMessage(msg openaisdk.ChatCompletionMessage) (*modelpkg.Turn, error) {
	content := msg.Content
	if content == "" && strings.TrimSpace(msg.Refusal) != "" {
		content = msg.Refusal
	}
	turn := &modelpkg.Turn{Content: content}
	for idx, call := range msg.ToolCalls {
		fn := call.AsFunction()
		name := strings.TrimSpace(fn.Function.Name)
		if name == "" {
			return nil, fmt.Errorf("openai: tool_calls[%d]: missing function name", idx)
		}
		args, err := decodeArguments(fn.Function.Arguments)
		if err != nil {
			return nil, fmt.Errorf("openai: tool_calls[%d]: %w", idx, err)
		}
		turn.ToolCalls = append(turn.ToolCalls, modelpkg.ToolCallRequest{
			ID:        fn.ID,
			Name:      name,
			Arguments: args,
		})
	}
	return turn, nil
}

func encodeArguments(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}
	data, err := json.Marshal(args)
	if err != nil {
		return "{}"
	}
	return string(data)
}

func decodeArguments(raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("decode arguments: %w", err)
	}
	return args, nil
}
