package anthropic

import (
	"encoding/json"
	"fmt"
	"strings"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"

	modelpkg "github.com/anthann/coffeechat/pkg/model"
)

func convertTools(tools []modelpkg.ToolDescriptor) ([]anthropicsdk.ToolUnionParam, error) {
	if len(tools) == 0 {
		return nil, nil
	}
	out := make([]anthropicsdk.ToolUnionParam, 0, len(tools))
	for _, desc := range tools {
		name := strings.TrimSpace(desc.Name)
		if name == "" {
			continue
		}
		schema, err := convertSchema(desc.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("anthropic: convert schema for %s: %w", name, err)
		}
		tool := anthropicsdk.ToolParam{
			Name:        name,
			InputSchema: schema,
		}
		if strings.TrimSpace(desc.Description) != "" {
			tool.Description = anthropicsdk.String(desc.Description)
		}
		out = append(out, anthropicsdk.ToolUnionParam{OfTool: &tool})
	}
	return out, nil
}

func convertSchema(raw map[string]any) (anthropicsdk.ToolInputSchemaParam, error) {
	if len(raw) == 0 {
		return anthropicsdk.ToolInputSchemaParam{Type: "object"}, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return anthropicsdk.ToolInputSchemaParam{}, fmt.Errorf("marshal schema: %w", err)
	}
	var schema anthropicsdk.ToolInputSchemaParam
	if err := json.Unmarshal(data, &schema); err != nil {
		return anthropicsdk.ToolInputSchemaParam{}, fmt.Errorf("unmarshal schema: %w", err)
	}
	if schema.Type == "" {
		schema.Type = "object"
	}
	return schema, nil
}

func turnFromMessage(msg anthropicsdk.Message) *modelpkg.Turn {
	var textParts []string
	var calls []modelpkg.ToolCallRequest
	for _, block := range msg.Content {
		switch content := block.AsAny().(type) {
		case anthropicsdk.TextBlock:
			textParts = append(textParts, content.Text)
		case anthropicsdk.ToolUseBlock:
			calls = append(calls, modelpkg.ToolCallRequest{
				ID:        content.ID,
				Name:      content.Name,
				Arguments: decodeToolInput(content.Input),
			})
		}
	}
	return &modelpkg.Turn{
		Content:   strings.Join(textParts, "\n"),
		ToolCalls: calls,
	}
}

func decodeToolInput(raw json.RawMessage) map[string]any {
	if len(raw) == 0 {
		return map[string]any{}
	}
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return map[string]any{}
	}
	switch typed := value.(type) {
	case map[string]any:
		return typed
	default:
		return map[string]any{"value": typed}
	}
}

func wrapSDKError(err error) error {
	return fmt.Errorf("anthropic: %w", err)
}
