package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/google/uuid"
	"github.com/ollama/ollama/api"
	"github.com/openai/openai-go/v3"

	"chatcore/model"
)

// ConvertToOpenAIMessages converts a history to OpenAI chat messages.
//
// Assistant messages keep their tool calls and tool messages reference
// the call they answer, so the model sees the full exchange.
func ConvertToOpenAIMessages(messages []model.Message) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case model.RoleSystem:
			result = append(result, openai.SystemMessage(msg.Content))
		case model.RoleAssistant:
			if !msg.HasToolCalls() {
				result = append(result, openai.AssistantMessage(msg.Content))
				continue
			}
			asst := openai.ChatCompletionAssistantMessageParam{}
			if msg.Content != "" {
				asst.Content.OfString = openai.String(msg.Content)
			}
			for _, tc := range msg.ToolCalls {
				asst.ToolCalls = append(asst.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
					OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
						ID: tc.ID,
						Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
							Name:      tc.FunctionName,
							Arguments: tc.RawArguments,
						},
					},
				})
			}
			result = append(result, openai.ChatCompletionMessageParamUnion{OfAssistant: &asst})
		case model.RoleTool:
			result = append(result, openai.ToolMessage(msg.Content, msg.ToolCallID))
		default:
			result = append(result, openai.UserMessage(msg.Content))
		}
	}

	return result
}

// convertToAnthropicMessages converts a history to Anthropic format.
// System messages are returned as separate blocks. Consecutive tool
// results are merged into one user turn.
func convertToAnthropicMessages(messages []model.Message) ([]anthropic.MessageParam, []anthropic.TextBlockParam) {
	var systemBlocks []anthropic.TextBlockParam
	result := make([]anthropic.MessageParam, 0, len(messages))
	lastWasToolResult := false

	for _, msg := range messages {
		switch msg.Role {
		case model.RoleSystem:
			systemBlocks = append(systemBlocks, anthropic.TextBlockParam{Text: msg.Content})
			lastWasToolResult = false

		case model.RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, rawArguments(tc.RawArguments), tc.FunctionName))
			}
			if len(blocks) == 0 {
				blocks = append(blocks, anthropic.NewTextBlock(""))
			}
			result = append(result, anthropic.NewAssistantMessage(blocks...))
			lastWasToolResult = false

		case model.RoleTool:
			block := anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, false)
			if lastWasToolResult {
				last := &result[len(result)-1]
				last.Content = append(last.Content, block)
				continue
			}
			result = append(result, anthropic.NewUserMessage(block))
			lastWasToolResult = true

		default:
			result = append(result, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
			lastWasToolResult = false
		}
	}

	return result, systemBlocks
}

// ConvertToOllamaMessages converts a history to Ollama messages. Tool
// results carry the name of the tool that produced them.
func ConvertToOllamaMessages(messages []model.Message) []api.Message {
	result := make([]api.Message, len(messages))
	for i, msg := range messages {
		result[i] = api.Message{
			Role:      string(msg.Role),
			Content:   msg.Content,
			ToolCalls: toOllamaToolCalls(msg.ToolCalls),
		}
		if msg.Role == model.RoleTool {
			result[i].ToolName = msg.Name
		}
	}
	return result
}

func toOllamaToolCalls(calls []model.ToolCall) []api.ToolCall {
	if len(calls) == 0 {
		return nil
	}
	result := make([]api.ToolCall, len(calls))
	for i, call := range calls {
		result[i] = api.ToolCall{
			Function: api.ToolCallFunction{
				Name:      call.FunctionName,
				Arguments: ParseToolArguments(call.RawArguments),
			},
		}
	}
	return result
}

// fromOllamaToolCalls converts Ollama tool calls. Ollama assigns no call
// ids, so one is generated per call.
func fromOllamaToolCalls(calls []api.ToolCall) []model.ToolCall {
	if len(calls) == 0 {
		return nil
	}
	result := make([]model.ToolCall, len(calls))
	for i, call := range calls {
		args, err := json.Marshal(call.Function.Arguments)
		if err != nil {
			args = []byte("{}")
		}
		result[i] = model.ToolCall{
			ID:           "call_" + uuid.NewString(),
			FunctionName: call.Function.Name,
			RawArguments: string(args),
		}
	}
	return result
}

// extractAnthropicToolCalls collects the tool_use blocks of a message.
func extractAnthropicToolCalls(content []anthropic.ContentBlockUnion) (string, []model.ToolCall) {
	var text string
	var calls []model.ToolCall

	for _, block := range content {
		switch v := block.AsAny().(type) {
		case anthropic.TextBlock:
			text += v.Text
		case anthropic.ToolUseBlock:
			calls = append(calls, model.ToolCall{
				ID:           v.ID,
				FunctionName: v.Name,
				RawArguments: string(v.Input),
			})
		}
	}

	return text, calls
}

// ParseToolArguments parses JSON arguments into a map. Invalid or empty
// input yields an empty map.
func ParseToolArguments(argsJSON string) map[string]any {
	var args map[string]any
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil || args == nil {
		return make(map[string]any)
	}
	return args
}

func rawArguments(raw string) json.RawMessage {
	if !json.Valid([]byte(raw)) {
		return json.RawMessage("{}")
	}
	return json.RawMessage(raw)
}

// knownUsage builds a Usage from counters the backend reported.
func knownUsage(in, out int64) model.Usage {
	return model.Usage{TokensIn: model.TokenCount(in), TokensOut: model.TokenCount(out)}
}

// upstreamError maps an SDK or transport error to *model.UpstreamError.
func upstreamError(provider string, err error) error {
	if err == nil {
		return nil
	}

	var upstream *model.UpstreamError
	if errors.As(err, &upstream) {
		return err
	}

	ue := &model.UpstreamError{Provider: provider, Message: err.Error(), Err: err}

	var openaiErr *openai.Error
	var anthropicErr *anthropic.Error
	var ollamaErr api.StatusError
	switch {
	case errors.As(err, &openaiErr):
		ue.Code = openaiErr.StatusCode
		ue.Message = statusMessage(openaiErr.StatusCode, openaiErr.Message)
	case errors.As(err, &anthropicErr):
		ue.Code = anthropicErr.StatusCode
		ue.Message = statusMessage(anthropicErr.StatusCode, "")
	case errors.As(err, &ollamaErr):
		ue.Code = ollamaErr.StatusCode
		ue.Message = statusMessage(ollamaErr.StatusCode, ollamaErr.ErrorMessage)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		ue.Message = err.Error()
	}

	return ue
}

func statusMessage(code int, msg string) string {
	if msg != "" {
		return msg
	}
	if text := http.StatusText(code); text != "" {
		return text
	}
	return "unexpected status"
}
