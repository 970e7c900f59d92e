package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"chatcore/model"
	"chatcore/provider/testutil"
)

func TestConvertToOllamaMessages(t *testing.T) {
	tests := []struct {
		name  string
		input []model.Message
		roles []string
	}{
		{
			name:  "empty slice",
			input: []model.Message{},
			roles: []string{},
		},
		{
			name:  "conversation",
			input: testutil.TestMessages(),
			roles: []string{"user", "assistant", "user"},
		},
		{
			name:  "tool exchange",
			input: testutil.ToolExchange(),
			roles: []string{"system", "user", "assistant", "tool"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ConvertToOllamaMessages(tt.input)
			if len(result) != len(tt.roles) {
				t.Fatalf("length mismatch: got %d, want %d", len(result), len(tt.roles))
			}
			for i, msg := range result {
				if msg.Role != tt.roles[i] {
					t.Errorf("message %d role: got %q, want %q", i, msg.Role, tt.roles[i])
				}
				if msg.Content != tt.input[i].Content {
					t.Errorf("message %d content: got %q, want %q", i, msg.Content, tt.input[i].Content)
				}
			}
		})
	}

	result := ConvertToOllamaMessages(testutil.ToolExchange())
	calls := result[2].ToolCalls
	if len(calls) != 1 || calls[0].Function.Name != "compute" {
		t.Fatalf("got tool calls %+v", calls)
	}
	if got := calls[0].Function.Arguments["query"]; got != "2+2" {
		t.Errorf("got argument %v, want 2+2", got)
	}
	if got := result[3].ToolName; got != "compute" {
		t.Errorf("tool message: got ToolName %q, want %q", got, "compute")
	}
	if got := result[2].ToolName; got != "" {
		t.Errorf("assistant message: got ToolName %q, want empty", got)
	}
}

func TestConvertToOpenAIMessages(t *testing.T) {
	result := ConvertToOpenAIMessages(testutil.ToolExchange())
	if len(result) != 4 {
		t.Fatalf("got %d messages, want 4", len(result))
	}

	if result[0].OfSystem == nil {
		t.Error("message 0 should be a system message")
	}
	if result[1].OfUser == nil {
		t.Error("message 1 should be a user message")
	}

	asst := result[2].OfAssistant
	if asst == nil {
		t.Fatal("message 2 should be an assistant message")
	}
	if len(asst.ToolCalls) != 1 || asst.ToolCalls[0].OfFunction == nil {
		t.Fatalf("assistant tool calls: got %+v", asst.ToolCalls)
	}
	fn := asst.ToolCalls[0].OfFunction
	if fn.ID != "call_1" || fn.Function.Name != "compute" || fn.Function.Arguments != `{"query":"2+2"}` {
		t.Errorf("got tool call %+v", fn)
	}

	tool := result[3].OfTool
	if tool == nil {
		t.Fatal("message 3 should be a tool message")
	}
	if tool.ToolCallID != "call_1" {
		t.Errorf("tool call id: got %q, want %q", tool.ToolCallID, "call_1")
	}
}

func TestConvertToAnthropicMessagesMergesToolResults(t *testing.T) {
	history := []model.Message{
		{Role: model.RoleSystem, Content: "be brief"},
		{Role: model.RoleUser, Content: "search twice"},
		{Role: model.RoleAssistant, Content: "On it.", ToolCalls: []model.ToolCall{
			{ID: "toolu_1", FunctionName: "search", RawArguments: `{"query":"a"}`},
			{ID: "toolu_2", FunctionName: "search", RawArguments: "not json"},
		}},
		{Role: model.RoleTool, ToolCallID: "toolu_1", Content: "a results"},
		{Role: model.RoleTool, ToolCallID: "toolu_2", Content: "b results"},
		{Role: model.RoleUser, Content: "thanks"},
	}

	messages, system := convertToAnthropicMessages(history)
	if len(system) != 1 || system[0].Text != "be brief" {
		t.Errorf("got system blocks %+v", system)
	}
	if len(messages) != 4 {
		t.Fatalf("got %d messages, want 4", len(messages))
	}
	if got := len(messages[1].Content); got != 3 {
		t.Errorf("assistant blocks: got %d, want 3", got)
	}
	if got := len(messages[2].Content); got != 2 {
		t.Errorf("merged tool results: got %d blocks, want 2", got)
	}
	if messages[2].Content[1].OfToolResult == nil || messages[2].Content[1].OfToolResult.ToolUseID != "toolu_2" {
		t.Errorf("second tool result: got %+v", messages[2].Content[1])
	}
}

func TestParseToolArguments(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int
	}{
		{"object", `{"query":"go","n":2}`, 2},
		{"empty string", "", 0},
		{"invalid", "{", 0},
		{"null", "null", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseToolArguments(tt.in)
			if got == nil {
				t.Fatal("expected non-nil map")
			}
			if len(got) != tt.want {
				t.Errorf("got %d keys, want %d", len(got), tt.want)
			}
		})
	}
}

func TestUpstreamErrorWrapping(t *testing.T) {
	if upstreamError("openai", nil) != nil {
		t.Error("nil error should stay nil")
	}

	err := upstreamError("openai", context.Canceled)
	var ue *model.UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("got %T, want *model.UpstreamError", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Error("cancellation should remain detectable")
	}

	already := &model.UpstreamError{Provider: "anthropic", Code: 500, Message: "boom"}
	if got := upstreamError("openai", fmt.Errorf("wrapped: %w", already)); !strings.Contains(got.Error(), "anthropic") {
		t.Errorf("existing upstream error should pass through, got %v", got)
	}
}
