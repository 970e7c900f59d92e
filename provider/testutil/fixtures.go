package testutil

import (
	"chatcore/model"
)

// TestMessages returns a sample conversation for testing
func TestMessages() []model.Message {
	return []model.Message{
		{Role: model.RoleUser, Content: "Hello, how are you?"},
		{Role: model.RoleAssistant, Content: "I'm doing well, thank you!"},
		{Role: model.RoleUser, Content: "Can you help me with a task?"},
	}
}

// ToolExchange returns a history ending in a tool result.
func ToolExchange() []model.Message {
	return []model.Message{
		{Role: model.RoleSystem, Content: "You are helpful."},
		{Role: model.RoleUser, Content: "What is 2+2?"},
		{Role: model.RoleAssistant, ToolCalls: []model.ToolCall{
			{ID: "call_1", FunctionName: "compute", RawArguments: `{"query":"2+2"}`},
		}},
		{Role: model.RoleTool, Name: "compute", ToolCallID: "call_1", Content: "4"},
	}
}

// TestTools returns sample tool definitions for testing
func TestTools() []model.ToolDefinition {
	return []model.ToolDefinition{
		{
			Name:        "search",
			Description: "Search the web",
			Parameters: []model.ToolParameter{
				{Name: "query", Type: "string", Description: "Search terms", Required: true},
			},
		},
		{
			Name:        "compute",
			Description: "Evaluate a mathematical expression",
			Parameters: []model.ToolParameter{
				{Name: "query", Type: "string", Description: "The expression", Required: true},
			},
		},
	}
}

// Settings returns generation settings for provider/modelID.
func Settings(provider, modelID string) model.GenerationSettings {
	return model.GenerationSettings{
		Provider:         provider,
		Model:            modelID,
		Credential:       "test-key",
		Temperature:      1,
		TopP:             1,
		ToolsEnabled:     true,
		StreamingEnabled: false,
	}
}

// StreamOf returns a stream yielding each chunk as a delta followed by a
// final Done delta with unknown usage.
func StreamOf(chunks ...string) model.Stream {
	return model.OnceStream(func(yield func(model.Delta, error) bool) {
		for _, c := range chunks {
			if !yield(model.Delta{Content: c}, nil) {
				return
			}
		}
		yield(model.Delta{Done: true, Usage: model.UnknownUsage}, nil)
	})
}

// FailingStream yields the chunks and then err.
func FailingStream(err error, chunks ...string) model.Stream {
	return model.OnceStream(func(yield func(model.Delta, error) bool) {
		for _, c := range chunks {
			if !yield(model.Delta{Content: c}, nil) {
				return
			}
		}
		yield(model.Delta{}, err)
	})
}

// ToolCallResponse builds a single tool call response.
func ToolCallResponse(id, name, args string) model.Response {
	return model.ToolCallResponse{
		ToolCalls: []model.ToolCall{{ID: id, FunctionName: name, RawArguments: args}},
		Usage:     model.UnknownUsage,
	}
}
