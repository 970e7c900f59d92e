package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Valid reports whether r is one of the four known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool:
		return true
	}
	return false
}

// Chat is a conversation header. Messages are owned by the chat and are
// removed with it.
type Chat struct {
	ID           string
	Title        string
	CreatedAt    time.Time
	LastAccessed time.Time
}

// Message is a single entry in a chat history.
//
// Empty Content, Name and ToolCallID are treated as absent and persisted as
// NULL. ToolCallID is only set on RoleTool messages and matches the ID of a
// ToolCall emitted by an earlier assistant message in the same chat.
type Message struct {
	ID         int64
	ChatID     string
	Role       Role
	Content    string
	Name       string
	ToolCallID string
	ToolCalls  []ToolCall
	CreatedAt  time.Time
}

// HasToolCalls reports whether the message requests any tool invocation.
func (m Message) HasToolCalls() bool {
	return len(m.ToolCalls) > 0
}

// ToolCall is a tool invocation requested by the model. RawArguments is the
// JSON-encoded argument object exactly as the provider returned it.
type ToolCall struct {
	ID           string `json:"id"`
	FunctionName string `json:"functionName"`
	RawArguments string `json:"rawArguments"`
}

// EncodeToolCalls serializes tool calls for storage. An empty list encodes
// to the empty string, which callers store as NULL.
func EncodeToolCalls(calls []ToolCall) (string, error) {
	if len(calls) == 0 {
		return "", nil
	}
	data, err := json.Marshal(calls)
	if err != nil {
		return "", fmt.Errorf("encode tool calls: %w", err)
	}
	return string(data), nil
}

// DecodeToolCalls is the inverse of EncodeToolCalls.
func DecodeToolCalls(data string) ([]ToolCall, error) {
	if data == "" {
		return nil, nil
	}
	var calls []ToolCall
	if err := json.Unmarshal([]byte(data), &calls); err != nil {
		return nil, fmt.Errorf("decode tool calls: %w", err)
	}
	return calls, nil
}
