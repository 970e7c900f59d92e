package model

// TokenCount is a usage counter reported by a provider. UnknownTokens
// marks a counter the backend did not report.
type TokenCount int64

const UnknownTokens TokenCount = -1

// Known reports whether the backend reported this counter.
func (c TokenCount) Known() bool {
	return c >= 0
}

// Usage holds the token counters of one generation call.
type Usage struct {
	TokensIn  TokenCount
	TokensOut TokenCount
}

// UnknownUsage is the usage of a call that reported no counters.
var UnknownUsage = Usage{TokensIn: UnknownTokens, TokensOut: UnknownTokens}

// Response is the result of a non-streaming generation call. It is either
// a TextResponse or a ToolCallResponse.
type Response interface {
	isResponse()
	ResponseUsage() Usage
}

// TextResponse is a final free-text answer.
type TextResponse struct {
	Content string
	Usage   Usage
}

// ToolCallResponse asks the caller to run one or more tools. Content holds
// any text the model emitted alongside the calls.
type ToolCallResponse struct {
	Content   string
	ToolCalls []ToolCall
	Usage     Usage
}

func (TextResponse) isResponse()     {}
func (ToolCallResponse) isResponse() {}

func (r TextResponse) ResponseUsage() Usage     { return r.Usage }
func (r ToolCallResponse) ResponseUsage() Usage { return r.Usage }

// NewResponse picks the variant from the presence of tool calls.
func NewResponse(content string, calls []ToolCall, usage Usage) Response {
	if len(calls) > 0 {
		return ToolCallResponse{Content: content, ToolCalls: calls, Usage: usage}
	}
	return TextResponse{Content: content, Usage: usage}
}

// AssistantMessage converts a response into the assistant message to persist.
func AssistantMessage(chatID string, r Response) Message {
	msg := Message{ChatID: chatID, Role: RoleAssistant}
	switch v := r.(type) {
	case TextResponse:
		msg.Content = v.Content
	case ToolCallResponse:
		msg.Content = v.Content
		msg.ToolCalls = v.ToolCalls
	}
	return msg
}

// Delta is one incremental fragment of a streamed response. The final
// delta of a stream has Done set and carries the finalized tool calls and
// usage, if any.
type Delta struct {
	Content   string
	ToolCalls []ToolCall
	Usage     Usage
	Done      bool
}
