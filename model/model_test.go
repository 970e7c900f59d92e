package model

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
)

func TestToolCallsRoundTrip(t *testing.T) {
	calls := []ToolCall{
		{ID: "c1", FunctionName: "search", RawArguments: `{"query":"cats"}`},
		{ID: "c2", FunctionName: "compute", RawArguments: `{"query":"2+2","extra":[1,2,{"x":null}]}`},
	}

	encoded, err := EncodeToolCalls(calls)
	if err != nil {
		t.Fatalf("EncodeToolCalls failed: %v", err)
	}
	decoded, err := DecodeToolCalls(encoded)
	if err != nil {
		t.Fatalf("DecodeToolCalls failed: %v", err)
	}
	if !reflect.DeepEqual(decoded, calls) {
		t.Errorf("got %+v, want %+v", decoded, calls)
	}
}

func TestEncodeToolCallsEmpty(t *testing.T) {
	encoded, err := EncodeToolCalls(nil)
	if err != nil {
		t.Fatalf("EncodeToolCalls failed: %v", err)
	}
	if encoded != "" {
		t.Errorf("got %q, want empty string", encoded)
	}
	decoded, err := DecodeToolCalls("")
	if err != nil || decoded != nil {
		t.Errorf("DecodeToolCalls(\"\") = %v, %v; want nil, nil", decoded, err)
	}
}

func TestNewResponse(t *testing.T) {
	if _, ok := NewResponse("hi", nil, UnknownUsage).(TextResponse); !ok {
		t.Error("expected TextResponse without tool calls")
	}
	r := NewResponse("", []ToolCall{{ID: "c1"}}, UnknownUsage)
	tc, ok := r.(ToolCallResponse)
	if !ok {
		t.Fatalf("expected ToolCallResponse, got %T", r)
	}
	msg := AssistantMessage("chat", tc)
	if msg.Role != RoleAssistant || len(msg.ToolCalls) != 1 || msg.ChatID != "chat" {
		t.Errorf("unexpected assistant message: %+v", msg)
	}
}

func TestUnknownUsage(t *testing.T) {
	if UnknownUsage.TokensIn.Known() || UnknownUsage.TokensOut.Known() {
		t.Error("unknown usage must not report known counters")
	}
	if !TokenCount(0).Known() {
		t.Error("zero is a known count")
	}
}

func TestToolFailureContent(t *testing.T) {
	tests := []struct {
		name string
		tool string
		err  error
		want string
	}{
		{
			name: "tool error",
			tool: "search",
			err:  &ToolExecutionError{ToolName: "search", Kind: ToolErrHTTPStatus, Cause: errors.New("HTTP 403")},
			want: "Unable to use search: HTTPStatus - HTTP 403",
		},
		{
			name: "wrapped tool error",
			tool: "compute",
			err:  fmt.Errorf("ctx: %w", &ToolExecutionError{ToolName: "compute", Cause: errors.New("boom")}),
			want: "Unable to use compute: ToolExecutionError - boom",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToolFailureContent(tt.tool, tt.err); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOnceStream(t *testing.T) {
	calls := 0
	s := OnceStream(func(yield func(Delta, error) bool) {
		calls++
		yield(Delta{Content: "a"}, nil)
	})

	for range s {
	}
	var gotErr error
	for _, err := range s {
		gotErr = err
	}
	if calls != 1 {
		t.Errorf("backend iterated %d times, want 1", calls)
	}
	if !errors.Is(gotErr, ErrStreamConsumed) {
		t.Errorf("got %v, want ErrStreamConsumed", gotErr)
	}
}

func TestToolDefinitionSchema(t *testing.T) {
	def := ToolDefinition{
		Name: "fetch",
		Parameters: []ToolParameter{
			{Name: "url", Type: "string", Required: true},
			{Name: "prompt", Type: "string", Required: true},
			{Name: "lang", Type: "string"},
		},
	}
	if got := def.RequiredParameters(); !reflect.DeepEqual(got, []string{"url", "prompt"}) {
		t.Errorf("got %v, want [url prompt]", got)
	}
	props := def.JSONSchema()["properties"].(map[string]any)
	if len(props) != 3 {
		t.Errorf("got %d properties, want 3", len(props))
	}
}
