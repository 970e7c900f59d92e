package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"chatcore/model"
	"chatcore/provider/testutil"
)

func newOllamaTestServer(t *testing.T, models []string, handler http.HandlerFunc) *OllamaProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	p, err := NewOllamaProvider(Config{BaseURL: server.URL, Models: models})
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestOllamaGenerateToolCalls(t *testing.T) {
	var body map[string]any
	p := newOllamaTestServer(t, nil, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path: got %q", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"model":"llama3.1:latest","created_at":"2024-01-01T00:00:00Z",`+
			`"message":{"role":"assistant","content":"","tool_calls":[{"function":{"name":"search","arguments":{"query":"go"}}}]},`+
			`"done":true,"prompt_eval_count":7,"eval_count":3}`+"\n")
	})

	resp, err := p.Generate(context.Background(), testutil.TestMessages(), testutil.Settings("ollama", "llama3.1:latest"), testutil.TestTools())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	calls, ok := resp.(model.ToolCallResponse)
	if !ok {
		t.Fatalf("got %T, want ToolCallResponse", resp)
	}
	tc := calls.ToolCalls[0]
	if !strings.HasPrefix(tc.ID, "call_") {
		t.Errorf("generated id: got %q", tc.ID)
	}
	if tc.FunctionName != "search" || tc.RawArguments != `{"query":"go"}` {
		t.Errorf("got %+v", tc)
	}
	if calls.Usage.TokensIn != 7 || calls.Usage.TokensOut != 3 {
		t.Errorf("got usage %+v", calls.Usage)
	}
	if body["stream"] != false {
		t.Errorf("stream flag: got %v", body["stream"])
	}
	if tools, _ := body["tools"].([]any); len(tools) != 2 {
		t.Errorf("got %d tools, want 2", len(tools))
	}
}

func TestOllamaDropsToolsForUnsupportedModels(t *testing.T) {
	var body map[string]any
	p := newOllamaTestServer(t, []string{"gemma2:9b"}, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&body)
		fmt.Fprint(w, `{"model":"gemma2:9b","message":{"role":"assistant","content":"hi"},"done":true}`+"\n")
	})

	resp, err := p.Generate(context.Background(), testutil.TestMessages(), testutil.Settings("ollama", "gemma2:9b"), testutil.TestTools())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if _, ok := resp.(model.TextResponse); !ok {
		t.Errorf("got %T, want TextResponse", resp)
	}
	if _, ok := body["tools"]; ok {
		t.Error("tools should not be sent to a model without tool support")
	}
}

func TestOllamaGenerateStream(t *testing.T) {
	p := newOllamaTestServer(t, nil, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		lines := []string{
			`{"model":"llama3.1:latest","message":{"role":"assistant","content":"Hel"},"done":false}`,
			`{"model":"llama3.1:latest","message":{"role":"assistant","content":"lo"},"done":false}`,
			`{"model":"llama3.1:latest","message":{"role":"assistant","content":""},"done":true,"prompt_eval_count":5,"eval_count":2}`,
		}
		for _, l := range lines {
			fmt.Fprintln(w, l)
		}
	})

	stream, err := p.GenerateStream(context.Background(), testutil.TestMessages(), testutil.Settings("ollama", "llama3.1:latest"), nil)
	if err != nil {
		t.Fatalf("GenerateStream failed: %v", err)
	}

	var content string
	var final model.Delta
	for d, err := range stream {
		if err != nil {
			t.Fatalf("stream error: %v", err)
		}
		if d.Done {
			final = d
		}
		content += d.Content
	}
	if content != "Hello" {
		t.Errorf("got %q, want %q", content, "Hello")
	}
	if final.Usage.TokensIn != 5 || final.Usage.TokensOut != 2 {
		t.Errorf("got usage %+v", final.Usage)
	}
}

func TestOllamaStreamStopsEarly(t *testing.T) {
	p := newOllamaTestServer(t, nil, func(w http.ResponseWriter, r *http.Request) {
		for i := range 5 {
			fmt.Fprintf(w, `{"model":"llama3.1:latest","message":{"role":"assistant","content":"chunk%d "},"done":false}`+"\n", i)
		}
		fmt.Fprintln(w, `{"model":"llama3.1:latest","message":{"role":"assistant","content":""},"done":true}`)
	})

	stream, err := p.GenerateStream(context.Background(), testutil.TestMessages(), testutil.Settings("ollama", "llama3.1:latest"), nil)
	if err != nil {
		t.Fatal(err)
	}
	n := 0
	for range stream {
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Errorf("got %d deltas, want 2", n)
	}
}

func TestOllamaUpstreamError(t *testing.T) {
	p := newOllamaTestServer(t, nil, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":"model \"llama3.1:latest\" not found, try pulling it first"}`)
	})

	_, err := p.Generate(context.Background(), testutil.TestMessages(), testutil.Settings("ollama", "llama3.1:latest"), nil)
	var ue *model.UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("got %v, want UpstreamError", err)
	}
	if ue.Code != http.StatusNotFound {
		t.Errorf("code: got %d, want 404", ue.Code)
	}
	if !strings.Contains(ue.Message, "not found") {
		t.Errorf("message: got %q", ue.Message)
	}
}
