package provider

import (
	"encoding/json"
	"testing"

	"chatcore/provider/testutil"
)

func TestToOllamaTools(t *testing.T) {
	tools := ToOllamaTools(testutil.TestTools())
	if len(tools) != 2 {
		t.Fatalf("got %d tools, want 2", len(tools))
	}

	search := tools[0]
	if search.Type != "function" {
		t.Errorf("type: got %q, want function", search.Type)
	}
	if search.Function.Name != "search" {
		t.Errorf("name: got %q, want search", search.Function.Name)
	}
	if len(search.Function.Parameters.Required) != 1 || search.Function.Parameters.Required[0] != "query" {
		t.Errorf("required: got %v", search.Function.Parameters.Required)
	}
	prop, ok := search.Function.Parameters.Properties["query"]
	if !ok {
		t.Fatal("query property missing")
	}
	if len(prop.Type) != 1 || prop.Type[0] != "string" {
		t.Errorf("property type: got %v", prop.Type)
	}

	if ToOllamaTools(nil) != nil {
		t.Error("no definitions should give nil")
	}
}

func TestToOpenAITools(t *testing.T) {
	tools := ToOpenAITools(testutil.TestTools())
	if len(tools) != 2 {
		t.Fatalf("got %d tools, want 2", len(tools))
	}

	raw, err := json.Marshal(tools[1])
	if err != nil {
		t.Fatal(err)
	}
	var decoded struct {
		Type     string `json:"type"`
		Function struct {
			Name       string         `json:"name"`
			Parameters map[string]any `json:"parameters"`
		} `json:"function"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Type != "function" || decoded.Function.Name != "compute" {
		t.Errorf("got %s", raw)
	}
	if decoded.Function.Parameters["type"] != "object" {
		t.Errorf("parameters: got %v", decoded.Function.Parameters)
	}

	if ToOpenAITools(nil) != nil {
		t.Error("no definitions should give nil")
	}
}

func TestToAnthropicTools(t *testing.T) {
	tools := ToAnthropicTools(testutil.TestTools())
	if len(tools) != 2 {
		t.Fatalf("got %d tools, want 2", len(tools))
	}
	tool := tools[0].OfTool
	if tool == nil {
		t.Fatal("expected a custom tool")
	}
	if tool.Name != "search" {
		t.Errorf("name: got %q, want search", tool.Name)
	}
	if len(tool.InputSchema.Required) != 1 || tool.InputSchema.Required[0] != "query" {
		t.Errorf("required: got %v", tool.InputSchema.Required)
	}
}
