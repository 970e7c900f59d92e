package tools

import (
	"context"
	"errors"
	"strings"
	"testing"

	"chatcore/model"
)

type mapSecrets map[string]string

func (m mapSecrets) Secret(key string) string { return m[key] }

type echoTool struct {
	name string
	err  error
	got  map[string]any
}

func (e *echoTool) Definition() model.ToolDefinition {
	return model.ToolDefinition{
		Name:        e.name,
		Description: "Echo the text back",
		Parameters: []model.ToolParameter{
			{Name: "text", Type: "string", Description: "Text to echo", Required: true},
			{Name: "times", Type: "number", Description: "Repeat count"},
		},
	}
}

func (e *echoTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	e.got = args
	if e.err != nil {
		return "", e.err
	}
	return stringArg(args, "text"), nil
}

func newTestRegistry(t *testing.T, executors ...Executor) *Registry {
	t.Helper()
	reg, err := NewRegistry(executors...)
	if err != nil {
		t.Fatal(err)
	}
	return reg
}

func TestRegistryDefinitionsOrder(t *testing.T) {
	reg := newTestRegistry(t, &echoTool{name: "b"}, &echoTool{name: "a"}, &echoTool{name: "c"})

	var names []string
	for _, d := range reg.Definitions() {
		names = append(names, d.Name)
	}
	if got := strings.Join(names, ","); got != "b,a,c" {
		t.Errorf("got %q, want %q", got, "b,a,c")
	}

	filtered := reg.Filter(func(name string) bool { return name != "a" })
	if len(filtered) != 2 || filtered[0].Name != "b" || filtered[1].Name != "c" {
		t.Errorf("got %+v", filtered)
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	if _, err := NewRegistry(&echoTool{name: "echo"}, &echoTool{name: "ECHO"}); err == nil {
		t.Error("expected duplicate name error")
	}
}

func TestRegistryExecute(t *testing.T) {
	echo := &echoTool{name: "Echo"}
	reg := newTestRegistry(t, echo)

	tests := []struct {
		name     string
		tool     string
		args     string
		want     string
		wantKind string
	}{
		{name: "case insensitive", tool: "echo", args: `{"text":"hi"}`, want: "hi"},
		{name: "exact name", tool: "Echo", args: `{"text":"hello","times":2}`, want: "hello"},
		{name: "unknown tool", tool: "missing", args: `{}`, wantKind: model.ToolErrNotFound},
		{name: "invalid json", tool: "echo", args: `{"text":`, wantKind: model.ToolErrArguments},
		{name: "missing argument", tool: "echo", args: `{"times":1}`, wantKind: model.ToolErrMissingArgument},
		{name: "empty arguments", tool: "echo", args: ``, wantKind: model.ToolErrMissingArgument},
		{name: "blank argument", tool: "echo", args: `{"text":"  "}`, wantKind: model.ToolErrMissingArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := reg.Execute(context.Background(), tt.tool, tt.args)
			if tt.wantKind != "" {
				var te *model.ToolExecutionError
				if !errors.As(err, &te) {
					t.Fatalf("got %v, want ToolExecutionError", err)
				}
				if te.ErrorType() != tt.wantKind {
					t.Errorf("kind: got %q, want %q", te.ErrorType(), tt.wantKind)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRegistryWrapsExecutorErrors(t *testing.T) {
	reg := newTestRegistry(t, &echoTool{name: "echo", err: errors.New("boom")})

	_, err := reg.Execute(context.Background(), "echo", `{"text":"x"}`)
	var te *model.ToolExecutionError
	if !errors.As(err, &te) {
		t.Fatalf("got %v, want ToolExecutionError", err)
	}
	if te.ToolName != "echo" {
		t.Errorf("tool name: got %q", te.ToolName)
	}
	if got := model.ToolFailureContent("echo", err); got != "Unable to use echo: ToolExecutionError - boom" {
		t.Errorf("got %q", got)
	}
}

func TestBuiltinRegistry(t *testing.T) {
	reg, err := NewBuiltinRegistry(testToolsConfig(), mapSecrets{}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"search", "fetch_and_summarize", "compute"}
	defs := reg.Definitions()
	if len(defs) != len(want) {
		t.Fatalf("got %d tools, want %d", len(defs), len(want))
	}
	for i, d := range defs {
		if d.Name != want[i] {
			t.Errorf("tool %d: got %q, want %q", i, d.Name, want[i])
		}
		if len(d.RequiredParameters()) == 0 {
			t.Errorf("%s should declare required parameters", d.Name)
		}
	}
}
