package tools

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"chatcore/config"
	"chatcore/model"
)

func connectTestPlugin(t *testing.T, served *Registry) *Plugin {
	t.Helper()
	ctx := context.Background()

	c, err := client.NewInProcessClient(NewMCPServer(served, "test"))
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Start(ctx); err != nil {
		t.Fatal(err)
	}
	p, err := ConnectPlugin(ctx, "demo", c, "test")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { p.Close() })
	return p
}

func TestPluginToolsJoinRegistry(t *testing.T) {
	served := newTestRegistry(t, &echoTool{name: "echo"}, &echoTool{name: "broken", err: errors.New("boom")})
	p := connectTestPlugin(t, served)

	reg := newTestRegistry(t, p.Executors()...)
	if len(reg.Definitions()) != 2 {
		t.Fatalf("got %d tools, want 2", len(reg.Definitions()))
	}

	e, ok := reg.Lookup("demo_echo")
	if !ok {
		t.Fatal("demo_echo should be registered")
	}
	def := e.Definition()
	if req := def.RequiredParameters(); len(req) != 1 || req[0] != "text" {
		t.Errorf("got required %v, want [text]", req)
	}

	out, err := reg.Execute(context.Background(), "demo_echo", `{"text":"hi there"}`)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if out != "hi there" {
		t.Errorf("got %q, want %q", out, "hi there")
	}

	_, err = reg.Execute(context.Background(), "demo_broken", `{"text":"x"}`)
	var te *model.ToolExecutionError
	if !errors.As(err, &te) {
		t.Fatalf("got %v, want *model.ToolExecutionError", err)
	}
	if te.ToolName != "demo_broken" {
		t.Errorf("got tool name %q", te.ToolName)
	}
	if !strings.Contains(te.Error(), "Unable to use broken") {
		t.Errorf("remote failure text should be kept: %v", te)
	}
}

func TestPluginDefinition(t *testing.T) {
	tool := mcp.NewTool("lookup",
		mcp.WithDescription("Look something up"),
		mcp.WithString("query", mcp.Required(), mcp.Description("What to look up")),
		mcp.WithNumber("limit"),
		mcp.WithBoolean("exact"),
	)

	def := pluginDefinition("kb", tool)
	if def.Name != "kb_lookup" || def.Description != "Look something up" {
		t.Errorf("got %+v", def)
	}

	want := []model.ToolParameter{
		{Name: "exact", Type: "boolean"},
		{Name: "limit", Type: "number"},
		{Name: "query", Type: "string", Description: "What to look up", Required: true},
	}
	if len(def.Parameters) != len(want) {
		t.Fatalf("got %+v", def.Parameters)
	}
	for i, p := range def.Parameters {
		if p != want[i] {
			t.Errorf("param %d: got %+v, want %+v", i, p, want[i])
		}
	}
}

func TestStartPluginsSkipsBroken(t *testing.T) {
	cfgs := []config.PluginConfig{
		{ID: "bad id", Enabled: true, Command: "true"},
		{ID: "nocommand", Enabled: true},
	}
	if got := StartPlugins(context.Background(), cfgs, nil, "test", nil); len(got) != 0 {
		t.Errorf("got %d plugins, want 0", len(got))
	}
}
