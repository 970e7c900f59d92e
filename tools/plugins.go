package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"chatcore/config"
	"chatcore/model"
)

// Plugin is a connected MCP tool server.
type Plugin struct {
	ID     string
	client *client.Client
	tools  []mcp.Tool
}

// StartPlugin launches the plugin command and performs the MCP handshake.
func StartPlugin(ctx context.Context, cfg config.PluginConfig, secrets SecretSource, version string) (*Plugin, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var secret func(string) string
	if secrets != nil {
		secret = secrets.Secret
	}

	c, err := client.NewStdioMCPClient(cfg.Command, cfg.Environ(secret), cfg.Args...)
	if err != nil {
		return nil, fmt.Errorf("failed to start plugin %s: %w", cfg.ID, err)
	}
	p, err := ConnectPlugin(ctx, cfg.ID, c, version)
	if err != nil {
		return nil, multierr.Append(err, c.Close())
	}
	return p, nil
}

// ConnectPlugin initializes an MCP client and lists its tools.
func ConnectPlugin(ctx context.Context, id string, c *client.Client, version string) (*Plugin, error) {
	initReq := mcp.InitializeRequest{
		Params: mcp.InitializeParams{
			ProtocolVersion: mcp.LATEST_PROTOCOL_VERSION,
			Capabilities:    mcp.ClientCapabilities{},
			ClientInfo: mcp.Implementation{
				Name:    "chatcore",
				Version: version,
			},
		},
	}
	if _, err := c.Initialize(ctx, initReq); err != nil {
		return nil, fmt.Errorf("failed to initialize plugin %s: %w", id, err)
	}

	result, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("failed to list tools for %s: %w", id, err)
	}
	return &Plugin{ID: id, client: c, tools: result.Tools}, nil
}

// Executors returns one executor per plugin tool.
func (p *Plugin) Executors() []Executor {
	out := make([]Executor, 0, len(p.tools))
	for _, t := range p.tools {
		out = append(out, &pluginTool{plugin: p, remote: t.Name, def: pluginDefinition(p.ID, t)})
	}
	return out
}

// Close stops the plugin process.
func (p *Plugin) Close() error {
	return p.client.Close()
}

// StartPlugins starts every enabled plugin. A plugin that fails to start
// is logged and skipped.
func StartPlugins(ctx context.Context, cfgs []config.PluginConfig, secrets SecretSource, version string, logger *zap.Logger) []*Plugin {
	if logger == nil {
		logger = zap.NewNop()
	}
	var plugins []*Plugin
	for _, cfg := range cfgs {
		p, err := StartPlugin(ctx, cfg, secrets, version)
		if err != nil {
			logger.Warn("plugin unavailable", zap.String("plugin", cfg.ID), zap.Error(err))
			continue
		}
		logger.Info("plugin started", zap.String("plugin", cfg.ID), zap.Int("tools", len(p.tools)))
		plugins = append(plugins, p)
	}
	return plugins
}

// ClosePlugins stops all plugins and merges their errors.
func ClosePlugins(plugins []*Plugin) error {
	var err error
	for _, p := range plugins {
		err = multierr.Append(err, p.Close())
	}
	return err
}

type pluginTool struct {
	plugin *Plugin
	remote string
	def    model.ToolDefinition
}

func (t *pluginTool) Definition() model.ToolDefinition { return t.def }

func (t *pluginTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	result, err := t.plugin.client.CallTool(ctx, mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      t.remote,
			Arguments: args,
		},
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", toolError(t.def.Name, model.ToolErrCancelled, ctx.Err())
		}
		return "", toolError(t.def.Name, model.ToolErrNetwork, err)
	}

	text := resultText(result)
	if result.IsError {
		if text == "" {
			text = "plugin reported an error"
		}
		return "", toolError(t.def.Name, "", errors.New(text))
	}
	return text, nil
}

func resultText(result *mcp.CallToolResult) string {
	var parts []string
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// pluginDefinition converts an MCP tool schema into a tool definition.
// Properties are ordered by name.
func pluginDefinition(pluginID string, t mcp.Tool) model.ToolDefinition {
	required := make(map[string]bool, len(t.InputSchema.Required))
	for _, name := range t.InputSchema.Required {
		required[name] = true
	}

	names := make([]string, 0, len(t.InputSchema.Properties))
	for name := range t.InputSchema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	params := make([]model.ToolParameter, 0, len(names))
	for _, name := range names {
		param := model.ToolParameter{Name: name, Type: "string", Required: required[name]}
		if prop, ok := t.InputSchema.Properties[name].(map[string]any); ok {
			if typ, ok := prop["type"].(string); ok && typ != "" {
				param.Type = typ
			}
			if desc, ok := prop["description"].(string); ok {
				param.Description = desc
			}
		}
		params = append(params, param)
	}

	return model.ToolDefinition{
		Name:        pluginID + "_" + t.Name,
		Description: t.Description,
		Parameters:  params,
	}
}
