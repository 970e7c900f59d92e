package tools

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"chatcore/model"
)

// NewMCPServer exposes every tool of the registry as an MCP tool. Tool
// failures are returned as error results rather than protocol errors.
func NewMCPServer(reg *Registry, version string) *server.MCPServer {
	s := server.NewMCPServer("chatcore", version, server.WithToolCapabilities(false))

	for _, def := range reg.Definitions() {
		s.AddTool(mcpTool(def), mcpHandler(reg, def.Name))
	}
	return s
}

// ServeMCP serves the registry over stdio until stdin closes.
func ServeMCP(reg *Registry, version string) error {
	return server.ServeStdio(NewMCPServer(reg, version))
}

func mcpTool(def model.ToolDefinition) mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(def.Description)}
	for _, p := range def.Parameters {
		props := []mcp.PropertyOption{mcp.Description(p.Description)}
		if p.Required {
			props = append(props, mcp.Required())
		}
		switch p.Type {
		case "number", "integer":
			opts = append(opts, mcp.WithNumber(p.Name, props...))
		case "boolean":
			opts = append(opts, mcp.WithBoolean(p.Name, props...))
		default:
			opts = append(opts, mcp.WithString(p.Name, props...))
		}
	}
	return mcp.NewTool(def.Name, opts...)
}

func mcpHandler(reg *Registry, name string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		raw, err := json.Marshal(request.GetArguments())
		if err != nil {
			return mcp.NewToolResultError(model.ToolFailureContent(name, toolError(name, model.ToolErrArguments, err))), nil
		}

		out, err := reg.Execute(ctx, name, string(raw))
		if err != nil {
			return mcp.NewToolResultError(model.ToolFailureContent(name, err)), nil
		}
		return mcp.NewToolResultText(out), nil
	}
}
