// Package mcpserver exposes the knowledge tools over the Model Context
// Protocol so other agents can use the same trusted-first lookups.
package mcpserver

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/PabloGalante/minidxo/internal/app/knowledge"
	"github.com/PabloGalante/minidxo/internal/app/tools"
	"github.com/PabloGalante/minidxo/internal/observability"
)

// NewServer registers search_trusted_medical_knowledge and web_search.
func NewServer(policy *knowledge.Policy, version string) *server.MCPServer {
	s := server.NewMCPServer("minidxo", version, server.WithToolCapabilities(false))

	for _, t := range []tools.Tool{
		tools.NewSearchTrustedTool(policy),
		tools.NewWebSearchTool(policy),
	} {
		s.AddTool(toMCPTool(t), toolHandler(t))
	}
	return s
}

// ServeStdio blocks serving s on stdin/stdout.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func toMCPTool(t tools.Tool) mcp.Tool {
	d := t.Descriptor()
	opts := []mcp.ToolOption{mcp.WithDescription(d.Description)}
	for _, p := range d.Params {
		popts := []mcp.PropertyOption{mcp.Description(p.Description)}
		if p.Required {
			popts = append(popts, mcp.Required())
		}
		opts = append(opts, mcp.WithString(p.Name, popts...))
	}
	return mcp.NewTool(d.Name, opts...)
}

func toolHandler(t tools.Tool) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		log := observability.LoggerFromContext(ctx).With("tool", t.Name())

		query, err := req.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		out, err := t.Call(ctx, tools.ToolContext{}, map[string]any{"query": query})
		if err != nil {
			log.Warn("mcp tool call failed", "error", err)
			return mcp.NewToolResultError(err.Error()), nil
		}

		text, ok := out[tools.OutputResult].(string)
		if !ok {
			return nil, errors.New("tool returned no text")
		}
		log.Info("mcp tool call done", "provenance", out[tools.OutputProvenance])
		return mcp.NewToolResultText(text), nil
	}
}
