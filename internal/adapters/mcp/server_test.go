package mcpserver

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/PabloGalante/minidxo/internal/app/knowledge"
	"github.com/PabloGalante/minidxo/internal/app/tools"
	"github.com/PabloGalante/minidxo/internal/testutil"
)

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("expected one content item, got %d", len(res.Content))
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", res.Content[0])
	}
	return tc.Text
}

func TestTrustedToolOverMCP(t *testing.T) {
	index := testutil.NewMockIndex("Cough and fever are common in viral infections such as flu or COVID-19.")
	web := testutil.NewMockWeb("unused")
	policy := knowledge.NewPolicy(index, web, 2, time.Second)

	h := toolHandler(tools.NewSearchTrustedTool(policy))
	res, err := h(context.Background(), callRequest(tools.SearchTrustedName, map[string]any{"query": "cough, fever"}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %+v", res)
	}
	if !strings.Contains(resultText(t, res), "viral infections") {
		t.Errorf("unexpected text %q", resultText(t, res))
	}
	if web.CallCount() != 0 {
		t.Errorf("expected no web calls, got %d", web.CallCount())
	}
}

func TestMissingQueryIsToolError(t *testing.T) {
	policy := knowledge.NewPolicy(testutil.NewMockIndex(), nil, 2, time.Second)

	h := toolHandler(tools.NewWebSearchTool(policy))
	res, err := h(context.Background(), callRequest(tools.WebSearchName, map[string]any{}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !res.IsError {
		t.Error("expected a tool error result")
	}
}

func TestToolSchema(t *testing.T) {
	policy := knowledge.NewPolicy(testutil.NewMockIndex(), nil, 2, time.Second)
	tool := toMCPTool(tools.NewSearchTrustedTool(policy))

	if tool.Name != tools.SearchTrustedName {
		t.Errorf("unexpected name %q", tool.Name)
	}
	if len(tool.InputSchema.Required) != 1 || tool.InputSchema.Required[0] != "query" {
		t.Errorf("expected required query, got %+v", tool.InputSchema.Required)
	}
	if NewServer(policy, "test") == nil {
		t.Error("expected a server")
	}
}
