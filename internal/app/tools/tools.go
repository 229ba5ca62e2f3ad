package tools

import (
	"context"

	"github.com/PabloGalante/minidxo/internal/domain"
)

// ToolContext brings metadata of the call to the tool
type ToolContext struct {
	UserID    string
	SessionID string
	RequestID string
}

// Tool represents a tool the triage agent can invoke.
// input/output is a generic map to maintain flexibility.
type Tool interface {
	Name() string
	Descriptor() domain.ToolDescriptor
	Call(ctx context.Context, tctx ToolContext, input map[string]any) (map[string]any, error)
}

// Output keys shared by the knowledge tools.
const (
	OutputResult     = "result"
	OutputProvenance = "provenance"
	OutputWebQueried = "web_queried"
)

func getString(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
