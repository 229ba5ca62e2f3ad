package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/PabloGalante/minidxo/internal/app/knowledge"
	"github.com/PabloGalante/minidxo/internal/domain"
)

const (
	SearchTrustedName = "search_trusted_medical_knowledge"
	WebSearchName     = "web_search"
)

const searchTrustedDescription = "ALWAYS use this tool FIRST to search the trusted, local knowledge base " +
	"for medical information about symptoms, conditions, and treatments. " +
	"Input should be a concise description of the user's symptoms."

const webSearchDescription = "Use this tool ONLY if 'search_trusted_medical_knowledge' does not provide " +
	"a useful answer. Searches the web for general medical information. " +
	"Prefer credible sources such as Mayo Clinic, NIH or MedlinePlus."

var queryParam = domain.ToolParam{
	Name:        "query",
	Description: "Concise description of the symptoms to look up.",
	Required:    true,
}

// SearchTrustedTool runs the trusted-first lookup.
type SearchTrustedTool struct {
	policy *knowledge.Policy
}

func NewSearchTrustedTool(policy *knowledge.Policy) *SearchTrustedTool {
	return &SearchTrustedTool{policy: policy}
}

func (t *SearchTrustedTool) Name() string {
	return SearchTrustedName
}

func (t *SearchTrustedTool) Descriptor() domain.ToolDescriptor {
	return domain.ToolDescriptor{
		Name:        SearchTrustedName,
		Description: searchTrustedDescription,
		Params:      []domain.ToolParam{queryParam},
	}
}

// Call expects {"query": "..."}.
func (t *SearchTrustedTool) Call(ctx context.Context, _ ToolContext, input map[string]any) (map[string]any, error) {
	query, err := requireQuery(t.Name(), input)
	if err != nil {
		return nil, err
	}
	return evidenceOutput(t.policy.Lookup(ctx, query)), nil
}

// WebSearchTool escalates to the web.
type WebSearchTool struct {
	policy *knowledge.Policy
}

func NewWebSearchTool(policy *knowledge.Policy) *WebSearchTool {
	return &WebSearchTool{policy: policy}
}

func (t *WebSearchTool) Name() string {
	return WebSearchName
}

func (t *WebSearchTool) Descriptor() domain.ToolDescriptor {
	return domain.ToolDescriptor{
		Name:        WebSearchName,
		Description: webSearchDescription,
		Params:      []domain.ToolParam{queryParam},
	}
}

// Call expects {"query": "..."}.
func (t *WebSearchTool) Call(ctx context.Context, _ ToolContext, input map[string]any) (map[string]any, error) {
	query, err := requireQuery(t.Name(), input)
	if err != nil {
		return nil, err
	}
	return evidenceOutput(t.policy.Escalate(ctx, query)), nil
}

func requireQuery(tool string, input map[string]any) (string, error) {
	q := strings.TrimSpace(getString(input, "query"))
	if q == "" {
		return "", fmt.Errorf("%s: missing query", tool)
	}
	return q, nil
}

func evidenceOutput(ev knowledge.Evidence) map[string]any {
	return map[string]any{
		OutputResult:     knowledge.Render(ev),
		OutputProvenance: string(ev.Provenance),
		OutputWebQueried: ev.WebQueried,
	}
}
