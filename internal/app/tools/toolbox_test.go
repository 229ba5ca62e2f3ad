package tools_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/PabloGalante/minidxo/internal/app/knowledge"
	"github.com/PabloGalante/minidxo/internal/app/tools"
	"github.com/PabloGalante/minidxo/internal/domain"
	"github.com/PabloGalante/minidxo/internal/testutil"
)

func call(name, query string) domain.ToolCall {
	return domain.ToolCall{ID: name, Name: name, Args: map[string]any{"query": query}}
}

func TestToolbox_TrustedHit(t *testing.T) {
	index := testutil.NewMockIndex("Cough and fever are common in viral infections such as flu or COVID-19.")
	web := testutil.NewMockWeb("should not be used")
	box := tools.NewToolbox(knowledge.NewPolicy(index, web, 2, time.Second), 2)

	text, err := box.Invoke(context.Background(), tools.ToolContext{}, call(tools.SearchTrustedName, "cough, fever"))
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if !strings.Contains(text, "viral infections") {
		t.Errorf("unexpected tool output %q", text)
	}
	if box.Provenance() != domain.ProvenanceTrusted {
		t.Errorf("expected trusted provenance, got %q", box.Provenance())
	}
	if web.CallCount() != 0 {
		t.Errorf("expected no web calls, got %d", web.CallCount())
	}
}

func TestToolbox_WebBeforeTrustedIsRerouted(t *testing.T) {
	index := testutil.NewMockIndex("Headache and fatigue can be due to dehydration or tension.")
	web := testutil.NewMockWeb("web text")
	box := tools.NewToolbox(knowledge.NewPolicy(index, web, 2, time.Second), 2)

	if _, err := box.Invoke(context.Background(), tools.ToolContext{}, call(tools.WebSearchName, "headache")); err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if index.CallCount() != 1 {
		t.Errorf("expected the trusted index to be consulted, got %d calls", index.CallCount())
	}
	if web.CallCount() != 0 {
		t.Errorf("expected no web calls, got %d", web.CallCount())
	}

	// After the trusted lookup, an explicit escalation goes to the web.
	if _, err := box.Invoke(context.Background(), tools.ToolContext{}, call(tools.WebSearchName, "headache")); err != nil {
		t.Fatalf("second Invoke failed: %v", err)
	}
	if web.CallCount() != 1 {
		t.Errorf("expected one web call after escalation, got %d", web.CallCount())
	}
	if box.Provenance() != domain.ProvenanceWeb {
		t.Errorf("expected web provenance, got %q", box.Provenance())
	}
}

func TestToolbox_WebSearchedOncePerTurn(t *testing.T) {
	index := testutil.NewMockIndex()
	web := testutil.NewMockWeb("Rashes with fever can follow viral infections.")
	box := tools.NewToolbox(knowledge.NewPolicy(index, web, 2, time.Second), 2)
	ctx := context.Background()

	first, err := box.Invoke(ctx, tools.ToolContext{}, call(tools.SearchTrustedName, "rash, fever"))
	if err != nil {
		t.Fatalf("trusted Invoke failed: %v", err)
	}
	if web.CallCount() != 1 {
		t.Fatalf("expected the empty index to fall back to the web once, got %d", web.CallCount())
	}

	second, err := box.Invoke(ctx, tools.ToolContext{}, call(tools.WebSearchName, "rash, fever"))
	if err != nil {
		t.Fatalf("web Invoke failed: %v", err)
	}
	if web.CallCount() != 1 {
		t.Errorf("expected no second web call in the same turn, got %d", web.CallCount())
	}
	if index.CallCount() != 1 {
		t.Errorf("expected one index call, got %d", index.CallCount())
	}
	if second != first {
		t.Errorf("expected the earlier web answer, got %q want %q", second, first)
	}
	if box.Provenance() != domain.ProvenanceWeb || box.Lookups() != 2 {
		t.Errorf("unexpected state: provenance=%q lookups=%d", box.Provenance(), box.Lookups())
	}
}

func TestToolbox_BudgetExhausted(t *testing.T) {
	box := tools.NewToolbox(knowledge.NewPolicy(testutil.NewMockIndex("x"), nil, 2, time.Second), 2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := box.Invoke(ctx, tools.ToolContext{}, call(tools.SearchTrustedName, "q")); err != nil {
			t.Fatalf("Invoke %d failed: %v", i, err)
		}
	}
	if !box.Exhausted() {
		t.Fatal("expected toolbox to be exhausted after two lookups")
	}
	_, err := box.Invoke(ctx, tools.ToolContext{}, call(tools.SearchTrustedName, "q"))
	if !errors.Is(err, tools.ErrLookupBudget) {
		t.Errorf("expected ErrLookupBudget, got %v", err)
	}
	if box.Lookups() != 2 {
		t.Errorf("expected 2 lookups, got %d", box.Lookups())
	}
}

func TestToolbox_UnknownToolAndMissingQuery(t *testing.T) {
	box := tools.NewToolbox(knowledge.NewPolicy(testutil.NewMockIndex("x"), nil, 2, time.Second), 2)
	ctx := context.Background()

	_, err := box.Invoke(ctx, tools.ToolContext{}, domain.ToolCall{Name: "prescribe"})
	if !errors.Is(err, tools.ErrUnknownTool) {
		t.Errorf("expected ErrUnknownTool, got %v", err)
	}
	if box.Lookups() != 0 {
		t.Errorf("unknown tools must not consume budget, got %d", box.Lookups())
	}

	if _, err := box.Invoke(ctx, tools.ToolContext{}, domain.ToolCall{Name: tools.SearchTrustedName}); err == nil {
		t.Error("expected error for missing query")
	}
}

func TestToolbox_DescriptorsTrustedFirst(t *testing.T) {
	box := tools.NewToolbox(knowledge.NewPolicy(testutil.NewMockIndex(), nil, 2, time.Second), 0)

	desc := box.Descriptors()
	if len(desc) != 2 {
		t.Fatalf("expected 2 descriptors, got %d", len(desc))
	}
	if desc[0].Name != tools.SearchTrustedName || desc[1].Name != tools.WebSearchName {
		t.Errorf("unexpected descriptor order: %s, %s", desc[0].Name, desc[1].Name)
	}
	if !strings.HasPrefix(desc[0].Description, "ALWAYS use this tool FIRST") {
		t.Errorf("unexpected trusted description %q", desc[0].Description)
	}
	if len(desc[0].Params) != 1 || !desc[0].Params[0].Required {
		t.Errorf("expected one required query param, got %+v", desc[0].Params)
	}
}
