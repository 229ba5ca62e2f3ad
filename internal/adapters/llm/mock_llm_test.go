package llm_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/PabloGalante/minidxo/internal/adapters/llm"
	"github.com/PabloGalante/minidxo/internal/domain"
)

func TestMockLLM_QueueThenDefault(t *testing.T) {
	m := llm.NewMockLLM()
	m.Enqueue(llm.Fail(errors.New("scripted")))
	ctx := context.Background()

	if _, err := m.Complete(ctx, domain.CompletionRequest{}); err == nil {
		t.Fatal("expected scripted failure")
	}

	req := domain.CompletionRequest{
		System:   "triage",
		Messages: []*domain.Message{{Author: domain.RoleUser, Text: "headache"}},
		Tools:    []domain.ToolDescriptor{{Name: "search_trusted_medical_knowledge"}},
	}
	comp, err := m.Complete(ctx, req)
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if len(comp.ToolCalls) != 1 || comp.ToolCalls[0].Args["query"] != "headache" {
		t.Fatalf("expected a lookup call, got %+v", comp)
	}

	req.Steps = []domain.ToolStep{{Call: comp.ToolCalls[0], Result: "dehydration"}}
	comp, err = m.Complete(ctx, req)
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if !strings.HasPrefix(comp.Content, "Here is my thought process:") || !strings.Contains(comp.Content, "dehydration") {
		t.Errorf("unexpected reply %q", comp.Content)
	}

	if len(m.Requests()) != 3 {
		t.Errorf("expected 3 recorded requests, got %d", len(m.Requests()))
	}
}

func TestMockLLM_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := llm.NewMockLLM().Complete(ctx, domain.CompletionRequest{}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
