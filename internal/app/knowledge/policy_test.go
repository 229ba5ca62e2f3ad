package knowledge_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/PabloGalante/minidxo/internal/app/knowledge"
	"github.com/PabloGalante/minidxo/internal/domain"
	"github.com/PabloGalante/minidxo/internal/testutil"
)

const coughPassage = "Cough and fever are common in viral infections such as flu or COVID-19."

func TestLookup_TrustedHitShortCircuits(t *testing.T) {
	index := testutil.NewMockIndex(coughPassage)
	web := testutil.NewMockWeb("web says flu")
	p := knowledge.NewPolicy(index, web, 2, time.Second)

	ev := p.Lookup(context.Background(), "cough, fever")

	if ev.Provenance != domain.ProvenanceTrusted {
		t.Fatalf("expected trusted provenance, got %q", ev.Provenance)
	}
	if ev.Text != coughPassage {
		t.Errorf("unexpected evidence text %q", ev.Text)
	}
	if web.CallCount() != 0 {
		t.Errorf("web search must not run after a trusted hit, got %d calls", web.CallCount())
	}
	if index.LastK != 2 {
		t.Errorf("expected top-k 2, got %d", index.LastK)
	}
	if !ev.Found() {
		t.Error("expected Found() for trusted evidence")
	}
}

func TestLookup_JoinsPassagesWithSeparator(t *testing.T) {
	index := testutil.NewMockIndex("first", "second")
	p := knowledge.NewPolicy(index, testutil.NewMockWeb("unused"), 2, time.Second)

	ev := p.Lookup(context.Background(), "headache")

	if ev.Text != "first"+knowledge.PassageSeparator+"second" {
		t.Errorf("unexpected join: %q", ev.Text)
	}
	if len(ev.Passages) != 2 {
		t.Errorf("expected 2 passages, got %d", len(ev.Passages))
	}
}

func TestLookup_EmptyIndexFallsBackToWebOnce(t *testing.T) {
	index := testutil.NewMockIndex()
	web := testutil.NewMockWeb("Influenza commonly presents with cough and fever.")
	p := knowledge.NewPolicy(index, web, 2, time.Second)

	ev := p.Lookup(context.Background(), "cough, fever")

	if ev.Provenance != domain.ProvenanceWeb {
		t.Fatalf("expected web provenance, got %q", ev.Provenance)
	}
	if web.CallCount() != 1 {
		t.Fatalf("expected exactly one web call, got %d", web.CallCount())
	}
	if web.Queries[0] != "cough, fever" {
		t.Errorf("web should get the same query, got %q", web.Queries[0])
	}
	if !errors.Is(ev.TrustedErr, knowledge.ErrNoPassages) {
		t.Errorf("expected ErrNoPassages, got %v", ev.TrustedErr)
	}
	if !ev.WebQueried {
		t.Error("expected WebQueried")
	}
}

func TestLookup_IndexErrorFallsBackToWeb(t *testing.T) {
	index := testutil.NewMockIndex()
	index.Err = errors.New("index offline")
	web := testutil.NewMockWeb("web result")
	p := knowledge.NewPolicy(index, web, 2, time.Second)

	ev := p.Lookup(context.Background(), "rash")

	if ev.Provenance != domain.ProvenanceWeb {
		t.Fatalf("expected web provenance, got %q", ev.Provenance)
	}
	if ev.TrustedErr == nil {
		t.Error("expected trusted error to be recorded")
	}
	if web.CallCount() != 1 {
		t.Errorf("expected one web call, got %d", web.CallCount())
	}
}

func TestLookup_IndexPanicIsContained(t *testing.T) {
	index := testutil.NewMockIndex()
	index.Panic = true
	web := testutil.NewMockWeb("web result")
	p := knowledge.NewPolicy(index, web, 2, time.Second)

	ev := p.Lookup(context.Background(), "rash")

	if ev.Provenance != domain.ProvenanceWeb {
		t.Fatalf("expected web fallback after panic, got %q", ev.Provenance)
	}
}

func TestLookup_BothFailReturnsSentinel(t *testing.T) {
	index := testutil.NewMockIndex()
	web := testutil.NewMockWeb("")
	web.Err = errors.New("search unreachable")
	p := knowledge.NewPolicy(index, web, 2, time.Second)

	ev := p.Lookup(context.Background(), "dizziness")

	if ev.Found() {
		t.Fatal("expected nothing found")
	}
	if ev.Provenance != domain.ProvenanceNone {
		t.Errorf("expected none provenance, got %q", ev.Provenance)
	}
	if ev.Text != knowledge.NoInformation {
		t.Errorf("expected sentinel text, got %q", ev.Text)
	}
	if ev.WebErr == nil {
		t.Error("expected web error recorded")
	}
}

func TestLookup_BlankWebResultIsNotEvidence(t *testing.T) {
	p := knowledge.NewPolicy(testutil.NewMockIndex(), testutil.NewMockWeb("   "), 2, time.Second)

	ev := p.Lookup(context.Background(), "itching")

	if ev.Found() {
		t.Fatal("blank web text must not count as evidence")
	}
	if !errors.Is(ev.WebErr, knowledge.ErrEmptyWeb) {
		t.Errorf("expected ErrEmptyWeb, got %v", ev.WebErr)
	}
}

func TestLookup_NoWebConfigured(t *testing.T) {
	p := knowledge.NewPolicy(testutil.NewMockIndex(), nil, 2, time.Second)

	ev := p.Lookup(context.Background(), "itching")

	if ev.Found() || ev.WebQueried {
		t.Fatalf("unexpected evidence: %+v", ev)
	}
}

func TestEscalate_SkipsIndex(t *testing.T) {
	index := testutil.NewMockIndex(coughPassage)
	web := testutil.NewMockWeb("web detail")
	p := knowledge.NewPolicy(index, web, 2, time.Second)

	ev := p.Escalate(context.Background(), "cough, fever, body aches")

	if ev.Provenance != domain.ProvenanceWeb {
		t.Fatalf("expected web provenance, got %q", ev.Provenance)
	}
	if index.CallCount() != 0 {
		t.Errorf("escalation must not query the index, got %d calls", index.CallCount())
	}
}

func TestRender(t *testing.T) {
	trusted := knowledge.Evidence{Text: "kb text", Provenance: domain.ProvenanceTrusted}
	if got := knowledge.Render(trusted); !strings.Contains(got, "trusted knowledge base") || !strings.Contains(got, "kb text") {
		t.Errorf("unexpected trusted render: %q", got)
	}

	failed := knowledge.Evidence{
		Provenance: domain.ProvenanceNone,
		TrustedErr: errors.New("boom"),
		WebErr:     errors.New("offline"),
	}
	got := knowledge.Render(failed)
	if !strings.HasPrefix(got, knowledge.NoInformation) {
		t.Errorf("expected sentinel prefix, got %q", got)
	}
	if !strings.Contains(got, "Error during semantic search: boom") {
		t.Errorf("expected inline semantic search error, got %q", got)
	}
}
