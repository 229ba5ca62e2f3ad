package terminal

import (
	"strings"
	"testing"

	"github.com/PabloGalante/minidxo/internal/app/agentflow"
	"github.com/PabloGalante/minidxo/internal/domain"
)

func TestMessage_Roles(t *testing.T) {
	r := NewRenderer(0)

	user := r.Message(&domain.Message{Author: domain.RoleUser, Text: "I have a cough"})
	if !strings.Contains(user, "You") || !strings.Contains(user, "I have a cough") {
		t.Errorf("unexpected user rendering %q", user)
	}

	failed := r.Message(&domain.Message{
		Author:      domain.RoleAssistant,
		Text:        "Error: engine unavailable",
		ContentType: domain.ContentTypeError,
	})
	if !strings.Contains(failed, "Error: engine unavailable") {
		t.Errorf("unexpected error rendering %q", failed)
	}

	if r.Message(nil) != "" {
		t.Error("nil message should render empty")
	}
}

func TestMessage_PanelSectionIsBoxed(t *testing.T) {
	r := NewRenderer(80)
	c := agentflow.Consensus{Final: "Final conclusion: viral infection"}

	out := r.Message(&domain.Message{
		Author: domain.RoleAssistant,
		Text:   "Here is my thought process: rest and fluids." + c.Section(),
	})

	if !strings.Contains(out, "rest and fluids") {
		t.Errorf("reply missing from %q", out)
	}
	if !strings.Contains(out, "viral infection") {
		t.Errorf("panel conclusion missing from %q", out)
	}
	if strings.Contains(out, "---") {
		t.Errorf("raw section separator leaked into %q", out)
	}
}

func TestTranscript(t *testing.T) {
	r := NewRenderer(0)
	out := r.Transcript([]*domain.Message{
		{Author: domain.RoleUser, Text: "hello"},
		{Author: domain.RoleAssistant, Text: "hi there"},
	})
	if strings.Index(out, "hello") > strings.Index(out, "hi there") {
		t.Errorf("transcript out of order: %q", out)
	}
	if !strings.Contains(r.Greeting("welcome"), "welcome") {
		t.Error("greeting text missing")
	}
}
