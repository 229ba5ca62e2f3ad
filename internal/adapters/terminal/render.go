// Package terminal renders a consultation transcript for the interactive
// chat command.
package terminal

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/PabloGalante/minidxo/internal/app/agentflow"
	"github.com/PabloGalante/minidxo/internal/domain"
)

var (
	userLabel = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	botLabel  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	errLabel  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	bodyStyle = lipgloss.NewStyle().PaddingLeft(2)
	panelBox  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")).
			Padding(0, 1).
			MarginLeft(2)
	hintStyle = lipgloss.NewStyle().Faint(true).Italic(true)
)

// Renderer formats messages with lipgloss styles. Width 0 disables wrapping.
type Renderer struct {
	Width int
}

func NewRenderer(width int) *Renderer {
	return &Renderer{Width: width}
}

func (r *Renderer) body(text string) string {
	s := bodyStyle
	if r.Width > 4 {
		s = s.Width(r.Width - 2)
	}
	return s.Render(text)
}

// Greeting renders the display-only opening line.
func (r *Renderer) Greeting(text string) string {
	return botLabel.Render("MiniDxO") + "\n" + r.body(text)
}

// Hint renders a faint status line such as provenance information.
func (r *Renderer) Hint(text string) string {
	return hintStyle.Render(text)
}

// Message renders one transcript entry. A panel section appended to an
// assistant reply is boxed separately.
func (r *Renderer) Message(m *domain.Message) string {
	if m == nil {
		return ""
	}

	switch {
	case m.Author == domain.RoleUser:
		return userLabel.Render("You") + "\n" + r.body(m.Text)
	case m.ContentType == domain.ContentTypeError:
		return errLabel.Render("MiniDxO") + "\n" + r.body(m.Text)
	}

	reply, panel, found := strings.Cut(m.Text, agentflow.SectionHeader)
	out := botLabel.Render("MiniDxO") + "\n" + r.body(reply)
	if found {
		out += "\n" + panelBox.Render("Panel consensus\n"+strings.TrimSpace(panel))
	}
	return out
}

// Transcript renders messages separated by blank lines.
func (r *Renderer) Transcript(msgs []*domain.Message) string {
	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		parts = append(parts, r.Message(m))
	}
	return strings.Join(parts, "\n\n")
}
