package agentflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/PabloGalante/minidxo/internal/domain"
	"github.com/PabloGalante/minidxo/internal/observability"
)

// AgentInput is what a panel role sees. Roles never see the lookup tools.
type AgentInput struct {
	Symptoms   string
	Hypothesis string
	Challenge  string
	Iteration  int
}

const roleTemperature float32 = 0

type AgentOutput struct {
	Reply string
}

type Agent interface {
	Name() string
	Run(ctx context.Context, in AgentInput) (AgentOutput, error)
}

// askRole sends a single prompt to the engine with no tools and no system
// instruction, the way each doctor is consulted.
func askRole(ctx context.Context, llm domain.LLMClient, role, prompt string) (string, error) {
	temp := roleTemperature
	comp, err := llm.Complete(ctx, domain.CompletionRequest{
		Messages:    []*domain.Message{{Author: domain.RoleUser, Text: prompt, ContentType: domain.ContentTypeText}},
		Temperature: &temp,
	})
	observability.EngineCall(role, err)
	if err != nil {
		return "", fmt.Errorf("%s: %w", role, err)
	}
	if comp == nil || strings.TrimSpace(comp.Content) == "" {
		return "", fmt.Errorf("%s: empty reply", role)
	}
	return strings.TrimSpace(comp.Content), nil
}
