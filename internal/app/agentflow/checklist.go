package agentflow

import (
	"context"
	"fmt"

	"github.com/PabloGalante/minidxo/internal/domain"
)

// ChecklistAgent reconciles hypothesis and challenge into a refined statement.
type ChecklistAgent struct {
	llm domain.LLMClient
}

func NewChecklistAgent(llm domain.LLMClient) *ChecklistAgent {
	return &ChecklistAgent{llm: llm}
}

func (a *ChecklistAgent) Name() string {
	return "Dr. Checklist"
}

func (a *ChecklistAgent) Run(ctx context.Context, in AgentInput) (AgentOutput, error) {
	prompt := fmt.Sprintf(
		"As Dr. Checklist, ensure clinical consistency between these points and refine final thought:\nHypothesis: %s\nChallenge: %s",
		in.Hypothesis,
		in.Challenge,
	)

	reply, err := askRole(ctx, a.llm, a.Name(), prompt)
	if err != nil {
		return AgentOutput{}, err
	}
	return AgentOutput{Reply: reply}, nil
}
