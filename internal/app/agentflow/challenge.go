package agentflow

import (
	"context"
	"fmt"

	"github.com/PabloGalante/minidxo/internal/domain"
)

// ChallengeAgent argues against the current hypothesis.
type ChallengeAgent struct {
	llm domain.LLMClient
}

func NewChallengeAgent(llm domain.LLMClient) *ChallengeAgent {
	return &ChallengeAgent{llm: llm}
}

func (a *ChallengeAgent) Name() string {
	return "Dr. Challenge"
}

func (a *ChallengeAgent) Run(ctx context.Context, in AgentInput) (AgentOutput, error) {
	prompt := fmt.Sprintf(
		"As Dr. Challenge, logically challenge Dr. Hypothesis's possibilities:\n%s",
		in.Hypothesis,
	)

	reply, err := askRole(ctx, a.llm, a.Name(), prompt)
	if err != nil {
		return AgentOutput{}, err
	}
	return AgentOutput{Reply: reply}, nil
}
