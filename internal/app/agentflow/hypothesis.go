package agentflow

import (
	"context"
	"fmt"

	"github.com/PabloGalante/minidxo/internal/domain"
)

// HypothesisAgent proposes the initial candidate causes.
type HypothesisAgent struct {
	llm domain.LLMClient
}

func NewHypothesisAgent(llm domain.LLMClient) *HypothesisAgent {
	return &HypothesisAgent{llm: llm}
}

func (a *HypothesisAgent) Name() string {
	return "Dr. Hypothesis"
}

func (a *HypothesisAgent) Run(ctx context.Context, in AgentInput) (AgentOutput, error) {
	prompt := fmt.Sprintf(
		"User symptoms: %s. As Dr. Hypothesis, propose top 3 possible causes.",
		in.Symptoms,
	)

	reply, err := askRole(ctx, a.llm, a.Name(), prompt)
	if err != nil {
		return AgentOutput{}, err
	}
	return AgentOutput{Reply: reply}, nil
}
