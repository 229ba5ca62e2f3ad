// Package agentflow runs the doctor panel: a hypothesis is challenged and
// checked repeatedly until a round reads as a conclusion or the round cap
// is reached.
package agentflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PabloGalante/minidxo/internal/domain"
	"github.com/PabloGalante/minidxo/internal/observability"
)

const DefaultMaxRounds = 5

// SectionHeader introduces the consensus text appended to a reply.
const SectionHeader = "\n\n---\nPanel consensus:\n"

// Consensus is the outcome of one panel run.
type Consensus struct {
	Initial string // Dr. Hypothesis's opening proposal
	Final   string
	Rounds  []domain.ConsensusRound

	// Early is true when a round carried a conclusion marker before the cap.
	Early bool
	// Err is set when a role call failed and the run was abandoned.
	Err error
}

// Completed reports whether the panel produced a final statement.
func (c Consensus) Completed() bool {
	return c.Err == nil && c.Final != ""
}

// Section renders the final statement as a delimited reply section, or ""
// if the panel did not complete.
func (c Consensus) Section() string {
	if !c.Completed() {
		return ""
	}
	return SectionHeader + c.Final
}

// Panel is the consensus loop over three role agents.
type Panel struct {
	hypothesis Agent
	challenge  Agent
	checklist  Agent
	maxRounds  int
	timeout    time.Duration
}

// NewPanel builds the default Dr. Hypothesis / Dr. Challenge / Dr. Checklist
// panel. maxRounds <= 0 means DefaultMaxRounds. timeout bounds each role
// call; zero disables it.
func NewPanel(llm domain.LLMClient, maxRounds int, timeout time.Duration) *Panel {
	return NewPanelWithAgents(
		NewHypothesisAgent(llm),
		NewChallengeAgent(llm),
		NewChecklistAgent(llm),
		maxRounds,
		timeout,
	)
}

func NewPanelWithAgents(hypothesis, challenge, checklist Agent, maxRounds int, timeout time.Duration) *Panel {
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}
	return &Panel{
		hypothesis: hypothesis,
		challenge:  challenge,
		checklist:  checklist,
		maxRounds:  maxRounds,
		timeout:    timeout,
	}
}

// Run debates symptoms and never returns an error directly; failures are
// reported in Consensus.Err.
func (p *Panel) Run(ctx context.Context, symptoms string) Consensus {
	log := observability.LoggerFromContext(ctx).With("max_rounds", p.maxRounds)
	log.Info("panel started")

	var out Consensus

	h0, err := p.run(ctx, p.hypothesis, AgentInput{Symptoms: symptoms})
	if err != nil {
		out.Err = err
		return out
	}
	out.Initial = h0

	hypothesis := h0
	for i := 1; i <= p.maxRounds; i++ {
		challenge, err := p.run(ctx, p.challenge, AgentInput{
			Symptoms:   symptoms,
			Hypothesis: hypothesis,
			Iteration:  i,
		})
		if err != nil {
			out.Err = err
			break
		}

		checked, err := p.run(ctx, p.checklist, AgentInput{
			Symptoms:   symptoms,
			Hypothesis: hypothesis,
			Challenge:  challenge,
			Iteration:  i,
		})
		if err != nil {
			out.Err = err
			break
		}

		out.Rounds = append(out.Rounds, domain.ConsensusRound{
			Iteration:  i,
			Hypothesis: hypothesis,
			Challenge:  challenge,
			Checklist:  checked,
		})

		concluded := HasConclusionMarker(checked)
		if concluded || i == p.maxRounds {
			out.Final = checked
			out.Early = concluded && i < p.maxRounds
			break
		}
		hypothesis = checked
	}

	observability.ConsensusRounds.Observe(float64(len(out.Rounds)))
	if out.Err != nil {
		log.Warn("panel aborted", "rounds", len(out.Rounds), "error", out.Err)
		return out
	}
	log.Info("panel finished", "rounds", len(out.Rounds), "early", out.Early)
	return out
}

func (p *Panel) run(ctx context.Context, ag Agent, in AgentInput) (reply string, err error) {
	log := observability.LoggerFromContext(ctx).With("agent", ag.Name(), "iteration", in.Iteration)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s panicked: %v", ag.Name(), r)
		}
	}()

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := ag.Run(ctx, in)
	if err != nil {
		log.Error("agent failed", "error", err)
		return "", err
	}
	log.Info("agent run end", "elapsed_ms", time.Since(start).Milliseconds())
	return out.Reply, nil
}

// HasConclusionMarker reports whether text contains "final" or
// "conclusion", ignoring case. It matches substrings, so "finally" counts.
func HasConclusionMarker(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(lower, "final") || strings.Contains(lower, "conclusion")
}
