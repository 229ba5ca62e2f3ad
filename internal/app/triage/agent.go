// Package triage runs the single-turn symptom triage agent: one engine
// conversation with at most a bounded number of knowledge lookups.
package triage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PabloGalante/minidxo/internal/app/knowledge"
	"github.com/PabloGalante/minidxo/internal/app/tools"
	"github.com/PabloGalante/minidxo/internal/domain"
	"github.com/PabloGalante/minidxo/internal/observability"
)

var (
	ErrEmptyReply = errors.New("reasoning engine returned an empty reply")
	// ErrToolLoop is returned when the engine still asks for tools on the
	// last engine call a turn allows.
	ErrToolLoop = errors.New("reasoning engine kept requesting tools without answering")
)

const (
	DefaultTemperature     float32 = 0.0
	DefaultMaxOutputTokens int32   = 1024
)

type Options struct {
	EngineTimeout   time.Duration
	MaxLookups      int
	Temperature     float32
	MaxOutputTokens int32
}

func DefaultOptions() Options {
	return Options{
		EngineTimeout:   60 * time.Second,
		MaxLookups:      tools.DefaultMaxLookups,
		Temperature:     DefaultTemperature,
		MaxOutputTokens: DefaultMaxOutputTokens,
	}
}

// Result is the primary reply of a turn plus what the lookups produced.
type Result struct {
	Reply      string
	Lookups    int
	Provenance domain.Provenance
	Steps      []domain.ToolStep
}

type Agent struct {
	llm    domain.LLMClient
	policy *knowledge.Policy
	opts   Options
}

func NewAgent(llm domain.LLMClient, policy *knowledge.Policy, opts Options) *Agent {
	if opts.MaxLookups < 1 {
		opts.MaxLookups = tools.DefaultMaxLookups
	}
	if opts.MaxOutputTokens <= 0 {
		opts.MaxOutputTokens = DefaultMaxOutputTokens
	}
	return &Agent{llm: llm, policy: policy, opts: opts}
}

func (a *Agent) Name() string {
	return "triage"
}

// Respond produces the assistant reply for window, which must already end
// with the user's latest message. window is not modified.
func (a *Agent) Respond(ctx context.Context, tctx tools.ToolContext, window []*domain.Message) (Result, error) {
	log := observability.LoggerFromContext(ctx).With(
		"session_id", tctx.SessionID,
		"agent", a.Name(),
	)

	box := tools.NewToolbox(a.policy, a.opts.MaxLookups)
	temp := a.opts.Temperature
	var steps []domain.ToolStep

	// One engine call per lookup plus one for the answer.
	maxCalls := a.opts.MaxLookups + 1

	for n := 1; ; n++ {
		last := n >= maxCalls
		req := domain.CompletionRequest{
			System:          SystemPrompt,
			Messages:        window,
			Steps:           steps,
			Temperature:     &temp,
			MaxOutputTokens: a.opts.MaxOutputTokens,
		}
		// Once the budget is spent the engine only gets to answer.
		if !box.Exhausted() && !last {
			req.Tools = box.Descriptors()
		}

		start := time.Now()
		comp, err := a.complete(ctx, req)
		observability.EngineCall(a.Name(), err)
		if err != nil {
			log.Error("engine call failed", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
			return a.result("", box, steps), fmt.Errorf("triage engine call: %w", err)
		}
		log.Info("engine call done",
			"call", n,
			"tool_calls", len(comp.ToolCalls),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)

		if len(comp.ToolCalls) == 0 || box.Exhausted() || last {
			reply := strings.TrimSpace(comp.Content)
			if reply == "" && len(comp.ToolCalls) > 0 {
				log.Warn("engine still requesting tools on its last call", "calls", n)
				return a.result("", box, steps), ErrToolLoop
			}
			if reply == "" {
				return a.result("", box, steps), ErrEmptyReply
			}
			return a.result(reply, box, steps), nil
		}

		for _, call := range comp.ToolCalls {
			if box.Exhausted() {
				log.Warn("dropping tool call over the lookup budget", "tool", call.Name)
				break
			}
			text, err := box.Invoke(ctx, tctx, call)
			if err != nil {
				text = "Error: " + err.Error()
			}
			steps = append(steps, domain.ToolStep{Call: call, Result: text})
		}
	}
}

func (a *Agent) complete(ctx context.Context, req domain.CompletionRequest) (comp *domain.Completion, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("engine panicked: %v", r)
		}
	}()

	if a.opts.EngineTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.opts.EngineTimeout)
		defer cancel()
	}

	comp, err = a.llm.Complete(ctx, req)
	if err == nil && comp == nil {
		err = ErrEmptyReply
	}
	return comp, err
}

func (a *Agent) result(reply string, box *tools.Toolbox, steps []domain.ToolStep) Result {
	return Result{
		Reply:      reply,
		Lookups:    box.Lookups(),
		Provenance: box.Provenance(),
		Steps:      steps,
	}
}
