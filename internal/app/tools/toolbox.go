package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/PabloGalante/minidxo/internal/app/knowledge"
	"github.com/PabloGalante/minidxo/internal/domain"
	"github.com/PabloGalante/minidxo/internal/observability"
)

// DefaultMaxLookups is how many knowledge lookups one turn may run.
const DefaultMaxLookups = 2

var (
	ErrLookupBudget = errors.New("lookup budget for this turn is exhausted")
	ErrUnknownTool  = errors.New("unknown tool")
)

// Toolbox holds the tools for a single turn. It enforces the trusted-first
// order and the lookup cap regardless of what the engine asks for. It is not
// safe for concurrent use; a turn runs its tool calls sequentially.
type Toolbox struct {
	trusted Tool
	web     Tool
	max     int

	lookups       int
	trustedCalled bool
	provenance    domain.Provenance

	// webAnswer is the text of the lookup that already searched the web.
	webQueried bool
	webAnswer  string
	webProv    domain.Provenance
}

// NewToolbox builds a fresh per-turn toolbox over policy.
func NewToolbox(policy *knowledge.Policy, maxLookups int) *Toolbox {
	if maxLookups < 1 {
		maxLookups = DefaultMaxLookups
	}
	return &Toolbox{
		trusted:    NewSearchTrustedTool(policy),
		web:        NewWebSearchTool(policy),
		max:        maxLookups,
		provenance: domain.ProvenanceNone,
	}
}

// Descriptors lists the tools in the order the engine should prefer them.
func (b *Toolbox) Descriptors() []domain.ToolDescriptor {
	return []domain.ToolDescriptor{b.trusted.Descriptor(), b.web.Descriptor()}
}

// Exhausted reports whether no further lookups are allowed this turn.
func (b *Toolbox) Exhausted() bool {
	return b.lookups >= b.max
}

// Lookups is the number of lookups run so far.
func (b *Toolbox) Lookups() int {
	return b.lookups
}

// Provenance of the most recent lookup, or none.
func (b *Toolbox) Provenance() domain.Provenance {
	return b.provenance
}

// Invoke runs one engine tool call and returns the text handed back to the
// engine. A web search requested before any trusted lookup in this turn is
// served by the trusted lookup instead, and the web is searched at most once
// per turn: later web_search calls get the earlier answer back.
func (b *Toolbox) Invoke(ctx context.Context, tctx ToolContext, call domain.ToolCall) (string, error) {
	if b.Exhausted() {
		return "", ErrLookupBudget
	}

	log := observability.LoggerFromContext(ctx).With(
		"session_id", tctx.SessionID,
		"tool", call.Name,
	)

	var tool Tool
	switch call.Name {
	case SearchTrustedName:
		tool = b.trusted
	case WebSearchName:
		tool = b.web
		if !b.trustedCalled {
			log.Info("web search requested before trusted lookup, consulting trusted knowledge first")
			tool = b.trusted
		}
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTool, call.Name)
	}

	b.lookups++
	if tool == b.trusted {
		b.trustedCalled = true
	}

	if tool == b.web && b.webQueried {
		if _, err := requireQuery(WebSearchName, call.Args); err != nil {
			return "", err
		}
		log.Info("web already searched this turn, reusing the answer")
		b.provenance = b.webProv
		return b.webAnswer, nil
	}

	out, err := tool.Call(ctx, tctx, call.Args)
	if err != nil {
		log.Warn("tool call failed", "error", err)
		return "", err
	}

	if p := getString(out, OutputProvenance); p != "" {
		b.provenance = domain.Provenance(p)
	}
	if queried, _ := out[OutputWebQueried].(bool); queried {
		b.webQueried = true
		b.webAnswer = getString(out, OutputResult)
		b.webProv = b.provenance
	}
	log.Info("tool call done", "provenance", b.provenance, "lookups", b.lookups)
	return getString(out, OutputResult), nil
}
