// Package knowledge decides which knowledge source answers a symptom query.
// The curated index is always consulted first; the web is only used when the
// index has nothing to offer.
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PabloGalante/minidxo/internal/domain"
	"github.com/PabloGalante/minidxo/internal/observability"
)

// PassageSeparator sits between concatenated trusted passages.
const PassageSeparator = "\n---\n"

// NoInformation is returned as evidence text when no source had anything.
const NoInformation = "No relevant information found in the trusted knowledge base or on the web."

var (
	ErrNoPassages = errors.New("trusted knowledge base returned no passages")
	ErrEmptyWeb   = errors.New("web search returned no results")
)

// Evidence is the tagged result of a lookup. It never carries a Go error
// to the caller as a failure: TrustedErr and WebErr only describe what
// happened at each source.
type Evidence struct {
	Query      string
	Text       string
	Provenance domain.Provenance
	Passages   []domain.Passage

	TrustedErr error // nil when the index was not queried or returned passages
	WebErr     error // nil when the web was not queried or answered
	WebQueried bool
}

// Found reports whether any source produced usable text.
func (e Evidence) Found() bool {
	return e.Provenance == domain.ProvenanceTrusted || e.Provenance == domain.ProvenanceWeb
}

// Policy is the trusted-first lookup policy.
type Policy struct {
	index   domain.KnowledgeIndex
	web     domain.WebSearch
	topK    int
	timeout time.Duration
}

// NewPolicy builds a Policy. web may be nil, in which case an empty trusted
// result goes straight to the NoInformation sentinel.
func NewPolicy(index domain.KnowledgeIndex, web domain.WebSearch, topK int, timeout time.Duration) *Policy {
	if topK < 1 {
		topK = 2
	}
	return &Policy{
		index:   index,
		web:     web,
		topK:    topK,
		timeout: timeout,
	}
}

// Lookup queries the trusted index and stops there if it returned at least
// one passage. Otherwise it asks the web exactly once with the same query.
func (p *Policy) Lookup(ctx context.Context, query string) Evidence {
	log := observability.LoggerFromContext(ctx).With("query", query)
	ev := Evidence{Query: query, Provenance: domain.ProvenanceNone}

	passages, err := p.queryIndex(ctx, query)
	switch {
	case err != nil:
		ev.TrustedErr = err
		log.Warn("trusted lookup failed", "error", err)
	case len(passages) == 0:
		ev.TrustedErr = ErrNoPassages
		log.Info("trusted lookup empty")
	default:
		ev.Passages = passages
		ev.Text = joinPassages(passages)
		ev.Provenance = domain.ProvenanceTrusted
		log.Info("trusted lookup hit", "passages", len(passages))
		observability.LookupsTotal.WithLabelValues(string(ev.Provenance)).Inc()
		return ev
	}

	p.searchWeb(ctx, &ev)
	observability.LookupsTotal.WithLabelValues(string(ev.Provenance)).Inc()
	return ev
}

// Escalate goes to the web directly. It is used when the agent judged a
// previous trusted result insufficient.
func (p *Policy) Escalate(ctx context.Context, query string) Evidence {
	ev := Evidence{Query: query, Provenance: domain.ProvenanceNone}
	p.searchWeb(ctx, &ev)
	observability.LookupsTotal.WithLabelValues(string(ev.Provenance)).Inc()
	return ev
}

func (p *Policy) queryIndex(ctx context.Context, query string) (passages []domain.Passage, err error) {
	if p.index == nil {
		return nil, errors.New("no trusted knowledge index configured")
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("trusted lookup panicked: %v", r)
		}
	}()

	cctx, cancel := p.withTimeout(ctx)
	defer cancel()

	return p.index.Query(cctx, query, p.topK)
}

func (p *Policy) searchWeb(ctx context.Context, ev *Evidence) {
	log := observability.LoggerFromContext(ctx).With("query", ev.Query)

	if p.web == nil {
		ev.WebErr = errors.New("no web search configured")
		ev.Text = NoInformation
		return
	}

	ev.WebQueried = true
	text, err := p.callWeb(ctx, ev.Query)
	if err == nil && strings.TrimSpace(text) == "" {
		err = ErrEmptyWeb
	}
	if err != nil {
		ev.WebErr = err
		ev.Text = NoInformation
		log.Warn("web search failed", "error", err)
		return
	}

	ev.Text = strings.TrimSpace(text)
	ev.Provenance = domain.ProvenanceWeb
	log.Info("web search hit", "chars", len(ev.Text))
}

func (p *Policy) callWeb(ctx context.Context, query string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("web search panicked: %v", r)
		}
	}()

	cctx, cancel := p.withTimeout(ctx)
	defer cancel()

	return p.web.Search(cctx, query)
}

func (p *Policy) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.timeout)
}

func joinPassages(passages []domain.Passage) string {
	parts := make([]string, 0, len(passages))
	for _, ps := range passages {
		parts = append(parts, ps.Text)
	}
	return strings.Join(parts, PassageSeparator)
}

// Render formats evidence the way it is handed back to the reasoning engine.
func Render(ev Evidence) string {
	switch ev.Provenance {
	case domain.ProvenanceTrusted:
		return "[source: trusted knowledge base]\n" + ev.Text
	case domain.ProvenanceWeb:
		return "[source: web search]\n" + ev.Text
	}

	var b strings.Builder
	b.WriteString(NoInformation)
	if ev.TrustedErr != nil && !errors.Is(ev.TrustedErr, ErrNoPassages) {
		fmt.Fprintf(&b, "\nError during semantic search: %v", ev.TrustedErr)
	}
	if ev.WebErr != nil {
		fmt.Fprintf(&b, "\nError during web search: %v", ev.WebErr)
	}
	return b.String()
}
