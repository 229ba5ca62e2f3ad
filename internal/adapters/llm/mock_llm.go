package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/PabloGalante/minidxo/internal/domain"
)

// MockResponse is one scripted engine answer.
type MockResponse struct {
	Completion *domain.Completion
	Err        error
}

// MockLLM answers from a queue of scripted responses, then from Respond if
// set, then with a deterministic default that walks through one lookup and
// a "thought process" reply. It records every request it sees.
type MockLLM struct {
	mu       sync.Mutex
	queue    []MockResponse
	requests []domain.CompletionRequest

	Respond func(req domain.CompletionRequest) (*domain.Completion, error)
}

func NewMockLLM() *MockLLM {
	return &MockLLM{}
}

// Enqueue appends scripted responses, consumed in order.
func (m *MockLLM) Enqueue(rs ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, rs...)
}

// Requests returns a copy of the requests received so far.
func (m *MockLLM) Requests() []domain.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.CompletionRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

func (m *MockLLM) Complete(ctx context.Context, req domain.CompletionRequest) (*domain.Completion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.requests = append(m.requests, req)
	if len(m.queue) > 0 {
		r := m.queue[0]
		m.queue = m.queue[1:]
		m.mu.Unlock()
		return r.Completion, r.Err
	}
	respond := m.Respond
	m.mu.Unlock()

	if respond != nil {
		return respond(req)
	}
	return defaultCompletion(req), nil
}

// Text is a shorthand for a text-only scripted response.
func Text(s string) MockResponse {
	return MockResponse{Completion: &domain.Completion{Content: s}}
}

// Call is a shorthand for a scripted single tool call.
func Call(tool, query string) MockResponse {
	return MockResponse{Completion: &domain.Completion{
		ToolCalls: []domain.ToolCall{{ID: tool, Name: tool, Args: map[string]any{"query": query}}},
	}}
}

// Fail is a shorthand for a scripted engine error.
func Fail(err error) MockResponse {
	return MockResponse{Err: err}
}

func defaultCompletion(req domain.CompletionRequest) *domain.Completion {
	last := lastUserText(req.Messages)

	if len(req.Tools) > 0 && len(req.Steps) == 0 && last != "" {
		return &domain.Completion{ToolCalls: []domain.ToolCall{{
			ID:   "mock-1",
			Name: req.Tools[0].Name,
			Args: map[string]any{"query": last},
		}}}
	}

	if len(req.Steps) > 0 {
		found := req.Steps[len(req.Steps)-1].Result
		return &domain.Completion{Content: fmt.Sprintf(
			"Here is my thought process: you reported %q. The search found:\n%s\nThis is a probable explanation, not a definitive diagnosis. Please see a healthcare professional.",
			last, found,
		)}
	}

	if strings.HasPrefix(last, "As Dr. Checklist") {
		return &domain.Completion{Content: "Final conclusion: the points above are clinically consistent."}
	}
	if req.System == "" && last != "" {
		return &domain.Completion{Content: "Noted: " + firstLine(last)}
	}
	return &domain.Completion{Content: "Could you describe your symptoms, when they started and how severe they are?"}
}

func lastUserText(msgs []*domain.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Author == domain.RoleUser {
			return msgs[i].Text
		}
	}
	return ""
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
