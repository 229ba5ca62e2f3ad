// Package testutil holds thread-safe fakes of the collaborator ports with
// error injection and call counters.
package testutil

import (
	"context"
	"sync"

	"github.com/PabloGalante/minidxo/internal/domain"
)

// MockIndex is a scripted domain.KnowledgeIndex.
type MockIndex struct {
	mu sync.Mutex

	Passages []string
	Err      error
	Panic    bool

	Calls   int
	Queries []string
	LastK   int
}

func NewMockIndex(passages ...string) *MockIndex {
	return &MockIndex{Passages: passages}
}

func (m *MockIndex) Query(_ context.Context, text string, k int) ([]domain.Passage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	m.Queries = append(m.Queries, text)
	m.LastK = k
	if m.Panic {
		panic("index exploded")
	}
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]domain.Passage, 0, len(m.Passages))
	for _, p := range m.Passages {
		out = append(out, domain.Passage{Text: p, Source: domain.ProvenanceTrusted})
	}
	return out, nil
}

func (m *MockIndex) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls
}

// MockWeb is a scripted domain.WebSearch.
type MockWeb struct {
	mu sync.Mutex

	Result string
	Err    error

	Calls   int
	Queries []string
}

func NewMockWeb(result string) *MockWeb {
	return &MockWeb{Result: result}
}

func (m *MockWeb) Search(_ context.Context, query string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	m.Queries = append(m.Queries, query)
	if m.Err != nil {
		return "", m.Err
	}
	return m.Result, nil
}

func (m *MockWeb) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls
}

// MockPublisher records published turn events.
type MockPublisher struct {
	mu     sync.Mutex
	Events []domain.TurnEvent
	Err    error
}

func (m *MockPublisher) PublishTurn(_ context.Context, evt domain.TurnEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Events = append(m.Events, evt)
	return nil
}

func (m *MockPublisher) Published() []domain.TurnEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.TurnEvent, len(m.Events))
	copy(out, m.Events)
	return out
}
