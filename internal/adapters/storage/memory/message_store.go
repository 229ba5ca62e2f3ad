package memory

import (
	"context"
	"sync"

	"github.com/PabloGalante/minidxo/internal/domain"
)

// MessageStore keeps every transcript in process memory.
// It is NOT persistent and is only suitable for development / local mode.
// Messages are stored and returned by value, so appended entries can't be
// changed through a caller's pointer.
type MessageStore struct {
	mu       sync.RWMutex
	messages map[domain.SessionID][]domain.Message
}

func NewMessageStore() *MessageStore {
	return &MessageStore{
		messages: make(map[domain.SessionID][]domain.Message),
	}
}

func (s *MessageStore) AppendMessage(_ context.Context, msg *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages[msg.SessionID] = append(s.messages[msg.SessionID], cloneMessage(msg))
	return nil
}

// GetMessagesBySession returns copies of the last `limit` messages.
func (s *MessageStore) GetMessagesBySession(_ context.Context, sessionID domain.SessionID, limit int) ([]*domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.messages[sessionID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}

	out := make([]*domain.Message, 0, len(msgs))
	for i := range msgs {
		m := cloneMessage(&msgs[i])
		out = append(out, &m)
	}
	return out, nil
}

func cloneMessage(msg *domain.Message) domain.Message {
	m := *msg
	if msg.ReplyTo != nil {
		id := *msg.ReplyTo
		m.ReplyTo = &id
	}
	return m
}
