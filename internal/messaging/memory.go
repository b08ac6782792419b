package messaging

import (
	"context"
	"sort"
	"sync"

	"github.com/impulso-digital/plataforma/internal/shared/errors"
	"github.com/impulso-digital/plataforma/internal/shared/types"
)

// MemoryStore is an in-memory message store for degraded mode and
// tests.
type MemoryStore struct {
	mu       sync.RWMutex
	messages map[string]*Message
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{messages: make(map[string]*Message)}
}

func (s *MemoryStore) Insert(ctx context.Context, msg *Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.messages[msg.ID]; ok {
		return errors.Conflict("message with this ID already exists")
	}

	copied := *msg
	copied.ReadBy = append([]types.ID(nil), msg.ReadBy...)
	s.messages[msg.ID] = &copied
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msg, ok := s.messages[id]
	if !ok {
		return nil, errors.NotFound("message", id)
	}
	copied := *msg
	copied.ReadBy = append([]types.ID(nil), msg.ReadBy...)
	return &copied, nil
}

func (s *MemoryStore) List(ctx context.Context, filter Filter) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var messages []Message
	for _, msg := range s.messages {
		if filter.Type != nil && msg.Type != *filter.Type {
			continue
		}
		if filter.ThreadID != "" && msg.ThreadID != filter.ThreadID {
			continue
		}
		copied := *msg
		copied.ReadBy = append([]types.ID(nil), msg.ReadBy...)
		messages = append(messages, copied)
	}

	// Newest first; ULIDs sort lexicographically by creation time.
	sort.Slice(messages, func(i, j int) bool {
		return messages[i].ID > messages[j].ID
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(messages) {
			return nil, nil
		}
		messages = messages[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(messages) {
		messages = messages[:filter.Limit]
	}

	return messages, nil
}

func (s *MemoryStore) MarkRead(ctx context.Context, id string, reader types.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.messages[id]
	if !ok {
		return errors.NotFound("message", id)
	}

	for _, existing := range msg.ReadBy {
		if existing == reader {
			return nil
		}
	}
	msg.ReadBy = append(msg.ReadBy, reader)
	return nil
}
