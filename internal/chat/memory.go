package chat

import (
	"context"
	"sort"
	"sync"
)

type MemoryStore struct {
	mu       sync.RWMutex
	messages []Message
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(ctx context.Context, m *Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, *m)
	return nil
}

func (s *MemoryStore) ListBySession(ctx context.Context, userID, session string) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res := []Message{}
	for _, m := range s.messages {
		if m.UserID == userID && m.Session == session {
			res = append(res, m)
		}
	}
	// Stable keeps append order for equal timestamps.
	sort.SliceStable(res, func(i, j int) bool {
		return res[i].CreatedAt.Before(res[j].CreatedAt)
	})
	return res, nil
}
