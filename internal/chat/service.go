package chat

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Service struct {
	store    Store
	resolver *Resolver
	now      func() time.Time
}

func NewService(store Store, resolver *Resolver) *Service {
	return &Service{store: store, resolver: resolver, now: time.Now}
}

// Append records one turn. Text and session are stored as given; the first
// message of a session is what creates it.
func (s *Service) Append(ctx context.Context, userID string, role Role, text, session string) (*Message, error) {
	m := &Message{
		ID:        uuid.NewString(),
		UserID:    userID,
		Role:      role,
		Text:      text,
		Session:   session,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.Append(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Send logs the user's turn, resolves the bot reply and logs that too. The
// returned message is the bot's.
func (s *Service) Send(ctx context.Context, userID, text, session string) (*Message, error) {
	if _, err := s.Append(ctx, userID, RoleUser, text, session); err != nil {
		return nil, err
	}
	return s.Append(ctx, userID, RoleBot, s.resolver.Resolve(text), session)
}

func (s *Service) History(ctx context.Context, userID, session string) ([]Message, error) {
	return s.store.ListBySession(ctx, userID, session)
}
