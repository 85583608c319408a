package chat

import (
	"context"
	"fmt"

	"ira/internal/db"
)

// Store is an append-only transcript log.
type Store interface {
	Append(ctx context.Context, m *Message) error
	// ListBySession returns the owner's messages for session, oldest first.
	ListBySession(ctx context.Context, userID, session string) ([]Message, error)
}

type PostgresStore struct {
	db db.DBTX
}

func NewPostgresStore(conn db.DBTX) *PostgresStore {
	return &PostgresStore{db: conn}
}

func (s *PostgresStore) Append(ctx context.Context, m *Message) error {
	const q = `
		INSERT INTO messages (id, user_id, role, text, session, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := s.db.ExecContext(ctx, q, m.ID, m.UserID, m.Role, m.Text, m.Session, m.CreatedAt); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListBySession(ctx context.Context, userID, session string) ([]Message, error) {
	const q = `
		SELECT id, user_id, role, text, session, created_at
		FROM messages
		WHERE user_id = $1 AND session = $2
		ORDER BY created_at ASC, seq ASC
	`
	rows, err := s.db.QueryContext(ctx, q, userID, session)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	res := []Message{}
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.UserID, &m.Role, &m.Text, &m.Session, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		res = append(res, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return res, nil
}
