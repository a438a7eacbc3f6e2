package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/heldhq/held/internal/domain"
	"github.com/heldhq/held/internal/ports"
)

// MemoryStore reads and writes the conversation memory relation.
type MemoryStore struct {
	db    *sql.DB
	table string
}

// Get returns the raw message array of a session or domain.ErrNotFound.
func (s *MemoryStore) Get(ctx context.Context, userID, sessionID string) (json.RawMessage, error) {
	var messages string
	query := fmt.Sprintf(`SELECT messages FROM %s WHERE user_id = ? AND session_id = ?`, s.table)
	err := s.db.QueryRowContext(ctx, query, userID, sessionID).Scan(&messages)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return json.RawMessage(messages), nil
}

// Upsert replaces the message array of a session (last write wins).
func (s *MemoryStore) Upsert(ctx context.Context, userID, sessionID string, messages json.RawMessage) error {
	query := fmt.Sprintf(`INSERT INTO %s (user_id, session_id, messages, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, session_id) DO UPDATE SET
			messages = excluded.messages,
			updated_at = excluded.updated_at`, s.table)
	_, err := s.db.ExecContext(ctx, query, userID, sessionID, string(messages),
		time.Now().UTC().Format(time.RFC3339Nano))
	return err
}

// Delete removes a session. Deleting a missing session is not an error.
func (s *MemoryStore) Delete(ctx context.Context, userID, sessionID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE user_id = ? AND session_id = ?`, s.table)
	_, err := s.db.ExecContext(ctx, query, userID, sessionID)
	return err
}

var _ ports.MemoryRepository = (*MemoryStore)(nil)
