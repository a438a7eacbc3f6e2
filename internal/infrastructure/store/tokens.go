package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/heldhq/held/internal/domain"
	"github.com/heldhq/held/internal/ports"
)

const tokenPrefix = "held_"

// TokenStore keeps locally issued API tokens.
type TokenStore struct {
	db *sql.DB
}

// Issue creates a new random token for the identity.
func (s *TokenStore) Issue(ctx context.Context, id domain.Identity) (string, error) {
	token := tokenPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
	_, err := s.db.ExecContext(ctx, `INSERT INTO api_tokens (token, user_id, email, created_at) VALUES (?, ?, ?, ?)`,
		token, id.UserID, nullString(id.Email), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return "", err
	}
	return token, nil
}

// Lookup resolves a token or returns domain.ErrNotFound.
func (s *TokenStore) Lookup(ctx context.Context, token string) (domain.Identity, error) {
	var (
		id    domain.Identity
		email sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `SELECT user_id, email FROM api_tokens WHERE token = ?`, token).
		Scan(&id.UserID, &email)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Identity{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Identity{}, err
	}
	id.Email = email.String
	return id, nil
}

var _ ports.TokenRepository = (*TokenStore)(nil)
