package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/heldhq/held/internal/domain"
	"github.com/heldhq/held/internal/ports"
)

// ProfileStore reads and writes the profiles relation.
type ProfileStore struct {
	db *sql.DB
}

// Get returns the profile of userID or domain.ErrNotFound.
func (s *ProfileStore) Get(ctx context.Context, userID string) (domain.Profile, error) {
	var email, team, tz sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT email, default_team_id, timezone FROM profiles WHERE user_id = ?`, userID,
	).Scan(&email, &team, &tz)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Profile{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Profile{}, err
	}
	return domain.Profile{
		UserID:        userID,
		Email:         email.String,
		DefaultTeamID: team.String,
		Timezone:      tz.String,
	}, nil
}

// Upsert creates or replaces a profile.
func (s *ProfileStore) Upsert(ctx context.Context, p domain.Profile) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO profiles (user_id, email, default_team_id, timezone)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			email = excluded.email,
			default_team_id = excluded.default_team_id,
			timezone = excluded.timezone`,
		p.UserID, nullString(p.Email), nullString(p.DefaultTeamID), nullString(p.Timezone))
	return err
}

var _ ports.ProfileRepository = (*ProfileStore)(nil)
