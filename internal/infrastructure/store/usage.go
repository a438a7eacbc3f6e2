package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/heldhq/held/internal/domain"
	"github.com/heldhq/held/internal/ports"
)

// UsageStore reads and writes the team_usage_daily relation.
type UsageStore struct {
	db *sql.DB
}

// Get returns one member's row for a day or domain.ErrNotFound.
func (s *UsageStore) Get(ctx context.Context, teamID, userID, day string) (domain.UsageRow, error) {
	row := domain.UsageRow{TeamID: teamID, UserID: userID, Day: day}
	var updated sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT api_calls, token_count, storage_bytes, updated_at
		FROM team_usage_daily WHERE team_id = ? AND user_id = ? AND day = ?`,
		teamID, userID, day,
	).Scan(&row.APICalls, &row.TokenCount, &row.StorageBytes, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.UsageRow{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.UsageRow{}, err
	}
	row.UpdatedAt = parseTime(updated)
	return row, nil
}

// ForTeamDay returns every member's row of a team for a day.
func (s *UsageStore) ForTeamDay(ctx context.Context, teamID, day string) ([]domain.UsageRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id, api_calls, token_count, storage_bytes, updated_at
		FROM team_usage_daily WHERE team_id = ? AND day = ? ORDER BY user_id`, teamID, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.UsageRow
	for rows.Next() {
		row := domain.UsageRow{TeamID: teamID, Day: day}
		var updated sql.NullString
		if err := rows.Scan(&row.UserID, &row.APICalls, &row.TokenCount, &row.StorageBytes, &updated); err != nil {
			return nil, err
		}
		row.UpdatedAt = parseTime(updated)
		out = append(out, row)
	}
	return out, rows.Err()
}

// Upsert writes a member's row, replacing the counters on conflict.
func (s *UsageStore) Upsert(ctx context.Context, row domain.UsageRow) error {
	updated := row.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO team_usage_daily
		(team_id, user_id, day, api_calls, token_count, storage_bytes, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(team_id, user_id, day) DO UPDATE SET
			api_calls = excluded.api_calls,
			token_count = excluded.token_count,
			storage_bytes = excluded.storage_bytes,
			updated_at = excluded.updated_at`,
		row.TeamID, row.UserID, row.Day, row.APICalls, row.TokenCount, row.StorageBytes,
		updated.UTC().Format(time.RFC3339Nano))
	return err
}

func parseTime(v sql.NullString) time.Time {
	if !v.Valid {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, v.String)
	if err != nil {
		return time.Time{}
	}
	return t
}

var _ ports.UsageRepository = (*UsageStore)(nil)
