package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/heldhq/held/internal/domain"
	"github.com/heldhq/held/internal/ports"
)

// QuotaStore reads and writes the team_quotas relation. Quotas are versioned
// by effective_at; the newest row wins.
type QuotaStore struct {
	db *sql.DB
}

// Latest returns the newest quota of a team or domain.ErrNotFound.
func (s *QuotaStore) Latest(ctx context.Context, teamID string) (domain.Quota, error) {
	var (
		calls, tokens, storage sql.NullInt64
		effective              int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT quota_api_calls_per_day, quota_tokens_per_day, quota_storage_bytes, effective_at
		FROM team_quotas WHERE team_id = ? ORDER BY effective_at DESC, id DESC LIMIT 1`, teamID,
	).Scan(&calls, &tokens, &storage, &effective)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Quota{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Quota{}, err
	}
	return domain.Quota{
		TeamID:         teamID,
		APICallsPerDay: int64Ptr(calls),
		TokensPerDay:   int64Ptr(tokens),
		StorageBytes:   int64Ptr(storage),
		EffectiveAt:    time.UnixMicro(effective).UTC(),
	}, nil
}

// Insert adds a new quota version.
func (s *QuotaStore) Insert(ctx context.Context, q domain.Quota) error {
	effective := q.EffectiveAt
	if effective.IsZero() {
		effective = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO team_quotas
		(team_id, quota_api_calls_per_day, quota_tokens_per_day, quota_storage_bytes, effective_at)
		VALUES (?, ?, ?, ?, ?)`,
		q.TeamID, nullInt64(q.APICallsPerDay), nullInt64(q.TokensPerDay), nullInt64(q.StorageBytes),
		effective.UTC().UnixMicro())
	return err
}

var _ ports.QuotaRepository = (*QuotaStore)(nil)
