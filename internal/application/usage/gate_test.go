package usage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heldhq/held/internal/domain"
	"github.com/heldhq/held/internal/pkg/logger"
)

func TestEstimateCostBoundaries(t *testing.T) {
	cases := []struct {
		length int
		want   int
	}{
		{0, 5}, {49, 5}, {50, 6}, {99, 6}, {100, 7}, {199, 7}, {200, 8}, {399, 8}, {400, 9}, {5000, 9},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, EstimateCost(strings.Repeat("x", tc.length)), "length %d", tc.length)
	}
}

func TestEstimateCostCountsCharacters(t *testing.T) {
	assert.Equal(t, 5, EstimateCost(strings.Repeat("é", 49)))
	assert.Equal(t, 6, EstimateCost(strings.Repeat("é", 50)))
}

func TestCheckWithoutQuotaFailsOpen(t *testing.T) {
	usage := newStubUsage()
	usage.rows = append(usage.rows, domain.UsageRow{TeamID: "t1", UserID: "u1", Day: "2025-06-01", APICalls: 1_000_000, TokenCount: 1_000_000})
	gate := newTestGate(usage, &stubQuotas{err: domain.ErrNotFound}, nil)

	assert.Nil(t, gate.Check(context.Background(), "u1", "t1", 9))
}

func TestCheckOrderCallsBeforeTokensBeforeStorage(t *testing.T) {
	usage := newStubUsage()
	usage.rows = append(usage.rows,
		domain.UsageRow{TeamID: "t1", UserID: "u1", Day: "2025-06-01", APICalls: 3, TokenCount: 40, StorageBytes: 500},
		domain.UsageRow{TeamID: "t1", UserID: "u2", Day: "2025-06-01", APICalls: 2, TokenCount: 50, StorageBytes: 600},
	)

	all := &stubQuotas{quota: domain.Quota{APICallsPerDay: i64(5), TokensPerDay: i64(90), StorageBytes: i64(1000)}}
	v := newTestGate(usage, all, nil).Check(context.Background(), "u1", "t1", 5)
	require.NotNil(t, v)
	assert.Equal(t, domain.QuotaCalls, v.Dimension)
	assert.Contains(t, v.Message, "API calls")

	tokens := &stubQuotas{quota: domain.Quota{TokensPerDay: i64(94), StorageBytes: i64(1000)}}
	v = newTestGate(usage, tokens, nil).Check(context.Background(), "u1", "t1", 5)
	require.NotNil(t, v)
	assert.Equal(t, domain.QuotaTokens, v.Dimension)

	storage := &stubQuotas{quota: domain.Quota{TokensPerDay: i64(95), StorageBytes: i64(1000)}}
	v = newTestGate(usage, storage, nil).Check(context.Background(), "u1", "t1", 5)
	require.NotNil(t, v)
	assert.Equal(t, domain.QuotaStorage, v.Dimension)

	roomy := &stubQuotas{quota: domain.Quota{APICallsPerDay: i64(6), TokensPerDay: i64(95), StorageBytes: i64(1100)}}
	assert.Nil(t, newTestGate(usage, roomy, nil).Check(context.Background(), "u1", "t1", 5))
}

func TestCheckIgnoresOtherDays(t *testing.T) {
	usage := newStubUsage()
	usage.rows = append(usage.rows, domain.UsageRow{TeamID: "t1", UserID: "u1", Day: "2025-05-31", APICalls: 10})
	gate := newTestGate(usage, &stubQuotas{quota: domain.Quota{APICallsPerDay: i64(1)}}, nil)

	assert.Nil(t, gate.Check(context.Background(), "u1", "t1", 5))
}

func TestCheckLookupErrorHonoursFailOpenFlag(t *testing.T) {
	quotas := &stubQuotas{err: errors.New("connection refused")}

	gate := newTestGate(newStubUsage(), quotas, nil)
	assert.Nil(t, gate.Check(context.Background(), "u1", "t1", 5))

	gate.FailOpenOnLookupError = false
	v := gate.Check(context.Background(), "u1", "t1", 5)
	require.NotNil(t, v)
	assert.Equal(t, domain.QuotaLookup, v.Dimension)

	usage := newStubUsage()
	usage.listErr = errors.New("timeout")
	strict := newTestGate(usage, &stubQuotas{quota: domain.Quota{APICallsPerDay: i64(100)}}, nil)
	strict.FailOpenOnLookupError = false
	require.NotNil(t, strict.Check(context.Background(), "u1", "t1", 5))
}

func TestRecordIncrementsCallsAndTokens(t *testing.T) {
	usage := newStubUsage()
	usage.rows = append(usage.rows, domain.UsageRow{TeamID: "t1", UserID: "u1", Day: "2025-06-01", APICalls: 2, TokenCount: 10, StorageBytes: 77})
	gate := newTestGate(usage, &stubQuotas{err: domain.ErrNotFound}, nil)

	gate.Record(context.Background(), "u1", "t1", 6)

	row, err := usage.Get(context.Background(), "t1", "u1", "2025-06-01")
	require.NoError(t, err)
	assert.Equal(t, int64(3), row.APICalls)
	assert.Equal(t, int64(16), row.TokenCount)
	assert.Equal(t, int64(77), row.StorageBytes)
}

func TestRecordCreatesRowAndStorageIsSeparate(t *testing.T) {
	usage := newStubUsage()
	gate := newTestGate(usage, &stubQuotas{err: domain.ErrNotFound}, nil)

	gate.Record(context.Background(), "u1", "t1", 5)
	gate.RecordStorage(context.Background(), "u1", "t1", 1024)

	row, err := usage.Get(context.Background(), "t1", "u1", "2025-06-01")
	require.NoError(t, err)
	assert.Equal(t, int64(1), row.APICalls)
	assert.Equal(t, int64(5), row.TokenCount)
	assert.Equal(t, int64(1024), row.StorageBytes)
}

func TestRecordSkipsWriteWhenReadFails(t *testing.T) {
	usage := newStubUsage()
	usage.getErr = errors.New("locked")
	gate := newTestGate(usage, &stubQuotas{err: domain.ErrNotFound}, nil)

	gate.Record(context.Background(), "u1", "t1", 5)
	assert.Zero(t, usage.upserts)
}

func TestDayUsesProfileTimezone(t *testing.T) {
	profiles := &stubProfiles{profiles: map[string]domain.Profile{
		"tokyo":   {UserID: "tokyo", Timezone: "Asia/Tokyo"},
		"invalid": {UserID: "invalid", Timezone: "Mars/Olympus"},
	}}
	gate := newTestGate(newStubUsage(), &stubQuotas{err: domain.ErrNotFound}, profiles)
	gate.Now = func() time.Time { return time.Date(2025, 6, 1, 20, 30, 0, 0, time.UTC) }

	assert.Equal(t, "2025-06-02", gate.Day(context.Background(), "tokyo"))
	assert.Equal(t, "2025-06-01", gate.Day(context.Background(), "invalid"))
	assert.Equal(t, "2025-06-01", gate.Day(context.Background(), "nobody"))
}

func TestTodayReportsTotalsAndQuota(t *testing.T) {
	usage := newStubUsage()
	usage.rows = append(usage.rows,
		domain.UsageRow{TeamID: "t1", UserID: "u1", Day: "2025-06-01", APICalls: 1, TokenCount: 5},
		domain.UsageRow{TeamID: "t1", UserID: "u2", Day: "2025-06-01", APICalls: 2, TokenCount: 12},
	)
	gate := newTestGate(usage, &stubQuotas{quota: domain.Quota{APICallsPerDay: i64(50)}}, nil)

	day, total, quota, err := gate.Today(context.Background(), "u1", "t1")
	require.NoError(t, err)
	assert.Equal(t, "2025-06-01", day)
	assert.Equal(t, int64(3), total.APICalls)
	assert.Equal(t, int64(17), total.TokenCount)
	require.NotNil(t, quota)
	assert.Equal(t, int64(50), *quota.APICallsPerDay)
}

func newTestGate(usage *stubUsage, quotas *stubQuotas, profiles *stubProfiles) *Gate {
	if profiles == nil {
		profiles = &stubProfiles{}
	}
	g := NewGate(usage, quotas, profiles, logger.NewNop())
	g.Now = func() time.Time { return time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC) }
	return g
}

func i64(v int64) *int64 { return &v }

type stubUsage struct {
	rows    []domain.UsageRow
	getErr  error
	listErr error
	upserts int
}

func newStubUsage() *stubUsage { return &stubUsage{} }

func (s *stubUsage) Get(_ context.Context, teamID, userID, day string) (domain.UsageRow, error) {
	if s.getErr != nil {
		return domain.UsageRow{}, s.getErr
	}
	for _, row := range s.rows {
		if row.TeamID == teamID && row.UserID == userID && row.Day == day {
			return row, nil
		}
	}
	return domain.UsageRow{}, domain.ErrNotFound
}

func (s *stubUsage) ForTeamDay(_ context.Context, teamID, day string) ([]domain.UsageRow, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []domain.UsageRow
	for _, row := range s.rows {
		if row.TeamID == teamID && row.Day == day {
			out = append(out, row)
		}
	}
	return out, nil
}

func (s *stubUsage) Upsert(_ context.Context, row domain.UsageRow) error {
	s.upserts++
	for i, existing := range s.rows {
		if existing.TeamID == row.TeamID && existing.UserID == row.UserID && existing.Day == row.Day {
			s.rows[i] = row
			return nil
		}
	}
	s.rows = append(s.rows, row)
	return nil
}

type stubQuotas struct {
	quota domain.Quota
	err   error
}

func (s *stubQuotas) Latest(context.Context, string) (domain.Quota, error) {
	return s.quota, s.err
}

func (s *stubQuotas) Insert(context.Context, domain.Quota) error { return nil }

type stubProfiles struct {
	profiles map[string]domain.Profile
}

func (s *stubProfiles) Get(_ context.Context, userID string) (domain.Profile, error) {
	p, ok := s.profiles[userID]
	if !ok {
		return domain.Profile{}, domain.ErrNotFound
	}
	return p, nil
}

func (s *stubProfiles) Upsert(context.Context, domain.Profile) error { return nil }
