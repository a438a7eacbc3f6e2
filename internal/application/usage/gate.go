// Package usage meters recall requests against team quotas.
//
// Enforcement is best-effort: usage is read and then written without a
// transaction, so concurrent requests of the same member on the same day can
// under-count, and lookup failures let the request through unless
// FailOpenOnLookupError is disabled.
package usage

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/heldhq/held/internal/domain"
	"github.com/heldhq/held/internal/pkg/logger"
	"github.com/heldhq/held/internal/ports"
)

// EstimateCost maps query length to a coarse token cost between 5 and 9.
func EstimateCost(query string) int {
	n := utf8.RuneCountInString(query)
	switch {
	case n < 50:
		return 5
	case n < 100:
		return 6
	case n < 200:
		return 7
	case n < 400:
		return 8
	default:
		return 9
	}
}

// Gate checks quotas and records usage for a team member.
type Gate struct {
	Usage    ports.UsageRepository
	Quotas   ports.QuotaRepository
	Profiles ports.ProfileRepository
	Logger   ports.Logger

	// FailOpenOnLookupError lets requests through when quota or usage lookups fail.
	FailOpenOnLookupError bool
	// Now is overridable in tests.
	Now func() time.Time
}

// NewGate builds a gate that fails open on lookup errors.
func NewGate(usage ports.UsageRepository, quotas ports.QuotaRepository, profiles ports.ProfileRepository, log ports.Logger) *Gate {
	return &Gate{
		Usage:                 usage,
		Quotas:                quotas,
		Profiles:              profiles,
		Logger:                log,
		FailOpenOnLookupError: true,
	}
}

// Check returns the first quota the request would exceed (calls, then tokens,
// then storage) or nil. A team without quota rows is unlimited.
func (g *Gate) Check(ctx context.Context, userID, teamID string, cost int) *domain.QuotaViolation {
	day := g.Day(ctx, userID)

	quota, err := g.Quotas.Latest(ctx, teamID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return g.lookupFailed("quota lookup failed", err, teamID)
	}

	rows, err := g.Usage.ForTeamDay(ctx, teamID, day)
	if err != nil {
		return g.lookupFailed("usage lookup failed", err, teamID)
	}
	var total domain.UsageTotals
	for _, row := range rows {
		total = total.Add(row)
	}

	if quota.APICallsPerDay != nil && total.APICalls+1 > *quota.APICallsPerDay {
		return domain.NewQuotaViolation(domain.QuotaCalls)
	}
	if quota.TokensPerDay != nil && total.TokenCount+int64(cost) > *quota.TokensPerDay {
		return domain.NewQuotaViolation(domain.QuotaTokens)
	}
	if quota.StorageBytes != nil && total.StorageBytes > *quota.StorageBytes {
		return domain.NewQuotaViolation(domain.QuotaStorage)
	}
	return nil
}

// Record adds one call and cost tokens to the member's row for today.
// Failures are logged and swallowed.
func (g *Gate) Record(ctx context.Context, userID, teamID string, cost int) {
	g.add(ctx, userID, teamID, 1, int64(cost), 0)
}

// RecordStorage attributes stored bytes to the member's row for today.
func (g *Gate) RecordStorage(ctx context.Context, userID, teamID string, bytes int64) {
	g.add(ctx, userID, teamID, 0, 0, bytes)
}

// Today reports the team's summed usage and quota for the member's current day.
// The quota is nil when the team has none.
func (g *Gate) Today(ctx context.Context, userID, teamID string) (string, domain.UsageTotals, *domain.Quota, error) {
	day := g.Day(ctx, userID)
	rows, err := g.Usage.ForTeamDay(ctx, teamID, day)
	if err != nil {
		return day, domain.UsageTotals{}, nil, err
	}
	var total domain.UsageTotals
	for _, row := range rows {
		total = total.Add(row)
	}
	quota, err := g.Quotas.Latest(ctx, teamID)
	if errors.Is(err, domain.ErrNotFound) {
		return day, total, nil, nil
	}
	if err != nil {
		return day, total, nil, err
	}
	return day, total, &quota, nil
}

// Day returns the member's current calendar day (YYYY-MM-DD) in their
// profile timezone, falling back to UTC.
func (g *Gate) Day(ctx context.Context, userID string) string {
	return g.now().In(g.location(ctx, userID)).Format(domain.DayFormat)
}

func (g *Gate) add(ctx context.Context, userID, teamID string, calls, tokens, bytes int64) {
	day := g.Day(ctx, userID)

	existing, err := g.Usage.Get(ctx, teamID, userID, day)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		g.log().Error("usage read failed", err, map[string]interface{}{"team_id": teamID, "user_id": userID})
		return
	}

	row := domain.UsageRow{
		TeamID:       teamID,
		UserID:       userID,
		Day:          day,
		APICalls:     existing.APICalls + calls,
		TokenCount:   existing.TokenCount + tokens,
		StorageBytes: existing.StorageBytes + bytes,
		UpdatedAt:    g.now(),
	}
	if err := g.Usage.Upsert(ctx, row); err != nil {
		g.log().Error("usage write failed", err, map[string]interface{}{"team_id": teamID, "user_id": userID})
	}
}

func (g *Gate) location(ctx context.Context, userID string) *time.Location {
	if g.Profiles == nil {
		return time.UTC
	}
	profile, err := g.Profiles.Get(ctx, userID)
	if err != nil || profile.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(profile.Timezone)
	if err != nil {
		g.log().Warn("invalid profile timezone", map[string]interface{}{"user_id": userID, "timezone": profile.Timezone})
		return time.UTC
	}
	return loc
}

func (g *Gate) lookupFailed(msg string, err error, teamID string) *domain.QuotaViolation {
	g.log().Error(msg, err, map[string]interface{}{"team_id": teamID, "fail_open": g.FailOpenOnLookupError})
	if g.FailOpenOnLookupError {
		return nil
	}
	return domain.NewQuotaViolation(domain.QuotaLookup)
}

func (g *Gate) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}

func (g *Gate) log() ports.Logger {
	if g.Logger == nil {
		return logger.NewNop()
	}
	return g.Logger
}

var _ ports.UsageGate = (*Gate)(nil)
