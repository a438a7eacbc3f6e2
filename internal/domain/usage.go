package domain

import "time"

// UsageRow is the per-member daily usage counter of a team.
// Day is the calendar day in the member's local timezone (YYYY-MM-DD).
type UsageRow struct {
	TeamID       string    `json:"team_id"`
	UserID       string    `json:"user_id"`
	Day          string    `json:"day"`
	APICalls     int64     `json:"api_calls"`
	TokenCount   int64     `json:"token_count"`
	StorageBytes int64     `json:"storage_bytes"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UsageTotals sums usage rows for a team and day.
type UsageTotals struct {
	APICalls     int64
	TokenCount   int64
	StorageBytes int64
}

// Add accumulates a row into the totals.
func (t UsageTotals) Add(row UsageRow) UsageTotals {
	t.APICalls += row.APICalls
	t.TokenCount += row.TokenCount
	t.StorageBytes += row.StorageBytes
	return t
}

// Quota holds a team's limits. A nil limit means unlimited.
type Quota struct {
	TeamID         string    `json:"team_id"`
	APICallsPerDay *int64    `json:"quota_api_calls_per_day"`
	TokensPerDay   *int64    `json:"quota_tokens_per_day"`
	StorageBytes   *int64    `json:"quota_storage_bytes"`
	EffectiveAt    time.Time `json:"effective_at"`
}

// QuotaDimension names the limit a request ran into.
type QuotaDimension string

const (
	QuotaCalls   QuotaDimension = "calls"
	QuotaTokens  QuotaDimension = "tokens"
	QuotaStorage QuotaDimension = "storage"
	// QuotaLookup is reported only when lookups fail and fail-open is disabled.
	QuotaLookup QuotaDimension = "lookup"
)

var quotaMessages = map[QuotaDimension]string{
	QuotaCalls:   "You have exceeded the API calls usage for the day. Please upgrade your plan to continue using the service.",
	QuotaTokens:  "You have exceeded the token usage for the day. Please upgrade your plan to continue using the service.",
	QuotaStorage: "You have exceeded the storage usage for the day. Please upgrade your plan to continue using the service.",
	QuotaLookup:  "Usage limits could not be verified right now. Please try again shortly.",
}

// QuotaViolation rejects a request before any model call or usage increment.
type QuotaViolation struct {
	Dimension QuotaDimension
	Message   string
}

// NewQuotaViolation builds a violation carrying the user-facing message for the dimension.
func NewQuotaViolation(dim QuotaDimension) *QuotaViolation {
	return &QuotaViolation{Dimension: dim, Message: quotaMessages[dim]}
}

func (v *QuotaViolation) Error() string {
	return v.Message
}
