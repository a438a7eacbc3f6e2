package domain

// Identity is what the identity provider knows about a bearer token.
type Identity struct {
	UserID string
	Email  string
}

// Profile holds per-user settings used by the recall path.
type Profile struct {
	UserID        string `json:"user_id"`
	Email         string `json:"email"`
	DefaultTeamID string `json:"default_team_id"`
	Timezone      string `json:"timezone"`
}

// Caller is an authenticated request originator. TeamID is empty when the
// caller has no billing group, in which case usage accounting is skipped.
type Caller struct {
	UserID string
	Email  string
	TeamID string
}

// HasTeam reports whether usage accounting applies to the caller.
func (c Caller) HasTeam() bool {
	return c.TeamID != ""
}
