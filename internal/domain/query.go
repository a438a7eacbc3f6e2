package domain

import "strings"

// Recall modes accepted on the wire.
const (
	ModeAI         = "ai"
	ModeSearch     = "search"
	ModeSearchOnly = "search_only"
	ModeSearchDash = "search-only"
)

// QueryRequest is the POST body of the recall endpoint.
type QueryRequest struct {
	Q           string   `json:"q"`
	Mode        string   `json:"mode,omitempty"`
	Model       string   `json:"model,omitempty"`
	SessionID   string   `json:"session_id,omitempty"`
	ChatSession string   `json:"chat_session,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	LimitRecent *int     `json:"limit_recent,omitempty"`
	LimitLike   *int     `json:"limit_like,omitempty"`
}

// Query returns the trimmed query text.
func (r QueryRequest) Query() string {
	return strings.TrimSpace(r.Q)
}

// Validate rejects requests that must not cause side effects.
func (r QueryRequest) Validate() error {
	if r.Query() == "" {
		return ErrEmptyQuery
	}
	return nil
}

// IsSearchMode reports whether the citation-only prompt applies.
func IsSearchMode(mode string) bool {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case ModeSearch, ModeSearchOnly, ModeSearchDash:
		return true
	default:
		return false
	}
}

// PurgeRequest is the DELETE body of the recall endpoint.
type PurgeRequest struct {
	SessionID string `json:"session_id"`
}

// Session returns the trimmed session id.
func (r PurgeRequest) Session() string {
	return strings.TrimSpace(r.SessionID)
}

// Validate requires a session id.
func (r PurgeRequest) Validate() error {
	if r.Session() == "" {
		return ErrSessionRequired
	}
	return nil
}

// Answer is the plain-text reply returned to the caller.
// OK is false when the model call failed and Text holds a fallback.
type Answer struct {
	Text      string
	OK        bool
	SessionID string
	Provider  string
}
