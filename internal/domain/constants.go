package domain

import "time"

// File permissions constants
const (
	// DirectoryPermissions is the default permission for directories (rwxr-xr-x)
	DirectoryPermissions = 0o755
	// SecureFilePermissions is the permission for sensitive files (rw-------)
	SecureFilePermissions = 0o600
)

// Chat memory constants
const (
	// DefaultChatTable is the relation holding per-session conversation memory
	DefaultChatTable = "held_chat_memory"
	// DefaultChatMaxTurns is the number of user/assistant pairs remembered per session
	DefaultChatMaxTurns = 20
)

// Retrieval constants
const (
	// DefaultLimitRecent is the number of most recent commands always fetched
	DefaultLimitRecent = 80
	// DefaultLimitLike is the number of probe matches fetched
	DefaultLimitLike = 40
	// MaxLookupLimit caps both lookup limits
	MaxLookupLimit = 200
	// DefaultPackRows is the number of candidate rows rendered into the prompt
	DefaultPackRows = 60
	// DefaultPackField is the per-field truncation length of rendered rows
	DefaultPackField = 220
)

// Model call constants
const (
	// DefaultMaxTokens is used when the request does not specify max_tokens
	DefaultMaxTokens = 256
	// MinMaxTokens and MaxMaxTokens bound the max_tokens sent to providers
	MinMaxTokens = 1
	MaxMaxTokens = 4000
	// DefaultTemperature is used when the request does not specify temperature
	DefaultTemperature = 0.2
	// DefaultProviderTimeout bounds a single provider call
	DefaultProviderTimeout = 30 * time.Second
)

// Time formats
const (
	// DayFormat keys usage rows by calendar day
	DayFormat = "2006-01-02"
	// TimestampFormat is the standard timestamp format
	TimestampFormat = time.RFC3339
	// DefaultTimezone applies when a profile carries no usable timezone
	DefaultTimezone = "UTC"
)
