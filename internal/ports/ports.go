// Package ports defines the interfaces (ports) for the hexagonal architecture.
//
// This package establishes the contract between the application core and external
// adapters (infrastructure). Following the Ports and Adapters (Hexagonal) pattern,
// these interfaces allow the recall handler to remain independent of the concrete
// database, identity provider, model providers and HTTP framework.
//
// Key architectural concepts:
//   - Ports: Interfaces defined here (e.g., CommandRepository, ChatProvider)
//   - Adapters: Concrete implementations in the infrastructure layer
//   - Dependency inversion: Application depends on abstractions, not implementations
package ports

import (
	"context"
	"encoding/json"

	"github.com/heldhq/held/internal/domain"
)

// ConfigProvider loads the latest configuration from persistent storage.
// Implementations typically read from ~/.held/config.yaml plus the environment.
type ConfigProvider interface {
	Load(context.Context) (domain.Config, error)
}

// IdentityVerifier resolves a bearer token to an identity.
// It returns domain.ErrUnauthorized when the token is rejected.
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (domain.Identity, error)
}

// Authenticator turns an Authorization header into a caller with its billing group.
type Authenticator interface {
	Authenticate(ctx context.Context, authorization string) (domain.Caller, error)
}

// CommandRepository reads captured command history. Every lookup is scoped to
// the owning user and ordered most recent first.
type CommandRepository interface {
	Insert(ctx context.Context, record domain.CommandRecord) (int64, error)
	Recent(ctx context.Context, userID string, limit int) ([]domain.CommandRecord, error)
	SearchCommand(ctx context.Context, userID, phrase string, limit int) ([]domain.CommandRecord, error)
	SearchOutput(ctx context.Context, userID, phrase string, limit int) ([]domain.CommandRecord, error)
}

// ProfileRepository stores per-user settings.
type ProfileRepository interface {
	Get(ctx context.Context, userID string) (domain.Profile, error)
	Upsert(ctx context.Context, profile domain.Profile) error
}

// UsageRepository stores daily usage counters.
type UsageRepository interface {
	Get(ctx context.Context, teamID, userID, day string) (domain.UsageRow, error)
	ForTeamDay(ctx context.Context, teamID, day string) ([]domain.UsageRow, error)
	Upsert(ctx context.Context, row domain.UsageRow) error
}

// QuotaRepository stores team limits. Latest returns domain.ErrNotFound when
// the team has no quota row.
type QuotaRepository interface {
	Latest(ctx context.Context, teamID string) (domain.Quota, error)
	Insert(ctx context.Context, quota domain.Quota) error
}

// MemoryRepository persists raw conversation memory per (user, session).
// Get returns domain.ErrNotFound when the session has no row.
type MemoryRepository interface {
	Get(ctx context.Context, userID, sessionID string) (json.RawMessage, error)
	Upsert(ctx context.Context, userID, sessionID string, messages json.RawMessage) error
	Delete(ctx context.Context, userID, sessionID string) error
}

// TokenRepository stores locally issued API tokens.
type TokenRepository interface {
	Lookup(ctx context.Context, token string) (domain.Identity, error)
	Issue(ctx context.Context, identity domain.Identity) (string, error)
}

// UsageGate enforces quotas and records usage for a billing group.
type UsageGate interface {
	Check(ctx context.Context, userID, teamID string, cost int) *domain.QuotaViolation
	Record(ctx context.Context, userID, teamID string, cost int)
}

// RetrievalLimits bounds the history lookups of a single request.
type RetrievalLimits struct {
	Recent int
	Like   int
}

// CandidateRetriever returns deduplicated history rows relevant to a query.
type CandidateRetriever interface {
	Candidates(ctx context.Context, userID, query string, limits RetrievalLimits) []domain.CommandRecord
}

// ConversationMemory loads and persists capped conversation memory.
type ConversationMemory interface {
	Load(ctx context.Context, userID, sessionID string) []domain.Turn
	Save(ctx context.Context, userID, sessionID string, turns []domain.Turn) error
	Purge(ctx context.Context, userID, sessionID string) error
}

// CompletionOptions are the generation parameters forwarded to a provider.
type CompletionOptions struct {
	MaxTokens   int
	Temperature float64
}

// Completion is the uniform result of a chat-completion call. Provider failures
// are reported with OK=false and a diagnostic Content, never as an error.
type Completion struct {
	OK       bool
	Content  string
	Provider string
}

// ChatProvider wraps one chat-completion API.
type ChatProvider interface {
	Name() string
	Complete(ctx context.Context, model string, messages []domain.Turn, opts CompletionOptions) Completion
}

// ModelDispatcher picks a provider for a model name and runs the completion.
type ModelDispatcher interface {
	Complete(ctx context.Context, messages []domain.Turn, model string, opts CompletionOptions) Completion
}

// Logger provides structured logging abstraction for the application layer.
// Implementations can route to different backends (stdout, files, external services).
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, err error, fields map[string]interface{})
}
