// Package memory keeps a capped per-session conversation history.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/heldhq/held/internal/domain"
	"github.com/heldhq/held/internal/pkg/logger"
	"github.com/heldhq/held/internal/ports"
)

const autoSessionPrefix = "auto-"

// Store loads and saves user/assistant turns, keeping at most 2×MaxTurns messages.
type Store struct {
	Repo     ports.MemoryRepository
	MaxTurns int
	Logger   ports.Logger
}

// NewStore builds a store; a non-positive maxTurns falls back to the default.
func NewStore(repo ports.MemoryRepository, maxTurns int, log ports.Logger) *Store {
	if maxTurns <= 0 {
		maxTurns = domain.DefaultChatMaxTurns
	}
	return &Store{Repo: repo, MaxTurns: maxTurns, Logger: log}
}

// Load returns the remembered turns of a session. Missing, unreadable or
// malformed memory is treated as empty.
func (s *Store) Load(ctx context.Context, userID, sessionID string) []domain.Turn {
	raw, err := s.Repo.Get(ctx, userID, sessionID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.log().Warn("memory load failed", map[string]interface{}{"session_id": sessionID, "error": err.Error()})
		}
		return nil
	}

	var turns []domain.Turn
	if err := json.Unmarshal(raw, &turns); err != nil {
		s.log().Warn("memory row malformed", map[string]interface{}{"session_id": sessionID, "error": err.Error()})
		return nil
	}
	return s.trim(turns)
}

// Save stores the persistable turns, trimmed to the most recent 2×MaxTurns.
func (s *Store) Save(ctx context.Context, userID, sessionID string, turns []domain.Turn) error {
	payload, err := json.Marshal(s.trim(turns))
	if err != nil {
		return fmt.Errorf("encode memory: %w", err)
	}
	if err := s.Repo.Upsert(ctx, userID, sessionID, payload); err != nil {
		return fmt.Errorf("save memory: %w", err)
	}
	return nil
}

// Purge forgets a session. Purging an unknown session succeeds.
func (s *Store) Purge(ctx context.Context, userID, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return domain.ErrSessionRequired
	}
	if err := s.Repo.Delete(ctx, userID, sessionID); err != nil {
		return fmt.Errorf("purge memory: %w", err)
	}
	return nil
}

func (s *Store) trim(turns []domain.Turn) []domain.Turn {
	kept := make([]domain.Turn, 0, len(turns))
	for _, t := range turns {
		if t.Persistable() {
			kept = append(kept, t)
		}
	}
	limit := s.maxTurns() * 2
	if len(kept) > limit {
		kept = kept[len(kept)-limit:]
	}
	return kept
}

func (s *Store) maxTurns() int {
	if s.MaxTurns <= 0 {
		return domain.DefaultChatMaxTurns
	}
	return s.MaxTurns
}

func (s *Store) log() ports.Logger {
	if s.Logger == nil {
		return logger.NewNop()
	}
	return s.Logger
}

// AutoSessionID returns a fresh "auto-" session id with 16 random hex characters.
func AutoSessionID() string {
	return autoSessionPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

// ChatSessionID derives the memory key of an ai-mode request.
func ChatSessionID(sessionID, chatSession string) string {
	if cs := strings.TrimSpace(chatSession); cs != "" {
		return cs
	}
	return sessionID + "-ai"
}

var _ ports.ConversationMemory = (*Store)(nil)
