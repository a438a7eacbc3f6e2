// Package recall answers natural-language questions about a user's command
// history by grounding a model call on retrieved history rows.
package recall

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/heldhq/held/internal/application/memory"
	"github.com/heldhq/held/internal/application/retrieval"
	"github.com/heldhq/held/internal/application/usage"
	"github.com/heldhq/held/internal/domain"
	"github.com/heldhq/held/internal/ports"
)

const noLLMSuffix = "\n\n(no LLM; echoing your query)\n"

// Service orchestrates a recall request end-to-end.
type Service struct {
	Gate      ports.UsageGate
	Retriever ports.CandidateRetriever
	Memory    ports.ConversationMemory
	Models    ports.ModelDispatcher
	Logger    ports.Logger

	Chat            domain.ChatSettings
	ProviderTimeout time.Duration
}

// Ask runs one recall request. Validation and quota failures return an error
// before anything is recorded; provider failures never do.
func (s *Service) Ask(ctx context.Context, caller domain.Caller, req domain.QueryRequest, tty string) (domain.Answer, error) {
	if s.Gate == nil || s.Retriever == nil || s.Memory == nil || s.Models == nil || s.Logger == nil {
		return domain.Answer{}, errors.New("recall.Service dependencies not satisfied")
	}
	if err := req.Validate(); err != nil {
		return domain.Answer{}, err
	}
	q := req.Query()

	if caller.HasTeam() {
		cost := usage.EstimateCost(q)
		if violation := s.Gate.Check(ctx, caller.UserID, caller.TeamID, cost); violation != nil {
			s.Logger.Info("quota exceeded", map[string]interface{}{
				"user_id": caller.UserID, "team_id": caller.TeamID, "dimension": string(violation.Dimension),
			})
			return domain.Answer{}, violation
		}
		s.Gate.Record(ctx, caller.UserID, caller.TeamID, cost)
	}

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = memory.AutoSessionID()
	}

	rows := s.Retriever.Candidates(ctx, caller.UserID, q, ports.RetrievalLimits{
		Recent: intOr(req.LimitRecent, s.Chat.LimitRecent),
		Like:   intOr(req.LimitLike, s.Chat.LimitLike),
	})
	history := s.Memory.Load(ctx, caller.UserID, sessionID)

	packed := retrieval.Pack(rows, s.Chat.PackRows, s.Chat.PackField)
	messages := BuildMessages(SystemPrompt(req.Mode, s.Chat.SystemPrompt), history, q, packed)

	s.Logger.Debug("dispatching recall", map[string]interface{}{
		"user_id":      caller.UserID,
		"session_id":   sessionID,
		"chat_session": memory.ChatSessionID(sessionID, req.ChatSession),
		"tty":          tty,
		"mode":         req.Mode,
		"model":        req.Model,
		"rows":         len(rows),
		"memory_turns": len(history),
	})

	callCtx, cancel := context.WithTimeout(ctx, s.providerTimeout())
	out := s.Models.Complete(callCtx, messages, req.Model, ports.CompletionOptions{
		MaxTokens:   s.maxTokens(req.MaxTokens),
		Temperature: s.temperature(req.Temperature),
	})
	cancel()

	updated := append(append([]domain.Turn{}, history...), domain.Turn{Role: domain.RoleUser, Content: q})
	if out.OK {
		updated = append(updated, domain.Turn{Role: domain.RoleAssistant, Content: out.Content})
	}
	if err := s.Memory.Save(ctx, caller.UserID, sessionID, updated); err != nil {
		s.Logger.Error("memory save failed", err, map[string]interface{}{"user_id": caller.UserID, "session_id": sessionID})
	}

	return domain.Answer{
		Text:      FinalText(out, q),
		OK:        out.OK,
		SessionID: sessionID,
		Provider:  out.Provider,
	}, nil
}

// Purge forgets one session of the caller and returns its id.
func (s *Service) Purge(ctx context.Context, caller domain.Caller, req domain.PurgeRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	sessionID := req.Session()
	if err := s.Memory.Purge(ctx, caller.UserID, sessionID); err != nil {
		return "", fmt.Errorf("purge session: %w", err)
	}
	s.Logger.Info("session purged", map[string]interface{}{"user_id": caller.UserID, "session_id": sessionID})
	return sessionID, nil
}

// FinalText guarantees a non-empty reply: the model content when present,
// otherwise a hint naming the provider keys, and an echo marker when the
// model call failed.
func FinalText(out ports.Completion, q string) string {
	text := out.Content
	if strings.TrimSpace(text) == "" {
		text = "No model output.\n\n" +
			"Tip: confirm you set at least one provider key (OPENAI_API_KEY / OPENROUTER_API_KEY / LLAMA_API_KEY).\n" +
			"Echo: " + q
	}
	if out.OK {
		return text
	}
	return text + noLLMSuffix + q
}

func (s *Service) maxTokens(requested *int) int {
	n := intOr(requested, s.Chat.DefaultMaxTokens)
	if n <= 0 {
		n = domain.DefaultMaxTokens
	}
	if n > domain.MaxMaxTokens {
		n = domain.MaxMaxTokens
	}
	return n
}

func (s *Service) temperature(requested *float64) float64 {
	if requested != nil {
		return *requested
	}
	if s.Chat.DefaultTemperature > 0 {
		return s.Chat.DefaultTemperature
	}
	return domain.DefaultTemperature
}

func (s *Service) providerTimeout() time.Duration {
	if s.ProviderTimeout <= 0 {
		return domain.DefaultProviderTimeout
	}
	return s.ProviderTimeout
}

// intOr returns *v when it is set and positive, else def.
func intOr(v *int, def int) int {
	if v != nil && *v > 0 {
		return *v
	}
	return def
}
