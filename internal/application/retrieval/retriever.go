// Package retrieval selects the command history rows a recall answer is grounded on.
package retrieval

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/heldhq/held/internal/domain"
	"github.com/heldhq/held/internal/pkg/logger"
	"github.com/heldhq/held/internal/ports"
)

// Retriever merges probe matches with the most recent history of a user.
type Retriever struct {
	Commands ports.CommandRepository
	Logger   ports.Logger
}

// NormalizeLimits applies defaults to unset limits and caps both at domain.MaxLookupLimit.
func NormalizeLimits(l ports.RetrievalLimits) ports.RetrievalLimits {
	return ports.RetrievalLimits{
		Recent: normalizeLimit(l.Recent, domain.DefaultLimitRecent),
		Like:   normalizeLimit(l.Like, domain.DefaultLimitLike),
	}
}

func normalizeLimit(v, def int) int {
	if v <= 0 {
		return def
	}
	if v > domain.MaxLookupLimit {
		return domain.MaxLookupLimit
	}
	return v
}

// Candidates returns probe matches followed by recent commands, deduplicated
// by (start time, command, cwd) in first-seen order. A failing lookup is
// logged and contributes no rows.
func (r *Retriever) Candidates(ctx context.Context, userID, query string, limits ports.RetrievalLimits) []domain.CommandRecord {
	limits = NormalizeLimits(limits)
	probe := ExtractProbe(query)

	var probeRows, recentRows []domain.CommandRecord
	g, gctx := errgroup.WithContext(ctx)

	if !probe.IsZero() {
		g.Go(func() error {
			rows, err := r.lookupProbe(gctx, userID, probe, limits.Like)
			if err != nil {
				r.log().Warn("probe lookup failed", map[string]interface{}{
					"user_id": userID, "kind": string(probe.Kind), "error": err.Error(),
				})
				return nil
			}
			probeRows = rows
			return nil
		})
	}

	g.Go(func() error {
		rows, err := r.Commands.Recent(gctx, userID, limits.Recent)
		if err != nil {
			r.log().Warn("recent lookup failed", map[string]interface{}{"user_id": userID, "error": err.Error()})
			return nil
		}
		recentRows = rows
		return nil
	})

	_ = g.Wait()

	all := make([]domain.CommandRecord, 0, len(probeRows)+len(recentRows))
	all = append(all, probeRows...)
	all = append(all, recentRows...)
	return Dedup(all)
}

func (r *Retriever) lookupProbe(ctx context.Context, userID string, probe domain.Probe, limit int) ([]domain.CommandRecord, error) {
	switch probe.Kind {
	case domain.ProbeCommand:
		return r.Commands.SearchCommand(ctx, userID, probe.Phrase, limit)
	case domain.ProbeOutput:
		return r.Commands.SearchOutput(ctx, userID, probe.Phrase, limit)
	default:
		return nil, nil
	}
}

// Dedup keeps the first occurrence of each (start time, command, cwd) key.
func Dedup(rows []domain.CommandRecord) []domain.CommandRecord {
	seen := make(map[string]struct{}, len(rows))
	out := make([]domain.CommandRecord, 0, len(rows))
	for _, row := range rows {
		key := row.DedupKey()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, row)
	}
	return out
}

func (r *Retriever) log() ports.Logger {
	if r.Logger == nil {
		return logger.NewNop()
	}
	return r.Logger
}

var _ ports.CandidateRetriever = (*Retriever)(nil)
