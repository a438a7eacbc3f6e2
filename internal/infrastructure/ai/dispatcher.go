package ai

import (
	"context"
	"strings"
	"time"

	"github.com/heldhq/held/internal/domain"
	"github.com/heldhq/held/internal/ports"
)

const noProviderMessage = warnPrefix + "No model provider configured (OPENAI_API_KEY or OPENROUTER_API_KEY or LLAMA_API_KEY)"

// ProviderEntry is one rule of the dispatch table.
type ProviderEntry struct {
	Provider     ports.ChatProvider
	Matches      func(model string) bool
	DefaultModel string
}

// Dispatcher walks its entries in order and hands the request to the first
// provider whose rule matches the model name. There is no retry and no
// fallback to a later entry.
type Dispatcher struct {
	Providers []ProviderEntry
	// Observe, when set, is told about every completed call.
	Observe func(provider string, ok bool, elapsed time.Duration)
}

func (d *Dispatcher) Complete(ctx context.Context, messages []domain.Turn, model string, opts ports.CompletionOptions) ports.Completion {
	model = strings.TrimSpace(model)
	for _, entry := range d.Providers {
		if entry.Matches != nil && !entry.Matches(model) {
			continue
		}
		started := time.Now()
		out := entry.Provider.Complete(ctx, valueOrDefault(model, entry.DefaultModel), messages, opts)
		if out.Provider == "" {
			out.Provider = entry.Provider.Name()
		}
		if d.Observe != nil {
			d.Observe(out.Provider, out.OK, time.Since(started))
		}
		return out
	}
	return ports.Completion{OK: false, Content: noProviderMessage}
}

// Names lists the providers in dispatch order.
func (d *Dispatcher) Names() []string {
	names := make([]string, 0, len(d.Providers))
	for _, entry := range d.Providers {
		names = append(names, entry.Provider.Name())
	}
	return names
}

func matchAny(string) bool { return true }

var _ ports.ModelDispatcher = (*Dispatcher)(nil)
