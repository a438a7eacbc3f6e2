package ai

import (
	"net/http"

	"golang.org/x/time/rate"

	"github.com/heldhq/held/internal/domain"
)

// Provider names.
const (
	ProviderLlama      = "llama"
	ProviderOpenAI     = "openai"
	ProviderOpenRouter = "openrouter"
)

// NewDispatcher builds the dispatch table from provider settings: Llama for
// Llama-named models, then OpenAI when keyed, then OpenRouter when keyed.
// The Llama entry is always present so a Llama model without a key reports
// the missing credential instead of falling through.
func NewDispatcher(settings domain.ProviderSettings, client *http.Client, limiter *rate.Limiter) *Dispatcher {
	d := &Dispatcher{}

	d.Providers = append(d.Providers, ProviderEntry{
		Provider: newHTTPProvider(ProviderLlama, "Llama",
			valueOrDefault(settings.Llama.Endpoint, domain.LlamaEndpoint),
			settings.Llama.APIKey, domain.EnvLlamaKey, client, limiter, llamaAdapter()),
		Matches: domain.IsLlamaModel,
	})

	if settings.OpenAI.Configured() {
		d.Providers = append(d.Providers, ProviderEntry{
			Provider: newHTTPProvider(ProviderOpenAI, "OpenAI",
				valueOrDefault(settings.OpenAI.Endpoint, domain.OpenAIEndpoint),
				settings.OpenAI.APIKey, domain.EnvOpenAIKey, client, limiter, openAICompatibleAdapter("")),
			Matches:      matchAny,
			DefaultModel: valueOrDefault(settings.OpenAI.DefaultModel, domain.OpenAIDefaultModel),
		})
	}

	if settings.OpenRouter.Configured() {
		d.Providers = append(d.Providers, ProviderEntry{
			Provider: newHTTPProvider(ProviderOpenRouter, "OpenRouter",
				valueOrDefault(settings.OpenRouter.Endpoint, domain.OpenRouterEndpoint),
				settings.OpenRouter.APIKey, domain.EnvOpenRouterKey, client, limiter, openAICompatibleAdapter(settings.AppURL)),
			Matches:      matchAny,
			DefaultModel: valueOrDefault(settings.OpenRouter.DefaultModel, domain.OpenRouterDefaultModel),
		})
	}

	return d
}

// NewLimiter returns a token-bucket limiter for outbound provider calls, or
// nil when perSecond is not positive.
func NewLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}
