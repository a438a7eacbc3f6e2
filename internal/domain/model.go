// Package domain defines core business entities and value objects for held.
//
// This file contains model provider definitions used by the dispatcher.
// The domain layer is independent of infrastructure concerns and represents pure
// business logic and data structures.
package domain

import "strings"

// ProviderDefinition describes one chat-completion backend declared in the config file.
// Secrets are normally supplied through the environment and never written back to disk.
type ProviderDefinition struct {
	APIKey       string `yaml:"api_key,omitempty" koanf:"api_key"`
	Endpoint     string `yaml:"endpoint" koanf:"endpoint"`
	DefaultModel string `yaml:"default_model,omitempty" koanf:"default_model"`
}

// Configured reports whether a credential is present.
func (d ProviderDefinition) Configured() bool {
	return strings.TrimSpace(d.APIKey) != ""
}

// Provider endpoints and default models.
const (
	OpenAIEndpoint     = "https://api.openai.com/v1/chat/completions"
	OpenRouterEndpoint = "https://openrouter.ai/api/v1/chat/completions"
	LlamaEndpoint      = "https://api.llama.com/v1/chat/completions"

	OpenAIDefaultModel     = "gpt-4o-mini"
	OpenRouterDefaultModel = "openrouter/auto"
)

// Environment variables carrying provider credentials.
const (
	EnvOpenAIKey     = "OPENAI_API_KEY"
	EnvOpenRouterKey = "OPENROUTER_API_KEY"
	EnvLlamaKey      = "LLAMA_API_KEY"
	EnvAppURL        = "HELD_APP_URL"
)

var knownLlamaModels = map[string]struct{}{
	"Llama-4-Maverick-17B-128E-Instruct-FP8":  {},
	"Llama-4-Scout-17B-16E-Instruct-FP8":      {},
	"Llama-3.3-70B-Instruct":                  {},
	"Llama-3.3-8B-Instruct":                   {},
	"Groq-Llama-4-Maverick-17B-128E-Instruct": {},
}

// IsLlamaModel reports whether a model name follows the Llama naming convention.
func IsLlamaModel(model string) bool {
	m := strings.TrimSpace(model)
	if m == "" {
		return false
	}
	if _, ok := knownLlamaModels[m]; ok {
		return true
	}
	lower := strings.ToLower(m)
	return strings.HasPrefix(lower, "llama-") ||
		strings.HasPrefix(lower, "cerebras-llama-") ||
		strings.HasPrefix(lower, "groq-llama-")
}
