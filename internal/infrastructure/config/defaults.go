package config

import (
	"fmt"
	"os"
	"path/filepath"

	yamlv3 "gopkg.in/yaml.v3"

	"github.com/heldhq/held/internal/domain"
)

// DefaultConfig returns the built-in configuration.
func DefaultConfig() domain.Config {
	return domain.Config{
		ConfigFormatVersion: "1",
		Server: domain.ServerSettings{
			Addr:                   ":8787",
			AllowedOrigin:          "*",
			ProviderTimeoutSeconds: int(domain.DefaultProviderTimeout.Seconds()),
			ShutdownTimeoutSeconds: 10,
		},
		Database: domain.DatabaseSettings{
			Path: "~/.held/held.db",
		},
		Identity: domain.IdentitySettings{
			Mode: domain.IdentityModeLocal,
		},
		Chat: domain.ChatSettings{
			Table:              domain.DefaultChatTable,
			MaxTurns:           domain.DefaultChatMaxTurns,
			DefaultMaxTokens:   domain.DefaultMaxTokens,
			DefaultTemperature: domain.DefaultTemperature,
			LimitRecent:        domain.DefaultLimitRecent,
			LimitLike:          domain.DefaultLimitLike,
			PackRows:           domain.DefaultPackRows,
			PackField:          domain.DefaultPackField,
		},
		Quota: domain.QuotaSettings{
			FailOpenOnLookupError: true,
		},
		Providers: domain.ProviderSettings{
			OpenAI:     domain.ProviderDefinition{Endpoint: domain.OpenAIEndpoint, DefaultModel: domain.OpenAIDefaultModel},
			OpenRouter: domain.ProviderDefinition{Endpoint: domain.OpenRouterEndpoint, DefaultModel: domain.OpenRouterDefaultModel},
			Llama:      domain.ProviderDefinition{Endpoint: domain.LlamaEndpoint},
		},
		Log: domain.LogSettings{
			Level:  "info",
			Format: "json",
		},
	}
}

// WriteFile stores cfg as YAML with owner-only permissions. Provider keys are
// never written; they belong in the environment.
func WriteFile(path string, cfg domain.Config) error {
	cfg = Redacted(cfg)
	raw, err := yamlv3.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), domain.DirectoryPermissions); err != nil {
		return fmt.Errorf("ensure config dir: %w", err)
	}
	return os.WriteFile(path, raw, domain.SecureFilePermissions)
}

// Redacted strips credentials from cfg.
func Redacted(cfg domain.Config) domain.Config {
	cfg.Providers.OpenAI.APIKey = ""
	cfg.Providers.OpenRouter.APIKey = ""
	cfg.Providers.Llama.APIKey = ""
	cfg.Identity.AnonKey = ""
	return cfg
}

// Marshal renders cfg as YAML for display.
func Marshal(cfg domain.Config) ([]byte, error) {
	return yamlv3.Marshal(cfg)
}
