package domain

import "time"

// Config mirrors ~/.held/config.yaml.
type Config struct {
	ConfigFormatVersion string           `yaml:"config_format_version" koanf:"config_format_version"`
	Server              ServerSettings   `yaml:"server" koanf:"server"`
	Database            DatabaseSettings `yaml:"database" koanf:"database"`
	Identity            IdentitySettings `yaml:"identity" koanf:"identity"`
	Chat                ChatSettings     `yaml:"chat" koanf:"chat"`
	Quota               QuotaSettings    `yaml:"quota" koanf:"quota"`
	Providers           ProviderSettings `yaml:"providers" koanf:"providers"`
	Log                 LogSettings      `yaml:"log" koanf:"log"`
}

// ServerSettings configures the HTTP surface.
type ServerSettings struct {
	Addr                   string `yaml:"addr" koanf:"addr"`
	AllowedOrigin          string `yaml:"allowed_origin" koanf:"allowed_origin"`
	ProviderTimeoutSeconds int    `yaml:"provider_timeout_seconds" koanf:"provider_timeout_seconds"`
	ShutdownTimeoutSeconds int    `yaml:"shutdown_timeout_seconds" koanf:"shutdown_timeout_seconds"`
}

// ProviderTimeout returns the upper bound of a single provider call.
func (s ServerSettings) ProviderTimeout() time.Duration {
	if s.ProviderTimeoutSeconds <= 0 {
		return DefaultProviderTimeout
	}
	return time.Duration(s.ProviderTimeoutSeconds) * time.Second
}

// DatabaseSettings locates the SQLite database.
type DatabaseSettings struct {
	Path string `yaml:"path" koanf:"path"`
}

// Identity modes.
const (
	IdentityModeLocal    = "local"
	IdentityModeSupabase = "supabase"
)

// IdentitySettings selects how bearer tokens are verified.
type IdentitySettings struct {
	Mode    string `yaml:"mode" koanf:"mode"`
	URL     string `yaml:"url" koanf:"url"`
	AnonKey string `yaml:"anon_key" koanf:"anon_key"`
}

// ChatSettings tunes the recall handler.
type ChatSettings struct {
	Table              string  `yaml:"table" koanf:"table"`
	MaxTurns           int     `yaml:"max_turns" koanf:"max_turns"`
	SystemPrompt       string  `yaml:"system_prompt" koanf:"system_prompt"`
	DefaultMaxTokens   int     `yaml:"default_max_tokens" koanf:"default_max_tokens"`
	DefaultTemperature float64 `yaml:"default_temperature" koanf:"default_temperature"`
	LimitRecent        int     `yaml:"limit_recent" koanf:"limit_recent"`
	LimitLike          int     `yaml:"limit_like" koanf:"limit_like"`
	PackRows           int     `yaml:"pack_rows" koanf:"pack_rows"`
	PackField          int     `yaml:"pack_field" koanf:"pack_field"`
}

// QuotaSettings controls enforcement strictness.
type QuotaSettings struct {
	FailOpenOnLookupError bool `yaml:"fail_open_on_lookup_error" koanf:"fail_open_on_lookup_error"`
}

// ProviderSettings carries credentials and endpoints of the model providers.
type ProviderSettings struct {
	OpenAI             ProviderDefinition `yaml:"openai" koanf:"openai"`
	OpenRouter         ProviderDefinition `yaml:"openrouter" koanf:"openrouter"`
	Llama              ProviderDefinition `yaml:"llama" koanf:"llama"`
	AppURL             string             `yaml:"app_url" koanf:"app_url"`
	RateLimitPerSecond float64            `yaml:"rate_limit_per_second" koanf:"rate_limit_per_second"`
}

// LogSettings configures the zap logger.
type LogSettings struct {
	Level  string `yaml:"level" koanf:"level"`
	Format string `yaml:"format" koanf:"format"`
}
