package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/heldhq/held/internal/domain"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate ensures config structure is consistent.
func Validate(cfg domain.Config) error {
	if cfg.Database.Path == "" {
		return errors.New("database.path must be set")
	}
	if err := validateIdentity(cfg.Identity); err != nil {
		return err
	}
	if err := validateChat(cfg.Chat); err != nil {
		return err
	}
	if err := validateServer(cfg.Server); err != nil {
		return err
	}
	if cfg.Providers.RateLimitPerSecond < 0 {
		return fmt.Errorf("providers.rate_limit_per_second must be >= 0")
	}
	return validateLog(cfg.Log)
}

func validateIdentity(id domain.IdentitySettings) error {
	switch strings.ToLower(id.Mode) {
	case "", domain.IdentityModeLocal:
		return nil
	case domain.IdentityModeSupabase:
		if id.URL == "" || id.AnonKey == "" {
			return fmt.Errorf("identity.mode supabase requires identity.url and identity.anon_key (SUPABASE_URL / SUPABASE_ANON_KEY)")
		}
		return nil
	default:
		return fmt.Errorf("identity.mode must be local|supabase, got %s", id.Mode)
	}
}

func validateChat(chat domain.ChatSettings) error {
	if !identifierPattern.MatchString(chat.Table) {
		return fmt.Errorf("chat.table must be a plain SQL identifier, got %q", chat.Table)
	}
	if chat.MaxTurns <= 0 {
		return fmt.Errorf("chat.max_turns must be > 0")
	}
	if chat.LimitRecent < 0 || chat.LimitLike < 0 {
		return fmt.Errorf("chat.limit_recent and chat.limit_like must be >= 0")
	}
	if chat.DefaultTemperature < 0 || chat.DefaultTemperature > 2 {
		return fmt.Errorf("chat.default_temperature must be within [0, 2]")
	}
	return nil
}

func validateServer(server domain.ServerSettings) error {
	if server.Addr == "" {
		return fmt.Errorf("server.addr must be set")
	}
	if server.ProviderTimeoutSeconds < 0 {
		return fmt.Errorf("server.provider_timeout_seconds must be >= 0")
	}
	return nil
}

func validateLog(log domain.LogSettings) error {
	switch strings.ToLower(log.Format) {
	case "", "json", "console":
		return nil
	default:
		return fmt.Errorf("log.format must be json|console, got %s", log.Format)
	}
}
