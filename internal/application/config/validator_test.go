package config

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/heldhq/held/internal/domain"
)

func validConfig() domain.Config {
	return domain.Config{
		Server:   domain.ServerSettings{Addr: ":8787"},
		Database: domain.DatabaseSettings{Path: "/tmp/held.db"},
		Identity: domain.IdentitySettings{Mode: domain.IdentityModeLocal},
		Chat:     domain.ChatSettings{Table: domain.DefaultChatTable, MaxTurns: 20, DefaultTemperature: 0.2},
		Log:      domain.LogSettings{Format: "json"},
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	assert.NoError(t, Validate(validConfig()))
}

func TestValidateRejections(t *testing.T) {
	cases := map[string]func(*domain.Config){
		"table injection":  func(c *domain.Config) { c.Chat.Table = "memory; DROP TABLE commands" },
		"zero turns":       func(c *domain.Config) { c.Chat.MaxTurns = 0 },
		"unknown identity": func(c *domain.Config) { c.Identity.Mode = "ldap" },
		"supabase without url": func(c *domain.Config) {
			c.Identity = domain.IdentitySettings{Mode: domain.IdentityModeSupabase, AnonKey: "k"}
		},
		"no database":    func(c *domain.Config) { c.Database.Path = "" },
		"bad log format": func(c *domain.Config) { c.Log.Format = "xml" },
		"negative rate":  func(c *domain.Config) { c.Providers.RateLimitPerSecond = -1 },
		"no addr":        func(c *domain.Config) { c.Server.Addr = "" },
	}
	for name, mutate := range cases {
		cfg := validConfig()
		mutate(&cfg)
		assert.Error(t, Validate(cfg), name)
	}
}
