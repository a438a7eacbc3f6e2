package doctor

import (
	"context"
	"fmt"
	"strings"

	configapp "github.com/heldhq/held/internal/application/config"
	"github.com/heldhq/held/internal/domain"
	"github.com/heldhq/held/internal/ports"
)

// Pinger is satisfied by the store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Service runs environment diagnostics.
type Service struct {
	ConfigProvider ports.ConfigProvider
	Database       Pinger
}

// Run executes checks and returns a report.
func (s *Service) Run(ctx context.Context) (domain.HealthReport, error) {
	var checks []domain.HealthCheck

	cfg, err := s.ConfigProvider.Load(ctx)
	if err != nil {
		checks = append(checks, fail("Config file", fmt.Sprintf("load failed: %v", err)))
		return domain.HealthReport{Checks: checks}, err
	}
	if err := configapp.Validate(cfg); err != nil {
		checks = append(checks, fail("Config file", err.Error()))
	} else {
		checks = append(checks, ok("Config file", fmt.Sprintf("loaded format %s", cfg.ConfigFormatVersion)))
	}

	if s.Database != nil {
		if err := s.Database.Ping(ctx); err != nil {
			checks = append(checks, fail("Database", fmt.Sprintf("%s: %v", cfg.Database.Path, err)))
		} else {
			checks = append(checks, ok("Database", cfg.Database.Path))
		}
	} else {
		checks = append(checks, warn("Database", "store not initialized"))
	}

	checks = append(checks, identityCheck(cfg.Identity), providerCheck(cfg.Providers))

	report := domain.HealthReport{Checks: checks}
	if report.Failed() {
		return report, fmt.Errorf("%d check(s) failed", countFailed(report))
	}
	return report, nil
}

func identityCheck(id domain.IdentitySettings) domain.HealthCheck {
	if strings.EqualFold(id.Mode, domain.IdentityModeSupabase) {
		return ok("Identity", "supabase at "+id.URL)
	}
	return ok("Identity", "local API tokens")
}

func providerCheck(p domain.ProviderSettings) domain.HealthCheck {
	var keyed []string
	if p.Llama.Configured() {
		keyed = append(keyed, domain.EnvLlamaKey)
	}
	if p.OpenAI.Configured() {
		keyed = append(keyed, domain.EnvOpenAIKey)
	}
	if p.OpenRouter.Configured() {
		keyed = append(keyed, domain.EnvOpenRouterKey)
	}
	if len(keyed) == 0 {
		return warn("API keys", "no provider key set; answers will echo the query")
	}
	return ok("API keys", strings.Join(keyed, ", "))
}

func countFailed(report domain.HealthReport) int {
	n := 0
	for _, check := range report.Checks {
		if check.Status == domain.HealthError {
			n++
		}
	}
	return n
}

func ok(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthOK, Details: details}
}

func warn(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthWarn, Details: details}
}

func fail(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthError, Details: details}
}
