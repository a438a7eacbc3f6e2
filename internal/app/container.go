package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	configapp "github.com/heldhq/held/internal/application/config"
	"github.com/heldhq/held/internal/application/doctor"
	"github.com/heldhq/held/internal/application/memory"
	"github.com/heldhq/held/internal/application/recall"
	"github.com/heldhq/held/internal/application/retrieval"
	"github.com/heldhq/held/internal/application/usage"
	"github.com/heldhq/held/internal/domain"
	"github.com/heldhq/held/internal/infrastructure/ai"
	"github.com/heldhq/held/internal/infrastructure/config"
	"github.com/heldhq/held/internal/infrastructure/httpapi"
	"github.com/heldhq/held/internal/infrastructure/identity"
	"github.com/heldhq/held/internal/infrastructure/store"
	"github.com/heldhq/held/internal/pkg/logger"
	"github.com/heldhq/held/internal/ports"
)

// Container wires up application services with infrastructure adapters.
type Container struct {
	Config        domain.Config
	ConfigLoader  *config.FileLoader
	Logger        *logger.ZapLogger
	Store         *store.DB
	Gate          *usage.Gate
	Memory        *memory.Store
	Dispatcher    *ai.Dispatcher
	Authenticator *identity.Authenticator
	Recall        *recall.Service
	Metrics       *httpapi.Metrics
	DoctorService *doctor.Service
}

// Options controls container construction.
type Options struct {
	ConfigPath string
	Verbose    bool
}

// BuildContainer loads configuration and constructs the dependency graph.
// The caller owns the returned container and must Close it.
func BuildContainer(ctx context.Context, opts Options) (*Container, error) {
	cfgLoader := config.NewFileLoader(opts.ConfigPath)
	cfg, err := cfgLoader.Load(ctx)
	if err != nil {
		return nil, err
	}
	if err := configapp.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration %s: %w", cfgLoader.Path(), err)
	}

	level := cfg.Log.Level
	if opts.Verbose {
		level = "debug"
	}
	log, err := logger.New(level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	db, err := store.Open(ctx, cfg.Database.Path, cfg.Chat.Table)
	if err != nil {
		return nil, err
	}

	gate := usage.NewGate(db.Usage(), db.Quotas(), db.Profiles(), log)
	gate.FailOpenOnLookupError = cfg.Quota.FailOpenOnLookupError

	memoryStore := memory.NewStore(db.Memory(), cfg.Chat.MaxTurns, log)
	metrics := httpapi.NewMetrics()

	providerTimeout := cfg.Server.ProviderTimeout()
	httpClient := &http.Client{Timeout: providerTimeout}
	dispatcher := ai.NewDispatcher(cfg.Providers, httpClient, ai.NewLimiter(cfg.Providers.RateLimitPerSecond))
	dispatcher.Observe = metrics.ObserveProvider

	authenticator := &identity.Authenticator{
		Verifier: newVerifier(cfg.Identity, db),
		Profiles: db.Profiles(),
		Logger:   log,
	}

	recallService := &recall.Service{
		Gate:            gate,
		Retriever:       &retrieval.Retriever{Commands: db.Commands(), Logger: log},
		Memory:          memoryStore,
		Models:          dispatcher,
		Logger:          log,
		Chat:            cfg.Chat,
		ProviderTimeout: providerTimeout,
	}

	log.Debug("container built", map[string]interface{}{
		"config":    cfgLoader.Path(),
		"database":  db.Path(),
		"identity":  cfg.Identity.Mode,
		"providers": dispatcher.Names(),
	})

	return &Container{
		Config:        cfg,
		ConfigLoader:  cfgLoader,
		Logger:        log,
		Store:         db,
		Gate:          gate,
		Memory:        memoryStore,
		Dispatcher:    dispatcher,
		Authenticator: authenticator,
		Recall:        recallService,
		Metrics:       metrics,
		DoctorService: &doctor.Service{ConfigProvider: cfgLoader, Database: db},
	}, nil
}

func newVerifier(settings domain.IdentitySettings, db *store.DB) ports.IdentityVerifier {
	if strings.EqualFold(settings.Mode, domain.IdentityModeSupabase) {
		return identity.NewSupabaseVerifier(settings.URL, settings.AnonKey, &http.Client{Timeout: 10 * time.Second})
	}
	return &identity.TokenVerifier{Tokens: db.Tokens()}
}

// NewServer builds the HTTP server over the container's services.
func (c *Container) NewServer() (*httpapi.Server, error) {
	return httpapi.NewServer(c.Recall, c.Authenticator, c.Metrics, c.Logger.Zap(), httpapi.Config{
		Addr:          c.Config.Server.Addr,
		AllowedOrigin: c.Config.Server.AllowedOrigin,
	})
}

// ShutdownTimeout is the grace period for in-flight requests on stop.
func (c *Container) ShutdownTimeout() time.Duration {
	if c.Config.Server.ShutdownTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.Config.Server.ShutdownTimeoutSeconds) * time.Second
}

// Caller resolves a local user to a caller with its billing group, the way
// the authenticator does for HTTP requests.
func (c *Container) Caller(ctx context.Context, userID string) (domain.Caller, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.Caller{}, fmt.Errorf("--user is required")
	}
	caller := domain.Caller{UserID: userID}
	profile, err := c.Store.Profiles().Get(ctx, userID)
	switch {
	case err == nil:
		caller.Email = profile.Email
		caller.TeamID = profile.DefaultTeamID
	case !errors.Is(err, domain.ErrNotFound):
		return domain.Caller{}, fmt.Errorf("load profile %s: %w", userID, err)
	}
	return caller, nil
}

// Close flushes the logger and closes the database.
func (c *Container) Close() error {
	if c.Logger != nil {
		_ = c.Logger.Sync()
	}
	if c.Store != nil {
		return c.Store.Close()
	}
	return nil
}
