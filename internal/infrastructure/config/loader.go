// Package config loads held's configuration: built-in defaults, then
// ~/.held/config.yaml, then the environment.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/heldhq/held/internal/domain"
	"github.com/heldhq/held/internal/pkg/filesystem"
	"github.com/heldhq/held/internal/ports"
)

const (
	// EnvConfigPath overrides the config file location.
	EnvConfigPath = "HELD_CONFIG"
	envPrefix     = "HELD_"

	maxConfigFileSize = 1024 * 1024
)

// envAliases maps environment names that do not follow the HELD_SECTION_FIELD
// pattern onto config keys.
var envAliases = map[string]string{
	domain.EnvOpenAIKey:     "providers.openai.api_key",
	domain.EnvOpenRouterKey: "providers.openrouter.api_key",
	domain.EnvLlamaKey:      "providers.llama.api_key",
	domain.EnvAppURL:        "providers.app_url",
	"HELD_SYSTEM_PROMPT":    "chat.system_prompt",
	"HELD_DB_PATH":          "database.path",
	"HELD_HTTP_ADDR":        "server.addr",
	"SUPABASE_URL":          "identity.url",
	"SUPABASE_ANON_KEY":     "identity.anon_key",
}

// sections are the top-level keys HELD_<SECTION>_<FIELD> may address.
var sections = map[string]struct{}{
	"server": {}, "database": {}, "identity": {}, "chat": {},
	"quota": {}, "providers": {}, "log": {},
}

// FileLoader loads configuration with koanf. Precedence, highest first:
// environment, YAML file, built-in defaults.
type FileLoader struct {
	overridePath string
	lookupEnv    func() []string
}

// NewFileLoader builds a loader; an empty path resolves to HELD_CONFIG or ~/.held/config.yaml.
func NewFileLoader(path string) *FileLoader {
	return &FileLoader{overridePath: path, lookupEnv: os.Environ}
}

// Path returns the config file the loader reads.
func (l *FileLoader) Path() string {
	if l.overridePath != "" {
		return filesystem.ExpandHome(l.overridePath)
	}
	if custom := os.Getenv(EnvConfigPath); custom != "" {
		return filesystem.ExpandHome(custom)
	}
	return filepath.Join(filesystem.HeldDir(), "config.yaml")
}

// Load implements ports.ConfigProvider. A missing file is not an error.
func (l *FileLoader) Load(context.Context) (domain.Config, error) {
	k := koanf.New(".")

	defaults, err := yamlv3.Marshal(DefaultConfig())
	if err != nil {
		return domain.Config{}, fmt.Errorf("encode defaults: %w", err)
	}
	if err := k.Load(rawbytes.Provider(defaults), yaml.Parser()); err != nil {
		return domain.Config{}, fmt.Errorf("load defaults: %w", err)
	}

	path := l.Path()
	content, err := readConfigFile(path)
	if err != nil {
		return domain.Config{}, err
	}
	if content != nil {
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return domain.Config{}, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", prefixedEnvKey), nil); err != nil {
		return domain.Config{}, fmt.Errorf("failed to load environment variables: %w", err)
	}
	if err := k.Load(env.Provider("", ".", aliasEnvKey), nil); err != nil {
		return domain.Config{}, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg domain.Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return domain.Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Database.Path = filesystem.ExpandHome(cfg.Database.Path)
	return cfg, nil
}

func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, maxConfigFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if len(content) > maxConfigFileSize {
		return nil, fmt.Errorf("config file %s exceeds %d bytes", path, maxConfigFileSize)
	}
	return content, nil
}

// prefixedEnvKey maps HELD_CHAT_MAX_TURNS -> chat.max_turns. Aliased and
// unknown names are skipped.
func prefixedEnvKey(name string) string {
	if _, ok := envAliases[name]; ok {
		return ""
	}
	lower := strings.ToLower(strings.TrimPrefix(name, envPrefix))
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) != 2 {
		return ""
	}
	if _, ok := sections[parts[0]]; !ok {
		return ""
	}
	return parts[0] + "." + parts[1]
}

func aliasEnvKey(name string) string {
	return envAliases[name]
}

var _ ports.ConfigProvider = (*FileLoader)(nil)
