// Package config loads engine settings from defaults, an optional YAML file,
// and FOUNDRY_-prefixed environment variables, later sources overriding
// earlier ones.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// ConfigFileName is the config file looked for in the working directory.
const ConfigFileName = "foundry.yaml"

// ConfigFileNameAlt is the alternate config file name.
const ConfigFileNameAlt = "foundry.yml"

// EnvPrefix namespaces the environment variables read by Load.
const EnvPrefix = "FOUNDRY_"

// Config holds every tunable of the engine.
type Config struct {
	// PermissionTTL bounds how long a cached write-access answer is trusted.
	PermissionTTL time.Duration `koanf:"permission_ttl"`
	// UndoDepth caps the per-session undo stack.
	UndoDepth int `koanf:"undo_depth"`
	// SizeLimit caps a serialized layer document in bytes.
	SizeLimit int `koanf:"size_limit"`
	// QueueCapacity bounds the repository task queue.
	QueueCapacity int `koanf:"queue_capacity"`
	// DefaultBranch is used for bindings that do not name one.
	DefaultBranch string `koanf:"default_branch"`

	GitHub  GitHubConfig  `koanf:"github"`
	Logging LoggingConfig `koanf:"logging"`
}

// GitHubConfig configures the repository host client.
type GitHubConfig struct {
	BaseURL string `koanf:"base_url"`
	Token   string `koanf:"token"`
}

// LoggingConfig configures the engine-wide logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `koanf:"level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		PermissionTTL: 5 * time.Minute,
		UndoDepth:     50,
		SizeLimit:     1 << 20,
		QueueCapacity: 32,
		DefaultBranch: "main",
		GitHub:        GitHubConfig{BaseURL: "https://api.github.com"},
		Logging:       LoggingConfig{Level: "info"},
	}
}

// Load builds the configuration from defaults, path (optional; when empty
// foundry.yaml/.yml in dir is used if present), and environment variables.
func Load(dir, path string) (Config, error) {
	k := koanf.New(".")

	defaults := Default()
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"permission_ttl":  defaults.PermissionTTL.String(),
		"undo_depth":      defaults.UndoDepth,
		"size_limit":      defaults.SizeLimit,
		"queue_capacity":  defaults.QueueCapacity,
		"default_branch":  defaults.DefaultBranch,
		"github.base_url": defaults.GitHub.BaseURL,
		"logging.level":   defaults.Logging.Level,
	}, "."), nil); err != nil {
		return Config{}, fmt.Errorf("config: load defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile(dir)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	// FOUNDRY_GITHUB.TOKEN is unpronounceable; map double underscore to the
	// key separator instead: FOUNDRY_GITHUB__TOKEN -> github.token.
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return Config{}, fmt.Errorf("config: load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	cfg.applyFloors()
	return cfg, nil
}

// applyFloors backfills zero or negative values with the defaults.
func (c *Config) applyFloors() {
	defaults := Default()
	if c.PermissionTTL <= 0 {
		c.PermissionTTL = defaults.PermissionTTL
	}
	if c.UndoDepth <= 0 {
		c.UndoDepth = defaults.UndoDepth
	}
	if c.SizeLimit <= 0 {
		c.SizeLimit = defaults.SizeLimit
	}
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = defaults.QueueCapacity
	}
	if c.DefaultBranch == "" {
		c.DefaultBranch = defaults.DefaultBranch
	}
	if c.GitHub.BaseURL == "" {
		c.GitHub.BaseURL = defaults.GitHub.BaseURL
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaults.Logging.Level
	}
}

func findConfigFile(dir string) string {
	if dir == "" {
		dir = "."
	}
	for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}
