// Package config provides configuration management for the querypipe CLI.
// Precedence, lowest to highest: built-in defaults, querypipe.yaml,
// QUERYPIPE_* environment variables, command-line flags.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/leapstack-labs/querypipe/pkg/core"
)

// ConfigFileName is the default config file name.
const ConfigFileName = "querypipe.yaml"

// ConfigFileNameAlt is the alternate config file name.
const ConfigFileNameAlt = "querypipe.yml"

// envPrefix is stripped from environment variables; a double underscore
// nests keys (QUERYPIPE_DATABASE__URL → database.url).
const envPrefix = "QUERYPIPE_"

// Config holds all CLI configuration options.
type Config struct {
	Database core.DatabaseConfig `koanf:"database"`
	Verbose  bool                `koanf:"verbose"`

	// LogQueries echoes the pipeline's query log after execution.
	LogQueries bool `koanf:"log_queries"`
}

// defaults returns the built-in configuration.
func defaults() map[string]any {
	return map[string]any{
		"database.provider": string(core.ProviderSQLite),
		"database.path":     ":memory:",
		"verbose":           false,
		"log_queries":       false,
	}
}

// findConfigFile finds the config file to use.
// Priority: explicit path > querypipe.yaml > querypipe.yml
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if _, err := os.Stat(ConfigFileName); err == nil {
		return ConfigFileName
	}
	if _, err := os.Stat(ConfigFileNameAlt); err == nil {
		return ConfigFileNameAlt
	}
	return ""
}

// Load assembles the configuration from defaults, file, environment, and
// explicitly set flags.
func Load(explicitPath string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return nil, fmt.Errorf("config file not found: %s", explicitPath)
		}
	}
	if path := findConfigFile(explicitPath); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			// Only load flags that were explicitly set
			if !f.Changed {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if !cfg.Database.Provider.Known() {
		return nil, fmt.Errorf("unknown database provider %q", cfg.Database.Provider)
	}
	return &cfg, nil
}
