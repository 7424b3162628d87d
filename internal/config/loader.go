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
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "REPORTBUILDER_"

// configFileNames are looked up in the working directory when no config
// file is given.
var configFileNames = []string{"reportbuilder.yaml", "reportbuilder.yml"}

// flagKeys maps CLI flag names to configuration keys. Flags not listed
// here are not configuration.
var flagKeys = map[string]string{
	"datasource":   "datasource",
	"catalog-dir":  "catalog_dir",
	"database":     "database",
	"executor":     "executor.mode",
	"base-url":     "executor.base_url",
	"token":        "executor.token",
	"timeout":      "executor.timeout",
	"data":         "executor.data",
	"preview-rows": "executor.preview_rows",
	"seed":         "executor.seed",
	"latency":      "executor.latency",
	"format":       "format",
	"verbose":      "verbose",
}

// Loaded is a validated configuration and where it came from.
type Loaded struct {
	*Config

	// File is the config file that was read, or "".
	File string
}

// Load builds the configuration.
// Precedence (highest to lowest): flags > env vars > config file > defaults
//
// cfgFile names the config file; when empty, reportbuilder.yaml or
// reportbuilder.yml in the working directory is used if present. An
// explicit cfgFile must exist. Only flags that were explicitly set
// override lower layers.
func Load(cfgFile string, flags *pflag.FlagSet) (*Loaded, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	used, err := findConfigFile(cfgFile)
	if err != nil {
		return nil, err
	}
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	// 3. Environment: REPORTBUILDER_EXECUTOR_BASE_URL -> executor.base_url
	envKeys := envKeyMap()
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return envKeys[s]
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Loaded{Config: &cfg, File: used}, nil
}

// findConfigFile resolves the config file to read.
// Priority: explicit path > reportbuilder.yaml > reportbuilder.yml
func findConfigFile(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file: %w", err)
		}
		return explicit, nil
	}
	for _, name := range configFileNames {
		if _, err := os.Stat(name); err == nil {
			return name, nil
		}
	}
	return "", nil
}

// envKeyMap maps environment variable names to configuration keys.
// Unknown REPORTBUILDER_ variables map to "" and are skipped.
func envKeyMap() map[string]string {
	m := make(map[string]string)
	for _, key := range keys() {
		name := EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		m[name] = key
	}
	return m
}
