// Package config resolves pgguard settings from defaults, an optional
// pgguard.yaml, the environment and command line flags, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/ridoystarlord/pgguard/loader"
	"github.com/ridoystarlord/pgguard/trace"
)

const (
	EnvPrefix      = "PGGUARD_"
	DefaultEnvFile = ".env"
	DefaultFormat  = "text"
)

// Config holds the resolved settings
type Config struct {
	Paths        []string `koanf:"paths"`
	Debug        string   `koanf:"debug"`
	DatabaseURL  string   `koanf:"database_url"`
	DBSchema     string   `koanf:"db_schema"`
	Tag          string   `koanf:"tag"`
	QueryMethods []string `koanf:"query_methods"`
	IncludeTests bool     `koanf:"include_tests"`
	Verbose      bool     `koanf:"verbose"`
	Format       string   `koanf:"format"`

	// File is the config file that was read, if any
	File string `koanf:"-"`
}

// Options controls where Load looks for settings
type Options struct {
	// File is an explicit config file. When empty pgguard.yaml or
	// pgguard.yml in the working directory is used if present.
	File string
	// EnvFile is loaded into the environment before it is read.
	// Variables already set are not overridden.
	EnvFile string
	// Flags that were changed on the command line override everything else.
	Flags *pflag.FlagSet
}

// Load resolves the configuration
func Load(opts Options) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(map[string]any{
		"paths":         []string{"."},
		"db_schema":     "public",
		"tag":           loader.DefaultTagName,
		"query_methods": loader.DefaultQueryMethods,
		"format":        DefaultFormat,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	cfgFile, err := findConfigFile(opts.File)
	if err != nil {
		return nil, err
	}
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
	}

	// 3. Environment, after .env has been merged into it
	if err := loadEnvFile(opts.EnvFile); err != nil {
		return nil, err
	}
	if err := k.Load(confmap.Provider(fallbackEnv(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}
	// PGGUARD_DATABASE_URL -> database_url
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	if opts.Flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(opts.Flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(opts.Flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.File = cfgFile

	return &cfg, nil
}

// Trace returns the trace channels selected by Debug
func (c *Config) Trace() trace.Config {
	return trace.ParseFilter(c.Debug)
}

// LoaderOptions returns the extractor options the config selects
func (c *Config) LoaderOptions() loader.Options {
	return loader.Options{
		TagName:      c.Tag,
		QueryMethods: c.QueryMethods,
	}
}

func findConfigFile(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file %s: %w", explicit, err)
		}
		return explicit, nil
	}
	for _, name := range []string{"pgguard.yaml", "pgguard.yml"} {
		if _, err := os.Stat(name); err == nil {
			return filepath.Clean(name), nil
		}
	}
	return "", nil
}

func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// fallbackEnv reads the unprefixed variables other tools share: DEBUG for
// trace channels and DATABASE_URL. Prefixed variables take precedence.
func fallbackEnv() map[string]any {
	values := map[string]any{}
	if v, ok := os.LookupEnv("DEBUG"); ok {
		values["debug"] = v
	}
	if v, ok := os.LookupEnv("DATABASE_URL"); ok {
		values["database_url"] = v
	}
	return values
}
