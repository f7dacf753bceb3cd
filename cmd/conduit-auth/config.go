package main

import (
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	auth "github.com/goliatone/go-conduit-auth"
)

const (
	envPrefix       = "CONDUIT_"
	defaultDatabase = "file:conduit.db?cache=shared&_pragma=foreign_keys(1)"
	defaultAddress  = ":3000"
)

// appConfig is the full binary configuration. Auth options live under the
// "auth" key, CONDUIT_AUTH_SECRET sets auth.secret.
type appConfig struct {
	Address     string            `koanf:"address"`
	Database    string            `koanf:"database"`
	LogLevel    string            `koanf:"log_level"`
	HashWorkers int               `koanf:"hash_workers"`
	MetricsPath string            `koanf:"metrics_path"`
	UseHashid   bool              `koanf:"use_hashid"`
	Auth        auth.StaticConfig `koanf:"auth"`
}

func loadConfig(path string, flags *pflag.FlagSet) (appConfig, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return appConfig{}, err
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return appConfig{}, err
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, flagKey(flags)), nil); err != nil {
			return appConfig{}, err
		}
	}

	cfg := appConfig{
		Address:     defaultAddress,
		Database:    defaultDatabase,
		LogLevel:    "info",
		MetricsPath: "/metrics",
	}
	if err := k.Unmarshal("", &cfg); err != nil {
		return appConfig{}, err
	}

	cfg.Auth = cfg.Auth.WithDefaults()
	if err := cfg.Auth.Validate(); err != nil {
		return appConfig{}, err
	}

	return cfg, nil
}

// CONDUIT_AUTH_SECRET -> auth.secret, CONDUIT_LOG_LEVEL -> log_level
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	if rest, ok := strings.CutPrefix(s, "auth_"); ok {
		return "auth." + rest
	}
	return s
}

// flags use dashes, keys use underscores. Unchanged flags do not override
// values from the file or the environment.
func flagKey(flags *pflag.FlagSet) func(f *pflag.Flag) (string, any) {
	return func(f *pflag.Flag) (string, any) {
		if !f.Changed {
			return "", nil
		}
		return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
	}
}
