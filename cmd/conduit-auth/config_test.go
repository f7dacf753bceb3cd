package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-conduit-auth"
)

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "auth.secret", envKey("CONDUIT_AUTH_SECRET"))
	assert.Equal(t, "auth.token_expiration", envKey("CONDUIT_AUTH_TOKEN_EXPIRATION"))
	assert.Equal(t, "log_level", envKey("CONDUIT_LOG_LEVEL"))
	assert.Equal(t, "hash_workers", envKey("CONDUIT_HASH_WORKERS"))
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, defaultAddress, cfg.Address)
	assert.Equal(t, defaultDatabase, cfg.Database)
	assert.Equal(t, auth.EnvironmentDevelopment, cfg.Auth.Environment)
	assert.Equal(t, auth.DevelopmentSigningKey, cfg.Auth.SigningKey)
	assert.Equal(t, auth.DefaultTokenExpiration, cfg.Auth.TokenExpiration)
	assert.False(t, cfg.UseHashid)
}

func TestLoadConfig_Precedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conduit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
address: ":4000"
log_level: debug
auth:
  environment: production
  secret: from-file
`), 0o600))

	t.Setenv("CONDUIT_AUTH_SECRET", "from-env")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("address", defaultAddress, "")
	flags.Int("hash-workers", 0, "")
	flags.Bool("use-hashid", false, "")
	require.NoError(t, flags.Parse([]string{"--hash-workers=3", "--use-hashid"}))

	cfg, err := loadConfig(path, flags)
	require.NoError(t, err)

	assert.Equal(t, ":4000", cfg.Address)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 3, cfg.HashWorkers)
	assert.True(t, cfg.UseHashid)
	assert.Equal(t, "from-env", cfg.Auth.SigningKey)
	assert.True(t, cfg.Auth.IsProduction())
}

func TestLoadConfig_ProductionNeedsSecret(t *testing.T) {
	t.Setenv("CONDUIT_AUTH_ENVIRONMENT", "production")

	_, err := loadConfig("", nil)
	require.Error(t, err)

	t.Setenv("CONDUIT_AUTH_SECRET", auth.DevelopmentSigningKey)
	_, err = loadConfig("", nil)
	require.Error(t, err)
}
