package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	viper.Reset() // Load works on the package-global viper

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
auth:
  jwt_secret: test-secret
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "data/ums.db", cfg.Database.Path)
	assert.Equal(t, "migrations", cfg.Database.MigrationsDir)
	assert.Equal(t, "token", cfg.Auth.CookieName)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 15*time.Second, cfg.Merge.PollInterval)
	assert.Equal(t, 10, cfg.Merge.MaxAttempts)
	assert.Equal(t, "info", cfg.Logger.Level)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
auth:
  jwt_secret: test-secret
  cookie_name: session
merge:
  max_attempts: 3
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "session", cfg.Auth.CookieName)
	assert.Equal(t, 3, cfg.Merge.MaxAttempts)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("UMS_PORT", "7070")
	t.Setenv("UMS_JWT_SECRET", "env-secret")

	path := writeConfig(t, `
server:
  port: 9090
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port, "environment wins over the file")
	assert.Equal(t, "env-secret", cfg.Auth.JWTSecret)
}

func TestLoad_Validation(t *testing.T) {
	t.Run("missing jwt secret", func(t *testing.T) {
		path := writeConfig(t, `
server:
  port: 8080
`)
		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "jwt_secret")
	})

	t.Run("port out of range", func(t *testing.T) {
		path := writeConfig(t, `
server:
  port: 99999
auth:
  jwt_secret: test-secret
`)
		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "port")
	})

	t.Run("backoff bounds", func(t *testing.T) {
		path := writeConfig(t, `
auth:
  jwt_secret: test-secret
merge:
  base_backoff: 1m
  max_backoff: 5s
`)
		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "backoff")
	})

	t.Run("missing file", func(t *testing.T) {
		viper.Reset()
		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
	})
}
