package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 5*time.Minute, cfg.Cache.AnalyticsTTL.Std())
	assert.Equal(t, 30*time.Second, cfg.Cache.AlertsTTL.Std())
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
server:
  port: "9090"
cache:
  analytics_ttl: 2m
  alerts_ttl: 10s
db:
  connect_attempts: 3
`
	assert.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	assert.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 2*time.Minute, cfg.Cache.AnalyticsTTL.Std())
	assert.Equal(t, 10*time.Second, cfg.Cache.AlertsTTL.Std())
	assert.Equal(t, 3, cfg.DB.ConnectAttempts)
	// Untouched sections keep their defaults.
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout.Std())
}

func TestLoad_EnvWinsOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	assert.NoError(t, os.WriteFile(path, []byte("server:\n  port: \"9090\"\n"), 0o600))

	t.Setenv("PORT", "7070")
	t.Setenv("JWT_SECRET", "from-env")

	cfg, err := Load(path)
	assert.NoError(t, err)
	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
}

func TestLoad_BadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	assert.NoError(t, os.WriteFile(path, []byte("cache:\n  analytics_ttl: nonsense\n"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_RejectsZeroAttempts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	assert.NoError(t, os.WriteFile(path, []byte("db:\n  connect_attempts: 0\n"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}
