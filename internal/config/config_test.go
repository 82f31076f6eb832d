package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0644))
	return dir
}

func TestLoadConfig(t *testing.T) {
	dir := writeConfig(t, `
server:
  port: "9000"
  mode: release
  base_path: /api
database:
  driver: sqlite
  path: /tmp/learnhub.db
recommend:
  top_n: 3
  cache_ttl: 5m
progress:
  require_registration: true
cors:
  allowed_origins: [http://localhost:3000]
`)

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "release", cfg.Server.Mode)
	assert.Equal(t, "/api", cfg.Server.BasePath)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/tmp/learnhub.db", cfg.Database.Path)
	assert.Equal(t, 3, cfg.Recommend.TopN)
	assert.Equal(t, 5*time.Minute, cfg.Recommend.CacheTTL)
	assert.True(t, cfg.Progress.RequireRegistration)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, filepath.Join(dir, "config.yaml"), cfg.Path)

	// 未配置的项使用默认值
	assert.Equal(t, "local", cfg.Storage.Type)
	assert.Equal(t, 4, cfg.Retail.Segments)
	assert.Equal(t, int64(42), cfg.Retail.Seed)
	assert.Equal(t, 6000, cfg.RateLimit.MaxRequests)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	dir := writeConfig(t, "server:\n  port: \"9000\"\n")
	t.Setenv("SERVER_PORT", "9100")
	t.Setenv("REDIS_ENABLED", "true")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "9100", cfg.Server.Port)
	assert.True(t, cfg.Redis.Enabled)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(t.TempDir())
	assert.Error(t, err)
}

func TestLoadConfigInvalid(t *testing.T) {
	dir := writeConfig(t, "database:\n  driver: postgres\n")
	_, err := LoadConfig(dir)
	assert.ErrorContains(t, err, "postgres")

	dir = writeConfig(t, "recommend:\n  top_n: 0\n")
	_, err = LoadConfig(dir)
	assert.ErrorContains(t, err, "top_n")
}

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}
