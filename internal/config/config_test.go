package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.StoreBackend)
	assert.Equal(t, "8000", cfg.HTTPPort)
	assert.Equal(t, time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC), cfg.BackfillStart)
	assert.Equal(t, time.Date(2025, time.July, 2, 0, 0, 0, 0, time.UTC), cfg.BackfillEnd)
	assert.False(t, cfg.ProtectAdminUsers)
	assert.True(t, cfg.ProtectLastAdmin)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attendance.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
store_backend: sqlite
sqlite_path: /var/lib/attendance.db
http_port: 9000
protect_admin_users: true
archive_retention: 72h
cors_origins:
  - http://localhost:3000
  - https://office.example.com
`), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("HTTP_PORT", "8123")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.StoreBackend)
	assert.Equal(t, "/var/lib/attendance.db", cfg.SQLitePath)
	assert.Equal(t, "8123", cfg.HTTPPort)
	assert.True(t, cfg.ProtectAdminUsers)
	assert.Equal(t, 72*time.Hour, cfg.ArchiveRetention)
	assert.Equal(t, []string{"http://localhost:3000", "https://office.example.com"}, cfg.CORSOrigins)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")

	t.Setenv("STORE_BACKEND", "cassandra")
	_, err := Load()
	assert.ErrorContains(t, err, "STORE_BACKEND")

	t.Setenv("STORE_BACKEND", "postgres")
	t.Setenv("BACKFILL_START", "2025/04/01")
	_, err = Load()
	assert.ErrorContains(t, err, "BACKFILL_START")

	t.Setenv("BACKFILL_START", "2025-08-01")
	_, err = Load()
	assert.ErrorContains(t, err, "BACKFILL_END")

	t.Setenv("BACKFILL_START", "2025-04-01")
	t.Setenv("PURGE_INTERVAL", "0s")
	_, err = Load()
	assert.ErrorContains(t, err, "PURGE_INTERVAL")
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := Load()
	assert.Error(t, err)
}

func TestHelpersFallBack(t *testing.T) {
	s := source{file: map[string]string{"ACCESS_TTL": "soon", "RATE_LIMIT_PER_MIN": "lots", "SEED_DEFAULTS": "maybe"}}
	assert.Equal(t, time.Minute, s.durationEnv("ACCESS_TTL", time.Minute))
	assert.Equal(t, 5, s.intEnv("RATE_LIMIT_PER_MIN", 5))
	assert.True(t, s.boolEnv("SEED_DEFAULTS", true))
	assert.Equal(t, []string{"a"}, s.listEnv("CORS_ORIGINS", []string{"a"}))
}
