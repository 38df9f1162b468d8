package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "finstruct.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "./data/reports", cfg.Source.Root)
	assert.Equal(t, "./data/index", cfg.Index.Dir)
	assert.Equal(t, 0, cfg.Index.Workers)
	assert.Equal(t, "UTC", cfg.Index.Timezone)
	assert.Empty(t, cfg.Index.Schedule)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout())
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
	assert.Equal(t, 5*time.Minute, cfg.Redis.TTL())
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
source:
  root: /srv/reports
index:
  dir: /srv/index
  workers: 4
  schedule: "0 2 * * *"
  timezone: Asia/Hong_Kong
server:
  addr: 127.0.0.1:9000
  writeTimeoutSec: 60
redis:
  enabled: true
  host: cache
  ttlSec: 30
logging:
  format: console
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/reports", cfg.Source.Root)
	assert.Equal(t, "/srv/index", cfg.Index.Dir)
	assert.Equal(t, 4, cfg.Index.Workers)
	assert.Equal(t, "0 2 * * *", cfg.Index.Schedule)
	assert.Equal(t, "Asia/Hong_Kong", cfg.Index.Timezone)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, time.Minute, cfg.Server.WriteTimeout())
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout())
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr())
	assert.Equal(t, 30*time.Second, cfg.Redis.TTL())
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, "index:\n  workers: 2\n")
	t.Setenv("FINSTRUCT_INDEX_WORKERS", "8")
	t.Setenv("FINSTRUCT_SOURCE_ROOT", "/mnt/reports")
	t.Setenv("FINSTRUCT_LOGGING_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Index.Workers)
	assert.Equal(t, "/mnt/reports", cfg.Source.Root)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad yaml", "index: [unterminated\n"},
		{"negative workers", "index:\n  workers: -1\n"},
		{"unknown timezone", "index:\n  timezone: Mars/Olympus\n"},
		{"redis without ttl", "redis:\n  enabled: true\n  ttlSec: 0\n"},
		{"empty index dir", "index:\n  dir: \"\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
