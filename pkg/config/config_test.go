package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "kvmir.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", "")
	require.NoError(t, err)
	require.Equal(t, DefaultBindAddr, cfg.BindAddr)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, 0, cfg.MaxItems)
	require.False(t, cfg.Persistence.Enabled)
	require.EqualValues(t, 1000, cfg.Persistence.FlushEveryChanges)
}

func TestLoadBindAddrOverride(t *testing.T) {
	cfg, err := Load("", "0.0.0.0:9999")
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:9999", cfg.BindAddr)
}

func TestLoadFromFile(t *testing.T) {
	path := writeTempConfig(t, `
[logger]
level = "debug"

[engine]
max_items = 500

[engine.persistence]
enabled = true
file = "/tmp/kvmir.db"
flush_every_changes = 10
`)
	cfg, err := Load(path, "")
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, 500, cfg.MaxItems)
	require.True(t, cfg.Persistence.Enabled)
	require.Equal(t, "/tmp/kvmir.db", cfg.Persistence.File)
	require.EqualValues(t, 10, cfg.Persistence.FlushEveryChanges)
}

func TestLoadFileOverriddenByBindAddr(t *testing.T) {
	path := writeTempConfig(t, `
[logger]
level = "warn"
`)
	cfg, err := Load(path, "127.0.0.1:7000")
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:7000", cfg.BindAddr)
	require.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadRejectsInvalidLogLevel(t *testing.T) {
	path := writeTempConfig(t, `
[logger]
level = "verbose"
`)
	_, err := Load(path, "")
	require.Error(t, err)
}

func TestLoadRejectsPersistenceWithoutFile(t *testing.T) {
	path := writeTempConfig(t, `
[engine.persistence]
enabled = true
`)
	_, err := Load(path, "")
	require.Error(t, err)
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load("/nonexistent/path/kvmir.toml", "")
	require.Error(t, err)
}
