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
	path := filepath.Join(t.TempDir(), "local.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
env: local
db:
  user: oee
  name: oee_test
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, "localhost:4001", cfg.Address)
	assert.Equal(t, 4*time.Second, cfg.HTTPServer.Timeout)
	assert.Equal(t, 3306, cfg.DB.Port)
	assert.Equal(t, "@every 2m", cfg.AlertTick)
	assert.Equal(t, 2, cfg.RecalcDays)
	assert.Equal(t, 60*time.Second, cfg.SettingsCacheTTL)
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestLoad_InvalidTimezone(t *testing.T) {
	path := writeConfig(t, `
timezone: Mars/Olympus
db:
  user: oee
  name: oee_test
`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_MissingRequired(t *testing.T) {
	path := writeConfig(t, "env: local\n")

	_, err := Load(path)
	assert.Error(t, err)
}
