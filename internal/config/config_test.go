package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "versionstore.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
grpc:
  port: 6000
log:
  level: debug
  pretty: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 6000, cfg.GRPC.Port)
	assert.Equal(t, 4<<20, cfg.GRPC.MaxMessageBytes, "unset keys keep defaults")
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.Pretty)
	assert.True(t, cfg.Observability.Enabled)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"port out of range": "grpc:\n  port: 70000\n",
		"unknown level":     "log:\n  level: loud\n",
		"tiny messages":     "grpc:\n  max_message_bytes: 10\n",
		"metrics no port":   "observability:\n  enabled: true\n  port: 0\n",
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestDisabledObservabilityNeedsNoPort(t *testing.T) {
	path := writeConfig(t, "observability:\n  enabled: false\n  port: 0\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.False(t, cfg.Observability.Enabled)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
