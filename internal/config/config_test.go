package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dhcpwatch/pkg/models"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dhcpwatch.ini")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	cfg, err := New(filepath.Join(t.TempDir(), "missing.ini"))
	require.NoError(t, err)

	assert.Equal(t, 240, cfg.OptionsOffset)
	assert.Equal(t, time.Second, cfg.RefreshInterval)
	assert.True(t, cfg.AutoRefresh)
	assert.Equal(t, "127.0.0.1:8067", cfg.HTTPListen)
	assert.Empty(t, cfg.File)

	enc, err := cfg.Encoding()
	require.NoError(t, err)
	assert.Equal(t, models.DecimalList, enc)
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
Interface = eth1
RefreshInterval = 100ms
AutoRefresh = false
MaxLogs = 50
RawEncoding = hex
RequireCookie = true
HTTPListen = 0.0.0.0:9000
`)

	cfg, err := New(path)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.File)
	assert.Equal(t, "eth1", cfg.Interface)
	assert.Equal(t, 100*time.Millisecond, cfg.RefreshInterval)
	assert.False(t, cfg.AutoRefresh)
	assert.Equal(t, 50, cfg.MaxLogs)
	assert.Equal(t, "0.0.0.0:9000", cfg.HTTPListen)

	enc, err := cfg.Encoding()
	require.NoError(t, err)
	assert.Equal(t, models.HexEncoded, enc)

	scanner := cfg.Scanner()
	assert.Equal(t, 240, scanner.Offset)
	assert.True(t, scanner.RequireCookie)

	refresh := cfg.Refresh()
	assert.Equal(t, 100*time.Millisecond, refresh.Interval)
	assert.False(t, refresh.AutoRefresh)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "interface = eth1\nrefreshinterval = 2s\n")
	t.Setenv("INTERFACE", "wlan0")
	t.Setenv("REFRESHINTERVAL", "250ms")
	t.Setenv("OPTIONSOFFSET", "244")

	cfg, err := New(path)
	require.NoError(t, err)
	assert.Equal(t, "wlan0", cfg.Interface)
	assert.Equal(t, 250*time.Millisecond, cfg.RefreshInterval)
	assert.Equal(t, 244, cfg.OptionsOffset)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero interval", func(c *Config) { c.RefreshInterval = 0 }},
		{"negative offset", func(c *Config) { c.OptionsOffset = -1 }},
		{"cookie without room", func(c *Config) { c.OptionsOffset = 2; c.RequireCookie = true }},
		{"negative maxlogs", func(c *Config) { c.MaxLogs = -5 }},
		{"bad encoding", func(c *Config) { c.RawEncoding = "base64" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, DefaultConfig().Validate())
}
