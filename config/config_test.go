package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "api.hiven.io", cfg.Host)
	assert.Equal(t, "v1", cfg.APIVersion)
	assert.Equal(t, 30*time.Second, cfg.Heartbeat)
	assert.Equal(t, 40*time.Second, cfg.CloseTimeout)
	assert.Equal(t, 128, cfg.UserTokenLength)
	assert.Equal(t, 132, cfg.BotTokenLength)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty host", func(c *Config) { c.Host = "" }},
		{"empty api version", func(c *Config) { c.APIVersion = "" }},
		{"empty ws endpoint", func(c *Config) { c.WSEndpoint = "" }},
		{"http ws endpoint", func(c *Config) { c.WSEndpoint = "https://swarm.hiven.io/socket" }},
		{"zero heartbeat", func(c *Config) { c.Heartbeat = 0 }},
		{"negative close timeout", func(c *Config) { c.CloseTimeout = -time.Second }},
		{"zero token length", func(c *Config) { c.UserTokenLength = 0 }},
		{"negative reconnect tries", func(c *Config) { c.MaxReconnectTries = -1 }},
		{"zero miss budget", func(c *Config) { c.HeartbeatMissBudget = 0 }},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := Default()
			test.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoad_YAMLOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hiven.yaml")
	require.NoError(t, os.WriteFile(path, []byte("host: staging.hiven.io\nheartbeat: 10s\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "staging.hiven.io", cfg.Host)
	assert.Equal(t, 10*time.Second, cfg.Heartbeat)
	// Untouched fields keep their defaults
	assert.Equal(t, "v1", cfg.APIVersion)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hiven.yaml")
	require.NoError(t, os.WriteFile(path, []byte("host: staging.hiven.io\n"), 0o644))

	t.Setenv("HIVEN_HOST", "env.hiven.io")
	t.Setenv("HIVEN_BOT_TOKEN_LEN", "128")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env.hiven.io", cfg.Host)
	assert.Equal(t, 128, cfg.BotTokenLength)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/hiven.yaml")
	assert.Error(t, err)
}

func TestRestURL(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "https://api.hiven.io/v1", cfg.RestURL())

	cfg.Host = "http://localhost:8080"
	assert.Equal(t, "http://localhost:8080/v1", cfg.RestURL())
}

func TestValidTokenLength(t *testing.T) {
	cfg := Default()
	assert.True(t, cfg.ValidTokenLength(128))
	assert.True(t, cfg.ValidTokenLength(132))
	assert.False(t, cfg.ValidTokenLength(0))
	assert.False(t, cfg.ValidTokenLength(64))
}
