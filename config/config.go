// Package config holds the client configuration: API endpoints, websocket
// tuning and token shape constraints. Values resolve in three layers:
// built-in defaults, an optional YAML file, then HIVEN_* environment
// variables.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Default endpoint and protocol constants for the Hiven swarm.
const (
	DefaultHost       = "api.hiven.io"
	DefaultAPIVersion = "v1"
	DefaultWSEndpoint = "wss://swarm-dev.hiven.io/socket?encoding=json&compression=text_json"

	// DefaultHeartbeat is the interval between heartbeat frames.
	DefaultHeartbeat = 30 * time.Second
	// DefaultCloseTimeout bounds the wait for the close handshake ack.
	DefaultCloseTimeout = 40 * time.Second
	// DefaultRequestTimeout bounds a single REST request.
	DefaultRequestTimeout = 5 * time.Second

	// Accepted token lengths. User and bot accounts issue tokens of two
	// distinct fixed lengths; anything else is rejected before dialing.
	DefaultUserTokenLength = 128
	DefaultBotTokenLength  = 132
)

// Config represents the complete client configuration.
type Config struct {
	Host       string `json:"host" yaml:"host" env:"HIVEN_HOST"`
	APIVersion string `json:"api_version" yaml:"api_version" env:"HIVEN_API_VERSION"`
	WSEndpoint string `json:"ws_endpoint" yaml:"ws_endpoint" env:"HIVEN_WS_ENDPOINT"`

	Heartbeat      time.Duration `json:"heartbeat" yaml:"heartbeat" env:"HIVEN_WS_HEARTBEAT"`
	CloseTimeout   time.Duration `json:"close_timeout" yaml:"close_timeout" env:"HIVEN_WS_CLOSE_TIMEOUT"`
	RequestTimeout time.Duration `json:"request_timeout" yaml:"request_timeout" env:"HIVEN_REQUEST_TIMEOUT"`

	UserTokenLength int `json:"user_token_length" yaml:"user_token_length" env:"HIVEN_USER_TOKEN_LEN"`
	BotTokenLength  int `json:"bot_token_length" yaml:"bot_token_length" env:"HIVEN_BOT_TOKEN_LEN"`

	// Restart enables the bounded reconnect sequence when the open
	// session fails. When disabled the failure propagates to Run.
	Restart           bool `json:"restart" yaml:"restart" env:"HIVEN_RESTART"`
	MaxReconnectTries int  `json:"max_reconnect_tries" yaml:"max_reconnect_tries" env:"HIVEN_MAX_RECONNECT_TRIES"`

	// HeartbeatMissBudget is the number of consecutive unacknowledged
	// heartbeats tolerated before the session is considered dead.
	HeartbeatMissBudget int `json:"heartbeat_miss_budget" yaml:"heartbeat_miss_budget" env:"HIVEN_HEARTBEAT_MISS_BUDGET"`

	// LogWebSocket additionally logs raw websocket frames at debug level.
	LogWebSocket bool `json:"log_websocket" yaml:"log_websocket" env:"HIVEN_LOG_WEBSOCKET"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Host:                DefaultHost,
		APIVersion:          DefaultAPIVersion,
		WSEndpoint:          DefaultWSEndpoint,
		Heartbeat:           DefaultHeartbeat,
		CloseTimeout:        DefaultCloseTimeout,
		RequestTimeout:      DefaultRequestTimeout,
		UserTokenLength:     DefaultUserTokenLength,
		BotTokenLength:      DefaultBotTokenLength,
		MaxReconnectTries:   5,
		HeartbeatMissBudget: 2,
	}
}

// Load resolves the configuration: defaults, then the YAML file at path
// (skipped when path is empty), then environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for completeness and consistency.
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("config: host must not be empty")
	}
	if c.APIVersion == "" {
		return fmt.Errorf("config: api_version must not be empty")
	}
	if c.WSEndpoint == "" {
		return fmt.Errorf("config: ws_endpoint must not be empty")
	}
	u, err := url.Parse(c.WSEndpoint)
	if err != nil {
		return fmt.Errorf("config: invalid ws_endpoint: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("config: ws_endpoint scheme must be ws or wss, got %q", u.Scheme)
	}
	if c.Heartbeat <= 0 {
		return fmt.Errorf("config: heartbeat must be positive, got %v", c.Heartbeat)
	}
	if c.CloseTimeout <= 0 {
		return fmt.Errorf("config: close_timeout must be positive, got %v", c.CloseTimeout)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("config: request_timeout must be positive, got %v", c.RequestTimeout)
	}
	if c.UserTokenLength <= 0 || c.BotTokenLength <= 0 {
		return fmt.Errorf("config: token lengths must be positive")
	}
	if c.MaxReconnectTries < 0 {
		return fmt.Errorf("config: max_reconnect_tries must not be negative")
	}
	if c.HeartbeatMissBudget <= 0 {
		return fmt.Errorf("config: heartbeat_miss_budget must be positive")
	}
	return nil
}

// Clone creates a copy of the configuration.
func (c *Config) Clone() *Config {
	if c == nil {
		return Default()
	}
	copied := *c
	return &copied
}

// RestURL returns the versioned base URL for REST requests.
func (c *Config) RestURL() string {
	host := strings.TrimSuffix(c.Host, "/")
	if !strings.Contains(host, "://") {
		host = "https://" + host
	}
	return fmt.Sprintf("%s/%s", host, c.APIVersion)
}

// ValidTokenLength reports whether n matches one of the two accepted
// account token lengths.
func (c *Config) ValidTokenLength(n int) bool {
	return n == c.UserTokenLength || n == c.BotTokenLength
}
