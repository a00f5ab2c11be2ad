package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Terminal  TerminalConfig
	WebSocket WebSocketConfig
	Spawn     SpawnConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string   `envconfig:"PORT" default:"3002"`
	Host         string   `envconfig:"HOST" default:"0.0.0.0"`
	StaticDir    string   `envconfig:"STATIC_DIR" default:""`
	AllowOrigins []string `envconfig:"CORS_ORIGINS" default:"*"`
}

// TerminalConfig holds PTY session configuration.
type TerminalConfig struct {
	Shell       string `envconfig:"TERM_SHELL" default:""`
	Name        string `envconfig:"TERM_NAME" default:"xterm-color"`
	WorkingDir  string `envconfig:"TERM_CWD" default:""`
	MaxSessions int    `envconfig:"TERM_MAX_SESSIONS" default:"32"`
}

// WebSocketConfig holds per-connection transport configuration.
type WebSocketConfig struct {
	ReadLimit    int64         `envconfig:"WS_READ_LIMIT" default:"65536"`
	PingInterval time.Duration `envconfig:"WS_PING_INTERVAL" default:"30s"`
	PongWait     time.Duration `envconfig:"WS_PONG_WAIT" default:"60s"`
	WriteWait    time.Duration `envconfig:"WS_WRITE_WAIT" default:"10s"`
	SendBuffer   int           `envconfig:"WS_SEND_BUFFER" default:"256"`
	InputRate    int           `envconfig:"WS_INPUT_RATE" default:"200"`
	InputBurst   int           `envconfig:"WS_INPUT_BURST" default:"200"`
}

// SpawnConfig holds the spawn circuit breaker configuration.
type SpawnConfig struct {
	MaxFailures    uint32        `envconfig:"SPAWN_MAX_FAILURES" default:"5"`
	OpenTimeout    time.Duration `envconfig:"SPAWN_OPEN_TIMEOUT" default:"30s"`
	ResetWindow    time.Duration `envconfig:"SPAWN_RESET_WINDOW" default:"60s"`
	BreakerEnabled bool          `envconfig:"SPAWN_BREAKER_ENABLED" default:"true"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         "3002",
			Host:         "0.0.0.0",
			AllowOrigins: []string{"*"},
		},
		Terminal: TerminalConfig{
			Name:        "xterm-color",
			MaxSessions: 32,
		},
		WebSocket: WebSocketConfig{
			ReadLimit:    64 * 1024,
			PingInterval: 30 * time.Second,
			PongWait:     60 * time.Second,
			WriteWait:    10 * time.Second,
			SendBuffer:   256,
			InputRate:    200,
			InputBurst:   200,
		},
		Spawn: SpawnConfig{
			MaxFailures:    5,
			OpenTimeout:    30 * time.Second,
			ResetWindow:    60 * time.Second,
			BreakerEnabled: true,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}

// ResolveShell returns the configured shell, then $SHELL, then /bin/bash.
func (t TerminalConfig) ResolveShell() string {
	if t.Shell != "" {
		return t.Shell
	}
	if shell := os.Getenv("SHELL"); shell != "" {
		return shell
	}
	return "/bin/bash"
}

// ResolveWorkingDir returns the configured directory, then $HOME, then /tmp.
func (t TerminalConfig) ResolveWorkingDir() string {
	if t.WorkingDir != "" {
		return t.WorkingDir
	}
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	return os.TempDir()
}
