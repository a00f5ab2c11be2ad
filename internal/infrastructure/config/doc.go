// Package config provides 12-factor configuration for the terminal server.
//
// Configuration is loaded from environment variables with sensible defaults.
// CLI flags in cmd/server can override individual values.
//
// Configuration Sections:
//   - Server: HTTP listener and optional static asset directory
//   - Terminal: shell, TERM name, working directory and per-connection limits
//   - WebSocket: read limit, keep-alive timing, outbound queue, input rate
//   - Spawn: circuit breaker guarding PTY spawns
//   - Logging: log level and output format
//   - RateLimit: per-IP HTTP rate limiting
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	srv, err := server.NewServer(cfg)
package config
