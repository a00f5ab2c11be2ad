// Package main is the entry point for the web terminal server.
//
// The server hosts shell sessions for a browser desktop: each window on
// the client owns one PTY-backed shell, and all of a client's windows are
// multiplexed over a single websocket.
//
// Architecture:
//
//	Browser windows → /ws (one connection) → Session Registry → PTY shells
//
// The server provides:
//   - WebSocket endpoint for terminal sessions
//   - Health and session listing endpoints
//   - Prometheus metrics
//   - Optional static hosting of the client bundle
//
// Configuration:
//   - Environment variables (12-factor)
//   - CLI flags (override env vars)
//   - Defaults for development
//
// Usage:
//
//	# Default port 3002
//	./server
//
//	# Custom port, serve the built client
//	STATIC_DIR=./web/dist ./server -port 8080
//
//	# Development mode (colored logs, debug level)
//	./server -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
