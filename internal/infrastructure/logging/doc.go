// Package logging provides structured logging using uber/zap.
//
// Two output modes are supported:
//   - Production: JSON lines for machine parsing
//   - Development: colored console output
//
// Session, window and connection identifiers are attached with the field
// helpers in this package so every log line about a terminal carries the
// same keys on both sides of the wire.
//
// Example Usage:
//
//	logger, err := logging.New(logging.DefaultConfig())
//	logger.Info("Session created", logging.Session("window_1"), logging.Conn(connID))
package logging
