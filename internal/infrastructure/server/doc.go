// Package server assembles the terminal server: configuration, logging,
// metrics, tracing, the session registry and the gin router that exposes
// the websocket endpoint, health, session listing and Prometheus metrics.
package server
