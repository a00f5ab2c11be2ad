/*
Package monitoring provides Prometheus metrics for the terminal server.

# Overview

Metrics are registered against an explicit prometheus.Registerer so that
each server instance (and each test) owns its own registry. The collector
tracks HTTP requests, websocket connections and frames, terminal session
lifecycle, PTY throughput and spawn outcomes.

# Usage

	reg := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(reg)

	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(monitoring.Handler(reg)))

	timer := monitoring.NewTimer(metrics)
	// ... start the shell ...
	timer.Stop("success")
*/
package monitoring
