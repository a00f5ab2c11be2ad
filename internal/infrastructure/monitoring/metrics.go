package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "webterm"

// Session end reasons used as label values.
const (
	EndExited   = "exited"
	EndClosed   = "closed"
	EndTeardown = "teardown"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Session metrics
	SessionsActive  prometheus.Gauge
	SessionsCreated prometheus.Counter
	SessionsEnded   *prometheus.CounterVec
	SessionErrors   *prometheus.CounterVec
	SpawnDuration   *prometheus.HistogramVec
	PTYBytes        *prometheus.CounterVec

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec
	WSThrottled   prometheus.Counter

	// Circuit breaker state: 0 closed, 1 half-open, 2 open
	BreakerState prometheus.Gauge

	startTime time.Time

	snapshot Snapshot
	mu       sync.RWMutex
}

// Snapshot holds current values for the JSON health endpoint
type Snapshot struct {
	TotalRequests     int64   `json:"total_requests"`
	TotalErrors       int64   `json:"total_errors"`
	ActiveSessions    int64   `json:"active_sessions"`
	ActiveConnections int64   `json:"active_connections"`
	UptimeSeconds     float64 `json:"uptime_seconds"`
}

// NewMetrics creates a collector registered on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{startTime: time.Now()}

	m.RequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	m.RequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	m.SessionsActive = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sessions_active",
		Help:      "Number of live terminal sessions",
	})
	m.SessionsCreated = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_created_total",
		Help:      "Total number of terminal sessions spawned",
	})
	m.SessionsEnded = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_ended_total",
			Help:      "Total number of terminal sessions ended, by reason",
		},
		[]string{"reason"},
	)
	m.SessionErrors = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_errors_total",
			Help:      "Session requests rejected, by error code",
		},
		[]string{"code"},
	)
	m.SpawnDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "spawn_duration_seconds",
			Help:      "Time to start a shell process",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"status"},
	)
	m.PTYBytes = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pty_bytes_total",
			Help:      "Bytes moved through PTYs",
		},
		[]string{"direction"},
	)

	m.WSConnections = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "ws_connections",
		Help:      "Number of open websocket connections",
	})
	m.WSMessages = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_messages_total",
			Help:      "Total number of websocket frames",
		},
		[]string{"direction", "type"},
	)
	m.WSThrottled = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ws_throttled_total",
		Help:      "Inbound frames delayed by the input rate limiter",
	})

	m.BreakerState = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "spawn_breaker_state",
		Help:      "Spawn circuit breaker state (0 closed, 1 half-open, 2 open)",
	})

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "uptime_seconds",
		Help:      "Server uptime in seconds",
	}, func() float64 {
		return time.Since(m.startTime).Seconds()
	})

	return m
}

// Handler exposes the registry in the Prometheus text format
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.TotalRequests++
	if len(status) > 0 && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordWSMessage records a websocket frame
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments websocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
	m.mu.Lock()
	m.snapshot.ActiveConnections++
	m.mu.Unlock()
}

// DecWSConnections decrements websocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
	m.mu.Lock()
	m.snapshot.ActiveConnections--
	m.mu.Unlock()
}

// IncThrottled counts a rate-limited inbound frame
func (m *Metrics) IncThrottled() {
	m.WSThrottled.Inc()
}

// SessionStarted records a successful spawn
func (m *Metrics) SessionStarted() {
	m.SessionsCreated.Inc()
	m.SessionsActive.Inc()
	m.mu.Lock()
	m.snapshot.ActiveSessions++
	m.mu.Unlock()
}

// SessionEnded records a session leaving the registry
func (m *Metrics) SessionEnded(reason string) {
	m.SessionsEnded.WithLabelValues(reason).Inc()
	m.SessionsActive.Dec()
	m.mu.Lock()
	m.snapshot.ActiveSessions--
	m.mu.Unlock()
}

// RecordSessionError counts a rejected session request
func (m *Metrics) RecordSessionError(code string) {
	m.SessionErrors.WithLabelValues(code).Inc()
}

// AddPTYBytes counts bytes written to ("in") or read from ("out") a PTY
func (m *Metrics) AddPTYBytes(direction string, n int) {
	m.PTYBytes.WithLabelValues(direction).Add(float64(n))
}

// SetBreakerState publishes the spawn breaker state
func (m *Metrics) SetBreakerState(state int) {
	m.BreakerState.Set(float64(state))
}

// Snapshot returns the current counters for JSON reporting
func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := m.snapshot
	s.UptimeSeconds = time.Since(m.startTime).Seconds()
	return s
}
