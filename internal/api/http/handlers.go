package http

import (
	"net/http"

	"github.com/GriffinCanCode/webterminator/internal/domain/session"
	"github.com/GriffinCanCode/webterminator/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/webterminator/internal/infrastructure/resilience"
	"github.com/gin-gonic/gin"
)

// Version is reported by the root and health endpoints
const Version = "0.1.0"

// SessionLister exposes the live session table
type SessionLister interface {
	Sessions() []session.Session
	Len() int
}

// Handlers contains all HTTP handlers
type Handlers struct {
	sessions SessionLister
	metrics  *monitoring.Metrics
	breaker  *resilience.Breaker
}

// NewHandlers creates a new handler set. metrics and breaker may be nil.
func NewHandlers(sessions SessionLister, metrics *monitoring.Metrics, breaker *resilience.Breaker) *Handlers {
	return &Handlers{
		sessions: sessions,
		metrics:  metrics,
		breaker:  breaker,
	}
}

// Root handles liveness
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "webterminator",
		"version": Version,
	})
}

// Health reports session counts and spawn health. It answers 503 while the
// spawn breaker is open, since no new terminal can start.
func (h *Handlers) Health(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{
		"status":   "healthy",
		"version":  Version,
		"sessions": h.sessions.Len(),
	}

	if h.breaker != nil {
		state := h.breaker.State()
		body["spawn_breaker"] = state.String()
		if state == resilience.StateOpen {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
	}
	if h.metrics != nil {
		body["metrics"] = h.metrics.Snapshot()
	}

	c.JSON(status, body)
}

// ListSessions lists live sessions
func (h *Handlers) ListSessions(c *gin.Context) {
	sessions := h.sessions.Sessions()
	c.JSON(http.StatusOK, gin.H{
		"sessions": sessions,
		"count":    len(sessions),
	})
}
