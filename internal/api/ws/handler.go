package ws

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/GriffinCanCode/webterminator/internal/domain/session"
	"github.com/GriffinCanCode/webterminator/internal/infrastructure/logging"
	"github.com/GriffinCanCode/webterminator/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/webterminator/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/webterminator/internal/shared/id"
	"github.com/GriffinCanCode/webterminator/internal/shared/protocol"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Registry is the session table the handler dispatches into.
type Registry interface {
	Attach(conn id.ConnID, sink session.Sink) error
	Detach(conn id.ConnID) int
	CreateSession(conn id.ConnID, sessionID string, cols, rows int) error
	WriteInput(conn id.ConnID, sessionID string, data []byte) error
	Resize(conn id.ConnID, sessionID string, cols, rows int) error
	Destroy(conn id.ConnID, sessionID string) error
}

// Config holds per-connection limits.
type Config struct {
	ReadLimit    int64
	PingInterval time.Duration
	PongWait     time.Duration
	WriteWait    time.Duration
	SendBuffer   int
	InputRate    int
	InputBurst   int
}

// DefaultConfig returns the limits used when none are configured.
func DefaultConfig() Config {
	return Config{
		ReadLimit:    64 * 1024,
		PingInterval: 30 * time.Second,
		PongWait:     60 * time.Second,
		WriteWait:    10 * time.Second,
		SendBuffer:   256,
		InputRate:    200,
		InputBurst:   200,
	}
}

// Handler upgrades HTTP requests and runs the terminal protocol.
type Handler struct {
	registry Registry
	cfg      Config
	logger   *zap.Logger
	metrics  *monitoring.Metrics
	tracer   *tracing.Tracer
	upgrader websocket.Upgrader

	mu       sync.Mutex
	live     map[id.ConnID]*client
	draining bool
	wg       sync.WaitGroup
}

// NewHandler creates a websocket handler. metrics and tracer may be nil.
func NewHandler(registry Registry, cfg Config, logger *zap.Logger, metrics *monitoring.Metrics, tracer *tracing.Tracer) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PingInterval <= 0 || cfg.PongWait <= cfg.PingInterval {
		def := DefaultConfig()
		cfg.PingInterval, cfg.PongWait = def.PingInterval, def.PongWait
	}
	return &Handler{
		registry: registry,
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
		tracer:   tracer,
		live:     make(map[id.ConnID]*client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Origin policy is enforced by the CORS middleware in front of us
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// HandleConnection upgrades the request and serves it until it closes.
func (h *Handler) HandleConnection(c *gin.Context) {
	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}
	h.Serve(c.Request.Context(), ws)
}

// Serve runs the protocol on an established websocket.
func (h *Handler) Serve(ctx context.Context, ws *websocket.Conn) {
	connID := id.NewConnID()
	logger := h.logger.With(logging.Conn(connID))

	var span *tracing.Span
	if h.tracer != nil {
		span, ctx = h.tracer.StartSpan(ctx, "ws.connection")
		span.SetTag("conn_id", connID.String())
	}

	cl := newClient(connID, ws, h.cfg, logger, h.metrics)
	if !h.track(cl) {
		logger.Debug("Rejecting connection during shutdown")
		_ = ws.Close()
		return
	}
	defer h.untrack(cl)

	if err := h.registry.Attach(connID, cl); err != nil {
		logger.Error("Attach failed", zap.Error(err))
		_ = ws.Close()
		return
	}
	if h.metrics != nil {
		h.metrics.IncWSConnections()
	}
	logger.Info("Connection opened", zap.String("remote", ws.RemoteAddr().String()))

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		cl.writePump()
	}()

	ctx, cancel := context.WithCancel(ctx)
	go func() {
		<-cl.done
		cancel()
	}()

	readErr := h.readPump(ctx, cl)

	cl.close()
	torn := h.registry.Detach(connID)
	<-writerDone
	_ = ws.Close()
	cancel()

	if h.metrics != nil {
		h.metrics.DecWSConnections()
	}
	logger.Info("Connection closed", zap.Int("sessions_torn_down", torn))

	if span != nil {
		if readErr != nil {
			span.SetError(readErr)
		}
		span.SetTag("sessions_torn_down", strconv.Itoa(torn))
		span.Finish()
		h.tracer.Submit(span)
	}
}

func (h *Handler) track(cl *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.draining {
		return false
	}
	h.live[cl.id] = cl
	h.wg.Add(1)
	return true
}

func (h *Handler) untrack(cl *client) {
	h.mu.Lock()
	delete(h.live, cl.id)
	h.mu.Unlock()
	h.wg.Done()
}

// Shutdown closes every live connection and waits for their sessions to
// be torn down. Connections that have not finished when ctx expires are
// closed at the socket. New connections are refused afterwards.
func (h *Handler) Shutdown(ctx context.Context) {
	h.mu.Lock()
	h.draining = true
	clients := make([]*client, 0, len(h.live))
	for _, cl := range h.live {
		clients = append(clients, cl)
	}
	h.mu.Unlock()

	if len(clients) > 0 {
		h.logger.Info("Closing live connections", zap.Int("count", len(clients)))
	}
	for _, cl := range clients {
		cl.close()
		// Wakes the reader; the close frame still goes out from writePump
		_ = cl.ws.SetReadDeadline(time.Now())
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return
	case <-ctx.Done():
	}

	h.logger.Warn("Forcing remaining connections closed", zap.Error(ctx.Err()))
	h.mu.Lock()
	for _, cl := range h.live {
		_ = cl.ws.Close()
	}
	h.mu.Unlock()
	<-done
}

// readPump reads and dispatches frames until the connection fails. It
// returns the unexpected error that ended it, if any.
func (h *Handler) readPump(ctx context.Context, cl *client) error {
	ws := cl.ws
	ws.SetReadLimit(h.cfg.ReadLimit)
	_ = ws.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
	})

	limit := rate.Inf
	if h.cfg.InputRate > 0 {
		limit = rate.Limit(h.cfg.InputRate)
	}
	limiter := rate.NewLimiter(limit, max(h.cfg.InputBurst, 1))

	for {
		msgType, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				cl.logger.Warn("Read failed", zap.Error(err))
				return err
			}
			return nil
		}
		select {
		case <-cl.done:
			return nil
		default:
		}
		_ = ws.SetReadDeadline(time.Now().Add(h.cfg.PongWait))

		if !limiter.Allow() {
			if h.metrics != nil {
				h.metrics.IncThrottled()
			}
			if err := limiter.Wait(ctx); err != nil {
				return nil
			}
		}

		if msgType != websocket.TextMessage {
			h.reject(cl, "", errors.New("binary frames are not supported"))
			continue
		}

		frame, err := protocol.DecodeClient(data)
		if err != nil {
			var de *protocol.DecodeError
			sessionID := ""
			if errors.As(err, &de) {
				sessionID = de.SessionID
			}
			h.reject(cl, sessionID, err)
			continue
		}

		if h.metrics != nil {
			h.metrics.RecordWSMessage("in", frame.FrameType())
		}
		h.dispatch(cl, frame)
	}
}

// dispatch runs one client frame to completion.
func (h *Handler) dispatch(cl *client, frame protocol.ClientFrame) {
	var err error
	switch f := frame.(type) {
	case protocol.CreateSession:
		err = h.registry.CreateSession(cl.id, f.SessionID, f.Cols, f.Rows)
	case protocol.TerminalInput:
		err = h.registry.WriteInput(cl.id, f.SessionID, []byte(f.Data))
	case protocol.TerminalResize:
		err = h.registry.Resize(cl.id, f.SessionID, f.Cols, f.Rows)
	case protocol.CloseSession:
		err = h.registry.Destroy(cl.id, f.SessionID)
	}
	if err == nil {
		return
	}

	code := errorCode(err)
	if code == "" {
		// Spawn failures already produced an exit frame
		cl.logger.Debug("Request failed", logging.Session(frame.Session()), zap.Error(err))
		return
	}
	if h.metrics != nil {
		h.metrics.RecordSessionError(code)
	}
	cl.logger.Warn("Request rejected",
		logging.Session(frame.Session()),
		zap.String("frame", frame.FrameType()),
		zap.String("code", code),
		zap.Error(err))
	_ = cl.Send(protocol.SessionError{SessionID: frame.Session(), Code: code, Message: err.Error()})
}

func (h *Handler) reject(cl *client, sessionID string, err error) {
	if h.metrics != nil {
		h.metrics.RecordSessionError(protocol.CodeInvalidFrame)
	}
	cl.logger.Warn("Invalid frame", logging.Session(sessionID), zap.Error(err))
	_ = cl.Send(protocol.SessionError{
		SessionID: sessionID,
		Code:      protocol.CodeInvalidFrame,
		Message:   err.Error(),
	})
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, session.ErrDuplicateSession):
		return protocol.CodeDuplicateSession
	case errors.Is(err, session.ErrNotOwner):
		return protocol.CodeNotOwner
	case errors.Is(err, session.ErrSessionLimit):
		return protocol.CodeSessionLimit
	default:
		return ""
	}
}
