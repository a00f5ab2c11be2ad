package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/webterminator/internal/infrastructure/logging"
	"github.com/GriffinCanCode/webterminator/internal/shared/protocol"
)

// ErrClosed is returned once the connection is closed.
var ErrClosed = errors.New("transport closed")

// Handler receives server frames.
type Handler interface {
	HandleData(id string, data []byte)
	HandleExit(id string, code, signal int)
	HandleError(id, code, message string)
}

// Config tunes the connection.
type Config struct {
	ReadLimit    int64
	PingInterval time.Duration
	PongWait     time.Duration
	WriteWait    time.Duration
	SendBuffer   int
}

// DefaultConfig mirrors the server's websocket defaults.
func DefaultConfig() Config {
	return Config{
		ReadLimit:    1 << 20,
		PingInterval: 30 * time.Second,
		PongWait:     60 * time.Second,
		WriteWait:    10 * time.Second,
		SendBuffer:   256,
	}
}

// Option customizes Dial.
type Option func(*Client)

// WithConfig replaces the connection settings.
func WithConfig(cfg Config) Option {
	return func(c *Client) { c.cfg = cfg }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithHeader adds request headers to the handshake.
func WithHeader(h http.Header) Option {
	return func(c *Client) { c.header = h }
}

// Client is a session protocol connection. It implements
// desktop.SessionClient.
type Client struct {
	conn    *websocket.Conn
	handler Handler
	cfg     Config
	logger  *zap.Logger
	header  http.Header

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// Dial connects to a session server at url (ws:// or wss://).
func Dial(ctx context.Context, url string, handler Handler, opts ...Option) (*Client, error) {
	c := &Client{
		handler: handler,
		cfg:     DefaultConfig(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, c.header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to connect to %s: %s: %w", url, resp.Status, err)
		}
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}

	c.conn = conn
	c.send = make(chan []byte, max(c.cfg.SendBuffer, 1))
	c.done = make(chan struct{})
	c.logger.Info("Connected to session server", zap.String("url", url))
	return c, nil
}

// CreateSession requests a new session.
func (c *Client) CreateSession(id string, cols, rows int) {
	c.enqueue(protocol.CreateSession{SessionID: id, Cols: cols, Rows: rows})
}

// Input forwards keystrokes.
func (c *Client) Input(id string, data []byte) {
	c.enqueue(protocol.TerminalInput{SessionID: id, Data: string(data)})
}

// Resize changes a session's grid.
func (c *Client) Resize(id string, cols, rows int) {
	c.enqueue(protocol.TerminalResize{SessionID: id, Cols: cols, Rows: rows})
}

// CloseSession asks the server to kill a session.
func (c *Client) CloseSession(id string) {
	c.enqueue(protocol.CloseSession{SessionID: id})
}

// Send encodes and queues a frame, blocking while the queue is full.
func (c *Client) Send(frame protocol.ClientFrame) error {
	data, err := protocol.EncodeClient(frame)
	if err != nil {
		return err
	}

	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return ErrClosed
	}
}

func (c *Client) enqueue(frame protocol.ClientFrame) {
	if err := c.Send(frame); err != nil {
		c.logger.Debug("Dropped outgoing frame",
			logging.Frame(frame.FrameType()),
			logging.Session(frame.Session()),
			zap.Error(err),
		)
	}
}

// Run pumps frames until the connection drops or ctx is cancelled.
// A normal close, from either side, returns nil.
func (c *Client) Run(ctx context.Context) error {
	go c.writePump()
	stop := context.AfterFunc(ctx, func() { c.Close() })
	defer stop()

	err := c.readPump()
	c.Close()

	if ctx.Err() != nil {
		return nil
	}
	return err
}

// Done is closed when the connection closes.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close sends a close frame and tears the connection down.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(c.cfg.WriteWait))
		err = c.conn.Close()
	})
	return err
}

func (c *Client) readPump() error {
	c.conn.SetReadLimit(c.cfg.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				return nil
			default:
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Info("Server closed connection")
				return nil
			}
			return fmt.Errorf("read failed: %w", err)
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))

		frame, err := protocol.DecodeServer(data)
		if err != nil {
			c.logger.Warn("Discarding undecodable frame", zap.Error(err))
			continue
		}
		c.dispatch(frame)
	}
}

func (c *Client) dispatch(frame protocol.ServerFrame) {
	switch f := frame.(type) {
	case protocol.TerminalData:
		c.handler.HandleData(f.SessionID, []byte(f.Data))
	case protocol.TerminalExit:
		c.logger.Debug("Session exited",
			logging.Session(f.SessionID),
			zap.Int("exit_code", f.ExitCode),
			zap.Int("signal", f.Signal),
		)
		c.handler.HandleExit(f.SessionID, f.ExitCode, f.Signal)
	case protocol.SessionError:
		c.logger.Warn("Session request rejected",
			logging.Session(f.SessionID),
			zap.String("code", f.Code),
			zap.String("message", f.Message),
		)
		c.handler.HandleError(f.SessionID, f.Code, f.Message)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Debug("Write failed", zap.Error(err))
				c.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}
