package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/GriffinCanCode/webterminator/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/webterminator/internal/shared/id"
	"github.com/GriffinCanCode/webterminator/internal/shared/protocol"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var errConnClosed = errors.New("connection closed")

// client is one websocket connection. It implements session.Sink.
type client struct {
	id      id.ConnID
	ws      *websocket.Conn
	cfg     Config
	logger  *zap.Logger
	metrics *monitoring.Metrics

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newClient(connID id.ConnID, ws *websocket.Conn, cfg Config, logger *zap.Logger, metrics *monitoring.Metrics) *client {
	return &client{
		id:      connID,
		ws:      ws,
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		send:    make(chan []byte, cfg.SendBuffer),
		done:    make(chan struct{}),
	}
}

// Send encodes and queues a frame, blocking while the queue is full.
func (c *client) Send(frame protocol.ServerFrame) error {
	data, err := protocol.EncodeServer(frame)
	if err != nil {
		return err
	}

	select {
	case <-c.done:
		return errConnClosed
	default:
	}

	select {
	case c.send <- data:
		if c.metrics != nil {
			c.metrics.RecordWSMessage("out", frame.FrameType())
		}
		return nil
	case <-c.done:
		return errConnClosed
	}
}

func (c *client) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// writePump drains the send queue and keeps the connection alive with pings.
func (c *client) writePump() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case data := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Debug("Write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("Ping failed", zap.Error(err))
				return
			}
		case <-c.done:
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(c.cfg.WriteWait))
			return
		}
	}
}
