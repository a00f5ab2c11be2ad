package session

import (
	"errors"
	"time"

	"github.com/GriffinCanCode/webterminator/internal/providers/terminal"
	"github.com/GriffinCanCode/webterminator/internal/shared/id"
	"github.com/GriffinCanCode/webterminator/internal/shared/protocol"
)

var (
	ErrDuplicateSession = errors.New("session already exists")
	ErrNotOwner         = errors.New("session belongs to another connection")
	ErrSessionLimit     = errors.New("session limit reached")
	ErrConnectionClosed = errors.New("connection is closed")
	ErrAlreadyAttached  = errors.New("connection already attached")
	ErrSpawnFailed      = errors.New("failed to spawn shell")
)

// Sink receives frames for one connection. Send may block to apply
// backpressure and returns an error once the connection is gone.
type Sink interface {
	Send(frame protocol.ServerFrame) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(frame protocol.ServerFrame) error

// Send calls f.
func (f SinkFunc) Send(frame protocol.ServerFrame) error { return f(frame) }

// Config describes the shell every session runs.
type Config struct {
	Shell string
	Args  []string
	Dir   string
	Term  string
	Env   []string
	// MaxSessionsPerConnection is unlimited when zero
	MaxSessionsPerConnection int
}

// Session is the public view of a live session.
type Session struct {
	ID        string    `json:"id"`
	Owner     id.ConnID `json:"owner"`
	Cols      int       `json:"cols"`
	Rows      int       `json:"rows"`
	Pid       int       `json:"pid"`
	StartedAt time.Time `json:"startedAt"`
}

type entry struct {
	id        string
	owner     id.ConnID
	sink      Sink
	proc      terminal.Process // nil while spawning
	cols      int
	rows      int
	startedAt time.Time
}

type connection struct {
	sink  Sink
	count int
}

func (e *entry) view() Session {
	s := Session{
		ID:        e.id,
		Owner:     e.owner,
		Cols:      e.cols,
		Rows:      e.rows,
		StartedAt: e.startedAt,
	}
	if e.proc != nil {
		s.Pid = e.proc.Pid()
	}
	return s
}
