package session

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/GriffinCanCode/webterminator/internal/infrastructure/logging"
	"github.com/GriffinCanCode/webterminator/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/webterminator/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/webterminator/internal/providers/terminal"
	"github.com/GriffinCanCode/webterminator/internal/shared/id"
	"github.com/GriffinCanCode/webterminator/internal/shared/protocol"
	"go.uber.org/zap"
)

// Registry owns all live sessions for one server process.
type Registry struct {
	spawner terminal.Spawner
	cfg     Config
	breaker *resilience.Breaker
	logger  *zap.Logger
	metrics *monitoring.Metrics

	mu       sync.Mutex
	sessions map[string]*entry
	conns    map[id.ConnID]*connection
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Registry) { r.logger = logger }
}

// WithMetrics enables session metrics.
func WithMetrics(metrics *monitoring.Metrics) Option {
	return func(r *Registry) { r.metrics = metrics }
}

// WithBreaker guards spawns with a circuit breaker.
func WithBreaker(breaker *resilience.Breaker) Option {
	return func(r *Registry) { r.breaker = breaker }
}

// NewRegistry creates an empty registry.
func NewRegistry(spawner terminal.Spawner, cfg Config, opts ...Option) *Registry {
	r := &Registry{
		spawner:  spawner,
		cfg:      cfg,
		logger:   zap.NewNop(),
		sessions: make(map[string]*entry),
		conns:    make(map[id.ConnID]*connection),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.breaker == nil {
		r.breaker = resilience.Disabled("spawn")
	}
	return r
}

// Attach registers a connection and the sink its frames go to.
func (r *Registry) Attach(conn id.ConnID, sink Sink) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[conn]; ok {
		return ErrAlreadyAttached
	}
	r.conns[conn] = &connection{sink: sink}
	return nil
}

// CreateSession spawns a shell for sessionID owned by conn.
//
// The id is reserved under the lock and the process is started outside it.
// If the connection is detached while spawning, the fresh process is killed
// on commit and ErrConnectionClosed is returned. A spawn failure is reported
// to the sink as an exit with protocol.ExitCodeSpawnFailed.
func (r *Registry) CreateSession(conn id.ConnID, sessionID string, cols, rows int) error {
	r.mu.Lock()
	c, ok := r.conns[conn]
	if !ok {
		r.mu.Unlock()
		return ErrConnectionClosed
	}
	if existing, ok := r.sessions[sessionID]; ok {
		owner := existing.owner
		r.mu.Unlock()
		if owner != conn {
			r.logger.Warn("Create for session owned by another connection",
				logging.Conn(conn), logging.Session(sessionID))
		}
		return fmt.Errorf("%w: %s", ErrDuplicateSession, sessionID)
	}
	if limit := r.cfg.MaxSessionsPerConnection; limit > 0 && c.count >= limit {
		r.mu.Unlock()
		return fmt.Errorf("%w: %d per connection", ErrSessionLimit, limit)
	}

	e := &entry{
		id:        sessionID,
		owner:     conn,
		sink:      c.sink,
		cols:      cols,
		rows:      rows,
		startedAt: time.Now(),
	}
	r.sessions[sessionID] = e
	c.count++
	r.mu.Unlock()

	proc, err := r.spawn(cols, rows)
	if err != nil {
		r.mu.Lock()
		if r.sessions[sessionID] == e {
			r.removeLocked(e)
		}
		r.mu.Unlock()

		r.logger.Error("Spawn failed", logging.Conn(conn), logging.Session(sessionID), zap.Error(err))
		_ = e.sink.Send(protocol.TerminalExit{
			SessionID: sessionID,
			ExitCode:  protocol.ExitCodeSpawnFailed,
		})
		return fmt.Errorf("%w: %w", ErrSpawnFailed, err)
	}

	r.mu.Lock()
	if r.sessions[sessionID] != e {
		r.mu.Unlock()
		proc.Attach(func([]byte) {}, func(terminal.ExitStatus) {})
		_ = proc.Kill()
		r.logger.Info("Connection closed during spawn", logging.Conn(conn), logging.Session(sessionID))
		return ErrConnectionClosed
	}
	e.proc = proc
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.SessionStarted()
	}
	r.logger.Info("Session created",
		logging.Conn(conn),
		logging.Session(sessionID),
		logging.Size(cols, rows),
		zap.Int("pid", proc.Pid()))

	proc.Attach(r.dataHandler(e), r.exitHandler(e))
	return nil
}

// WriteInput forwards keystrokes. Unknown sessions are ignored.
func (r *Registry) WriteInput(conn id.ConnID, sessionID string, data []byte) error {
	r.mu.Lock()
	e, err := r.lookupLocked(conn, sessionID)
	if err != nil || e == nil || e.proc == nil {
		r.mu.Unlock()
		return err
	}
	proc := e.proc
	r.mu.Unlock()

	if _, err := proc.Write(data); err != nil {
		r.logger.Debug("Write to exited session", logging.Session(sessionID), zap.Error(err))
		return nil
	}
	if r.metrics != nil {
		r.metrics.AddPTYBytes("in", len(data))
	}
	return nil
}

// Resize changes the PTY size. Unknown sessions are ignored.
func (r *Registry) Resize(conn id.ConnID, sessionID string, cols, rows int) error {
	r.mu.Lock()
	e, err := r.lookupLocked(conn, sessionID)
	if err != nil || e == nil || e.proc == nil {
		r.mu.Unlock()
		return err
	}
	e.cols, e.rows = cols, rows
	proc := e.proc
	r.mu.Unlock()

	if err := proc.Resize(cols, rows); err != nil {
		r.logger.Debug("Resize of exited session", logging.Session(sessionID), zap.Error(err))
	}
	return nil
}

// Destroy kills and removes a session. Unknown sessions are ignored.
func (r *Registry) Destroy(conn id.ConnID, sessionID string) error {
	r.mu.Lock()
	e, err := r.lookupLocked(conn, sessionID)
	if err != nil || e == nil {
		r.mu.Unlock()
		return err
	}
	r.removeLocked(e)
	r.mu.Unlock()

	r.kill(e, monitoring.EndClosed)
	r.logger.Info("Session closed", logging.Conn(conn), logging.Session(sessionID))
	return nil
}

// Detach tears down every session owned by conn and refuses further creates
// for it. It returns the number of sessions removed.
func (r *Registry) Detach(conn id.ConnID) int {
	r.mu.Lock()
	var owned []*entry
	for _, e := range r.sessions {
		if e.owner == conn {
			owned = append(owned, e)
		}
	}
	for _, e := range owned {
		r.removeLocked(e)
	}
	delete(r.conns, conn)
	r.mu.Unlock()

	for _, e := range owned {
		r.kill(e, monitoring.EndTeardown)
	}
	if len(owned) > 0 {
		r.logger.Info("Connection teardown", logging.Conn(conn), zap.Int("sessions", len(owned)))
	}
	return len(owned)
}

// Sessions lists live sessions ordered by start time.
func (r *Registry) Sessions() []Session {
	r.mu.Lock()
	out := make([]Session, 0, len(r.sessions))
	for _, e := range r.sessions {
		if e.proc != nil {
			out = append(out, e.view())
		}
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}

// Len returns the number of sessions, including ones still spawning.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) lookupLocked(conn id.ConnID, sessionID string) (*entry, error) {
	e, ok := r.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	if e.owner != conn {
		r.logger.Warn("Rejected request for foreign session",
			logging.Conn(conn), logging.Session(sessionID), zap.Stringer("owner", e.owner))
		return nil, fmt.Errorf("%w: %s", ErrNotOwner, sessionID)
	}
	return e, nil
}

func (r *Registry) removeLocked(e *entry) {
	delete(r.sessions, e.id)
	if c, ok := r.conns[e.owner]; ok {
		c.count--
	}
}

// kill terminates a removed entry's process. Entries still spawning are
// killed by CreateSession when it commits.
func (r *Registry) kill(e *entry, reason string) {
	if e.proc == nil {
		return
	}
	if err := e.proc.Kill(); err != nil {
		r.logger.Warn("Kill failed", logging.Session(e.id), zap.Error(err))
	}
	if r.metrics != nil {
		r.metrics.SessionEnded(reason)
	}
}

func (r *Registry) spawn(cols, rows int) (terminal.Process, error) {
	spec := terminal.Spec{
		Shell: r.cfg.Shell,
		Args:  r.cfg.Args,
		Cols:  cols,
		Rows:  rows,
		Dir:   r.cfg.Dir,
		Env:   r.cfg.Env,
		Term:  r.cfg.Term,
	}

	timer := monitoring.NewTimer(r.metrics)
	proc, err := resilience.Call(r.breaker, func() (terminal.Process, error) {
		return r.spawner.Spawn(spec)
	})
	if err != nil {
		timer.Stop("failure")
		return nil, err
	}
	timer.Stop("success")
	return proc, nil
}

func (r *Registry) current(e *entry) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[e.id] == e
}

func (r *Registry) dataHandler(e *entry) func([]byte) {
	return func(chunk []byte) {
		if !r.current(e) {
			return
		}
		if r.metrics != nil {
			r.metrics.AddPTYBytes("out", len(chunk))
		}
		err := e.sink.Send(protocol.TerminalData{
			SessionID: e.id,
			Data:      strings.ToValidUTF8(string(chunk), "\uFFFD"),
		})
		if err != nil {
			r.logger.Debug("Dropped output", logging.Session(e.id), zap.Error(err))
		}
	}
}

func (r *Registry) exitHandler(e *entry) func(terminal.ExitStatus) {
	return func(st terminal.ExitStatus) {
		r.mu.Lock()
		live := r.sessions[e.id] == e
		if live {
			r.removeLocked(e)
		}
		r.mu.Unlock()

		if !live {
			return
		}
		if r.metrics != nil {
			r.metrics.SessionEnded(monitoring.EndExited)
		}
		r.logger.Info("Session exited",
			logging.Conn(e.owner),
			logging.Session(e.id),
			zap.Int("exit_code", st.Code),
			zap.Int("signal", st.Signal))

		_ = e.sink.Send(protocol.TerminalExit{
			SessionID: e.id,
			ExitCode:  st.Code,
			Signal:    st.Signal,
		})
	}
}
