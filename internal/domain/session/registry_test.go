package session

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/GriffinCanCode/webterminator/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/webterminator/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/webterminator/internal/providers/terminal"
	"github.com/GriffinCanCode/webterminator/internal/shared/id"
	"github.com/GriffinCanCode/webterminator/internal/shared/protocol"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const (
	connA id.ConnID = "conn_a"
	connB id.ConnID = "conn_b"
)

func setup(t *testing.T, cfg Config, opts ...Option) (*Registry, *mockSpawner, *recordingSink) {
	t.Helper()
	spawner := new(mockSpawner)
	reg := NewRegistry(spawner, cfg, opts...)
	sink := &recordingSink{}
	require.NoError(t, reg.Attach(connA, sink))
	return reg, spawner, sink
}

func TestCreateSession(t *testing.T) {
	cfg := Config{Shell: "/bin/bash", Dir: "/home/user", Term: "xterm-color"}
	reg, spawner, _ := setup(t, cfg)

	proc := newFakeProcess(42)
	spawner.On("Spawn", terminal.Spec{
		Shell: "/bin/bash",
		Cols:  120,
		Rows:  40,
		Dir:   "/home/user",
		Term:  "xterm-color",
	}).Return(proc, nil).Once()

	require.NoError(t, reg.CreateSession(connA, "window_1", 120, 40))

	spawner.AssertExpectations(t)
	assert.Equal(t, 1, reg.Len())
	assert.Equal(t, 1, proc.attachs)

	sessions := reg.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, "window_1", sessions[0].ID)
	assert.Equal(t, connA, sessions[0].Owner)
	assert.Equal(t, 42, sessions[0].Pid)
	assert.Equal(t, 120, sessions[0].Cols)
}

func TestCreateSessionDuplicateDoesNotSpawn(t *testing.T) {
	reg, spawner, _ := setup(t, Config{Shell: "/bin/sh"})
	spawner.On("Spawn", mock.Anything).Return(newFakeProcess(1), nil).Once()

	require.NoError(t, reg.CreateSession(connA, "window_1", 80, 24))
	err := reg.CreateSession(connA, "window_1", 80, 24)

	assert.ErrorIs(t, err, ErrDuplicateSession)
	spawner.AssertNumberOfCalls(t, "Spawn", 1)
	assert.Equal(t, 1, reg.Len())

	// Duplicate across connections is rejected too
	require.NoError(t, reg.Attach(connB, &recordingSink{}))
	assert.ErrorIs(t, reg.CreateSession(connB, "window_1", 80, 24), ErrDuplicateSession)
	spawner.AssertNumberOfCalls(t, "Spawn", 1)
}

func TestSessionLimit(t *testing.T) {
	reg, spawner, _ := setup(t, Config{Shell: "/bin/sh", MaxSessionsPerConnection: 2})
	spawner.On("Spawn", mock.Anything).Return(newFakeProcess(1), nil).Twice()

	require.NoError(t, reg.CreateSession(connA, "w1", 80, 24))
	require.NoError(t, reg.CreateSession(connA, "w2", 80, 24))
	assert.ErrorIs(t, reg.CreateSession(connA, "w3", 80, 24), ErrSessionLimit)

	// Closing frees a slot
	spawner.On("Spawn", mock.Anything).Return(newFakeProcess(2), nil).Once()
	require.NoError(t, reg.Destroy(connA, "w1"))
	require.NoError(t, reg.CreateSession(connA, "w3", 80, 24))
}

func TestWriteResizeDestroy(t *testing.T) {
	reg, spawner, _ := setup(t, Config{Shell: "/bin/sh"})
	proc := newFakeProcess(7)
	spawner.On("Spawn", mock.Anything).Return(proc, nil)

	require.NoError(t, reg.CreateSession(connA, "window_1", 80, 24))

	require.NoError(t, reg.WriteInput(connA, "window_1", []byte("ls\r")))
	assert.Equal(t, "ls\r", proc.Input())

	require.NoError(t, reg.Resize(connA, "window_1", 100, 30))
	assert.Equal(t, [][2]int{{100, 30}}, proc.sizes)
	assert.Equal(t, 100, reg.Sessions()[0].Cols)

	require.NoError(t, reg.Destroy(connA, "window_1"))
	assert.Equal(t, 1, proc.Kills())
	assert.Equal(t, 0, reg.Len())

	// Destroy is idempotent and later events are ignored
	require.NoError(t, reg.Destroy(connA, "window_1"))
	assert.Equal(t, 1, proc.Kills())
}

func TestLifecycleLogging(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	reg, spawner, _ := setup(t, Config{Shell: "/bin/sh"}, WithLogger(zap.New(core)))
	spawner.On("Spawn", mock.Anything).Return(newFakeProcess(7), nil)

	require.NoError(t, reg.CreateSession(connA, "window_1", 80, 24))
	require.NoError(t, reg.Destroy(connA, "window_1"))

	created := logs.FilterMessage("Session created").All()
	require.Len(t, created, 1)
	assert.Equal(t, "window_1", created[0].ContextMap()["session_id"])
	assert.Equal(t, int64(7), created[0].ContextMap()["pid"])
	assert.Len(t, logs.FilterMessage("Session closed").All(), 1)
}

func TestUnknownSessionIsNoop(t *testing.T) {
	reg, spawner, sink := setup(t, Config{Shell: "/bin/sh"})

	assert.NoError(t, reg.WriteInput(connA, "ghost", []byte("x")))
	assert.NoError(t, reg.Resize(connA, "ghost", 10, 10))
	assert.NoError(t, reg.Destroy(connA, "ghost"))

	spawner.AssertNotCalled(t, "Spawn", mock.Anything)
	assert.Empty(t, sink.Frames())
}

func TestOwnershipEnforced(t *testing.T) {
	reg, spawner, _ := setup(t, Config{Shell: "/bin/sh"})
	proc := newFakeProcess(1)
	spawner.On("Spawn", mock.Anything).Return(proc, nil)
	require.NoError(t, reg.CreateSession(connA, "window_1", 80, 24))

	require.NoError(t, reg.Attach(connB, &recordingSink{}))

	assert.ErrorIs(t, reg.WriteInput(connB, "window_1", []byte("rm -rf ~\r")), ErrNotOwner)
	assert.ErrorIs(t, reg.Resize(connB, "window_1", 1, 1), ErrNotOwner)
	assert.ErrorIs(t, reg.Destroy(connB, "window_1"), ErrNotOwner)

	assert.Empty(t, proc.Input())
	assert.Empty(t, proc.sizes)
	assert.Equal(t, 0, proc.Kills())
	assert.Equal(t, 1, reg.Len())

	// Teardown of the other connection leaves it alone
	assert.Equal(t, 0, reg.Detach(connB))
	assert.Equal(t, 1, reg.Len())
}

func TestOutputThenExitOrdering(t *testing.T) {
	reg, spawner, sink := setup(t, Config{Shell: "/bin/sh"})
	proc := newFakeProcess(1)
	spawner.On("Spawn", mock.Anything).Return(proc, nil)
	require.NoError(t, reg.CreateSession(connA, "window_1", 80, 24))

	proc.Emit("hello ")
	proc.Emit("world")
	proc.Exit(terminal.ExitStatus{Code: 2})

	assert.Equal(t, []protocol.ServerFrame{
		protocol.TerminalData{SessionID: "window_1", Data: "hello "},
		protocol.TerminalData{SessionID: "window_1", Data: "world"},
		protocol.TerminalExit{SessionID: "window_1", ExitCode: 2},
	}, sink.Frames())
	assert.Equal(t, 0, reg.Len())

	// Events after removal are dropped
	proc.Emit("late")
	proc.Exit(terminal.ExitStatus{Code: 0})
	assert.Len(t, sink.Frames(), 3)
}

func TestExitAfterDestroyIsDropped(t *testing.T) {
	reg, spawner, sink := setup(t, Config{Shell: "/bin/sh"})
	proc := newFakeProcess(1)
	spawner.On("Spawn", mock.Anything).Return(proc, nil)
	require.NoError(t, reg.CreateSession(connA, "window_1", 80, 24))

	require.NoError(t, reg.Destroy(connA, "window_1"))
	proc.Emit("bye")
	proc.Exit(terminal.ExitStatus{Signal: 1})

	assert.Empty(t, sink.Frames())
}

func TestReusedIDAfterExitGetsFreshEntry(t *testing.T) {
	reg, spawner, sink := setup(t, Config{Shell: "/bin/sh"})
	first := newFakeProcess(1)
	second := newFakeProcess(2)
	spawner.On("Spawn", mock.Anything).Return(first, nil).Once()
	spawner.On("Spawn", mock.Anything).Return(second, nil).Once()

	require.NoError(t, reg.CreateSession(connA, "window_1", 80, 24))
	require.NoError(t, reg.Destroy(connA, "window_1"))
	require.NoError(t, reg.CreateSession(connA, "window_1", 80, 24))

	// The stale process must not remove or write for the new one
	first.Exit(terminal.ExitStatus{})
	first.Emit("stale")
	assert.Equal(t, 1, reg.Len())

	second.Emit("fresh")
	assert.Equal(t, []protocol.ServerFrame{
		protocol.TerminalData{SessionID: "window_1", Data: "fresh"},
	}, sink.Frames())
}

func TestSpawnFailureSynthesizesExit(t *testing.T) {
	reg, spawner, sink := setup(t, Config{Shell: "/bin/missing"})
	spawnErr := errors.New("no such file")
	spawner.On("Spawn", mock.Anything).Return(nil, spawnErr)

	err := reg.CreateSession(connA, "window_1", 80, 24)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSpawnFailed)
	assert.ErrorIs(t, err, spawnErr)

	assert.Equal(t, 0, reg.Len())
	assert.Equal(t, []protocol.ServerFrame{
		protocol.TerminalExit{SessionID: "window_1", ExitCode: protocol.ExitCodeSpawnFailed},
	}, sink.Frames())
}

func TestSpawnBreakerOpens(t *testing.T) {
	breaker := resilience.New("spawn", resilience.Settings{MaxFailures: 2, Timeout: time.Minute})
	reg, spawner, _ := setup(t, Config{Shell: "/bin/missing"}, WithBreaker(breaker))
	spawner.On("Spawn", mock.Anything).Return(nil, errors.New("exec format error"))

	for i := 0; i < 2; i++ {
		_ = reg.CreateSession(connA, "w", 80, 24)
	}
	err := reg.CreateSession(connA, "w", 80, 24)

	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	spawner.AssertNumberOfCalls(t, "Spawn", 2)
}

func TestDetachKillsOwnedSessions(t *testing.T) {
	reg, spawner, sink := setup(t, Config{Shell: "/bin/sh"})
	p1, p2, p3 := newFakeProcess(1), newFakeProcess(2), newFakeProcess(3)
	spawner.On("Spawn", mock.Anything).Return(p1, nil).Once()
	spawner.On("Spawn", mock.Anything).Return(p2, nil).Once()
	spawner.On("Spawn", mock.Anything).Return(p3, nil).Once()

	require.NoError(t, reg.Attach(connB, &recordingSink{}))
	require.NoError(t, reg.CreateSession(connA, "a1", 80, 24))
	require.NoError(t, reg.CreateSession(connA, "a2", 80, 24))
	require.NoError(t, reg.CreateSession(connB, "b1", 80, 24))

	assert.Equal(t, 2, reg.Detach(connA))
	assert.Equal(t, 1, p1.Kills())
	assert.Equal(t, 1, p2.Kills())
	assert.Equal(t, 0, p3.Kills())
	assert.Equal(t, 1, reg.Len())

	// No exit frames for torn-down sessions
	p1.Exit(terminal.ExitStatus{Signal: 1})
	assert.Empty(t, sink.Frames())

	// Creates on a detached connection fail
	assert.ErrorIs(t, reg.CreateSession(connA, "a3", 80, 24), ErrConnectionClosed)
}

func TestDetachDuringSpawnKillsFreshProcess(t *testing.T) {
	reg, spawner, sink := setup(t, Config{Shell: "/bin/sh"})
	proc := newFakeProcess(9)

	started := make(chan struct{})
	release := make(chan struct{})
	spawner.On("Spawn", mock.Anything).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(proc, nil).Once()

	var wg sync.WaitGroup
	var createErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		createErr = reg.CreateSession(connA, "window_1", 80, 24)
	}()

	<-started
	assert.Equal(t, 1, reg.Len())
	assert.Equal(t, 1, reg.Detach(connA))
	assert.Equal(t, 0, reg.Len())

	close(release)
	wg.Wait()

	assert.ErrorIs(t, createErr, ErrConnectionClosed)
	assert.Equal(t, 1, proc.Kills())
	assert.Equal(t, 0, reg.Len())
	assert.Empty(t, sink.Frames())
}

func TestAttachTwice(t *testing.T) {
	reg, _, _ := setup(t, Config{})
	assert.ErrorIs(t, reg.Attach(connA, &recordingSink{}), ErrAlreadyAttached)
}

func TestInvalidUTF8IsReplaced(t *testing.T) {
	reg, spawner, sink := setup(t, Config{Shell: "/bin/sh"})
	proc := newFakeProcess(1)
	spawner.On("Spawn", mock.Anything).Return(proc, nil)
	require.NoError(t, reg.CreateSession(connA, "w", 80, 24))

	proc.Emit("ok\xff")

	frames := sink.Frames()
	require.Len(t, frames, 1)
	assert.Equal(t, "ok\uFFFD", frames[0].(protocol.TerminalData).Data)
}

func TestMetrics(t *testing.T) {
	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	reg, spawner, _ := setup(t, Config{Shell: "/bin/sh"}, WithMetrics(metrics))
	p1, p2 := newFakeProcess(1), newFakeProcess(2)
	spawner.On("Spawn", mock.Anything).Return(p1, nil).Once()
	spawner.On("Spawn", mock.Anything).Return(p2, nil).Once()

	require.NoError(t, reg.CreateSession(connA, "w1", 80, 24))
	require.NoError(t, reg.CreateSession(connA, "w2", 80, 24))
	p1.Exit(terminal.ExitStatus{})
	reg.Detach(connA)

	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.SessionsCreated))
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.SessionsActive))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.SessionsEnded.WithLabelValues(monitoring.EndExited)))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.SessionsEnded.WithLabelValues(monitoring.EndTeardown)))
}
