package session

import (
	"errors"
	"sync"

	"github.com/GriffinCanCode/webterminator/internal/providers/terminal"
	"github.com/GriffinCanCode/webterminator/internal/shared/protocol"
	"github.com/stretchr/testify/mock"
)

// mockSpawner is a testify mock of terminal.Spawner
type mockSpawner struct {
	mock.Mock
}

func (m *mockSpawner) Spawn(spec terminal.Spec) (terminal.Process, error) {
	args := m.Called(spec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(terminal.Process), args.Error(1)
}

// fakeProcess records calls and lets tests drive output and exit
type fakeProcess struct {
	pid int

	mu      sync.Mutex
	input   []byte
	sizes   [][2]int
	kills   int
	onData  func([]byte)
	onExit  func(terminal.ExitStatus)
	exited  bool
	attachs int
}

func newFakeProcess(pid int) *fakeProcess {
	return &fakeProcess{pid: pid}
}

func (p *fakeProcess) Pid() int { return p.pid }

func (p *fakeProcess) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.exited {
		return 0, terminal.ErrProcessExited
	}
	p.input = append(p.input, b...)
	return len(b), nil
}

func (p *fakeProcess) Resize(cols, rows int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sizes = append(p.sizes, [2]int{cols, rows})
	return nil
}

func (p *fakeProcess) Kill() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.kills++
	return nil
}

func (p *fakeProcess) Attach(onData func([]byte), onExit func(terminal.ExitStatus)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attachs++
	if p.onData == nil {
		p.onData, p.onExit = onData, onExit
	}
}

// Emit delivers output the way the PTY reader goroutine would
func (p *fakeProcess) Emit(s string) {
	p.mu.Lock()
	fn := p.onData
	p.mu.Unlock()
	fn([]byte(s))
}

// Exit delivers the exit callback
func (p *fakeProcess) Exit(st terminal.ExitStatus) {
	p.mu.Lock()
	p.exited = true
	fn := p.onExit
	p.mu.Unlock()
	fn(st)
}

func (p *fakeProcess) Kills() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.kills
}

func (p *fakeProcess) Input() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return string(p.input)
}

// recordingSink collects frames sent to one connection
type recordingSink struct {
	mu     sync.Mutex
	frames []protocol.ServerFrame
	closed bool
}

var errSinkClosed = errors.New("sink closed")

func (s *recordingSink) Send(f protocol.ServerFrame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errSinkClosed
	}
	s.frames = append(s.frames, f)
	return nil
}

func (s *recordingSink) Frames() []protocol.ServerFrame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]protocol.ServerFrame(nil), s.frames...)
}
