package terminal

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/creack/pty"
)

const (
	readBufferSize = 4096
	killGrace      = 2 * time.Second
)

// PTYSpawner starts processes on a new pseudo-terminal via creack/pty.
type PTYSpawner struct {
	environ func() []string
}

// NewSpawner creates a spawner that inherits the server environment.
func NewSpawner() *PTYSpawner {
	return &PTYSpawner{environ: os.Environ}
}

// Spawn starts spec.Shell with a PTY of spec.Cols x spec.Rows.
func (s *PTYSpawner) Spawn(spec Spec) (Process, error) {
	if spec.Shell == "" {
		return nil, ErrNoShell
	}

	cmd := exec.Command(spec.Shell, spec.Args...)
	cmd.Dir = spec.Dir

	cmd.Env = append([]string{}, s.environ()...)
	if spec.Term != "" {
		cmd.Env = append(cmd.Env, "TERM="+spec.Term)
	}
	cmd.Env = append(cmd.Env, spec.Env...)

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{
		Cols: uint16(spec.Cols),
		Rows: uint16(spec.Rows),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start PTY: %w", err)
	}

	return &ptyProcess{
		cmd:  cmd,
		ptmx: ptmx,
		done: make(chan struct{}),
	}, nil
}

type ptyProcess struct {
	cmd  *exec.Cmd
	ptmx *os.File

	attachOnce sync.Once
	killOnce   sync.Once
	closeOnce  sync.Once
	closed     atomic.Bool
	done       chan struct{}
}

func (p *ptyProcess) Pid() int {
	return p.cmd.Process.Pid
}

func (p *ptyProcess) Write(b []byte) (int, error) {
	if p.closed.Load() {
		return 0, ErrProcessExited
	}
	return p.ptmx.Write(b)
}

func (p *ptyProcess) Resize(cols, rows int) error {
	if p.closed.Load() {
		return ErrProcessExited
	}
	return pty.Setsize(p.ptmx, &pty.Winsize{
		Cols: uint16(cols),
		Rows: uint16(rows),
	})
}

// Kill hangs up the process group, then escalates to SIGKILL if the shell
// is still around after a grace period.
func (p *ptyProcess) Kill() error {
	var err error
	p.killOnce.Do(func() {
		pid := p.cmd.Process.Pid
		if e := syscall.Kill(-pid, syscall.SIGHUP); e != nil && !errors.Is(e, syscall.ESRCH) {
			err = e
		}
		p.closePTY()

		go func() {
			select {
			case <-p.done:
			case <-time.After(killGrace):
				_ = p.cmd.Process.Kill()
			}
		}()
	})
	return err
}

func (p *ptyProcess) Attach(onData func([]byte), onExit func(ExitStatus)) {
	p.attachOnce.Do(func() {
		go p.pump(onData, onExit)
	})
}

// pump reads until the PTY closes, waits for the process and reports the exit.
func (p *ptyProcess) pump(onData func([]byte), onExit func(ExitStatus)) {
	buf := make([]byte, readBufferSize)
	var carry []byte

	for {
		n, err := p.ptmx.Read(buf[len(carry):])
		if n > 0 {
			chunk, tail := splitUTF8(buf[:len(carry)+n])
			if len(chunk) > 0 {
				out := make([]byte, len(chunk))
				copy(out, chunk)
				onData(out)
			}
			carry = buf[:copy(buf, tail)]
		}
		if err != nil {
			break
		}
	}
	if len(carry) > 0 {
		onData(append([]byte(nil), carry...))
	}

	_ = p.cmd.Wait()
	status := exitStatus(p.cmd.ProcessState)
	p.closePTY()
	close(p.done)

	onExit(status)
}

func (p *ptyProcess) closePTY() {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		_ = p.ptmx.Close()
	})
}

func exitStatus(state *os.ProcessState) ExitStatus {
	if state == nil {
		return ExitStatus{Code: 1}
	}

	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return ExitStatus{Signal: int(ws.Signal())}
	}
	return ExitStatus{Code: state.ExitCode()}
}
