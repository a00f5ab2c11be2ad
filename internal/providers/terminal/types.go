package terminal

import "errors"

var (
	ErrProcessExited = errors.New("process has exited")
	ErrNoShell       = errors.New("no shell configured")
)

// Spec describes a process to start.
type Spec struct {
	Shell string
	Args  []string
	Cols  int
	Rows  int
	Dir   string
	// Env entries in KEY=VALUE form, appended to the server environment
	Env []string
	// Term is exported as TERM
	Term string
}

// ExitStatus describes how a process ended. Signal is zero unless the
// process was terminated by a signal, in which case Code is zero.
type ExitStatus struct {
	Code   int
	Signal int
}

// Process is a running PTY-backed process.
type Process interface {
	Pid() int
	Write(p []byte) (int, error)
	Resize(cols, rows int) error
	// Kill terminates the process. It is safe to call more than once.
	Kill() error
	// Attach starts output delivery. onData receives chunks in read order;
	// onExit is called once, after the last onData. Only the first call
	// has any effect.
	Attach(onData func([]byte), onExit func(ExitStatus))
}

// Spawner starts processes.
type Spawner interface {
	Spawn(spec Spec) (Process, error)
}

// SpawnerFunc adapts a function to Spawner.
type SpawnerFunc func(spec Spec) (Process, error)

// Spawn calls f.
func (f SpawnerFunc) Spawn(spec Spec) (Process, error) { return f(spec) }
