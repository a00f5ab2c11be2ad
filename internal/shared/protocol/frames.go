package protocol

// Frame type discriminators
const (
	TypeCreateSession  = "createSession"
	TypeTerminalInput  = "terminalInput"
	TypeTerminalResize = "terminalResize"
	TypeCloseSession   = "closeSession"
	TypeTerminalData   = "terminalData"
	TypeTerminalExit   = "terminalExit"
	TypeSessionError   = "sessionError"
)

// Error codes carried by SessionError
const (
	CodeDuplicateSession = "duplicate_session"
	CodeNotOwner         = "not_owner"
	CodeSessionLimit     = "session_limit"
	CodeInvalidFrame     = "invalid_frame"
)

// ExitCodeSpawnFailed is reported in TerminalExit when no process could be started.
const ExitCodeSpawnFailed = -1

// ClientFrame is a frame sent by the client.
type ClientFrame interface {
	FrameType() string
	Session() string
	clientFrame()
}

// ServerFrame is a frame sent by the server.
type ServerFrame interface {
	FrameType() string
	Session() string
	serverFrame()
}

// CreateSession asks the server to spawn a shell for a new window.
type CreateSession struct {
	SessionID string `json:"sessionId"`
	Cols      int    `json:"cols"`
	Rows      int    `json:"rows"`
}

// TerminalInput carries keystrokes for a session.
type TerminalInput struct {
	SessionID string `json:"sessionId"`
	Data      string `json:"data"`
}

// TerminalResize changes a session's cell grid.
type TerminalResize struct {
	SessionID string `json:"sessionId"`
	Cols      int    `json:"cols"`
	Rows      int    `json:"rows"`
}

// CloseSession asks the server to kill a session.
type CloseSession struct {
	SessionID string `json:"sessionId"`
}

// TerminalData carries PTY output.
type TerminalData struct {
	SessionID string `json:"sessionId"`
	Data      string `json:"data"`
}

// TerminalExit reports that a session's process is gone.
type TerminalExit struct {
	SessionID string `json:"sessionId"`
	ExitCode  int    `json:"exitCode"`
	Signal    int    `json:"signal"`
}

// SessionError reports a rejected request.
type SessionError struct {
	SessionID string `json:"sessionId"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

func (f CreateSession) FrameType() string  { return TypeCreateSession }
func (f TerminalInput) FrameType() string  { return TypeTerminalInput }
func (f TerminalResize) FrameType() string { return TypeTerminalResize }
func (f CloseSession) FrameType() string   { return TypeCloseSession }
func (f TerminalData) FrameType() string   { return TypeTerminalData }
func (f TerminalExit) FrameType() string   { return TypeTerminalExit }
func (f SessionError) FrameType() string   { return TypeSessionError }

func (f CreateSession) Session() string  { return f.SessionID }
func (f TerminalInput) Session() string  { return f.SessionID }
func (f TerminalResize) Session() string { return f.SessionID }
func (f CloseSession) Session() string   { return f.SessionID }
func (f TerminalData) Session() string   { return f.SessionID }
func (f TerminalExit) Session() string   { return f.SessionID }
func (f SessionError) Session() string   { return f.SessionID }

func (CreateSession) clientFrame()  {}
func (TerminalInput) clientFrame()  {}
func (TerminalResize) clientFrame() {}
func (CloseSession) clientFrame()   {}

func (TerminalData) serverFrame() {}
func (TerminalExit) serverFrame() {}
func (SessionError) serverFrame() {}
