package desktop

import "fmt"

// Window geometry defaults and limits, in pixels.
const (
	MinWidth      = 400
	MinHeight     = 300
	DefaultWidth  = 600
	DefaultHeight = 400
	DefaultOrigin = 100
	CascadeStep   = 30
	HeaderHeight  = 30

	// DefaultCommand labels a window until its first command line is seen.
	DefaultCommand = "bash"

	baseZIndex = 10
)

// DefaultDesktop is the desktop size assumed until SetDesktopSize is called.
var DefaultDesktop = Size{W: 1280, H: 800}

// placeholderGeometry is the restore geometry of a window that was never
// maximized.
var placeholderGeometry = Rect{X: DefaultOrigin, Y: DefaultOrigin, W: DefaultWidth, H: DefaultHeight}

// State is the display state of a window.
type State int

const (
	StateNormal State = iota
	StateMinimized
	StateMaximized
)

func (s State) String() string {
	switch s {
	case StateNormal:
		return "normal"
	case StateMinimized:
		return "minimized"
	case StateMaximized:
		return "maximized"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Rect is a window rectangle in desktop coordinates.
type Rect struct {
	X, Y, W, H int
}

// Size is a width and height in pixels.
type Size struct {
	W, H int
}

// Window is one terminal window. Its ID doubles as the session id.
type Window struct {
	ID              string
	Seq             int
	Title           string
	Geometry        Rect
	ZIndex          int
	State           State
	RestoreGeometry Rect
	Command         string
	Focused         bool

	// state to return to when un-minimized
	resumeState State
}

// View is the display model of one window.
type View struct {
	ID      string
	Title   string
	Command string
	Rect    Rect
	ZIndex  int
	State   State
	Focused bool
	Visible bool
}

// RendererOptions configures a new renderer.
type RendererOptions struct {
	ID    string
	Title string
}

// Renderer draws one session's output and produces its keystrokes.
type Renderer interface {
	Write(p []byte)
	// OnData registers the keystroke callback.
	OnData(fn func(p []byte))
	// OnResize registers the callback fired when Fit changes the cell grid.
	OnResize(fn func(cols, rows int))
	// Fit recomputes the cell grid for a content area in pixels.
	Fit(width, height int)
	Size() (cols, rows int)
	Focus()
	Blur()
	Selection() string
	Paste(text string)
	// CursorLine returns the text of the line under the cursor.
	CursorLine() string
	Dispose()
}

// RendererFactory creates one renderer per window.
type RendererFactory interface {
	Create(opts RendererOptions) Renderer
}

// RendererFactoryFunc adapts a function to RendererFactory.
type RendererFactoryFunc func(opts RendererOptions) Renderer

// Create calls f.
func (f RendererFactoryFunc) Create(opts RendererOptions) Renderer { return f(opts) }

// SessionClient sends session requests to the server. Calls do not block
// on the server; results arrive later through HandleData and HandleExit.
type SessionClient interface {
	CreateSession(id string, cols, rows int)
	Input(id string, data []byte)
	Resize(id string, cols, rows int)
	CloseSession(id string)
}

// Taskbar is told about every observable change. Rebuild follows
// structural changes, Patch a single item's state, PatchAll focus moves.
type Taskbar interface {
	Rebuild()
	Patch(id string)
	PatchAll()
}

type nopTaskbar struct{}

func (nopTaskbar) Rebuild()     {}
func (nopTaskbar) Patch(string) {}
func (nopTaskbar) PatchAll()    {}
