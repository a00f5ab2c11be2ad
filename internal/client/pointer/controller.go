package pointer

import (
	"fmt"
	"sync"

	"github.com/GriffinCanCode/webterminator/internal/client/desktop"
	"github.com/GriffinCanCode/webterminator/internal/client/taskbar"
)

// Mode is the capture state of the controller.
type Mode int

const (
	ModeIdle Mode = iota
	ModeDragging
	ModeResizing
	ModeTaskbarResizing
)

func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeDragging:
		return "dragging"
	case ModeResizing:
		return "resizing"
	case ModeTaskbarResizing:
		return "taskbar-resizing"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Point is a pointer position in desktop coordinates.
type Point struct {
	X, Y int
}

// Desktop is the window manager surface the controller drives.
type Desktop interface {
	Window(id string) (desktop.Window, bool)
	DesktopSize() desktop.Size
	SetActive(id string) bool
	Move(id string, x, y int) bool
	Resize(id string, r desktop.Rect) bool
}

// TaskbarSizer holds the taskbar width.
type TaskbarSizer interface {
	Width() int
	SetWidth(width int)
}

// Controller owns the global pointer capture.
type Controller struct {
	mu      sync.Mutex
	desk    Desktop
	taskbar TaskbarSizer

	mode   Mode
	window string

	// dragging
	offset Point

	// resizing
	edges        Edge
	startRect    desktop.Rect
	startPointer Point

	// taskbar resizing
	lastX int
}

// New creates an idle controller. taskbar may be nil.
func New(desk Desktop, tb TaskbarSizer) *Controller {
	return &Controller{desk: desk, taskbar: tb}
}

// Mode returns the current capture state.
func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Target returns the window being dragged or resized.
func (c *Controller) Target() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.window
}

// BeginDrag starts moving id from a press on its header at p. It fails
// while another gesture holds the capture or when id is not a normal
// window.
func (c *Controller) BeginDrag(id string, p Point) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mode != ModeIdle {
		return false
	}
	w, ok := c.desk.Window(id)
	if !ok || w.State != desktop.StateNormal {
		return false
	}

	c.mode = ModeDragging
	c.window = id
	c.offset = Point{X: p.X - w.Geometry.X, Y: p.Y - w.Geometry.Y}
	c.desk.SetActive(id)
	return true
}

// BeginResize starts resizing id from a press on the handle for edges.
func (c *Controller) BeginResize(id string, edges Edge, p Point) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mode != ModeIdle || !edges.Valid() {
		return false
	}
	w, ok := c.desk.Window(id)
	if !ok || w.State != desktop.StateNormal {
		return false
	}

	c.mode = ModeResizing
	c.window = id
	c.edges = edges
	c.startRect = w.Geometry
	c.startPointer = p
	c.desk.SetActive(id)
	return true
}

// BeginTaskbarResize starts dragging the taskbar's edge.
func (c *Controller) BeginTaskbarResize(p Point) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mode != ModeIdle || c.taskbar == nil {
		return false
	}
	c.mode = ModeTaskbarResizing
	c.lastX = p.X
	return true
}

// Move handles a pointer move. It does nothing while idle.
func (c *Controller) Move(p Point) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.mode {
	case ModeDragging:
		c.drag(p)
	case ModeResizing:
		dx, dy := p.X-c.startPointer.X, p.Y-c.startPointer.Y
		if !c.desk.Resize(c.window, ResizeRect(c.startRect, c.edges, dx, dy)) {
			c.releaseLocked()
		}
	case ModeTaskbarResizing:
		c.taskbar.SetWidth(taskbar.ClampWidth(c.taskbar.Width() + p.X - c.lastX))
		c.lastX = p.X
	}
}

func (c *Controller) drag(p Point) {
	w, ok := c.desk.Window(c.window)
	if !ok {
		c.releaseLocked()
		return
	}
	size := c.desk.DesktopSize()
	x := clamp(p.X-c.offset.X, 0, size.W-w.Geometry.W)
	y := clamp(p.Y-c.offset.Y, 0, size.H-w.Geometry.H)
	if !c.desk.Move(c.window, x, y) {
		c.releaseLocked()
	}
}

// Release ends the current gesture. The last geometry stands.
func (c *Controller) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.releaseLocked()
}

func (c *Controller) releaseLocked() {
	c.mode = ModeIdle
	c.window = ""
	c.offset = Point{}
	c.edges = 0
	c.startRect = desktop.Rect{}
	c.startPointer = Point{}
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
