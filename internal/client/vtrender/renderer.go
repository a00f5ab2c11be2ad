package vtrender

import (
	"strings"
	"sync"

	"github.com/hinshun/vt10x"

	"github.com/GriffinCanCode/webterminator/internal/client/desktop"
)

// Default cell size in pixels.
const (
	CellWidth  = 9
	CellHeight = 17

	minCols = 2
	minRows = 1
)

// Factory creates renderers with a fixed cell size.
type Factory struct {
	CellWidth  int
	CellHeight int
}

// NewFactory returns a factory using the default cell size.
func NewFactory() *Factory {
	return &Factory{CellWidth: CellWidth, CellHeight: CellHeight}
}

// Create implements desktop.RendererFactory.
func (f *Factory) Create(opts desktop.RendererOptions) desktop.Renderer {
	return New(opts.ID, f.CellWidth, f.CellHeight)
}

// Renderer is a headless terminal screen.
type Renderer struct {
	id           string
	cellW, cellH int

	mu         sync.Mutex
	vt         vt10x.Terminal
	cols, rows int
	focused    bool
	disposed   bool
	selection  string
	onData     func([]byte)
	onResize   func(cols, rows int)
}

// New creates a renderer with an 80x24 screen.
func New(id string, cellW, cellH int) *Renderer {
	if cellW <= 0 {
		cellW = CellWidth
	}
	if cellH <= 0 {
		cellH = CellHeight
	}
	return &Renderer{
		id:    id,
		cellW: cellW,
		cellH: cellH,
		vt:    vt10x.New(vt10x.WithSize(80, 24)),
		cols:  80,
		rows:  24,
	}
}

// ID returns the window id the renderer belongs to.
func (r *Renderer) ID() string { return r.id }

// Write feeds session output through the emulator.
func (r *Renderer) Write(p []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disposed {
		return
	}
	r.vt.Write(p)
}

// OnData registers the keystroke callback.
func (r *Renderer) OnData(fn func([]byte)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onData = fn
}

// OnResize registers the grid change callback.
func (r *Renderer) OnResize(fn func(cols, rows int)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onResize = fn
}

// Fit sizes the grid to a content area in pixels and reports the new
// grid if it changed.
func (r *Renderer) Fit(width, height int) {
	r.mu.Lock()
	if r.disposed {
		r.mu.Unlock()
		return
	}
	cols := max(width/r.cellW, minCols)
	rows := max(height/r.cellH, minRows)
	if cols == r.cols && rows == r.rows {
		r.mu.Unlock()
		return
	}
	r.cols, r.rows = cols, rows
	r.vt.Resize(cols, rows)
	fn := r.onResize
	r.mu.Unlock()

	if fn != nil {
		fn(cols, rows)
	}
}

// Size returns the grid size in cells.
func (r *Renderer) Size() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cols, r.rows
}

// Focus marks the renderer as the input target.
func (r *Renderer) Focus() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.focused = true
}

// Blur clears the input focus.
func (r *Renderer) Blur() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.focused = false
}

// Focused reports whether the renderer has input focus.
func (r *Renderer) Focused() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.focused
}

// Type reports keystrokes as typed by the user.
func (r *Renderer) Type(p []byte) {
	r.mu.Lock()
	fn := r.onData
	disposed := r.disposed
	r.mu.Unlock()

	if fn != nil && !disposed && len(p) > 0 {
		fn(p)
	}
}

// Paste types text as a single chunk.
func (r *Renderer) Paste(text string) {
	r.Type([]byte(text))
}

// SelectLines selects whole screen rows from first to last, inclusive.
func (r *Renderer) SelectLines(first, last int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	first = max(first, 0)
	last = min(last, r.rows-1)
	lines := make([]string, 0, max(last-first+1, 0))
	for y := first; y <= last; y++ {
		lines = append(lines, r.lineLocked(y))
	}
	r.selection = strings.TrimRight(strings.Join(lines, "\n"), "\n")
}

// ClearSelection drops the selection.
func (r *Renderer) ClearSelection() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.selection = ""
}

// Selection returns the selected text.
func (r *Renderer) Selection() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selection
}

// CursorLine returns the text of the cursor row.
func (r *Renderer) CursorLine() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lineLocked(r.vt.Cursor().Y)
}

// Cursor returns the cursor position.
func (r *Renderer) Cursor() (col, row int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.vt.Cursor()
	return c.X, c.Y
}

// Lines returns every screen row with trailing blanks removed.
func (r *Renderer) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	lines := make([]string, r.rows)
	for y := range lines {
		lines[y] = r.lineLocked(y)
	}
	return lines
}

// Render returns the screen as text without trailing empty rows.
func (r *Renderer) Render() string {
	lines := r.Lines()
	last := len(lines) - 1
	for last >= 0 && lines[last] == "" {
		last--
	}
	return strings.Join(lines[:last+1], "\n")
}

// Dispose releases the renderer. Later writes and keystrokes are ignored.
func (r *Renderer) Dispose() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disposed = true
	r.onData = nil
	r.onResize = nil
}

// Disposed reports whether Dispose was called.
func (r *Renderer) Disposed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.disposed
}

func (r *Renderer) lineLocked(y int) string {
	if y < 0 || y >= r.rows {
		return ""
	}
	var b strings.Builder
	for x := 0; x < r.cols; x++ {
		ch := r.vt.Cell(x, y).Char
		if ch == 0 {
			ch = ' '
		}
		b.WriteRune(ch)
	}
	return strings.TrimRight(b.String(), " ")
}
