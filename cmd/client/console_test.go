package main

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/webterminator/internal/client/desktop"
	"github.com/GriffinCanCode/webterminator/internal/client/pointer"
	"github.com/GriffinCanCode/webterminator/internal/client/shortcut"
	"github.com/GriffinCanCode/webterminator/internal/client/taskbar"
	"github.com/GriffinCanCode/webterminator/internal/client/vtrender"
)

type recordedSessions struct {
	mu      sync.Mutex
	created []string
	input   []string
	closed  []string
}

func (s *recordedSessions) CreateSession(id string, cols, rows int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = append(s.created, id)
}

func (s *recordedSessions) Input(id string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.input = append(s.input, id+" "+string(data))
}

func (s *recordedSessions) Resize(id string, cols, rows int) {}

func (s *recordedSessions) CloseSession(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = append(s.closed, id)
}

type memClipboard struct{ text string }

func (c *memClipboard) ReadAll() (string, error) { return c.text, nil }

func (c *memClipboard) WriteAll(text string) error {
	c.text = text
	return nil
}

func consoleKeymap(t *testing.T) *shortcut.Keymap {
	t.Helper()
	km, err := loadKeymap("")
	require.NoError(t, err)
	return km
}

func newTestConsole(t *testing.T) (*console, *recordedSessions, *bytes.Buffer) {
	t.Helper()
	sessions := &recordedSessions{}
	model := taskbar.NewModel()
	tbSync := taskbar.NewSync(model)
	manager := desktop.NewManager(vtrender.NewFactory(), sessions,
		desktop.WithTaskbar(tbSync),
		desktop.WithScheduler(&desktop.ManualScheduler{}),
		desktop.WithDesktopSize(desktopSize(200, 60)),
	)
	tbSync.Bind(manager)

	out := &bytes.Buffer{}
	con := &console{
		out:        out,
		logger:     zap.NewNop(),
		manager:    manager,
		taskbar:    model,
		pointer:    pointer.New(manager, model),
		dispatcher: shortcut.NewDispatcher(manager, shortcut.WithKeymap(consoleKeymap(t)), shortcut.WithClipboard(&memClipboard{})),
		cols:       200,
		rows:       60,
		dirty:      make(chan struct{}, 1),
	}
	manager.CreateWindow()
	return con, sessions, out
}

func TestTypingReachesActiveSession(t *testing.T) {
	con, sessions, _ := newTestConsole(t)

	assert.True(t, con.handleInput([]byte("ls")))
	assert.True(t, con.handleInput([]byte{'\r'}))

	assert.Equal(t, []string{"window_1 ls", "window_1 \r"}, sessions.input)
	assert.Len(t, con.dirty, 1, "input schedules a redraw")
}

func TestShortcutsAreClaimed(t *testing.T) {
	con, sessions, _ := newTestConsole(t)

	con.handleInput([]byte{0x14}) // Ctrl+T
	assert.Equal(t, 2, con.manager.Len())
	assert.Equal(t, "window_2", con.manager.ActiveID())

	con.handleInput([]byte{0x1b, 'q'}) // Alt+Q
	assert.Equal(t, "window_1", con.manager.ActiveID())

	con.handleInput([]byte{0x17}) // Ctrl+W
	assert.Equal(t, []string{"window_1"}, sessions.closed)
	assert.Empty(t, sessions.input, "claimed chords never reach the shell")
}

func TestPasteShortcut(t *testing.T) {
	con, sessions, _ := newTestConsole(t)
	con.dispatcher = shortcut.NewDispatcher(con.manager,
		shortcut.WithKeymap(consoleKeymap(t)),
		shortcut.WithClipboard(&memClipboard{text: "echo hi"}),
	)

	assert.True(t, con.handleInput([]byte{0x1b, 'v'})) // Alt+V
	con.dispatcher.Wait()

	assert.Equal(t, []string{"window_1 echo hi"}, sessions.input)
}

func TestOnlyActiveRendererFocused(t *testing.T) {
	con, _, _ := newTestConsole(t)
	con.handleInput([]byte{0x14}) // Ctrl+T
	con.handleInput([]byte{0x14})

	focused := func() []string {
		var ids []string
		for _, w := range con.manager.Windows() {
			r, ok := con.manager.Renderer(w.ID)
			require.True(t, ok)
			if r.(*vtrender.Renderer).Focused() {
				ids = append(ids, w.ID)
			}
		}
		return ids
	}

	assert.Equal(t, []string{"window_3"}, focused())
	con.handleInput([]byte{0x1b, 'q'}) // Alt+Q
	assert.Equal(t, []string{con.manager.ActiveID()}, focused())
}

func TestQuitKey(t *testing.T) {
	con, sessions, _ := newTestConsole(t)
	assert.False(t, con.handleInput([]byte{quitKey}))
	assert.Empty(t, sessions.input)
}

func TestHeaderDragMovesWindow(t *testing.T) {
	con, _, _ := newTestConsole(t)

	// window_1 sits at (100,100): header on row 5, columns 11 to 76
	require.True(t, con.handleInput([]byte("\x1b[<0;21;6M")))
	assert.Equal(t, pointer.ModeDragging, con.pointer.Mode())

	con.handleInput([]byte("\x1b[<32;31;9M"))
	con.handleInput([]byte("\x1b[<0;31;9m"))

	w, ok := con.manager.Window("window_1")
	require.True(t, ok)
	assert.Equal(t, 190, w.Geometry.X)
	assert.Equal(t, 151, w.Geometry.Y)
	assert.Equal(t, pointer.ModeIdle, con.pointer.Mode())
}

func TestCornerDragResizesWindow(t *testing.T) {
	con, _, _ := newTestConsole(t)

	con.handleInput([]byte("\x1b[<0;77;28M"))
	assert.Equal(t, pointer.ModeResizing, con.pointer.Mode())
	con.handleInput([]byte("\x1b[<32;87;33M"))
	con.handleInput([]byte("\x1b[<0;87;33m"))

	w, _ := con.manager.Window("window_1")
	assert.Equal(t, 600+10*cellW, w.Geometry.W)
	assert.Equal(t, 400+5*cellH, w.Geometry.H)
}

func TestHeaderButtons(t *testing.T) {
	con, sessions, _ := newTestConsole(t)

	con.handleInput([]byte("\x1b[<0;74;6M")) // maximize
	w, _ := con.manager.Window("window_1")
	assert.Equal(t, desktop.StateMaximized, w.State)
	con.handleInput([]byte("\x1b[<0;74;6m"))

	// Maximized at the origin: header on row 0, 200 columns wide
	con.handleInput([]byte("\x1b[<0;195;1M"))
	w, _ = con.manager.Window("window_1")
	assert.Equal(t, desktop.StateMinimized, w.State)

	con.manager.Restore("window_1")
	con.handleInput([]byte("\x1b[<0;199;1M"))
	assert.Equal(t, []string{"window_1"}, sessions.closed)
	assert.Equal(t, 1, con.manager.Len(), "closing the last window opens a fresh one")
}

func TestTaskbarClickActivates(t *testing.T) {
	con, _, _ := newTestConsole(t)
	con.manager.CreateWindow()
	require.Equal(t, "window_2", con.manager.ActiveID())

	con.handleInput([]byte("\x1b[<0;1;60M"))
	assert.Equal(t, "window_1", con.manager.ActiveID())
}

func TestDraw(t *testing.T) {
	con, _, out := newTestConsole(t)
	r, ok := con.manager.Renderer("window_1")
	require.True(t, ok)
	r.Write([]byte("$ echo hi\r\nhi\r\n$ "))

	con.draw()

	frame := out.String()
	assert.Contains(t, frame, " Terminal 1: bash ")
	assert.Contains(t, frame, "$ echo hi")
	assert.Contains(t, frame, "[*Terminal 1: bash]")
	assert.Contains(t, frame, "\x1b[10;14H", "cursor follows the focused window")
}
