package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/webterminator/internal/client/desktop"
)

type fixedScreen struct {
	lines    []string
	col, row int
}

func (s fixedScreen) Lines() []string        { return s.lines }
func (s fixedScreen) Cursor() (col, row int) { return s.col, s.row }

func view(id string, x, y, z int) desktop.View {
	return desktop.View{
		ID:      id,
		Title:   id,
		Command: "bash",
		Rect:    desktop.Rect{X: x, Y: y, W: desktop.DefaultWidth, H: desktop.DefaultHeight},
		ZIndex:  z,
		State:   desktop.StateNormal,
		Visible: true,
	}
}

func TestCellBox(t *testing.T) {
	b := cellBox(desktop.Rect{X: 100, Y: 100, W: 600, H: 400})
	assert.Equal(t, box{X: 11, Y: 5, Cols: 66, Top: 7, Rows: 21}, b)
	assert.Equal(t, 27, b.bottom())
	assert.True(t, b.contains(11, 5))
	assert.False(t, b.contains(77, 5))
	assert.False(t, b.contains(11, 28))
}

func TestDesktopSize(t *testing.T) {
	assert.Equal(t, desktop.Size{W: 200 * cellW, H: 59 * cellH}, desktopSize(200, 60))
	assert.Equal(t, desktop.Size{W: 0, H: cellH}, desktopSize(0, 0))
}

func TestHitTest(t *testing.T) {
	views := []desktop.View{view("a", 100, 100, 11), view("b", 130, 130, 12)}

	tests := []struct {
		name     string
		col, row int
		want     hit
	}{
		{"header of lower window", 12, 5, hit{"a", zoneHeader}},
		{"overlap goes to top window", 20, 7, hit{"b", zoneHeader}},
		{"close button", 78, 7, hit{"b", zoneClose}},
		{"maximize button", 76, 7, hit{"b", zoneMaximize}},
		{"minimize button", 74, 7, hit{"b", zoneMinimize}},
		{"resize corner", 79, 29, hit{"b", zoneResize}},
		{"body", 30, 15, hit{"b", zoneBody}},
		{"desktop", 150, 50, hit{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, hitTest(views, tt.col, tt.row))
		})
	}

	views[1].Visible = false
	assert.Equal(t, hit{"a", zoneBody}, hitTest(views, 20, 10), "hidden windows are skipped")
}

func TestCompose(t *testing.T) {
	a := view("a", 0, 0, 11)
	b := view("b", 90, 34, 12)
	b.Focused = true
	screens := map[string]screen{
		"a": fixedScreen{lines: []string{"under", "", strings.Repeat("x", 20)}},
		"b": fixedScreen{lines: []string{"$ top"}, col: 2, row: 0},
	}

	cv := compose([]desktop.View{a, b}, func(id string) screen { return screens[id] }, 100, 40, "[a] [*b]")
	lines := cv.lines()
	require.Len(t, lines, 40)

	assert.True(t, strings.HasPrefix(lines[0], "─ a: bash "), lines[0])
	assert.Equal(t, "under", lines[1])
	assert.True(t, strings.HasPrefix(lines[2], strings.Repeat(" ", 10)+"═ b: bash "), lines[2])
	assert.Equal(t, strings.Repeat("x", 10)+"$ top", lines[3], "higher window covers the lower one")
	assert.Equal(t, "[a] [*b]", lines[39])

	require.True(t, cv.shown)
	assert.Equal(t, [2]int{12, 3}, cv.cursor)
}

func TestComposeSkipsMinimized(t *testing.T) {
	a := view("a", 0, 0, 11)
	a.Visible = false
	cv := compose([]desktop.View{a}, func(string) screen { return nil }, 80, 10, "")
	for _, line := range cv.lines() {
		assert.Empty(t, line)
	}
	assert.False(t, cv.shown)
}

func TestParseMouse(t *testing.T) {
	events, ok := parseMouse([]byte("\x1b[<0;10;5M\x1b[<32;11;6M\x1b[<0;11;6m"))
	require.True(t, ok)
	require.Len(t, events, 3)

	assert.Equal(t, mouseEvent{Code: 0, Col: 9, Row: 4}, events[0])
	assert.True(t, events[0].left())
	assert.True(t, events[1].motion())
	assert.True(t, events[1].left())
	assert.True(t, events[2].Release)

	wheel, ok := parseMouse([]byte("\x1b[<64;1;1M"))
	require.True(t, ok)
	assert.True(t, wheel[0].wheel())
	assert.False(t, wheel[0].left())

	for _, bad := range []string{"ls", "\x1b[A", "\x1b[<0;1M", "\x1b[<0;1;1", "\x1b[<a;1;1M", "\x1b[<0;1;1Mx"} {
		_, ok := parseMouse([]byte(bad))
		assert.False(t, ok, "%q", bad)
	}
}
