package main

import (
	"strings"

	"github.com/GriffinCanCode/webterminator/internal/client/desktop"
	"github.com/GriffinCanCode/webterminator/internal/client/vtrender"
)

const (
	cellW = vtrender.CellWidth
	cellH = vtrender.CellHeight
)

// screen is the part of a renderer the canvas reads.
type screen interface {
	Lines() []string
	Cursor() (col, row int)
}

// box is a window's footprint in console cells.
type box struct {
	X, Y      int
	Cols      int
	Top, Rows int
}

func cellBox(r desktop.Rect) box {
	return box{
		X:    r.X / cellW,
		Y:    r.Y / cellH,
		Cols: r.W / cellW,
		Top:  (r.Y + desktop.HeaderHeight) / cellH,
		Rows: (r.H - desktop.HeaderHeight) / cellH,
	}
}

func (b box) bottom() int { return b.Top + b.Rows - 1 }

func (b box) contains(col, row int) bool {
	return col >= b.X && col < b.X+b.Cols && row >= b.Y && row <= b.bottom()
}

// desktopSize converts a console size to desktop pixels, leaving the last
// row for the taskbar.
func desktopSize(cols, rows int) desktop.Size {
	return desktop.Size{W: cols * cellW, H: max(rows-1, 1) * cellH}
}

type zone int

const (
	zoneNone zone = iota
	zoneHeader
	zoneMinimize
	zoneMaximize
	zoneClose
	zoneResize
	zoneBody
)

type hit struct {
	ID   string
	Zone zone
}

// hitTest finds the topmost visible window under a cell. views must be
// ordered bottom to top.
func hitTest(views []desktop.View, col, row int) hit {
	for i := len(views) - 1; i >= 0; i-- {
		v := views[i]
		if !v.Visible {
			continue
		}
		b := cellBox(v.Rect)
		if !b.contains(col, row) {
			continue
		}
		right := b.X + b.Cols
		switch {
		case row == b.Y && col == right-2:
			return hit{v.ID, zoneClose}
		case row == b.Y && col == right-4:
			return hit{v.ID, zoneMaximize}
		case row == b.Y && col == right-6:
			return hit{v.ID, zoneMinimize}
		case row == b.Y:
			return hit{v.ID, zoneHeader}
		case row == b.bottom() && col == right-1 && v.State == desktop.StateNormal:
			return hit{v.ID, zoneResize}
		default:
			return hit{v.ID, zoneBody}
		}
	}
	return hit{}
}

type canvas struct {
	cells  [][]rune
	cursor [2]int
	shown  bool
}

func newCanvas(cols, rows int) *canvas {
	cells := make([][]rune, rows)
	for y := range cells {
		cells[y] = []rune(strings.Repeat(" ", cols))
	}
	return &canvas{cells: cells}
}

func (c *canvas) set(x, y int, r rune) {
	if y < 0 || y >= len(c.cells) || x < 0 || x >= len(c.cells[y]) {
		return
	}
	c.cells[y][x] = r
}

func (c *canvas) text(x, y, width int, s string) {
	i := 0
	for _, r := range s {
		if i >= width {
			return
		}
		c.set(x+i, y, r)
		i++
	}
}

func (c *canvas) fill(x, y, width int, r rune) {
	for i := 0; i < width; i++ {
		c.set(x+i, y, r)
	}
}

func (c *canvas) window(v desktop.View, s screen) {
	b := cellBox(v.Rect)
	for y := b.Y; y <= b.bottom(); y++ {
		c.fill(b.X, y, b.Cols, ' ')
	}

	bar := '─'
	if v.Focused {
		bar = '═'
	}
	c.fill(b.X, b.Y, b.Cols, bar)
	c.text(b.X+1, b.Y, b.Cols-8, " "+v.Title+": "+v.Command+" ")
	restore := '^'
	if v.State == desktop.StateMaximized {
		restore = 'v'
	}
	c.set(b.X+b.Cols-6, b.Y, '_')
	c.set(b.X+b.Cols-4, b.Y, restore)
	c.set(b.X+b.Cols-2, b.Y, 'x')

	if s == nil {
		return
	}
	for i, line := range s.Lines() {
		if i >= b.Rows {
			break
		}
		c.text(b.X, b.Top+i, b.Cols, line)
	}
	if v.State == desktop.StateNormal {
		c.set(b.X+b.Cols-1, b.bottom(), '◢')
	}
	if v.Focused {
		col, row := s.Cursor()
		if col < b.Cols && row < b.Rows {
			c.cursor = [2]int{b.X + col, b.Top + row}
			c.shown = true
		}
	}
}

func (c *canvas) lines() []string {
	out := make([]string, len(c.cells))
	for y, row := range c.cells {
		out[y] = strings.TrimRight(string(row), " ")
	}
	return out
}

// compose draws the desktop bottom to top with the taskbar on the last row.
func compose(views []desktop.View, screens func(id string) screen, cols, rows int, taskbar string) *canvas {
	c := newCanvas(cols, rows)
	for _, v := range views {
		if !v.Visible {
			continue
		}
		c.window(v, screens(v.ID))
	}
	c.fill(0, rows-1, cols, ' ')
	c.text(0, rows-1, cols, taskbar)
	if c.shown && c.cursor[1] >= rows-1 {
		c.shown = false
	}
	return c
}
