package pointer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/GriffinCanCode/webterminator/internal/client/desktop"
)

// ErrInvalidEdge is returned for handle names other than the eight
// compass directions.
var ErrInvalidEdge = errors.New("invalid resize edge")

// Edge is a set of window edges grabbed by a resize handle.
type Edge uint8

const (
	EdgeN Edge = 1 << iota
	EdgeS
	EdgeE
	EdgeW
)

// ParseEdge parses a handle name such as "n", "se" or "nw".
func ParseEdge(s string) (Edge, error) {
	if s == "" || len(s) > 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidEdge, s)
	}
	var e Edge
	for _, c := range strings.ToLower(s) {
		var bit Edge
		switch c {
		case 'n':
			bit = EdgeN
		case 's':
			bit = EdgeS
		case 'e':
			bit = EdgeE
		case 'w':
			bit = EdgeW
		default:
			return 0, fmt.Errorf("%w: %q", ErrInvalidEdge, s)
		}
		if e&bit != 0 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidEdge, s)
		}
		e |= bit
	}
	if !e.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrInvalidEdge, s)
	}
	return e, nil
}

// Valid reports whether e names one side or one corner.
func (e Edge) Valid() bool {
	if e == 0 || e&^(EdgeN|EdgeS|EdgeE|EdgeW) != 0 {
		return false
	}
	return e&(EdgeN|EdgeS) != EdgeN|EdgeS && e&(EdgeE|EdgeW) != EdgeE|EdgeW
}

func (e Edge) String() string {
	var b strings.Builder
	if e&EdgeN != 0 {
		b.WriteByte('n')
	}
	if e&EdgeS != 0 {
		b.WriteByte('s')
	}
	if e&EdgeE != 0 {
		b.WriteByte('e')
	}
	if e&EdgeW != 0 {
		b.WriteByte('w')
	}
	return b.String()
}

// ResizeRect applies a pointer delta to start. East and south edges move
// freely down to the minimum size. West and north edges move the origin
// with the pointer while the opposite edge stays put; once the minimum
// size is reached they stop.
func ResizeRect(start desktop.Rect, edges Edge, dx, dy int) desktop.Rect {
	r := start
	if edges&EdgeE != 0 {
		r.W = max(desktop.MinWidth, start.W+dx)
	}
	if edges&EdgeW != 0 {
		change := min(dx, start.W-desktop.MinWidth)
		r.X = start.X + change
		r.W = start.W - change
	}
	if edges&EdgeS != 0 {
		r.H = max(desktop.MinHeight, start.H+dy)
	}
	if edges&EdgeN != 0 {
		change := min(dy, start.H-desktop.MinHeight)
		r.Y = start.Y + change
		r.H = start.H - change
	}
	return r
}
