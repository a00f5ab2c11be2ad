package main

import (
	"bytes"
	"strconv"
)

var sgrPrefix = []byte("\x1b[<")

// Mouse reporting: button-event tracking with SGR coordinates.
const (
	enableMouse  = "\x1b[?1002h\x1b[?1006h"
	disableMouse = "\x1b[?1006l\x1b[?1002l"
)

// mouseEvent is one SGR mouse report with 0-based cell coordinates.
type mouseEvent struct {
	Code    int
	Col     int
	Row     int
	Release bool
}

func (e mouseEvent) motion() bool { return e.Code&32 != 0 }
func (e mouseEvent) wheel() bool  { return e.Code&64 != 0 }

// left reports a left button press or drag.
func (e mouseEvent) left() bool { return e.Code&^32 == 0 }

// parseMouse decodes consecutive SGR mouse reports. It fails if b holds
// anything else.
func parseMouse(b []byte) ([]mouseEvent, bool) {
	if !bytes.HasPrefix(b, sgrPrefix) {
		return nil, false
	}

	var events []mouseEvent
	for len(b) > 0 {
		if !bytes.HasPrefix(b, sgrPrefix) {
			return nil, false
		}
		b = b[len(sgrPrefix):]
		end := bytes.IndexAny(b, "Mm")
		if end < 0 {
			return nil, false
		}
		fields := bytes.Split(b[:end], []byte{';'})
		if len(fields) != 3 {
			return nil, false
		}
		var v [3]int
		for i, f := range fields {
			n, err := strconv.Atoi(string(f))
			if err != nil {
				return nil, false
			}
			v[i] = n
		}
		events = append(events, mouseEvent{
			Code:    v[0],
			Col:     v[1] - 1,
			Row:     v[2] - 1,
			Release: b[end] == 'm',
		})
		b = b[end+1:]
	}
	return events, true
}
