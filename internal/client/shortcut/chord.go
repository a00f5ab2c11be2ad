package shortcut

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidChord is returned for chord strings that cannot be parsed.
var ErrInvalidChord = errors.New("invalid key chord")

// Modifier is a set of modifier keys.
type Modifier uint8

const (
	ModCtrl Modifier = 1 << iota
	ModAlt
	ModShift
)

// Chord is a key together with its modifiers. Letter keys are stored in
// lower case; Shift is carried in Mods.
type Chord struct {
	Mods Modifier
	Key  string
}

// KeyEvent is one key press as delivered to the dispatcher.
type KeyEvent struct {
	Chord
	// Raw holds the bytes the terminal would receive for this key.
	Raw []byte
}

var keyAliases = map[string]string{
	"return":    "enter",
	"cr":        "enter",
	"escape":    "esc",
	"backspace": "backspace",
	"bs":        "backspace",
	"tab":       "tab",
	"space":     "space",
	"enter":     "enter",
	"esc":       "esc",
}

// ParseChord parses chords such as "Alt+Q" or "Ctrl+Shift+V".
func ParseChord(keys string) (Chord, error) {
	parts := strings.Split(strings.TrimSpace(keys), "+")
	if len(parts) == 0 || parts[len(parts)-1] == "" {
		return Chord{}, fmt.Errorf("%w: %q", ErrInvalidChord, keys)
	}

	var c Chord
	for _, p := range parts[:len(parts)-1] {
		switch strings.ToLower(strings.TrimSpace(p)) {
		case "ctrl", "control", "c":
			c.Mods |= ModCtrl
		case "alt", "meta", "option", "a", "m":
			c.Mods |= ModAlt
		case "shift", "s":
			c.Mods |= ModShift
		default:
			return Chord{}, fmt.Errorf("%w: unknown modifier %q in %q", ErrInvalidChord, p, keys)
		}
	}

	key := strings.TrimSpace(parts[len(parts)-1])
	switch {
	case len(key) == 1:
		c.Key = strings.ToLower(key)
	default:
		name, ok := keyAliases[strings.ToLower(key)]
		if !ok {
			return Chord{}, fmt.Errorf("%w: unknown key %q in %q", ErrInvalidChord, key, keys)
		}
		c.Key = name
	}
	return c, nil
}

// MustParseChord is like ParseChord but panics on error.
func MustParseChord(keys string) Chord {
	c, err := ParseChord(keys)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Chord) String() string {
	var b strings.Builder
	if c.Mods&ModCtrl != 0 {
		b.WriteString("Ctrl+")
	}
	if c.Mods&ModAlt != 0 {
		b.WriteString("Alt+")
	}
	if c.Mods&ModShift != 0 {
		b.WriteString("Shift+")
	}
	if len(c.Key) == 1 {
		b.WriteString(strings.ToUpper(c.Key))
	} else {
		b.WriteString(strings.ToUpper(c.Key[:1]) + c.Key[1:])
	}
	return b.String()
}
