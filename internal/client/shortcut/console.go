package shortcut

const esc = 0x1b

// ConsoleKey decodes one read from a raw-mode terminal into a key event.
// An ESC prefix marks Alt, control bytes map to Ctrl+letter and upper
// case letters carry Shift. Reads it cannot decode as a single key, such
// as escape sequences for arrows, return ok=false and should be passed
// through untouched.
func ConsoleKey(b []byte) (KeyEvent, bool) {
	switch {
	case len(b) == 1:
		c, ok := consoleChord(b[0])
		if !ok {
			return KeyEvent{}, false
		}
		return KeyEvent{Chord: c, Raw: b}, true
	case len(b) == 2 && b[0] == esc:
		c, ok := consoleChord(b[1])
		if !ok || c.Key == "esc" {
			return KeyEvent{}, false
		}
		c.Mods |= ModAlt
		return KeyEvent{Chord: c, Raw: b}, true
	default:
		return KeyEvent{}, false
	}
}

func consoleChord(c byte) (Chord, bool) {
	switch {
	case c == '\r' || c == '\n':
		return Chord{Key: "enter"}, true
	case c == '\t':
		return Chord{Key: "tab"}, true
	case c == esc:
		return Chord{Key: "esc"}, true
	case c == 0x7f || c == 0x08:
		return Chord{Key: "backspace"}, true
	case c == ' ':
		return Chord{Key: "space"}, true
	case c >= 0x01 && c <= 0x1a:
		return Chord{Mods: ModCtrl, Key: string(rune('a' + c - 1))}, true
	case c >= 'A' && c <= 'Z':
		return Chord{Mods: ModShift, Key: string(rune(c + 'a' - 'A'))}, true
	case c > ' ' && c < 0x7f:
		return Chord{Key: string(rune(c))}, true
	default:
		return Chord{}, false
	}
}

var consoleNamed = map[string]byte{
	"enter":     '\r',
	"tab":       '\t',
	"esc":       esc,
	"backspace": 0x7f,
	"space":     ' ',
}

// ConsoleBytes returns what a raw-mode terminal sends for c. It reports
// false for chords a console cannot produce, such as Ctrl+Shift+V, which
// arrives as plain Ctrl+V.
func ConsoleBytes(c Chord) ([]byte, bool) {
	var b byte
	named, isNamed := consoleNamed[c.Key]
	switch base := c.Mods &^ ModAlt; {
	case isNamed && base == 0:
		b = named
	case len(c.Key) != 1:
		return nil, false
	case base == 0:
		b = c.Key[0]
	case base == ModCtrl && c.Key[0] >= 'a' && c.Key[0] <= 'z':
		b = c.Key[0] - 'a' + 1
	case base == ModShift && c.Key[0] >= 'a' && c.Key[0] <= 'z':
		b = c.Key[0] - 'a' + 'A'
	default:
		return nil, false
	}

	raw := []byte{b}
	if c.Mods&ModAlt != 0 {
		raw = []byte{esc, b}
	}
	// Ctrl+I and friends share a byte with a named key
	if ev, ok := ConsoleKey(raw); !ok || ev.Chord != c {
		return nil, false
	}
	return raw, true
}

// consoleFallbacks are the chords used by AdaptToConsole.
var consoleFallbacks = map[Action]Chord{
	ActionPaste: {Mods: ModAlt, Key: "v"},
}

// AdaptToConsole moves actions whose chord a console cannot send onto
// their console fallback, keeping the claim. A fallback chord already
// bound to another action is left alone. It returns the moved bindings.
func (k *Keymap) AdaptToConsole() []Binding {
	var moved []Binding
	for _, b := range k.Bindings() {
		if _, ok := ConsoleBytes(b.Chord); ok {
			continue
		}
		fallback, ok := consoleFallbacks[b.Action]
		if !ok {
			continue
		}
		if _, taken := k.Lookup(fallback); taken {
			continue
		}
		k.BindClaim(fallback, b.Action, b.Claim)
		moved = append(moved, Binding{Chord: fallback, Action: b.Action, Claim: b.Claim})
	}
	return moved
}
