package shortcut

import (
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/goccy/go-yaml"
)

// Action is a command a chord can trigger.
type Action string

const (
	ActionCycleWindow Action = "cycle-window"
	ActionNewWindow   Action = "new-window"
	ActionCloseWindow Action = "close-window"
	ActionCopy        Action = "copy"
	ActionPaste       Action = "paste"
)

// claims reports whether an action consumes its chord by default.
var claims = map[Action]bool{
	ActionCycleWindow: true,
	ActionNewWindow:   true,
	ActionCloseWindow: true,
	ActionCopy:        false,
	ActionPaste:       true,
}

// Binding ties a chord to an action. A claimed chord is not passed on to
// the terminal.
type Binding struct {
	Chord  Chord
	Action Action
	Claim  bool
}

// Keymap is a set of bindings, at most one chord per action.
type Keymap struct {
	byChord map[Chord]Binding
}

// NewKeymap creates an empty keymap.
func NewKeymap() *Keymap {
	return &Keymap{byChord: make(map[Chord]Binding)}
}

// DefaultKeymap returns the built-in bindings.
func DefaultKeymap() *Keymap {
	km := NewKeymap()
	km.Bind(MustParseChord("Alt+Q"), ActionCycleWindow)
	km.Bind(MustParseChord("Ctrl+T"), ActionNewWindow)
	km.Bind(MustParseChord("Ctrl+W"), ActionCloseWindow)
	km.Bind(MustParseChord("Ctrl+C"), ActionCopy)
	km.Bind(MustParseChord("Ctrl+Shift+V"), ActionPaste)
	return km
}

// Bind binds chord to action with the action's default claim, replacing
// the action's previous chord.
func (k *Keymap) Bind(chord Chord, action Action) {
	k.BindClaim(chord, action, claims[action])
}

// BindClaim is Bind with an explicit claim. If chord already belongs to
// another action, that action is left unbound.
func (k *Keymap) BindClaim(chord Chord, action Action, claim bool) {
	for c, b := range k.byChord {
		if b.Action == action {
			delete(k.byChord, c)
		}
	}
	k.byChord[chord] = Binding{Chord: chord, Action: action, Claim: claim}
}

// Lookup returns the binding for chord.
func (k *Keymap) Lookup(chord Chord) (Binding, bool) {
	b, ok := k.byChord[chord]
	return b, ok
}

// Bindings returns all bindings ordered by action.
func (k *Keymap) Bindings() []Binding {
	out := make([]Binding, 0, len(k.byChord))
	for _, b := range k.byChord {
		out = append(out, b)
	}
	slices.SortFunc(out, func(a, b Binding) int {
		switch {
		case a.Action < b.Action:
			return -1
		case a.Action > b.Action:
			return 1
		}
		return 0
	})
	return out
}

type keymapFile struct {
	Bindings []struct {
		Keys        string `yaml:"keys"`
		Action      Action `yaml:"action"`
		Passthrough *bool  `yaml:"passthrough,omitempty"`
	} `yaml:"bindings"`
}

type eviction struct {
	index int
	chord Chord
	by    Action
}

// ParseKeymap reads YAML bindings on top of the defaults. Taking a chord
// from another action is an error unless the file rebinds that action too.
func ParseKeymap(content []byte) (*Keymap, error) {
	var file keymapFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	km := DefaultKeymap()
	evicted := make(map[Action]eviction)
	for i, entry := range file.Bindings {
		if _, ok := claims[entry.Action]; !ok {
			return nil, fmt.Errorf("binding %d: unknown action %q", i, entry.Action)
		}
		chord, err := ParseChord(entry.Keys)
		if err != nil {
			return nil, fmt.Errorf("binding %d: %w", i, err)
		}
		claim := claims[entry.Action]
		if entry.Passthrough != nil {
			claim = !*entry.Passthrough
		}
		if prev, ok := km.Lookup(chord); ok && prev.Action != entry.Action {
			evicted[prev.Action] = eviction{index: i, chord: chord, by: entry.Action}
		}
		delete(evicted, entry.Action)
		km.BindClaim(chord, entry.Action, claim)
	}

	if len(evicted) > 0 {
		var first Action
		for action, ev := range evicted {
			if first == "" || ev.index < evicted[first].index {
				first = action
			}
		}
		ev := evicted[first]
		return nil, fmt.Errorf("binding %d: %s for %s is already bound to %s", ev.index, ev.chord, ev.by, first)
	}
	return km, nil
}

// LoadKeymap reads a keymap from r.
func LoadKeymap(r io.Reader) (*Keymap, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read keymap: %w", err)
	}
	return ParseKeymap(content)
}

// LoadKeymapFile reads a keymap file.
func LoadKeymapFile(path string) (*Keymap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open keymap: %w", err)
	}
	defer f.Close()
	return LoadKeymap(f)
}
