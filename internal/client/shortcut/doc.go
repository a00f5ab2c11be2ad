// Package shortcut maps key chords to window manager commands.
//
// A Dispatcher sees every key event before the focused terminal does.
// Claimed chords stop there; the rest, including the copy chord, are
// passed on so the shell still receives them. Bindings default to
// Alt+Q (cycle), Ctrl+T (new), Ctrl+W (close), Ctrl+C (copy) and
// Ctrl+Shift+V (paste) and can be overridden from a YAML keymap:
//
//	bindings:
//	  - keys: Alt+Tab
//	    action: cycle-window
//	  - keys: Ctrl+V
//	    action: paste
package shortcut
