package shortcut

import (
	"sync"

	"go.uber.org/zap"
)

// Workspace is the window manager surface shortcuts act on.
type Workspace interface {
	CycleActive()
	CreateWindow() string
	CloseActive()
	ActiveID() string
	Selection(id string) string
	Paste(id, text string)
}

// Dispatcher runs shortcut actions.
type Dispatcher struct {
	ws        Workspace
	keymap    *Keymap
	clipboard Clipboard
	logger    *zap.Logger

	mu    sync.Mutex
	local string // in-memory clipboard, protected by mu

	wg sync.WaitGroup
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithKeymap replaces the default bindings.
func WithKeymap(km *Keymap) Option {
	return func(d *Dispatcher) { d.keymap = km }
}

// WithClipboard sets the system clipboard. Without one only the in-memory
// clipboard is used.
func WithClipboard(c Clipboard) Option {
	return func(d *Dispatcher) { d.clipboard = c }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

// NewDispatcher creates a dispatcher over ws.
func NewDispatcher(ws Workspace, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		ws:     ws,
		keymap: DefaultKeymap(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch runs the action bound to ev, if any, and reports whether the
// key was claimed. Unclaimed keys should be forwarded to the terminal.
func (d *Dispatcher) Dispatch(ev KeyEvent) bool {
	b, ok := d.keymap.Lookup(ev.Chord)
	if !ok {
		return false
	}

	d.logger.Debug("Shortcut", zap.Stringer("chord", ev.Chord), zap.String("action", string(b.Action)))

	switch b.Action {
	case ActionCycleWindow:
		d.ws.CycleActive()
	case ActionNewWindow:
		d.ws.CreateWindow()
	case ActionCloseWindow:
		d.ws.CloseActive()
	case ActionCopy:
		d.copy()
	case ActionPaste:
		d.paste()
	}
	return b.Claim
}

// Clipboard returns the in-memory clipboard.
func (d *Dispatcher) Clipboard() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.local
}

// Wait blocks until clipboard operations started so far have finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) copy() {
	id := d.ws.ActiveID()
	if id == "" {
		return
	}
	text := d.ws.Selection(id)
	if text == "" {
		return
	}

	d.mu.Lock()
	d.local = text
	d.mu.Unlock()

	if d.clipboard == nil {
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.clipboard.WriteAll(text); err != nil {
			d.logger.Debug("System clipboard write failed", zap.Error(err))
		}
	}()
}

// paste targets the window focused when the chord was pressed, even if
// focus moves before the clipboard answers.
func (d *Dispatcher) paste() {
	id := d.ws.ActiveID()
	if id == "" {
		return
	}

	if d.clipboard == nil {
		if text := d.Clipboard(); text != "" {
			d.ws.Paste(id, text)
		}
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		text, err := d.clipboard.ReadAll()
		if err != nil {
			d.logger.Debug("System clipboard read failed", zap.Error(err))
			text = d.Clipboard()
		}
		if text != "" {
			d.ws.Paste(id, text)
		}
	}()
}
