package taskbar

import "sync/atomic"

// Item is one taskbar entry.
type Item struct {
	ID        string
	Title     string
	Command   string
	Active    bool
	Minimized bool
}

// Source supplies the current items, in display order.
type Source interface {
	TaskbarItems() []Item
	TaskbarItem(id string) (Item, bool)
}

// View displays the taskbar.
type View interface {
	// Rebuild replaces the whole list.
	Rebuild(items []Item)
	// Patch updates one existing entry in place.
	Patch(item Item)
}

// Sync pulls items from a Source and pushes them to a View.
type Sync struct {
	view   View
	source atomic.Pointer[sourceBox]
}

type sourceBox struct{ Source }

// NewSync creates a Sync that renders into view. Calls before Bind are
// ignored.
func NewSync(view View) *Sync {
	return &Sync{view: view}
}

// Bind sets the source to read from.
func (s *Sync) Bind(source Source) {
	s.source.Store(&sourceBox{source})
}

func (s *Sync) src() Source {
	if b := s.source.Load(); b != nil {
		return b.Source
	}
	return nil
}

// Rebuild redraws the full list.
func (s *Sync) Rebuild() {
	src := s.src()
	if src == nil {
		return
	}
	s.view.Rebuild(src.TaskbarItems())
}

// Patch redraws the entry for id. Unknown ids are ignored.
func (s *Sync) Patch(id string) {
	src := s.src()
	if src == nil {
		return
	}
	if item, ok := src.TaskbarItem(id); ok {
		s.view.Patch(item)
	}
}

// PatchAll redraws every entry without rebuilding the list.
func (s *Sync) PatchAll() {
	src := s.src()
	if src == nil {
		return
	}
	for _, item := range src.TaskbarItems() {
		s.view.Patch(item)
	}
}
