package taskbar

import (
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"
)

// Taskbar width limits, in pixels.
const (
	MinWidth     = 150
	MaxWidth     = 500
	DefaultWidth = 250
)

// Model is an in-memory View.
type Model struct {
	mu       sync.RWMutex
	items    []Item
	index    map[string]int
	width    int
	rebuilds int
	patches  int
}

// NewModel creates an empty taskbar.
func NewModel() *Model {
	return &Model{
		index: make(map[string]int),
		width: DefaultWidth,
	}
}

// Rebuild replaces the list.
func (m *Model) Rebuild(items []Item) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items = append(m.items[:0:0], items...)
	m.index = make(map[string]int, len(items))
	for i, item := range m.items {
		m.index[item.ID] = i
	}
	m.rebuilds++
}

// Patch updates an existing entry. Entries not in the list are ignored,
// they appear on the next Rebuild.
func (m *Model) Patch(item Item) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, ok := m.index[item.ID]
	if !ok {
		return
	}
	m.items[i] = item
	m.patches++
}

// Items returns a copy of the list.
func (m *Model) Items() []Item {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Item(nil), m.items...)
}

// Item returns one entry.
func (m *Model) Item(id string) (Item, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i, ok := m.index[id]
	if !ok {
		return Item{}, false
	}
	return m.items[i], true
}

// Counts returns how many rebuilds and patches have been applied.
func (m *Model) Counts() (rebuilds, patches int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rebuilds, m.patches
}

// Width returns the taskbar width.
func (m *Model) Width() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.width
}

// SetWidth sets the taskbar width, clamped to [MinWidth, MaxWidth].
func (m *Model) SetWidth(width int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.width = ClampWidth(width)
}

// ClampWidth limits a taskbar width to [MinWidth, MaxWidth].
func ClampWidth(width int) int {
	return max(MinWidth, min(MaxWidth, width))
}

// String renders the list on one line, e.g. "[*Terminal 1: vim] [Terminal 2: bash (min)]".
func (m *Model) String() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	labels := make([]string, len(m.items))
	for i, item := range m.items {
		labels[i] = label(item)
	}
	return strings.Join(labels, " ")
}

// ItemAt returns the id of the item rendered at column col of String.
func (m *Model) ItemAt(col int) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	start := 0
	for _, item := range m.items {
		end := start + utf8.RuneCountInString(label(item))
		if col >= start && col < end {
			return item.ID, true
		}
		start = end + 1
	}
	return "", false
}

func label(item Item) string {
	var b strings.Builder
	b.WriteByte('[')
	if item.Active {
		b.WriteByte('*')
	}
	fmt.Fprintf(&b, "%s: %s", item.Title, item.Command)
	if item.Minimized {
		b.WriteString(" (min)")
	}
	b.WriteByte(']')
	return b.String()
}
