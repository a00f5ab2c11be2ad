package taskbar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSource struct {
	items []Item
}

func (s *staticSource) TaskbarItems() []Item { return append([]Item(nil), s.items...) }

func (s *staticSource) TaskbarItem(id string) (Item, bool) {
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return Item{}, false
}

func TestSyncBeforeBind(t *testing.T) {
	model := NewModel()
	sync := NewSync(model)

	sync.Rebuild()
	sync.Patch("window_1")
	sync.PatchAll()

	rebuilds, patches := model.Counts()
	assert.Zero(t, rebuilds)
	assert.Zero(t, patches)
}

func TestSyncRebuildAndPatch(t *testing.T) {
	model := NewModel()
	sync := NewSync(model)
	src := &staticSource{items: []Item{
		{ID: "window_1", Title: "Terminal 1", Command: "bash", Active: true},
		{ID: "window_2", Title: "Terminal 2", Command: "bash"},
	}}
	sync.Bind(src)

	sync.Rebuild()
	require.Len(t, model.Items(), 2)

	src.items[1].Command = "top"
	src.items[1].Minimized = true
	sync.Patch("window_2")

	item, ok := model.Item("window_2")
	require.True(t, ok)
	assert.Equal(t, "top", item.Command)
	assert.True(t, item.Minimized)

	sync.Patch("window_9")
	rebuilds, patches := model.Counts()
	assert.Equal(t, 1, rebuilds)
	assert.Equal(t, 1, patches)
}

func TestSyncPatchAll(t *testing.T) {
	model := NewModel()
	sync := NewSync(model)
	src := &staticSource{items: []Item{
		{ID: "window_1", Title: "Terminal 1", Active: true},
		{ID: "window_2", Title: "Terminal 2"},
	}}
	sync.Bind(src)
	sync.Rebuild()

	src.items[0].Active = false
	src.items[1].Active = true
	sync.PatchAll()

	items := model.Items()
	assert.False(t, items[0].Active)
	assert.True(t, items[1].Active)

	rebuilds, patches := model.Counts()
	assert.Equal(t, 1, rebuilds)
	assert.Equal(t, 2, patches)
}

func TestModelPatchIgnoresUnknown(t *testing.T) {
	model := NewModel()
	model.Rebuild([]Item{{ID: "window_1", Title: "Terminal 1"}})

	model.Patch(Item{ID: "window_2", Title: "Terminal 2"})
	assert.Len(t, model.Items(), 1)
	_, ok := model.Item("window_2")
	assert.False(t, ok)
}

func TestModelRebuildCopies(t *testing.T) {
	model := NewModel()
	items := []Item{{ID: "window_1", Command: "bash"}}
	model.Rebuild(items)

	items[0].Command = "changed"
	item, _ := model.Item("window_1")
	assert.Equal(t, "bash", item.Command)
}

func TestModelWidth(t *testing.T) {
	tests := []struct {
		name  string
		width int
		want  int
	}{
		{"in range", 320, 320},
		{"too narrow", 20, MinWidth},
		{"too wide", 900, MaxWidth},
		{"lower bound", MinWidth, MinWidth},
		{"upper bound", MaxWidth, MaxWidth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := NewModel()
			model.SetWidth(tt.width)
			assert.Equal(t, tt.want, model.Width())
		})
	}
	assert.Equal(t, DefaultWidth, NewModel().Width())
}

func TestModelString(t *testing.T) {
	model := NewModel()
	model.Rebuild([]Item{
		{ID: "window_1", Title: "Terminal 1", Command: "vim", Active: true},
		{ID: "window_2", Title: "Terminal 2", Command: "bash", Minimized: true},
	})

	assert.Equal(t, "[*Terminal 1: vim] [Terminal 2: bash (min)]", model.String())
}

func TestModelItemAt(t *testing.T) {
	model := NewModel()
	model.Rebuild([]Item{
		{ID: "window_1", Title: "Terminal 1", Command: "vim", Active: true},
		{ID: "window_2", Title: "Terminal 2", Command: "bash", Minimized: true},
	})

	tests := []struct {
		col    int
		wantID string
		wantOK bool
	}{
		{0, "window_1", true},
		{17, "window_1", true},
		{18, "", false},
		{19, "window_2", true},
		{42, "window_2", true},
		{43, "", false},
		{-1, "", false},
	}
	for _, tt := range tests {
		id, ok := model.ItemAt(tt.col)
		assert.Equal(t, tt.wantOK, ok, "col %d", tt.col)
		assert.Equal(t, tt.wantID, id, "col %d", tt.col)
	}
}
