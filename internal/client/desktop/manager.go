package desktop

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/webterminator/internal/client/taskbar"
	"github.com/GriffinCanCode/webterminator/internal/infrastructure/logging"
	"github.com/GriffinCanCode/webterminator/internal/shared/protocol"
)

// Manager owns the windows of one client.
type Manager struct {
	mu         sync.Mutex
	windows    map[string]*Window  // Protected by mu
	renderers  map[string]Renderer // Protected by mu
	order      []string            // creation order, protected by mu
	focused    string              // Protected by mu
	seq        int                 // Protected by mu
	z          int                 // Protected by mu
	desktop    Size                // Protected by mu
	pendingFit map[string]struct{} // Protected by mu

	factory   RendererFactory
	sessions  SessionClient
	taskbar   Taskbar
	scheduler Scheduler
	logger    *zap.Logger
	namespace string
}

// Option configures a Manager.
type Option func(*Manager)

// WithTaskbar sets the taskbar to keep in sync.
func WithTaskbar(t Taskbar) Option {
	return func(m *Manager) { m.taskbar = t }
}

// WithScheduler sets the scheduler used for renderer re-fits.
func WithScheduler(s Scheduler) Option {
	return func(m *Manager) { m.scheduler = s }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithNamespace prefixes window ids with ns, so several clients can share
// one server without their session ids colliding.
func WithNamespace(ns string) Option {
	return func(m *Manager) { m.namespace = ns }
}

// WithDesktopSize sets the initial desktop size.
func WithDesktopSize(s Size) Option {
	return func(m *Manager) { m.desktop = s }
}

// NewManager creates a manager with no windows. Call CreateWindow to open
// the first one.
func NewManager(factory RendererFactory, sessions SessionClient, opts ...Option) *Manager {
	m := &Manager{
		windows:    make(map[string]*Window),
		renderers:  make(map[string]Renderer),
		pendingFit: make(map[string]struct{}),
		z:          baseZIndex,
		desktop:    DefaultDesktop,
		factory:    factory,
		sessions:   sessions,
		taskbar:    nopTaskbar{},
		scheduler:  NewFrameScheduler(),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) windowID(seq int) string {
	if m.namespace == "" {
		return fmt.Sprintf("window_%d", seq)
	}
	return fmt.Sprintf("%s:window_%d", m.namespace, seq)
}

// CreateWindow opens a new window with its session and focuses it.
func (m *Manager) CreateWindow() string {
	m.mu.Lock()
	m.seq++
	seq := m.seq
	offset := CascadeStep * (seq - 1)
	w := &Window{
		ID:    m.windowID(seq),
		Seq:   seq,
		Title: fmt.Sprintf("Terminal %d", seq),
		Geometry: m.clampLocked(Rect{
			X: DefaultOrigin + offset,
			Y: DefaultOrigin + offset,
			W: DefaultWidth,
			H: DefaultHeight,
		}),
		State:           StateNormal,
		RestoreGeometry: placeholderGeometry,
		Command:         DefaultCommand,
	}
	m.windows[w.ID] = w
	m.order = append(m.order, w.ID)
	geom := w.Geometry
	m.mu.Unlock()

	id := w.ID
	r := m.factory.Create(RendererOptions{ID: id, Title: w.Title})
	r.Fit(contentSize(geom))
	cols, rows := r.Size()

	m.mu.Lock()
	if _, ok := m.windows[id]; !ok {
		m.mu.Unlock()
		r.Dispose()
		return id
	}
	m.renderers[id] = r
	m.mu.Unlock()

	r.OnData(func(p []byte) { m.handleInput(id, p) })
	r.OnResize(func(cols, rows int) { m.sessions.Resize(id, cols, rows) })

	m.logger.Debug("Window created",
		logging.Window(id),
		zap.Int("cols", cols),
		zap.Int("rows", rows))

	m.sessions.CreateSession(id, cols, rows)
	m.SetActive(id)
	m.taskbar.Rebuild()
	return id
}

// SetActive focuses id and raises it above every other window.
func (m *Manager) SetActive(id string) bool {
	m.mu.Lock()
	w, ok := m.windows[id]
	if !ok {
		m.mu.Unlock()
		return false
	}
	var blurred Renderer
	if prev, ok := m.windows[m.focused]; ok && m.focused != id {
		prev.Focused = false
		blurred = m.renderers[m.focused]
	}
	m.focused = id
	w.Focused = true
	m.z++
	w.ZIndex = m.z
	r := m.renderers[id]
	m.mu.Unlock()

	if blurred != nil {
		blurred.Blur()
	}
	if r != nil {
		r.Focus()
	}
	m.taskbar.PatchAll()
	return true
}

// CycleActive focuses the next window in creation order, wrapping around.
func (m *Manager) CycleActive() {
	m.mu.Lock()
	if len(m.order) == 0 {
		m.mu.Unlock()
		return
	}
	i := max(slices.Index(m.order, m.focused), 0)
	next := m.order[(i+1)%len(m.order)]
	m.mu.Unlock()

	m.SetActive(next)
}

// Minimize hides id. Its geometry is left as is.
func (m *Manager) Minimize(id string) {
	m.mu.Lock()
	w, ok := m.windows[id]
	if !ok || w.State == StateMinimized {
		m.mu.Unlock()
		return
	}
	w.resumeState = w.State
	w.State = StateMinimized
	m.mu.Unlock()

	m.taskbar.Patch(id)
}

// Maximize toggles id between maximized and its previous state.
func (m *Manager) Maximize(id string) {
	m.mu.Lock()
	w, ok := m.windows[id]
	if !ok {
		m.mu.Unlock()
		return
	}
	if w.State == StateMaximized {
		m.mu.Unlock()
		m.Restore(id)
		return
	}
	if w.State == StateNormal || w.resumeState == StateNormal {
		w.RestoreGeometry = w.Geometry
	}
	w.State = StateMaximized
	w.Geometry = m.desktopRectLocked()
	m.mu.Unlock()

	m.requestFit(id)
	m.taskbar.Patch(id)
}

// Restore brings id back from minimized or maximized. A minimized window
// returns to whatever state it was minimized from.
func (m *Manager) Restore(id string) {
	m.mu.Lock()
	w, ok := m.windows[id]
	if !ok {
		m.mu.Unlock()
		return
	}
	switch w.State {
	case StateMinimized:
		w.State = w.resumeState
		if w.State == StateMaximized {
			w.Geometry = m.desktopRectLocked()
		}
	case StateMaximized:
		w.State = StateNormal
		w.Geometry = w.RestoreGeometry
	default:
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	m.requestFit(id)
	m.taskbar.Patch(id)
}

// Close destroys id and its session. Closing the last window opens a
// fresh one.
func (m *Manager) Close(id string) {
	m.closeWindow(id, true)
}

// CloseActive closes the focused window, if any.
func (m *Manager) CloseActive() {
	if id := m.ActiveID(); id != "" {
		m.Close(id)
	}
}

func (m *Manager) closeWindow(id string, destroySession bool) bool {
	m.mu.Lock()
	if _, ok := m.windows[id]; !ok {
		m.mu.Unlock()
		return false
	}
	r := m.renderers[id]
	delete(m.windows, id)
	delete(m.renderers, id)
	delete(m.pendingFit, id)
	m.order = slices.DeleteFunc(m.order, func(s string) bool { return s == id })

	var refocus string
	if m.focused == id {
		m.focused = ""
		if len(m.order) > 0 {
			refocus = m.order[0]
		}
	}
	empty := len(m.windows) == 0
	m.mu.Unlock()

	if destroySession {
		m.sessions.CloseSession(id)
	}
	if r != nil {
		r.Dispose()
	}
	m.taskbar.Rebuild()

	if refocus != "" {
		m.SetActive(refocus)
	}
	if empty {
		m.CreateWindow()
	}
	return true
}

// ActivateFromTaskbar focuses id and un-minimizes it.
func (m *Manager) ActivateFromTaskbar(id string) {
	if !m.SetActive(id) {
		return
	}
	m.mu.Lock()
	minimized := m.windows[id] != nil && m.windows[id].State == StateMinimized
	m.mu.Unlock()
	if minimized {
		m.Restore(id)
	}
}

// HandleData writes session output to its window. Output for unknown
// sessions is dropped.
func (m *Manager) HandleData(id string, data []byte) bool {
	m.mu.Lock()
	r := m.renderers[id]
	m.mu.Unlock()

	if r == nil {
		return false
	}
	r.Write(data)
	return true
}

// HandleExit closes the window of a session that ended on the server.
func (m *Manager) HandleExit(id string, code, signal int) bool {
	m.logger.Info("Session exited",
		logging.Window(id),
		zap.Int("exit_code", code),
		zap.Int("signal", signal))
	return m.closeWindow(id, false)
}

// HandleError reacts to a rejected request. A create the server refused
// leaves a window with no session, so that window is closed.
func (m *Manager) HandleError(id, code, message string) {
	m.logger.Warn("Session request rejected",
		logging.Window(id),
		zap.String("code", code),
		zap.String("message", message))

	switch code {
	case protocol.CodeDuplicateSession, protocol.CodeSessionLimit:
		m.closeWindow(id, false)
	}
}

func (m *Manager) handleInput(id string, p []byte) {
	m.sessions.Input(id, p)
	if len(p) == 1 && (p[0] == '\r' || p[0] == '\n') {
		m.updateCommand(id)
	}
}

func (m *Manager) updateCommand(id string) {
	m.mu.Lock()
	r := m.renderers[id]
	m.mu.Unlock()
	if r == nil {
		return
	}

	line := strings.TrimSpace(r.CursorLine())
	if line == "" {
		return
	}

	m.mu.Lock()
	w, ok := m.windows[id]
	if ok {
		w.Command = line
	}
	m.mu.Unlock()

	if ok {
		m.taskbar.Patch(id)
	}
}

// Move places id at (x, y). Maximized and minimized windows do not move.
func (m *Manager) Move(id string, x, y int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.windows[id]
	if !ok || w.State != StateNormal {
		return false
	}
	w.Geometry.X, w.Geometry.Y = x, y
	return true
}

// Resize sets the rectangle of id, floored at the minimum size, and
// schedules a renderer re-fit.
func (m *Manager) Resize(id string, r Rect) bool {
	m.mu.Lock()
	w, ok := m.windows[id]
	if !ok || w.State != StateNormal {
		m.mu.Unlock()
		return false
	}
	r.W = max(r.W, MinWidth)
	r.H = max(r.H, MinHeight)
	w.Geometry = r
	m.mu.Unlock()

	m.requestFit(id)
	return true
}

// SetDesktopSize updates the desktop bounds. Maximized windows follow the
// new size; others are pulled back inside it.
func (m *Manager) SetDesktopSize(s Size) {
	m.mu.Lock()
	m.desktop = s
	var refit []string
	for _, id := range m.order {
		w := m.windows[id]
		switch w.State {
		case StateMaximized:
			w.Geometry = m.desktopRectLocked()
			refit = append(refit, id)
		default:
			w.Geometry = m.clampLocked(w.Geometry)
		}
	}
	m.mu.Unlock()

	for _, id := range refit {
		m.requestFit(id)
	}
}

// DesktopSize returns the desktop bounds.
func (m *Manager) DesktopSize() Size {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.desktop
}

// ActiveID returns the focused window, or "" when there is none.
func (m *Manager) ActiveID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.focused
}

// Window returns a copy of one window.
func (m *Manager) Window(id string) (Window, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.windows[id]
	if !ok {
		return Window{}, false
	}
	return *w, true
}

// Windows returns copies of all windows in creation order.
func (m *Manager) Windows() []Window {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Window, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *m.windows[id])
	}
	return out
}

// Len returns the number of windows.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.windows)
}

// Renderer returns the renderer of id.
func (m *Manager) Renderer(id string) (Renderer, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.renderers[id]
	return r, ok
}

// Selection returns the selected text in id.
func (m *Manager) Selection(id string) string {
	if r, ok := m.Renderer(id); ok {
		return r.Selection()
	}
	return ""
}

// Paste types text into id.
func (m *Manager) Paste(id, text string) {
	if r, ok := m.Renderer(id); ok {
		r.Paste(text)
	}
}

// Snapshot returns the display model, bottom-most window first.
func (m *Manager) Snapshot() []View {
	m.mu.Lock()
	views := make([]View, 0, len(m.windows))
	for _, id := range m.order {
		w := m.windows[id]
		views = append(views, View{
			ID:      w.ID,
			Title:   w.Title,
			Command: w.Command,
			Rect:    w.Geometry,
			ZIndex:  w.ZIndex,
			State:   w.State,
			Focused: w.Focused,
			Visible: w.State != StateMinimized,
		})
	}
	m.mu.Unlock()

	slices.SortStableFunc(views, func(a, b View) int { return a.ZIndex - b.ZIndex })
	return views
}

// TaskbarItems implements taskbar.Source.
func (m *Manager) TaskbarItems() []taskbar.Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]taskbar.Item, 0, len(m.order))
	for _, id := range m.order {
		items = append(items, m.itemLocked(m.windows[id]))
	}
	return items
}

// TaskbarItem implements taskbar.Source.
func (m *Manager) TaskbarItem(id string) (taskbar.Item, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.windows[id]
	if !ok {
		return taskbar.Item{}, false
	}
	return m.itemLocked(w), true
}

func (m *Manager) itemLocked(w *Window) taskbar.Item {
	return taskbar.Item{
		ID:        w.ID,
		Title:     w.Title,
		Command:   w.Command,
		Active:    w.ID == m.focused,
		Minimized: w.State == StateMinimized,
	}
}

// requestFit schedules one re-fit of id's renderer. Requests made before
// the scheduled fit runs are merged into it.
func (m *Manager) requestFit(id string) {
	m.mu.Lock()
	if _, pending := m.pendingFit[id]; pending {
		m.mu.Unlock()
		return
	}
	if _, ok := m.windows[id]; !ok {
		m.mu.Unlock()
		return
	}
	m.pendingFit[id] = struct{}{}
	m.mu.Unlock()

	m.scheduler.Schedule(func() { m.flushFit(id) })
}

func (m *Manager) flushFit(id string) {
	m.mu.Lock()
	delete(m.pendingFit, id)
	w, ok := m.windows[id]
	r := m.renderers[id]
	var geom Rect
	if ok {
		geom = w.Geometry
	}
	m.mu.Unlock()

	if !ok || r == nil {
		return
	}
	r.Fit(contentSize(geom))
}

func (m *Manager) desktopRectLocked() Rect {
	return Rect{W: max(m.desktop.W, MinWidth), H: max(m.desktop.H, MinHeight)}
}

// clampLocked keeps r inside the desktop where it fits.
func (m *Manager) clampLocked(r Rect) Rect {
	r.X = clamp(r.X, 0, m.desktop.W-r.W)
	r.Y = clamp(r.Y, 0, m.desktop.H-r.H)
	return r
}

func contentSize(r Rect) (int, int) {
	return r.W, max(r.H-HeaderHeight, 0)
}

// clamp limits v to [lo, hi]; when hi < lo the result is lo.
func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
