package desktop

import (
	"sync"

	"github.com/GriffinCanCode/webterminator/internal/client/taskbar"
)

// fakeRenderer uses a 10x20 pixel cell.
type fakeRenderer struct {
	mu         sync.Mutex
	id         string
	cols, rows int
	fits       [][2]int
	written    []byte
	focuses    int
	blurs      int
	disposed   bool
	selection  string
	cursorLine string
	onData     func([]byte)
	onResize   func(cols, rows int)
}

func (r *fakeRenderer) Write(p []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.written = append(r.written, p...)
}

func (r *fakeRenderer) OnData(fn func([]byte)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onData = fn
}

func (r *fakeRenderer) OnResize(fn func(cols, rows int)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onResize = fn
}

func (r *fakeRenderer) Fit(width, height int) {
	r.mu.Lock()
	r.fits = append(r.fits, [2]int{width, height})
	cols, rows := max(width/10, 1), max(height/20, 1)
	changed := cols != r.cols || rows != r.rows
	r.cols, r.rows = cols, rows
	fn := r.onResize
	r.mu.Unlock()

	if changed && fn != nil {
		fn(cols, rows)
	}
}

func (r *fakeRenderer) Size() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cols, r.rows
}

func (r *fakeRenderer) Focus() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.focuses++
}

func (r *fakeRenderer) Blur() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blurs++
}

// focusCounts returns how often the renderer was focused and blurred.
func (r *fakeRenderer) focusCounts() (focuses, blurs int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.focuses, r.blurs
}

func (r *fakeRenderer) Selection() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selection
}

func (r *fakeRenderer) Paste(text string) { r.Type(text) }

func (r *fakeRenderer) CursorLine() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cursorLine
}

func (r *fakeRenderer) Dispose() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disposed = true
}

// Type emits keystrokes as the user would.
func (r *fakeRenderer) Type(s string) {
	r.mu.Lock()
	fn := r.onData
	r.mu.Unlock()
	if fn != nil {
		fn([]byte(s))
	}
}

func (r *fakeRenderer) fitCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.fits)
}

func (r *fakeRenderer) lastFit() [2]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fits[len(r.fits)-1]
}

type fakeFactory struct {
	mu        sync.Mutex
	renderers map[string]*fakeRenderer
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{renderers: make(map[string]*fakeRenderer)}
}

func (f *fakeFactory) Create(opts RendererOptions) Renderer {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := &fakeRenderer{id: opts.ID}
	f.renderers[opts.ID] = r
	return r
}

func (f *fakeFactory) get(id string) *fakeRenderer {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.renderers[id]
}

type call struct {
	op         string
	id         string
	cols, rows int
	data       string
}

// fakeSessions records requests and tracks which sessions the server
// would consider live.
type fakeSessions struct {
	mu    sync.Mutex
	calls []call
	live  map[string]bool
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{live: make(map[string]bool)}
}

func (s *fakeSessions) CreateSession(id string, cols, rows int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call{op: "create", id: id, cols: cols, rows: rows})
	s.live[id] = true
}

func (s *fakeSessions) Input(id string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call{op: "input", id: id, data: string(data)})
}

func (s *fakeSessions) Resize(id string, cols, rows int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call{op: "resize", id: id, cols: cols, rows: rows})
}

func (s *fakeSessions) CloseSession(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call{op: "close", id: id})
	delete(s.live, id)
}

// exit simulates the server ending a session on its own.
func (s *fakeSessions) exit(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.live, id)
}

func (s *fakeSessions) liveIDs() map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]bool, len(s.live))
	for id := range s.live {
		out[id] = true
	}
	return out
}

func (s *fakeSessions) ops(op string) []call {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []call
	for _, c := range s.calls {
		if c.op == op {
			out = append(out, c)
		}
	}
	return out
}

type fixture struct {
	mgr       *Manager
	factory   *fakeFactory
	sessions  *fakeSessions
	scheduler *ManualScheduler
	bar       *taskbar.Model
}

func newFixture(opts ...Option) *fixture {
	f := &fixture{
		factory:   newFakeFactory(),
		sessions:  newFakeSessions(),
		scheduler: &ManualScheduler{},
		bar:       taskbar.NewModel(),
	}
	tb := taskbar.NewSync(f.bar)
	opts = append([]Option{WithScheduler(f.scheduler), WithTaskbar(tb)}, opts...)
	f.mgr = NewManager(f.factory, f.sessions, opts...)
	tb.Bind(f.mgr)
	return f
}

func (f *fixture) windowIDs() map[string]bool {
	out := make(map[string]bool)
	for _, w := range f.mgr.Windows() {
		out[w.ID] = true
	}
	return out
}
