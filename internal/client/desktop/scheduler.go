package desktop

import (
	"sync"
	"time"
)

// FrameInterval is the delay before a scheduled re-fit runs.
const FrameInterval = 16 * time.Millisecond

// Scheduler defers work until layout has settled.
type Scheduler interface {
	Schedule(fn func())
}

// FrameScheduler runs each function once after Delay.
type FrameScheduler struct {
	Delay time.Duration
}

// NewFrameScheduler returns a scheduler with a one-frame delay.
func NewFrameScheduler() *FrameScheduler {
	return &FrameScheduler{Delay: FrameInterval}
}

// Schedule runs fn on its own goroutine after the delay.
func (s *FrameScheduler) Schedule(fn func()) {
	time.AfterFunc(s.Delay, fn)
}

// ManualScheduler queues work until Flush is called.
type ManualScheduler struct {
	mu    sync.Mutex
	queue []func()
}

// Schedule queues fn.
func (s *ManualScheduler) Schedule(fn func()) {
	s.mu.Lock()
	s.queue = append(s.queue, fn)
	s.mu.Unlock()
}

// Pending returns the number of queued functions.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Flush runs everything queued so far, including work queued while
// flushing, and returns how many functions ran.
func (s *ManualScheduler) Flush() int {
	ran := 0
	for {
		s.mu.Lock()
		queue := s.queue
		s.queue = nil
		s.mu.Unlock()

		if len(queue) == 0 {
			return ran
		}
		for _, fn := range queue {
			fn()
			ran++
		}
	}
}
