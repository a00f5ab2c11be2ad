package resilience

import (
	"errors"
	"sync"
	"time"
)

var (
	ErrCircuitOpen     = errors.New("circuit breaker is open")
	ErrTooManyRequests = errors.New("too many requests")
)

// State represents the circuit breaker state
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Settings configures the circuit breaker behavior
type Settings struct {
	// MaxFailures consecutive failures open the breaker
	MaxFailures uint32
	// Interval clears failure counts while closed; zero keeps them forever
	Interval time.Duration
	// Timeout is how long the breaker stays open before probing
	Timeout time.Duration
	// OnStateChange is called (without the lock held) on every transition
	OnStateChange func(name string, from State, to State)
	// Now overrides the clock, for tests
	Now func() time.Time
}

// Counts holds the statistics for the current window
type Counts struct {
	Requests            uint32
	Successes           uint32
	Failures            uint32
	ConsecutiveFailures uint32
}

// Breaker implements the circuit breaker pattern
type Breaker struct {
	name     string
	settings Settings

	mu       sync.Mutex
	state    State
	counts   Counts
	expiry   time.Time
	probing  bool
	disabled bool
}

// New creates a new circuit breaker with the given settings
func New(name string, settings Settings) *Breaker {
	if settings.MaxFailures == 0 {
		settings.MaxFailures = 5
	}
	if settings.Timeout == 0 {
		settings.Timeout = 30 * time.Second
	}
	if settings.Now == nil {
		settings.Now = time.Now
	}

	b := &Breaker{
		name:     name,
		settings: settings,
		state:    StateClosed,
	}
	if settings.Interval > 0 {
		b.expiry = settings.Now().Add(settings.Interval)
	}
	return b
}

// Disabled returns a breaker that never opens
func Disabled(name string) *Breaker {
	b := New(name, Settings{})
	b.disabled = true
	return b
}

// Name returns the name of the circuit breaker
func (b *Breaker) Name() string {
	return b.name
}

// State returns the current state of the circuit breaker
func (b *Breaker) State() State {
	b.mu.Lock()
	state, notify := b.refresh(b.settings.Now())
	b.mu.Unlock()

	notify()
	return state
}

// Counts returns a copy of the internal counts
func (b *Breaker) Counts() Counts {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.counts
}

// Do runs fn if the breaker admits it and records the outcome
func (b *Breaker) Do(fn func() error) error {
	if err := b.admit(); err != nil {
		return err
	}

	succeeded := false
	defer func() {
		if !succeeded {
			if r := recover(); r != nil {
				b.record(false)
				panic(r)
			}
		}
	}()

	err := fn()
	succeeded = true
	b.record(err == nil)
	return err
}

// Call runs fn through b and returns its result
func Call[T any](b *Breaker, fn func() (T, error)) (T, error) {
	var out T
	err := b.Do(func() error {
		var err error
		out, err = fn()
		return err
	})
	return out, err
}

// IsRejection reports whether err came from the breaker rather than the call
func IsRejection(err error) bool {
	return errors.Is(err, ErrCircuitOpen) || errors.Is(err, ErrTooManyRequests)
}

func (b *Breaker) admit() error {
	if b.disabled {
		return nil
	}

	b.mu.Lock()
	state, notify := b.refresh(b.settings.Now())

	var err error
	switch {
	case state == StateOpen:
		err = ErrCircuitOpen
	case state == StateHalfOpen && b.probing:
		err = ErrTooManyRequests
	default:
		if state == StateHalfOpen {
			b.probing = true
		}
		b.counts.Requests++
	}
	b.mu.Unlock()

	notify()
	return err
}

func (b *Breaker) record(success bool) {
	if b.disabled {
		return
	}

	b.mu.Lock()
	now := b.settings.Now()
	state, notify := b.refresh(now)

	var transition func()
	if success {
		b.counts.Successes++
		b.counts.ConsecutiveFailures = 0
		if state == StateHalfOpen {
			transition = b.transition(StateClosed, now)
		}
	} else {
		b.counts.Failures++
		b.counts.ConsecutiveFailures++
		switch state {
		case StateHalfOpen:
			transition = b.transition(StateOpen, now)
		case StateClosed:
			if b.counts.ConsecutiveFailures >= b.settings.MaxFailures {
				transition = b.transition(StateOpen, now)
			}
		}
	}
	b.mu.Unlock()

	notify()
	if transition != nil {
		transition()
	}
}

// refresh applies time-based transitions; the returned func fires callbacks
// and must be called after the lock is released.
func (b *Breaker) refresh(now time.Time) (State, func()) {
	switch b.state {
	case StateClosed:
		if !b.expiry.IsZero() && now.After(b.expiry) {
			b.counts = Counts{}
			b.expiry = now.Add(b.settings.Interval)
		}
	case StateOpen:
		if now.After(b.expiry) {
			return StateHalfOpen, b.transition(StateHalfOpen, now)
		}
	}
	return b.state, func() {}
}

func (b *Breaker) transition(to State, now time.Time) func() {
	from := b.state
	if from == to {
		return func() {}
	}

	b.state = to
	b.counts = Counts{}
	b.probing = false

	switch to {
	case StateClosed:
		b.expiry = time.Time{}
		if b.settings.Interval > 0 {
			b.expiry = now.Add(b.settings.Interval)
		}
	case StateOpen:
		b.expiry = now.Add(b.settings.Timeout)
	case StateHalfOpen:
		b.expiry = time.Time{}
	}

	cb := b.settings.OnStateChange
	name := b.name
	return func() {
		if cb != nil {
			cb(name, from, to)
		}
	}
}
