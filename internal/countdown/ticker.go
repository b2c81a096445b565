package countdown

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultInterval is the pause between two emissions of a running ticker.
const DefaultInterval = time.Second

// State is the lifecycle position of a Ticker.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateFinished
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateFinished:
		return "finished"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Option configures a Ticker.
type Option func(*options)

type options struct {
	clock    clockwork.Clock
	interval time.Duration
}

// WithClock sets the clock used for "now" and for the wait between ticks.
// default: real clock
func WithClock(c clockwork.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithInterval sets the wait between ticks.
// default: 1 second
func WithInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.interval = d
		}
	}
}

// Ticker re-evaluates a target once per interval and reports each display
// until the countdown finishes or the ticker is cancelled.
type Ticker struct {
	target   Target
	onUpdate func(Display)
	clock    clockwork.Clock
	interval time.Duration

	// mu is held for every emission; Cancel takes it too, so once Cancel
	// returns no emission is running and none will start.
	mu    sync.Mutex
	state State

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// Start emits the current display for target synchronously and, when the
// countdown is still running, keeps emitting once per interval from a
// background goroutine. The returned Ticker is the cancellation handle.
//
// onUpdate must not call Cancel on the ticker that invoked it.
func Start(target Target, onUpdate func(Display), opts ...Option) *Ticker {
	o := options{clock: clockwork.NewRealClock(), interval: DefaultInterval}
	for _, opt := range opts {
		opt(&o)
	}
	if onUpdate == nil {
		onUpdate = func(Display) {}
	}

	t := &Ticker{
		target:   target,
		onUpdate: onUpdate,
		clock:    o.clock,
		interval: o.interval,
		state:    StateIdle,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}

	t.mu.Lock()
	t.state = StateRunning
	t.mu.Unlock()

	if !t.emit() {
		close(t.done)
		return t
	}
	go t.run()
	return t
}

// Cancel stops the ticker and waits for its goroutine to exit. It is safe to
// call from any state and more than once; after it returns onUpdate is never
// called again.
func (t *Ticker) Cancel() {
	if t == nil {
		return
	}
	t.stopOnce.Do(func() { close(t.stop) })

	t.mu.Lock()
	if t.state == StateIdle || t.state == StateRunning {
		t.state = StateCancelled
	}
	t.mu.Unlock()
	<-t.done
}

// State returns the current lifecycle state.
func (t *Ticker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Done is closed once the ticker will not emit again.
func (t *Ticker) Done() <-chan struct{} {
	return t.done
}

func (t *Ticker) run() {
	defer close(t.done)
	for {
		timer := t.clock.NewTimer(t.interval)
		select {
		case <-t.stop:
			timer.Stop()
			return
		case <-timer.Chan():
		}
		if !t.emit() {
			return
		}
	}
}

// emit evaluates against a fresh "now" and reports the result. It returns
// false when no further ticks should be scheduled.
func (t *Ticker) emit() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != StateRunning {
		return false
	}
	display := Evaluate(t.target, t.clock.Now())
	t.onUpdate(display)
	if display.Terminal() {
		t.state = StateFinished
		return false
	}
	return true
}
