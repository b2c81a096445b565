// Package watch binds a target source to a countdown ticker for one
// subscriber: every new value restarts the ticker, every feed failure is
// shown as an error, and Close tears both down together.
package watch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/five82/countdown/internal/countdown"
	"github.com/five82/countdown/internal/logging"
	"github.com/five82/countdown/internal/source"
)

// Option configures a Watcher.
type Option func(*Watcher)

// WithLocation sets the zone target strings are parsed in. default: time.Local
func WithLocation(loc *time.Location) Option {
	return func(w *Watcher) {
		if loc != nil {
			w.loc = loc
		}
	}
}

// WithTickerOptions passes options to every ticker the watcher starts.
func WithTickerOptions(opts ...countdown.Option) Option {
	return func(w *Watcher) {
		w.tickerOpts = append(w.tickerOpts, opts...)
	}
}

// WithLogger sets the logger. default: discard
func WithLogger(logger *log.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// Watcher keeps at most one ticker running for its subscriber.
type Watcher struct {
	onUpdate   func(countdown.Display)
	loc        *time.Location
	tickerOpts []countdown.Option
	logger     *log.Logger

	mu     sync.Mutex
	ticker *countdown.Ticker
	closed bool

	sub       source.Subscription
	closeOnce sync.Once
}

// Start subscribes to src and reports every display to onUpdate until Close.
func Start(ctx context.Context, src source.Source, onUpdate func(countdown.Display), opts ...Option) (*Watcher, error) {
	if src == nil {
		return nil, errors.New("watch requires a source")
	}
	if onUpdate == nil {
		onUpdate = func(countdown.Display) {}
	}
	w := &Watcher{
		onUpdate: onUpdate,
		loc:      time.Local,
		logger:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(w)
	}

	sub, err := src.Subscribe(ctx, w.handleChange, w.handleError)
	if err != nil {
		w.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", src.Name(), err)
	}
	w.mu.Lock()
	w.sub = sub
	closed := w.closed
	w.mu.Unlock()
	if closed {
		sub.Unsubscribe()
	}
	return w, nil
}

// Close releases the subscription and cancels the running ticker. After it
// returns onUpdate is not called again. Calling Close more than once is safe.
func (w *Watcher) Close() {
	w.closeOnce.Do(func() {
		w.mu.Lock()
		w.closed = true
		ticker := w.ticker
		w.ticker = nil
		sub := w.sub
		w.mu.Unlock()

		ticker.Cancel()
		if sub != nil {
			sub.Unsubscribe()
		}
	})
}

func (w *Watcher) handleChange(v source.Value) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}

	// The previous ticker must be fully stopped before the next one emits.
	w.stopTicker()

	target, err := countdown.ParseTarget(v.Raw, w.loc)
	if err != nil {
		w.logger.Warn("ignoring malformed target", "raw", v.Raw, "err", err)
		w.onUpdate(countdown.InvalidDisplay())
		return
	}
	if !v.Present {
		target = countdown.NoTarget()
	}
	w.logger.Debug("target changed", "target", target.String(), "set", target.IsSet())
	w.ticker = countdown.Start(target, w.onUpdate, w.tickerOpts...)
}

func (w *Watcher) handleError(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.stopTicker()
	w.logger.Error("target feed failed", "err", err)
	w.onUpdate(countdown.ErrorDisplay(err.Error()))
}

func (w *Watcher) stopTicker() {
	if w.ticker != nil {
		w.ticker.Cancel()
		w.ticker = nil
	}
}
