package source

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/five82/countdown/internal/config"
)

var (
	// ErrReadOnly is returned when writing through a source that cannot write.
	ErrReadOnly = errors.New("source is read-only")
	// ErrUnexpectedValue is returned when the stored value is not a string.
	ErrUnexpectedValue = errors.New("unexpected value type")
)

// Value is the raw target string as stored, or its absence.
type Value struct {
	Raw     string
	Present bool
}

// Absent is the value of an unset key.
func Absent() Value {
	return Value{}
}

// ValueOf normalises a stored string; blank strings count as absent.
func ValueOf(raw string) Value {
	if strings.TrimSpace(raw) == "" {
		return Absent()
	}
	return Value{Raw: raw, Present: true}
}

// Source supplies the target date and notifies on change or failure.
type Source interface {
	// Subscribe delivers the current value and every later change to
	// onChange, and feed failures to onError, until the subscription is
	// released or ctx ends. Callbacks are never invoked concurrently.
	Subscribe(ctx context.Context, onChange func(Value), onError func(error)) (Subscription, error)
	// Get reads the current value once.
	Get(ctx context.Context) (Value, error)
	// Name identifies the backend for display.
	Name() string
}

// Writer stores a new target.
type Writer interface {
	Set(ctx context.Context, raw string) error
	Clear(ctx context.Context) error
}

// Subscription is the handle returned by Subscribe.
type Subscription interface {
	// Unsubscribe releases the feed. Only the first call has effect; once it
	// returns no callback is running and none will start.
	Unsubscribe()
}

// New builds the source selected by cfg.
func New(cfg config.Config) (Source, error) {
	switch cfg.Source.Kind {
	case config.SourceFirebase:
		return NewFirebase(cfg.Firebase.URL, cfg.Firebase.Path, cfg.Firebase.Auth, cfg.PollInterval())
	case config.SourceRedis:
		return NewRedis(RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Key:      cfg.Redis.Key,
			Channel:  cfg.Redis.Channel,
		})
	case config.SourceStatic:
		return NewStatic(ValueOf(cfg.Static.Target)), nil
	default:
		return nil, fmt.Errorf("unknown source kind %q", cfg.Source.Kind)
	}
}

// Close releases any connections held by src.
func Close(src Source) error {
	if c, ok := src.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

// subscription serialises callbacks and guarantees none run after release.
type subscription struct {
	mu       sync.Mutex
	closed   bool
	onChange func(Value)
	onError  func(error)
	cancel   context.CancelFunc
	release  func()
	once     sync.Once
}

func newSubscription(cancel context.CancelFunc, onChange func(Value), onError func(error)) *subscription {
	if onChange == nil {
		onChange = func(Value) {}
	}
	if onError == nil {
		onError = func(error) {}
	}
	return &subscription{
		onChange: onChange,
		onError:  onError,
		cancel:   cancel,
	}
}

func (s *subscription) change(v Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.onChange(v)
}

func (s *subscription) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.onError(err)
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		if s.cancel != nil {
			s.cancel()
		}
		if s.release != nil {
			s.release()
		}
	})
}
