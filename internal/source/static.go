package source

import (
	"context"
	"sync"
)

var _ Source = (*Static)(nil)
var _ Writer = (*Static)(nil)

// Static holds the target in memory and broadcasts changes to subscribers.
// Callbacks run while Static's lock is held; they must not call back into it.
type Static struct {
	mu    sync.Mutex
	value Value
	err   error
	subs  map[*subscription]struct{}
}

// NewStatic returns a Static seeded with v.
func NewStatic(v Value) *Static {
	return &Static{value: v, subs: make(map[*subscription]struct{})}
}

// Name implements Source.
func (s *Static) Name() string {
	return "static"
}

// Get returns the current value, or the injected failure.
func (s *Static) Get(context.Context) (Value, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return Value{}, s.err
	}
	return s.value, nil
}

// Set replaces the value and notifies subscribers.
func (s *Static) Set(_ context.Context, raw string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = ValueOf(raw)
	s.err = nil
	for sub := range s.subs {
		sub.change(s.value)
	}
	return nil
}

// Clear removes the value and notifies subscribers.
func (s *Static) Clear(ctx context.Context) error {
	return s.Set(ctx, "")
}

// Fail reports err to subscribers and makes Get return it until the next Set.
func (s *Static) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
	for sub := range s.subs {
		sub.fail(err)
	}
}

// Subscribers returns the number of live subscriptions.
func (s *Static) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Subscribe reports the current value synchronously, then every change.
func (s *Static) Subscribe(ctx context.Context, onChange func(Value), onError func(error)) (Subscription, error) {
	subCtx, cancel := context.WithCancel(ctx)
	sub := newSubscription(cancel, onChange, onError)
	sub.release = func() {
		s.mu.Lock()
		delete(s.subs, sub)
		s.mu.Unlock()
	}

	s.mu.Lock()
	s.subs[sub] = struct{}{}
	if s.err != nil {
		sub.fail(s.err)
	} else {
		sub.change(s.value)
	}
	s.mu.Unlock()

	go func() {
		<-subCtx.Done()
		sub.Unsubscribe()
	}()
	return sub, nil
}
