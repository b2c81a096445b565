package state

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/five82/countdown/internal/countdown"
)

// Snapshot represents the latest countdown display available to the UI.
type Snapshot struct {
	Display             countdown.Display
	HasDisplay          bool
	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int // Number of consecutive feed failures
	Updates             int
}

// IsOffline returns true when the feed has failed more than once in a row.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// Store coordinates concurrent updates to the snapshot.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
	changed  chan struct{}
	once     sync.Once
}

func (s *Store) init() {
	s.once.Do(func() { s.changed = make(chan struct{}, 1) })
}

// Update records display. A display of kind error also counts as a feed
// failure; anything else resets the failure count.
func (s *Store) Update(display countdown.Display) {
	var err error
	if display.Kind == countdown.KindError {
		err = errors.New(display.Text)
	}
	s.Record(display, err)
}

// Record stores display and, when err is non-nil, the failure behind it.
func (s *Store) Record(display countdown.Display, err error) {
	s.init()
	s.mu.Lock()
	s.snapshot.Display = display
	s.snapshot.HasDisplay = true
	s.snapshot.LastUpdated = time.Now()
	s.snapshot.Updates++
	if err != nil {
		s.snapshot.LastError = err
		s.snapshot.ConsecutiveFailures++
	} else {
		s.snapshot.LastError = nil
		s.snapshot.ConsecutiveFailures = 0
	}
	s.mu.Unlock()

	select {
	case s.changed <- struct{}{}:
	default:
	}
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}

// Changed receives a value after one or more updates since the last receive.
func (s *Store) Changed() <-chan struct{} {
	s.init()
	return s.changed
}
