// Package state shares the latest countdown display between the watcher
// and the UI.
//
// # Architecture
//
//	Producer (watcher/ticker):      Consumer (UI):
//	┌──────────────────┐            ┌──────────────────┐
//	│ ticker emits     │            │ <-store.Changed()│
//	│      ↓           │            │      ↓           │
//	│ store.Update()   │───────────→│ store.Snapshot() │
//	│      ↓           │  (mutex)   │      ↓           │
//	│  next second...  │            │  render view     │
//	└──────────────────┘            └──────────────────┘
//
// The Store mediates between the ticker goroutine and the Bubble Tea event
// loop:
//   - Update/Record take the write lock; Snapshot takes the read lock
//   - Snapshots are returned by value, with the error cloned
//   - Changed() is a one-slot channel, so bursts of updates coalesce into a
//     single redraw and the producer never blocks on a slow UI
//
// # Update Semantics
//
//	store.Update(display)               // running, finished, no timer, invalid
//	→ snapshot.Display = display
//	→ snapshot.LastError = nil
//	→ snapshot.ConsecutiveFailures = 0
//
//	store.Update(countdown.ErrorDisplay(msg))
//	→ snapshot.Display = display
//	→ snapshot.LastError = msg
//	→ snapshot.ConsecutiveFailures++
//
// Snapshot.IsOffline reports two or more failures in a row, which the
// footer shows as an offline badge.
//
// # Testing Considerations
//
// The zero Store is ready to use:
//
//	store := &state.Store{}
package state
