// Package countdown computes the remaining-time display for a single target
// date and drives its once-per-second refresh.
//
// # Overview
//
// The package has two halves. The formatter is pure: it maps a target (or
// its absence) and a "now" reading to a Display. The Ticker owns time: it
// asks the formatter for a fresh Display once per interval and hands each
// one to a subscriber until there is nothing left to count.
//
// Nothing here knows where the target comes from. The watch package feeds it
// values read from a source, and the ui and tile packages render the
// Displays it produces.
//
// # Package Structure
//
//   - format.go: Target, ParseTarget, Decompose, Evaluate, Format, and the
//     Display and Kind types
//   - ticker.go: Ticker, Start, its options, and the State lifecycle
//
// # Targets
//
// A target is written as "yyyy-MM-dd HH:mm" (Layout) and read as wall-clock
// time in the location passed to ParseTarget. Seconds are not part of the
// layout, so a target always falls on a minute boundary.
//
//   - A blank or whitespace-only string is NoTarget, not an error.
//   - Anything else that does not match Layout wraps ErrInvalidTargetFormat.
//     Callers show it as "Invalid date" (InvalidDisplay) rather than folding
//     it into "No timer set".
//
// # Display Rules
//
// Evaluate picks exactly one of these, in order:
//
//	target absent              -> "No timer set"         KindNoTimer
//	target - now < 0           -> "Countdown finished!"  KindFinished
//	otherwise                  -> "<d>d <h>h <m>m <s>s"  KindRunning
//
// The running form truncates toward zero at every unit. Hours are 0-23,
// minutes and seconds 0-59, and days are unbounded. The instant the target
// is reached still reads "0d 0h 0m 0s"; the next reading is finished.
//
// Two more kinds are produced outside Evaluate: KindInvalid for a target
// that did not parse and KindError ("Error: <msg>") for a source failure.
// Only KindRunning is non-terminal (Display.Terminal).
//
// # Ticker Lifecycle
//
//	           Start
//	             |
//	             v
//	   idle -> running --(terminal display)--> finished
//	             |
//	             +-------(Cancel)------------> cancelled
//
// Start emits the first Display synchronously, so the subscriber has
// something to show before Start returns. When that display is terminal no
// goroutine is started and Done is already closed. Otherwise a goroutine
// waits one interval on the configured clock, re-reads "now" and emits
// again. Each tick uses a fresh reading rather than subtracting a second, so
// a stalled process catches up on its next tick instead of drifting.
//
// # Invariants
//
//   - At most one emission runs at a time; emissions are serialised by the
//     ticker's mutex.
//   - Cancel takes the same mutex and then waits for the goroutine to exit.
//     Once it returns, onUpdate is never called again.
//   - Cancel is safe from any state and more than once. It must not be
//     called from inside onUpdate on the same ticker.
//   - A finished ticker stays finished; Cancel does not move it to
//     cancelled.
//
// # Testing
//
// WithClock accepts any clockwork.Clock. Tests pass a fake clock, wait for
// the ticker's timer with BlockUntilContext and Advance it one interval at a
// time, so no test sleeps on the wall clock.
//
// # External Dependencies
//
//   - clockwork: the Clock behind every "now" reading and timer
//
// Callers in this module:
//
//   - watch: restarts a Ticker whenever the source reports a new value
//   - tile: calls Evaluate once for the status-bar payload
//   - ui: renders Displays and picks styles by Kind
//
// # Usage Example
//
//	target, err := countdown.ParseTarget("2030-01-01 00:00", time.Local)
//	if err != nil {
//		return err
//	}
//	t := countdown.Start(target, func(d countdown.Display) {
//		fmt.Println(d.Text)
//	})
//	defer t.Cancel()
//	<-t.Done()
package countdown
