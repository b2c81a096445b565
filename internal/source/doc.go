// Package source supplies the countdown's target date from a remote
// key-value store and notifies on change or failure.
//
// # Overview
//
// A Source holds one string value: the target in countdown.Layout, or
// nothing. Get reads it once; Subscribe reports the current value and
// every later change until the subscription is released. Every backend also
// implements Writer, which backs the set and clear commands.
//
// Values are normalised by ValueOf: a blank string and a missing key are
// both Absent. Parsing the string into a target is left to the caller, so a
// malformed value still arrives as a change.
//
// # Backends
//
//	kind      storage                     change detection
//	--------  --------------------------  ------------------------------
//	firebase  Realtime Database REST node  poll and compare
//	redis     key plus pub/sub channel     PUBLISH on every write
//	static    in-memory value              direct notification
//
// New builds the backend named by config.Source.Kind. Close releases any
// backend that holds connections.
//
// # Package Structure
//
//   - source.go: Source, Writer, Subscription, Value, New and the shared
//     subscription handle
//   - firebase.go: REST client, poll loop and backoff
//   - redis.go: go-redis client, pub/sub listener and resync
//   - static.go: in-memory backend used for offline runs and tests
//
// # Firebase Data Flow
//
//	poll loop
//	   |
//	   v
//	GET <base>/<path>.json ---- error ----> onError, failures++
//	   |                                        |
//	   v                                        |
//	value != last, first read,                  |
//	or first success after failure?             |
//	   |  yes -> onChange                       |
//	   v                                        v
//	wait interval << failures (capped at 30s) on the clock
//
// The poll never reports the same value twice in a row unless a failure
// came in between. Waits run on a clockwork.Clock (WithClock), so the
// backoff schedule can be driven by a fake clock.
//
// # Redis Data Flow
//
//	Subscribe
//	   |-- SUBSCRIBE channel --- error ---> onError, resync pending
//	   |-- GET key ------------- error ---> onError, re-read pending
//	   |-- onChange(current value)
//	   v
//	receive loop
//	   |-- message ------------------------> onChange(payload)
//	   |-- error --------------------------> onError, resync, wait RetryDelay
//	   |-- subscription confirmed + resync -> GET key, onChange
//
// Writers SET the key and PUBLISH the same payload in one pipeline. A
// publish sent while a subscriber is disconnected is lost, which is why the
// first confirmed resubscription after a failure re-reads the key.
//
// # Error Model
//
// An unreachable backend is a feed failure, not a Subscribe failure.
// Subscribe returns an error only when it cannot start at all; otherwise
// connection problems arrive through onError and the subscription keeps
// retrying. Callers show the latest failure and replace it with the next
// good value.
//
// # Subscription Invariants
//
//   - Callbacks are serialised; onChange and onError never run concurrently.
//   - Unsubscribe is idempotent. Once it returns no callback is running and
//     none will start.
//   - Callbacks must not call Unsubscribe on their own subscription.
//   - Cancelling the ctx passed to Subscribe stops the backend's loop, but
//     only Unsubscribe releases its connection.
//
// # Usage Example
//
//	src, err := source.New(cfg)
//	if err != nil {
//		return err
//	}
//	defer source.Close(src)
//
//	sub, err := src.Subscribe(ctx,
//		func(v source.Value) { logger.Info("target", "raw", v.Raw) },
//		func(err error) { logger.Warn("feed", "err", err) },
//	)
//	if err != nil {
//		return err
//	}
//	defer sub.Unsubscribe()
package source
