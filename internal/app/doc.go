// Package app is the composition root of countdown.
//
// # Overview
//
// It wires configuration, logging, the target source, the watcher, the
// snapshot store and the UI together. Each exported function backs one
// command of cmd/countdown.
//
// # Run
//
//	┌──────────────┐
//	│   Run()      │
//	└──────┬───────┘
//	       │
//	       ├─────> config.Load()      Read ~/.config/countdown/config.toml
//	       ├─────> logging.OpenFile() Log to ~/.local/state/countdown/countdown.log
//	       ├─────> source.New()       Firebase, Redis or static
//	       ├─────> state.Store{}      Latest display for the view
//	       ├─────> watch.Start()      Subscribe and tick into store.Update
//	       └─────> ui.Run()           Full-screen view (blocks)
//
// On exit the watcher is closed first, so no display is produced after
// the view is gone, and then the source is released.
//
// # One-shot commands
//
//   - Tile: one Get, one evaluation, printed as JSON or a rendered box
//   - Set: validates the target before writing it through source.Writer
//   - Clear: removes the target
//   - Logs: tails the log file, optionally filtered by level
//
// One-shot commands log to stderr and bound their source calls with a
// timeout.
package app
