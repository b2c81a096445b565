// Package ui renders the countdown as a full-screen Bubble Tea view.
//
// The view is read-only. A watch.Watcher feeds displays into a
// state.Store and the model redraws whenever the store signals a change.
// A one-second tick re-reads the snapshot as a fallback and notices a
// cancelled context.
//
// # Layout
//
//	            Countdown
//
//	          1d 2h 0m 0s
//
//	 source firebase  ·  updated 21:59:59  ·  OFFLINE
//	 q quit • ? toggle help
//
// The display colour follows its kind: running and finished are bold,
// invalid uses the warning colour and errors the danger colour. The
// OFFLINE badge appears after two consecutive source failures.
//
// # Keys
//
//   - q, ctrl+c: quit
//   - T: cycle theme (Nightfox, Kanagawa, Slate), saved to prefs
//   - ?: toggle full help
//
// RenderTile draws the same title and display in a rounded box for the
// one-shot tile command.
package ui
