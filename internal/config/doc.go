// Package config loads countdown's TOML configuration.
//
// # Configuration Discovery
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/countdown/config.toml
//  3. If the file doesn't exist, fall back to Default()
//  4. If the file exists but fields are missing or blank, use defaults
//
// # TOML Format
//
//	timezone = "Europe/Berlin"   # target strings are wall-clock in this zone
//	poll_seconds = 1
//
//	[source]
//	kind = "firebase"            # firebase | redis | static
//
//	[firebase]
//	url = "https://example-default-rtdb.firebaseio.com"
//	path = "selectedDate"
//	auth = ""
//
//	[redis]
//	addr = "127.0.0.1:6379"
//	key = "selectedDate"
//	channel = "countdown:selectedDate"
//
//	[static]
//	target = "2030-01-01 00:00"
//
//	[log]
//	file = "~/.local/state/countdown/countdown.log"
//	level = "info"
//
// Tilde expansion is performed for the log file. Missing config files are
// not an error; an unknown source kind or timezone is.
package config
