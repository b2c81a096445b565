// Package logtail reads the countdown log file for the logs command.
//
// Read returns the last N lines of a file in one sequential pass using a
// ring buffer, so memory stays proportional to N rather than to the file
// size. Lines come back in chronological order and a missing file yields
// no lines instead of an error, since the view may never have run.
//
// FilterLevel narrows a tail to a minimum severity. It understands the
// logfmt lines written by internal/logging:
//
//	time=2030-01-01T00:00:00Z level=warn prefix=countdown msg="unparseable target" value="soon"
//
// Example:
//
//	lines, err := logtail.Read(path, 200)
//	if err != nil {
//	    return err
//	}
//	for _, line := range logtail.FilterLevel(lines, log.WarnLevel) {
//	    fmt.Println(line)
//	}
package logtail
