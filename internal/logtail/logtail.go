package logtail

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// Read returns at most maxLines from the end of the file at path. A
// non-positive maxLines returns every line. A missing file is not an error.
func Read(path string, maxLines int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if maxLines <= 0 {
		var lines []string
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read log: %w", err)
		}
		return lines, nil
	}

	ring := make([]string, maxLines)
	count, idx := 0, 0
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % maxLines
		if count < maxLines {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	lines := make([]string, count)
	if count == maxLines {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%maxLines]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, nil
}

// LineLevel extracts the level of a logfmt line written by the countdown
// logger. ok is false when the line carries no recognisable level.
func LineLevel(line string) (level log.Level, ok bool) {
	for _, field := range strings.Fields(line) {
		value, found := strings.CutPrefix(field, "level=")
		if !found {
			continue
		}
		lvl, err := log.ParseLevel(strings.ToLower(strings.Trim(value, `"`)))
		if err != nil {
			return 0, false
		}
		return lvl, true
	}
	return 0, false
}

// FilterLevel keeps lines at or above minLevel. Lines without a level, such as
// continuation output, follow the decision made for the line before them.
func FilterLevel(lines []string, minLevel log.Level) []string {
	out := make([]string, 0, len(lines))
	keep := true
	for _, line := range lines {
		if lvl, ok := LineLevel(line); ok {
			keep = lvl >= minLevel
		}
		if keep {
			out = append(out, line)
		}
	}
	return out
}
