package countdown

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Layout is the textual form of a target: yyyy-MM-dd HH:mm, local wall-clock.
const Layout = "2006-01-02 15:04"

// Display strings.
const (
	TextNoTimer  = "No timer set"
	TextFinished = "Countdown finished!"
	TextInvalid  = "Invalid date"
	errorPrefix  = "Error: "
)

// ErrInvalidTargetFormat is returned when a target string does not match Layout.
var ErrInvalidTargetFormat = errors.New("invalid target format")

// Target is an optional absolute point in time.
type Target struct {
	at  time.Time
	set bool
}

// NoTarget returns the absent target.
func NoTarget() Target {
	return Target{}
}

// TargetAt returns a target set to t.
func TargetAt(t time.Time) Target {
	return Target{at: t, set: true}
}

// Time returns the target time and whether it is set.
func (t Target) Time() (time.Time, bool) {
	return t.at, t.set
}

// IsSet reports whether a target is present.
func (t Target) IsSet() bool {
	return t.set
}

// String renders the target in Layout, or an empty string when absent.
func (t Target) String() string {
	if !t.set {
		return ""
	}
	return t.at.Format(Layout)
}

// ParseTarget parses raw in Layout as wall-clock time in loc. A blank raw
// value is the absent target; anything else that fails to parse is an
// ErrInvalidTargetFormat.
func ParseTarget(raw string, loc *time.Location) (Target, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return NoTarget(), nil
	}
	if loc == nil {
		loc = time.Local
	}
	at, err := time.ParseInLocation(Layout, trimmed, loc)
	if err != nil {
		return NoTarget(), fmt.Errorf("%w: %q", ErrInvalidTargetFormat, raw)
	}
	return TargetAt(at), nil
}

// Remaining is a duration broken into whole days, hours within the day,
// minutes within the hour and seconds within the minute.
type Remaining struct {
	Days    int64
	Hours   int64
	Minutes int64
	Seconds int64
}

// Decompose splits d into a Remaining, truncating toward zero.
func Decompose(d time.Duration) Remaining {
	return Remaining{
		Days:    int64(d / (24 * time.Hour)),
		Hours:   int64(d/time.Hour) % 24,
		Minutes: int64(d/time.Minute) % 60,
		Seconds: int64(d/time.Second) % 60,
	}
}

func (r Remaining) String() string {
	return fmt.Sprintf("%dd %dh %dm %ds", r.Days, r.Hours, r.Minutes, r.Seconds)
}

// Kind classifies a Display.
type Kind int

const (
	KindNoTimer Kind = iota
	KindRunning
	KindFinished
	KindInvalid
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindNoTimer:
		return "no-timer"
	case KindRunning:
		return "running"
	case KindFinished:
		return "finished"
	case KindInvalid:
		return "invalid"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// Display is a rendered countdown line together with its kind.
type Display struct {
	Kind Kind
	Text string
}

func (d Display) String() string {
	return d.Text
}

// Terminal reports whether no further ticks follow this display.
func (d Display) Terminal() bool {
	return d.Kind != KindRunning
}

// Evaluate computes the display for target at now.
func Evaluate(target Target, now time.Time) Display {
	at, ok := target.Time()
	if !ok {
		return Display{Kind: KindNoTimer, Text: TextNoTimer}
	}
	remaining := at.Sub(now)
	if remaining < 0 {
		return Display{Kind: KindFinished, Text: TextFinished}
	}
	return Display{Kind: KindRunning, Text: Decompose(remaining).String()}
}

// Format returns the display string for target at now.
func Format(target Target, now time.Time) string {
	return Evaluate(target, now).Text
}

// ErrorDisplay renders a source failure.
func ErrorDisplay(msg string) Display {
	return Display{Kind: KindError, Text: errorPrefix + msg}
}

// InvalidDisplay renders a target that could not be parsed.
func InvalidDisplay() Display {
	return Display{Kind: KindInvalid, Text: TextInvalid}
}
