// Package tile evaluates the countdown once for a host that re-invokes it
// on its own schedule, such as a status-bar module.
package tile

import (
	"context"
	"encoding/json"
	"time"

	"github.com/five82/countdown/internal/countdown"
	"github.com/five82/countdown/internal/source"
)

// Freshness is how soon a host should ask for the tile again.
const Freshness = 1000 * time.Millisecond

// Tile is one point-in-time rendering.
type Tile struct {
	Display   countdown.Display
	Target    countdown.Target
	Freshness time.Duration
}

// Evaluate reads the target once and computes the display at now.
func Evaluate(ctx context.Context, src source.Source, now time.Time, loc *time.Location) Tile {
	t := Tile{Freshness: Freshness}

	value, err := src.Get(ctx)
	if err != nil {
		t.Display = countdown.ErrorDisplay(err.Error())
		return t
	}
	target, err := countdown.ParseTarget(value.Raw, loc)
	if err != nil {
		t.Display = countdown.InvalidDisplay()
		return t
	}
	t.Target = target
	t.Display = countdown.Evaluate(target, now)
	return t
}

type payload struct {
	Text        string `json:"text"`
	Tooltip     string `json:"tooltip"`
	Class       string `json:"class"`
	FreshnessMS int64  `json:"freshness_ms"`
}

// JSON renders the tile as a status-bar module payload.
func (t Tile) JSON() ([]byte, error) {
	tooltip := "No timer set"
	if t.Target.IsSet() {
		tooltip = "Counting down to " + t.Target.String()
	}
	if t.Display.Kind == countdown.KindError || t.Display.Kind == countdown.KindInvalid {
		tooltip = t.Display.Text
	}
	return json.Marshal(payload{
		Text:        t.Display.Text,
		Tooltip:     tooltip,
		Class:       t.Display.Kind.String(),
		FreshnessMS: t.Freshness.Milliseconds(),
	})
}
