package watch

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jonboulle/clockwork"

	"github.com/five82/countdown/internal/countdown"
	"github.com/five82/countdown/internal/source"
)

type recorder struct {
	mu       sync.Mutex
	displays []countdown.Display
	ch       chan countdown.Display
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan countdown.Display, 64)}
}

func (r *recorder) update(d countdown.Display) {
	r.mu.Lock()
	r.displays = append(r.displays, d)
	r.mu.Unlock()
	r.ch <- d
}

func (r *recorder) texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.displays))
	for i, d := range r.displays {
		out[i] = d.Text
	}
	return out
}

func (r *recorder) next(t *testing.T) countdown.Display {
	t.Helper()
	select {
	case d := <-r.ch:
		return d
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for display; got so far %q", r.texts())
		return countdown.Display{}
	}
}

func advance(t *testing.T, fc *clockwork.FakeClock, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := fc.BlockUntilContext(ctx, 1); err != nil {
		t.Fatalf("no ticker waiting on the clock: %v", err)
	}
	fc.Advance(d)
}

func start(t *testing.T, src source.Source, fc *clockwork.FakeClock) (*Watcher, *recorder) {
	t.Helper()
	rec := newRecorder()
	w, err := Start(context.Background(), src, rec.update,
		WithLocation(time.UTC),
		WithTickerOptions(countdown.WithClock(fc)),
	)
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	t.Cleanup(w.Close)
	return w, rec
}

func TestWatcher_FirstEmission(t *testing.T) {
	fc := clockwork.NewFakeClockAt(time.Date(2029, 12, 30, 22, 0, 0, 0, time.UTC))
	src := source.NewStatic(source.ValueOf("2030-01-01 00:00"))

	_, rec := start(t, src, fc)
	if d := rec.next(t); d.Text != "1d 2h 0m 0s" || d.Kind != countdown.KindRunning {
		t.Fatalf("first display = %#v, want running 1d 2h 0m 0s", d)
	}

	advance(t, fc, time.Second)
	if d := rec.next(t); d.Text != "1d 1h 59m 59s" {
		t.Fatalf("second display = %q, want 1d 1h 59m 59s", d.Text)
	}
}

func TestWatcher_AbsentValue(t *testing.T) {
	fc := clockwork.NewFakeClock()
	src := source.NewStatic(source.Absent())

	_, rec := start(t, src, fc)
	if d := rec.next(t); d.Text != countdown.TextNoTimer {
		t.Fatalf("display = %q, want %q", d.Text, countdown.TextNoTimer)
	}
}

func TestWatcher_NewTargetSupersedesOldTicker(t *testing.T) {
	fc := clockwork.NewFakeClockAt(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))
	src := source.NewStatic(source.ValueOf("2030-01-01 01:00"))

	_, rec := start(t, src, fc)
	if d := rec.next(t); d.Text != "0d 1h 0m 0s" {
		t.Fatalf("first display = %q", d.Text)
	}

	// The first ticker is waiting for its next tick when the target changes.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := fc.BlockUntilContext(ctx, 1); err != nil {
		t.Fatalf("first ticker not waiting: %v", err)
	}

	if err := src.Set(context.Background(), "2030-01-01 02:00"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if d := rec.next(t); d.Text != "0d 2h 0m 0s" {
		t.Fatalf("display after change = %q", d.Text)
	}

	for i := 0; i < 3; i++ {
		advance(t, fc, time.Second)
		rec.next(t)
	}

	for _, text := range rec.texts()[1:] {
		if strings.HasPrefix(text, "0d 0h") {
			t.Fatalf("superseded ticker emitted %q after the new target; all: %q", text, rec.texts())
		}
	}
	want := []string{"0d 1h 0m 0s", "0d 2h 0m 0s", "0d 1h 59m 59s", "0d 1h 59m 58s", "0d 1h 59m 57s"}
	if got := rec.texts(); strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("displays = %q, want %q", got, want)
	}
}

func TestWatcher_MalformedTargetIsInvalidNotNoTimer(t *testing.T) {
	fc := clockwork.NewFakeClock()
	src := source.NewStatic(source.ValueOf("next tuesday"))

	_, rec := start(t, src, fc)
	d := rec.next(t)
	if d.Kind != countdown.KindInvalid || d.Text != countdown.TextInvalid {
		t.Fatalf("display = %#v, want invalid", d)
	}

	// A valid value afterwards recovers.
	if err := src.Set(context.Background(), fc.Now().UTC().Add(time.Hour).Format(countdown.Layout)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if d := rec.next(t); d.Kind != countdown.KindRunning {
		t.Fatalf("display after valid value = %#v, want running", d)
	}
}

func TestWatcher_SourceErrorStopsTickerAndShowsMessage(t *testing.T) {
	fc := clockwork.NewFakeClockAt(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))
	src := source.NewStatic(source.ValueOf("2030-01-02 00:00"))

	_, rec := start(t, src, fc)
	rec.next(t)

	src.Fail(errors.New("Permission denied"))
	d := rec.next(t)
	if d.Kind != countdown.KindError || d.Text != "Error: Permission denied" {
		t.Fatalf("display = %#v, want Error: Permission denied", d)
	}

	// The error is terminal: no ticker keeps counting.
	fc.Advance(5 * time.Second)
	time.Sleep(20 * time.Millisecond)
	if got := rec.texts(); len(got) != 2 {
		t.Fatalf("displays after error = %q, want no further ticks", got)
	}

	// Until a new value arrives.
	if err := src.Set(context.Background(), "2030-01-03 00:00"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if d := rec.next(t); d.Kind != countdown.KindRunning {
		t.Fatalf("display after recovery = %#v, want running", d)
	}
}

func TestWatcher_CloseReleasesEverythingOnce(t *testing.T) {
	fc := clockwork.NewFakeClockAt(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))
	src := source.NewStatic(source.ValueOf("2030-01-02 00:00"))

	w, rec := start(t, src, fc)
	rec.next(t)
	if src.Subscribers() != 1 {
		t.Fatalf("Subscribers = %d, want 1", src.Subscribers())
	}

	w.Close()
	w.Close()

	if src.Subscribers() != 0 {
		t.Fatalf("Subscribers = %d after Close, want 0", src.Subscribers())
	}
	seen := len(rec.texts())

	fc.Advance(5 * time.Second)
	_ = src.Set(context.Background(), "2030-01-05 00:00")
	src.Fail(errors.New("late"))
	time.Sleep(20 * time.Millisecond)

	if got := rec.texts(); len(got) != seen {
		t.Fatalf("displays after Close = %q, want %d", got, seen)
	}
}

func TestWatcher_RedisDownAtStartShowsErrorThenRecovers(t *testing.T) {
	mr := miniredis.RunT(t)
	retry := clockwork.NewFakeClock()
	src, err := source.NewRedis(source.RedisOptions{
		Addr:       mr.Addr(),
		Key:        "selectedDate",
		Channel:    "countdown:selectedDate",
		RetryDelay: time.Minute,
		Clock:      retry,
	})
	if err != nil {
		t.Fatalf("NewRedis returned error: %v", err)
	}
	t.Cleanup(func() { _ = src.Close() })
	mr.Close()

	fc := clockwork.NewFakeClockAt(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))
	_, rec := start(t, src, fc)

	if d := rec.next(t); d.Kind != countdown.KindError || !strings.HasPrefix(d.Text, "Error: ") {
		t.Fatalf("first display = %#v, want an error", d)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := retry.BlockUntilContext(ctx, 1); err != nil {
		t.Fatalf("no retry waiting on the clock: %v", err)
	}
	if err := mr.Set("selectedDate", "2030-01-02 00:00"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := mr.Restart(); err != nil {
		t.Fatalf("Restart: %v", err)
	}
	retry.Advance(time.Minute)

	for {
		d := rec.next(t)
		if d.Kind == countdown.KindRunning {
			if d.Text != "1d 0h 0m 0s" {
				t.Fatalf("display after recovery = %q", d.Text)
			}
			return
		}
		if d.Kind != countdown.KindError {
			t.Fatalf("display while recovering = %#v", d)
		}
	}
}

func TestStart_RequiresSource(t *testing.T) {
	if _, err := Start(context.Background(), nil, nil); err == nil {
		t.Fatalf("Start(nil source) returned nil error")
	}
}
