package source

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestCalculateBackoff_DoublesFromPollInterval(t *testing.T) {
	cases := []struct {
		failures int
		want     time.Duration
	}{
		{-3, time.Second},
		{0, time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, maxBackoff},
		{40, maxBackoff},
	}
	for _, tc := range cases {
		if got := calculateBackoff(tc.failures, defaultPollInterval); got != tc.want {
			t.Fatalf("calculateBackoff(%d) = %v, want %v", tc.failures, got, tc.want)
		}
	}
}

func TestCalculateBackoff_SlowIntervalStartsAtCap(t *testing.T) {
	if got := calculateBackoff(1, 20*time.Second); got != maxBackoff {
		t.Fatalf("calculateBackoff(1, 20s) = %v, want %v", got, maxBackoff)
	}
	if got := calculateBackoff(0, time.Minute); got != time.Minute {
		t.Fatalf("calculateBackoff(0, 1m) = %v, want the interval itself", got)
	}
}

func TestParseBaseURL_DefaultsAndNormalizes(t *testing.T) {
	if _, err := parseBaseURL("  "); err == nil {
		t.Fatalf("parseBaseURL(blank) returned nil error")
	}

	u, err := parseBaseURL("demo-default-rtdb.firebaseio.com")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.Scheme != "https" || u.Host != "demo-default-rtdb.firebaseio.com" {
		t.Fatalf("url = %q, want https://demo-default-rtdb.firebaseio.com", u.String())
	}

	u, err = parseBaseURL("http://example.com:1234/path?x=1#frag")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.Path != "" || u.RawQuery != "" || u.Fragment != "" {
		t.Fatalf("url not normalized: %q", u.String())
	}
}

func TestDecodeValue(t *testing.T) {
	tests := []struct {
		payload string
		want    Value
		wantErr error
	}{
		{`null`, Absent(), nil},
		{`""`, Absent(), nil},
		{`"2030-01-01 00:00"`, Value{Raw: "2030-01-01 00:00", Present: true}, nil},
		{`42`, Value{}, ErrUnexpectedValue},
		{`{"a":1}`, Value{}, ErrUnexpectedValue},
	}
	for _, tt := range tests {
		got, err := decodeValue(json.RawMessage(tt.payload))
		if !errors.Is(err, tt.wantErr) {
			t.Fatalf("decodeValue(%s) error = %v, want %v", tt.payload, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("decodeValue(%s) = %#v, want %#v", tt.payload, got, tt.want)
		}
	}
}

// fakeDatabase serves a single node the way the Realtime Database REST API does.
type fakeDatabase struct {
	mu      sync.Mutex
	value   *string
	fail    string
	lastURL string
	agent   string
}

func (d *fakeDatabase) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastURL = r.URL.String()
	d.agent = r.Header.Get("User-Agent")

	if d.fail != "" {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": d.fail})
		return
	}
	switch r.Method {
	case http.MethodGet:
		_ = json.NewEncoder(w).Encode(d.value)
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		var v string
		if err := json.Unmarshal(body, &v); err != nil {
			http.Error(w, `{"error":"Invalid data"}`, http.StatusBadRequest)
			return
		}
		d.value = &v
		_, _ = w.Write(body)
	case http.MethodDelete:
		d.value = nil
		_, _ = w.Write([]byte("null"))
	}
}

func (d *fakeDatabase) set(v *string, fail string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.value = v
	d.fail = fail
}

func (d *fakeDatabase) request() (url, agent string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastURL, d.agent
}

func strptr(s string) *string { return &s }

func TestFirebase_GetSetClear(t *testing.T) {
	t.Parallel()

	db := &fakeDatabase{}
	server := httptest.NewServer(db)
	t.Cleanup(server.Close)

	f, err := NewFirebase(server.URL, "/selectedDate/", "secret", time.Second)
	if err != nil {
		t.Fatalf("NewFirebase returned error: %v", err)
	}
	ctx := context.Background()

	v, err := f.Get(ctx)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if v.Present {
		t.Fatalf("Get = %#v, want absent for null node", v)
	}
	lastURL, agent := db.request()
	if !strings.HasPrefix(lastURL, "/selectedDate.json") || !strings.Contains(lastURL, "auth=secret") {
		t.Fatalf("request url = %q, want /selectedDate.json?auth=secret", lastURL)
	}
	if !strings.HasPrefix(agent, "countdown/") {
		t.Fatalf("User-Agent = %q, want countdown/*", agent)
	}

	if err := f.Set(ctx, "2030-01-01 00:00"); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	v, err = f.Get(ctx)
	if err != nil || v.Raw != "2030-01-01 00:00" || !v.Present {
		t.Fatalf("Get after Set = %#v, %v", v, err)
	}

	if err := f.Clear(ctx); err != nil {
		t.Fatalf("Clear returned error: %v", err)
	}
	v, err = f.Get(ctx)
	if err != nil || v.Present {
		t.Fatalf("Get after Clear = %#v, %v; want absent", v, err)
	}
}

func TestFirebase_ErrorUsesDatabaseMessage(t *testing.T) {
	t.Parallel()

	db := &fakeDatabase{fail: "Permission denied"}
	server := httptest.NewServer(db)
	t.Cleanup(server.Close)

	f, err := NewFirebase(server.URL, "selectedDate", "", time.Second)
	if err != nil {
		t.Fatalf("NewFirebase returned error: %v", err)
	}
	_, err = f.Get(context.Background())
	if err == nil || err.Error() != "Permission denied" {
		t.Fatalf("Get error = %v, want Permission denied", err)
	}
}

func TestFirebase_StatusErrorWithoutBody(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	f, err := NewFirebase(server.URL, "selectedDate", "", time.Second)
	if err != nil {
		t.Fatalf("NewFirebase returned error: %v", err)
	}
	_, err = f.Get(context.Background())
	if err == nil || !strings.Contains(err.Error(), "returned status 500") {
		t.Fatalf("Get error = %v, want status 500 error", err)
	}
}

type feedRecorder struct {
	changes chan Value
	errs    chan error
}

func newFeedRecorder() *feedRecorder {
	return &feedRecorder{changes: make(chan Value, 32), errs: make(chan error, 32)}
}

func (r *feedRecorder) onChange(v Value) { r.changes <- v }

// onError drops errors once the buffer is full; retry loops can report many.
func (r *feedRecorder) onError(err error) {
	select {
	case r.errs <- err:
	default:
	}
}

// changeTo reads changes until one carries raw.
func (r *feedRecorder) changeTo(t *testing.T, raw string) Value {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case v := <-r.changes:
			if v.Raw == raw {
				return v
			}
		case <-deadline:
			t.Fatalf("timed out waiting for change to %q", raw)
			return Value{}
		}
	}
}

func (r *feedRecorder) nextChange(t *testing.T) Value {
	t.Helper()
	select {
	case v := <-r.changes:
		return v
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for change")
		return Value{}
	}
}

func (r *feedRecorder) nextError(t *testing.T) error {
	t.Helper()
	select {
	case err := <-r.errs:
		return err
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for error")
		return nil
	}
}

func TestFirebase_SubscribeReportsChangesOnly(t *testing.T) {
	t.Parallel()

	db := &fakeDatabase{value: strptr("2030-01-01 00:00")}
	server := httptest.NewServer(db)
	t.Cleanup(server.Close)

	f, err := NewFirebase(server.URL, "selectedDate", "", 10*time.Millisecond)
	if err != nil {
		t.Fatalf("NewFirebase returned error: %v", err)
	}

	rec := newFeedRecorder()
	sub, err := f.Subscribe(context.Background(), rec.onChange, rec.onError)
	if err != nil {
		t.Fatalf("Subscribe returned error: %v", err)
	}
	t.Cleanup(sub.Unsubscribe)

	if v := rec.nextChange(t); v.Raw != "2030-01-01 00:00" {
		t.Fatalf("first change = %#v", v)
	}

	// Several polls of the same value stay quiet.
	time.Sleep(50 * time.Millisecond)
	select {
	case v := <-rec.changes:
		t.Fatalf("unexpected change for unchanged value: %#v", v)
	default:
	}

	db.set(strptr("2031-06-01 12:00"), "")
	if v := rec.nextChange(t); v.Raw != "2031-06-01 12:00" {
		t.Fatalf("second change = %#v", v)
	}

	db.set(nil, "")
	if v := rec.nextChange(t); v.Present {
		t.Fatalf("third change = %#v, want absent", v)
	}
}

func TestFirebase_SubscribeErrorThenRecovery(t *testing.T) {
	t.Parallel()

	db := &fakeDatabase{value: strptr("2030-01-01 00:00"), fail: "Permission denied"}
	server := httptest.NewServer(db)
	t.Cleanup(server.Close)

	f, err := NewFirebase(server.URL, "selectedDate", "", 5*time.Millisecond)
	if err != nil {
		t.Fatalf("NewFirebase returned error: %v", err)
	}

	rec := newFeedRecorder()
	sub, err := f.Subscribe(context.Background(), rec.onChange, rec.onError)
	if err != nil {
		t.Fatalf("Subscribe returned error: %v", err)
	}
	t.Cleanup(sub.Unsubscribe)

	if err := rec.nextError(t); err.Error() != "Permission denied" {
		t.Fatalf("error = %v, want Permission denied", err)
	}

	db.set(strptr("2030-01-01 00:00"), "")
	if v := rec.nextChange(t); v.Raw != "2030-01-01 00:00" {
		t.Fatalf("change after recovery = %#v", v)
	}
}

func TestFirebase_UnsubscribeStopsCallbacks(t *testing.T) {
	t.Parallel()

	db := &fakeDatabase{value: strptr("2030-01-01 00:00")}
	server := httptest.NewServer(db)
	t.Cleanup(server.Close)

	f, err := NewFirebase(server.URL, "selectedDate", "", 5*time.Millisecond)
	if err != nil {
		t.Fatalf("NewFirebase returned error: %v", err)
	}

	rec := newFeedRecorder()
	sub, err := f.Subscribe(context.Background(), rec.onChange, rec.onError)
	if err != nil {
		t.Fatalf("Subscribe returned error: %v", err)
	}
	rec.nextChange(t)

	sub.Unsubscribe()
	sub.Unsubscribe()

	db.set(strptr("2031-01-01 00:00"), "")
	time.Sleep(50 * time.Millisecond)
	select {
	case v := <-rec.changes:
		t.Fatalf("change after Unsubscribe: %#v", v)
	default:
	}
}

func TestFirebase_FailuresBackOffOnClock(t *testing.T) {
	t.Parallel()

	start := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	fc := clockwork.NewFakeClockAt(start)
	hits := make(chan time.Time, 16)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits <- fc.Now()
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)

	f, err := NewFirebase(server.URL, "selectedDate", "", defaultPollInterval, WithClock(fc))
	if err != nil {
		t.Fatalf("NewFirebase returned error: %v", err)
	}

	rec := newFeedRecorder()
	sub, err := f.Subscribe(context.Background(), rec.onChange, rec.onError)
	if err != nil {
		t.Fatalf("Subscribe returned error: %v", err)
	}
	t.Cleanup(sub.Unsubscribe)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Step one second at a time; a poll only runs when its timer fires.
	for i := 0; i < 14; i++ {
		if err := fc.BlockUntilContext(ctx, 1); err != nil {
			t.Fatalf("BlockUntilContext: %v", err)
		}
		fc.Advance(time.Second)
	}

	want := []time.Duration{0, 2 * time.Second, 6 * time.Second, 14 * time.Second}
	for i, offset := range want {
		select {
		case at := <-hits:
			if got := at.Sub(start); got != offset {
				t.Fatalf("request %d at +%v, want +%v", i+1, got, offset)
			}
		case <-ctx.Done():
			t.Fatalf("timed out waiting for request %d", i+1)
		}
	}
	select {
	case at := <-hits:
		t.Fatalf("unexpected request at +%v", at.Sub(start))
	default:
	}
}

func TestWithClock_NilKeepsRealClock(t *testing.T) {
	f, err := NewFirebase("https://demo.firebaseio.com", "selectedDate", "", 0, WithClock(nil))
	if err != nil {
		t.Fatalf("NewFirebase returned error: %v", err)
	}
	if f.clock == nil {
		t.Fatalf("clock is nil after WithClock(nil)")
	}
}
