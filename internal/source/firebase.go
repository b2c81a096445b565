package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
)

var _ Source = (*Firebase)(nil)
var _ Writer = (*Firebase)(nil)

// Firebase reads the target from a Realtime Database node over its REST API.
type Firebase struct {
	baseURL   *url.URL
	path      string
	auth      string
	http      *http.Client
	userAgent string
	interval  time.Duration
	clock     clockwork.Clock
}

// FirebaseOption configures a Firebase source.
type FirebaseOption func(*Firebase)

// WithClock sets the clock that times polls and backoff.
// default: real clock
func WithClock(c clockwork.Clock) FirebaseOption {
	return func(f *Firebase) {
		if c != nil {
			f.clock = c
		}
	}
}

const (
	defaultUserAgent    = "countdown/0.1"
	defaultPollInterval = time.Second
	requestTimeout      = 5 * time.Second
	maxBackoff          = 30 * time.Second
)

// NewFirebase builds a Firebase source for the node at path under the
// database at rawURL. auth, when set, is sent as the REST auth parameter.
func NewFirebase(rawURL, path, auth string, interval time.Duration, opts ...FirebaseOption) (*Firebase, error) {
	base, err := parseBaseURL(rawURL)
	if err != nil {
		return nil, err
	}
	path = strings.Trim(strings.TrimSpace(path), "/")
	if path == "" {
		return nil, fmt.Errorf("firebase path is required")
	}
	if interval <= 0 {
		interval = defaultPollInterval
	}
	f := &Firebase{
		baseURL: base,
		path:    path,
		auth:    strings.TrimSpace(auth),
		http: &http.Client{
			Timeout: requestTimeout,
		},
		userAgent: defaultUserAgent,
		interval:  interval,
		clock:     clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Name implements Source.
func (f *Firebase) Name() string {
	return "firebase"
}

// Get fetches the node once.
func (f *Firebase) Get(ctx context.Context) (Value, error) {
	if f == nil {
		return Value{}, fmt.Errorf("firebase source is nil")
	}
	var payload json.RawMessage
	if err := f.do(ctx, http.MethodGet, nil, &payload); err != nil {
		return Value{}, err
	}
	return decodeValue(payload)
}

// Set stores raw at the node.
func (f *Firebase) Set(ctx context.Context, raw string) error {
	body, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encode value: %w", err)
	}
	return f.do(ctx, http.MethodPut, body, nil)
}

// Clear removes the node.
func (f *Firebase) Clear(ctx context.Context) error {
	return f.do(ctx, http.MethodDelete, nil, nil)
}

// Subscribe polls the node at the configured interval. onChange fires for
// the first value, whenever the value differs from the last one reported,
// and on the first success after a failure. Consecutive failures back the
// poll off exponentially.
func (f *Firebase) Subscribe(ctx context.Context, onChange func(Value), onError func(error)) (Subscription, error) {
	if f == nil {
		return nil, fmt.Errorf("firebase source is nil")
	}
	pollCtx, cancel := context.WithCancel(ctx)
	sub := newSubscription(cancel, onChange, onError)
	go f.poll(pollCtx, sub)
	return sub, nil
}

func (f *Firebase) poll(ctx context.Context, sub *subscription) {
	var (
		last     Value
		reported bool
		failures int
	)
	for {
		value, err := f.Get(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			failures++
			sub.fail(err)
		} else {
			if !reported || failures > 0 || value != last {
				sub.change(value)
				last = value
				reported = true
			}
			failures = 0
		}

		timer := f.clock.NewTimer(calculateBackoff(failures, f.interval))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.Chan():
		}
	}
}

// calculateBackoff doubles base once per consecutive failure, capped at maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	wait := base
	for i := 0; i < failures; i++ {
		wait *= 2
		if wait >= maxBackoff {
			return maxBackoff
		}
	}
	return wait
}

func (f *Firebase) nodeURL() *url.URL {
	rel := &url.URL{Path: "/" + f.path + ".json"}
	if f.auth != "" {
		rel.RawQuery = url.Values{"auth": []string{f.auth}}.Encode()
	}
	return f.baseURL.ResolveReference(rel)
}

func (f *Firebase) do(ctx context.Context, method string, body []byte, dest any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	reqURL := f.nodeURL()
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", f.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := f.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return responseError(f.path, resp)
	}
	if dest == nil {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// responseError prefers the database's own message, e.g. "Permission denied".
func responseError(path string, resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err := json.Unmarshal(data, &payload); err == nil && strings.TrimSpace(payload.Error) != "" {
		return errors.New(payload.Error)
	}
	return fmt.Errorf("firebase %s returned status %d", path, resp.StatusCode)
}

func decodeValue(payload json.RawMessage) (Value, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Absent(), nil
	}
	var raw string
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return Value{}, fmt.Errorf("%w: %s", ErrUnexpectedValue, truncate(string(trimmed), 40))
	}
	return ValueOf(raw), nil
}

func parseBaseURL(rawURL string) (*url.URL, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return nil, fmt.Errorf("firebase url is required")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse firebase url %q: %w", rawURL, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse firebase url %q: missing host", rawURL)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
