package source

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
)

var _ Source = (*Redis)(nil)
var _ Writer = (*Redis)(nil)

// RedisOptions configure a Redis source.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Key      string
	Channel  string
	// RetryDelay is the pause after a failed receive; zero uses one second.
	RetryDelay time.Duration
	// Clock times the retry pause. default: real clock
	Clock clockwork.Clock
}

// Redis keeps the target under a key and announces changes on a channel.
type Redis struct {
	client     *redis.Client
	key        string
	channel    string
	retryDelay time.Duration
	clock      clockwork.Clock
}

// NewRedis connects lazily to the server in opts.
func NewRedis(opts RedisOptions) (*Redis, error) {
	key := strings.TrimSpace(opts.Key)
	channel := strings.TrimSpace(opts.Channel)
	if key == "" {
		return nil, fmt.Errorf("redis key is required")
	}
	if channel == "" {
		return nil, fmt.Errorf("redis channel is required")
	}
	retry := opts.RetryDelay
	if retry <= 0 {
		retry = time.Second
	}
	client := redis.NewClient(&redis.Options{
		Addr:     strings.TrimSpace(opts.Addr),
		Password: opts.Password,
		DB:       opts.DB,
	})
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Redis{client: client, key: key, channel: channel, retryDelay: retry, clock: clock}, nil
}

// Name implements Source.
func (r *Redis) Name() string {
	return "redis"
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}

// Get reads the key once. A missing key is absent.
func (r *Redis) Get(ctx context.Context) (Value, error) {
	raw, err := r.client.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return Absent(), nil
	}
	if err != nil {
		return Value{}, fmt.Errorf("get %s: %w", r.key, err)
	}
	return ValueOf(raw), nil
}

// Set stores raw and announces it.
func (r *Redis) Set(ctx context.Context, raw string) error {
	_, err := r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.key, raw, 0)
		pipe.Publish(ctx, r.channel, raw)
		return nil
	})
	if err != nil {
		return fmt.Errorf("set %s: %w", r.key, err)
	}
	return nil
}

// Clear deletes the key and announces the empty value.
func (r *Redis) Clear(ctx context.Context) error {
	_, err := r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.key)
		pipe.Publish(ctx, r.channel, "")
		return nil
	})
	if err != nil {
		return fmt.Errorf("clear %s: %w", r.key, err)
	}
	return nil
}

// Subscribe confirms the channel subscription, reports the key's current
// value, then forwards every published payload. A server that cannot be
// reached is reported through onError, not returned: the subscription stays
// live and re-reads the key once the channel subscription is confirmed.
// After a receive failure the key is re-read the same way.
func (r *Redis) Subscribe(ctx context.Context, onChange func(Value), onError func(error)) (Subscription, error) {
	ps := r.client.Subscribe(ctx, r.channel)

	listenCtx, cancel := context.WithCancel(ctx)
	sub := newSubscription(cancel, onChange, onError)
	sub.release = func() { _ = ps.Close() }

	l := &redisListener{redis: r, ps: ps, sub: sub}
	if _, err := ps.Receive(ctx); err != nil {
		sub.fail(fmt.Errorf("subscribe %s: %w", r.channel, err))
		l.resync = true
	} else if initial, err := r.Get(ctx); err != nil {
		sub.fail(err)
		l.pendingGet = true
	} else {
		sub.change(initial)
	}

	go l.run(listenCtx)
	return sub, nil
}

// redisListener owns the receive loop of one subscription.
type redisListener struct {
	redis *Redis
	ps    *redis.PubSub
	sub   *subscription

	// resync re-reads the key on the next confirmed (re)subscription.
	resync bool
	// pendingGet re-reads the key before receiving again.
	pendingGet bool
}

func (l *redisListener) run(ctx context.Context) {
	r := l.redis
	for {
		if l.pendingGet {
			value, err := r.Get(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				l.sub.fail(err)
				// The connection may be gone too; catch the resubscription.
				l.resync = true
				if !r.pause(ctx) {
					return
				}
				continue
			}
			l.pendingGet = false
			l.sub.change(value)
		}

		msg, err := l.ps.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, redis.ErrClosed) {
				return
			}
			l.sub.fail(fmt.Errorf("receive %s: %w", r.channel, err))
			l.resync = true
			if !r.pause(ctx) {
				return
			}
			continue
		}

		switch m := msg.(type) {
		case *redis.Subscription:
			if l.resync {
				l.resync = false
				l.pendingGet = true
			}
		case *redis.Message:
			l.resync = false
			l.sub.change(ValueOf(m.Payload))
		}
	}
}

// pause waits retryDelay on the source clock. It returns false when ctx ends
// first.
func (r *Redis) pause(ctx context.Context) bool {
	timer := r.clock.NewTimer(r.retryDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}
