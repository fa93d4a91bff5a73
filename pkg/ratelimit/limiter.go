// Package ratelimit implements fixed-window attempt counting with a
// temporary block, keyed by action and client identifier.
package ratelimit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/thejerf/abtime"

	"github.com/oarkflow/usermgr/pkg/cache"
	"github.com/oarkflow/usermgr/pkg/contracts"
)

const stripes = 64

type Status struct {
	Action     string
	Limited    bool
	Attempts   int
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds.
func (s Status) RetryAfterSeconds() int {
	return seconds(s.RetryAfter)
}

type Limiter struct {
	cache contracts.Cache
	rules map[string]Rule
	clock abtime.AbstractTime
	locks [stripes]sync.Mutex
}

type Option func(*Limiter)

func WithRule(action string, rule Rule) Option {
	return func(l *Limiter) {
		l.rules[action] = rule
	}
}

// WithClock sets the clock the block expiry is recorded with.
func WithClock(clock abtime.AbstractTime) Option {
	return func(l *Limiter) {
		l.clock = clock
	}
}

func New(store contracts.Cache, opts ...Option) *Limiter {
	l := &Limiter{cache: store, rules: DefaultRules(), clock: abtime.NewRealTime()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Identifier derives a client key from the IP address and user agent.
func Identifier(ip, userAgent string) string {
	sum := sha256.Sum256([]byte(ip + userAgent))
	return hex.EncodeToString(sum[:])
}

// Rule returns the rule for action; unknown actions use the api rule.
func (l *Limiter) Rule(action string) Rule {
	if r, ok := l.rules[action]; ok {
		return r
	}
	return l.rules[ActionAPI]
}

func counterKey(action, id string) string {
	return "ratelimit:" + action + ":" + id
}

func blockKey(action, id string) string {
	return "ratelimit:block:" + action + ":" + id
}

func (l *Limiter) lock(action, id string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(action))
	h.Write([]byte{0})
	h.Write([]byte(id))
	return &l.locks[h.Sum32()%stripes]
}

// IsLimited records an attempt for (action, id) and reports whether it must
// be rejected. Once the window's attempts are used up the next call creates a
// block that rejects every call until it expires.
func (l *Limiter) IsLimited(ctx context.Context, action, id string) (Status, error) {
	rule := l.Rule(action)
	mu := l.lock(action, id)
	mu.Lock()
	defer mu.Unlock()

	status := Status{Action: action, Limit: rule.MaxAttempts}

	blockTTL, blocked, err := l.blockTTL(ctx, action, id)
	if err != nil {
		return status, err
	}
	attempts, err := l.attempts(ctx, action, id)
	if err != nil {
		return status, err
	}
	status.Attempts = attempts
	if blocked {
		status.Limited = true
		status.RetryAfter = blockTTL
		return status, nil
	}

	if attempts >= rule.MaxAttempts {
		until := strconv.FormatInt(l.clock.Now().Add(rule.BlockDuration).Unix(), 10)
		if err := l.cache.Set(ctx, blockKey(action, id), []byte(until), rule.BlockDuration); err != nil {
			return status, fmt.Errorf("create rate limit block: %w", err)
		}
		status.Limited = true
		status.RetryAfter = rule.BlockDuration
		return status, nil
	}

	n, err := l.cache.Increment(ctx, counterKey(action, id), rule.Window)
	if err != nil {
		return status, fmt.Errorf("increment rate limit counter: %w", err)
	}
	status.Attempts = int(n)
	status.Remaining = max(rule.MaxAttempts-int(n), 0)
	status.RetryAfter, err = l.counterTTL(ctx, action, id)
	return status, err
}

func (l *Limiter) attempts(ctx context.Context, action, id string) (int, error) {
	raw, err := l.cache.Get(ctx, counterKey(action, id))
	if errors.Is(err, cache.ErrMiss) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read rate limit counter: %w", err)
	}
	n, err := strconv.Atoi(string(raw))
	if err != nil {
		return 0, fmt.Errorf("read rate limit counter: %w", err)
	}
	return n, nil
}

func (l *Limiter) blockTTL(ctx context.Context, action, id string) (time.Duration, bool, error) {
	ttl, err := l.cache.TTL(ctx, blockKey(action, id))
	if errors.Is(err, cache.ErrMiss) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read rate limit block: %w", err)
	}
	return ttl, true, nil
}

func (l *Limiter) counterTTL(ctx context.Context, action, id string) (time.Duration, error) {
	ttl, err := l.cache.TTL(ctx, counterKey(action, id))
	if errors.Is(err, cache.ErrMiss) {
		return 0, nil
	}
	return ttl, err
}

func (l *Limiter) IsBlocked(ctx context.Context, action, id string) (bool, error) {
	_, blocked, err := l.blockTTL(ctx, action, id)
	return blocked, err
}

// RemainingAttempts returns how many calls are left in the current window.
func (l *Limiter) RemainingAttempts(ctx context.Context, action, id string) (int, error) {
	blocked, err := l.IsBlocked(ctx, action, id)
	if err != nil || blocked {
		return 0, err
	}
	attempts, err := l.attempts(ctx, action, id)
	if err != nil {
		return 0, err
	}
	return max(l.Rule(action).MaxAttempts-attempts, 0), nil
}

// RetryAfter returns the time left on an active block, or the time until
// the current window resets.
func (l *Limiter) RetryAfter(ctx context.Context, action, id string) (time.Duration, error) {
	ttl, blocked, err := l.blockTTL(ctx, action, id)
	if err != nil {
		return 0, err
	}
	if blocked {
		return max(ttl, 0), nil
	}
	return l.counterTTL(ctx, action, id)
}

// Reset clears both the counter and any block.
func (l *Limiter) Reset(ctx context.Context, action, id string) error {
	mu := l.lock(action, id)
	mu.Lock()
	defer mu.Unlock()
	return l.cache.Delete(ctx, counterKey(action, id), blockKey(action, id))
}

// Unblock lifts an active block and leaves the counter alone.
func (l *Limiter) Unblock(ctx context.Context, action, id string) error {
	mu := l.lock(action, id)
	mu.Lock()
	defer mu.Unlock()
	return l.cache.Delete(ctx, blockKey(action, id))
}

func seconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}
