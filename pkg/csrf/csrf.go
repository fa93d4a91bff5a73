// Package csrf issues and verifies per-form anti-forgery tokens kept in the
// shared cache, scoped to the session.
package csrf

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/thejerf/abtime"

	"github.com/oarkflow/usermgr/pkg/cache"
	"github.com/oarkflow/usermgr/pkg/contracts"
)

const (
	DefaultForm     = "default"
	DefaultLifetime = time.Hour
	tokenBytes      = 32
	keyPrefix       = "csrf:"
)

// Mode selects what happens to a token after a successful verification.
type Mode string

const (
	// ModeOneTime removes the token once it has been verified.
	ModeOneTime Mode = "one_time"
	// ModeReusable keeps the token valid until it expires.
	ModeReusable Mode = "reusable"
)

func ParseMode(s string) Mode {
	if Mode(s) == ModeReusable {
		return ModeReusable
	}
	return ModeOneTime
}

type Token struct {
	Value     string    `json:"value"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (t Token) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// Owner scopes tokens. Sessions implement it; Retain is called when a
// token is issued so the owner is persisted along with it.
type Owner interface {
	ScopeID() string
	Retain()
}

// Manager keeps each token under its own cache key, so overlapping requests
// on one session see a single consume.
type Manager struct {
	cache    contracts.Cache
	lifetime time.Duration
	mode     Mode
	clock    abtime.AbstractTime
	random   io.Reader
}

type Option func(*Manager)

func WithLifetime(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.lifetime = d
		}
	}
}

func WithMode(mode Mode) Option {
	return func(m *Manager) {
		m.mode = mode
	}
}

func WithClock(clock abtime.AbstractTime) Option {
	return func(m *Manager) {
		m.clock = clock
	}
}

func NewManager(store contracts.Cache, opts ...Option) *Manager {
	m := &Manager{
		cache:    store,
		lifetime: DefaultLifetime,
		mode:     ModeOneTime,
		clock:    abtime.NewRealTime(),
		random:   rand.Reader,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Mode() Mode {
	return m.mode
}

func (m *Manager) Lifetime() time.Duration {
	return m.lifetime
}

func formName(form string) string {
	if form == "" {
		return DefaultForm
	}
	return form
}

func tokenKey(owner Owner, form string) string {
	return keyPrefix + owner.ScopeID() + ":" + formName(form)
}

func (m *Manager) load(ctx context.Context, key string) (Token, bool, error) {
	raw, err := m.cache.Get(ctx, key)
	if errors.Is(err, cache.ErrMiss) {
		return Token{}, false, nil
	}
	if err != nil {
		return Token{}, false, fmt.Errorf("load csrf token: %w", err)
	}
	var t Token
	if err := json.Unmarshal(raw, &t); err != nil {
		return Token{}, false, nil
	}
	return t, true, nil
}

// Issue returns the live token for form, minting a new one when there is
// none or it has expired.
func (m *Manager) Issue(ctx context.Context, owner Owner, form string) (string, error) {
	key := tokenKey(owner, form)
	now := m.clock.Now()
	t, ok, err := m.load(ctx, key)
	if err != nil {
		return "", err
	}
	if ok && !t.Expired(now) {
		return t.Value, nil
	}
	return m.mint(ctx, owner, key, now, ok)
}

// mint stores a fresh token. Unless replace is set it only fills an empty
// slot, and a token issued concurrently by another request wins.
func (m *Manager) mint(ctx context.Context, owner Owner, key string, now time.Time, replace bool) (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := io.ReadFull(m.random, b); err != nil {
		return "", fmt.Errorf("generate csrf token: %w", err)
	}
	t := Token{
		Value:     hex.EncodeToString(b),
		IssuedAt:  now,
		ExpiresAt: now.Add(m.lifetime),
	}
	raw, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("encode csrf token: %w", err)
	}
	owner.Retain()
	if !replace {
		stored, err := m.cache.SetNX(ctx, key, raw, m.lifetime)
		if err != nil {
			return "", fmt.Errorf("store csrf token: %w", err)
		}
		if stored {
			return t.Value, nil
		}
		winner, ok, err := m.load(ctx, key)
		if err != nil {
			return "", err
		}
		if ok && !winner.Expired(now) {
			return winner.Value, nil
		}
	}
	if err := m.cache.Set(ctx, key, raw, m.lifetime); err != nil {
		return "", fmt.Errorf("store csrf token: %w", err)
	}
	return t.Value, nil
}

// Verify reports whether candidate matches the live token for form. In
// one-time mode a matching token is consumed, and of several concurrent
// verifications only the one that removes it from the cache succeeds.
func (m *Manager) Verify(ctx context.Context, owner Owner, candidate, form string) (bool, error) {
	if candidate == "" {
		return false, nil
	}
	key := tokenKey(owner, form)
	now := m.clock.Now()
	t, ok, err := m.load(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if t.Expired(now) {
		return false, nil
	}
	if subtle.ConstantTimeCompare([]byte(t.Value), []byte(candidate)) != 1 {
		return false, nil
	}
	if m.mode != ModeOneTime {
		return true, nil
	}

	raw, err := m.cache.Take(ctx, key)
	if errors.Is(err, cache.ErrMiss) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("consume csrf token: %w", err)
	}
	var taken Token
	if err := json.Unmarshal(raw, &taken); err != nil {
		return false, nil
	}
	if subtle.ConstantTimeCompare([]byte(taken.Value), []byte(candidate)) != 1 {
		// A newer token replaced ours in between; leave it for its page.
		if left := taken.ExpiresAt.Sub(now); left > 0 {
			if _, err := m.cache.SetNX(ctx, key, raw, left); err != nil {
				return false, fmt.Errorf("restore csrf token: %w", err)
			}
		}
		return false, nil
	}
	return !taken.Expired(now), nil
}

// Remaining returns the lifetime left on the token for form, or zero.
func (m *Manager) Remaining(ctx context.Context, owner Owner, form string) (time.Duration, error) {
	t, ok, err := m.load(ctx, tokenKey(owner, form))
	if err != nil || !ok {
		return 0, err
	}
	return max(t.ExpiresAt.Sub(m.clock.Now()), 0), nil
}

// AutoRenew reissues the token for form when it has expired or less than
// threshold of its lifetime is left, so long-lived pages do not submit an
// expired token.
func (m *Manager) AutoRenew(ctx context.Context, owner Owner, form string, threshold time.Duration) (string, error) {
	key := tokenKey(owner, form)
	now := m.clock.Now()
	t, ok, err := m.load(ctx, key)
	if err != nil {
		return "", err
	}
	if ok && !t.Expired(now) && t.ExpiresAt.Sub(now) >= threshold {
		return t.Value, nil
	}
	return m.mint(ctx, owner, key, now, ok)
}
