// Package session keeps admin sessions in the shared cache: login,
// fingerprint checks, inactivity expiry, id rotation and named locks.
package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
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
	DefaultCookieName     = "USERMGR_SESSION"
	DefaultTimeout        = 1800 * time.Second
	DefaultRotateInterval = 1800 * time.Second

	keyPrefix  = "session:"
	lockPrefix = "lock:"
	idBytes    = 32
)

var ErrNotFound = errors.New("session not found")

type Config struct {
	CookieName     string
	Timeout        time.Duration
	RotateInterval time.Duration
	// FingerprintAcceptLanguage adds the Accept-Language header to the
	// fingerprint.
	FingerprintAcceptLanguage bool
	// SecureCookies forces the Secure flag even on plain HTTP.
	SecureCookies bool

	RememberCookieName string
	RememberLifetime   time.Duration
}

func (c *Config) setDefaults() {
	if c.CookieName == "" {
		c.CookieName = DefaultCookieName
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RotateInterval <= 0 {
		c.RotateInterval = DefaultRotateInterval
	}
	if c.RememberCookieName == "" {
		c.RememberCookieName = DefaultRememberCookieName
	}
	if c.RememberLifetime <= 0 {
		c.RememberLifetime = DefaultRememberLifetime
	}
}

// Client carries the request attributes a session fingerprint is built from.
type Client struct {
	IP             string
	UserAgent      string
	AcceptLanguage string
}

// Attributes are stored on the session at login.
type Attributes struct {
	Username string
	Role     string
	Values   map[string]string
}

type Manager struct {
	cache  contracts.Cache
	cfg    Config
	clock  abtime.AbstractTime
	random io.Reader
}

type Option func(*Manager)

func WithClock(clock abtime.AbstractTime) Option {
	return func(m *Manager) {
		m.clock = clock
	}
}

func NewManager(store contracts.Cache, cfg Config, opts ...Option) *Manager {
	cfg.setDefaults()
	m := &Manager{
		cache:  store,
		cfg:    cfg,
		clock:  abtime.NewRealTime(),
		random: rand.Reader,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Config() Config {
	return m.cfg
}

func (m *Manager) newID() (string, error) {
	b := make([]byte, idBytes)
	if _, err := io.ReadFull(m.random, b); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func validID(id string) bool {
	if len(id) != idBytes*2 {
		return false
	}
	_, err := hex.DecodeString(id)
	return err == nil
}

// New returns an empty session that is only persisted once modified.
func (m *Manager) New() (*Session, error) {
	id, err := m.newID()
	if err != nil {
		return nil, err
	}
	scope, err := m.newID()
	if err != nil {
		return nil, err
	}
	now := m.clock.Now()
	return &Session{
		ID:           id,
		Scope:        scope,
		CreatedAt:    now,
		LastActivity: now,
		fresh:        true,
	}, nil
}

func (m *Manager) Load(ctx context.Context, id string) (*Session, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	raw, err := m.cache.Get(ctx, keyPrefix+id)
	if errors.Is(err, cache.ErrMiss) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	s.ID = id
	if s.Scope == "" {
		s.Scope = id
	}
	return &s, nil
}

// Save persists the session for one inactivity timeout. Destroyed sessions
// and untouched new sessions are not written.
func (m *Manager) Save(ctx context.Context, s *Session) error {
	if s.destroyed || (s.fresh && !s.modified) {
		return nil
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := m.cache.Set(ctx, keyPrefix+s.ID, raw, m.cfg.Timeout); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	s.fresh = false
	s.modified = false
	return nil
}

// Regenerate moves the session data to a new identifier and invalidates the
// old one.
func (m *Manager) Regenerate(ctx context.Context, s *Session) error {
	oldID := s.ID
	wasFresh := s.fresh
	id, err := m.newID()
	if err != nil {
		return err
	}
	s.ID = id
	s.CreatedAt = m.clock.Now()
	s.modified = true
	if err := m.Save(ctx, s); err != nil {
		return err
	}
	if wasFresh {
		return nil
	}
	if err := m.cache.Delete(ctx, keyPrefix+oldID); err != nil {
		return fmt.Errorf("invalidate session: %w", err)
	}
	return nil
}

func (m *Manager) Fingerprint(client Client) string {
	h := sha256.New()
	h.Write([]byte(client.UserAgent))
	h.Write([]byte{'|'})
	h.Write([]byte(client.IP))
	if m.cfg.FingerprintAcceptLanguage {
		h.Write([]byte{'|'})
		h.Write([]byte(client.AcceptLanguage))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Login rotates the identifier, then marks the session as authenticated for
// userID and binds it to the client's fingerprint.
func (m *Manager) Login(ctx context.Context, s *Session, client Client, userID string, attrs Attributes) error {
	now := m.clock.Now()
	s.UserID = userID
	s.Username = attrs.Username
	s.Role = attrs.Role
	for k, v := range attrs.Values {
		s.Set(k, v)
	}
	s.LoggedIn = true
	s.LoginTime = now
	s.LastActivity = now
	s.Fingerprint = m.Fingerprint(client)
	return m.Regenerate(ctx, s)
}

// ValidateFingerprint reports whether the request comes from the client the
// session was bound to at login.
func (m *Manager) ValidateFingerprint(s *Session, client Client) bool {
	if s.Fingerprint == "" {
		return false
	}
	current := m.Fingerprint(client)
	return subtle.ConstantTimeCompare([]byte(s.Fingerprint), []byte(current)) == 1
}

// Touch records activity on s. It destroys the session and returns true when
// the inactivity timeout has passed, and rotates the identifier once the
// rotation interval has elapsed since it was issued.
func (m *Manager) Touch(ctx context.Context, s *Session) (bool, error) {
	if s.fresh {
		return false, nil
	}
	now := m.clock.Now()
	if now.Sub(s.LastActivity) > m.cfg.Timeout {
		return true, m.Destroy(ctx, s)
	}
	s.LastActivity = now
	s.modified = true
	if now.Sub(s.CreatedAt) > m.cfg.RotateInterval {
		if err := m.Regenerate(ctx, s); err != nil {
			return false, err
		}
	}
	return false, nil
}

// Destroy removes the session from storage and clears its attributes.
func (m *Manager) Destroy(ctx context.Context, s *Session) error {
	s.clear()
	s.destroyed = true
	if s.fresh {
		return nil
	}
	if err := m.cache.Delete(ctx, keyPrefix+s.ID); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	return nil
}

func (m *Manager) Logout(ctx context.Context, s *Session) error {
	return m.Destroy(ctx, s)
}

func lockKey(s *Session, key string) string {
	return lockPrefix + s.Scope + ":" + key
}

// Lock takes the named lock on s for timeout. It returns false while another
// holder's lock has not expired. The lock lives in the cache under its own
// key, so concurrent requests on one session cannot both take it.
func (m *Manager) Lock(ctx context.Context, s *Session, key string, timeout time.Duration) (bool, error) {
	until := m.clock.Now().Add(timeout).UTC().Format(time.RFC3339Nano)
	ok, err := m.cache.SetNX(ctx, lockKey(s, key), []byte(until), timeout)
	if err != nil {
		return false, fmt.Errorf("take session lock: %w", err)
	}
	if ok {
		s.Retain()
	}
	return ok, nil
}

func (m *Manager) Unlock(ctx context.Context, s *Session, key string) error {
	if err := m.cache.Delete(ctx, lockKey(s, key)); err != nil {
		return fmt.Errorf("release session lock: %w", err)
	}
	return nil
}

func (m *Manager) IsLocked(ctx context.Context, s *Session, key string) (bool, error) {
	return m.cache.Exists(ctx, lockKey(s, key))
}
