package libs

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oarkflow/hash"
	"github.com/oarkflow/paseto/token"
	"github.com/thejerf/abtime"

	"github.com/oarkflow/usermgr/pkg/contracts"
	"github.com/oarkflow/usermgr/pkg/csrf"
	"github.com/oarkflow/usermgr/pkg/models"
	"github.com/oarkflow/usermgr/pkg/ratelimit"
	"github.com/oarkflow/usermgr/pkg/session"
)

const AdminRole = "admin"

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrMFARequired        = errors.New("one-time code required")
	ErrInvalidMFACode     = errors.New("invalid one-time code")
	ErrAdminNotConfigured = errors.New("admin credentials are not configured")
	ErrInvalidToken       = errors.New("invalid remember-me token")
)

// Manager wires the security components together. Handlers and
// middlewares receive it instead of reaching for globals.
type Manager struct {
	Config      *Config
	Logger      *slog.Logger
	Cache       contracts.Cache
	Sessions    *session.Manager
	CSRF        *csrf.Manager
	Limiter     *ratelimit.Limiter
	Credentials contracts.CredentialStore
	Logouts     *LogoutTracker

	clock     abtime.AbstractTime
	adminHash string
}

type Option func(*Manager)

func WithClock(clock abtime.AbstractTime) Option {
	return func(m *Manager) {
		m.clock = clock
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.Logger = logger
	}
}

func WithLimiter(l *ratelimit.Limiter) Option {
	return func(m *Manager) {
		m.Limiter = l
	}
}

func NewManager(cfg *Config, store contracts.Cache, creds contracts.CredentialStore, opts ...Option) (*Manager, error) {
	m := &Manager{
		Config:      cfg,
		Cache:       store,
		Credentials: creds,
		Logger:      slog.Default(),
		clock:       abtime.NewRealTime(),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.adminHash = cfg.Admin.PasswordHash
	if m.adminHash == "" {
		if cfg.Admin.Password == "" {
			return nil, ErrAdminNotConfigured
		}
		h, err := hash.Make(cfg.Admin.Password, cfg.Admin.Algo)
		if err != nil {
			return nil, fmt.Errorf("hash admin password: %w", err)
		}
		m.adminHash = h
		m.Logger.Warn("using plain-text ADMIN_PASSWORD; set ADMIN_PASSWORD_HASH outside development")
	}

	m.Sessions = session.NewManager(store, cfg.Session, session.WithClock(m.clock))
	m.CSRF = csrf.NewManager(store,
		csrf.WithLifetime(cfg.CSRFLifetime),
		csrf.WithMode(cfg.CSRFMode),
		csrf.WithClock(m.clock),
	)
	if m.Limiter == nil {
		m.Limiter = ratelimit.New(store, ratelimit.WithClock(m.clock))
	}
	m.Logouts = NewLogoutTracker(store, m.Sessions.Config().RememberLifetime, m.clock)
	return m, nil
}

func (m *Manager) Now() time.Time {
	return m.clock.Now()
}

func (m *Manager) admin() models.AdminInfo {
	return models.AdminInfo{
		UserID:   m.Config.Admin.Username,
		Username: m.Config.Admin.Username,
		Role:     AdminRole,
	}
}

// MFAEnabled reports whether logins need a TOTP code.
func (m *Manager) MFAEnabled() bool {
	return m.Config.Admin.TOTPSecret != ""
}

// AuthenticateAdmin checks the configured admin credentials and, when a
// TOTP secret is configured, the one-time code.
func (m *Manager) AuthenticateAdmin(username, password, otp string) (models.AdminInfo, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(m.Config.Admin.Username)) == 1
	passOK, err := hash.Match(password, m.adminHash, m.Config.Admin.Algo)
	if err != nil {
		m.Logger.Debug("admin hash check failed", "error", err)
	}
	if !userOK || !passOK {
		return models.AdminInfo{}, ErrInvalidCredentials
	}
	if m.MFAEnabled() {
		if otp == "" {
			return models.AdminInfo{}, ErrMFARequired
		}
		if !VerifyMFACode(otp, m.Config.Admin.TOTPSecret) {
			return models.AdminInfo{}, ErrInvalidMFACode
		}
	}
	return m.admin(), nil
}

// IssueRememberToken mints an encrypted token naming userID. It is only
// as long-lived as the remember-me cookie.
func (m *Manager) IssueRememberToken(userID string) (string, error) {
	now := m.clock.Now()
	lifetime := m.Sessions.Config().RememberLifetime
	t := token.CreateToken(lifetime, token.AlgEncrypt)
	_ = token.RegisterClaims(t, map[string]any{
		"sub":    userID,
		"iat":    now.Unix(),
		"iat_ms": now.UnixMilli(),
		"until":  now.Add(lifetime).Unix(),
	})
	tokenStr, err := token.EncryptToken(t, m.Config.Secret)
	if err != nil {
		return "", fmt.Errorf("encrypt remember token: %w", err)
	}
	return tokenStr, nil
}

// ValidateRememberToken decrypts the token from a remember-me envelope and
// returns the admin it names. Tokens minted before the user's last logout
// are rejected.
func (m *Manager) ValidateRememberToken(ctx context.Context, rm session.RememberMe) (models.AdminInfo, error) {
	decTok, err := token.DecryptToken(rm.Token, m.Config.Secret)
	if err != nil {
		return models.AdminInfo{}, ErrInvalidToken
	}
	claims := decTok.Claims
	sub, _ := claims["sub"].(string)
	if sub == "" || sub != rm.UserID || sub != m.Config.Admin.Username {
		return models.AdminInfo{}, ErrInvalidToken
	}
	if exp, ok := claimInt(claims["until"]); !ok || m.clock.Now().Unix() >= exp {
		return models.AdminInfo{}, ErrInvalidToken
	}
	issued, ok := claimInt(claims["iat_ms"])
	if !ok {
		return models.AdminInfo{}, ErrInvalidToken
	}
	loggedOut, err := m.Logouts.IsUserLoggedOut(ctx, sub, issued)
	if err != nil {
		return models.AdminInfo{}, err
	}
	if loggedOut {
		return models.AdminInfo{}, ErrInvalidToken
	}
	return m.admin(), nil
}

func claimInt(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	}
	return 0, false
}

// SetupMFA provisions a new TOTP secret for the admin. The secret must be
// copied into USERMGR_TOTP_SECRET to take effect.
func (m *Manager) SetupMFA() (models.MFASetupData, error) {
	return GenerateMFASecret(m.Config.Admin.Username, m.Config.AppName)
}

// UsernameTaken adapts the credential store to a validation lookup.
func (m *Manager) UsernameTaken(username string) (bool, error) {
	return m.Credentials.Exists(username)
}

func (m *Manager) Close() error {
	return m.Cache.Close()
}
