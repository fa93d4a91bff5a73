package libs

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/oarkflow/usermgr/pkg/contracts"
	"github.com/oarkflow/usermgr/pkg/csrf"
	"github.com/oarkflow/usermgr/pkg/session"
)

const secretSize = 32

type Config struct {
	AppName    string
	AppEnv     string
	ListenAddr string
	// Secret keys remember-me tokens. Always secretSize bytes.
	Secret []byte

	Session      session.Config
	CSRFLifetime time.Duration
	CSRFMode     csrf.Mode

	CredentialsFile string
	CacheDriver     string
	RedisURL        string

	CORSOrigins           []string
	EnableSecurityHeaders bool
	EnableHTTPS           bool
	RateLimitHeaders      bool
	// TrustedProxies lists the addresses allowed to set ProxyHeader. With
	// none, forwarding headers are ignored and the socket address is used.
	TrustedProxies []string
	ProxyHeader    string

	Admin          AdminConfig
	PasswordPolicy PasswordPolicyConfig

	LogLevel  string
	LogFormat string
}

type AdminConfig struct {
	Username     string
	PasswordHash string
	// Password is a plain-text fallback for development; it is hashed at
	// startup and never stored.
	Password   string
	Algo       string
	TOTPSecret string
}

type PasswordPolicyConfig struct {
	MinLength      int
	RequireSpecial bool
}

func LoadConfig(cfg contracts.Config) (*Config, error) {
	secret, err := deriveSecret(cfg.GetString("usermgr.secret"))
	if err != nil {
		return nil, err
	}
	mode := cfg.GetString("usermgr.csrf_mode", string(csrf.ModeOneTime))
	if mode != string(csrf.ModeOneTime) && mode != string(csrf.ModeReusable) {
		return nil, fmt.Errorf("invalid csrf mode %q", mode)
	}
	https := cfg.GetBool("usermgr.enable_https", false)
	return &Config{
		AppName:    cfg.GetString("app.name", "User Manager"),
		AppEnv:     cfg.GetString("app.env", "development"),
		ListenAddr: cfg.GetString("usermgr.listen_addr", ":8080"),
		Secret:     secret,
		Session: session.Config{
			CookieName:                cfg.GetString("usermgr.session_name", session.DefaultCookieName),
			Timeout:                   cfg.GetDuration("usermgr.session_timeout", "1800s"),
			RotateInterval:            cfg.GetDuration("usermgr.session_rotate", "1800s"),
			FingerprintAcceptLanguage: cfg.GetBool("usermgr.fingerprint_accept_language", false),
			SecureCookies:             https,
			RememberLifetime:          cfg.GetDuration("usermgr.remember_lifetime", "720h"),
		},
		CSRFLifetime:          cfg.GetDuration("usermgr.csrf_lifetime", "3600s"),
		CSRFMode:              csrf.Mode(mode),
		CredentialsFile:       cfg.GetString("usermgr.credentials_file", "./data/.htpasswd"),
		CacheDriver:           cfg.GetString("usermgr.cache_driver", "memory"),
		RedisURL:              cfg.GetString("usermgr.redis_url"),
		CORSOrigins:           splitList(cfg.GetString("usermgr.cors_origins")),
		EnableSecurityHeaders: cfg.GetBool("usermgr.enable_security_headers", true),
		EnableHTTPS:           https,
		RateLimitHeaders:      cfg.GetBool("usermgr.rate_limit_headers", true),
		TrustedProxies:        splitList(cfg.GetString("usermgr.trusted_proxies")),
		ProxyHeader:           cfg.GetString("usermgr.proxy_header", fiber.HeaderXForwardedFor),
		Admin: AdminConfig{
			Username:     cfg.GetString("usermgr.admin_username", "admin"),
			PasswordHash: cfg.GetString("usermgr.admin_password_hash"),
			Password:     cfg.GetString("usermgr.admin_password"),
			Algo:         cfg.GetString("usermgr.password_algo"),
			TOTPSecret:   cfg.GetString("usermgr.totp_secret"),
		},
		PasswordPolicy: PasswordPolicyConfig{
			MinLength:      cfg.GetInt("usermgr.password_min_length", 8),
			RequireSpecial: true,
		},
		LogLevel:  cfg.GetString("usermgr.log_level", "info"),
		LogFormat: cfg.GetString("usermgr.log_format", "text"),
	}, nil
}

// FiberConfig adds the proxy trust settings to base. Client addresses are
// then resolved by fiber, which only reads ProxyHeader from trusted peers.
func (c *Config) FiberConfig(base fiber.Config) fiber.Config {
	if len(c.TrustedProxies) == 0 {
		return base
	}
	base.ProxyHeader = c.ProxyHeader
	base.EnableTrustedProxyCheck = true
	base.TrustedProxies = c.TrustedProxies
	return base
}

// deriveSecret stretches any configured secret to the key size PASETO
// local tokens need. An empty secret yields a random per-process key, so
// remember-me cookies do not survive a restart.
func deriveSecret(s string) ([]byte, error) {
	if s == "" {
		key := make([]byte, secretSize)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate secret: %w", err)
		}
		return key, nil
	}
	if len(s) == secretSize {
		return []byte(s), nil
	}
	sum := sha256.Sum256([]byte(s))
	return sum[:], nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
