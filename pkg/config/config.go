package config

import (
	"github.com/oarkflow/usermgr/pkg/contracts"
)

const Prefix = "usermgr"

// Load registers the application defaults, letting USERMGR_* variables
// override them.
func Load(cfg contracts.Config) {
	cfg.Add("app.name", cfg.Env("APP_NAME", "User Manager"))
	cfg.Add("app.env", cfg.Env("APP_ENV", "development"))
	cfg.Add(Prefix, map[string]any{
		"listen_addr": cfg.Env("USERMGR_LISTEN_ADDR", ":8080"),
		"secret":      cfg.Env("USERMGR_SECRET", ""),

		"session_name":                cfg.Env("USERMGR_SESSION_NAME", "USERMGR_SESSION"),
		"session_timeout":             cfg.Env("USERMGR_SESSION_TIMEOUT", "1800s"),
		"session_rotate":              cfg.Env("USERMGR_SESSION_ROTATE", "1800s"),
		"fingerprint_accept_language": cfg.Env("USERMGR_FINGERPRINT_ACCEPT_LANGUAGE", false),
		"remember_lifetime":           cfg.Env("USERMGR_REMEMBER_LIFETIME", "720h"),

		"csrf_lifetime": cfg.Env("USERMGR_CSRF_LIFETIME", "3600s"),
		"csrf_mode":     cfg.Env("USERMGR_CSRF_MODE", "one_time"),

		"credentials_file": cfg.Env("USERMGR_CREDENTIALS_FILE", "./data/.htpasswd"),
		"cache_driver":     cfg.Env("USERMGR_CACHE_DRIVER", "memory"),
		"redis_url":        cfg.Env("USERMGR_REDIS_URL", ""),

		"cors_origins":            cfg.Env("USERMGR_CORS_ORIGINS", ""),
		"enable_security_headers": cfg.Env("USERMGR_ENABLE_SECURITY_HEADERS", true),
		"enable_https":            cfg.Env("USERMGR_ENABLE_HTTPS", false),
		"rate_limit_headers":      cfg.Env("USERMGR_RATE_LIMIT_HEADERS", true),
		"trusted_proxies":         cfg.Env("USERMGR_TRUSTED_PROXIES", ""),
		"proxy_header":            cfg.Env("USERMGR_PROXY_HEADER", "X-Forwarded-For"),

		"admin_username":      cfg.Env("ADMIN_USERNAME", "admin"),
		"admin_password_hash": cfg.Env("ADMIN_PASSWORD_HASH", ""),
		"admin_password":      cfg.Env("ADMIN_PASSWORD", ""),
		"password_algo":       cfg.Env("USERMGR_PASSWORD_ALGO", ""),
		"password_min_length": cfg.Env("USERMGR_PASSWORD_MIN_LENGTH", 8),
		"totp_secret":         cfg.Env("USERMGR_TOTP_SECRET", ""),

		"log_level":  cfg.Env("USERMGR_LOG_LEVEL", "info"),
		"log_format": cfg.Env("USERMGR_LOG_FORMAT", "text"),
	})
}
