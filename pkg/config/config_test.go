package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := FromMap(nil)
	Load(cfg)

	assert.Equal(t, "USERMGR_SESSION", cfg.GetString("usermgr.session_name"))
	assert.Equal(t, 30*time.Minute, cfg.GetDuration("usermgr.session_timeout"))
	assert.Equal(t, time.Hour, cfg.GetDuration("usermgr.csrf_lifetime"))
	assert.Equal(t, "./data/.htpasswd", cfg.GetString("usermgr.credentials_file"))
	assert.True(t, cfg.GetBool("usermgr.enable_security_headers"))
	assert.Equal(t, 8, cfg.GetInt("usermgr.password_min_length"))
}

func TestLoadOverrides(t *testing.T) {
	cfg := FromMap(map[string]any{
		"USERMGR_SESSION_TIMEOUT":         "600",
		"USERMGR_CSRF_MODE":               "reusable",
		"USERMGR_ENABLE_SECURITY_HEADERS": "false",
		"USERMGR_PASSWORD_MIN_LENGTH":     "12",
	})
	Load(cfg)

	assert.Equal(t, 10*time.Minute, cfg.GetDuration("usermgr.session_timeout"))
	assert.Equal(t, "reusable", cfg.GetString("usermgr.csrf_mode"))
	assert.False(t, cfg.GetBool("usermgr.enable_security_headers"))
	assert.Equal(t, 12, cfg.GetInt("usermgr.password_min_length"))
}

func TestNewReadsDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("USERMGR_CACHE_DRIVER=redis\n"), 0o600))

	cfg, err := New(path, false, nil)
	require.NoError(t, err)
	assert.Equal(t, "redis", cfg.GetString("USERMGR_CACHE_DRIVER"))
}

func TestGettersFallBack(t *testing.T) {
	cfg := FromMap(map[string]any{"bad": "x"})

	assert.Equal(t, 5*time.Second, cfg.GetDuration("bad", "5s"))
	assert.Equal(t, 3, cfg.GetInt("bad", 3))
	assert.True(t, cfg.GetBool("bad", true))
	assert.Equal(t, "", cfg.GetString("missing"))
}
