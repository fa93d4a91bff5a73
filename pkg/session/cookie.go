package session

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/oarkflow/usermgr/pkg/utils"
)

const (
	DefaultRememberCookieName = "USERMGR_REMEMBER"
	DefaultRememberLifetime   = 30 * 24 * time.Hour

	localsKey = "usermgr.session"
)

// RememberMe is the persistent-cookie envelope. Validating Token is up to
// the caller.
type RememberMe struct {
	UserID string `json:"user_id"`
	Token  string `json:"token"`
	Expiry int64  `json:"expiry"`
}

func ClientFromCtx(c *fiber.Ctx) Client {
	return Client{
		IP:             utils.GetClientIP(c),
		UserAgent:      c.Get(fiber.HeaderUserAgent),
		AcceptLanguage: c.Get(fiber.HeaderAcceptLanguage),
	}
}

// FromCtx returns the session attached by the session middleware.
func FromCtx(c *fiber.Ctx) *Session {
	s, _ := c.Locals(localsKey).(*Session)
	return s
}

func Attach(c *fiber.Ctx, s *Session) {
	c.Locals(localsKey, s)
}

func (m *Manager) secure(c *fiber.Ctx) bool {
	return m.cfg.SecureCookies || c.Secure()
}

func (m *Manager) CookieID(c *fiber.Ctx) string {
	return c.Cookies(m.cfg.CookieName)
}

func (m *Manager) WriteCookie(c *fiber.Ctx, s *Session) {
	c.Cookie(&fiber.Cookie{
		Name:     m.cfg.CookieName,
		Value:    s.ID,
		Path:     "/",
		HTTPOnly: true,
		Secure:   m.secure(c),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (m *Manager) ClearCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     m.cfg.CookieName,
		Value:    "",
		Path:     "/",
		HTTPOnly: true,
		Secure:   m.secure(c),
		SameSite: fiber.CookieSameSiteLaxMode,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})
}

func (m *Manager) SetRememberMe(c *fiber.Ctx, userID, token string) (RememberMe, error) {
	rm := RememberMe{
		UserID: userID,
		Token:  token,
		Expiry: m.clock.Now().Add(m.cfg.RememberLifetime).Unix(),
	}
	raw, err := json.Marshal(rm)
	if err != nil {
		return RememberMe{}, err
	}
	c.Cookie(&fiber.Cookie{
		Name:     m.cfg.RememberCookieName,
		Value:    base64.RawURLEncoding.EncodeToString(raw),
		Path:     "/",
		HTTPOnly: true,
		Secure:   true,
		SameSite: fiber.CookieSameSiteLaxMode,
		MaxAge:   int(m.cfg.RememberLifetime / time.Second),
	})
	return rm, nil
}

// GetRememberMe decodes the remember-me cookie. Malformed or expired
// envelopes are reported as absent.
func (m *Manager) GetRememberMe(c *fiber.Ctx) (RememberMe, bool) {
	value := c.Cookies(m.cfg.RememberCookieName)
	if value == "" {
		return RememberMe{}, false
	}
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return RememberMe{}, false
	}
	var rm RememberMe
	if err := json.Unmarshal(raw, &rm); err != nil {
		return RememberMe{}, false
	}
	if rm.UserID == "" || rm.Token == "" || m.clock.Now().Unix() >= rm.Expiry {
		return RememberMe{}, false
	}
	return rm, true
}

func (m *Manager) ClearRememberMe(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     m.cfg.RememberCookieName,
		Value:    "",
		Path:     "/",
		HTTPOnly: true,
		Secure:   true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})
}
