package middlewares

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/oarkflow/usermgr/pkg/libs"
	"github.com/oarkflow/usermgr/pkg/session"
	"github.com/oarkflow/usermgr/pkg/utils"
)

// Session loads the request's session, expires it after inactivity and
// persists it once the handler chain has run.
func Session(m *libs.Manager) fiber.Handler {
	sm := m.Sessions
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		cookieID := sm.CookieID(c)

		var s *session.Session
		if cookieID != "" {
			loaded, err := sm.Load(ctx, cookieID)
			switch {
			case errors.Is(err, session.ErrNotFound):
			case err != nil:
				return err
			default:
				s = loaded
			}
		}
		expired := false
		if s != nil {
			userID := s.UserID
			var err error
			if expired, err = sm.Touch(ctx, s); err != nil {
				return err
			}
			if expired {
				utils.LogAuditEvent(c, m.Logger, userID, utils.AuditActionSessionExpired, false, "inactivity timeout")
				s = nil
			}
		}
		if s == nil {
			fresh, err := sm.New()
			if err != nil {
				return err
			}
			s = fresh
		}
		session.Attach(c, s)
		if s.UserID != "" {
			c.Locals(utils.UserIDKey, s.UserID)
		}

		chainErr := c.Next()

		if s.Destroyed() {
			sm.ClearCookie(c)
			return chainErr
		}
		if err := sm.Save(ctx, s); err != nil {
			if chainErr != nil {
				return chainErr
			}
			return err
		}
		switch {
		case !s.IsNew() && s.ID != cookieID:
			sm.WriteCookie(c, s)
		case s.IsNew() && cookieID != "":
			sm.ClearCookie(c)
		}
		return chainErr
	}
}
