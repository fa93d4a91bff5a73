package middlewares

import (
	"github.com/gofiber/fiber/v2"

	"github.com/oarkflow/usermgr/pkg/http/responses"
	"github.com/oarkflow/usermgr/pkg/libs"
	"github.com/oarkflow/usermgr/pkg/models"
	"github.com/oarkflow/usermgr/pkg/session"
	"github.com/oarkflow/usermgr/pkg/utils"
)

const AdminKey = "usermgr.admin"

// Admin returns the operator authenticated by RequireAuth.
func Admin(c *fiber.Ctx) models.AdminInfo {
	info, _ := c.Locals(AdminKey).(models.AdminInfo)
	return info
}

// RequireAuth lets logged-in sessions through, signs the admin back in from
// a valid remember-me cookie, and rejects everyone else with 401. A session
// presented by a different client is logged out.
func RequireAuth(m *libs.Manager) fiber.Handler {
	sm := m.Sessions
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		s := session.FromCtx(c)
		client := session.ClientFromCtx(c)

		if s.IsLoggedIn() {
			if !sm.ValidateFingerprint(s, client) {
				userID := s.UserID
				if err := sm.Logout(ctx, s); err != nil {
					return err
				}
				sm.ClearRememberMe(c)
				utils.LogAuditEvent(c, m.Logger, userID, utils.AuditActionFingerprintMismatch, false, "session used from a different client")
				return responses.AuthenticationRequired("Your session is no longer valid. Please sign in again.")
			}
			return proceed(c, models.AdminInfo{UserID: s.UserID, Username: s.Username, Role: s.Role})
		}

		if rm, ok := sm.GetRememberMe(c); ok {
			info, err := m.ValidateRememberToken(ctx, rm)
			if err == nil {
				attrs := session.Attributes{Username: info.Username, Role: info.Role}
				if err := sm.Login(ctx, s, client, info.UserID, attrs); err != nil {
					return err
				}
				utils.LogAuditEvent(c, m.Logger, info.UserID, utils.AuditActionRemembered, true, "")
				return proceed(c, info)
			}
			sm.ClearRememberMe(c)
		}

		utils.LogAuditEvent(c, m.Logger, "", utils.AuditActionUnauthorized, false, "")
		return responses.AuthenticationRequired("")
	}
}

func proceed(c *fiber.Ctx, info models.AdminInfo) error {
	c.Locals(AdminKey, info)
	c.Locals(utils.UserIDKey, info.UserID)
	c.Set(fiber.HeaderCacheControl, "no-cache, no-store, must-revalidate")
	c.Set("Pragma", "no-cache")
	return c.Next()
}
