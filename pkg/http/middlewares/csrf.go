package middlewares

import (
	"github.com/gofiber/fiber/v2"

	"github.com/oarkflow/usermgr/pkg/csrf"
	"github.com/oarkflow/usermgr/pkg/http/responses"
	"github.com/oarkflow/usermgr/pkg/libs"
	"github.com/oarkflow/usermgr/pkg/session"
	"github.com/oarkflow/usermgr/pkg/utils"
)

// VerifyCSRF rejects the request with 403 unless it carries the session's
// token for form.
func VerifyCSRF(m *libs.Manager, form string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s := session.FromCtx(c)
		if s == nil {
			return responses.CSRFInvalid()
		}
		ok, err := m.CSRF.Verify(c.UserContext(), s, csrf.Extract(c), form)
		if err != nil {
			return err
		}
		if !ok {
			utils.LogAuditEvent(c, m.Logger, "", utils.AuditActionCSRFFailure, false, "form "+form)
			return responses.CSRFInvalid()
		}
		return c.Next()
	}
}
