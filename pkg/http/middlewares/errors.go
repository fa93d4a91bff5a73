package middlewares

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/oarkflow/usermgr/pkg/http/responses"
	"github.com/oarkflow/usermgr/pkg/libs"
	"github.com/oarkflow/usermgr/pkg/utils"
)

// Errors renders whatever error the rest of the chain returns. Unknown
// errors are logged and shown as a generic 500.
func Errors(m *libs.Manager, view *responses.View) fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		if err == nil {
			return nil
		}
		var e *responses.Error
		if !errors.As(err, &e) {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				e = responses.FromStatus(fe.Code, fe.Message)
			} else {
				e = responses.Internal(err)
			}
		}
		if e.Status >= fiber.StatusInternalServerError {
			m.Logger.ErrorContext(c.UserContext(), "request failed",
				"request_id", utils.RequestID(c),
				"method", c.Method(),
				"path", c.Path(),
				"error", err,
			)
		}
		return view.Send(c, e)
	}
}
