package middlewares

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/oarkflow/xid/wuid"

	"github.com/oarkflow/usermgr/pkg/libs"
	"github.com/oarkflow/usermgr/pkg/utils"
)

const RequestIDHeader = "X-Request-ID"

// RequestID tags every request with an id that audit entries and error
// pages refer to.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := wuid.New().String()
		c.Locals(utils.RequestIDKey, id)
		c.Set(RequestIDHeader, id)
		return c.Next()
	}
}

// AccessLog writes one debug line per request.
func AccessLog(m *libs.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		m.Logger.DebugContext(c.UserContext(), "request",
			"request_id", utils.RequestID(c),
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"duration", time.Since(start),
			"client_ip", utils.GetClientIP(c),
		)
		return err
	}
}
