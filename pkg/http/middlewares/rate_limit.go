package middlewares

import (
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/oarkflow/usermgr/pkg/http/responses"
	"github.com/oarkflow/usermgr/pkg/libs"
	"github.com/oarkflow/usermgr/pkg/ratelimit"
	"github.com/oarkflow/usermgr/pkg/utils"
)

// RateLimit counts the request against action for the client and answers
// 429 once the client is blocked.
func RateLimit(m *libs.Manager, action string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := ClientIdentifier(c)
		status, err := m.Limiter.IsLimited(c.UserContext(), action, id)
		if err != nil {
			return fmt.Errorf("rate limit %s: %w", action, err)
		}
		if m.Config.RateLimitHeaders {
			c.Set("X-RateLimit-Limit", strconv.Itoa(status.Limit))
			c.Set("X-RateLimit-Remaining", strconv.Itoa(status.Remaining))
			c.Set("X-RateLimit-Reset", strconv.FormatInt(m.Now().Add(status.RetryAfter).Unix(), 10))
		}
		if status.Limited {
			utils.LogAuditEvent(c, m.Logger, "", utils.AuditActionRateLimited, false,
				fmt.Sprintf("action %s blocked for %ds", action, status.RetryAfterSeconds()))
			return responses.RateLimited(status.RetryAfterSeconds())
		}
		return c.Next()
	}
}

// ClientIdentifier is the rate-limit key for the requesting client.
func ClientIdentifier(c *fiber.Ctx) string {
	return ratelimit.Identifier(utils.GetClientIP(c), c.Get(fiber.HeaderUserAgent))
}
