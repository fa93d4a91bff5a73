package middlewares

import (
	"slices"

	"github.com/gofiber/fiber/v2"

	"github.com/oarkflow/usermgr/pkg/http/responses"
	"github.com/oarkflow/usermgr/pkg/libs"
	"github.com/oarkflow/usermgr/pkg/utils"
)

const contentSecurityPolicy = "default-src 'self'; script-src 'self' 'unsafe-inline' https://cdn.tailwindcss.com; style-src 'self' 'unsafe-inline' https://cdn.tailwindcss.com; img-src 'self' data:; font-src 'self'; connect-src 'self'; frame-ancestors 'self'"

func SecurityHeaders(m *libs.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if m.Config.EnableSecurityHeaders {
			c.Set("X-Content-Type-Options", "nosniff")
			c.Set("X-Frame-Options", "SAMEORIGIN")
			c.Set("X-XSS-Protection", "1; mode=block")
			c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			c.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
			c.Set("Content-Security-Policy", contentSecurityPolicy)
			if m.Config.EnableHTTPS || c.Secure() {
				c.Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains")
			}
		}
		return c.Next()
	}
}

// CORS admits same-origin requests and the configured origins. A foreign
// Origin is refused with 403 and audited.
func CORS(m *libs.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		origin := c.Get(fiber.HeaderOrigin)
		if origin == "" || origin == c.BaseURL() {
			return c.Next()
		}
		allowed := slices.Contains(m.Config.CORSOrigins, "*") || slices.Contains(m.Config.CORSOrigins, origin)
		if !allowed {
			utils.LogAuditEvent(c, m.Logger, "", utils.AuditActionCORSViolation, false, "origin "+origin+" not allowed")
			return responses.AuthorizationDenied("Cross-origin request denied.")
		}

		c.Set(fiber.HeaderAccessControlAllowOrigin, origin)
		c.Set(fiber.HeaderAccessControlAllowCredentials, "true")
		c.Set(fiber.HeaderVary, fiber.HeaderOrigin)
		if c.Method() == fiber.MethodOptions {
			c.Set(fiber.HeaderAccessControlAllowMethods, "GET,HEAD,OPTIONS,POST")
			c.Set(fiber.HeaderAccessControlAllowHeaders, "Origin, Accept, Content-Type, X-Requested-With, X-CSRF-Token")
			return c.SendStatus(fiber.StatusNoContent)
		}
		return c.Next()
	}
}
