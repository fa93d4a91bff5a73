package utils

import (
	"net"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// GetClientIP returns the client address as fiber resolves it. Forwarding
// headers count only when the app trusts the sending proxy through
// fiber.Config ProxyHeader, EnableTrustedProxyCheck and TrustedProxies.
func GetClientIP(c *fiber.Ctx) string {
	ip := c.IP()
	if comma := strings.IndexByte(ip, ','); comma >= 0 {
		ip = ip[:comma]
	}
	ip = strings.TrimSpace(ip)
	if host, _, err := net.SplitHostPort(ip); err == nil {
		return host
	}
	return ip
}

// WantsJSON reports whether the response should be JSON instead of HTML.
func WantsJSON(c *fiber.Ctx) bool {
	if strings.Contains(c.Path(), "/api/") {
		return true
	}
	if strings.HasPrefix(strings.ToLower(c.Get(fiber.HeaderContentType)), fiber.MIMEApplicationJSON) {
		return true
	}
	if strings.EqualFold(c.Get("X-Requested-With"), "XMLHttpRequest") {
		return true
	}
	accept := c.Get(fiber.HeaderAccept)
	return accept != "" && c.Accepts(fiber.MIMETextHTML, fiber.MIMEApplicationJSON) == fiber.MIMEApplicationJSON
}

func SanitizeInput(input string) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		switch r {
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '"':
			b.WriteString("&quot;")
		case '\'':
			b.WriteString("&#39;")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
