package csrf

import (
	"encoding/json"
	"strings"

	"github.com/gofiber/fiber/v2"
)

const (
	HeaderName = "X-CSRF-Token"
	FieldName  = "csrf_token"
)

// Extract returns the token submitted with the request. The header wins over
// the form field, the form field over the query string and the query string
// over a JSON body.
func Extract(c *fiber.Ctx) string {
	if v := strings.TrimSpace(c.Get(HeaderName)); v != "" {
		return v
	}
	ct := strings.ToLower(c.Get(fiber.HeaderContentType))
	if v := strings.TrimSpace(formField(c, ct)); v != "" {
		return v
	}
	if v := strings.TrimSpace(c.Query(FieldName)); v != "" {
		return v
	}
	if strings.HasPrefix(ct, fiber.MIMEApplicationJSON) && len(c.Body()) > 0 {
		var body struct {
			Token string `json:"csrf_token"`
		}
		if err := json.Unmarshal(c.Body(), &body); err == nil {
			return strings.TrimSpace(body.Token)
		}
	}
	return ""
}

// formField reads the token from a urlencoded or multipart body only; the
// query string is handled separately to keep the precedence order.
func formField(c *fiber.Ctx, contentType string) string {
	switch {
	case strings.HasPrefix(contentType, fiber.MIMEApplicationForm):
		return string(c.Request().PostArgs().Peek(FieldName))
	case strings.HasPrefix(contentType, fiber.MIMEMultipartForm):
		form, err := c.MultipartForm()
		if err != nil {
			return ""
		}
		if values := form.Value[FieldName]; len(values) > 0 {
			return values[0]
		}
	}
	return ""
}
