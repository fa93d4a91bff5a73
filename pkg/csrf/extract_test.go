package csrf

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func extractVia(t *testing.T, method, target, contentType, body string, headers map[string]string) string {
	t.Helper()
	app := fiber.New()
	app.All("/*", func(c *fiber.Ctx) error {
		return c.SendString(Extract(c))
	})
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(out)
}

func TestExtractPrecedence(t *testing.T) {
	form := "application/x-www-form-urlencoded"
	jsonCT := "application/json"

	assert.Equal(t, "header",
		extractVia(t, "POST", "/?csrf_token=query", form, "csrf_token=form", map[string]string{HeaderName: "header"}))
	assert.Equal(t, "form",
		extractVia(t, "POST", "/?csrf_token=query", form, "csrf_token=form", nil))
	assert.Equal(t, "query",
		extractVia(t, "POST", "/?csrf_token=query", jsonCT, `{"csrf_token":"json"}`, nil))
	assert.Equal(t, "json",
		extractVia(t, "POST", "/", jsonCT, `{"csrf_token":"json"}`, nil))
	assert.Equal(t, "",
		extractVia(t, "POST", "/", jsonCT, `not json`, nil))
	assert.Equal(t, "",
		extractVia(t, "GET", "/", "", "", nil))
}
