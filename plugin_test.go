package usermgr

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oarkflow/usermgr/pkg/cache"
	"github.com/oarkflow/usermgr/pkg/config"
	"github.com/oarkflow/usermgr/pkg/credentials"
	"github.com/oarkflow/usermgr/pkg/libs"
)

const (
	adminUser     = "admin"
	adminPassword = "Adm1n!pass"
	testUA        = "usermgr-test/1.0"
)

type testEnv struct {
	app       *fiber.App
	manager   *libs.Manager
	credsPath string
}

// newTestEnv trusts the in-memory peer fiber's test transport reports as a
// proxy, so each browser's X-Forwarded-For picks its client address.
func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	return newTestEnvWith(t, map[string]any{"USERMGR_TRUSTED_PROXIES": "0.0.0.0"}, opts...)
}

func newTestEnvWith(t *testing.T, overrides map[string]any, opts ...Option) *testEnv {
	t.Helper()
	credsPath := filepath.Join(t.TempDir(), ".htpasswd")
	values := map[string]any{
		"USERMGR_SECRET":           "0123456789abcdef0123456789abcdef",
		"USERMGR_CREDENTIALS_FILE": credsPath,
		"USERMGR_CORS_ORIGINS":     "https://intranet.example",
		"ADMIN_USERNAME":           adminUser,
		"ADMIN_PASSWORD":           adminPassword,
	}
	for k, v := range overrides {
		values[k] = v
	}
	kc := config.FromMap(values)
	config.Load(kc)
	cfg, err := libs.LoadConfig(kc)
	require.NoError(t, err)

	m, err := libs.NewManager(cfg, cache.NewMemory(), credentials.NewFileStore(credsPath), libs.WithLogger(libs.NoopLogger()))
	require.NoError(t, err)

	app := fiber.New(cfg.FiberConfig(fiber.Config{}))
	plugin := NewPluginWithOptions(append([]Option{WithApp(app), WithManager(m)}, opts...)...)
	require.NoError(t, plugin.Register())
	t.Cleanup(func() { _ = plugin.Close() })
	return &testEnv{app: app, manager: m, credsPath: credsPath}
}

// browser keeps cookies between requests the way a user agent would.
type browser struct {
	t   *testing.T
	env *testEnv
	ip  string
	ua  string
	jar map[string]string
}

func (e *testEnv) browser(t *testing.T, ip string) *browser {
	return &browser{t: t, env: e, ip: ip, ua: testUA, jar: map[string]string{}}
}

type reqOpt func(*http.Request)

func asJSON(r *http.Request) {
	r.Header.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
}

func withHeader(k, v string) reqOpt {
	return func(r *http.Request) { r.Header.Set(k, v) }
}

func (b *browser) do(method, path string, body io.Reader, contentType string, opts ...reqOpt) *http.Response {
	b.t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set(fiber.HeaderContentType, contentType)
	}
	req.Header.Set(fiber.HeaderUserAgent, b.ua)
	req.Header.Set(fiber.HeaderXForwardedFor, b.ip)
	for name, value := range b.jar {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}
	for _, opt := range opts {
		opt(req)
	}
	resp, err := b.env.app.Test(req, -1)
	require.NoError(b.t, err)
	for _, ck := range resp.Cookies() {
		if ck.Value == "" || ck.MaxAge < 0 || (!ck.Expires.IsZero() && ck.Expires.Before(time.Now())) {
			delete(b.jar, ck.Name)
			continue
		}
		b.jar[ck.Name] = ck.Value
	}
	return resp
}

func (b *browser) get(path string, opts ...reqOpt) *http.Response {
	return b.do(fiber.MethodGet, path, nil, "", opts...)
}

func (b *browser) postForm(path string, form url.Values, opts ...reqOpt) *http.Response {
	return b.do(fiber.MethodPost, path, strings.NewReader(form.Encode()), fiber.MIMEApplicationForm, opts...)
}

func (b *browser) postJSON(path string, payload map[string]any) *http.Response {
	raw, err := json.Marshal(payload)
	require.NoError(b.t, err)
	return b.do(fiber.MethodPost, path, strings.NewReader(string(raw)), fiber.MIMEApplicationJSON)
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (b *browser) loginToken() string {
	b.t.Helper()
	resp := b.get("/login", asJSON)
	require.Equal(b.t, fiber.StatusOK, resp.StatusCode)
	token, _ := decode(b.t, resp)["csrf_token"].(string)
	require.Len(b.t, token, 64)
	return token
}

func (b *browser) formToken(form string) string {
	b.t.Helper()
	resp := b.get("/api/csrf?form=" + form)
	require.Equal(b.t, fiber.StatusOK, resp.StatusCode)
	token, _ := decode(b.t, resp)["csrf_token"].(string)
	require.NotEmpty(b.t, token)
	return token
}

func (b *browser) login(remember bool) {
	b.t.Helper()
	form := url.Values{
		"username":   {adminUser},
		"password":   {adminPassword},
		"csrf_token": {b.loginToken()},
	}
	if remember {
		form.Set("remember", "true")
	}
	resp := b.postForm("/login", form, asJSON)
	require.Equal(b.t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(b.t, "complete", decode(b.t, resp)["step"])
}

func TestLoginRateLimit(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t, "203.0.113.7")

	for attempt := 1; attempt <= 6; attempt++ {
		form := url.Values{
			"username":   {adminUser},
			"password":   {"wrong-password"},
			"csrf_token": {b.loginToken()},
		}
		resp := b.postForm("/login", form, asJSON)
		body := decode(t, resp)
		if attempt <= 5 {
			assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, "attempt %d", attempt)
			assert.Equal(t, "Invalid username or password.", body["error"])
			continue
		}
		assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
		assert.Equal(t, "900", resp.Header.Get(fiber.HeaderRetryAfter))
		assert.Equal(t, "0", resp.Header.Get("X-RateLimit-Remaining"))
		assert.Equal(t, float64(900), body["retry_after"])
	}

	other := env.browser(t, "198.51.100.9")
	other.login(false)
}

func TestLoginRateLimitIgnoresUntrustedForwardingHeaders(t *testing.T) {
	env := newTestEnvWith(t, nil)
	b := env.browser(t, "")

	for attempt := 1; attempt <= 6; attempt++ {
		b.ip = fmt.Sprintf("198.51.100.%d", attempt)
		form := url.Values{
			"username":   {adminUser},
			"password":   {"wrong-password"},
			"csrf_token": {b.loginToken()},
		}
		resp := b.postForm("/login", form, asJSON)
		resp.Body.Close()
		if attempt <= 5 {
			assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, "attempt %d", attempt)
			continue
		}
		assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	}
}

func TestLoginRequiresCSRF(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t, "203.0.113.8")
	b.loginToken()

	resp := b.postForm("/login", url.Values{"username": {adminUser}, "password": {adminPassword}}, asJSON)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = b.postForm("/login", url.Values{"username": {adminUser}, "password": {adminPassword}, "csrf_token": {strings.Repeat("0", 64)}}, asJSON)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestLoginTokenIsSingleUse(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t, "203.0.113.9")
	token := b.loginToken()
	form := url.Values{"username": {adminUser}, "password": {"nope"}, "csrf_token": {token}}

	resp := b.postForm("/login", form, asJSON)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	resp = b.postForm("/login", form, asJSON)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestLoginValidation(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t, "203.0.113.10")

	resp := b.postForm("/login", url.Values{"username": {"  "}, "csrf_token": {b.loginToken()}}, asJSON)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	errs, _ := decode(t, resp)["errors"].(map[string]any)
	assert.Contains(t, errs, "username")
	assert.Contains(t, errs, "password")
}

func TestDashboardRequiresLogin(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t, "203.0.113.11")

	resp := b.get("/dashboard", asJSON)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp = b.get("/dashboard")
	assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get(fiber.HeaderLocation))

	resp = b.get("/api/users")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestManageUsers(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t, "203.0.113.12")
	b.login(false)

	resp := b.get("/dashboard", asJSON)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decode(t, resp)
	assert.Empty(t, body["users"])
	token, _ := body["csrf_token"].(string)

	resp = b.postJSON("/users", map[string]any{
		"username":              "alice",
		"password":              "Abcdef1!",
		"password_confirmation": "Abcdef1!",
		"csrf_token":            token,
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	raw, err := os.ReadFile(env.credsPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "alice:$2"), string(raw))

	resp = b.postJSON("/users", map[string]any{
		"username":              "alice",
		"password":              "Abcdef1!",
		"password_confirmation": "Abcdef1!",
		"csrf_token":            b.formToken("users"),
	})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	errs, _ := decode(t, resp)["errors"].(map[string]any)
	assert.Contains(t, errs, "username")

	resp = b.postJSON("/users", map[string]any{
		"username":              "bob",
		"password":              "alllowercase1",
		"password_confirmation": "alllowercase1",
		"csrf_token":            b.formToken("users"),
	})
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	errs, _ = decode(t, resp)["errors"].(map[string]any)
	assert.Contains(t, errs, "password")

	resp = b.postJSON("/users", map[string]any{"username": "carol", "password": "Abcdef1!", "password_confirmation": "Abcdef1!"})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = b.get("/api/users")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body = decode(t, resp)
	assert.Equal(t, []any{"alice"}, body["users"])
	assert.Equal(t, float64(1), body["count"])

	resp = b.postJSON("/users/delete", map[string]any{"username": "alice", "csrf_token": b.formToken("users")})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = b.postJSON("/users/delete", map[string]any{"username": "alice", "csrf_token": b.formToken("users")})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	raw, err = os.ReadFile(env.credsPath)
	require.NoError(t, err)
	assert.Empty(t, string(raw))
}

func TestAddUserBrowserRedirects(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t, "203.0.113.13")
	b.login(false)

	form := url.Values{
		"username":              {"dave"},
		"password":              {"Abcdef1!"},
		"password_confirmation": {"Abcdef1!"},
		"csrf_token":            {b.formToken("users")},
	}
	resp := b.postForm("/users", form)
	assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/dashboard", resp.Header.Get(fiber.HeaderLocation))

	resp = b.get("/dashboard")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	html, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(html), "dave")
	assert.Contains(t, string(html), `name="csrf_token"`)
}

func TestFingerprintMismatchLogsOut(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t, "203.0.113.14")
	b.login(false)

	require.Equal(t, fiber.StatusOK, b.get("/api/users").StatusCode)

	b.ua = "something-else/2.0"
	assert.Equal(t, fiber.StatusUnauthorized, b.get("/api/users").StatusCode)

	b.ua = testUA
	assert.Equal(t, fiber.StatusUnauthorized, b.get("/api/users").StatusCode)
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t, "203.0.113.15")
	b.login(false)

	resp := b.postForm("/logout", url.Values{"csrf_token": {b.formToken("default")}}, asJSON)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	assert.Equal(t, fiber.StatusUnauthorized, b.get("/api/users").StatusCode)
}

func TestRememberMe(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t, "203.0.113.16")
	b.login(true)

	remember := b.jar["USERMGR_REMEMBER"]
	require.NotEmpty(t, remember)

	fresh := env.browser(t, "203.0.113.16")
	fresh.jar["USERMGR_REMEMBER"] = remember
	resp := fresh.get("/api/users")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, fresh.jar["USERMGR_SESSION"])

	resp = fresh.postForm("/logout", url.Values{"csrf_token": {fresh.formToken("default")}}, asJSON)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Empty(t, fresh.jar["USERMGR_REMEMBER"])

	replay := env.browser(t, "203.0.113.16")
	replay.jar["USERMGR_REMEMBER"] = remember
	assert.Equal(t, fiber.StatusUnauthorized, replay.get("/api/users").StatusCode)
}

func TestPublicEndpoints(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t, "203.0.113.17")

	resp := b.get("/health")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decode(t, resp)["status"])
	assert.Equal(t, "SAMEORIGIN", resp.Header.Get("X-Frame-Options"))
	assert.Contains(t, resp.Header.Get("Content-Security-Policy"), "https://cdn.tailwindcss.com")
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	resp = b.get("/api/status")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = b.get("/api/anything")
	assert.Equal(t, fiber.StatusNotImplemented, resp.StatusCode)

	resp = b.get("/does-not-exist", asJSON)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp = b.get("/does-not-exist")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	html, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(html), "Not Found")

	resp = b.get("/")
	assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get(fiber.HeaderLocation))

	resp = b.get("/api/csrf?form=bogus")
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t, "203.0.113.18")

	resp := b.get("/health", withHeader(fiber.HeaderOrigin, "https://evil.example"))
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = b.get("/health", withHeader(fiber.HeaderOrigin, "https://intranet.example"))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "https://intranet.example", resp.Header.Get(fiber.HeaderAccessControlAllowOrigin))
}

func TestLoginPageRenders(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t, "203.0.113.19")

	resp := b.get("/login")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	html, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(html), `name="csrf_token"`)
	assert.Contains(t, string(html), "cdn.tailwindcss.com")
	assert.NotEmpty(t, b.jar["USERMGR_SESSION"])
}

func TestMountedUnderPrefix(t *testing.T) {
	env := newTestEnv(t, WithPrefix("/admin"))
	b := env.browser(t, "203.0.113.20")

	resp := b.get("/admin/dashboard")
	assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/admin/login", resp.Header.Get(fiber.HeaderLocation))

	resp = b.get("/admin")
	assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/admin/login", resp.Header.Get(fiber.HeaderLocation))

	resp = b.get("/admin/login")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	html, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(html), `action="/admin/login"`)

	resp = b.get("/admin/login", asJSON)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	token, _ := decode(t, resp)["csrf_token"].(string)
	resp = b.postForm("/admin/login", url.Values{
		"username":   {adminUser},
		"password":   {adminPassword},
		"csrf_token": {token},
	}, asJSON)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "/admin/dashboard", decode(t, resp)["redirect"])

	resp = b.get("/admin/api/status")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
