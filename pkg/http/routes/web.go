package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/oarkflow/usermgr/pkg/http/handlers"
	"github.com/oarkflow/usermgr/pkg/http/middlewares"
	"github.com/oarkflow/usermgr/pkg/http/responses"
	"github.com/oarkflow/usermgr/pkg/libs"
	"github.com/oarkflow/usermgr/pkg/ratelimit"
	"github.com/oarkflow/usermgr/pkg/utils"
)

// Setup mounts every route under prefix. Anything not matched ends in a 404.
func Setup(prefix string, router fiber.Router, m *libs.Manager, view *responses.View) {
	h := handlers.New(m, view)
	route := router.Group(prefix,
		middlewares.RequestID(),
		middlewares.Errors(m, view),
		middlewares.AccessLog(m),
		middlewares.SecurityHeaders(m),
		middlewares.CORS(m),
		middlewares.Session(m),
	)
	auth := middlewares.RequireAuth(m)

	route.Get(utils.HealthURI, h.Health)
	route.Get(utils.LandingURI, h.Landing)
	route.Get(utils.LoginURI, h.LoginPage)
	route.Post(utils.LoginURI,
		middlewares.RateLimit(m, ratelimit.ActionLogin),
		middlewares.VerifyCSRF(m, handlers.LoginForm),
		h.PostLogin,
	)
	route.Get(utils.CSRFURI, h.CSRFToken)
	route.Get(utils.StatusURI, h.Status)

	route.Post(utils.LogoutURI, auth, middlewares.VerifyCSRF(m, handlers.LogoutForm), h.PostLogout)
	route.Get(utils.DashboardURI, auth, h.Dashboard)
	route.Post(utils.UsersURI, auth,
		middlewares.VerifyCSRF(m, handlers.UsersForm),
		middlewares.RateLimit(m, ratelimit.ActionAPI),
		h.PostUsers,
	)
	route.Post(utils.UsersDeleteURI, auth, middlewares.VerifyCSRF(m, handlers.UsersForm), h.PostUsersDelete)
	route.Get(utils.APIUsersURI, auth, h.APIUsers)
	route.Get(utils.MFASetupURI, auth, h.MFASetup)

	route.All("/api/*", h.NotImplemented)
	route.Use(h.NotFound)
}
