package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/oarkflow/usermgr/pkg/csrf"
	"github.com/oarkflow/usermgr/pkg/http/responses"
	"github.com/oarkflow/usermgr/pkg/libs"
	"github.com/oarkflow/usermgr/pkg/session"
	"github.com/oarkflow/usermgr/pkg/utils"
)

// Form names CSRF tokens are scoped to.
const (
	LoginForm  = "login"
	UsersForm  = "users"
	LogoutForm = csrf.DefaultForm
)

type Handler struct {
	m    *libs.Manager
	view *responses.View
}

func New(m *libs.Manager, view *responses.View) *Handler {
	return &Handler{m: m, view: view}
}

func (h *Handler) Landing(c *fiber.Ctx) error {
	if session.FromCtx(c).IsLoggedIn() {
		return c.Redirect(h.view.URL(utils.DashboardURI), fiber.StatusSeeOther)
	}
	return c.Redirect(h.view.URL(utils.LoginURI), fiber.StatusSeeOther)
}

func (h *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *Handler) NotFound(c *fiber.Ctx) error {
	return responses.NotFound("")
}
