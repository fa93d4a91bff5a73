package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/oarkflow/usermgr/pkg/http/responses"
	"github.com/oarkflow/usermgr/pkg/session"
	"github.com/oarkflow/usermgr/pkg/validation"
)

// csrfRenewThreshold is how close to expiry a token may get before
// /api/csrf replaces it.
const csrfRenewThreshold = 5 * time.Minute

func (h *Handler) CSRFToken(c *fiber.Ctx) error {
	form := c.Query("form", LogoutForm)
	v := validation.New(map[string]string{"form": form}).In("form", LoginForm, UsersForm, LogoutForm)
	if v.Fails() {
		return responses.ValidationFailed(v.Errors(), "")
	}
	ctx := c.UserContext()
	s := session.FromCtx(c)
	token, err := h.m.CSRF.AutoRenew(ctx, s, form, csrfRenewThreshold)
	if err != nil {
		return err
	}
	left, err := h.m.CSRF.Remaining(ctx, s, form)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success":    true,
		"csrf_token": token,
		"form":       form,
		"expires_in": int(left.Seconds()),
	})
}

func (h *Handler) Status(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"status":  "ok",
		"app":     h.m.Config.AppName,
		"time":    h.m.Now().UTC(),
	})
}

func (h *Handler) NotImplemented(c *fiber.Ctx) error {
	return responses.NotImplemented()
}
