package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"

	"github.com/oarkflow/usermgr/pkg/http/middlewares"
	"github.com/oarkflow/usermgr/pkg/http/requests"
	"github.com/oarkflow/usermgr/pkg/http/responses"
	"github.com/oarkflow/usermgr/pkg/libs"
	"github.com/oarkflow/usermgr/pkg/models"
	"github.com/oarkflow/usermgr/pkg/ratelimit"
	"github.com/oarkflow/usermgr/pkg/session"
	"github.com/oarkflow/usermgr/pkg/utils"
)

func (h *Handler) LoginPage(c *fiber.Ctx) error {
	s := session.FromCtx(c)
	if s.IsLoggedIn() {
		return c.Redirect(h.view.URL(utils.DashboardURI), fiber.StatusSeeOther)
	}
	token, err := h.m.CSRF.Issue(c.UserContext(), s, LoginForm)
	if err != nil {
		return err
	}
	if utils.WantsJSON(c) {
		return c.JSON(fiber.Map{
			"success":     true,
			"csrf_token":  token,
			"require_mfa": h.m.MFAEnabled(),
		})
	}
	return h.view.Render(c, utils.LoginTemplate, fiber.Map{
		"Title":      "Sign in",
		"AppName":    h.m.Config.AppName,
		"CSRFToken":  token,
		"RequireMFA": h.m.MFAEnabled(),
		"Flash":      flash.Get(c),
	})
}

func (h *Handler) PostLogin(c *fiber.Ctx) error {
	var req requests.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return responses.FromStatus(fiber.StatusBadRequest, "The login form could not be processed.")
	}
	if v := req.Validate(); v.Fails() {
		return responses.ValidationFailed(v.Errors(), utils.LoginURI)
	}

	info, err := h.m.AuthenticateAdmin(req.Username, req.Password, req.OTP)
	if err != nil {
		utils.LogAuditEvent(c, h.m.Logger, "", utils.AuditActionLogin, false, err.Error()+": "+utils.SanitizeInput(req.Username))
		if errors.Is(err, libs.ErrMFARequired) {
			if utils.WantsJSON(c) {
				return c.Status(fiber.StatusUnauthorized).JSON(models.LoginStepResponse{
					Step:       "mfa",
					Message:    "Enter the code from your authenticator app.",
					RequireMFA: true,
				})
			}
			return responses.AuthenticationRequired("Enter the code from your authenticator app.")
		}
		if errors.Is(err, libs.ErrInvalidMFACode) {
			return responses.AuthenticationRequired("The one-time code is invalid.")
		}
		return responses.AuthenticationRequired("Invalid username or password.")
	}

	ctx := c.UserContext()
	s := session.FromCtx(c)
	attrs := session.Attributes{Username: info.Username, Role: info.Role}
	if err := h.m.Sessions.Login(ctx, s, session.ClientFromCtx(c), info.UserID, attrs); err != nil {
		return err
	}
	if err := h.m.Limiter.Reset(ctx, ratelimit.ActionLogin, middlewares.ClientIdentifier(c)); err != nil {
		h.m.Logger.WarnContext(ctx, "could not reset login rate limit", "error", err)
	}
	if req.Remember {
		token, err := h.m.IssueRememberToken(info.UserID)
		if err != nil {
			return err
		}
		if _, err := h.m.Sessions.SetRememberMe(c, info.UserID, token); err != nil {
			return err
		}
	}
	utils.LogAuditEvent(c, h.m.Logger, info.UserID, utils.AuditActionLogin, true, "")

	if utils.WantsJSON(c) {
		return c.JSON(models.LoginStepResponse{
			Step:     "complete",
			Message:  "Signed in.",
			Redirect: h.view.URL(utils.DashboardURI),
		})
	}
	return c.Redirect(h.view.URL(utils.DashboardURI), fiber.StatusSeeOther)
}

func (h *Handler) PostLogout(c *fiber.Ctx) error {
	ctx := c.UserContext()
	s := session.FromCtx(c)
	userID := s.UserID
	if err := h.m.Logouts.SetUserLogout(ctx, userID); err != nil {
		return err
	}
	if err := h.m.Sessions.Logout(ctx, s); err != nil {
		return err
	}
	h.m.Sessions.ClearRememberMe(c)
	utils.LogAuditEvent(c, h.m.Logger, userID, utils.AuditActionLogout, true, "")

	if utils.WantsJSON(c) {
		return c.JSON(fiber.Map{"success": true, "redirect": h.view.URL(utils.LoginURI)})
	}
	return flash.WithSuccess(c, fiber.Map{"success": "You have been signed out."}).
		Redirect(h.view.URL(utils.LoginURI), fiber.StatusSeeOther)
}

func (h *Handler) MFASetup(c *fiber.Ctx) error {
	data, err := h.m.SetupMFA()
	if err != nil {
		return err
	}
	if utils.WantsJSON(c) {
		return c.JSON(fiber.Map{"success": true, "mfa": data, "enabled": h.m.MFAEnabled()})
	}
	return h.view.Render(c, utils.MFASetupTemplate, fiber.Map{
		"Title":   "Two-factor setup",
		"Setup":   data,
		"Enabled": h.m.MFAEnabled(),
		"Admin":   middlewares.Admin(c),
	})
}
