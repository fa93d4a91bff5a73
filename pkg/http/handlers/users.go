package handlers

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"

	"github.com/oarkflow/usermgr/pkg/credentials"
	"github.com/oarkflow/usermgr/pkg/http/middlewares"
	"github.com/oarkflow/usermgr/pkg/http/requests"
	"github.com/oarkflow/usermgr/pkg/http/responses"
	"github.com/oarkflow/usermgr/pkg/session"
	"github.com/oarkflow/usermgr/pkg/utils"
)

const (
	addUserLock        = "add_user"
	addUserLockTimeout = 10 * time.Second
)

func (h *Handler) usernames() ([]string, error) {
	creds, err := h.m.Credentials.List()
	if errors.Is(err, os.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(creds))
	for _, cred := range creds {
		names = append(names, cred.Username)
	}
	return names, nil
}

func (h *Handler) Dashboard(c *fiber.Ctx) error {
	s := session.FromCtx(c)
	users, err := h.usernames()
	if err != nil {
		return err
	}
	usersToken, err := h.m.CSRF.Issue(c.UserContext(), s, UsersForm)
	if err != nil {
		return err
	}
	if utils.WantsJSON(c) {
		return c.JSON(fiber.Map{"success": true, "users": users, "csrf_token": usersToken})
	}
	logoutToken, err := h.m.CSRF.Issue(c.UserContext(), s, LogoutForm)
	if err != nil {
		return err
	}
	return h.view.Render(c, utils.DashboardTemplate, fiber.Map{
		"Title":             "Users",
		"Admin":             middlewares.Admin(c),
		"Users":             users,
		"CredentialsFile":   h.m.Credentials.Path(),
		"CSRFToken":         usersToken,
		"LogoutToken":       logoutToken,
		"PasswordMinLength": h.m.Config.PasswordPolicy.MinLength,
		"MFAEnabled":        h.m.MFAEnabled(),
		"Flash":             flash.Get(c),
	})
}

func (h *Handler) PostUsers(c *fiber.Ctx) error {
	ctx := c.UserContext()
	s := session.FromCtx(c)
	locked, err := h.m.Sessions.Lock(ctx, s, addUserLock, addUserLockTimeout)
	if err != nil {
		return err
	}
	if !locked {
		return responses.Conflict("Another add-user request is still in progress.", utils.DashboardURI)
	}
	defer func() {
		if err := h.m.Sessions.Unlock(ctx, s, addUserLock); err != nil {
			h.m.Logger.WarnContext(ctx, "could not release add-user lock", "error", err)
		}
	}()

	var req requests.UserRequest
	if err := c.BodyParser(&req); err != nil {
		return responses.FromStatus(fiber.StatusBadRequest, "The form could not be processed.")
	}
	policy := requests.PasswordPolicy{
		MinLength:      h.m.Config.PasswordPolicy.MinLength,
		RequireSpecial: h.m.Config.PasswordPolicy.RequireSpecial,
	}
	if v := req.Validate(policy); v.Fails() {
		return responses.ValidationFailed(v.Errors(), utils.DashboardURI)
	}
	var lookupErr error
	available := req.Available(func(name string) (bool, error) {
		found, err := h.m.UsernameTaken(name)
		lookupErr = err
		return found, err
	})
	if lookupErr != nil {
		return fmt.Errorf("check username: %w", lookupErr)
	}
	if available.Fails() {
		e := responses.Conflict(fmt.Sprintf("User %q already exists.", req.Username), utils.DashboardURI)
		e.Fields = available.Errors()
		return e
	}

	passwordHash, err := credentials.HashPassword(req.Password)
	if err != nil {
		return responses.ValidationFailed(map[string][]string{"password": {err.Error()}}, utils.DashboardURI)
	}
	switch err := h.m.Credentials.Add(req.Username, passwordHash); {
	case errors.Is(err, credentials.ErrDuplicateUser):
		return responses.Conflict(fmt.Sprintf("User %q already exists.", req.Username), utils.DashboardURI)
	case errors.Is(err, credentials.ErrInvalidUsername):
		return responses.ValidationFailed(map[string][]string{"username": {"The username format is invalid."}}, utils.DashboardURI)
	case err != nil:
		return responses.StorageWriteFailed(err)
	}
	utils.LogAuditEvent(c, h.m.Logger, "", utils.AuditActionUserAdded, true, "username "+req.Username)

	message := fmt.Sprintf("User %q added.", req.Username)
	if utils.WantsJSON(c) {
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "message": message, "username": req.Username})
	}
	return flash.WithSuccess(c, fiber.Map{"success": message}).Redirect(h.view.URL(utils.DashboardURI), fiber.StatusSeeOther)
}

func (h *Handler) PostUsersDelete(c *fiber.Ctx) error {
	var req requests.DeleteUserRequest
	if err := c.BodyParser(&req); err != nil {
		return responses.FromStatus(fiber.StatusBadRequest, "The form could not be processed.")
	}
	if v := req.Validate(); v.Fails() {
		return responses.ValidationFailed(v.Errors(), utils.DashboardURI)
	}
	switch err := h.m.Credentials.Delete(req.Username); {
	case errors.Is(err, credentials.ErrUserNotFound), errors.Is(err, os.ErrNotExist):
		e := responses.NotFound(fmt.Sprintf("User %q does not exist.", req.Username))
		e.Redirect = utils.DashboardURI
		return e
	case err != nil:
		return responses.StorageWriteFailed(err)
	}
	utils.LogAuditEvent(c, h.m.Logger, "", utils.AuditActionUserDeleted, true, "username "+req.Username)

	message := fmt.Sprintf("User %q deleted.", req.Username)
	if utils.WantsJSON(c) {
		return c.JSON(fiber.Map{"success": true, "message": message, "username": req.Username})
	}
	return flash.WithSuccess(c, fiber.Map{"success": message}).Redirect(h.view.URL(utils.DashboardURI), fiber.StatusSeeOther)
}

func (h *Handler) APIUsers(c *fiber.Ctx) error {
	users, err := h.usernames()
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "users": users, "count": len(users)})
}
