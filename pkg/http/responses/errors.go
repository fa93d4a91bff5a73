package responses

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"

	"github.com/oarkflow/usermgr/pkg/models"
	"github.com/oarkflow/usermgr/pkg/utils"
)

// Error is a request failure that knows how to present itself to both JSON
// and browser clients. Handlers and middlewares return it; the Errors
// middleware renders it.
type Error struct {
	Status  int
	Title   string
	Message string
	// Fields holds per-field validation messages.
	Fields map[string][]string
	// RetryAfter is sent as the Retry-After header, in seconds.
	RetryAfter int
	// Redirect sends browser clients there with a flash message instead of
	// rendering an error page. It is relative to the mount prefix.
	Redirect string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%d %s: %v", e.Status, e.Message, e.Err)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func AuthenticationRequired(message string) *Error {
	if message == "" {
		message = "Authentication required."
	}
	return &Error{
		Status:   fiber.StatusUnauthorized,
		Title:    "Authentication Required",
		Message:  message,
		Redirect: utils.LoginURI,
	}
}

func AuthorizationDenied(message string) *Error {
	if message == "" {
		message = "You are not allowed to perform this action."
	}
	return &Error{Status: fiber.StatusForbidden, Title: "Forbidden", Message: message}
}

func CSRFInvalid() *Error {
	return &Error{
		Status:  fiber.StatusForbidden,
		Title:   "Invalid Security Token",
		Message: "The security token is missing or invalid. Please reload the page and try again.",
	}
}

func RateLimited(retryAfter int) *Error {
	return &Error{
		Status:     fiber.StatusTooManyRequests,
		Title:      "Too Many Requests",
		Message:    fmt.Sprintf("Too many attempts. Please try again in %s.", humanSeconds(retryAfter)),
		RetryAfter: retryAfter,
	}
}

func ValidationFailed(fields map[string][]string, redirect string) *Error {
	return &Error{
		Status:   fiber.StatusUnprocessableEntity,
		Title:    "Validation Failed",
		Message:  "The given data was invalid.",
		Fields:   fields,
		Redirect: redirect,
	}
}

func Conflict(message, redirect string) *Error {
	return &Error{Status: fiber.StatusConflict, Title: "Conflict", Message: message, Redirect: redirect}
}

func NotFound(message string) *Error {
	if message == "" {
		message = "The requested page could not be found."
	}
	return &Error{Status: fiber.StatusNotFound, Title: "Not Found", Message: message}
}

func StorageWriteFailed(err error) *Error {
	return &Error{
		Status:  fiber.StatusInternalServerError,
		Title:   "Storage Error",
		Message: fmt.Sprintf("The credentials file could not be updated: %v", err),
		Err:     err,
	}
}

func NotImplemented() *Error {
	return &Error{Status: fiber.StatusNotImplemented, Title: "Not Implemented", Message: "Not implemented."}
}

// FromStatus wraps a bare status, e.g. a *fiber.Error raised by the router.
func FromStatus(status int, message string) *Error {
	if message == "" {
		message = http.StatusText(status)
	}
	return &Error{Status: status, Title: http.StatusText(status), Message: message}
}

func Internal(err error) *Error {
	return &Error{
		Status:  fiber.StatusInternalServerError,
		Title:   "Internal Server Error",
		Message: "Something went wrong. Please try again later.",
		Err:     err,
	}
}

// Send writes e to the client: a JSON body for API clients, a flash
// redirect when e names one, or the error page.
func (v *View) Send(c *fiber.Ctx, e *Error) error {
	if e.RetryAfter > 0 {
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(e.RetryAfter))
	}
	if utils.WantsJSON(c) {
		body := fiber.Map{
			"success": false,
			"error":   e.Message,
			"status":  e.Status,
		}
		if len(e.Fields) > 0 {
			body["errors"] = e.Fields
		}
		if e.RetryAfter > 0 {
			body["retry_after"] = e.RetryAfter
		}
		return c.Status(e.Status).JSON(body)
	}
	if e.Redirect != "" {
		data := fiber.Map{"error": e.Message}
		for field, msgs := range e.Fields {
			if len(msgs) > 0 {
				data["error_"+field] = msgs[0]
			}
		}
		return flash.WithError(c, data).Redirect(v.URL(e.Redirect), fiber.StatusSeeOther)
	}
	technical := ""
	if e.Err != nil && e.Status < fiber.StatusInternalServerError {
		technical = e.Err.Error()
	}
	c.Status(e.Status)
	return v.Render(c, utils.ErrorTemplate, models.ErrorPageData{
		Title:      e.Title,
		StatusCode: e.Status,
		Message:    e.Message,
		Technical:  technical,
		RetryURL:   v.URL(utils.LandingURI),
		ErrorID:    utils.RequestID(c),
	})
}

func humanSeconds(s int) string {
	switch {
	case s >= 120:
		return fmt.Sprintf("%d minutes", (s+59)/60)
	case s == 1:
		return "1 second"
	default:
		return fmt.Sprintf("%d seconds", s)
	}
}
