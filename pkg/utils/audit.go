package utils

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/oarkflow/usermgr/pkg/models"
)

const (
	AuditActionLogin               = "login"
	AuditActionLogout              = "logout"
	AuditActionRemembered          = "remember_me_login"
	AuditActionUnauthorized        = "unauthorized"
	AuditActionForbidden           = "forbidden"
	AuditActionCSRFFailure         = "csrf_failure"
	AuditActionCORSViolation       = "cors_violation"
	AuditActionRateLimited         = "rate_limited"
	AuditActionFingerprintMismatch = "fingerprint_mismatch"
	AuditActionSessionExpired      = "session_expired"
	AuditActionUserAdded           = "user_added"
	AuditActionUserDeleted         = "user_deleted"
	AuditActionRequest             = "request"

	RequestIDKey = "usermgr.request_id"
	UserIDKey    = "usermgr.user_id"
)

func RequestID(c *fiber.Ctx) string {
	id, _ := c.Locals(RequestIDKey).(string)
	return id
}

// LogAuditEvent records a security-relevant event with the caller's IP,
// URI and, when known, user id. Failed events are logged at warn level.
func LogAuditEvent(c *fiber.Ctx, logger *slog.Logger, userID, action string, success bool, details string) {
	if logger == nil {
		logger = slog.Default()
	}
	if userID == "" {
		userID, _ = c.Locals(UserIDKey).(string)
	}
	event := models.AuditEvent{
		Timestamp: time.Now(),
		RequestID: RequestID(c),
		Action:    action,
		Method:    c.Method(),
		URI:       c.OriginalURL(),
		ClientIP:  GetClientIP(c),
		UserAgent: c.Get(fiber.HeaderUserAgent),
		UserID:    userID,
		Success:   success,
		Details:   details,
	}
	attrs := []any{
		"audit", true,
		"request_id", event.RequestID,
		"action", event.Action,
		"method", event.Method,
		"uri", event.URI,
		"client_ip", event.ClientIP,
		"user_agent", event.UserAgent,
		"user_id", event.UserID,
		"success", event.Success,
	}
	if details != "" {
		attrs = append(attrs, "details", details)
	}
	if success {
		logger.InfoContext(c.UserContext(), "audit event", attrs...)
		return
	}
	logger.WarnContext(c.UserContext(), "audit event", attrs...)
}
