package models

import (
	"time"
)

// Credential is one `username:hash` line of the credentials file.
type Credential struct {
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
}

// AdminInfo describes the authenticated dashboard operator.
type AdminInfo struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

type ErrorPageData struct {
	Title       string
	StatusCode  int
	Message     string
	Description string
	Technical   string
	RetryURL    string
	ErrorID     string
}

type AuditEvent struct {
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
	Action    string    `json:"action"`
	Method    string    `json:"method"`
	URI       string    `json:"uri"`
	ClientIP  string    `json:"client_ip"`
	UserAgent string    `json:"user_agent"`
	UserID    string    `json:"user_id,omitempty"`
	Success   bool      `json:"success"`
	Details   string    `json:"details,omitempty"`
}

// MFASetupData is rendered on the TOTP provisioning page.
type MFASetupData struct {
	Secret string `json:"secret"`
	URL    string `json:"url"`
	QRCode string `json:"qr_code"`
}

type LoginStepResponse struct {
	Step       string `json:"step"`
	Message    string `json:"message"`
	RequireMFA bool   `json:"require_mfa,omitempty"`
	Redirect   string `json:"redirect,omitempty"`
}
