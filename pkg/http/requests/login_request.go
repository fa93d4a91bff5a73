package requests

import (
	"strings"

	"github.com/oarkflow/usermgr/pkg/validation"
)

type LoginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
	OTP      string `json:"otp" form:"otp"`
	Remember bool   `json:"remember" form:"remember"`
}

func (r *LoginRequest) Validate() *validation.Validator {
	r.Username = strings.TrimSpace(r.Username)
	return validation.New(map[string]string{
		"username": r.Username,
		"password": r.Password,
		"otp":      r.OTP,
	}).
		Required("username", "password").
		Max("username", 64).
		Max("password", 1024).
		Integer("otp")
}
