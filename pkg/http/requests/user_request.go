package requests

import (
	"regexp"
	"strings"

	"github.com/oarkflow/usermgr/pkg/validation"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9._@-]+$`)

// PasswordPolicy mirrors the configured strength requirements.
type PasswordPolicy struct {
	MinLength      int
	RequireSpecial bool
}

type UserRequest struct {
	Username             string `json:"username" form:"username"`
	Password             string `json:"password" form:"password"`
	PasswordConfirmation string `json:"password_confirmation" form:"password_confirmation"`
}

func (r *UserRequest) Validate(policy PasswordPolicy) *validation.Validator {
	r.Username = strings.TrimSpace(r.Username)
	return validation.New(map[string]string{
		"username":              r.Username,
		"password":              r.Password,
		"password_confirmation": r.PasswordConfirmation,
	}).
		Required("username", "password", "password_confirmation").
		Between("username", 3, 64).
		Regex("username", usernamePattern).
		Password("password", policy.MinLength, policy.RequireSpecial).
		Max("password", 72).
		Same("password_confirmation", "password")
}

// Available checks that the username is not already in the credentials
// file. It runs after Validate so the lookup only sees well-formed names.
func (r *UserRequest) Available(taken validation.Lookup) *validation.Validator {
	return validation.New(map[string]string{"username": r.Username}).
		Unique("username", taken)
}

type DeleteUserRequest struct {
	Username string `json:"username" form:"username"`
}

func (r *DeleteUserRequest) Validate() *validation.Validator {
	r.Username = strings.TrimSpace(r.Username)
	return validation.New(map[string]string{"username": r.Username}).
		Required("username").
		Regex("username", usernamePattern)
}
