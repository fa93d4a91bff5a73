package utils

import "strings"

var (
	LandingURI     = "/"
	HealthURI      = "/health"
	LoginURI       = "/login"
	LogoutURI      = "/logout"
	DashboardURI   = "/dashboard"
	UsersURI       = "/users"
	UsersDeleteURI = "/users/delete"
	APIUsersURI    = "/api/users"
	CSRFURI        = "/api/csrf"
	StatusURI      = "/api/status"
	MFASetupURI    = "/mfa/setup"
)

var (
	LoginTemplate     = "views/login"
	DashboardTemplate = "views/dashboard"
	ErrorTemplate     = "views/error"
	MFASetupTemplate  = "views/mfa-setup"
	Layout            = "views/layouts/main"
)

// JoinURI places path under the prefix the routes are mounted at.
func JoinURI(prefix, path string) string {
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		return path
	}
	if path == "/" || path == "" {
		return prefix
	}
	return prefix + path
}

func GetURIs(prefix string) map[string]string {
	return map[string]string{
		"Landing":     JoinURI(prefix, LandingURI),
		"Health":      JoinURI(prefix, HealthURI),
		"Login":       JoinURI(prefix, LoginURI),
		"Logout":      JoinURI(prefix, LogoutURI),
		"Dashboard":   JoinURI(prefix, DashboardURI),
		"Users":       JoinURI(prefix, UsersURI),
		"UsersDelete": JoinURI(prefix, UsersDeleteURI),
		"APIUsers":    JoinURI(prefix, APIUsersURI),
		"CSRF":        JoinURI(prefix, CSRFURI),
		"Status":      JoinURI(prefix, StatusURI),
		"MFASetup":    JoinURI(prefix, MFASetupURI),
	}
}
