package ratelimit

import "time"

const (
	ActionLogin         = "login"
	ActionRegister      = "register"
	ActionAPI           = "api"
	ActionPasswordReset = "password_reset"
	ActionEmail         = "email"
)

// Rule configures one action: MaxAttempts per Window, then a block lasting
// BlockDuration.
type Rule struct {
	MaxAttempts   int
	Window        time.Duration
	BlockDuration time.Duration
}

func DefaultRules() map[string]Rule {
	return map[string]Rule{
		ActionLogin:         {MaxAttempts: 5, Window: 900 * time.Second, BlockDuration: 900 * time.Second},
		ActionRegister:      {MaxAttempts: 3, Window: 3600 * time.Second, BlockDuration: 3600 * time.Second},
		ActionAPI:           {MaxAttempts: 60, Window: 60 * time.Second, BlockDuration: 300 * time.Second},
		ActionPasswordReset: {MaxAttempts: 3, Window: 3600 * time.Second, BlockDuration: 3600 * time.Second},
		ActionEmail:         {MaxAttempts: 10, Window: 3600 * time.Second, BlockDuration: 1800 * time.Second},
	}
}
