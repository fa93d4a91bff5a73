package validation

import (
	"errors"
	"strings"
)

var (
	ErrEmailEmpty   = errors.New("email cannot be empty")
	ErrEmailTooLong = errors.New("email too long")
	ErrEmailFormat  = errors.New("invalid email format")
)

// ValidateEmail checks the address in a single pass without regexp.
// The local part allows letters, digits and . _ % + -; the domain needs at
// least two labels and a TLD of 2 to 63 characters.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ErrEmailEmpty
	}
	if len(email) > 254 {
		return ErrEmailTooLong
	}
	at := strings.IndexByte(email, '@')
	if at <= 0 || at > 64 || at == len(email)-1 {
		return ErrEmailFormat
	}
	for i := 0; i < at; i++ {
		c := email[i]
		if !isAlphaNum(c) && !strings.ContainsRune("._%+-", rune(c)) {
			return ErrEmailFormat
		}
	}

	labels := strings.Split(email[at+1:], ".")
	if len(labels) < 2 {
		return ErrEmailFormat
	}
	for _, l := range labels {
		if l == "" || len(l) > 63 {
			return ErrEmailFormat
		}
		for i := 0; i < len(l); i++ {
			if !isAlphaNum(l[i]) && l[i] != '-' {
				return ErrEmailFormat
			}
		}
	}
	if tld := labels[len(labels)-1]; len(tld) < 2 {
		return ErrEmailFormat
	}
	return nil
}

func isAlphaNum(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}
