package validation

import (
	"strconv"
	"unicode"
)

// Password enforces a minimum length and requires upper case, lower case
// and digit characters, plus a special character when requireSpecial is set.
func (v *Validator) Password(field string, minLength int, requireSpecial bool) *Validator {
	return v.check(field, func(value string) {
		for _, msg := range PasswordProblems(value, minLength, requireSpecial) {
			v.fail(field, "The %s %s.", label(field), msg)
		}
	})
}

// PasswordProblems lists every strength requirement value misses.
func PasswordProblems(value string, minLength int, requireSpecial bool) []string {
	var hasUpper, hasLower, hasDigit, hasSpecial bool
	n := 0
	for _, r := range value {
		n++
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case !unicode.IsLetter(r) && !unicode.IsSpace(r):
			hasSpecial = true
		}
	}

	var problems []string
	if n < minLength {
		problems = append(problems, "must be at least "+strconv.Itoa(minLength)+" characters")
	}
	if !hasUpper {
		problems = append(problems, "must contain an uppercase letter")
	}
	if !hasLower {
		problems = append(problems, "must contain a lowercase letter")
	}
	if !hasDigit {
		problems = append(problems, "must contain a digit")
	}
	if requireSpecial && !hasSpecial {
		problems = append(problems, "must contain a special character")
	}
	return problems
}
