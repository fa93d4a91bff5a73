package validation

import (
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

const DateLayout = "2006-01-02"

func (v *Validator) Required(fields ...string) *Validator {
	for _, field := range fields {
		if strings.TrimSpace(v.data[field]) == "" {
			v.fail(field, "The %s field is required.", label(field))
		}
	}
	return v
}

func (v *Validator) Email(field string) *Validator {
	return v.check(field, func(value string) {
		if err := ValidateEmail(value); err != nil {
			v.fail(field, "The %s must be a valid email address.", label(field))
		}
	})
}

func (v *Validator) Min(field string, n int) *Validator {
	return v.check(field, func(value string) {
		if utf8.RuneCountInString(value) < n {
			v.fail(field, "The %s must be at least %d characters.", label(field), n)
		}
	})
}

func (v *Validator) Max(field string, n int) *Validator {
	return v.check(field, func(value string) {
		if utf8.RuneCountInString(value) > n {
			v.fail(field, "The %s may not be greater than %d characters.", label(field), n)
		}
	})
}

func (v *Validator) Between(field string, min, max int) *Validator {
	return v.check(field, func(value string) {
		if n := utf8.RuneCountInString(value); n < min || n > max {
			v.fail(field, "The %s must be between %d and %d characters.", label(field), min, max)
		}
	})
}

func (v *Validator) Numeric(field string) *Validator {
	return v.check(field, func(value string) {
		if _, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err != nil {
			v.fail(field, "The %s must be a number.", label(field))
		}
	})
}

func (v *Validator) Integer(field string) *Validator {
	return v.check(field, func(value string) {
		if _, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err != nil {
			v.fail(field, "The %s must be an integer.", label(field))
		}
	})
}

func (v *Validator) Alpha(field string) *Validator {
	return v.check(field, func(value string) {
		for _, r := range value {
			if !unicode.IsLetter(r) {
				v.fail(field, "The %s may only contain letters.", label(field))
				return
			}
		}
	})
}

func (v *Validator) AlphaNum(field string) *Validator {
	return v.check(field, func(value string) {
		for _, r := range value {
			if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
				v.fail(field, "The %s may only contain letters and numbers.", label(field))
				return
			}
		}
	})
}

func (v *Validator) Regex(field string, re *regexp.Regexp) *Validator {
	return v.check(field, func(value string) {
		if !re.MatchString(value) {
			v.fail(field, "The %s format is invalid.", label(field))
		}
	})
}

func (v *Validator) In(field string, allowed ...string) *Validator {
	return v.check(field, func(value string) {
		if !slices.Contains(allowed, value) {
			v.fail(field, "The selected %s is invalid.", label(field))
		}
	})
}

func (v *Validator) NotIn(field string, denied ...string) *Validator {
	return v.check(field, func(value string) {
		if slices.Contains(denied, value) {
			v.fail(field, "The selected %s is invalid.", label(field))
		}
	})
}

// Same requires field to equal other, e.g. a password confirmation.
func (v *Validator) Same(field, other string) *Validator {
	return v.check(field, func(value string) {
		if value != v.data[other] {
			v.fail(field, "The %s and %s must match.", label(field), label(other))
		}
	})
}

func (v *Validator) Different(field, other string) *Validator {
	return v.check(field, func(value string) {
		if value == v.data[other] {
			v.fail(field, "The %s and %s must be different.", label(field), label(other))
		}
	})
}

func (v *Validator) Date(field string) *Validator {
	return v.check(field, func(value string) {
		if _, err := time.Parse(DateLayout, strings.TrimSpace(value)); err != nil {
			v.fail(field, "The %s is not a valid date.", label(field))
		}
	})
}

func (v *Validator) Before(field string, ref time.Time) *Validator {
	return v.check(field, func(value string) {
		d, err := time.Parse(DateLayout, strings.TrimSpace(value))
		if err != nil || !d.Before(ref) {
			v.fail(field, "The %s must be a date before %s.", label(field), ref.Format(DateLayout))
		}
	})
}

func (v *Validator) After(field string, ref time.Time) *Validator {
	return v.check(field, func(value string) {
		d, err := time.Parse(DateLayout, strings.TrimSpace(value))
		if err != nil || !d.After(ref) {
			v.fail(field, "The %s must be a date after %s.", label(field), ref.Format(DateLayout))
		}
	})
}

// Unique fails when lookup finds the value already taken.
func (v *Validator) Unique(field string, lookup Lookup) *Validator {
	return v.check(field, func(value string) {
		found, err := lookup(value)
		switch {
		case err != nil:
			v.fail(field, "The %s could not be verified.", label(field))
		case found:
			v.fail(field, "The %s has already been taken.", label(field))
		}
	})
}

// Exists fails when lookup cannot find the value.
func (v *Validator) Exists(field string, lookup Lookup) *Validator {
	return v.check(field, func(value string) {
		found, err := lookup(value)
		switch {
		case err != nil:
			v.fail(field, "The %s could not be verified.", label(field))
		case !found:
			v.fail(field, "The selected %s is invalid.", label(field))
		}
	})
}

func (v *Validator) Custom(field string, fn func(value string) bool, message string) *Validator {
	if !fn(v.data[field]) {
		v.AddError(field, message)
	}
	return v
}

func (v *Validator) File(field string) *Validator {
	if fh := v.files[field]; fh == nil || fh.Size == 0 {
		v.fail(field, "The %s must be a file.", label(field))
	}
	return v
}

func (v *Validator) MaxFileSize(field string, maxBytes int64) *Validator {
	if fh := v.files[field]; fh != nil && fh.Size > maxBytes {
		v.fail(field, "The %s may not be greater than %d kilobytes.", label(field), maxBytes/1024)
	}
	return v
}

// Mimes checks the upload's extension against the allowed list, e.g.
// Mimes("avatar", "png", "jpg").
func (v *Validator) Mimes(field string, extensions ...string) *Validator {
	fh := v.files[field]
	if fh == nil {
		return v
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(fh.Filename)), ".")
	if !slices.Contains(extensions, ext) {
		v.fail(field, "The %s must be a file of type: %s.", label(field), strings.Join(extensions, ", "))
	}
	return v
}
