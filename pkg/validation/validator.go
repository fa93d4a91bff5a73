// Package validation accumulates field-level rule violations for a flat
// form input. Every rule runs independently, so one field can collect
// several messages.
package validation

import (
	"fmt"
	"mime/multipart"
	"strings"
)

// Lookup reports whether value is already present in some external store.
type Lookup func(value string) (bool, error)

type Validator struct {
	data   map[string]string
	files  map[string]*multipart.FileHeader
	errors map[string][]string
	order  []string
}

func New(data map[string]string) *Validator {
	if data == nil {
		data = map[string]string{}
	}
	return &Validator{
		data:   data,
		errors: make(map[string][]string),
	}
}

// WithFiles attaches uploaded files for the file rules.
func (v *Validator) WithFiles(files map[string]*multipart.FileHeader) *Validator {
	v.files = files
	return v
}

func (v *Validator) Value(field string) string {
	return v.data[field]
}

func (v *Validator) AddError(field, message string) *Validator {
	if _, ok := v.errors[field]; !ok {
		v.order = append(v.order, field)
	}
	v.errors[field] = append(v.errors[field], message)
	return v
}

func (v *Validator) Fails() bool {
	return len(v.errors) > 0
}

func (v *Validator) Passes() bool {
	return !v.Fails()
}

// Errors returns every message keyed by field.
func (v *Validator) Errors() map[string][]string {
	out := make(map[string][]string, len(v.errors))
	for k, msgs := range v.errors {
		out[k] = append([]string(nil), msgs...)
	}
	return out
}

// Fields lists failing fields in the order their first error was recorded.
func (v *Validator) Fields() []string {
	return append([]string(nil), v.order...)
}

func (v *Validator) First(field string) string {
	if msgs := v.errors[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// Messages flattens all errors, fields in recording order.
func (v *Validator) Messages() []string {
	var out []string
	for _, f := range v.order {
		out = append(out, v.errors[f]...)
	}
	return out
}

func label(field string) string {
	return strings.ReplaceAll(field, "_", " ")
}

func (v *Validator) fail(field, format string, args ...any) *Validator {
	return v.AddError(field, fmt.Sprintf(format, args...))
}

// check runs fn on the field's value unless it is empty; presence is the
// Required rule's job.
func (v *Validator) check(field string, fn func(value string)) *Validator {
	if value := v.data[field]; strings.TrimSpace(value) != "" {
		fn(value)
	}
	return v
}
