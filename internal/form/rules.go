// Package form implements field validation and form state for the
// registration form.
//
// Validation is a pure function (Validate) from field values to an ordered
// list of failing reasons per field. Form wraps it with interaction tracking
// (touched/dirty) and an explicit observer list that is notified
// synchronously after every mutation.
package form

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Reason identifies why a field failed validation.
type Reason string

const (
	ReasonRequired  Reason = "required"
	ReasonMaxLength Reason = "maxlength"
	ReasonLowercase Reason = "lowercase"
)

// Rule is a single validation check.
// Check returns true when the value passes.
type Rule struct {
	Reason  Reason
	Check   func(value string) bool
	Message func(label string) string
}

// Required fails on the empty string. Whitespace counts as a value.
func Required() Rule {
	return Rule{
		Reason: ReasonRequired,
		Check:  func(v string) bool { return v != "" },
		Message: func(label string) string {
			return fmt.Sprintf("%s is required.", label)
		},
	}
}

// MaxLength fails when the value has more than n code points. Runes outside
// the BMP count once, not as two UTF-16 units.
func MaxLength(n int) Rule {
	return Rule{
		Reason: ReasonMaxLength,
		Check:  func(v string) bool { return utf8.RuneCountInString(v) <= n },
		Message: func(label string) string {
			return fmt.Sprintf("%s cannot exceed %d characters.", label, n)
		},
	}
}

// Lowercase fails when the value differs from strings.ToLower of itself.
// The empty string passes; Required reports it.
func Lowercase() Rule {
	return Rule{
		Reason: ReasonLowercase,
		Check:  func(v string) bool { return v == "" || strings.ToLower(v) == v },
		Message: func(label string) string {
			return fmt.Sprintf("%s must be in lowercase.", label)
		},
	}
}
