// Package validation provides custom validation rules shared by DTOs, use cases and config.
package validation

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/identity/internal/errors"
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	roleRegex  = regexp.MustCompile(`^[a-z][a-z0-9_:\-]{0,63}$`)
)

// WrapValidationError wraps validation errors as domain ErrInvalidInput.
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// NormalizeEmail lowercases and trims an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// PasswordStrength validates password meets minimum security requirements.
type PasswordStrength struct {
	MinLength      int
	MaxLength      int
	RequireUpper   bool
	RequireLower   bool
	RequireNumber  bool
	RequireSpecial bool
}

// DefaultPasswordPolicy is applied to self-service registrations.
var DefaultPasswordPolicy = PasswordStrength{
	MinLength:     8,
	MaxLength:     128,
	RequireLower:  true,
	RequireNumber: true,
}

// Validate checks if the password meets the configured requirements.
func (p PasswordStrength) Validate(value interface{}) error {
	s, ok := value.(string)
	if !ok {
		return validation.NewError("validation_password_strength", "password must be a string")
	}

	length := len([]rune(s))
	if length < p.MinLength {
		return validation.NewError(
			"validation_password_min_length",
			"password must be at least "+strconv.Itoa(p.MinLength)+" characters",
		)
	}

	if p.MaxLength > 0 && length > p.MaxLength {
		return validation.NewError(
			"validation_password_max_length",
			"password must be at most "+strconv.Itoa(p.MaxLength)+" characters",
		)
	}

	if p.RequireUpper && !containsRune(s, unicode.IsUpper) {
		return validation.NewError(
			"validation_password_uppercase",
			"password must contain at least one uppercase letter",
		)
	}

	if p.RequireLower && !containsRune(s, unicode.IsLower) {
		return validation.NewError(
			"validation_password_lowercase",
			"password must contain at least one lowercase letter",
		)
	}

	if p.RequireNumber && !containsRune(s, unicode.IsNumber) {
		return validation.NewError("validation_password_number", "password must contain at least one number")
	}

	if p.RequireSpecial && !containsRune(s, isSpecial) {
		return validation.NewError(
			"validation_password_special",
			"password must contain at least one special character",
		)
	}

	return nil
}

func containsRune(s string, fn func(rune) bool) bool {
	return strings.IndexFunc(s, fn) >= 0
}

func isSpecial(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSymbol(r)
}

// Email validates email format using regex.
var Email = validation.NewStringRuleWithError(
	func(s string) bool {
		return emailRegex.MatchString(s)
	},
	validation.NewError("validation_email_format", "must be a valid email address"),
)

// NoWhitespace validates that string doesn't contain leading/trailing whitespace.
var NoWhitespace = validation.NewStringRuleWithError(
	func(s string) bool {
		return s == strings.TrimSpace(s)
	},
	validation.NewError("validation_no_whitespace", "must not contain leading or trailing whitespace"),
)

// NotBlank validates that a string is not empty after trimming whitespace.
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)

// RoleName validates a single role claim value, e.g. "admin" or "billing:read".
var RoleName = validation.NewStringRuleWithError(
	func(s string) bool {
		return roleRegex.MatchString(s)
	},
	validation.NewError("validation_role_name", "must be a lowercase role name"),
)

// WholeSeconds validates a positive time.Duration with no sub-second part.
// Token timestamps are encoded in whole seconds.
var WholeSeconds = validation.By(func(value interface{}) error {
	d, ok := value.(time.Duration)
	if !ok {
		return validation.NewError("validation_duration", "must be a duration")
	}
	if d <= 0 || d%time.Second != 0 {
		return validation.NewError("validation_whole_seconds", "must be a positive whole number of seconds")
	}
	return nil
})
