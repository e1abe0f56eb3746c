package validation

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
)

// Validation rule patterns
var (
	EmailPattern = `^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}$`

	// Payer subscriber identifiers are alphanumeric, 3 to 20 characters
	SubscriberIDPattern = `^[A-Za-z0-9]{3,20}$`

	PasswordMinLength = 8

	NameMinLength = 1
	NameMaxLength = 100
)

// Password rule violations
var (
	ErrPasswordTooShort = errors.New("password must be at least 8 characters long")
	ErrPasswordLetter   = errors.New("password must contain at least one letter")
	ErrPasswordDigit    = errors.New("password must contain at least one digit")
)

// CompiledPatterns caches compiled regex patterns
var CompiledPatterns = struct {
	Email        *regexp.Regexp
	SubscriberID *regexp.Regexp
}{
	Email:        regexp.MustCompile(EmailPattern),
	SubscriberID: regexp.MustCompile(SubscriberIDPattern),
}

// StringValidation is a chainable rule set for one string value
type StringValidation struct {
	Value    string
	MinLen   int
	MaxLen   int
	Required bool
	Pattern  *regexp.Regexp
}

// NewStringValidation creates a new string validation
func NewStringValidation(value string) *StringValidation {
	return &StringValidation{
		Value:    value,
		Required: true,
	}
}

// WithMinLength sets minimum length
func (v *StringValidation) WithMinLength(min int) *StringValidation {
	v.MinLen = min
	return v
}

// WithMaxLength sets maximum length
func (v *StringValidation) WithMaxLength(max int) *StringValidation {
	v.MaxLen = max
	return v
}

// WithPattern sets regex pattern
func (v *StringValidation) WithPattern(pattern *regexp.Regexp) *StringValidation {
	v.Pattern = pattern
	return v
}

// WithRequired sets if field is required
func (v *StringValidation) WithRequired(required bool) *StringValidation {
	v.Required = required
	return v
}

// Validate performs validation
func (v *StringValidation) Validate() bool {
	if v.Value == "" {
		return !v.Required
	}
	if v.MinLen > 0 && len(v.Value) < v.MinLen {
		return false
	}
	if v.MaxLen > 0 && len(v.Value) > v.MaxLen {
		return false
	}
	if v.Pattern != nil && !v.Pattern.MatchString(v.Value) {
		return false
	}
	return true
}

// IsValidEmail checks the lower-cased address against EmailPattern
func IsValidEmail(email string) bool {
	return NewStringValidation(strings.ToLower(strings.TrimSpace(email))).
		WithMaxLength(254).
		WithPattern(CompiledPatterns.Email).
		Validate()
}

// IsValidName checks a person name's trimmed length
func IsValidName(name string) bool {
	return NewStringValidation(strings.TrimSpace(name)).
		WithMinLength(NameMinLength).
		WithMaxLength(NameMaxLength).
		Validate()
}

// IsValidSubscriberID checks a payer subscriber identifier
func IsValidSubscriberID(id string) bool {
	return NewStringValidation(id).WithPattern(CompiledPatterns.SubscriberID).Validate()
}

// ValidatePassword returns the first password rule the value breaks
func ValidatePassword(password string) error {
	if len(password) < PasswordMinLength {
		return ErrPasswordTooShort
	}

	var hasLetter, hasDigit bool
	for _, char := range password {
		switch {
		case unicode.IsLetter(char):
			hasLetter = true
		case unicode.IsDigit(char):
			hasDigit = true
		}
	}
	if !hasLetter {
		return ErrPasswordLetter
	}
	if !hasDigit {
		return ErrPasswordDigit
	}
	return nil
}
