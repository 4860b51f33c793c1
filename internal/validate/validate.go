// Package validate carries the field rules shared by request binding and the
// service layer: password strength, username charset, hex colors and the
// ISO-ish date parsing used for due dates.
package validate

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	colorPattern    = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)
	upperPattern    = regexp.MustCompile(`[A-Z]`)
	lowerPattern    = regexp.MustCompile(`[a-z]`)
	digitPattern    = regexp.MustCompile(`[0-9]`)
)

// Register installs the custom rules on a validator instance so request DTOs
// can reference them as struct tags.
func Register(v *validator.Validate) error {
	if err := v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return Password(fl.Field().String()) == ""
	}); err != nil {
		return err
	}
	if err := v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return Username(fl.Field().String()) == ""
	}); err != nil {
		return err
	}
	return v.RegisterValidation("tagcolor", func(fl validator.FieldLevel) bool {
		return Color(fl.Field().String()) == ""
	})
}

// Password checks strength: 8-128 characters with at least one upper, lower
// and digit. Lengths count runes, not bytes. Returns an empty string when
// valid, otherwise the failure message.
func Password(password string) string {
	switch {
	case password == "":
		return "password is required"
	case utf8.RuneCountInString(password) < 8:
		return "password must be at least 8 characters"
	case utf8.RuneCountInString(password) > 128:
		return "password is too long"
	case !upperPattern.MatchString(password):
		return "password must contain at least one uppercase letter"
	case !lowerPattern.MatchString(password):
		return "password must contain at least one lowercase letter"
	case !digitPattern.MatchString(password):
		return "password must contain at least one number"
	}
	return ""
}

// Username checks the 3-80 char alphanumeric/underscore/hyphen rule.
// Returns an empty string when valid.
func Username(username string) string {
	username = strings.TrimSpace(username)
	switch {
	case username == "":
		return "username is required"
	case utf8.RuneCountInString(username) < 3:
		return "username must be at least 3 characters"
	case utf8.RuneCountInString(username) > 80:
		return "username is too long"
	case !usernamePattern.MatchString(username):
		return "username may only contain letters, numbers, underscores and hyphens"
	}
	return ""
}

var fieldValidator = validator.New()

// Email checks address format and the column's length cap. Returns an empty
// string when valid.
func Email(email string) string {
	switch {
	case email == "":
		return "email is required"
	case len(email) > 120:
		return "email is too long"
	case fieldValidator.Var(email, "email") != nil:
		return "invalid email format"
	}
	return ""
}

// Color checks a #RRGGBB hex code. Empty input is allowed; the default color
// applies instead. Returns an empty string when valid.
func Color(color string) string {
	if color == "" {
		return ""
	}
	if !colorPattern.MatchString(color) {
		return "color must be a valid hex code (e.g. #FF0000)"
	}
	return ""
}

// StringLength checks the trimmed rune count of a value against optional
// bounds. Returns an empty string when valid.
func StringLength(value string, minLen, maxLen int, field string) string {
	length := utf8.RuneCountInString(strings.TrimSpace(value))
	if minLen > 0 && length < minLen {
		return fmt.Sprintf("%s must be at least %d characters", field, minLen)
	}
	if maxLen > 0 && length > maxLen {
		return fmt.Sprintf("%s must not exceed %d characters", field, maxLen)
	}
	return ""
}

// ParseDate parses a due date. Strict RFC 3339 is tried first; a more lenient
// ISO-ish parse is attempted only when the string starts with a digit and
// contains '-' or 'T'. Anything else is rejected.
func ParseDate(value string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, true
	}

	if len(value) == 0 || value[0] < '0' || value[0] > '9' {
		return time.Time{}, false
	}
	if !strings.ContainsAny(value, "-T") {
		return time.Time{}, false
	}

	for _, layout := range []string{
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}
