package errors

import (
	"errors"
	"net/http"
)

var (
	// ErrInvalidCredentials is returned when email or password is incorrect.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrAccountInactive is returned when the account has been deactivated.
	ErrAccountInactive = errors.New("account is inactive")
	// ErrInvalidRefreshToken is returned when a refresh token is invalid, expired or revoked.
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
	// ErrWrongPassword is returned when the current password check fails on password change.
	ErrWrongPassword = errors.New("current password is incorrect")

	// ErrUserNotFound is returned when a user is not found or no longer active.
	ErrUserNotFound = errors.New("user not found")
	// ErrTaskNotFound is returned when a task is not found.
	ErrTaskNotFound = errors.New("task not found")
	// ErrTagNotFound is returned when a tag is not found.
	ErrTagNotFound = errors.New("tag not found")

	// ErrForbidden is returned when the caller lacks role or ownership rights.
	ErrForbidden = errors.New("you do not have permission to access this resource")
	// ErrAdminImmutable is returned on attempts to delete or deactivate an admin account.
	ErrAdminImmutable = errors.New("admin users cannot be modified this way")

	// ErrUsernameTaken is returned when the username already exists.
	ErrUsernameTaken = errors.New("username already exists")
	// ErrEmailTaken is returned when the email already exists.
	ErrEmailTaken = errors.New("email already exists")
	// ErrTagExists is returned when a tag with the same name already exists.
	ErrTagExists = errors.New("tag already exists")
)

// ValidationError carries a field-level validation message mapped to 400.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidation builds a ValidationError.
func NewValidation(message string) *ValidationError {
	return &ValidationError{Message: message}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ErrorResponse represents a standardized error response body.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors. Unexpected errors
// collapse to a generic 500 so raw store failures never leak to clients.
func MapErrorToHTTP(err error) *HTTPError {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return NewHTTPError(http.StatusBadRequest, ve.Message, "VALIDATION_ERROR")
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrInvalidRefreshToken),
		errors.Is(err, ErrWrongPassword):
		return NewHTTPError(http.StatusUnauthorized, err.Error(), "UNAUTHORIZED")
	case errors.Is(err, ErrAccountInactive):
		return NewHTTPError(http.StatusForbidden, err.Error(), "ACCOUNT_INACTIVE")
	case errors.Is(err, ErrForbidden):
		return NewHTTPError(http.StatusForbidden, err.Error(), "FORBIDDEN")
	case errors.Is(err, ErrAdminImmutable):
		return NewHTTPError(http.StatusForbidden, err.Error(), "ADMIN_IMMUTABLE")
	case errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrTaskNotFound),
		errors.Is(err, ErrTagNotFound):
		return NewHTTPError(http.StatusNotFound, err.Error(), "NOT_FOUND")
	case errors.Is(err, ErrUsernameTaken),
		errors.Is(err, ErrEmailTaken),
		errors.Is(err, ErrTagExists):
		return NewHTTPError(http.StatusConflict, err.Error(), "CONFLICT")
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}
