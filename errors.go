package session

import (
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeTokenExpired     = "TOKEN_EXPIRED"
	TextCodeTokenMalformed   = "TOKEN_MALFORMED"
	TextCodeNotAuthenticated = "NOT_AUTHENTICATED"
	TextCodeLoginRejected    = "LOGIN_REJECTED"
	TextCodeUpdateRejected   = "UPDATE_REJECTED"
	TextCodeServiceFailure   = "AUTH_SERVICE_FAILURE"
	TextCodeSessionTornDown  = "SESSION_TORN_DOWN"
)

// GenericLoginError is the fallback shown when the authentication service
// rejects a login without a usable message.
const GenericLoginError = "Login failed. Please try again."

// GenericUpdateError is the fallback shown when a profile update fails
// without a usable message.
const GenericUpdateError = "Profile update failed. Please try again."

// ErrTokenExpired is returned when a token fails the hard expiry check.
var ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed is returned when a token cannot be decoded at all.
// Expiry checks treat it the same as a hard expiry (fail closed).
var ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrNotAuthenticated is returned by operations that require a logged-in
// session, such as UpdateUser.
var ErrNotAuthenticated = errors.New("no authenticated session", errors.CategoryAuth).
	WithTextCode(TextCodeNotAuthenticated).
	WithCode(errors.CodeUnauthorized)

// ErrSessionTornDown is returned when an operation resolves after the
// manager has been torn down; its result is discarded.
var ErrSessionTornDown = errors.New("session manager torn down", errors.CategoryConflict).
	WithTextCode(TextCodeSessionTornDown).
	WithCode(errors.CodeConflict)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// UserMessage flattens an error into the string a page can show. Rich errors
// keep their message, anything else falls back to the provided default.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}

	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.Message != "" {
		return richErr.Message
	}

	return fallback
}

func loginRejectedError(message string) *errors.Error {
	if strings.TrimSpace(message) == "" {
		message = GenericLoginError
	}
	return errors.New(message, errors.CategoryAuth).
		WithTextCode(TextCodeLoginRejected).
		WithCode(errors.CodeUnauthorized)
}

func updateRejectedError(message string) *errors.Error {
	if strings.TrimSpace(message) == "" {
		message = GenericUpdateError
	}
	return errors.New(message, errors.CategoryValidation).
		WithTextCode(TextCodeUpdateRejected).
		WithCode(errors.CodeBadRequest)
}

func serviceFailureError(err error, message string) *errors.Error {
	return errors.Wrap(err, errors.CategoryOperation, message).
		WithTextCode(TextCodeServiceFailure).
		WithCode(errors.CodeInternal)
}
