package identity

import (
	"errors"
	"fmt"
	"strings"
)

// Prefix starts every message rendered by Error.
const Prefix = "Identity: "

// Error codes reported to the sign-in form.
const (
	CodeInvalidEmail        = "invalid-email"
	CodeMissingPassword     = "missing-password"
	CodeWeakPassword        = "weak-password"
	CodeEmailInUse          = "email-already-in-use"
	CodeInvalidCredential   = "invalid-credential"
	CodeTooManyRequests     = "too-many-requests"
	CodePopupClosed         = "popup-closed-by-user"
	CodeInvalidState        = "invalid-state"
	CodeOperationNotAllowed = "operation-not-allowed"
	CodeSessionExpired      = "user-token-expired"
	CodeInternal            = "internal-error"
)

// MinPasswordLength is the shortest password accepted on registration.
const MinPasswordLength = 6

// Error is a failure reported by the identity provider.
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "Error"
	}
	return fmt.Sprintf("%s%s (auth/%s).", Prefix, msg, e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by code so callers can compare against the
// exported sentinels with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

var (
	ErrInvalidEmail      = &Error{Code: CodeInvalidEmail}
	ErrMissingPassword   = &Error{Code: CodeMissingPassword}
	ErrWeakPassword      = &Error{Code: CodeWeakPassword, Message: fmt.Sprintf("Password should be at least %d characters", MinPasswordLength)}
	ErrEmailInUse        = &Error{Code: CodeEmailInUse}
	ErrInvalidCredential = &Error{Code: CodeInvalidCredential}
	ErrTooManyRequests   = &Error{Code: CodeTooManyRequests}
	ErrPopupClosed       = &Error{Code: CodePopupClosed}
	ErrInvalidState      = &Error{Code: CodeInvalidState}
	ErrNotAllowed        = &Error{Code: CodeOperationNotAllowed}
	ErrSessionExpired    = &Error{Code: CodeSessionExpired}
)

func internalError(err error) *Error {
	return &Error{Code: CodeInternal, Err: err}
}

// Message returns the user-facing text of err: the rendered message with the
// provider prefix removed.
func Message(err error) string {
	if err == nil {
		return ""
	}
	return strings.TrimPrefix(err.Error(), Prefix)
}
