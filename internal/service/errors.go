package service

import (
	"errors"
	"fmt"
)

// Code identifies an outcome in the signup/activation error taxonomy.  Codes
// are stable strings and are returned to clients verbatim.
type Code string

const (
	CodeValidation       Code = "validation_error"
	CodeDuplicatePending Code = "duplicate_pending"
	CodeRateLimited      Code = "rate_limited"
	CodeInvalidFormat    Code = "invalid_format"
	CodeInvalidOrExpired Code = "invalid_or_expired"
	CodeAlreadyUsed      Code = "already_used"
	CodeExpired          Code = "expired"
	CodeStoreUnavailable Code = "store_unavailable"
	CodeNotifierFailure  Code = "notifier_failure"
)

// Error is the value returned by every service operation that fails.  Message
// is safe to show to clients; Err carries internal detail for logs only.
type Error struct {
	Code    Code
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return string(e.Code) + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// CodeOf extracts the taxonomy code from err, or "" when err is not a
// service error.
func CodeOf(err error) Code {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

func newError(code Code, msg string) *Error { return &Error{Code: code, Message: msg} }

func storeUnavailable(err error) *Error {
	return &Error{Code: CodeStoreUnavailable, Message: "service temporarily unavailable", Err: err}
}

// Client-facing messages.
const (
	msgDuplicatePending = "An activation link has already been sent to this email."
	msgInvalidFormat    = "Invalid token format"
	msgMissingToken     = "Missing activation token"
	msgInvalidOrExpired = "Invalid or expired activation token"
	msgAlreadyUsed      = "This activation link has already been used"
	msgExpired          = "This activation link has expired"
)
