package domain

import "errors"

// Code is a caller-visible, machine-readable error code.
type Code string

const (
	CodeMissingFields        Code = "MISSING_FIELDS"
	CodeInvalidEmail         Code = "INVALID_EMAIL"
	CodeInvalidVenue         Code = "INVALID_VENUE"
	CodeWeakCredential       Code = "WEAK_CREDENTIAL"
	CodeInvalidToken         Code = "INVALID_TOKEN"
	CodeIncorrectCode        Code = "INCORRECT_CODE"
	CodeEmailExists          Code = "EMAIL_EXISTS"
	CodeInvalidPlan          Code = "INVALID_PLAN"
	CodeCheckoutCreateFailed Code = "CHECKOUT_SESSION_CREATE_FAILED"
	CodeEmailSendFailed      Code = "EMAIL_SEND_FAILED"
	CodeEmailNotVerified     Code = "EMAIL_NOT_VERIFIED"
	CodeMissingSignature     Code = "MISSING_SIGNATURE"
	CodeInvalidSignature     Code = "INVALID_SIGNATURE"
	CodeInvalidCredentials   Code = "INVALID_CREDENTIALS"
	CodeRateLimited          Code = "RATE_LIMITED"
	CodeUnauthorized         Code = "UNAUTHORIZED"
	CodeForbidden            Code = "FORBIDDEN"
	CodeAccountNotActive     Code = "ACCOUNT_NOT_ACTIVE"
	CodeNotFound             Code = "NOT_FOUND"
	CodeMethodNotAllowed     Code = "METHOD_NOT_ALLOWED"
	CodeInternal             Code = "INTERNAL_ERROR"
)

// Error carries a Code plus an optional underlying cause that is never shown to callers.
type Error struct {
	Code Code
	Err  error
}

// NewError wraps cause under the supplied code.
func NewError(code Code, cause error) *Error {
	return &Error{Code: code, Err: cause}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return string(e.Code) + ": " + e.Err.Error()
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same code, so sentinel values work with errors.Is.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return other.Code == e.Code
	}
	return false
}

// Sentinels for errors.Is checks.
var (
	ErrMissingFields        = &Error{Code: CodeMissingFields}
	ErrInvalidEmail         = &Error{Code: CodeInvalidEmail}
	ErrInvalidVenue         = &Error{Code: CodeInvalidVenue}
	ErrWeakCredential       = &Error{Code: CodeWeakCredential}
	ErrInvalidToken         = &Error{Code: CodeInvalidToken}
	ErrIncorrectCode        = &Error{Code: CodeIncorrectCode}
	ErrEmailExists          = &Error{Code: CodeEmailExists}
	ErrInvalidPlan          = &Error{Code: CodeInvalidPlan}
	ErrCheckoutCreateFailed = &Error{Code: CodeCheckoutCreateFailed}
	ErrEmailSendFailed      = &Error{Code: CodeEmailSendFailed}
	ErrEmailNotVerified     = &Error{Code: CodeEmailNotVerified}
	ErrMissingSignature     = &Error{Code: CodeMissingSignature}
	ErrInvalidSignature     = &Error{Code: CodeInvalidSignature}
	ErrInvalidCredentials   = &Error{Code: CodeInvalidCredentials}
	ErrRateLimited          = &Error{Code: CodeRateLimited}
	ErrUnauthorized         = &Error{Code: CodeUnauthorized}
	ErrForbidden            = &Error{Code: CodeForbidden}
	ErrAccountNotActive     = &Error{Code: CodeAccountNotActive}
	ErrNotFound             = &Error{Code: CodeNotFound}
)

// CodeOf extracts the code from err, or CodeInternal when err carries none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
