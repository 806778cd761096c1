// Package domainerrors defines the closed error taxonomy surfaced by the
// gateway. Services return these; the HTTP layer translates them into the
// JSON error envelope. Infrastructure facts (not found, expired, conflict)
// live in pkg/platform/sentinel and are translated by services.
package domainerrors

import (
	"errors"
	"net/http"
)

// Code identifies a category of caller-visible failure.
type Code string

const (
	// CodeValidation covers malformed input. Never retried.
	CodeValidation Code = "validation_error"

	// CodeSecurity covers CAPTCHA and origin failures. Audited, never retried.
	CodeSecurity Code = "security_error"

	// CodeSequence covers step-ordering violations. Caller restarts the flow.
	CodeSequence Code = "sequence_error"

	// CodeRateLimited covers historical-window denials.
	CodeRateLimited Code = "rate_limit_error"

	// CodeVerificationMismatch covers one-time code mismatches. Caller may
	// retry a bounded number of times.
	CodeVerificationMismatch Code = "verification_mismatch"

	// CodeNotFound covers lookups against records that do not exist.
	CodeNotFound Code = "not_found"

	// CodeInternal covers unexpected failures. The message sent to callers
	// is generic; details stay in logs.
	CodeInternal Code = "internal_error"
)

// Error is a domain error with a closed code and a caller-safe message.
type Error struct {
	Code    Code
	Message string
	Fields  map[string]string
}

func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}

// New constructs a domain error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithFields attaches per-field detail, used for validation errors.
func (e *Error) WithFields(fields map[string]string) *Error {
	e.Fields = fields
	return e
}

// As extracts a domain error from an error chain.
func As(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// ToHTTPStatus maps a code to its HTTP status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeSecurity:
		return http.StatusForbidden
	case CodeSequence:
		return http.StatusConflict
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeVerificationMismatch:
		return http.StatusUnprocessableEntity
	case CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
