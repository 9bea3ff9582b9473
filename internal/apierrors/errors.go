// Package apierrors defines the error taxonomy surfaced to callers of the
// tradutor client. Every kind is recoverable by the user: retry, correct
// input, or log in again.
package apierrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a client error.
type Kind string

const (
	KindInvalidCredentials Kind = "invalid_credentials"
	KindValidationError    Kind = "validation_error"
	KindDuplicateAccount   Kind = "duplicate_account"
	KindSessionExpired     Kind = "session_expired"
	KindServerError        Kind = "server_error"
	KindNetworkError       Kind = "network_error"
)

// Error is a classified client error. Status is the HTTP status that caused
// it, or zero for transport-level failures.
type Error struct {
	Kind    Kind
	Status  int
	Message string

	// Cause is the underlying transport error, when any.
	Cause error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds a classified error.
func New(kind Kind, status int, message string) *Error {
	return &Error{Kind: kind, Status: status, Message: message}
}

// Network wraps a transport-level failure, preserving the original message
// for diagnostics.
func Network(cause error) *Error {
	return &Error{Kind: KindNetworkError, Cause: cause}
}

// KindOf extracts the kind from err, or "" when err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// FromStatus maps a credential-endpoint HTTP status to an error kind per the
// backend contract: 401 invalid credentials, 400 validation, 409 duplicate
// account, 5xx server error. Anything else is a generic network error.
func FromStatus(status int, message string) *Error {
	if message == "" {
		message = http.StatusText(status)
	}
	switch {
	case status == http.StatusUnauthorized:
		return New(KindInvalidCredentials, status, message)
	case status == http.StatusBadRequest:
		return New(KindValidationError, status, message)
	case status == http.StatusConflict:
		return New(KindDuplicateAccount, status, message)
	case status >= 500:
		return New(KindServerError, status, message)
	default:
		return New(KindNetworkError, status, message)
	}
}
