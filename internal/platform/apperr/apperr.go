// Package apperr defines the typed errors services return and their mapping
// onto HTTP responses. Handlers never inspect database or transport errors
// directly; repositories and services translate them into one of these kinds.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for transport mapping and logging.
type Kind string

const (
	KindValidation            Kind = "validation"
	KindInvalidCredentials    Kind = "invalid_credentials"
	KindAccountDisabled       Kind = "account_disabled"
	KindWrongCurrentPassword  Kind = "wrong_current_password"
	KindInvalidOrExpiredToken Kind = "invalid_or_expired_token"
	KindForbidden             Kind = "forbidden"
	KindNotFound              Kind = "not_found"
	KindDuplicateEmail        Kind = "duplicate_email"
	KindDuplicateReview       Kind = "duplicate_review"
	KindSlotConflict          Kind = "slot_conflict"
	KindConflict              Kind = "conflict"
	KindInvalidState          Kind = "invalid_state"
	KindUnavailable           Kind = "unavailable"
	KindInternal              Kind = "internal"
)

// Error is a typed application error.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// E builds a new typed error.
func E(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds a typed error that preserves the underlying cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Ef builds a new typed error with a formatted message.
func Ef(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of err, or KindInternal when err carries no kind.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HTTPStatus maps an error kind onto an HTTP status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindInvalidCredentials, KindWrongCurrentPassword, KindInvalidOrExpiredToken:
		return http.StatusUnauthorized
	case KindForbidden, KindAccountDisabled:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindDuplicateEmail, KindDuplicateReview, KindSlotConflict, KindConflict, KindInvalidState:
		return http.StatusConflict
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the client-facing message for err. Internal errors collapse
// to a generic message so causes are never leaked to callers.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Message
	}
	return "internal server error"
}
