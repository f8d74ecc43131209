// Package apperr defines the business-rule error taxonomy shared by every
// lifecycle component. All of these are terminal for the triggering request;
// handlers map them to HTTP statuses with the specific reason intact so the
// UI can explain why an action was blocked.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindValidation Kind = iota + 1
	KindConflict
	KindAuthorization
	KindNotFound
	KindExpired
)

// Error carries the taxonomy kind plus a user-facing reason.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Validation: malformed input or precondition not met.
func Validation(format string, args ...any) *Error {
	return newf(KindValidation, format, args...)
}

// Conflict: transition attempted from a state that no longer permits it.
func Conflict(format string, args ...any) *Error {
	return newf(KindConflict, format, args...)
}

// Authorization: actor is not a party to the entity.
func Authorization(format string, args ...any) *Error {
	return newf(KindAuthorization, format, args...)
}

// NotFound: referenced entity absent.
func NotFound(format string, args ...any) *Error {
	return newf(KindNotFound, format, args...)
}

// Expired: action attempted on an expired quote.
func Expired(format string, args ...any) *Error {
	return newf(KindExpired, format, args...)
}

// KindOf returns the taxonomy kind of err, or 0 when err is not an apperr.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// Is reports whether err belongs to the given kind.
func Is(err error, kind Kind) bool { return KindOf(err) == kind }

// HTTPStatus maps an error to the HTTP status handlers respond with.
// Unclassified errors are internal.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindConflict:
		return http.StatusConflict
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindExpired:
		return http.StatusGone
	}
	return http.StatusInternalServerError
}
