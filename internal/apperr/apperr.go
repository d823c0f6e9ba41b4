package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an auth failure; the HTTP layer maps it to a status code and
// a client-safe message in one place.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindInvalidCredentials
	KindMissingToken
	KindTokenInvalid
	KindTokenExpired
	KindUserNotFound
	KindAccountInactive
	KindForbidden
	KindOAuthOnlyAccount
	KindDuplicateEmail
	KindPasswordAlreadySet
	KindConflict
	KindProfileIncomplete
)

type Error struct {
	Kind    Kind
	Message string // client-safe
	Err     error  // wrapped cause, never sent to clients
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) *Error { return &Error{Kind: kind, Message: msg} }

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal server error", Err: err}
}

// KindOf extracts the kind from err, defaulting to KindInternal.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// Status maps an error kind to its HTTP status code.
func Status(err error) int {
	switch KindOf(err) {
	case KindValidation, KindProfileIncomplete:
		return http.StatusBadRequest
	case KindInvalidCredentials, KindMissingToken, KindTokenInvalid, KindTokenExpired, KindUserNotFound:
		return http.StatusUnauthorized
	case KindAccountInactive, KindForbidden, KindOAuthOnlyAccount:
		return http.StatusForbidden
	case KindDuplicateEmail, KindPasswordAlreadySet, KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the client-safe message for err. Internal causes are never
// exposed; the fallback is generic.
func Message(err error) string {
	var ae *Error
	if errors.As(err, &ae) && ae.Kind != KindInternal {
		return ae.Message
	}
	return "internal server error"
}
