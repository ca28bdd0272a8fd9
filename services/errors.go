package services

import (
	"errors"
	"net/http"
)

// Kind classifies failures for the HTTP layer.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthenticated
	KindUserVanished
	KindForbidden
	KindNotFound
	KindConflict
	// KindExternal marks a failed call to a non-transactional dependency such as the blob store.
	KindExternal
)

// Status maps a kind to its HTTP status code.
func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthenticated, KindUserVanished:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Error carries a client-safe message and numeric code; Err holds the cause for logs only.
type Error struct {
	Kind    Kind
	Code    int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(code int, msg string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: msg}
}

func Unauthenticated(code int, msg string) *Error {
	return &Error{Kind: KindUnauthenticated, Code: code, Message: msg}
}

func UserVanished(code int, msg string) *Error {
	return &Error{Kind: KindUserVanished, Code: code, Message: msg}
}

func Forbidden(code int, msg string) *Error {
	return &Error{Kind: KindForbidden, Code: code, Message: msg}
}

func NotFound(code int, msg string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: msg}
}

func Conflict(code int, msg string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: msg}
}

func Internal(code int, msg string, err error) *Error {
	return &Error{Kind: KindInternal, Code: code, Message: msg, Err: err}
}

func External(code int, msg string, err error) *Error {
	return &Error{Kind: KindExternal, Code: code, Message: msg, Err: err}
}

// KindOf returns the kind of err, KindInternal for anything unclassified.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}
