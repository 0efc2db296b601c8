// Package apperr provides the typed error model shared by every service.
// Services return *Error values; the HTTP layer maps Kind to a status code.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for callers and transports.
type Kind int

const (
	KindUnknown Kind = iota
	// KindNotFound: the referenced lead, user or phone does not exist.
	KindNotFound
	// KindValidation: input rejected before any write happened.
	KindValidation
	// KindConflict: the request contradicts current state.
	KindConflict
	KindForbidden
	KindUnauthorized
	KindBadRequest
	KindInternal
	// KindUnavailable: a transient condition such as exhausted counter contention.
	KindUnavailable
	// KindPrecondition: an operator must fix something first, e.g. no active RMs.
	KindPrecondition
)

var kindNames = map[Kind]string{
	KindUnknown:      "UNKNOWN",
	KindNotFound:     "NOT_FOUND",
	KindValidation:   "VALIDATION",
	KindConflict:     "CONFLICT",
	KindForbidden:    "FORBIDDEN",
	KindUnauthorized: "UNAUTHORIZED",
	KindBadRequest:   "BAD_REQUEST",
	KindInternal:     "INTERNAL",
	KindUnavailable:  "UNAVAILABLE",
	KindPrecondition: "PRECONDITION_FAILED",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[KindUnknown]
}

// Error is a domain error carrying a Kind.
type Error struct {
	Kind    Kind
	Message string
	Op      string
	Err     error
	Details any
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the error kind to a response status.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation, KindBadRequest:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindUnavailable:
		return http.StatusServiceUnavailable
	case KindPrecondition:
		return http.StatusPreconditionFailed
	case KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether the caller may retry the same request later.
func (e *Error) Retryable() bool {
	return e.Kind == KindUnavailable
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithOp sets the failing operation name and returns the same error.
func (e *Error) WithOp(op string) *Error {
	e.Op = op
	return e
}

// WithDetails attaches response details and returns the same error.
func (e *Error) WithDetails(details any) *Error {
	e.Details = details
	return e
}

func NotFound(message string) *Error     { return New(KindNotFound, message) }
func Validation(message string) *Error   { return New(KindValidation, message) }
func Conflict(message string) *Error     { return New(KindConflict, message) }
func Forbidden(message string) *Error    { return New(KindForbidden, message) }
func Unauthorized(message string) *Error { return New(KindUnauthorized, message) }
func BadRequest(message string) *Error   { return New(KindBadRequest, message) }
func Internal(message string) *Error     { return New(KindInternal, message) }
func Unavailable(message string) *Error  { return New(KindUnavailable, message) }
func Precondition(message string) *Error { return New(KindPrecondition, message) }

// GetKind returns the Kind of the first *Error in err's chain.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err's chain contains an *Error of the given kind.
func Is(err error, kind Kind) bool {
	return GetKind(err) == kind
}
