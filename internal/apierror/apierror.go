// Package apierror provides standardized error response structures for the API
// and the error kinds every service returns. Handlers translate a Kind into an
// HTTP status; internal details (DB errors, stack traces) never reach clients.
package apierror

import (
	"errors"
	"net/http"
)

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail string `json:"detail"`
	Kind   Kind   `json:"kind,omitempty"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// Validation wraps multiple field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Kind   Kind              `json:"kind"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "Error de validacion", Kind: KindValidation, Fields: fields}
}

// ── Error kinds ──────────────────────────────────────────────────────────────

type Kind string

const (
	KindNotFound         Kind = "not_found"
	KindExhausted        Kind = "exhausted"
	KindAlreadyOpen      Kind = "already_open"
	KindSessionNotOpen   Kind = "session_not_open"
	KindSessionStillOpen Kind = "session_still_open"
	KindInvalidCap       Kind = "invalid_cap"
	KindLimitExceeded    Kind = "limit_exceeded"
	KindUnauthorized     Kind = "unauthorized"
	KindValidation       Kind = "validation"
	KindExternalService  Kind = "external_service"
)

// Error is a domain error carrying a Kind and a user-facing message.
// errors.Is matches any *Error with the same Kind when the target has no message,
// so callers compare against the Err* sentinels below.
type Error struct {
	Kind    Kind
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

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

var (
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrExhausted        = &Error{Kind: KindExhausted}
	ErrAlreadyOpen      = &Error{Kind: KindAlreadyOpen}
	ErrSessionNotOpen   = &Error{Kind: KindSessionNotOpen}
	ErrSessionStillOpen = &Error{Kind: KindSessionStillOpen}
	ErrInvalidCap       = &Error{Kind: KindInvalidCap}
	ErrLimitExceeded    = &Error{Kind: KindLimitExceeded}
	ErrUnauthorized     = &Error{Kind: KindUnauthorized}
	ErrValidation       = &Error{Kind: KindValidation}
	ErrExternalService  = &Error{Kind: KindExternalService}
)

func NotFound(msg string) *Error         { return &Error{Kind: KindNotFound, Message: msg} }
func Exhausted(msg string) *Error        { return &Error{Kind: KindExhausted, Message: msg} }
func AlreadyOpen(msg string) *Error      { return &Error{Kind: KindAlreadyOpen, Message: msg} }
func SessionNotOpen(msg string) *Error   { return &Error{Kind: KindSessionNotOpen, Message: msg} }
func SessionStillOpen(msg string) *Error { return &Error{Kind: KindSessionStillOpen, Message: msg} }
func InvalidCap(msg string) *Error       { return &Error{Kind: KindInvalidCap, Message: msg} }
func LimitExceeded(msg string) *Error    { return &Error{Kind: KindLimitExceeded, Message: msg} }
func Unauthorized(msg string) *Error     { return &Error{Kind: KindUnauthorized, Message: msg} }
func Validation(msg string) *Error       { return &Error{Kind: KindValidation, Message: msg} }

func ExternalService(msg string, err error) *Error {
	return &Error{Kind: KindExternalService, Message: msg, Err: err}
}

// As extracts the domain error from err, if any.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Status maps an error kind to its HTTP status code.
func Status(k Kind) int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindExhausted, KindInvalidCap:
		return http.StatusBadRequest
	case KindAlreadyOpen, KindSessionNotOpen, KindSessionStillOpen, KindLimitExceeded:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusForbidden
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindExternalService:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
