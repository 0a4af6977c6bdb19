package errors

import (
	"errors"
	"net/http"
)

// Kind is the closed set of failure categories the services return.
type Kind int

// Kinds, each mapped to one HTTP status by StatusCode.
const (
	KindInternal Kind = iota
	KindNotFound
	KindInvalidCredentials
	KindInvalidToken
	KindExpiredToken
	KindForbidden
	KindValidation
	KindConflict
	KindThrottled
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NOT_FOUND"
	case KindInvalidCredentials:
		return "INVALID_CREDENTIALS"
	case KindInvalidToken:
		return "INVALID_TOKEN"
	case KindExpiredToken:
		return "EXPIRED_TOKEN"
	case KindForbidden:
		return "FORBIDDEN"
	case KindValidation:
		return "VALIDATION_ERROR"
	case KindConflict:
		return "CONFLICT"
	case KindThrottled:
		return "TOO_MANY_ATTEMPTS"
	case KindUnavailable:
		return "SERVICE_UNAVAILABLE"
	default:
		return "INTERNAL_ERROR"
	}
}

// Error is a classified failure. Message is safe to show to clients; Err is not.
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

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrValidation) holds
// for every validation failure regardless of its message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels to match with errors.Is; any *Error of the same Kind matches.
var (
	ErrNotFound           = &Error{Kind: KindNotFound, Message: "resource not found"}
	ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials, Message: "invalid email or password"}
	ErrInvalidToken       = &Error{Kind: KindInvalidToken, Message: "invalid token"}
	ErrExpiredToken       = &Error{Kind: KindExpiredToken, Message: "token expired"}
	ErrForbidden          = &Error{Kind: KindForbidden, Message: "access forbidden"}
	ErrValidation         = &Error{Kind: KindValidation, Message: "validation failed"}
	ErrConflict           = &Error{Kind: KindConflict, Message: "resource already exists"}
	ErrThrottled          = &Error{Kind: KindThrottled, Message: "too many failed login attempts, try again later"}
	ErrUnavailable        = &Error{Kind: KindUnavailable, Message: "service temporarily unavailable"}
)

// NotFound reports a missing resource; msg names what was looked up.
func NotFound(msg string) error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// Validation reports input the service refuses. msg is shown to the client.
func Validation(msg string) error {
	return &Error{Kind: KindValidation, Message: msg}
}

// Conflict reports a write that collides with existing data, such as a
// duplicate email or serial number.
func Conflict(msg string) error {
	return &Error{Kind: KindConflict, Message: msg}
}

// Forbidden reports an authenticated caller whose role may not do this.
func Forbidden(msg string) error {
	return &Error{Kind: KindForbidden, Message: msg}
}

// Unavailable wraps a store or broker failure. The cause is kept for logging only.
func Unavailable(err error) error {
	return &Error{Kind: KindUnavailable, Message: ErrUnavailable.Message, Err: err}
}

// Is forwards to the standard library errors.Is, so callers importing this
// package under the name errors keep it.
func Is(err, target error) bool { return errors.Is(err, target) }

// As forwards to the standard library errors.As.
func As(err error, target interface{}) bool { return errors.As(err, target) }

// New forwards to the standard library errors.New. The result is
// unclassified and maps to a 500.
func New(text string) error { return errors.New(text) }

// KindOf returns the kind of err, KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

// StatusCode returns the HTTP status for a kind.
func StatusCode(k Kind) int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidCredentials:
		return http.StatusUnauthorized
	case KindInvalidToken, KindExpiredToken, KindValidation:
		return http.StatusBadRequest
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindThrottled:
		return http.StatusTooManyRequests
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// MapErrorToHTTP maps service errors to HTTP errors. Only classified messages
// reach the client; anything else becomes a generic 500.
func MapErrorToHTTP(err error) *HTTPError {
	var e *Error
	if !errors.As(err, &e) {
		return NewHTTPError(http.StatusInternalServerError, "internal server error", KindInternal.String())
	}

	msg := e.Message
	switch e.Kind {
	case KindUnavailable:
		msg = ErrUnavailable.Message
	case KindInternal:
		msg = "internal server error"
	}
	return NewHTTPError(StatusCode(e.Kind), msg, e.Kind.String())
}
