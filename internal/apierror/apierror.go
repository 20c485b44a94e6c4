// Package apierror provides the error taxonomy shared by both transports and
// the standardized envelope for REST error responses. Every failure a service
// returns is an *Error of one of the kinds below; anything else is treated as
// an internal error so that store or driver details never reach a client.
package apierror

import (
	"errors"
	"net/http"
	"strings"
)

// Kind classifies a failure. The string value is exposed to clients as "code".
type Kind string

const (
	KindValidation         Kind = "VALIDATION_ERROR"
	KindDuplicateIdentity  Kind = "DUPLICATE_IDENTITY"
	KindInvalidCredentials Kind = "INVALID_CREDENTIALS"
	KindUnauthorized       Kind = "UNAUTHORIZED"
	KindForbidden          Kind = "FORBIDDEN"
	KindNotFound           Kind = "NOT_FOUND"
	KindInternal           Kind = "INTERNAL_ERROR"
)

// HTTPStatus maps a kind to the status code used by the REST transport.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindDuplicateIdentity:
		return http.StatusConflict
	case KindInvalidCredentials, KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified failure. Message is safe to show to a client; Cause
// is kept for server-side logging only.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	Cause   error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Cause }

// Extensions is picked up by the GraphQL executor and attached to the error.
func (e *Error) Extensions() map[string]interface{} {
	ext := map[string]interface{}{"code": string(e.Kind)}
	if len(e.Fields) > 0 {
		ext["fields"] = e.Fields
	}
	return ext
}

func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

func ValidationFields(fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: "Validation failed", Fields: fields}
}

func DuplicateIdentity(msg string) *Error {
	return &Error{Kind: KindDuplicateIdentity, Message: msg}
}

// InvalidCredentials always carries the same message so that a login failure
// does not reveal whether the identity exists.
func InvalidCredentials() *Error {
	return &Error{Kind: KindInvalidCredentials, Message: "Invalid credentials"}
}

func Unauthorized(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Message: msg}
}

func Forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Message: msg}
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func Internal(cause error) *Error {
	return &Error{Kind: KindInternal, Message: "Internal server error", Cause: cause}
}

// From classifies err. Unclassified errors become internal errors.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err)
}

// IsKind reports whether err is classified as kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// Outcome labels a result for metrics: "success" or the lowercase kind.
func Outcome(err error) string {
	if err == nil {
		return "success"
	}
	return strings.ToLower(string(From(err).Kind))
}

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail string            `json:"detail"`
	Code   string            `json:"code,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// NewValidation wraps multiple field errors.
func NewValidation(fields map[string]string) *APIError {
	return &APIError{Detail: "Validation failed", Code: string(KindValidation), Fields: fields}
}

// Envelope renders a classified error for a REST response.
func Envelope(e *Error) *APIError {
	return &APIError{Detail: e.Message, Code: string(e.Kind), Fields: e.Fields}
}
