// Package apierr defines the error taxonomy shared by every pipeline
// component. Leaf components return a *Error with a Kind; only the HTTP
// surface translates a Kind into a status code.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is a machine-readable error classification.
type Kind string

const (
	KindBadRequest     Kind = "BadRequest"
	KindUnauthorized   Kind = "Unauthorized"
	KindNotFound       Kind = "NotFound"
	KindPayloadTooLarge Kind = "PayloadTooLarge"
	KindTimeout        Kind = "Timeout"
	KindUpstream       Kind = "Upstream"
	KindProcessing     Kind = "Processing"
	KindInternal       Kind = "Internal"
)

// Error is the structured error carried across the pipeline.
type Error struct {
	Kind    Kind
	Message string
	Field   string // offending key/field, when applicable
	cause   error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds an *Error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Newf builds an *Error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WithField annotates the error with the offending field name.
func (e *Error) WithField(field string) *Error {
	cp := *e
	cp.Field = field
	return &cp
}

// Wrap attaches an underlying cause while preserving the Kind.
func Wrap(kind Kind, cause error, msg string) *Error {
	return &Error{Kind: kind, Message: msg, cause: cause}
}

// As extracts an *Error from err, if present.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// HTTPStatus maps a Kind to the HTTP status code from spec §7.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindUpstream:
		return http.StatusBadGateway
	case KindProcessing:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
