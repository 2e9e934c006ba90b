package payment

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies payment layer failures so HTTP handlers can map them to
// status codes without inspecting gateway-specific errors.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindAuth          Kind = "auth"
	KindConfiguration Kind = "configuration"
	KindSignature     Kind = "signature"
	KindProvider      Kind = "provider"
	KindNotFound      Kind = "not_found"
)

// Error wraps a failure with its kind, the operation that produced it and
// the gateway it happened against. Gateway errors are never swallowed; the
// original error stays reachable through Unwrap.
type Error struct {
	Kind     Kind
	Op       string
	Provider string
	Err      error
}

func (e *Error) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// E builds a classified payment error.
func E(kind Kind, op, provider string, err error) *Error {
	return &Error{Kind: kind, Op: op, Provider: provider, Err: err}
}

// Errorf builds a classified payment error from a format string.
func Errorf(kind Kind, op, provider, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Provider: provider, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of err, or KindProvider for unclassified errors.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindProvider
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Kind == kind
}

// HTTPStatus maps an error kind to the HTTP status the API responds with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation, KindSignature:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
