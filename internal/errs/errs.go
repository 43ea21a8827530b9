// Package errs defines the failure kinds surfaced by the blog core.
//
// Every failure that crosses a component boundary carries a Kind so callers
// (and the transport layer) can tell them apart without parsing messages.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind string

const (
	KindInternal          Kind = "internal"
	KindNotFound          Kind = "not_found"
	KindDuplicateKey      Kind = "duplicate_key"
	KindUnauthorized      Kind = "unauthorized"
	KindForbidden         Kind = "forbidden"
	KindInvalid           Kind = "invalid"
	KindInvalidReference  Kind = "invalid_reference"
	KindNotReady          Kind = "not_ready"
	KindWorkerUnreachable Kind = "worker_unreachable"
	KindWorkerTimeout     Kind = "worker_timeout"
	KindWorkerError       Kind = "worker_error"
	KindCacheDegraded     Kind = "cache_degraded"
)

// Error is a classified failure with a user-facing message.
type Error struct {
	Kind    Kind
	Message string
	// Err is the underlying cause, kept for diagnostics only.
	Err error
}

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Detail returns the raw cause text, or "" when there is none.
func (e *Error) Detail() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

// KindOf returns the kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Retryable reports whether retrying the same call later may succeed.
func Retryable(kind Kind) bool {
	switch kind {
	case KindNotReady, KindWorkerUnreachable, KindWorkerTimeout:
		return true
	default:
		return false
	}
}
