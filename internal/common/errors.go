// Package common defines the shared error taxonomy and small helpers used
// across fittrack server components. Callers should use errors.Is / errors.As
// to match the values defined here.
package common

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"
)

// Kind is the closed set of failure categories surfaced by the server.
type Kind uint8

const (
	KindInternal Kind = iota
	KindTokenMalformed
	KindTokenExpired
	KindUnauthenticated
	KindForbidden
	KindDecryptionFailure
	KindValidationFailure
	KindNotFound
	KindConflict
)

// String returns the canonical name of the kind.
func (k Kind) String() string {
	switch k {
	case KindTokenMalformed:
		return "TokenMalformed"
	case KindTokenExpired:
		return "TokenExpired"
	case KindUnauthenticated:
		return "Unauthenticated"
	case KindForbidden:
		return "Forbidden"
	case KindDecryptionFailure:
		return "DecryptionFailure"
	case KindValidationFailure:
		return "ValidationFailure"
	case KindNotFound:
		return "NotFound"
	case KindConflict:
		return "Conflict"
	default:
		return "Internal"
	}
}

// StatusCode returns the default HTTP status for the kind.
func (k Kind) StatusCode() int {
	switch k {
	case KindTokenMalformed, KindTokenExpired, KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindValidationFailure:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		// DecryptionFailure lands here too: a corrupt stored field is a
		// server-side data problem even though its message is safe to show.
		return http.StatusInternalServerError
	}
}

// Operational reports whether errors of this kind are expected,
// policy-driven failures whose message may be shown to clients verbatim.
func (k Kind) Operational() bool {
	return k != KindInternal
}

// AppError is the single error type that crosses component boundaries.
type AppError struct {
	Kind    Kind
	Message string
	// Err is the underlying cause, if any. It is never shown to clients.
	Err error

	stack []uintptr
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// Is matches any *AppError of the same Kind, so sentinel values such as
// ErrTokenExpired work with errors.Is regardless of message or cause.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// StatusCode is the HTTP status the error maps to.
func (e *AppError) StatusCode() int { return e.Kind.StatusCode() }

// Operational reports whether the message is safe to expose.
func (e *AppError) Operational() bool { return e.Kind.Operational() }

// Stack returns the call stack captured when a non-operational error was
// created. It is empty for operational errors.
func (e *AppError) Stack() string {
	if len(e.stack) == 0 {
		return ""
	}
	var b strings.Builder
	frames := runtime.CallersFrames(e.stack)
	for {
		f, more := frames.Next()
		fmt.Fprintf(&b, "%s\n\t%s:%d\n", f.Function, f.File, f.Line)
		if !more {
			break
		}
	}
	return b.String()
}

// Sentinel values, one per kind. Compare with errors.Is.
var (
	ErrTokenMalformed    = &AppError{Kind: KindTokenMalformed, Message: "Invalid token. Please log in again!"}
	ErrTokenExpired      = &AppError{Kind: KindTokenExpired, Message: "Your token has expired! Please log in again."}
	ErrUnauthenticated   = &AppError{Kind: KindUnauthenticated, Message: "You are not logged in! Please log in to get access."}
	ErrForbidden         = &AppError{Kind: KindForbidden, Message: "You do not have permission to perform this action"}
	ErrDecryptionFailure = &AppError{Kind: KindDecryptionFailure, Message: "Failed to decrypt field"}
	ErrValidation        = &AppError{Kind: KindValidationFailure, Message: "validation failed"}
	ErrorNotFound        = &AppError{Kind: KindNotFound, Message: "not found"}
	ErrConflict          = &AppError{Kind: KindConflict, Message: "conflict"}
	ErrorInternal        = &AppError{Kind: KindInternal, Message: "internal error"}
)

// New creates an AppError of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *AppError {
	e := &AppError{Kind: kind, Message: fmt.Sprintf(format, args...)}
	if !kind.Operational() {
		e.stack = callers()
	}
	return e
}

// Plain creates an AppError with a fixed message. Unlike New, message is
// not a format string, so sentinel messages can be reused verbatim.
func Plain(kind Kind, message string) *AppError {
	e := &AppError{Kind: kind, Message: message}
	if !kind.Operational() {
		e.stack = callers()
	}
	return e
}

// Wrap creates an AppError of the given kind that keeps err as its cause.
func Wrap(kind Kind, err error, format string, args ...any) *AppError {
	e := New(kind, format, args...)
	e.Err = err
	return e
}

// AsAppError normalises err into an *AppError. Errors that are not already
// part of the taxonomy become non-operational Internal errors.
func AsAppError(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return &AppError{Kind: KindInternal, Message: "internal error", Err: err, stack: callers()}
}

// KindOf returns the taxonomy kind of err, KindInternal for foreign errors.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

func callers() []uintptr {
	pcs := make([]uintptr, 32)
	// skip runtime.Callers, callers and the constructor
	n := runtime.Callers(3, pcs)
	return pcs[:n]
}
