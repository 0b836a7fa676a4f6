// Package workspace holds the server-side operations on accounts,
// organizations and the per-organization table document.
package workspace

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for callers that need to react to it, such as the
// HTTP layer choosing a status code.
type Kind string

const (
	KindValidation        Kind = "validation_error"
	KindInvalidIdentifier Kind = "invalid_identifier"
	KindNotAuthenticated  Kind = "not_authenticated"
	KindForbidden         Kind = "forbidden"
	KindNotFound          Kind = "not_found"
	KindTransient         Kind = "transient_io_error"
	KindInternal          Kind = "internal_error"
)

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrValidation        = &Error{Kind: KindValidation}
	ErrInvalidIdentifier = &Error{Kind: KindInvalidIdentifier}
	ErrNotAuthenticated  = &Error{Kind: KindNotAuthenticated}
	ErrForbidden         = &Error{Kind: KindForbidden}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrTransient         = &Error{Kind: KindTransient}
)

// Error is a classified failure. Field names the offending input, when there is one.
type Error struct {
	Kind    Kind
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on kind so callers can write errors.Is(err, workspace.ErrNotFound).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// FieldOf returns the offending field recorded on err, if any.
func FieldOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Field
	}
	return ""
}

func Validation(field, message string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: message}
}

func InvalidIdentifier(field, message string) *Error {
	return &Error{Kind: KindInvalidIdentifier, Field: field, Message: message}
}

func NotAuthenticated(field, message string) *Error {
	return &Error{Kind: KindNotAuthenticated, Field: field, Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// Transient wraps a storage or network failure the caller may retry.
func Transient(message string, err error) *Error {
	return &Error{Kind: KindTransient, Message: message, Err: err}
}
