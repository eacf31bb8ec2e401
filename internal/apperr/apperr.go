// Package apperr defines the typed error kinds surfaced across the engine.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindInvalidInput Kind = "invalid_input"
	KindUnavailable  Kind = "unavailable"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindCancelled    Kind = "cancelled"
	KindTimeout      Kind = "timeout"
	KindInternal     Kind = "internal"
)

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func InvalidInput(msg string, err error) *Error { return New(KindInvalidInput, msg, err) }
func Unavailable(msg string, err error) *Error  { return New(KindUnavailable, msg, err) }
func NotFound(msg string, err error) *Error     { return New(KindNotFound, msg, err) }
func Conflict(msg string, err error) *Error     { return New(KindConflict, msg, err) }
func Cancelled(msg string, err error) *Error    { return New(KindCancelled, msg, err) }
func Timeout(msg string, err error) *Error      { return New(KindTimeout, msg, err) }
func Internal(msg string, err error) *Error     { return New(KindInternal, msg, err) }

// KindOf extracts the Kind from err, defaulting to KindInternal when err is
// not an *Error (a bug surfacing as a generic Go error, not a modeled failure).
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

func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
