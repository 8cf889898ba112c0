// Package apperr defines the error kinds every domain operation returns.
//
// Storage errors never cross the service boundary raw: they are translated
// into one of the kinds below so the transport layer can render a precise,
// user-facing message.
package apperr

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Kind classifies a failure for the caller.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindAlreadyUsed  Kind = "already_used"
	KindExpired      Kind = "expired"
	KindConflict     Kind = "conflict"
	KindUnauthorized Kind = "unauthorized"
	KindStorage      Kind = "storage"
)

// Error is the discriminated failure returned by services.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind so callers can write errors.Is(err, apperr.ErrNotFound).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// Sentinels for errors.Is comparisons.
var (
	ErrValidation   = &Error{Kind: KindValidation}
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrAlreadyUsed  = &Error{Kind: KindAlreadyUsed}
	ErrExpired      = &Error{Kind: KindExpired}
	ErrConflict     = &Error{Kind: KindConflict}
	ErrUnauthorized = &Error{Kind: KindUnauthorized}
	ErrStorage      = &Error{Kind: KindStorage}
)

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFound(what string) *Error {
	return &Error{Kind: KindNotFound, Message: what + " not found"}
}

func AlreadyUsed(msg string) *Error {
	return &Error{Kind: KindAlreadyUsed, Message: msg}
}

func Expired(msg string) *Error {
	return &Error{Kind: KindExpired, Message: msg}
}

func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func Unauthorized(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Message: msg}
}

// Storage wraps an unclassified store failure. The wrapped error is kept for
// logs only; Message is what callers see.
func Storage(op string, err error) *Error {
	return &Error{Kind: KindStorage, Message: "storage failure during " + op, Err: err}
}

// KindOf reports the kind of err, or KindStorage for anything unclassified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStorage
}

// IsDuplicate reports whether err is a unique-constraint violation.
// Drivers that do not implement gorm's error translation are matched on text.
func IsDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "sqlstate 23505")
}

// FromDB translates a gorm error. what names the entity for NotFound messages,
// conflictMsg is shown on unique violations.
func FromDB(err error, what, conflictMsg string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return NotFound(what)
	case IsDuplicate(err):
		return &Error{Kind: KindConflict, Message: conflictMsg, Err: err}
	default:
		return Storage(what, err)
	}
}
