// Package apperr defines the coordinator's error taxonomy.  Every domain
// failure carries a Code so that handlers can map it onto an HTTP status
// and clients can decide whether to retry, re-fetch or give up.  Errors
// compare by code: errors.Is(err, apperr.ErrConflict) matches any
// *Error whose Code is Conflict, regardless of message.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Code identifies a class of recoverable failure.
type Code string

const (
	Conflict            Code = "CONFLICT"
	CapacityFull        Code = "CAPACITY_FULL"
	ConstraintViolation Code = "CONSTRAINT_VIOLATION"
	AlreadyHeld         Code = "ALREADY_HELD"
	NotFound            Code = "NOT_FOUND"
	AlreadyAssigned     Code = "ALREADY_ASSIGNED"
	IdentityMismatch    Code = "IDENTITY_MISMATCH"
	Forbidden           Code = "FORBIDDEN"
	Invalid             Code = "INVALID"
	AssignmentCancelled Code = "ASSIGNMENT_CANCELLED"
	Unavailable         Code = "UNAVAILABLE"
)

// Error is a coded domain error.  Remaining is only meaningful for
// AlreadyHeld and tells the caller how long until the blocking hold lapses.
type Error struct {
	Code      Code
	Message   string
	Remaining time.Duration
	Err       error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" {
		msg = string(e.Code)
	} else {
		msg = string(e.Code) + ": " + msg
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || t == nil {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is comparisons.
var (
	ErrConflict            = &Error{Code: Conflict}
	ErrCapacityFull        = &Error{Code: CapacityFull}
	ErrConstraintViolation = &Error{Code: ConstraintViolation}
	ErrAlreadyHeld         = &Error{Code: AlreadyHeld}
	ErrNotFound            = &Error{Code: NotFound}
	ErrAlreadyAssigned     = &Error{Code: AlreadyAssigned}
	ErrIdentityMismatch    = &Error{Code: IdentityMismatch}
	ErrForbidden           = &Error{Code: Forbidden}
	ErrInvalid             = &Error{Code: Invalid}
	ErrAssignmentCancelled = &Error{Code: AssignmentCancelled}
	ErrUnavailable         = &Error{Code: Unavailable}
)

// New builds a coded error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(code Code, err error, msg string) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}

// Held builds an AlreadyHeld error carrying the remaining hold time.
func Held(remaining time.Duration) *Error {
	if remaining < 0 {
		remaining = 0
	}
	return &Error{Code: AlreadyHeld, Message: "room is reserved by someone else", Remaining: remaining}
}

// CodeOf extracts the code of err.  Uncoded errors report Unavailable,
// because the only uncoded failures that reach callers come from the store.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return Unavailable
}

// Status maps a code onto the HTTP status handlers respond with.
func Status(code Code) int {
	switch code {
	case Conflict, CapacityFull, AlreadyAssigned, AssignmentCancelled:
		return http.StatusConflict
	case ConstraintViolation:
		return http.StatusUnprocessableEntity
	case AlreadyHeld:
		return http.StatusLocked
	case NotFound, IdentityMismatch:
		return http.StatusNotFound
	case Forbidden:
		return http.StatusForbidden
	case Invalid:
		return http.StatusBadRequest
	default:
		return http.StatusServiceUnavailable
	}
}
