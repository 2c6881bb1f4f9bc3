package domain

import (
	"errors"
	"fmt"
)

// Sentinel kinds. Use errors.Is(err, ErrNotFound) to classify a *Error.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("validation failed")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

// Error is a client-facing failure carrying a machine-readable reason.
type Error struct {
	Kind    error
	Reason  string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func NotFound(reason, message string) *Error {
	return &Error{Kind: ErrNotFound, Reason: reason, Message: message}
}

func Conflict(reason, message string) *Error {
	return &Error{Kind: ErrConflict, Reason: reason, Message: message}
}

func Validation(reason, message string) *Error {
	return &Error{Kind: ErrValidation, Reason: reason, Message: message}
}

func Forbidden(reason, message string) *Error {
	return &Error{Kind: ErrForbidden, Reason: reason, Message: message}
}

func Unauthorized(reason, message string) *Error {
	return &Error{Kind: ErrUnauthorized, Reason: reason, Message: message}
}

// ReasonOf returns the reason of a *Error anywhere in the chain, or "".
func ReasonOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Reason
	}
	return ""
}
