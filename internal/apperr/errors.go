// Package apperr defines the typed error kinds surfaced by the service layer.
// Every failure is one of four kinds; callers distinguish them with errors.Is.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the referenced card, user or transfer does not exist.
	ErrNotFound = errors.New("resource not found")
	// ErrAccessDenied means the actor lacks ownership or admin rights.
	ErrAccessDenied = errors.New("access denied")
	// ErrValidation means the request itself is malformed.
	ErrValidation = errors.New("validation error")
	// ErrBusinessRule means a domain rule refused the operation.
	ErrBusinessRule = errors.New("business rule violation")
)

// Error carries a kind sentinel and a human-readable message.
type Error struct {
	kind error
	msg  string
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Unwrap() error { return e.kind }

// NotFound builds a ResourceNotFound error.
func NotFound(format string, args ...any) error {
	return &Error{kind: ErrNotFound, msg: fmt.Sprintf(format, args...)}
}

// AccessDenied builds an AccessDenied error.
func AccessDenied(format string, args ...any) error {
	return &Error{kind: ErrAccessDenied, msg: fmt.Sprintf(format, args...)}
}

// Validation builds a ValidationError.
func Validation(format string, args ...any) error {
	return &Error{kind: ErrValidation, msg: fmt.Sprintf(format, args...)}
}

// BusinessRule builds a BusinessRuleViolation error.
func BusinessRule(format string, args ...any) error {
	return &Error{kind: ErrBusinessRule, msg: fmt.Sprintf(format, args...)}
}
