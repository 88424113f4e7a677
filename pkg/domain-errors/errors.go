// Package domainerrors provides coded errors shared across the service.
//
// Services return these so transport layers can translate failures into
// machine-readable responses without string matching. Conventional import:
//
//	dErrors "matricula/pkg/domain-errors"
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a failure for callers and the HTTP boundary.
type Code string

const (
	// CodeInvalidInput marks validation failures; nothing was mutated.
	CodeInvalidInput Code = "invalid_input"
	// CodeNotFound marks lookups of absent applicants, slots or requirements.
	CodeNotFound Code = "not_found"
	// CodeConflict marks concurrent-mutation and uniqueness failures; callers
	// may retry the operation.
	CodeConflict Code = "conflict"
	// CodeInvariantViolation marks precondition failures such as a missing
	// active admission period.
	CodeInvariantViolation Code = "invariant_violation"
	// CodePersistence marks store failures after side effects were taken;
	// orphaned resources are left for reconciliation.
	CodePersistence Code = "persistence_failure"
	// CodeInternal is the catch-all for unexpected failures.
	CodeInternal Code = "internal"
)

// Error carries a code plus a human-readable message and optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a coded error with no underlying cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf builds a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error. A nil err yields
// nil so call sites can wrap unconditionally.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// CodeOf returns the code of the outermost coded error in the chain, or
// CodeInternal when the chain carries none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf returns the human message of the outermost coded error, or a
// generic message for uncoded errors so internals never leak to clients.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal error"
}
