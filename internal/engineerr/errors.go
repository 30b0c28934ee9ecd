// Package engineerr provides the tagged-error taxonomy used across the
// DTN forwarding engine. Every engine-internal failure is returned as a
// value of this type; none are allowed to panic across a component
// boundary.
package engineerr

import "fmt"

// Kind classifies an engine error so callers can branch on policy
// (drop, limbo, fatal) without string matching.
type Kind string

const (
	InvalidEncoding Kind = "InvalidEncoding"
	InvalidArgument Kind = "InvalidArgument"
	DeadlineExpired Kind = "DeadlineExpired"
	NoRoute         Kind = "NoRoute"
	RouteMismatch   Kind = "RouteMismatch"
	ContactClosed   Kind = "ContactClosed"
	IoError         Kind = "IoError"
)

// Error is the engine's tagged error type: a Kind plus a human message
// and an optional wrapped cause.
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

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an engine error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap wraps an underlying error with engine error information.
func Wrap(err error, kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == kind
}
