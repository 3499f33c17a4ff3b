package frame

import (
	"errors"
	"fmt"
)

// ErrorKind represents the category of an engine error
type ErrorKind string

const (
	// KindSchema covers length mismatches, duplicate names and unknown columns
	KindSchema ErrorKind = "schema"
	// KindType covers unsupported values, invalid dtype names and failed casts
	KindType ErrorKind = "type"
	// KindBounds covers row and slice indices outside the current extent
	KindBounds ErrorKind = "bounds"
	// KindExecution covers failures while optimizing or executing a plan
	KindExecution ErrorKind = "execution"
	// KindArgument covers invalid enum strings and malformed options
	KindArgument ErrorKind = "argument"
	// KindCodec covers failures inside readers and writers
	KindCodec ErrorKind = "codec"
)

// Error is the typed error returned by every fallible engine operation.
type Error struct {
	Kind    ErrorKind
	Op      string
	Message string
	Cause   error
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s error: %s: %v", e.Kind, msg, e.Cause)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, msg)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates an error of the given kind for operator op.
func NewError(kind ErrorKind, op, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

// WrapError wraps cause with a kind and operator context. A nil cause yields nil.
func WrapError(cause error, kind ErrorKind, op, format string, args ...interface{}) error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// IsKind reports whether any error in err's chain is an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Cause
	}
	return false
}

func schemaErr(op, format string, args ...interface{}) error {
	return NewError(KindSchema, op, format, args...)
}

func typeErr(op, format string, args ...interface{}) error {
	return NewError(KindType, op, format, args...)
}

func boundsErr(op string, index, extent int) error {
	return NewError(KindBounds, op, "index %d out of bounds for length %d", index, extent)
}

func argErr(op, format string, args ...interface{}) error {
	return NewError(KindArgument, op, format, args...)
}

// execErr wraps an underlying failure as an execution error, keeping
// already-typed errors intact so callers can still match their kind.
func execErr(op string, cause error) error {
	if cause == nil {
		return nil
	}
	var e *Error
	if errors.As(cause, &e) {
		return cause
	}
	return &Error{Kind: KindExecution, Op: op, Message: "execution failed", Cause: cause}
}
