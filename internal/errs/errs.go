// Package errs provides structured errors for fedq. Every core failure
// carries a Kind so callers can branch on the condition without parsing
// message text.
package errs

import (
	stdErrors "errors"
	"fmt"
)

// Kind classifies an error condition.
type Kind string

const (
	// KindConfiguration marks invalid hyperparameters or config values
	// rejected at construction time.
	KindConfiguration Kind = "configuration"

	// KindInvalidOperation marks a call that is not legal in the
	// receiver's current state, e.g. Learn on a frozen agent.
	KindInvalidOperation Kind = "invalid_operation"

	// KindParse marks a payload that could not be decoded at all.
	KindParse Kind = "parse"

	// KindSchema marks a payload that decoded but is missing required
	// fields or declares an unsupported version.
	KindSchema Kind = "schema"

	// KindDimensionMismatch marks models whose action-value vectors
	// disagree on length. Non-fatal during merges.
	KindDimensionMismatch Kind = "dimension_mismatch"

	// KindStorage marks a checkpoint store failure.
	KindStorage Kind = "storage"
)

// Error is a structured error with a kind, the failing operation, and an
// optional wrapped cause.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

// E constructs an Error. args may contain a message string and/or an
// error to wrap, in any order; later values win.
func E(kind Kind, op string, args ...any) *Error {
	e := &Error{Kind: kind, Op: op}
	for _, a := range args {
		switch v := a.(type) {
		case string:
			e.Msg = v
		case error:
			e.Err = v
		}
	}
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of err if it is (or wraps) an *Error, or ""
// otherwise.
func KindOf(err error) Kind {
	var e *Error
	if stdErrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
