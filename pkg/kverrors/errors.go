// Package kverrors defines the error-kind taxonomy shared by the store,
// paths and gather packages.
package kverrors

import (
	"errors"
	"fmt"
)

// Kind classifies an Error. The zero value Ok is never returned as an error;
// it exists so callers can compare a Kind field without a separate bool.
type Kind int

const (
	Ok Kind = iota
	OutOfMemory
	InvalidArgument
	NotFound
	TransactionConflict
	ExtractorFailure
	Unsupported
)

func (k Kind) String() string {
	switch k {
	case Ok:
		return "Ok"
	case OutOfMemory:
		return "OutOfMemory"
	case InvalidArgument:
		return "InvalidArgument"
	case NotFound:
		return "NotFound"
	case TransactionConflict:
		return "TransactionConflict"
	case ExtractorFailure:
		return "ExtractorFailure"
	case Unsupported:
		return "Unsupported"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is the out-parameter error descriptor of §6: a Kind plus a
// stable-lifetime message, and for batch operations the offending row index.
type Error struct {
	Kind    Kind
	Message string
	// Row is the index of the offending row in a batch operation, or -1
	// when the error is not batch-scoped.
	Row int

	wrapped error
}

func (e *Error) Error() string {
	if e.Row >= 0 {
		return fmt.Sprintf("%s: %s (row %d)", e.Kind, e.Message, e.Row)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.wrapped }

// New builds a non-batch-scoped Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, Row: -1}
}

// Newf builds a non-batch-scoped Error with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Row: -1}
}

// AtRow builds a batch-scoped Error carrying the offending row index.
func AtRow(kind Kind, row int, message string) *Error {
	return &Error{Kind: kind, Message: message, Row: row}
}

// Wrap attaches kind/message to an underlying error while preserving it for
// errors.Unwrap/errors.Is chains.
func Wrap(kind Kind, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: err.Error(), Row: -1, wrapped: err}
}

// KindOf extracts the Kind from err if it (or something it wraps) is an
// *Error; otherwise returns Unsupported as a conservative default.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unsupported
}
