// Package importerr defines the error values shared by every import stage.
package importerr

import (
	"errors"
	"fmt"
)

// Import error kinds. Every error produced by the parsers and importers wraps
// exactly one of these, so callers can branch with errors.Is.
var (
	ErrMalformedSyntax        = errors.New("malformed syntax")
	ErrMissingRequiredElement = errors.New("missing required element")
	ErrMissingRequiredKey     = errors.New("missing required key")
	ErrMismatchedCloseTag     = errors.New("mismatched close tag")
	ErrUnexpectedEndOfInput   = errors.New("unexpected end of input")
	ErrInconsistentAsset      = errors.New("inconsistent asset")
)

// NoOffset marks an error that is not tied to a position in the input.
const NoOffset = -1

// Error carries an error kind, the byte offset where it was detected and a
// short description.
type Error struct {
	Err    error
	Offset int
	Detail string
}

func (e *Error) Error() string {
	switch {
	case e.Offset >= 0 && e.Detail != "":
		return fmt.Sprintf("%v at offset %d: %s", e.Err, e.Offset, e.Detail)
	case e.Offset >= 0:
		return fmt.Sprintf("%v at offset %d", e.Err, e.Offset)
	case e.Detail != "":
		return fmt.Sprintf("%v: %s", e.Err, e.Detail)
	default:
		return e.Err.Error()
	}
}

// Unwrap returns the error kind.
func (e *Error) Unwrap() error {
	return e.Err
}

// At returns an error of the given kind detected at offset.
func At(kind error, offset int, format string, args ...any) error {
	return &Error{Err: kind, Offset: offset, Detail: fmt.Sprintf(format, args...)}
}

// New returns an error of the given kind with no input offset.
func New(kind error, format string, args ...any) error {
	return &Error{Err: kind, Offset: NoOffset, Detail: fmt.Sprintf(format, args...)}
}

// OffsetOf reports the byte offset recorded in err, if any.
func OffsetOf(err error) (int, bool) {
	var ie *Error
	if errors.As(err, &ie) && ie.Offset >= 0 {
		return ie.Offset, true
	}
	return 0, false
}
