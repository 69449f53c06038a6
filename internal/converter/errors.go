package converter

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the converter matches exactly one of
// these through errors.Is.
var (
	// ErrInputNotFound is returned when the input file does not exist.
	ErrInputNotFound = errors.New("input file not found")

	// ErrInputRead is returned when the input cannot be read or parsed for
	// reasons other than its text encoding.
	ErrInputRead = errors.New("failed to read input")

	// ErrDecode is returned when the input is not valid in the requested
	// encoding.
	ErrDecode = errors.New("input is not valid in the requested encoding")

	// ErrNoViableEncoding is returned when every candidate encoding failed to
	// decode the input.
	ErrNoViableEncoding = errors.New("no candidate encoding could decode the input")

	// ErrIOWrite is returned when an output file cannot be written.
	ErrIOWrite = errors.New("failed to write output")

	// ErrCellValue is returned when an input cell holds a character a
	// worksheet cannot store, such as a form feed.
	ErrCellValue = errors.New("input holds a character a worksheet cannot store")

	// ErrConfiguration is returned for invalid requests, including batches
	// that cannot fit within the row limit of a target.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrOutputExists is returned when an output exists and the overwrite
	// policy is OverwriteFail.
	ErrOutputExists = errors.New("output already exists")

	// ErrOverwriteDeclined is returned when the confirm callback declines to
	// overwrite existing outputs.
	ErrOverwriteDeclined = errors.New("overwrite declined")

	// ErrCanceled is returned when the context is canceled mid-run. Staged
	// output is discarded.
	ErrCanceled = errors.New("conversion canceled")
)

// Error describes a failed conversion step.
type Error struct {
	// Kind is one of the Err* sentinels above.
	Kind error

	// Op names the step that failed, e.g. "read", "write", "count".
	Op string

	// Path is the file involved, if any.
	Path string

	// Err is the underlying cause. It may be nil.
	Err error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Path != "" {
		msg += " (" + e.Path + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

func configError(format string, args ...interface{}) *Error {
	return newError(ErrConfiguration, "validate", "", fmt.Errorf(format, args...))
}
