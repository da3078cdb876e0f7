package source

import (
	"errors"
	"fmt"
)

// Process exit codes reported for the error kinds of this package.
const (
	ExitCodeGeneric      = 1
	ExitCodeInvalidInput = 3
	ExitCodeDataLoss     = 29
)

// InvalidInputError is returned when a supplied path cannot become an upload unit:
// it does not exist, is empty, is a directory when directories are rejected,
// is too large when large files are rejected, or names a missing thumbnail.
type InvalidInputError struct {
	Path   string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input %q: %s", e.Path, e.Reason)
}

// IsInvalidInput ...
func IsInvalidInput(err error) bool {
	var e *InvalidInputError
	return errors.As(err, &e)
}

// ConsistencyError signals that a window delivered fewer bytes than it still owed.
// The file changed while it was being read or the window accounting is wrong;
// it is never retried.
type ConsistencyError struct {
	Name     string
	Position int64
	Want     int64
	Got      int64
	Err      error
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("unexpected end of file in %s at offset %d: wanted %d bytes, got %d", e.Name, e.Position, e.Want, e.Got)
}

func (e *ConsistencyError) Unwrap() error { return e.Err }

// IsConsistency ...
func IsConsistency(err error) bool {
	var e *ConsistencyError
	return errors.As(err, &e)
}

// UnsupportedValueError is returned at unit construction for an option value
// of the wrong kind, such as an unknown thumbnail selector.
type UnsupportedValueError struct {
	Field string
	Value interface{}
}

func (e *UnsupportedValueError) Error() string {
	return fmt.Sprintf("unsupported value for %s: %v", e.Field, e.Value)
}

// IsUnsupportedValue ...
func IsUnsupportedValue(err error) bool {
	var e *UnsupportedValueError
	return errors.As(err, &e)
}

// ExitCode maps err to the process exit code callers should terminate with.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case IsInvalidInput(err):
		return ExitCodeInvalidInput
	case IsConsistency(err):
		return ExitCodeDataLoss
	default:
		return ExitCodeGeneric
	}
}
