// Package errors provides standardized error types for table and pipeline
// operations. DataFrameError carries the operation, the column when one is
// involved, and an optional wrapped cause.
package errors

import (
	stderrors "errors"
	"fmt"
)

// DataFrameError represents standardized errors across table operations
type DataFrameError struct {
	Op      string // Operation name (e.g., "Read", "Normalize", "Write")
	Column  string // Column name if applicable
	Message string // Human-readable error description
	Cause   error  // Underlying error cause
}

// Error implements the error interface
func (e *DataFrameError) Error() string {
	msg := e.Message
	switch {
	case e.Cause != nil && msg == "":
		msg = e.Cause.Error()
	case e.Cause != nil:
		msg = fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	if e.Column != "" {
		return fmt.Sprintf("%s operation failed on column '%s': %s", e.Op, e.Column, msg)
	}
	return fmt.Sprintf("%s operation failed: %s", e.Op, msg)
}

// Unwrap returns the underlying cause for error wrapping support
func (e *DataFrameError) Unwrap() error {
	return e.Cause
}

// Is implements error equality checking for errors.Is()
func (e *DataFrameError) Is(target error) bool {
	if df, ok := target.(*DataFrameError); ok {
		return e.Op == df.Op && e.Column == df.Column && e.Message == df.Message
	}
	return false
}

// ErrInputNotFound is matched with errors.Is when the input table does not exist.
var ErrInputNotFound = stderrors.New("input file not found")

// InputNotFoundError reports a missing input path.
type InputNotFoundError struct {
	Path string
}

func (e *InputNotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Path)
}

// Is makes every InputNotFoundError match ErrInputNotFound.
func (e *InputNotFoundError) Is(target error) bool {
	return target == ErrInputNotFound
}

// NewInputNotFoundError creates the fatal error for a missing input file.
func NewInputNotFoundError(path string) *InputNotFoundError {
	return &InputNotFoundError{Path: path}
}

// NewColumnNotFoundError creates an error for operations on non-existent columns
func NewColumnNotFoundError(op, column string) *DataFrameError {
	return &DataFrameError{
		Op:      op,
		Column:  column,
		Message: "column does not exist",
	}
}

// NewInvalidInputError creates an error for invalid operation inputs
func NewInvalidInputError(op, message string) *DataFrameError {
	return &DataFrameError{
		Op:      op,
		Message: message,
	}
}

// NewUnsupportedTypeError creates an error for unsupported data types
func NewUnsupportedTypeError(op, typeName string) *DataFrameError {
	return &DataFrameError{
		Op:      op,
		Message: fmt.Sprintf("unsupported type: %s", typeName),
	}
}

// NewValidationError creates an error for input validation failures
func NewValidationError(op, column, message string) *DataFrameError {
	return &DataFrameError{
		Op:      op,
		Column:  column,
		Message: message,
	}
}

// NewProcessingError wraps an unexpected failure inside a pipeline stage.
func NewProcessingError(op string, cause error) *DataFrameError {
	return &DataFrameError{
		Op:      op,
		Message: "processing failed",
		Cause:   cause,
	}
}

// Sentinel causes carried by validation errors. Match them with errors.Is.
var (
	ErrEmptyDataFrame   = stderrors.New("operation not supported on empty DataFrame")
	ErrMismatchedLength = stderrors.New("arrays must have the same length")
)
