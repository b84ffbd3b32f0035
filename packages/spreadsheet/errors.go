package spreadsheet

import (
	"errors"
	"fmt"
)

// AppErrorCode represents gRPC-style error codes for application-level errors.
// note that we are skipping error codes that don't make sense for our use-case,
// like unauthenticated, or permission denied.
type AppErrorCode int

const (
	// OK indicates the operation completed successfully.
	OK AppErrorCode = 0

	// Unknown error.
	Unknown AppErrorCode = 2

	// InvalidArgument indicates client specified an invalid argument, such as
	// a malformed cell address.
	InvalidArgument AppErrorCode = 3

	// NotFound means some requested entity (column, row or cell) was not
	// found in the grid.
	NotFound AppErrorCode = 5

	// FailedPrecondition indicates operation was rejected because the
	// system is not in a state required for the operation's execution.
	FailedPrecondition AppErrorCode = 9

	// OutOfRange means operation was attempted past the valid range.
	OutOfRange AppErrorCode = 11

	// Internal errors. Means some invariants expected by underlying
	// system has been broken.
	Internal AppErrorCode = 13
)

func (c AppErrorCode) String() string {
	switch c {
	case OK:
		return "OK"
	case InvalidArgument:
		return "InvalidArgument"
	case NotFound:
		return "NotFound"
	case FailedPrecondition:
		return "FailedPrecondition"
	case OutOfRange:
		return "OutOfRange"
	case Internal:
		return "Internal"
	default:
		return "Unknown"
	}
}

// AppError represents errors at the application level (not cell
// evaluation errors, which are carried by value inside a CellView)
type AppError struct {
	Code    AppErrorCode
	Message string
}

func (e *AppError) Error() string {
	return e.Message
}

// Is reports whether target is an *AppError with the same code, so the
// sentinels below can be matched with errors.Is.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewApplicationError creates a new application error
func NewApplicationError(code AppErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

func newApplicationErrorf(code AppErrorCode, format string, args ...any) *AppError {
	return NewApplicationError(code, fmt.Sprintf(format, args...))
}

var (
	// ErrCellNotFound matches any lookup failure of a column, row or cell.
	ErrCellNotFound = NewApplicationError(NotFound, "cell not found")

	// ErrSessionClosed is returned when an edit session is used after it
	// was applied or cancelled.
	ErrSessionClosed = NewApplicationError(FailedPrecondition, "edit session is closed")

	// ErrInvalidAddress is returned for display addresses that do not name a
	// cell of the current grid.
	ErrInvalidAddress = NewApplicationError(InvalidArgument, "invalid address")
)

// ParseError is produced by the cell-text parser for malformed expression
// syntax. It never crosses into the reactive graph: the grid stores the raw
// text and a message as invalid CellProperties instead.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return e.Reason
}

// ErrParse matches every *ParseError with errors.Is.
var ErrParse = &ParseError{Reason: "Unable to parse expression"}

func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

func newParseError(input string) *ParseError {
	return &ParseError{Input: input, Reason: "Unable to parse expression"}
}

// BindError is returned when a parsed reference cannot be bound to the
// current grid structure, e.g. an absolute reference past the last row.
type BindError struct {
	Reference string
	Reason    string
}

func (e *BindError) Error() string {
	return fmt.Sprintf("%s: %s", e.Reference, e.Reason)
}
