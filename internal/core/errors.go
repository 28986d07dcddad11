// internal/core/errors.go
package core

import "fmt"

// Error represents a structured error with code and optional cause.
type Error struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is matching by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WrapError creates a new error with the same code but with a cause.
func WrapError(base *Error, cause error) *Error {
	return &Error{
		Code:    base.Code,
		Message: base.Message,
		Cause:   cause,
	}
}

// Predefined errors
var (
	// Data errors
	ErrSymbolNotFound = &Error{Code: "SYMBOL_NOT_FOUND", Message: "symbol not found"}
	ErrNoData         = &Error{Code: "NO_DATA", Message: "no data available"}

	// Collector errors
	ErrCollectorFailed  = &Error{Code: "COLLECTOR_FAILED", Message: "collector failed"}
	ErrCollectorTimeout = &Error{Code: "COLLECTOR_TIMEOUT", Message: "collector timeout"}

	// Simulation errors
	ErrSimulationFailed = &Error{Code: "SIMULATION_FAILED", Message: "simulation failed"}
	ErrInvalidParams    = &Error{Code: "INVALID_PARAMS", Message: "invalid parameters"}

	// Notifier errors
	ErrNotifierFailed = &Error{Code: "NOTIFIER_FAILED", Message: "notifier failed"}

	// Storage errors
	ErrReportNotFound = &Error{Code: "REPORT_NOT_FOUND", Message: "report not found"}
	ErrArchiveFailed  = &Error{Code: "ARCHIVE_FAILED", Message: "archive write failed"}
	ErrJobNotFound    = &Error{Code: "JOB_NOT_FOUND", Message: "job not found"}

	// Config errors
	ErrConfigInvalid = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid"}
	ErrConfigMissing = &Error{Code: "CONFIG_MISSING", Message: "required configuration missing"}

	// API errors
	ErrUnauthorized = &Error{Code: "UNAUTHORIZED", Message: "unauthorized"}
)
