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

// Predefined errors. The taxonomy drives per-tick handling: transient
// provider failures skip one symbol for one tick, no-data is not a
// failure at all, store errors keep the loop running on in-memory state.
var (
	// Provider errors (transient, skip this symbol/signal this tick)
	ErrProviderFailed  = &Error{Code: "PROVIDER_FAILED", Message: "provider request failed"}
	ErrProviderTimeout = &Error{Code: "PROVIDER_TIMEOUT", Message: "provider request timed out"}

	// Data absence (not a failure)
	ErrSymbolNotFound = &Error{Code: "SYMBOL_NOT_FOUND", Message: "symbol not found"}
	ErrNoData         = &Error{Code: "NO_DATA", Message: "no data available"}

	// Config store errors (log, continue on last known state)
	ErrStoreUnavailable = &Error{Code: "STORE_UNAVAILABLE", Message: "config store unreachable"}

	// Command errors (user-facing usage reply, never raised to the loop)
	ErrBadCommand = &Error{Code: "BAD_COMMAND", Message: "malformed command"}

	// Notifier errors (logged and dropped, at-most-once delivery)
	ErrNotifierFailed = &Error{Code: "NOTIFIER_FAILED", Message: "notifier failed"}

	// Startup errors (unrecoverable, exit cleanly)
	ErrConfigInvalid  = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid"}
	ErrConfigMissing  = &Error{Code: "CONFIG_MISSING", Message: "required configuration missing"}
	ErrAlreadyRunning = &Error{Code: "ALREADY_RUNNING", Message: "another instance is already running"}
)
