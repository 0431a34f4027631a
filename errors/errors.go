package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError is the unified error type for locally detected failures.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Retryable: IsRetryableCode(code),
	}
}

// Serialization creates an AppError for a payload that cannot be encoded as JSON.
func Serialization(message string, cause error) *AppError {
	return &AppError{Code: ErrCodeSerialization, Message: message, Cause: cause}
}

// Validation creates an AppError for data that does not conform to its schema.
func Validation(message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message}
}

// InvalidInput creates an AppError for an invalid argument.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("Invalid input: %s", reason),
		Details: details,
	}
}

// InvalidConfig creates an AppError for a configuration problem.
func InvalidConfig(reason string) *AppError {
	return &AppError{Code: ErrCodeInvalidConfig, Message: reason}
}

// SessionDraining creates an AppError for an acquisition refused during teardown.
func SessionDraining(key string) *AppError {
	return &AppError{
		Code: ErrCodeSessionDraining, Message: "session registry is closing all sessions",
		Retryable: true, Details: map[string]any{"pool_key": key},
	}
}

// SessionClosed creates an AppError for a request issued on a closed session.
func SessionClosed(key string) *AppError {
	return &AppError{
		Code: ErrCodeSessionClosed, Message: "session is closed",
		Retryable: true, Details: map[string]any{"pool_key": key},
	}
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsCode reports whether err is an AppError with the given code.
func IsCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}

// IsSerialization reports whether err is a payload serialization failure.
func IsSerialization(err error) bool { return IsCode(err, ErrCodeSerialization) }

// IsValidation reports whether err is a schema validation failure.
func IsValidation(err error) bool { return IsCode(err, ErrCodeValidation) }
