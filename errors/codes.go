package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Payload errors, raised before any network call.
const (
	// ErrCodeSerialization indicates a request payload could not be made JSON-safe.
	ErrCodeSerialization ErrorCode = "SERIALIZATION_FAILED"
	// ErrCodeInvalidInput indicates the request descriptor itself is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// Response errors
const (
	// ErrCodeValidation indicates a response body does not conform to the requested model.
	ErrCodeValidation ErrorCode = "VALIDATION_FAILED"
)

// Session registry errors
const (
	// ErrCodeSessionDraining indicates the registry is closing all sessions.
	ErrCodeSessionDraining ErrorCode = "SESSION_DRAINING"
	// ErrCodeSessionClosed indicates a session was used after it was closed.
	ErrCodeSessionClosed ErrorCode = "SESSION_CLOSED"
	// ErrCodeInvalidConfig indicates a client or registry was misconfigured.
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeSessionDraining: true,
	ErrCodeSessionClosed:   true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
