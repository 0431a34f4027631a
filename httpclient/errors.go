package httpclient

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// ErrorCode classifies HTTP failure responses.
type ErrorCode int

const (
	// ErrCodeUnexpected covers statuses outside the 4xx and 5xx ranges (1xx, 3xx).
	ErrCodeUnexpected ErrorCode = iota
	// ErrCodeAuth indicates an authentication/authorization failure (401/403).
	ErrCodeAuth
	// ErrCodeNotFound indicates the resource was not found (404).
	ErrCodeNotFound
	// ErrCodeRateLimit indicates rate limiting (429).
	ErrCodeRateLimit
	// ErrCodeClient indicates any other 4xx response.
	ErrCodeClient
	// ErrCodeServer indicates a server-side error (5xx).
	ErrCodeServer
)

// String returns the error code name.
func (c ErrorCode) String() string {
	switch c {
	case ErrCodeAuth:
		return "auth"
	case ErrCodeNotFound:
		return "not_found"
	case ErrCodeRateLimit:
		return "rate_limit"
	case ErrCodeClient:
		return "client"
	case ErrCodeServer:
		return "server"
	default:
		return "unexpected"
	}
}

// RequestError describes a non-2xx response. It is never modified after
// construction.
type RequestError struct {
	// StatusCode is the numeric HTTP status.
	StatusCode int
	// Reason is the server's reason phrase, or the standard text for StatusCode.
	Reason string
	// Code classifies the status.
	Code ErrorCode
	// Method and URL identify the failed request.
	Method string
	URL    string
	// Body is the raw response body (may be nil).
	Body []byte
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	if e.Method != "" {
		return fmt.Sprintf("httpclient: %s %s: %d %s", e.Method, e.URL, e.StatusCode, e.Reason)
	}
	return fmt.Sprintf("httpclient: %d %s", e.StatusCode, e.Reason)
}

// Retryable reports whether repeating the request may succeed.
func (e *RequestError) Retryable() bool {
	return e.Code == ErrCodeRateLimit || e.Code == ErrCodeServer
}

// ClassifyStatusCode maps an HTTP status code onto an ErrorCode.
// The second result is false for 2xx codes, which are not failures.
func ClassifyStatusCode(statusCode int) (ErrorCode, bool) {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return 0, false
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return ErrCodeAuth, true
	case statusCode == http.StatusNotFound:
		return ErrCodeNotFound, true
	case statusCode == http.StatusTooManyRequests:
		return ErrCodeRateLimit, true
	case statusCode >= 400 && statusCode < 500:
		return ErrCodeClient, true
	case statusCode >= 500:
		return ErrCodeServer, true
	default:
		return ErrCodeUnexpected, true
	}
}

// newRequestError builds the error for a failed response. It returns nil for
// 2xx responses.
func newRequestError(method, url string, resp *Response) *RequestError {
	code, failed := ClassifyStatusCode(resp.StatusCode)
	if !failed {
		return nil
	}
	return &RequestError{
		StatusCode: resp.StatusCode,
		Reason:     resp.Reason,
		Code:       code,
		Method:     method,
		URL:        url,
		Body:       resp.Body,
	}
}

// reasonPhrase extracts the phrase from a status line such as "404 Not Found",
// falling back to the standard text when the server sent none.
func reasonPhrase(status string, code int) string {
	reason := strings.TrimSpace(strings.TrimPrefix(status, strconv.Itoa(code)))
	if reason == "" {
		return http.StatusText(code)
	}
	return reason
}

// AsRequestError extracts a *RequestError from err.
func AsRequestError(err error) (*RequestError, bool) {
	var e *RequestError
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsAuth checks if an error is an authentication error.
func IsAuth(err error) bool { return hasCode(err, ErrCodeAuth) }

// IsNotFound checks if an error is a not-found error.
func IsNotFound(err error) bool { return hasCode(err, ErrCodeNotFound) }

// IsRateLimit checks if an error is a rate-limit error.
func IsRateLimit(err error) bool { return hasCode(err, ErrCodeRateLimit) }

// IsClientError checks if an error is a 4xx error other than auth, not-found and rate-limit.
func IsClientError(err error) bool { return hasCode(err, ErrCodeClient) }

// IsServerError checks if an error is a server error.
func IsServerError(err error) bool { return hasCode(err, ErrCodeServer) }

func hasCode(err error, code ErrorCode) bool {
	e, ok := AsRequestError(err)
	return ok && e.Code == code
}
