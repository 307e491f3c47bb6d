package apierrors

import (
	"fmt"
	"net/http"
)

// Error codes returned to API clients
const (
	CodeInvalidInput       = "INVALID_INPUT"
	CodeNotFound           = "NOT_FOUND"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeInternalError      = "INTERNAL_ERROR"
	CodeEmptyDocument      = "EMPTY_DOCUMENT"
	CodeDocumentTooLarge   = "DOCUMENT_TOO_LARGE"
	CodeUnparseable        = "UNPARSEABLE_DOCUMENT"
	CodeInvalidManifest    = "INVALID_MANIFEST"
	CodeCacheUnavailable   = "CACHE_UNAVAILABLE"
	CodeDependencyNotReady = "DEPENDENCY_NOT_READY"
	CodeRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
)

// APIError is an error that knows how it should be presented to clients.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// BadRequest builds a 400 error
func BadRequest(code, message string) *APIError {
	return &APIError{StatusCode: http.StatusBadRequest, Code: code, Message: message}
}

// NotFound builds a 404 error
func NotFound(code, message string) *APIError {
	return &APIError{StatusCode: http.StatusNotFound, Code: code, Message: message}
}

// Unauthorized builds a 401 error
func Unauthorized(message string) *APIError {
	return &APIError{StatusCode: http.StatusUnauthorized, Code: CodeUnauthorized, Message: message}
}

// Forbidden builds a 403 error
func Forbidden(message string) *APIError {
	return &APIError{StatusCode: http.StatusForbidden, Code: CodeForbidden, Message: message}
}

// PayloadTooLarge builds a 413 error
func PayloadTooLarge(code, message string) *APIError {
	return &APIError{StatusCode: http.StatusRequestEntityTooLarge, Code: code, Message: message}
}

// UnprocessableEntity builds a 422 error
func UnprocessableEntity(code, message string) *APIError {
	return &APIError{StatusCode: http.StatusUnprocessableEntity, Code: code, Message: message}
}

// ServiceUnavailable builds a 503 error that keeps the cause for logging
func ServiceUnavailable(code, message string, err error) *APIError {
	return &APIError{StatusCode: http.StatusServiceUnavailable, Code: code, Message: message, Err: err}
}

// TooManyRequests creates a 429 error telling the client when to retry
func TooManyRequests(retryAfterSeconds int) *APIError {
	return &APIError{
		StatusCode: http.StatusTooManyRequests,
		Code:       CodeRateLimitExceeded,
		Message:    fmt.Sprintf("Rate limit exceeded, retry in %d seconds", retryAfterSeconds),
	}
}

// InternalError builds a sanitized 500 error. The cause is logged, never sent.
func InternalError(err error) *APIError {
	return &APIError{
		StatusCode: http.StatusInternalServerError,
		Code:       CodeInternalError,
		Message:    "An internal error occurred. Please try again later.",
		Err:        err,
	}
}
