package apierrors

import (
	"errors"
	"net/http"
	"strings"

	"indian-airlines-ivr/internal/clients/redis"
	"indian-airlines-ivr/internal/manifest"
	manifestProcessor "indian-airlines-ivr/internal/manifest/processor"
)

// MapError converts domain/processor errors to APIErrors.
//
// If the error is already an APIError, it returns it as-is.
// If the error is a known domain error, it maps it to an appropriate APIError.
// If the error is unknown, it returns a sanitized InternalError (500).
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	// A document that parsed but broke manifest rules
	var verr *manifest.ValidationError
	if errors.As(err, &verr) {
		return UnprocessableEntity(CodeInvalidManifest, verr.Error())
	}

	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		return PayloadTooLarge(CodeDocumentTooLarge, "Request body exceeds the upload limit")

	case errors.Is(err, manifestProcessor.ErrEmptyDocument):
		return BadRequest(CodeEmptyDocument, "Manifest document is empty")

	case errors.Is(err, manifestProcessor.ErrDocumentTooLarge):
		return PayloadTooLarge(CodeDocumentTooLarge, "Manifest document exceeds the upload limit")

	case errors.Is(err, manifestProcessor.ErrUnparseable):
		return BadRequest(CodeUnparseable, unparseableMessage(err))

	case errors.Is(err, redis.ErrNotInitialized):
		return ServiceUnavailable(CodeCacheUnavailable, "Cache is not configured", err)
	}

	return mapExternalServiceError(err)
}

// unparseableMessage keeps the decoder's description of what went wrong,
// which tells the caller the line to fix.
func unparseableMessage(err error) string {
	msg := err.Error()
	prefix := manifestProcessor.ErrUnparseable.Error() + ": "
	if i := strings.Index(msg, prefix); i >= 0 {
		return "Manifest document could not be parsed: " + msg[i+len(prefix):]
	}
	return "Manifest document could not be parsed"
}

// mapExternalServiceError maps errors from third-party services
func mapExternalServiceError(err error) *APIError {
	errMsg := strings.ToLower(err.Error())

	if strings.Contains(errMsg, "redis") {
		return ServiceUnavailable(
			CodeCacheUnavailable,
			"Cache is temporarily unavailable. Please try again later.",
			err,
		)
	}

	if strings.Contains(errMsg, "twilio") || strings.Contains(errMsg, "openai") {
		return ServiceUnavailable(
			CodeDependencyNotReady,
			"A required dependency is temporarily unavailable. Please try again later.",
			err,
		)
	}

	return InternalError(err)
}
