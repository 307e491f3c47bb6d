package apierrors

import (
	"errors"
	"net/http"
	"sync/atomic"

	"indian-airlines-ivr/internal/observability"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

var logger atomic.Pointer[observability.Logger]

func init() {
	logger.Store(observability.NewNopLogger())
}

// SetLogger routes error response logging to l.
func SetLogger(l *observability.Logger) {
	if l != nil {
		logger.Store(l)
	}
}

// ErrorResponse is the JSON structure returned to API clients for errors
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func respond(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error:     message,
		Code:      code,
		RequestID: observability.RequestID(c.Request.Context()),
	})
}

// RespondWithError converts err to an APIError and sends a sanitized JSON
// response.
//
//	if err != nil {
//	    apierrors.RespondWithError(c, err)
//	    return
//	}
func RespondWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	apiErr := MapError(err)
	ctx := observability.WithFields(c.Request.Context(),
		observability.Field{Key: "status_code", Value: apiErr.StatusCode},
		observability.Field{Key: "error_code", Value: apiErr.Code},
	)
	if apiErr.StatusCode >= http.StatusInternalServerError {
		logger.Load().Error(ctx, "API error response", apiErr.Err)
	} else {
		logger.Load().Debug(ctx, "API error response: "+apiErr.Message)
	}

	respond(c, apiErr.StatusCode, apiErr.Code, apiErr.Message)
}

// RespondWithValidationError handles Gin binding/validation errors.
func RespondWithValidationError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		apiErr := ValidationError(err)
		logger.Load().Debug(c.Request.Context(), "validation failed: "+apiErr.Message)
		respond(c, apiErr.StatusCode, apiErr.Code, apiErr.Message)
		return
	}

	logger.Load().Debug(c.Request.Context(), "request binding failed: "+err.Error())
	respond(c, http.StatusBadRequest, CodeInvalidInput, "Invalid request format. Please check your JSON syntax.")
}
