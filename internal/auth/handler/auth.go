package handler

import (
	"errors"
	"strings"

	"indian-airlines-ivr/internal/apierrors"
	"indian-airlines-ivr/internal/auth/processor"
	"indian-airlines-ivr/internal/observability"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	authProcessor processor.AuthProcessor
	logger        *observability.Logger
}

func New(authProcessor processor.AuthProcessor, logger *observability.Logger) Handler {
	return Handler{
		authProcessor: authProcessor,
		logger:        logger,
	}
}

// HandleJWTMiddleware admits requests that carry a bearer token with the
// operator role and stores its subject under "Operator-ID".
func (h *Handler) HandleJWTMiddleware(c *gin.Context) {
	ctx := c.Request.Context()
	tokenHeader := c.GetHeader("Authorization")

	if tokenHeader == "" || !strings.HasPrefix(tokenHeader, "Bearer ") {
		apierrors.RespondWithError(c, apierrors.Unauthorized("Authorization token is missing or invalid"))
		return
	}
	tokenString := strings.TrimPrefix(tokenHeader, "Bearer ")

	claims, err := h.authProcessor.AuthorizeOperator(ctx, tokenString)
	if err != nil {
		switch {
		case errors.Is(err, processor.ErrForbiddenRole):
			apierrors.RespondWithError(c, apierrors.Forbidden("Operator role required"))
		case errors.Is(err, processor.ErrAuthNotConfigured):
			apierrors.RespondWithError(c, apierrors.Unauthorized("Operator authentication is not configured"))
		case errors.Is(err, processor.ErrExpiredToken):
			apierrors.RespondWithError(c, apierrors.Unauthorized("Token expired"))
		default:
			apierrors.RespondWithError(c, apierrors.Unauthorized("Invalid token"))
		}
		return
	}

	c.Set("Operator-ID", claims.Subject)
	c.Next()
}
