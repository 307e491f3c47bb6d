package ratelimit

import (
	"strconv"

	"indian-airlines-ivr/internal/apierrors"
	"indian-airlines-ivr/internal/observability"

	"github.com/gin-gonic/gin"
)

// Middleware limits requests per client IP.
func (s *Service) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.Enabled() {
			c.Next()
			return
		}

		client := c.ClientIP()
		ctx := observability.WithFields(c.Request.Context(),
			observability.Field{Key: "client_ip", Value: client},
			observability.Field{Key: "rate_limit_rpm", Value: s.limit},
		)

		result, err := s.CheckRateLimit(ctx, client)
		if err != nil {
			s.logger.Error(ctx, "rate limit check failed", err)
			apierrors.RespondWithError(c, apierrors.InternalError(err))
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if !result.Allowed {
			retryAfter := (result.RetryAfterMs + 999) / 1000
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			s.logger.Warn(observability.WithFields(ctx,
				observability.Field{Key: "retry_after_ms", Value: result.RetryAfterMs},
			), "rate limit exceeded")
			apierrors.RespondWithError(c, apierrors.TooManyRequests(retryAfter))
			return
		}

		c.Next()
	}
}
