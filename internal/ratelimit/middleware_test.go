package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"indian-airlines-ivr/internal/observability"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newRouter(s *Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/validate", s.Middleware(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func send(r *gin.Engine, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/validate", nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestMiddleware(t *testing.T) {
	r := newRouter(NewService(nil, 1, observability.NewNopLogger()))

	w := send(r, "192.0.2.1:4000")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))

	w = send(r, "192.0.2.1:4001")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "RATE_LIMIT_EXCEEDED")

	w = send(r, "192.0.2.2:4000")
	assert.Equal(t, http.StatusOK, w.Code, "limits are per client")
}

func TestMiddleware_Disabled(t *testing.T) {
	r := newRouter(NewService(nil, 0, observability.NewNopLogger()))

	for i := 0; i < 5; i++ {
		w := send(r, "192.0.2.1:4000")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
	}
}
