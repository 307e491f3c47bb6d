package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"indian-airlines-ivr/internal/auth/processor"
	"indian-airlines-ivr/internal/observability"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := observability.NewNopLogger()
	h := New(processor.New(secret, logger), logger)

	r := gin.New()
	r.POST("/protected", h.HandleJWTMiddleware, func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("Operator-ID"))
	})
	return r
}

func TestHandleJWTMiddleware(t *testing.T) {
	logger := observability.NewNopLogger()
	p := processor.New("secret", logger)
	operatorToken, err := p.GenerateOperatorToken(context.Background(), "ops@example.com", time.Hour)
	require.NoError(t, err)

	viewerToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "viewer",
		"iss":  "indian-airlines-ivr",
		"aud":  "indian-airlines-ivr",
		"role": "viewer",
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	tests := []struct {
		name       string
		secret     string
		header     string
		wantStatus int
		wantBody   string
	}{
		{name: "operator token", secret: "secret", header: "Bearer " + operatorToken, wantStatus: http.StatusOK, wantBody: "ops@example.com"},
		{name: "missing header", secret: "secret", wantStatus: http.StatusUnauthorized},
		{name: "not bearer", secret: "secret", header: "Basic abc", wantStatus: http.StatusUnauthorized},
		{name: "bad token", secret: "secret", header: "Bearer nope", wantStatus: http.StatusUnauthorized},
		{name: "wrong role", secret: "secret", header: "Bearer " + viewerToken, wantStatus: http.StatusForbidden},
		{name: "auth disabled", secret: "", header: "Bearer " + operatorToken, wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := setupRouter(tt.secret)
			req := httptest.NewRequest(http.MethodPost, "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, w.Body.String())
			}
		})
	}
}
