package openai

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"indian-airlines-ivr/internal/observability"
	"indian-airlines-ivr/internal/readiness"

	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, status int, body string) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.True(t, strings.HasSuffix(r.URL.Path, "/models/gpt-4o-mini"), "unexpected path %s", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient("sk-test", "gpt-4o-mini", observability.NewNopLogger(),
		option.WithBaseURL(srv.URL+"/"),
		option.WithMaxRetries(0),
	)
	require.NoError(t, err)
	return c
}

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient("", "gpt-4o-mini", observability.NewNopLogger())
	assert.True(t, errors.Is(err, ErrMissingAPIKey))
}

func TestClient_Check(t *testing.T) {
	errorBody := `{"error":{"message":"nope","type":"invalid_request_error","param":null,"code":null}}`
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus readiness.Status
	}{
		{
			name:       "model available",
			status:     http.StatusOK,
			body:       `{"id":"gpt-4o-mini","object":"model","created":1700000000,"owned_by":"openai"}`,
			wantStatus: readiness.StatusHealthy,
		},
		{name: "model missing", status: http.StatusNotFound, body: errorBody, wantStatus: readiness.StatusDegraded},
		{name: "rate limited", status: http.StatusTooManyRequests, body: errorBody, wantStatus: readiness.StatusDegraded},
		{name: "bad key", status: http.StatusUnauthorized, body: errorBody, wantStatus: readiness.StatusUnhealthy},
		{name: "server error", status: http.StatusInternalServerError, body: errorBody, wantStatus: readiness.StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.status, tt.body)
			result := c.Check(context.Background())
			assert.Equal(t, tt.wantStatus, result.Status, "result: %+v", result)
		})
	}
}

func TestClient_CheckNilClient(t *testing.T) {
	var c *Client
	assert.Equal(t, "openai", c.Name())
	assert.Equal(t, readiness.NotConfigured(), c.Check(context.Background()))
	assert.Equal(t, "", c.Model())
}
