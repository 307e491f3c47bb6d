package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"indian-airlines-ivr/internal/observability"
	"indian-airlines-ivr/internal/readiness"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

var ErrMissingAPIKey = errors.New("OpenAI API key is required")

type modelGetter func(ctx context.Context, model string, opts ...option.RequestOption) (*openai.Model, error)

// Client checks that the configured OpenAI key can reach the configured
// model.
type Client struct {
	model    string
	getModel modelGetter
	logger   *observability.Logger
}

// NewClient creates an OpenAI client. Extra request options are appended
// after the API key, which lets tests point the client at a local server.
func NewClient(apiKey, model string, logger *observability.Logger, opts ...option.RequestOption) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	options := append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	client := openai.NewClient(options...)
	return &Client{
		model:    model,
		getModel: client.Models.Get,
		logger:   logger,
	}, nil
}

// Model returns the model the client checks.
func (c *Client) Model() string {
	if c == nil {
		return ""
	}
	return c.model
}

// Name implements readiness.Checker.
func (c *Client) Name() string {
	return "openai"
}

// Check implements readiness.Checker by fetching the configured model.
func (c *Client) Check(ctx context.Context) readiness.CheckResult {
	if c == nil {
		return readiness.NotConfigured()
	}
	ctx = observability.WithFields(ctx, observability.Field{Key: "model", Value: c.model})

	m, err := c.getModel(ctx, c.model)
	if err == nil {
		return readiness.Healthy(fmt.Sprintf("model %s available", m.ID))
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusNotFound:
			c.logger.Warn(ctx, "configured OpenAI model not found")
			return readiness.Degraded(fmt.Sprintf("model %s not available", c.model))
		case http.StatusTooManyRequests:
			return readiness.Degraded("rate limited")
		case http.StatusUnauthorized, http.StatusForbidden:
			c.logger.Error(ctx, "OpenAI rejected the API key", err)
			return readiness.Unhealthy("api key rejected", err)
		}
	}
	c.logger.Error(ctx, "OpenAI model lookup failed", err)
	return readiness.Unhealthy("model lookup failed", err)
}
