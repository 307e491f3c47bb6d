package twilio

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"indian-airlines-ivr/internal/observability"
	"indian-airlines-ivr/internal/readiness"

	"github.com/twilio/twilio-go"
	twilioclient "github.com/twilio/twilio-go/client"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

var ErrMissingCredentials = errors.New("Twilio account SID and auth token are required")

// AccountFetcher is the slice of the Twilio REST API the client needs.
type AccountFetcher interface {
	FetchAccount(sid string) (*openapi.ApiV2010Account, error)
}

// Client verifies the Twilio account the service is provisioned with.
type Client struct {
	accountSID string
	api        AccountFetcher
	logger     *observability.Logger
}

// NewClient creates a Twilio REST client for the given account.
func NewClient(accountSID, authToken string, logger *observability.Logger) (*Client, error) {
	if accountSID == "" || authToken == "" {
		return nil, ErrMissingCredentials
	}
	rest := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return NewWithFetcher(accountSID, rest.Api, logger), nil
}

// NewWithFetcher builds a client around an existing API implementation.
func NewWithFetcher(accountSID string, api AccountFetcher, logger *observability.Logger) *Client {
	return &Client{
		accountSID: accountSID,
		api:        api,
		logger:     logger,
	}
}

// Name implements readiness.Checker.
func (c *Client) Name() string {
	return "twilio"
}

// Check implements readiness.Checker. An active account is healthy, a
// suspended one degraded, anything else unhealthy.
func (c *Client) Check(ctx context.Context) readiness.CheckResult {
	if c == nil {
		return readiness.NotConfigured()
	}
	ctx = observability.WithFields(ctx, observability.Field{Key: "account_sid", Value: c.accountSID})

	account, err := c.api.FetchAccount(c.accountSID)
	if err != nil {
		var restErr *twilioclient.TwilioRestError
		if errors.As(err, &restErr) && (restErr.Status == http.StatusUnauthorized || restErr.Status == http.StatusForbidden) {
			c.logger.Error(ctx, "Twilio rejected the account credentials", err)
			return readiness.Unhealthy("credentials rejected", err)
		}
		c.logger.Error(ctx, "failed to fetch Twilio account", err)
		return readiness.Unhealthy("account lookup failed", err)
	}

	status := ""
	if account != nil && account.Status != nil {
		status = *account.Status
	}
	switch status {
	case "active":
		return readiness.Healthy("account active")
	case "suspended":
		c.logger.Warn(ctx, "Twilio account is suspended")
		return readiness.Degraded("account suspended")
	default:
		return readiness.Unhealthy(fmt.Sprintf("account status %q", status), nil)
	}
}
