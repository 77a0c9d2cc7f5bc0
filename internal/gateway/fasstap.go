package gateway

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/baharkarakas/tappay-backend/internal/models"
	"github.com/baharkarakas/tappay-backend/internal/repository"
)

type fasstap struct {
	endpoints Endpoints
}

// NewFasstapProxy forwards to the Fasstap API with HTTP Basic credentials.
// A base URL stored on the merchant row overrides the configured endpoints.
func NewFasstapProxy(endpoints Endpoints, creds CredentialSource, logs repository.IntegrationLogs, client *http.Client, log *slog.Logger) *Proxy {
	return newProxy(ServiceFasstap, &fasstap{endpoints: endpoints}, creds, logs, client, log)
}

func (f *fasstap) defaultEndpoint() string { return "/payments" }

func (f *fasstap) check(c *models.MerchantCredentials) error {
	if !c.FasstapEnabled {
		return ErrDisabled
	}
	if !c.HasFasstap() {
		return ErrIncomplete
	}
	return nil
}

func (f *fasstap) build(ctx context.Context, _ *http.Client, c *models.MerchantCredentials, endpoint, method string, data map[string]any) (*http.Request, error) {
	base := c.FasstapBaseURL
	if base == "" {
		base = f.endpoints.For(c.Environment)
	}

	var body io.Reader
	if hasBody(method) {
		b, err := jsonBody(data)
		if err != nil {
			return nil, err
		}
		body = b
	}
	req, err := http.NewRequestWithContext(ctx, method, joinURL(base, endpoint), body)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.FasstapUsername, c.FasstapPassword)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}
