package gateway

import (
	"context"
	"io"
	"log/slog"
	"maps"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/baharkarakas/tappay-backend/internal/models"
	"github.com/baharkarakas/tappay-backend/internal/repository"
)

type LynkConfig struct {
	Endpoints       Endpoints
	TokenPath       string
	NotificationURL string
}

type lynk struct {
	cfg LynkConfig
}

// NewLynkProxy forwards to the Lynk CBDC API. Each call first exchanges the
// merchant's client credentials for a bearer token.
func NewLynkProxy(cfg LynkConfig, creds CredentialSource, logs repository.IntegrationLogs, client *http.Client, log *slog.Logger) *Proxy {
	if cfg.TokenPath == "" {
		cfg.TokenPath = "/oauth/token"
	}
	return newProxy(ServiceLynk, &lynk{cfg: cfg}, creds, logs, client, log)
}

func (l *lynk) defaultEndpoint() string { return "/payments" }

func (l *lynk) check(c *models.MerchantCredentials) error {
	if !c.LynkEnabled {
		return ErrDisabled
	}
	if !c.HasLynk() {
		return ErrIncomplete
	}
	return nil
}

func (l *lynk) build(ctx context.Context, client *http.Client, c *models.MerchantCredentials, endpoint, method string, data map[string]any) (*http.Request, error) {
	base := l.cfg.Endpoints.For(c.Environment)

	cc := clientcredentials.Config{
		ClientID:     c.LynkClientID,
		ClientSecret: c.LynkClientSecret,
		TokenURL:     joinURL(base, l.cfg.TokenPath),
	}
	tok, err := cc.Token(context.WithValue(ctx, oauth2.HTTPClient, client))
	if err != nil {
		return nil, &Error{Status: http.StatusInternalServerError, Code: "token_exchange_failed", Message: "lynk authentication failed", Err: err}
	}

	var body io.Reader
	if hasBody(method) {
		payload := maps.Clone(data)
		if payload == nil {
			payload = map[string]any{}
		}
		payload["merchantAccountId"] = c.LynkMerchantAccountID
		if l.cfg.NotificationURL != "" {
			payload["notificationUrl"] = l.cfg.NotificationURL
		}
		b, err := jsonBody(payload)
		if err != nil {
			return nil, err
		}
		body = b
	}

	req, err := http.NewRequestWithContext(ctx, method, joinURL(base, endpoint), body)
	if err != nil {
		return nil, err
	}
	tok.SetAuthHeader(req)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}
