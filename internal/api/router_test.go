package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/baharkarakas/tappay-backend/internal/api/handlers"
	"github.com/baharkarakas/tappay-backend/internal/auth"
	"github.com/baharkarakas/tappay-backend/internal/config"
	"github.com/baharkarakas/tappay-backend/internal/credentials"
	"github.com/baharkarakas/tappay-backend/internal/gateway"
	"github.com/baharkarakas/tappay-backend/internal/logger"
	"github.com/baharkarakas/tappay-backend/internal/models"
	"github.com/baharkarakas/tappay-backend/internal/payment"
	"github.com/baharkarakas/tappay-backend/internal/repository/memory"
	"github.com/baharkarakas/tappay-backend/internal/services"
)

type testServer struct {
	store  *memory.Store
	tokens *auth.TokenManager
	srv    *httptest.Server
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := logger.Discard()
	store := memory.NewStore()
	store.PutCredentials(models.MerchantCredentials{MerchantID: "m-1", FasstapEnabled: true, FasstapUsername: "u", FasstapPassword: "p"})
	store.PutProduct(models.Product{ID: "p-1", MerchantID: "m-1", Name: "Coffee", Stock: 3})
	repos := store.Repositories()

	cfg := config.Config{Env: "dev", APIRateLimit: 1000, RateLimitRequests: 60, RateLimitWindow: time.Minute}
	loader := credentials.NewLoader(repos.Credentials, nil, 0)
	tokens := auth.NewTokenManager("acc", "ref", "tappay", time.Minute, time.Hour)

	mgr := payment.NewManager(payment.ManagerConfig{
		Credentials:   loader,
		Connectors:    payment.SimulatedConnectors(time.Millisecond),
		Sequencer:     payment.NewSequencer(repos, false, log),
		Audit:         repos.AuditLogs,
		Log:           log,
		NavigateDelay: 10 * time.Millisecond,
		TTL:           time.Minute,
	})
	t.Cleanup(mgr.CloseAll)

	h := NewRouter(RouterDeps{
		Cfg:          cfg,
		Log:          log,
		Tokens:       tokens,
		Auth:         handlers.NewAuthHandler(services.NewMerchantAuthService(repos.Credentials, tokens, cfg.Env)),
		Payments:     handlers.NewPaymentHandler(mgr, log),
		Transactions: handlers.NewTransactionHandler(services.NewTransactionService(repos.Transactions, repos.TransactionItems)),
		Fasstap:      gateway.NewFasstapProxy(gateway.Endpoints{Sandbox: "http://127.0.0.1:1"}, loader, repos.IntegrationLogs, nil, log),
		Lynk:         gateway.NewLynkProxy(gateway.LynkConfig{}, loader, repos.IntegrationLogs, nil, log),
		Limiter:      gateway.NewLimiter(nil, cfg.RateLimitRequests, cfg.RateLimitWindow, log),
	})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &testServer{store: store, tokens: tokens, srv: srv}
}

func (ts *testServer) do(t *testing.T, method, path, token, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, ts.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	var out map[string]any
	if res.StatusCode != http.StatusNoContent {
		_ = json.NewDecoder(res.Body).Decode(&out)
	}
	return res, out
}

func statusOf(body map[string]any) string {
	st, _ := body["state"].(map[string]any)
	s, _ := st["status"].(string)
	return s
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	res, err := http.Get(ts.srv.URL + "/health")
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.NotEmpty(t, res.Header.Get("X-Request-Id"))
}

func TestSessionLifecycle(t *testing.T) {
	ts := newTestServer(t)
	tok := "dev-m-1"

	res, body := ts.do(t, http.MethodPost, "/api/v1/payments/sessions", tok,
		`{"amount":"12.50","cartItems":[{"id":"p-1","quantity":2,"price":"6.25"}]}`)
	require.Equal(t, http.StatusCreated, res.StatusCode)
	id, _ := body["id"].(string)
	require.NotEmpty(t, id)
	require.Equal(t, "idle", statusOf(body))

	view, _ := body["view"].(map[string]any)
	require.Equal(t, []any{"start"}, view["actions"])

	res, _ = ts.do(t, http.MethodPost, "/api/v1/payments/sessions/"+id+"/start", tok, "")
	require.Equal(t, http.StatusOK, res.StatusCode)

	require.Eventually(t, func() bool {
		_, body := ts.do(t, http.MethodGet, "/api/v1/payments/sessions/"+id, tok, "")
		return statusOf(body) == "success"
	}, 2*time.Second, 10*time.Millisecond)

	p, _ := ts.store.Product("p-1")
	require.Equal(t, 1, p.Stock)

	req, err := http.NewRequest(http.MethodGet, ts.srv.URL+"/api/v1/transactions", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+tok)
	listRes, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	var txs []models.Transaction
	require.NoError(t, json.NewDecoder(listRes.Body).Decode(&txs))
	listRes.Body.Close()
	require.Len(t, txs, 1)

	res, detail := ts.do(t, http.MethodGet, "/api/v1/transactions/"+txs[0].ID, tok, "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Len(t, detail["items"], 1)

	res, _ = ts.do(t, http.MethodDelete, "/api/v1/payments/sessions/"+id, tok, "")
	require.Equal(t, http.StatusNoContent, res.StatusCode)
	res, _ = ts.do(t, http.MethodGet, "/api/v1/payments/sessions/"+id, tok, "")
	require.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestSessionsAreMerchantScoped(t *testing.T) {
	ts := newTestServer(t)
	_, body := ts.do(t, http.MethodPost, "/api/v1/payments/sessions", "dev-m-1", `{"amount":5}`)
	id, _ := body["id"].(string)

	res, _ := ts.do(t, http.MethodGet, "/api/v1/payments/sessions/"+id, "dev-m-2", "")
	require.Equal(t, http.StatusNotFound, res.StatusCode)
	res, _ = ts.do(t, http.MethodPost, "/api/v1/payments/sessions/"+id+"/cancel", "dev-m-2", "")
	require.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestCreateSessionValidation(t *testing.T) {
	ts := newTestServer(t)
	for _, body := range []string{
		`{"amount":0}`,
		`{"amount":"10","rail":"cash"}`,
		`{"amount":"10","cartItems":[{"id":"","quantity":0,"price":"1"}]}`,
	} {
		res, out := ts.do(t, http.MethodPost, "/api/v1/payments/sessions", "dev-m-1", body)
		require.Equal(t, http.StatusUnprocessableEntity, res.StatusCode, body)
		require.Equal(t, "validation_failed", out["code"])
	}

	res, _ := ts.do(t, http.MethodPost, "/api/v1/payments/sessions", "dev-m-1", `{not json`)
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestSessionWithoutCredentialsStartsFailed(t *testing.T) {
	ts := newTestServer(t)
	res, body := ts.do(t, http.MethodPost, "/api/v1/payments/sessions", "dev-m-unknown", `{"amount":5}`)
	require.Equal(t, http.StatusCreated, res.StatusCode)
	require.Equal(t, "failed", statusOf(body))
	st, _ := body["state"].(map[string]any)
	require.Equal(t, payment.MsgCredentialLoad, st["errorMessage"])
}

func TestAPIRequiresAuth(t *testing.T) {
	ts := newTestServer(t)
	res, _ := ts.do(t, http.MethodGet, "/api/v1/transactions", "", "")
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestTokenEndpointIssuesUsableToken(t *testing.T) {
	ts := newTestServer(t)
	res, body := ts.do(t, http.MethodPost, "/api/v1/auth/token", "", `{"merchantId":"m-1","apiKey":"x"}`)
	require.Equal(t, http.StatusOK, res.StatusCode)
	access, _ := body["access_token"].(string)
	require.NotEmpty(t, access)

	res, _ = ts.do(t, http.MethodGet, "/api/v1/transactions", access, "")
	require.Equal(t, http.StatusOK, res.StatusCode)

	res, _ = ts.do(t, http.MethodPost, "/api/v1/auth/token", "", `{"merchantId":"nobody"}`)
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestProxyRoutes(t *testing.T) {
	ts := newTestServer(t)
	res, body := ts.do(t, http.MethodPost, "/functions/v1/fasstap-proxy", "", `{}`)
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
	require.Equal(t, "merchantId is required", body["error"])

	res, body = ts.do(t, http.MethodPost, "/functions/v1/lynk-proxy", "", `{"merchantId":"m-1"}`)
	require.Equal(t, http.StatusForbidden, res.StatusCode)
	require.Equal(t, "gateway_disabled", body["code"])

	require.Len(t, ts.store.IntegrationLogs(), 2)
}
