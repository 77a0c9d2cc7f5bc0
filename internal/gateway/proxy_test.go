package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/baharkarakas/tappay-backend/internal/credentials"
	"github.com/baharkarakas/tappay-backend/internal/logger"
	"github.com/baharkarakas/tappay-backend/internal/models"
	"github.com/baharkarakas/tappay-backend/internal/repository/memory"
)

type captured struct {
	method, path, auth string
	body               map[string]any
}

func upstreamServer(t *testing.T, status int, reply string, got *captured) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth/token" {
			if err := r.ParseForm(); err != nil || r.Form.Get("grant_type") != "client_credentials" {
				http.Error(w, "bad grant", http.StatusBadRequest)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"access_token":"tok-123","token_type":"Bearer","expires_in":3600}`)
			return
		}
		got.method = r.Method
		got.path = r.URL.Path
		got.auth = r.Header.Get("Authorization")
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&got.body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func fixture(t *testing.T, c models.MerchantCredentials) (*memory.Store, *credentials.Loader) {
	t.Helper()
	st := memory.NewStore()
	st.PutCredentials(c)
	return st, credentials.NewLoader(st.Repositories().Credentials, nil, 0)
}

func post(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.RemoteAddr = "10.0.0.1:5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestFasstapProxyForwardsWithBasicAuth(t *testing.T) {
	var got captured
	up := upstreamServer(t, http.StatusCreated, `{"transactionId":"tx-abc","status":"APPROVED"}`, &got)
	st, loader := fixture(t, models.MerchantCredentials{
		MerchantID: "m1", FasstapEnabled: true, FasstapUsername: "alice", FasstapPassword: "pw",
	})
	p := NewFasstapProxy(Endpoints{Sandbox: up.URL}, loader, st.Repositories().IntegrationLogs, up.Client(), logger.Discard())

	rec := post(t, p, `{"merchantId":"m1","endpoint":"/payments","data":{"amount":"25.00"}}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.JSONEq(t, `{"transactionId":"tx-abc","status":"APPROVED"}`, rec.Body.String())
	require.Equal(t, http.MethodPost, got.method)
	require.Equal(t, "/payments", got.path)
	require.True(t, strings.HasPrefix(got.auth, "Basic "))
	require.Equal(t, "25.00", got.body["amount"])

	logs := st.IntegrationLogs()
	require.Len(t, logs, 1)
	require.Equal(t, "m1", logs[0].MerchantID)
	require.Equal(t, ServiceFasstap, logs[0].Service)
	require.Equal(t, "/payments", logs[0].Endpoint)
	require.Equal(t, http.StatusCreated, logs[0].StatusCode)
	require.True(t, logs[0].Success)
	require.NotEmpty(t, logs[0].RequestID)
	require.Equal(t, rec.Header().Get("X-Gateway-Request-Id"), logs[0].RequestID)
}

func TestFasstapProxyRelaysUpstreamErrorsVerbatim(t *testing.T) {
	var got captured
	up := upstreamServer(t, http.StatusPaymentRequired, `{"error":"Card declined"}`, &got)
	st, loader := fixture(t, models.MerchantCredentials{
		MerchantID: "m1", FasstapEnabled: true, FasstapUsername: "alice", FasstapPassword: "pw",
	})
	p := NewFasstapProxy(Endpoints{Sandbox: up.URL}, loader, st.Repositories().IntegrationLogs, up.Client(), logger.Discard())

	rec := post(t, p, `{"merchantId":"m1"}`)

	require.Equal(t, http.StatusPaymentRequired, rec.Code)
	require.JSONEq(t, `{"error":"Card declined"}`, rec.Body.String())
	logs := st.IntegrationLogs()
	require.Len(t, logs, 1)
	require.False(t, logs[0].Success)
	require.Equal(t, "/payments", logs[0].Endpoint)
}

func TestProxyLocalFailures(t *testing.T) {
	cases := []struct {
		name   string
		creds  models.MerchantCredentials
		body   string
		status int
		code   string
	}{
		{"missing merchant", models.MerchantCredentials{MerchantID: "m1"}, `{}`, http.StatusBadRequest, "missing_merchant_id"},
		{"unknown merchant", models.MerchantCredentials{MerchantID: "m1"}, `{"merchantId":"m2"}`, http.StatusNotFound, "credentials_not_found"},
		{"disabled", models.MerchantCredentials{MerchantID: "m1", FasstapUsername: "u", FasstapPassword: "p"}, `{"merchantId":"m1"}`, http.StatusForbidden, "gateway_disabled"},
		{"incomplete", models.MerchantCredentials{MerchantID: "m1", FasstapEnabled: true, FasstapUsername: "u"}, `{"merchantId":"m1"}`, http.StatusBadRequest, "credentials_incomplete"},
		{"bad json", models.MerchantCredentials{MerchantID: "m1"}, `{`, http.StatusBadRequest, "invalid_json"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st, loader := fixture(t, tc.creds)
			p := NewFasstapProxy(Endpoints{Sandbox: "http://127.0.0.1:1"}, loader, st.Repositories().IntegrationLogs, nil, logger.Discard())

			rec := post(t, p, tc.body)

			require.Equal(t, tc.status, rec.Code)
			var body errorBody
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			require.Equal(t, tc.code, body.Code)
			require.NotEmpty(t, body.Error)

			logs := st.IntegrationLogs()
			require.Len(t, logs, 1)
			require.Equal(t, tc.status, logs[0].StatusCode)
			require.False(t, logs[0].Success)
			require.Contains(t, logs[0].Payload, "error")
			require.NotEmpty(t, logs[0].RequestID)
			if tc.code == "invalid_json" {
				require.Empty(t, logs[0].MerchantID)
				require.Equal(t, "/payments", logs[0].Endpoint)
			}
		})
	}
}

func TestProxyUpstreamUnreachable(t *testing.T) {
	st, loader := fixture(t, models.MerchantCredentials{
		MerchantID: "m1", FasstapEnabled: true, FasstapUsername: "alice", FasstapPassword: "pw",
	})
	up := httptest.NewServer(http.NotFoundHandler())
	url := up.URL
	up.Close()
	p := NewFasstapProxy(Endpoints{Sandbox: url}, loader, st.Repositories().IntegrationLogs, nil, logger.Discard())

	_, err := p.Forward(context.Background(), Request{MerchantID: "m1"})

	var gwErr *Error
	require.ErrorAs(t, err, &gwErr)
	require.Equal(t, http.StatusInternalServerError, gwErr.Status)
	require.Equal(t, "upstream_error", gwErr.Code)
	require.Len(t, st.IntegrationLogs(), 1)
}

func TestLynkProxyExchangesTokenAndInjectsAccount(t *testing.T) {
	var got captured
	up := upstreamServer(t, http.StatusOK, `{"id":"cbdc-1"}`, &got)
	st, loader := fixture(t, models.MerchantCredentials{
		MerchantID: "m1", LynkEnabled: true, CBDCEnabled: true,
		LynkClientID: "cid", LynkClientSecret: "secret", LynkMerchantAccountID: "acct-9",
		Environment: models.EnvProduction,
	})
	p := NewLynkProxy(LynkConfig{
		Endpoints:       Endpoints{Production: up.URL, Sandbox: "http://sandbox.invalid"},
		NotificationURL: "https://pos.example/hooks/lynk",
	}, loader, st.Repositories().IntegrationLogs, up.Client(), logger.Discard())

	rec := post(t, p, `{"merchantId":"m1","endpoint":"/payments","data":{"amount":"10.00"}}`)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Bearer tok-123", got.auth)
	require.Equal(t, "acct-9", got.body["merchantAccountId"])
	require.Equal(t, "https://pos.example/hooks/lynk", got.body["notificationUrl"])
	require.Equal(t, "10.00", got.body["amount"])
	require.Len(t, st.IntegrationLogs(), 1)
	require.Equal(t, ServiceLynk, st.IntegrationLogs()[0].Service)
}

func TestLynkProxyDisabled(t *testing.T) {
	st, loader := fixture(t, models.MerchantCredentials{MerchantID: "m1", FasstapEnabled: true})
	p := NewLynkProxy(LynkConfig{}, loader, st.Repositories().IntegrationLogs, nil, logger.Discard())

	rec := post(t, p, `{"merchantId":"m1"}`)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestJoinURL(t *testing.T) {
	require.Equal(t, "http://x/a", joinURL("http://x/", "a"))
	require.Equal(t, "http://x/a", joinURL("http://x", "/a"))
}

func TestPayloadOfKeepsNonJSON(t *testing.T) {
	require.Equal(t, "plain", payloadOf([]byte("plain")))
	require.Equal(t, map[string]any{"a": 1.0}, payloadOf(bytes.TrimSpace([]byte(`{"a":1}`))))
}
