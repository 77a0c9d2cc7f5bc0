// Package gateway forwards payment requests to external processors with the
// merchant's stored credentials attached, keeping secrets off POS clients.
// Every call leaves one integration log row behind.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/baharkarakas/tappay-backend/internal/api/httpx"
	"github.com/baharkarakas/tappay-backend/internal/credentials"
	"github.com/baharkarakas/tappay-backend/internal/metrics"
	"github.com/baharkarakas/tappay-backend/internal/models"
	"github.com/baharkarakas/tappay-backend/internal/repository"
)

const (
	ServiceFasstap = "fasstap"
	ServiceLynk    = "lynk"

	maxBody = 1 << 20
)

var (
	ErrDisabled   = errors.New("gateway disabled")
	ErrIncomplete = errors.New("gateway credentials incomplete")
)

// Request is the proxy body posted by clients and by terminal connectors.
type Request struct {
	MerchantID string         `json:"merchantId"`
	Endpoint   string         `json:"endpoint,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
	APIMethod  string         `json:"apiMethod,omitempty"`
}

// Response is the upstream reply, passed through untouched.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
	RequestID   string
}

func (r Response) OK() bool { return r.StatusCode >= 200 && r.StatusCode < 300 }

// Decode unmarshals the upstream body into v.
func (r Response) Decode(v any) error { return json.Unmarshal(r.Body, v) }

// Error is a local failure that never reached, or could not use, the upstream.
type Error struct {
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// CredentialSource is satisfied by *credentials.Loader.
type CredentialSource interface {
	LoadCredentials(ctx context.Context, merchantID string) (*models.MerchantCredentials, error)
}

// Endpoints picks the upstream base URL by merchant environment.
type Endpoints struct {
	Production string
	Sandbox    string
}

func (e Endpoints) For(env models.GatewayEnv) string {
	if env == models.EnvProduction {
		return e.Production
	}
	return e.Sandbox
}

// upstream is the per-gateway part of a proxy.
type upstream interface {
	defaultEndpoint() string
	check(c *models.MerchantCredentials) error
	build(ctx context.Context, client *http.Client, c *models.MerchantCredentials, endpoint, method string, data map[string]any) (*http.Request, error)
}

type Proxy struct {
	service string
	up      upstream
	creds   CredentialSource
	logs    repository.IntegrationLogs
	client  *http.Client
	log     *slog.Logger
}

func newProxy(service string, up upstream, creds CredentialSource, logs repository.IntegrationLogs, client *http.Client, log *slog.Logger) *Proxy {
	if client == nil {
		client = NewHTTPClient(90 * time.Second)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Proxy{
		service: service,
		up:      up,
		creds:   creds,
		logs:    logs,
		client:  client,
		log:     log.With("gateway", service),
	}
}

// NewHTTPClient returns a traced client for upstream calls.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		Timeout:   timeout,
	}
}

func (p *Proxy) Service() string { return p.service }

// Forward sends req upstream. Upstream replies of any status come back as a
// Response; local failures come back as *Error.
func (p *Proxy) Forward(ctx context.Context, req Request) (Response, error) {
	endpoint := req.Endpoint
	if endpoint == "" {
		endpoint = p.up.defaultEndpoint()
	}
	requestID := uuid.NewString()

	resp, err := p.forward(ctx, req, endpoint)
	resp.RequestID = requestID
	p.record(ctx, req.MerchantID, endpoint, requestID, resp, err)
	return resp, err
}

func (p *Proxy) forward(ctx context.Context, req Request, endpoint string) (Response, error) {
	if req.MerchantID == "" {
		return Response{}, &Error{Status: http.StatusBadRequest, Code: "missing_merchant_id", Message: "merchantId is required"}
	}

	c, err := p.creds.LoadCredentials(ctx, req.MerchantID)
	if errors.Is(err, credentials.ErrNotFound) {
		return Response{}, &Error{Status: http.StatusNotFound, Code: "credentials_not_found", Message: "merchant credentials not found", Err: err}
	}
	if err != nil {
		return Response{}, &Error{Status: http.StatusInternalServerError, Code: "credentials_unavailable", Message: "could not load merchant credentials", Err: err}
	}

	if err := p.up.check(c); err != nil {
		if errors.Is(err, ErrDisabled) {
			return Response{}, &Error{Status: http.StatusForbidden, Code: "gateway_disabled", Message: p.service + " is not enabled for this merchant", Err: err}
		}
		return Response{}, &Error{Status: http.StatusBadRequest, Code: "credentials_incomplete", Message: p.service + " credentials are not configured", Err: err}
	}

	method := req.APIMethod
	if method == "" {
		method = http.MethodPost
	}
	upReq, err := p.up.build(ctx, p.client, c, endpoint, method, req.Data)
	if err != nil {
		var gwErr *Error
		if errors.As(err, &gwErr) {
			return Response{}, gwErr
		}
		return Response{}, &Error{Status: http.StatusBadRequest, Code: "invalid_request", Message: "could not build upstream request", Err: err}
	}

	start := time.Now()
	res, err := p.client.Do(upReq)
	metrics.GatewayLatency.WithLabelValues(p.service).Observe(time.Since(start).Seconds())
	if err != nil {
		return Response{}, &Error{Status: http.StatusInternalServerError, Code: "upstream_error", Message: p.service + " request failed", Err: err}
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBody))
	if err != nil {
		return Response{}, &Error{Status: http.StatusInternalServerError, Code: "upstream_error", Message: "could not read " + p.service + " response", Err: err}
	}
	return Response{StatusCode: res.StatusCode, ContentType: res.Header.Get("Content-Type"), Body: body}, nil
}

func (p *Proxy) record(ctx context.Context, merchantID, endpoint, requestID string, resp Response, err error) {
	entry := models.IntegrationLog{
		MerchantID: merchantID,
		Service:    p.service,
		Endpoint:   endpoint,
		RequestID:  requestID,
	}
	if err != nil {
		entry.StatusCode = statusOf(err)
		entry.Payload = map[string]any{"error": err.Error()}
	} else {
		entry.StatusCode = resp.StatusCode
		entry.Success = resp.OK()
		entry.Payload = map[string]any{"response": payloadOf(resp.Body)}
	}
	metrics.GatewayRequests.WithLabelValues(p.service, strconv.Itoa(entry.StatusCode)).Inc()

	// The audit row must outlive a cancelled caller.
	if lerr := p.logs.Create(context.WithoutCancel(ctx), entry); lerr != nil {
		p.log.Error("integration log write failed", "err", lerr, "merchant_id", merchantID, "request_id", requestID)
	}
}

func payloadOf(body []byte) any {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return string(body)
	}
	return v
}

func statusOf(err error) int {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.Status
	}
	return http.StatusInternalServerError
}

// ServeHTTP is the edge function: decode, forward, relay.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(&req); err != nil {
		gwErr := &Error{Status: http.StatusBadRequest, Code: "invalid_json", Message: "invalid JSON body", Err: err}
		p.record(r.Context(), "", p.up.defaultEndpoint(), uuid.NewString(), Response{}, gwErr)
		httpx.WriteJSON(w, gwErr.Status, errorBody{Error: gwErr.Message, Code: gwErr.Code})
		return
	}

	resp, err := p.Forward(r.Context(), req)
	if err != nil {
		var gwErr *Error
		if !errors.As(err, &gwErr) {
			gwErr = &Error{Status: http.StatusInternalServerError, Code: "internal_error", Message: "internal error"}
		}
		if gwErr.Status >= 500 {
			p.log.Error("proxy failed", "err", err, "merchant_id", req.MerchantID)
		}
		httpx.WriteJSON(w, gwErr.Status, errorBody{Error: gwErr.Message, Code: gwErr.Code})
		return
	}

	ct := resp.ContentType
	if ct == "" {
		ct = "application/json"
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("X-Gateway-Request-Id", resp.RequestID)
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(resp.Body)
}

func joinURL(base, endpoint string) string {
	if endpoint == "" || endpoint[0] != '/' {
		endpoint = "/" + endpoint
	}
	for len(base) > 0 && base[len(base)-1] == '/' {
		base = base[:len(base)-1]
	}
	return base + endpoint
}

func hasBody(method string) bool {
	return method != http.MethodGet && method != http.MethodHead && method != http.MethodDelete
}

func jsonBody(data map[string]any) (io.Reader, error) {
	if data == nil {
		data = map[string]any{}
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode data: %w", err)
	}
	return bytes.NewReader(b), nil
}
