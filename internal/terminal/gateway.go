package terminal

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/baharkarakas/tappay-backend/internal/gateway"
)

// Forwarder is satisfied by *gateway.Proxy.
type Forwarder interface {
	Forward(ctx context.Context, req gateway.Request) (gateway.Response, error)
}

// Profile names the upstream calls a gateway-backed connector makes.
type Profile struct {
	ConnectEndpoint string
	ConnectMethod   string
	PayEndpoint     string
	CancelEndpoint  string
}

var (
	FasstapProfile = Profile{
		ConnectEndpoint: "/terminal/status",
		ConnectMethod:   http.MethodGet,
		PayEndpoint:     "/payments",
		CancelEndpoint:  "/payments/cancel",
	}
	LynkProfile = Profile{
		ConnectEndpoint: "/merchant/status",
		ConnectMethod:   http.MethodGet,
		PayEndpoint:     "/payments",
		CancelEndpoint:  "/payments/cancel",
	}
)

const cancelTimeout = 5 * time.Second

// GatewayConnector drives a remote terminal through a gateway proxy.
type GatewayConnector struct {
	fwd        Forwarder
	profile    Profile
	merchantID string
	log        *slog.Logger

	mu        sync.Mutex
	cancel    context.CancelFunc
	reference string
}

func NewGatewayConnector(fwd Forwarder, profile Profile, merchantID string, log *slog.Logger) *GatewayConnector {
	if log == nil {
		log = slog.Default()
	}
	return &GatewayConnector{fwd: fwd, profile: profile, merchantID: merchantID, log: log}
}

func NewFasstap(fwd Forwarder, merchantID string, log *slog.Logger) *GatewayConnector {
	return NewGatewayConnector(fwd, FasstapProfile, merchantID, log)
}

func NewLynk(fwd Forwarder, merchantID string, log *slog.Logger) *GatewayConnector {
	return NewGatewayConnector(fwd, LynkProfile, merchantID, log)
}

func (c *GatewayConnector) Connect(ctx context.Context) bool {
	resp, err := c.fwd.Forward(ctx, gateway.Request{
		MerchantID: c.merchantID,
		Endpoint:   c.profile.ConnectEndpoint,
		APIMethod:  c.profile.ConnectMethod,
	})
	if err != nil {
		c.log.Warn("terminal connect failed", "err", err, "merchant_id", c.merchantID)
		return false
	}
	if !resp.OK() {
		c.log.Warn("terminal connect rejected", "status", resp.StatusCode, "merchant_id", c.merchantID)
		return false
	}
	var reply struct {
		Connected *bool `json:"connected"`
	}
	if err := resp.Decode(&reply); err == nil && reply.Connected != nil {
		return *reply.Connected
	}
	return true
}

// paymentReply tolerates the field spellings the gateways use.
type paymentReply struct {
	Success        *bool  `json:"success"`
	Status         string `json:"status"`
	TransactionID  string `json:"transactionId"`
	TransactionID2 string `json:"transaction_id"`
	ID             string `json:"id"`
	Error          string `json:"error"`
	Message        string `json:"message"`
}

func (r paymentReply) reference() string {
	for _, v := range []string{r.TransactionID, r.TransactionID2, r.ID} {
		if v != "" {
			return v
		}
	}
	return ""
}

func (r paymentReply) approved() bool {
	if r.Success != nil {
		return *r.Success
	}
	switch strings.ToUpper(r.Status) {
	case "APPROVED", "COMPLETED", "SUCCESS", "SUCCEEDED", "PAID":
		return true
	}
	return false
}

func (r paymentReply) reason() string {
	if r.Error != "" {
		return r.Error
	}
	if r.Message != "" {
		return r.Message
	}
	return reasonGeneric
}

func (c *GatewayConnector) ProcessPayment(ctx context.Context, req Request) Result {
	ctx, cancel := context.WithTimeout(ctx, req.timeout())
	defer cancel()

	c.mu.Lock()
	c.cancel, c.reference = cancel, req.Reference
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.cancel = nil
		c.mu.Unlock()
	}()

	currency := req.Currency
	if currency == "" {
		currency = DefaultCurrency
	}
	resp, err := c.fwd.Forward(ctx, gateway.Request{
		MerchantID: c.merchantID,
		Endpoint:   c.profile.PayEndpoint,
		Data: map[string]any{
			"amount":    req.Amount.StringFixed(2),
			"currency":  currency,
			"useBridge": req.UseBridge,
			"timeoutMs": req.timeout().Milliseconds(),
			"reference": req.Reference,
		},
	})
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return Declined{Reason: reasonTimeout}
	case errors.Is(ctx.Err(), context.Canceled):
		return Declined{Reason: reasonCancelled}
	case err != nil:
		var gwErr *gateway.Error
		if errors.As(err, &gwErr) {
			return Declined{Reason: gwErr.Message}
		}
		return Declined{Reason: err.Error()}
	}

	var reply paymentReply
	if err := resp.Decode(&reply); err != nil {
		c.log.Warn("unreadable payment reply", "err", err, "status", resp.StatusCode)
		return Declined{Reason: reasonGeneric}
	}
	if !resp.OK() || !reply.approved() {
		return Declined{Reason: reply.reason()}
	}
	if reply.reference() == "" {
		return Declined{Reason: "Gateway returned no transaction reference"}
	}
	return Approved{TransactionID: reply.reference()}
}

func (c *GatewayConnector) CancelPayment() {
	c.mu.Lock()
	cancel, ref := c.cancel, c.reference
	c.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()

	ctx, done := context.WithTimeout(context.Background(), cancelTimeout)
	defer done()
	resp, err := c.fwd.Forward(ctx, gateway.Request{
		MerchantID: c.merchantID,
		Endpoint:   c.profile.CancelEndpoint,
		Data:       map[string]any{"reference": ref},
	})
	if err != nil || !resp.OK() {
		c.log.Warn("terminal cancel not acknowledged", "err", err, "status", resp.StatusCode, "reference", ref)
	}
}
