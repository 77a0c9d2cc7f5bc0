package terminal

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/baharkarakas/tappay-backend/internal/gateway"
	"github.com/baharkarakas/tappay-backend/internal/logger"
)

type fakeForwarder struct {
	mu      sync.Mutex
	calls   []gateway.Request
	replies map[string]func(ctx context.Context) (gateway.Response, error)
}

func (f *fakeForwarder) Forward(ctx context.Context, req gateway.Request) (gateway.Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	reply := f.replies[req.Endpoint]
	f.mu.Unlock()
	if reply == nil {
		return gateway.Response{StatusCode: http.StatusOK, Body: []byte(`{}`)}, nil
	}
	return reply(ctx)
}

func (f *fakeForwarder) endpoints() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		out = append(out, c.Endpoint)
	}
	return out
}

func jsonReply(status int, body string) func(context.Context) (gateway.Response, error) {
	return func(context.Context) (gateway.Response, error) {
		return gateway.Response{StatusCode: status, Body: []byte(body)}, nil
	}
}

func TestGatewayConnectorApproved(t *testing.T) {
	fwd := &fakeForwarder{replies: map[string]func(context.Context) (gateway.Response, error){
		"/payments": jsonReply(http.StatusOK, `{"success":true,"transactionId":"tx-abc"}`),
	}}
	c := NewFasstap(fwd, "m1", logger.Discard())

	require.True(t, c.Connect(context.Background()))
	res := c.ProcessPayment(context.Background(), Request{Amount: decimal.RequireFromString("25.00"), UseBridge: true, Reference: "s1"})

	require.Equal(t, Approved{TransactionID: "tx-abc"}, res)
	require.Equal(t, []string{"/terminal/status", "/payments"}, fwd.endpoints())
	require.Equal(t, "25.00", fwd.calls[1].Data["amount"])
	require.Equal(t, true, fwd.calls[1].Data["useBridge"])
	require.Equal(t, int64(60000), fwd.calls[1].Data["timeoutMs"])
}

func TestGatewayConnectorSendsCurrency(t *testing.T) {
	fwd := &fakeForwarder{replies: map[string]func(context.Context) (gateway.Response, error){
		"/payments": jsonReply(http.StatusOK, `{"success":true,"transactionId":"tx-1"}`),
	}}
	c := NewFasstap(fwd, "m1", logger.Discard())

	c.ProcessPayment(context.Background(), Request{Amount: decimal.RequireFromString("5"), Currency: "MYR"})
	c.ProcessPayment(context.Background(), Request{Amount: decimal.RequireFromString("5")})

	require.Equal(t, "MYR", fwd.calls[0].Data["currency"])
	require.Equal(t, DefaultCurrency, fwd.calls[1].Data["currency"])
}

func TestGatewayConnectorDeclines(t *testing.T) {
	cases := []struct {
		name  string
		reply func(context.Context) (gateway.Response, error)
		want  Declined
	}{
		{"gateway decline", jsonReply(http.StatusOK, `{"success":false,"error":"Card declined"}`), Declined{Reason: "Card declined"}},
		{"http error", jsonReply(http.StatusPaymentRequired, `{"message":"Insufficient funds"}`), Declined{Reason: "Insufficient funds"}},
		{"no reference", jsonReply(http.StatusOK, `{"status":"APPROVED"}`), Declined{Reason: "Gateway returned no transaction reference"}},
		{"garbage", jsonReply(http.StatusOK, `<html>`), Declined{Reason: reasonGeneric}},
		{"local error", func(context.Context) (gateway.Response, error) {
			return gateway.Response{}, &gateway.Error{Status: http.StatusForbidden, Message: "fasstap is not enabled for this merchant"}
		}, Declined{Reason: "fasstap is not enabled for this merchant"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fwd := &fakeForwarder{replies: map[string]func(context.Context) (gateway.Response, error){"/payments": tc.reply}}
			c := NewFasstap(fwd, "m1", logger.Discard())
			require.Equal(t, tc.want, c.ProcessPayment(context.Background(), Request{Amount: decimal.NewFromInt(1)}))
		})
	}
}

func blockUntilDone(ctx context.Context) (gateway.Response, error) {
	<-ctx.Done()
	return gateway.Response{}, ctx.Err()
}

func TestGatewayConnectorTimeout(t *testing.T) {
	fwd := &fakeForwarder{replies: map[string]func(context.Context) (gateway.Response, error){"/payments": blockUntilDone}}
	c := NewFasstap(fwd, "m1", logger.Discard())

	res := c.ProcessPayment(context.Background(), Request{Amount: decimal.NewFromInt(1), Timeout: 20 * time.Millisecond})
	require.Equal(t, Declined{Reason: reasonTimeout}, res)
}

func TestGatewayConnectorCancel(t *testing.T) {
	fwd := &fakeForwarder{replies: map[string]func(context.Context) (gateway.Response, error){"/payments": blockUntilDone}}
	c := NewFasstap(fwd, "m1", logger.Discard())

	done := make(chan Result, 1)
	go func() { done <- c.ProcessPayment(context.Background(), Request{Amount: decimal.NewFromInt(1), Reference: "s9"}) }()

	require.Eventually(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.cancel != nil
	}, time.Second, time.Millisecond)
	c.CancelPayment()

	require.Equal(t, Declined{Reason: reasonCancelled}, <-done)
	require.Contains(t, fwd.endpoints(), "/payments/cancel")
}

func TestGatewayConnectorCancelWithoutPaymentIsNoop(t *testing.T) {
	fwd := &fakeForwarder{}
	NewLynk(fwd, "m1", logger.Discard()).CancelPayment()
	require.Empty(t, fwd.endpoints())
}

func TestGatewayConnectorConnectFailures(t *testing.T) {
	fwd := &fakeForwarder{replies: map[string]func(context.Context) (gateway.Response, error){
		"/terminal/status": jsonReply(http.StatusOK, `{"connected":false}`),
	}}
	require.False(t, NewFasstap(fwd, "m1", logger.Discard()).Connect(context.Background()))

	fwd = &fakeForwarder{replies: map[string]func(context.Context) (gateway.Response, error){
		"/merchant/status": jsonReply(http.StatusServiceUnavailable, `{}`),
	}}
	require.False(t, NewLynk(fwd, "m1", logger.Discard()).Connect(context.Background()))
}

func TestSimulator(t *testing.T) {
	s := &Simulator{}
	require.True(t, s.Connect(context.Background()))
	res := s.ProcessPayment(context.Background(), Request{})
	approved, ok := res.(Approved)
	require.True(t, ok)
	require.NotEmpty(t, approved.TransactionID)

	s = &Simulator{DeclineReason: "Card declined"}
	require.Equal(t, Declined{Reason: "Card declined"}, s.ProcessPayment(context.Background(), Request{}))

	s = &Simulator{Delay: time.Hour}
	done := make(chan Result, 1)
	go func() { done <- s.ProcessPayment(context.Background(), Request{}) }()
	require.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.cancel != nil
	}, time.Second, time.Millisecond)
	s.CancelPayment()
	require.Equal(t, Declined{Reason: reasonCancelled}, <-done)
}
