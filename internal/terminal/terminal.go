// Package terminal abstracts the payment terminal (or bridge) that captures a
// contactless tap. The orchestrator only sees Connector; vendors plug in
// behind it.
package terminal

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// DefaultTimeout bounds the wait for a tap.
	DefaultTimeout = 60 * time.Second
	// DefaultCurrency applies when a request names none.
	DefaultCurrency = "USD"
)

type Request struct {
	Amount    decimal.Decimal
	Currency  string
	UseBridge bool
	// Timeout is a hint; each connector enforces it and reports expiry as a
	// Declined result.
	Timeout time.Duration
	// Reference identifies the checkout attempt upstream.
	Reference string
}

func (r Request) timeout() time.Duration {
	if r.Timeout <= 0 {
		return DefaultTimeout
	}
	return r.Timeout
}

// Result is either Approved or Declined.
type Result interface{ isResult() }

type Approved struct {
	TransactionID string
}

type Declined struct {
	Reason string
}

func (Approved) isResult() {}
func (Declined) isResult() {}

type Connector interface {
	// Connect reports false when no terminal session could be opened.
	Connect(ctx context.Context) bool
	// ProcessPayment blocks until the tap completes, fails or times out.
	ProcessPayment(ctx context.Context, req Request) Result
	// CancelPayment interrupts an in-flight ProcessPayment, best effort.
	CancelPayment()
}

const (
	reasonTimeout   = "Payment timed out"
	reasonCancelled = "Payment cancelled"
	reasonGeneric   = "Payment failed"
)
