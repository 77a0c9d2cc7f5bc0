package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionStatus string

const (
	TxnCompleted TransactionStatus = "COMPLETED"
	TxnFailed    TransactionStatus = "FAILED"
)

type PaymentMethod string

const (
	MethodTapToPay PaymentMethod = "TAP_TO_PAY"
	MethodCBDC     PaymentMethod = "CBDC"
)

type Transaction struct {
	ID            string            `json:"id"`
	MerchantID    string            `json:"merchant_id"`
	Amount        decimal.Decimal   `json:"amount"`
	Status        TransactionStatus `json:"status"`
	PaymentMethod PaymentMethod     `json:"payment_method"`
	Reference     string            `json:"reference"`
	CreatedAt     time.Time         `json:"created_at"`
}

type TransactionItem struct {
	ID            string          `json:"id"`
	TransactionID string          `json:"transaction_id"`
	ProductID     string          `json:"product_id"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	Subtotal      decimal.Decimal `json:"subtotal"`
}

// TransactionDetail is a transaction together with its line items.
type TransactionDetail struct {
	Transaction
	Items []TransactionItem `json:"items"`
}
