package repository

import (
	"context"
	"errors"
	"time"

	"github.com/baharkarakas/tappay-backend/internal/models"
)

// ErrNotFound is returned by every store when the requested row is absent.
var ErrNotFound = errors.New("not found")

type Transactions interface {
	Create(ctx context.Context, tx models.Transaction) (models.Transaction, error)
	GetByID(ctx context.Context, merchantID, id string) (models.Transaction, error)
	ListByMerchant(ctx context.Context, merchantID string, limit, offset int) ([]models.Transaction, error)
}

type TransactionItems interface {
	CreateBatch(ctx context.Context, items []models.TransactionItem) error
	ListByTransaction(ctx context.Context, transactionID string) ([]models.TransactionItem, error)
}

type Products interface {
	GetStock(ctx context.Context, productID string) (int, error)
	SetStock(ctx context.Context, productID string, stock int) error
	// DecrementStock lowers stock by qty in one statement, never below zero.
	DecrementStock(ctx context.Context, productID string, qty int) (int, error)
}

type Credentials interface {
	GetByMerchant(ctx context.Context, merchantID string) (models.MerchantCredentials, error)
}

type IntegrationLogs interface {
	Create(ctx context.Context, l models.IntegrationLog) error
}

type AuditLogs interface {
	Create(ctx context.Context, l models.AuditLog) error
}

// RateWindow admits a hit for key while fewer than limit earlier hits fall
// inside the trailing window. Only admitted hits are recorded, so rejected
// requests never push the window forward.
type RateWindow interface {
	Admit(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (bool, error)
}

// Repositories bundles every store the service needs. RateWindow is nil for
// backends without a shared rate limit store.
type Repositories struct {
	Transactions     Transactions
	TransactionItems TransactionItems
	Products         Products
	Credentials      Credentials
	IntegrationLogs  IntegrationLogs
	AuditLogs        AuditLogs
	RateWindow       RateWindow
}
