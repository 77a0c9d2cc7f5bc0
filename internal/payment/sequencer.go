package payment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/baharkarakas/tappay-backend/internal/metrics"
	"github.com/baharkarakas/tappay-backend/internal/models"
	"github.com/baharkarakas/tappay-backend/internal/repository"
)

// Order is what gets written once the gateway has approved a payment.
type Order struct {
	SessionID  string
	MerchantID string
	Amount     decimal.Decimal
	Method     models.PaymentMethod
	Reference  string
	Items      []CartItem
}

// Sequencer writes the transaction, its items and the stock adjustments, in
// that order. Only the transaction insert can fail the payment.
type Sequencer struct {
	txns     repository.Transactions
	items    repository.TransactionItems
	products repository.Products
	audit    repository.AuditLogs
	atomic   bool
	log      *slog.Logger
}

func NewSequencer(repos repository.Repositories, atomicStock bool, log *slog.Logger) *Sequencer {
	return &Sequencer{
		txns:     repos.Transactions,
		items:    repos.TransactionItems,
		products: repos.Products,
		audit:    repos.AuditLogs,
		atomic:   atomicStock,
		log:      log,
	}
}

func (s *Sequencer) Persist(ctx context.Context, o Order) (models.Transaction, error) {
	txn, err := s.txns.Create(ctx, models.Transaction{
		MerchantID:    o.MerchantID,
		Amount:        o.Amount,
		Status:        models.TxnCompleted,
		PaymentMethod: o.Method,
		Reference:     o.Reference,
	})
	if err != nil {
		metrics.PersistenceFailures.WithLabelValues("transaction").Inc()
		s.log.Error("captured payment not recorded",
			"merchant_id", o.MerchantID, "reference", o.Reference, "err", err)
		s.recordUnrecorded(ctx, o, err)
		return models.Transaction{}, fmt.Errorf("failed to record transaction: %w", err)
	}

	if len(o.Items) == 0 {
		return txn, nil
	}

	rows := make([]models.TransactionItem, 0, len(o.Items))
	for _, it := range o.Items {
		rows = append(rows, models.TransactionItem{
			TransactionID: txn.ID,
			ProductID:     it.ProductID,
			Quantity:      it.Quantity,
			UnitPrice:     it.Price,
			Subtotal:      it.Subtotal(),
		})
	}
	if err := s.items.CreateBatch(ctx, rows); err != nil {
		metrics.PersistenceFailures.WithLabelValues("items").Inc()
		s.log.Warn("transaction items not recorded",
			"merchant_id", o.MerchantID, "transaction_id", txn.ID, "err", err)
	}

	for _, it := range o.Items {
		if err := s.adjustStock(ctx, it); err != nil {
			metrics.PersistenceFailures.WithLabelValues("inventory").Inc()
			s.log.Warn("inventory not updated",
				"merchant_id", o.MerchantID, "transaction_id", txn.ID,
				"product_id", it.ProductID, "err", err)
		}
	}
	return txn, nil
}

func (s *Sequencer) adjustStock(ctx context.Context, it CartItem) error {
	if s.atomic {
		_, err := s.products.DecrementStock(ctx, it.ProductID, it.Quantity)
		return err
	}
	stock, err := s.products.GetStock(ctx, it.ProductID)
	if err != nil {
		return fmt.Errorf("read stock: %w", err)
	}
	next := stock - it.Quantity
	if next < 0 {
		next = 0
	}
	if err := s.products.SetStock(ctx, it.ProductID, next); err != nil {
		return fmt.Errorf("write stock: %w", err)
	}
	return nil
}

func (s *Sequencer) recordUnrecorded(ctx context.Context, o Order, cause error) {
	if s.audit == nil {
		return
	}
	id := o.SessionID
	err := s.audit.Create(ctx, models.AuditLog{
		EntityType: auditEntity,
		EntityID:   &id,
		Action:     "unrecorded_capture",
		Details: map[string]any{
			"merchant_id": o.MerchantID,
			"reference":   o.Reference,
			"amount":      o.Amount.String(),
			"error":       cause.Error(),
		},
	})
	if err != nil {
		s.log.Error("audit log write failed", "reference", o.Reference, "err", err)
	}
}
