package services

import (
	"context"
	"errors"

	"github.com/baharkarakas/tappay-backend/internal/models"
	repo "github.com/baharkarakas/tappay-backend/internal/repository"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

var ErrTransactionNotFound = errors.New("transaction not found")

// TransactionService answers history queries over recorded payments.
type TransactionService struct {
	trx   repo.Transactions
	items repo.TransactionItems
}

func NewTransactionService(t repo.Transactions, i repo.TransactionItems) *TransactionService {
	return &TransactionService{trx: t, items: i}
}

func (s *TransactionService) List(ctx context.Context, merchantID string, limit, offset int) ([]models.Transaction, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	txs, err := s.trx.ListByMerchant(ctx, merchantID, limit, offset)
	if err != nil {
		return nil, err
	}
	if txs == nil {
		txs = []models.Transaction{}
	}
	return txs, nil
}

// Get returns the transaction with its line items. Other merchants'
// transactions are reported as not found.
func (s *TransactionService) Get(ctx context.Context, merchantID, id string) (models.TransactionDetail, error) {
	tx, err := s.trx.GetByID(ctx, merchantID, id)
	if errors.Is(err, repo.ErrNotFound) {
		return models.TransactionDetail{}, ErrTransactionNotFound
	}
	if err != nil {
		return models.TransactionDetail{}, err
	}
	items, err := s.items.ListByTransaction(ctx, tx.ID)
	if err != nil {
		return models.TransactionDetail{}, err
	}
	if items == nil {
		items = []models.TransactionItem{}
	}
	return models.TransactionDetail{Transaction: tx, Items: items}, nil
}
