// Package memory holds process-local stores used for APP_STORE=memory and in
// tests. They mirror the postgres semantics, including ErrNotFound.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/baharkarakas/tappay-backend/internal/models"
	"github.com/baharkarakas/tappay-backend/internal/repository"
	"github.com/google/uuid"
)

// Store owns all in-memory tables. Its typed views satisfy the repository
// interfaces.
type Store struct {
	mu           sync.Mutex
	transactions map[string]models.Transaction
	items        []models.TransactionItem
	products     map[string]models.Product
	credentials  map[string]models.MerchantCredentials
	integration  []models.IntegrationLog
	audit        []models.AuditLog
}

func NewStore() *Store {
	return &Store{
		transactions: map[string]models.Transaction{},
		products:     map[string]models.Product{},
		credentials:  map[string]models.MerchantCredentials{},
	}
}

func (s *Store) Repositories() repository.Repositories {
	return repository.Repositories{
		Transactions:     (*transactions)(s),
		TransactionItems: (*transactionItems)(s),
		Products:         (*products)(s),
		Credentials:      (*credentials)(s),
		IntegrationLogs:  (*integrationLogs)(s),
		AuditLogs:        (*auditLogs)(s),
	}
}

// Seeding and inspection helpers.

func (s *Store) PutProduct(p models.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

func (s *Store) Product(id string) (models.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	return p, ok
}

func (s *Store) PutCredentials(c models.MerchantCredentials) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credentials[c.MerchantID] = c
}

func (s *Store) AllTransactions() []models.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Transaction, 0, len(s.transactions))
	for _, t := range s.transactions {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *Store) AllItems() []models.TransactionItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.TransactionItem(nil), s.items...)
}

func (s *Store) IntegrationLogs() []models.IntegrationLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.IntegrationLog(nil), s.integration...)
}

func (s *Store) AuditLogs() []models.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.AuditLog(nil), s.audit...)
}

type transactions Store

func (r *transactions) Create(_ context.Context, tx models.Transaction) (models.Transaction, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	tx.CreatedAt = time.Now()
	s.transactions[tx.ID] = tx
	return tx, nil
}

func (r *transactions) GetByID(_ context.Context, merchantID, id string) (models.Transaction, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.transactions[id]
	if !ok || tx.MerchantID != merchantID {
		return models.Transaction{}, repository.ErrNotFound
	}
	return tx, nil
}

func (r *transactions) ListByMerchant(_ context.Context, merchantID string, limit, offset int) ([]models.Transaction, error) {
	var out []models.Transaction
	for _, tx := range (*Store)(r).AllTransactions() {
		if tx.MerchantID == merchantID {
			out = append(out, tx)
		}
	}
	// newest first, like the SQL query
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

type transactionItems Store

func (r *transactionItems) CreateBatch(_ context.Context, items []models.TransactionItem) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range items {
		if it.ID == "" {
			it.ID = uuid.NewString()
		}
		s.items = append(s.items, it)
	}
	return nil
}

func (r *transactionItems) ListByTransaction(_ context.Context, transactionID string) ([]models.TransactionItem, error) {
	var out []models.TransactionItem
	for _, it := range (*Store)(r).AllItems() {
		if it.TransactionID == transactionID {
			out = append(out, it)
		}
	}
	return out, nil
}

type products Store

func (r *products) GetStock(_ context.Context, productID string) (int, error) {
	p, ok := (*Store)(r).Product(productID)
	if !ok {
		return 0, repository.ErrNotFound
	}
	return p.Stock, nil
}

func (r *products) SetStock(_ context.Context, productID string, stock int) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[productID]
	if !ok {
		return repository.ErrNotFound
	}
	p.Stock = stock
	p.UpdatedAt = time.Now()
	s.products[productID] = p
	return nil
}

func (r *products) DecrementStock(_ context.Context, productID string, qty int) (int, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[productID]
	if !ok {
		return 0, repository.ErrNotFound
	}
	p.Stock = max(0, p.Stock-qty)
	p.UpdatedAt = time.Now()
	s.products[productID] = p
	return p.Stock, nil
}

type credentials Store

func (r *credentials) GetByMerchant(_ context.Context, merchantID string) (models.MerchantCredentials, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.credentials[merchantID]
	if !ok {
		return models.MerchantCredentials{}, repository.ErrNotFound
	}
	return c, nil
}

type integrationLogs Store

func (r *integrationLogs) Create(_ context.Context, l models.IntegrationLog) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	l.CreatedAt = time.Now()
	s.integration = append(s.integration, l)
	return nil
}

type auditLogs Store

func (r *auditLogs) Create(_ context.Context, l models.AuditLog) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	l.CreatedAt = time.Now()
	s.audit = append(s.audit, l)
	return nil
}
