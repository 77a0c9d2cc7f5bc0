package postgres

import (
	"context"

	"github.com/baharkarakas/tappay-backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type transactionItemsRepo struct{ pool *pgxpool.Pool }

// CreateBatch inserts all items in one round trip; the batch is atomic.
func (r *transactionItemsRepo) CreateBatch(ctx context.Context, items []models.TransactionItem) error {
	if len(items) == 0 {
		return nil
	}
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		b := &pgx.Batch{}
		for _, it := range items {
			if it.ID == "" {
				it.ID = uuid.NewString()
			}
			b.Queue(
				`INSERT INTO transaction_items (id, transaction_id, product_id, quantity, unit_price, subtotal)
				 VALUES ($1,$2,$3,$4,$5,$6)`,
				it.ID, it.TransactionID, it.ProductID, it.Quantity, it.UnitPrice, it.Subtotal,
			)
		}
		return tx.SendBatch(ctx, b).Close()
	})
}

func (r *transactionItemsRepo) ListByTransaction(ctx context.Context, transactionID string) ([]models.TransactionItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, transaction_id, product_id, quantity, unit_price, subtotal
		   FROM transaction_items
		  WHERE transaction_id=$1
		  ORDER BY id`,
		transactionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.TransactionItem
	for rows.Next() {
		var it models.TransactionItem
		if err := rows.Scan(&it.ID, &it.TransactionID, &it.ProductID, &it.Quantity, &it.UnitPrice, &it.Subtotal); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
