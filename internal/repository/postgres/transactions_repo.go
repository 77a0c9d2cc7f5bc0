package postgres

import (
	"context"
	"errors"

	"github.com/baharkarakas/tappay-backend/internal/models"
	"github.com/baharkarakas/tappay-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type transactionsRepo struct{ pool *pgxpool.Pool }

const txnColumns = `id, merchant_id, amount, status, payment_method, reference, created_at`

func scanTxn(row pgx.Row, tx *models.Transaction) error {
	return row.Scan(&tx.ID, &tx.MerchantID, &tx.Amount, &tx.Status, &tx.PaymentMethod, &tx.Reference, &tx.CreatedAt)
}

func (r *transactionsRepo) Create(ctx context.Context, tx models.Transaction) (models.Transaction, error) {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	const q = `
INSERT INTO transactions (id, merchant_id, amount, status, payment_method, reference)
VALUES ($1,$2,$3,$4,$5,$6)
RETURNING ` + txnColumns
	err := scanTxn(r.pool.QueryRow(ctx, q,
		tx.ID, tx.MerchantID, tx.Amount, tx.Status, tx.PaymentMethod, tx.Reference,
	), &tx)
	return tx, err
}

func (r *transactionsRepo) GetByID(ctx context.Context, merchantID, id string) (models.Transaction, error) {
	var tx models.Transaction
	err := scanTxn(r.pool.QueryRow(ctx,
		`SELECT `+txnColumns+`
		   FROM transactions
		  WHERE id::text=$1 AND merchant_id=$2`,
		id, merchantID,
	), &tx)
	if errors.Is(err, pgx.ErrNoRows) {
		return tx, repository.ErrNotFound
	}
	return tx, err
}

func (r *transactionsRepo) ListByMerchant(ctx context.Context, merchantID string, limit, offset int) ([]models.Transaction, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+txnColumns+`
		   FROM transactions
		  WHERE merchant_id=$1
		  ORDER BY created_at DESC
		  LIMIT $2 OFFSET $3`,
		merchantID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Transaction
	for rows.Next() {
		var tx models.Transaction
		if err := scanTxn(rows, &tx); err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}
