package postgres

import (
	"context"
	"errors"

	"github.com/baharkarakas/tappay-backend/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type productsRepo struct{ pool *pgxpool.Pool }

func (r *productsRepo) GetStock(ctx context.Context, productID string) (int, error) {
	var stock int
	err := r.pool.QueryRow(ctx, `SELECT stock FROM products WHERE id=$1`, productID).Scan(&stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, repository.ErrNotFound
	}
	return stock, err
}

func (r *productsRepo) SetStock(ctx context.Context, productID string, stock int) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE products SET stock=$2, updated_at=now() WHERE id=$1`,
		productID, stock,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *productsRepo) DecrementStock(ctx context.Context, productID string, qty int) (int, error) {
	var stock int
	err := r.pool.QueryRow(ctx,
		`UPDATE products
		    SET stock = GREATEST(0, stock - $2),
		        updated_at = now()
		  WHERE id = $1
		  RETURNING stock`,
		productID, qty,
	).Scan(&stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, repository.ErrNotFound
	}
	return stock, err
}
