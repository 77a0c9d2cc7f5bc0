package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// rateWindowRepo keeps a sliding log of hits shared by every instance that
// points at the same database.
type rateWindowRepo struct{ pool *pgxpool.Pool }

func (r *rateWindowRepo) Admit(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (bool, error) {
	var ok bool
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		// serializes concurrent admits for the same key until commit
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
			return err
		}
		cutoff := now.Add(-window)
		if _, err := tx.Exec(ctx, `DELETE FROM rate_limit_hits WHERE key=$1 AND hit_at <= $2`, key, cutoff); err != nil {
			return err
		}
		var n int
		if err := tx.QueryRow(ctx, `SELECT count(*) FROM rate_limit_hits WHERE key=$1`, key).Scan(&n); err != nil {
			return err
		}
		if n >= limit {
			return nil
		}
		if _, err := tx.Exec(ctx, `INSERT INTO rate_limit_hits(key, hit_at) VALUES($1,$2)`, key, now); err != nil {
			return err
		}
		ok = true
		return nil
	})
	return ok, err
}
