package postgres

import (
	"context"

	"github.com/baharkarakas/tappay-backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type integrationLogsRepo struct{ pool *pgxpool.Pool }

func (r *integrationLogsRepo) Create(ctx context.Context, l models.IntegrationLog) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO integration_logs(id, merchant_id, service, endpoint, status_code, success, request_id, payload)
		 VALUES($1,$2,$3,$4,$5,$6,$7,$8)`,
		l.ID, l.MerchantID, l.Service, l.Endpoint, l.StatusCode, l.Success, l.RequestID, l.Payload,
	)
	return err
}
