package postgres

import (
	"context"
	"errors"

	"github.com/baharkarakas/tappay-backend/internal/models"
	"github.com/baharkarakas/tappay-backend/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type credentialsRepo struct{ pool *pgxpool.Pool }

func (r *credentialsRepo) GetByMerchant(ctx context.Context, merchantID string) (models.MerchantCredentials, error) {
	var c models.MerchantCredentials
	err := r.pool.QueryRow(ctx,
		`SELECT merchant_id, environment,
		        fasstap_enabled, COALESCE(fasstap_username,''), COALESCE(fasstap_password,''),
		        COALESCE(fasstap_base_url,''), bridge_mode,
		        lynk_enabled, COALESCE(lynk_client_id,''), COALESCE(lynk_client_secret,''),
		        COALESCE(lynk_merchant_account_id,''), cbdc_enabled,
		        COALESCE(api_key_hash,''), updated_at
		   FROM merchant_api_credentials
		  WHERE merchant_id=$1`,
		merchantID,
	).Scan(
		&c.MerchantID, &c.Environment,
		&c.FasstapEnabled, &c.FasstapUsername, &c.FasstapPassword,
		&c.FasstapBaseURL, &c.BridgeMode,
		&c.LynkEnabled, &c.LynkClientID, &c.LynkClientSecret,
		&c.LynkMerchantAccountID, &c.CBDCEnabled,
		&c.APIKeyHash, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return c, repository.ErrNotFound
	}
	return c, err
}
