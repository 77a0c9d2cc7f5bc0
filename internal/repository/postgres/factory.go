package postgres

import (
	repo "github.com/baharkarakas/tappay-backend/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
)

func NewRepositories(pool *pgxpool.Pool) repo.Repositories {
	return repo.Repositories{
		Transactions:     &transactionsRepo{pool},
		TransactionItems: &transactionItemsRepo{pool},
		Products:         &productsRepo{pool},
		Credentials:      &credentialsRepo{pool},
		IntegrationLogs:  &integrationLogsRepo{pool},
		AuditLogs:        &auditLogsRepo{pool},
		RateWindow:       &rateWindowRepo{pool},
	}
}
