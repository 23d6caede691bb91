package postgres

import (
	repo "github.com/baharkarakas/prepaid-ledger/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
)

func NewRepositories(pool *pgxpool.Pool) repo.Repositories {
	return repo.Repositories{
		Accounts:     &accountsRepo{pool},
		Customers:    &customersRepo{pool},
		Ledger:       &ledgerRepo{pool},
		Transactions: &transactionsRepo{pool},
		Revocations:  &revocationsRepo{pool},
		AuditLogs:    &auditLogsRepo{pool},
	}
}
