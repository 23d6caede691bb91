package postgres

import (
	"context"

	"github.com/baharkarakas/prepaid-ledger/internal/apperr"
	"github.com/baharkarakas/prepaid-ledger/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type customersRepo struct{ pool *pgxpool.Pool }

const customerCols = `id, account_id, name, phone_suffix, current_balance, created_at`

func scanCustomer(row pgx.Row) (models.Customer, error) {
	var c models.Customer
	err := row.Scan(&c.ID, &c.AccountID, &c.Name, &c.PhoneSuffix, &c.CurrentBalance, &c.CreatedAt)
	return c, err
}

func (r *customersRepo) Create(ctx context.Context, c models.Customer) (models.Customer, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	out, err := scanCustomer(r.pool.QueryRow(ctx,
		`INSERT INTO customers(id, account_id, name, phone_suffix, current_balance)
		 VALUES($1,$2,$3,$4,0)
		 RETURNING `+customerCols,
		c.ID, c.AccountID, c.Name, c.PhoneSuffix,
	))
	return out, mapErr(err, nil)
}

func (r *customersRepo) GetByID(ctx context.Context, id string) (models.Customer, error) {
	c, err := scanCustomer(r.pool.QueryRow(ctx, `SELECT `+customerCols+` FROM customers WHERE id=$1`, id))
	return c, mapErr(err, apperr.ErrCustomerNotFound)
}
