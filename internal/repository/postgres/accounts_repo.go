package postgres

import (
	"context"
	"strings"

	"github.com/baharkarakas/prepaid-ledger/internal/apperr"
	"github.com/baharkarakas/prepaid-ledger/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type accountsRepo struct{ pool *pgxpool.Pool }

const accountCols = `id, name, email, password_hash, created_at, updated_at`

func scanAccount(row pgx.Row) (models.Account, error) {
	var a models.Account
	err := row.Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (r *accountsRepo) Create(ctx context.Context, a models.Account, pinHash string) (models.Account, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	out, err := scanAccount(r.pool.QueryRow(ctx,
		`INSERT INTO accounts(id, name, email, password_hash, pin_hash)
		 VALUES($1,$2,$3,$4,$5)
		 RETURNING `+accountCols,
		a.ID, a.Name, strings.ToLower(strings.TrimSpace(a.Email)), a.PasswordHash, pinHash,
	))
	return out, mapErr(err, nil)
}

func (r *accountsRepo) GetByID(ctx context.Context, id string) (models.Account, error) {
	a, err := scanAccount(r.pool.QueryRow(ctx, `SELECT `+accountCols+` FROM accounts WHERE id=$1`, id))
	return a, mapErr(err, apperr.ErrUnauthorized)
}

func (r *accountsRepo) GetByEmail(ctx context.Context, email string) (models.Account, error) {
	a, err := scanAccount(r.pool.QueryRow(ctx,
		`SELECT `+accountCols+` FROM accounts WHERE email=$1`,
		strings.ToLower(strings.TrimSpace(email)),
	))
	return a, mapErr(err, apperr.ErrUnauthorized)
}

func (r *accountsRepo) SetPinHash(ctx context.Context, accountID, pinHash string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE accounts SET pin_hash=$2, updated_at=now() WHERE id=$1`,
		accountID, pinHash,
	)
	if err != nil {
		return mapErr(err, nil)
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrUnauthorized
	}
	return nil
}

// UpdatePinState holds the account row lock across fn so concurrent
// attempts cannot observe the same failure count.
func (r *accountsRepo) UpdatePinState(ctx context.Context, accountID string, fn func(st *models.PinState) error) (models.PinState, error) {
	var out models.PinState
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		st := models.PinState{AccountID: accountID}
		err := tx.QueryRow(ctx,
			`SELECT pin_hash, pin_failed_count, pin_locked_until
			   FROM accounts
			  WHERE id=$1
			  FOR UPDATE`,
			accountID,
		).Scan(&st.PinHash, &st.FailedCount, &st.LockedUntil)
		if err != nil {
			return mapErr(err, apperr.ErrUnauthorized)
		}
		if err := fn(&st); err != nil {
			return err
		}
		_, err = tx.Exec(ctx,
			`UPDATE accounts
			    SET pin_hash=$2, pin_failed_count=$3, pin_locked_until=$4, updated_at=now()
			  WHERE id=$1`,
			accountID, st.PinHash, st.FailedCount, st.LockedUntil,
		)
		if err != nil {
			return err
		}
		out = st
		return nil
	})
	return out, mapErr(err, nil)
}
