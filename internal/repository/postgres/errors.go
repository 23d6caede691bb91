package postgres

import (
	"errors"

	"github.com/baharkarakas/prepaid-ledger/internal/apperr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	constraintCancelOnce    = "transactions_cancel_once"
	constraintBalanceNonNeg = "customers_balance_non_negative"
	codeUniqueViolation     = "23505"
	codeCheckViolation      = "23514"
	codeInvalidTextRepr     = "22P02"
)

// mapErr turns driver errors into the typed taxonomy. notFound is used for
// pgx.ErrNoRows; anything unrecognised is STORE_UNAVAILABLE since the
// surrounding transaction was rolled back.
func mapErr(err error, notFound *apperr.Error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperr.As(err); ok {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) && notFound != nil {
		return notFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == codeUniqueViolation && pgErr.ConstraintName == constraintCancelOnce:
			return apperr.ErrAlreadyCancelled
		case pgErr.Code == codeCheckViolation && pgErr.ConstraintName == constraintBalanceNonNeg:
			return apperr.ErrInsufficientBalance
		case pgErr.Code == codeInvalidTextRepr && notFound != nil:
			return notFound
		}
	}
	return apperr.Unavailable(err)
}
