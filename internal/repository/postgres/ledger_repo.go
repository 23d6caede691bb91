package postgres

import (
	"context"
	"errors"

	"github.com/baharkarakas/prepaid-ledger/internal/apperr"
	"github.com/baharkarakas/prepaid-ledger/internal/models"
	repo "github.com/baharkarakas/prepaid-ledger/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ledgerRepo struct{ pool *pgxpool.Pool }

type pgLedgerTx struct {
	tx       pgx.Tx
	customer models.Customer
}

func (t *pgLedgerTx) Customer() models.Customer { return t.customer }

func (t *pgLedgerTx) CancelOf(ctx context.Context, originalID string) (*models.Transaction, error) {
	c, err := scanTxn(t.tx.QueryRow(ctx,
		`SELECT `+txnCols+` FROM transactions t
		  WHERE t.kind='CANCEL' AND t.original_transaction_id=$1`,
		originalID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// AtomicUpdate locks the customer row for the whole read-check-write.
func (r *ledgerRepo) AtomicUpdate(ctx context.Context, customerID string, fn func(repo.LedgerTx) (repo.Mutation, error)) (models.Transaction, int64, error) {
	var (
		out     models.Transaction
		balance int64
	)
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		c, err := scanCustomer(tx.QueryRow(ctx,
			`SELECT `+customerCols+` FROM customers WHERE id=$1 FOR UPDATE`,
			customerID,
		))
		if err != nil {
			return mapErr(err, apperr.ErrCustomerNotFound)
		}

		m, err := fn(&pgLedgerTx{tx: tx, customer: c})
		if err != nil {
			return err
		}
		newBalance := c.CurrentBalance + m.Delta
		if newBalance < 0 {
			return apperr.ErrInsufficientBalance.With("current_balance", c.CurrentBalance)
		}

		e := m.Entry
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		e.CustomerID = customerID
		e.BalanceAfter = newBalance
		e.CancelledByID = nil
		if e.Kind == models.TxnCancel && e.OriginalTransactionID == nil {
			return apperr.ErrInvalidCancel
		}

		if _, err := tx.Exec(ctx,
			`UPDATE customers SET current_balance=$2 WHERE id=$1`,
			customerID, newBalance,
		); err != nil {
			return err
		}

		var method *string
		if e.PaymentMethod != nil {
			m := string(*e.PaymentMethod)
			method = &m
		}
		err = tx.QueryRow(ctx,
			`INSERT INTO transactions (
			   id, customer_id, kind, amount, actual_payment, service_amount,
			   payment_method, original_transaction_id, balance_after, note
			 ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
			 RETURNING created_at`,
			e.ID, e.CustomerID, string(e.Kind), e.Amount, e.ActualPayment, e.ServiceAmount,
			method, e.OriginalTransactionID, e.BalanceAfter, e.Note,
		).Scan(&e.CreatedAt)
		if err != nil {
			return err
		}
		out, balance = e, newBalance
		return nil
	})
	if err != nil {
		return models.Transaction{}, 0, mapErr(err, nil)
	}
	return out, balance, nil
}
