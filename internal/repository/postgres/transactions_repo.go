package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/baharkarakas/prepaid-ledger/internal/apperr"
	"github.com/baharkarakas/prepaid-ledger/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type transactionsRepo struct{ pool *pgxpool.Pool }

const txnCols = `t.id, t.customer_id, t.kind, t.amount, t.actual_payment, t.service_amount,
	t.payment_method, t.original_transaction_id, t.balance_after, t.note, t.created_at`

// txnWithCancel adds the id of the CANCEL reversing each row, if any.
const txnWithCancel = `SELECT ` + txnCols + `, c.id
	FROM transactions t
	LEFT JOIN transactions c ON c.kind='CANCEL' AND c.original_transaction_id = t.id`

func scanTxn(row pgx.Row, extra ...any) (models.Transaction, error) {
	var (
		t      models.Transaction
		kind   string
		method *string
	)
	dest := []any{
		&t.ID, &t.CustomerID, &kind, &t.Amount, &t.ActualPayment, &t.ServiceAmount,
		&method, &t.OriginalTransactionID, &t.BalanceAfter, &t.Note, &t.CreatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return models.Transaction{}, err
	}
	t.Kind = models.TransactionKind(kind)
	if method != nil {
		pm := models.PaymentMethod(*method)
		t.PaymentMethod = &pm
	}
	return t, nil
}

func scanTxnWithCancel(row pgx.Row) (models.Transaction, error) {
	var cancelID *string
	t, err := scanTxn(row, &cancelID)
	t.CancelledByID = cancelID
	return t, err
}

func (r *transactionsRepo) GetByID(ctx context.Context, id string) (models.Transaction, error) {
	t, err := scanTxnWithCancel(r.pool.QueryRow(ctx, txnWithCancel+` WHERE t.id=$1`, id))
	return t, mapErr(err, apperr.ErrTransactionNotFound)
}

func (r *transactionsRepo) ListByCustomer(ctx context.Context, customerID string, f models.TxnFilter) ([]models.Transaction, error) {
	where := []string{"t.customer_id=$1"}
	args := []any{customerID}
	if f.Kind != "" {
		args = append(args, string(f.Kind))
		where = append(where, fmt.Sprintf("t.kind=$%d", len(args)))
	}
	if f.From != nil {
		args = append(args, *f.From)
		where = append(where, fmt.Sprintf("t.created_at >= $%d", len(args)))
	}
	if f.To != nil {
		args = append(args, *f.To)
		where = append(where, fmt.Sprintf("t.created_at <= $%d", len(args)))
	}
	order := "DESC"
	if f.Order == models.OrderAsc {
		order = "ASC"
	}
	q := txnWithCancel + ` WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY t.created_at ` + order + `, t.seq ` + order
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		q += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	return r.query(ctx, q, args...)
}

func (r *transactionsRepo) History(ctx context.Context, customerID string) ([]models.Transaction, error) {
	return r.query(ctx, txnWithCancel+` WHERE t.customer_id=$1 ORDER BY t.seq ASC`, customerID)
}

func (r *transactionsRepo) query(ctx context.Context, q string, args ...any) ([]models.Transaction, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, mapErr(err, nil)
	}
	defer rows.Close()

	out := []models.Transaction{}
	for rows.Next() {
		t, err := scanTxnWithCancel(rows)
		if err != nil {
			return nil, mapErr(err, nil)
		}
		out = append(out, t)
	}
	return out, mapErr(rows.Err(), nil)
}
