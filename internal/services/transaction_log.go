package services

import (
	"context"
	"time"

	"github.com/baharkarakas/prepaid-ledger/internal/apperr"
	"github.com/baharkarakas/prepaid-ledger/internal/models"
	repo "github.com/baharkarakas/prepaid-ledger/internal/repository"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// TransactionLog is the read side of the ledger, scoped to the calling
// account.
type TransactionLog struct {
	customers repo.Customers
	txns      repo.Transactions
	timeout   time.Duration
}

func NewTransactionLog(c repo.Customers, t repo.Transactions, storeTimeout time.Duration) *TransactionLog {
	return &TransactionLog{customers: c, txns: t, timeout: storeTimeout}
}

// NormalizeFilter applies paging defaults and rejects out-of-range values.
func NormalizeFilter(f models.TxnFilter) (models.TxnFilter, error) {
	if f.Kind != "" && !f.Kind.Valid() {
		return f, apperr.ErrInvalidInput.With("kind", "must be CHARGE, DEDUCT or CANCEL")
	}
	switch f.Order {
	case "":
		f.Order = models.OrderDesc
	case models.OrderAsc, models.OrderDesc:
	default:
		return f, apperr.ErrInvalidInput.With("order", "must be asc or desc")
	}
	if f.Limit == 0 {
		f.Limit = defaultPageSize
	}
	if f.Limit < 1 || f.Limit > maxPageSize {
		return f, apperr.ErrInvalidInput.With("limit", "must be between 1 and 100")
	}
	if f.Offset < 0 {
		return f, apperr.ErrInvalidInput.With("offset", "must not be negative")
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return f, apperr.ErrInvalidInput.With("from", "must not be after to")
	}
	return f, nil
}

func (l *TransactionLog) ListByCustomer(ctx context.Context, accountID, customerID string, f models.TxnFilter) ([]models.Transaction, error) {
	f, err := NormalizeFilter(f)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	if _, err := ownedCustomer(ctx, l.customers, accountID, customerID); err != nil {
		return nil, err
	}
	out, err := l.txns.ListByCustomer(ctx, customerID, f)
	return out, apperr.Unavailable(err)
}

// Get returns one transaction. Rows of other accounts' customers read as
// not found.
func (l *TransactionLog) Get(ctx context.Context, accountID, id string) (models.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	t, err := l.txns.GetByID(ctx, id)
	if err != nil {
		return models.Transaction{}, apperr.Unavailable(err)
	}
	if _, err := ownedCustomer(ctx, l.customers, accountID, t.CustomerID); err != nil {
		if apperr.KindOf(err) == apperr.KindCustomerNotFound {
			return models.Transaction{}, apperr.ErrTransactionNotFound
		}
		return models.Transaction{}, err
	}
	return t, nil
}

func ownedCustomer(ctx context.Context, customers repo.Customers, accountID, customerID string) (models.Customer, error) {
	c, err := customers.GetByID(ctx, customerID)
	if err != nil {
		return models.Customer{}, apperr.Unavailable(err)
	}
	if c.AccountID != accountID {
		return models.Customer{}, apperr.ErrCustomerNotFound
	}
	return c, nil
}
