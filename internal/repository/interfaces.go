package repository

import (
	"context"
	"time"

	"github.com/baharkarakas/prepaid-ledger/internal/models"
)

type Accounts interface {
	Create(ctx context.Context, a models.Account, pinHash string) (models.Account, error)
	GetByID(ctx context.Context, id string) (models.Account, error)
	GetByEmail(ctx context.Context, email string) (models.Account, error)
	SetPinHash(ctx context.Context, accountID, pinHash string) error

	// UpdatePinState runs fn with the account's pin row locked and persists
	// whatever fn leaves in st. If fn returns an error nothing is written.
	UpdatePinState(ctx context.Context, accountID string, fn func(st *models.PinState) error) (models.PinState, error)
}

type Customers interface {
	Create(ctx context.Context, c models.Customer) (models.Customer, error)
	GetByID(ctx context.Context, id string) (models.Customer, error)
}

// LedgerTx is one customer's ledger as seen from inside AtomicUpdate.
type LedgerTx interface {
	Customer() models.Customer
	// CancelOf returns the CANCEL row referencing originalID, if any.
	CancelOf(ctx context.Context, originalID string) (*models.Transaction, error)
}

// Mutation is what an update function asks AtomicUpdate to apply: a
// balance delta and the row recording it.
type Mutation struct {
	Delta int64
	Entry models.Transaction
}

type Ledger interface {
	// AtomicUpdate serializes fn against every other update of the same
	// customer. The balance change and the appended row commit together or
	// not at all. Returns the stored row and the resulting balance.
	AtomicUpdate(ctx context.Context, customerID string, fn func(LedgerTx) (Mutation, error)) (models.Transaction, int64, error)
}

// Transactions is the read side of the append-only log. Rows are written
// only through Ledger.AtomicUpdate.
type Transactions interface {
	GetByID(ctx context.Context, id string) (models.Transaction, error)
	ListByCustomer(ctx context.Context, customerID string, f models.TxnFilter) ([]models.Transaction, error)
	// History returns every row of a customer in created order, for audit.
	History(ctx context.Context, customerID string) ([]models.Transaction, error)
}

type Revocations interface {
	Revoke(ctx context.Context, rec models.RevocationRecord) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

type AuditLogs interface {
	Create(ctx context.Context, l models.AuditLog) error
}

// Repositories bundles one backend's implementations.
type Repositories struct {
	Accounts     Accounts
	Customers    Customers
	Ledger       Ledger
	Transactions Transactions
	Revocations  Revocations
	AuditLogs    AuditLogs
}
