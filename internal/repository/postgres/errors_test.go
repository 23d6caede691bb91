package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/baharkarakas/prepaid-ledger/internal/apperr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestMapErrNil(t *testing.T) {
	if err := mapErr(nil, apperr.ErrCustomerNotFound); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestMapErrNoRows(t *testing.T) {
	err := mapErr(fmt.Errorf("select: %w", pgx.ErrNoRows), apperr.ErrTransactionNotFound)
	if !errors.Is(err, apperr.ErrTransactionNotFound) {
		t.Fatalf("expected TRANSACTION_NOT_FOUND, got %v", err)
	}

	// without a not-found kind an empty result is a store failure
	if err := mapErr(pgx.ErrNoRows, nil); !errors.Is(err, apperr.ErrStoreUnavailable) {
		t.Fatalf("expected STORE_UNAVAILABLE, got %v", err)
	}
}

func TestMapErrCancelOnce(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "transactions_cancel_once"}
	if err := mapErr(fmt.Errorf("insert: %w", pgErr), nil); !errors.Is(err, apperr.ErrAlreadyCancelled) {
		t.Fatalf("expected ALREADY_CANCELLED, got %v", err)
	}

	other := &pgconn.PgError{Code: "23505", ConstraintName: "accounts_email_key"}
	if err := mapErr(other, nil); !errors.Is(err, apperr.ErrStoreUnavailable) {
		t.Fatalf("unrelated unique violation: expected STORE_UNAVAILABLE, got %v", err)
	}
}

func TestMapErrBalanceCheck(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23514", ConstraintName: "customers_balance_non_negative"}
	if err := mapErr(pgErr, nil); !errors.Is(err, apperr.ErrInsufficientBalance) {
		t.Fatalf("expected INSUFFICIENT_BALANCE, got %v", err)
	}
}

func TestMapErrInvalidTextRepresentation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "22P02"}
	if err := mapErr(pgErr, apperr.ErrCustomerNotFound); !errors.Is(err, apperr.ErrCustomerNotFound) {
		t.Fatalf("expected CUSTOMER_NOT_FOUND for a malformed id, got %v", err)
	}
	if err := mapErr(pgErr, nil); !errors.Is(err, apperr.ErrStoreUnavailable) {
		t.Fatalf("expected STORE_UNAVAILABLE, got %v", err)
	}
}

func TestMapErrKeepsTypedErrors(t *testing.T) {
	in := apperr.ErrInsufficientBalanceCancel.With("current_balance", int64(5))
	if err := mapErr(in, apperr.ErrCustomerNotFound); err != error(in) {
		t.Fatalf("typed error should pass through unchanged, got %v", err)
	}
}

func TestMapErrDeadlineIsRetryable(t *testing.T) {
	err := mapErr(context.DeadlineExceeded, nil)
	if !apperr.Retryable(err) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected retryable STORE_UNAVAILABLE wrapping the deadline, got %v", err)
	}
}
