package services

import (
	"context"
	"log/slog"
	"math"
	"time"
	"unicode/utf8"

	"github.com/baharkarakas/prepaid-ledger/internal/apperr"
	"github.com/baharkarakas/prepaid-ledger/internal/metrics"
	"github.com/baharkarakas/prepaid-ledger/internal/models"
	"github.com/baharkarakas/prepaid-ledger/internal/notify"
	repo "github.com/baharkarakas/prepaid-ledger/internal/repository"
)

const maxNoteLen = 200

// LedgerService mutates customer balances. Every mutation runs inside
// repository.Ledger.AtomicUpdate so the balance check, the balance write and
// the appended row are one step per customer.
type LedgerService struct {
	ledger   repo.Ledger
	txns     repo.Transactions
	notifier notify.Notifier
	log      *slog.Logger
	timeout  time.Duration
}

func NewLedgerService(ledger repo.Ledger, txns repo.Transactions, n notify.Notifier, log *slog.Logger, storeTimeout time.Duration) *LedgerService {
	if n == nil {
		n = notify.Nop{}
	}
	return &LedgerService{ledger: ledger, txns: txns, notifier: n, log: log, timeout: storeTimeout}
}

type ChargeInput struct {
	CustomerID    string
	AccountID     string
	ActualPayment int64
	ServiceAmount int64
	PaymentMethod models.PaymentMethod
	Note          string
}

type DeductInput struct {
	CustomerID string
	AccountID  string
	Amount     int64
	Note       string
}

type CancelInput struct {
	TransactionID string
	AccountID     string
	Reason        string
}

type Result struct {
	Transaction models.Transaction `json:"transaction"`
	NewBalance  int64              `json:"new_balance"`
}

// ----------------- Charge -----------------

func (s *LedgerService) Charge(ctx context.Context, in ChargeInput) (res Result, err error) {
	defer func() { s.record("charge", err) }()

	if in.ActualPayment <= 0 || in.ServiceAmount < 0 {
		return Result{}, apperr.ErrInvalidAmount
	}
	if in.ServiceAmount > math.MaxInt64-in.ActualPayment {
		return Result{}, apperr.ErrInvalidAmount.With("reason", "overflow")
	}
	if !in.PaymentMethod.Valid() {
		return Result{}, apperr.ErrInvalidInput.With("payment_method", "must be CARD, CASH or TRANSFER")
	}
	if err := checkNote(in.Note); err != nil {
		return Result{}, err
	}
	total := in.ActualPayment + in.ServiceAmount
	actual, service, method := in.ActualPayment, in.ServiceAmount, in.PaymentMethod

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	txn, balance, err := s.ledger.AtomicUpdate(ctx, in.CustomerID, func(tx repo.LedgerTx) (repo.Mutation, error) {
		c := tx.Customer()
		if c.AccountID != in.AccountID {
			return repo.Mutation{}, apperr.ErrCustomerNotFound
		}
		if c.CurrentBalance > math.MaxInt64-total {
			return repo.Mutation{}, apperr.ErrInvalidAmount.With("reason", "overflow")
		}
		return repo.Mutation{
			Delta: total,
			Entry: models.Transaction{
				Kind:          models.TxnCharge,
				Amount:        total,
				ActualPayment: &actual,
				ServiceAmount: &service,
				PaymentMethod: &method,
				Note:          in.Note,
			},
		}, nil
	})
	if err != nil {
		return Result{}, apperr.Unavailable(err)
	}
	s.committed(in.AccountID, txn)
	return Result{Transaction: txn, NewBalance: balance}, nil
}

// ----------------- Deduct -----------------

func (s *LedgerService) Deduct(ctx context.Context, in DeductInput) (res Result, err error) {
	defer func() { s.record("deduct", err) }()

	if in.Amount <= 0 {
		return Result{}, apperr.ErrInvalidAmount
	}
	if err := checkNote(in.Note); err != nil {
		return Result{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	txn, balance, err := s.ledger.AtomicUpdate(ctx, in.CustomerID, func(tx repo.LedgerTx) (repo.Mutation, error) {
		c := tx.Customer()
		if c.AccountID != in.AccountID {
			return repo.Mutation{}, apperr.ErrCustomerNotFound
		}
		if c.CurrentBalance < in.Amount {
			return repo.Mutation{}, apperr.ErrInsufficientBalance.With("current_balance", c.CurrentBalance)
		}
		return repo.Mutation{
			Delta: -in.Amount,
			Entry: models.Transaction{Kind: models.TxnDeduct, Amount: in.Amount, Note: in.Note},
		}, nil
	})
	if err != nil {
		return Result{}, apperr.Unavailable(err)
	}
	s.committed(in.AccountID, txn)
	return Result{Transaction: txn, NewBalance: balance}, nil
}

// ----------------- Cancel -----------------

// Cancel reverses a CHARGE or DEDUCT by appending a CANCEL that references
// it. The checks that depend on ledger state run under the customer lock.
func (s *LedgerService) Cancel(ctx context.Context, in CancelInput) (res Result, err error) {
	defer func() { s.record("cancel", err) }()

	if err := checkNote(in.Reason); err != nil {
		return Result{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	orig, err := s.txns.GetByID(ctx, in.TransactionID)
	if err != nil {
		return Result{}, apperr.Unavailable(err)
	}

	origID := orig.ID
	txn, balance, err := s.ledger.AtomicUpdate(ctx, orig.CustomerID, func(tx repo.LedgerTx) (repo.Mutation, error) {
		c := tx.Customer()
		if c.AccountID != in.AccountID {
			return repo.Mutation{}, apperr.ErrUnauthorized
		}
		if orig.Kind == models.TxnCancel {
			return repo.Mutation{}, apperr.ErrInvalidCancel
		}
		prior, err := tx.CancelOf(ctx, origID)
		if err != nil {
			return repo.Mutation{}, err
		}
		if prior != nil {
			return repo.Mutation{}, apperr.ErrAlreadyCancelled.With("cancelled_by_id", prior.ID)
		}

		var delta int64
		switch orig.Kind {
		case models.TxnCharge:
			if c.CurrentBalance < orig.Amount {
				return repo.Mutation{}, apperr.ErrInsufficientBalanceCancel.With("current_balance", c.CurrentBalance)
			}
			delta = -orig.Amount
		case models.TxnDeduct:
			delta = orig.Amount
		default:
			return repo.Mutation{}, apperr.ErrInvalidCancel
		}
		return repo.Mutation{
			Delta: delta,
			Entry: models.Transaction{
				Kind:                  models.TxnCancel,
				Amount:                orig.Amount,
				OriginalTransactionID: &origID,
				Note:                  in.Reason,
			},
		}, nil
	})
	if err != nil {
		return Result{}, apperr.Unavailable(err)
	}
	s.committed(in.AccountID, txn)
	return Result{Transaction: txn, NewBalance: balance}, nil
}

// ----------------- Helpers -----------------

func (s *LedgerService) committed(accountID string, txn models.Transaction) {
	s.log.Info("ledger mutation",
		"kind", txn.Kind,
		"transaction_id", txn.ID,
		"customer_id", txn.CustomerID,
		"amount", txn.Amount,
		"balance_after", txn.BalanceAfter,
	)
	s.notifier.Notify(notify.EventFor(accountID, txn))
}

func (s *LedgerService) record(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(apperr.KindOf(err))
		if apperr.Retryable(err) {
			s.log.Warn("ledger store unavailable", "op", op, "err", err)
		}
	}
	metrics.LedgerOperations.WithLabelValues(op, outcome).Inc()
}

func checkNote(note string) error {
	if utf8.RuneCountInString(note) > maxNoteLen {
		return apperr.ErrInvalidInput.With("note", "at most 200 characters")
	}
	return nil
}
