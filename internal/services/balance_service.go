package services

import (
	"context"
	"time"

	"github.com/baharkarakas/prepaid-ledger/internal/apperr"
	"github.com/baharkarakas/prepaid-ledger/internal/models"
	repo "github.com/baharkarakas/prepaid-ledger/internal/repository"
)

type BalanceService struct {
	customers repo.Customers
	txns      repo.Transactions
	timeout   time.Duration
}

func NewBalanceService(c repo.Customers, t repo.Transactions, storeTimeout time.Duration) *BalanceService {
	return &BalanceService{customers: c, txns: t, timeout: storeTimeout}
}

type Balance struct {
	CustomerID     string `json:"customer_id"`
	CurrentBalance int64  `json:"current_balance"`
}

func (s *BalanceService) Current(ctx context.Context, accountID, customerID string) (Balance, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	c, err := ownedCustomer(ctx, s.customers, accountID, customerID)
	if err != nil {
		return Balance{}, err
	}
	return Balance{CustomerID: c.ID, CurrentBalance: c.CurrentBalance}, nil
}

type Reconciliation struct {
	CustomerID   string `json:"customer_id"`
	Balance      int64  `json:"balance"`
	Computed     int64  `json:"computed"`
	Transactions int    `json:"transactions"`
	Consistent   bool   `json:"consistent"`
}

// Reconcile recomputes the balance from the full history and compares it
// with the stored one.
func (s *BalanceService) Reconcile(ctx context.Context, accountID, customerID string) (Reconciliation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	c, err := ownedCustomer(ctx, s.customers, accountID, customerID)
	if err != nil {
		return Reconciliation{}, err
	}
	history, err := s.txns.History(ctx, customerID)
	if err != nil {
		return Reconciliation{}, apperr.Unavailable(err)
	}
	computed := SignedSum(history)
	return Reconciliation{
		CustomerID:   c.ID,
		Balance:      c.CurrentBalance,
		Computed:     computed,
		Transactions: len(history),
		Consistent:   computed == c.CurrentBalance,
	}, nil
}

// SignedSum is charges minus deducts, with each CANCEL undoing the row it
// references.
func SignedSum(history []models.Transaction) int64 {
	kinds := make(map[string]models.TransactionKind, len(history))
	for _, t := range history {
		kinds[t.ID] = t.Kind
	}
	var sum int64
	for _, t := range history {
		var orig models.TransactionKind
		if t.OriginalTransactionID != nil {
			orig = kinds[*t.OriginalTransactionID]
		}
		sum += t.SignedEffect(orig)
	}
	return sum
}
