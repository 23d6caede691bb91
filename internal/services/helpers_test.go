package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/baharkarakas/prepaid-ledger/internal/auth"
	"github.com/baharkarakas/prepaid-ledger/internal/clock"
	"github.com/baharkarakas/prepaid-ledger/internal/logger"
	"github.com/baharkarakas/prepaid-ledger/internal/models"
	"github.com/baharkarakas/prepaid-ledger/internal/notify"
	"github.com/baharkarakas/prepaid-ledger/internal/ratelimit"
	repo "github.com/baharkarakas/prepaid-ledger/internal/repository"
	"github.com/baharkarakas/prepaid-ledger/internal/repository/memory"
	"golang.org/x/crypto/bcrypt"
)

const testPIN = "1234"

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (n *recordingNotifier) Notify(ev notify.Event) {
	n.mu.Lock()
	n.events = append(n.events, ev)
	n.mu.Unlock()
}

func (n *recordingNotifier) all() []notify.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Event(nil), n.events...)
}

type testEnv struct {
	clock    *clock.Fake
	store    *memory.Store
	repos    repo.Repositories
	notifier *recordingNotifier
	limiter  *ratelimit.Memory

	ledger    *LedgerService
	log       *TransactionLog
	balances  *BalanceService
	pins      *PinGuard
	accounts  *AccountService
	authority *auth.Authority
	sessions  *SessionService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	clk := clock.NewFake(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	store, repos := memory.NewRepositories(clk)
	lg := logger.Discard()
	hasher := auth.NewHasher(bcrypt.MinCost)
	n := &recordingNotifier{}
	limiter := ratelimit.NewMemory(clk)
	authority := auth.NewAuthority(auth.AuthorityConfig{
		AccessSecret:  "a-secret",
		RefreshSecret: "r-secret",
		Issuer:        "test",
		AccessTTL:     30 * time.Minute,
		RefreshTTL:    14 * 24 * time.Hour,
	}, repos.Revocations, clk)

	e := &testEnv{
		clock:     clk,
		store:     store,
		repos:     repos,
		notifier:  n,
		limiter:   limiter,
		ledger:    NewLedgerService(repos.Ledger, repos.Transactions, n, lg, time.Second),
		log:       NewTransactionLog(repos.Customers, repos.Transactions, time.Second),
		balances:  NewBalanceService(repos.Customers, repos.Transactions, time.Second),
		pins:      NewPinGuard(repos.Accounts, repos.AuditLogs, hasher, DefaultPinPolicy, clk, lg, time.Second),
		accounts:  NewAccountService(repos.Accounts, repos.Customers, hasher, time.Second),
		authority: authority,
	}
	e.sessions = NewSessionService(e.accounts, authority, limiter,
		ratelimit.Rule{Action: "login", Max: 3, Window: 5 * time.Minute},
		repos.AuditLogs, clk, lg)
	return e
}

func (e *testEnv) account(t *testing.T, email string) models.Account {
	t.Helper()
	a, err := e.accounts.Register(context.Background(), "Shop", email, "correct-horse", testPIN)
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return a
}

func (e *testEnv) customer(t *testing.T, accountID string) models.Customer {
	t.Helper()
	c, err := e.accounts.CreateCustomer(context.Background(), accountID, "Kim", "1234")
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}
	return c
}

func (e *testEnv) charge(t *testing.T, accountID, customerID string, amount int64) Result {
	t.Helper()
	res, err := e.ledger.Charge(context.Background(), ChargeInput{
		CustomerID:    customerID,
		AccountID:     accountID,
		ActualPayment: amount,
		PaymentMethod: models.PayCash,
	})
	if err != nil {
		t.Fatalf("charge %d: %v", amount, err)
	}
	return res
}

func (e *testEnv) balance(t *testing.T, accountID, customerID string) int64 {
	t.Helper()
	b, err := e.balances.Current(context.Background(), accountID, customerID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	return b.CurrentBalance
}

func (e *testEnv) assertConsistent(t *testing.T, accountID, customerID string) {
	t.Helper()
	r, err := e.balances.Reconcile(context.Background(), accountID, customerID)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if !r.Consistent || r.Balance < 0 {
		t.Fatalf("ledger inconsistent: %+v", r)
	}
}
