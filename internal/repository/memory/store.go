// Package memory is an in-process implementation of the repository
// interfaces for single-node deployments and tests. Per-customer and
// per-account read-modify-write sections are serialized with key locks; the
// maps themselves sit behind one RWMutex that is never held across a call
// into caller code.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/baharkarakas/prepaid-ledger/internal/apperr"
	"github.com/baharkarakas/prepaid-ledger/internal/clock"
	"github.com/baharkarakas/prepaid-ledger/internal/models"
	repo "github.com/baharkarakas/prepaid-ledger/internal/repository"
	"github.com/google/uuid"
)

type accountRow struct {
	account models.Account
	pin     models.PinState
}

type Store struct {
	clock clock.Clock

	mu          sync.RWMutex
	accounts    map[string]*accountRow
	emails      map[string]string
	customers   map[string]models.Customer
	txns        map[string]models.Transaction
	byCustomer  map[string][]string
	cancels     map[string]string
	revocations map[string]models.RevocationRecord
	audit       []models.AuditLog

	customerLocks *keyLock
	pinLocks      *keyLock
}

func New(c clock.Clock) *Store {
	if c == nil {
		c = clock.System
	}
	return &Store{
		clock:         c,
		accounts:      make(map[string]*accountRow),
		emails:        make(map[string]string),
		customers:     make(map[string]models.Customer),
		txns:          make(map[string]models.Transaction),
		byCustomer:    make(map[string][]string),
		cancels:       make(map[string]string),
		revocations:   make(map[string]models.RevocationRecord),
		customerLocks: newKeyLock(),
		pinLocks:      newKeyLock(),
	}
}

type (
	accountsRepo     struct{ s *Store }
	customersRepo    struct{ s *Store }
	ledgerRepo       struct{ s *Store }
	transactionsRepo struct{ s *Store }
	revocationsRepo  struct{ s *Store }
	auditLogsRepo    struct{ s *Store }
)

// Repositories exposes the store through the repository interfaces.
func (s *Store) Repositories() repo.Repositories {
	return repo.Repositories{
		Accounts:     accountsRepo{s},
		Customers:    customersRepo{s},
		Ledger:       ledgerRepo{s},
		Transactions: transactionsRepo{s},
		Revocations:  revocationsRepo{s},
		AuditLogs:    auditLogsRepo{s},
	}
}

// NewRepositories builds a fresh store and returns its repositories.
func NewRepositories(c clock.Clock) (*Store, repo.Repositories) {
	s := New(c)
	return s, s.Repositories()
}

// ----------------- Accounts -----------------

func (r accountsRepo) Create(ctx context.Context, a models.Account, pinHash string) (models.Account, error) {
	s := r.s
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := s.clock.Now()
	a.CreatedAt, a.UpdatedAt = now, now
	email := strings.ToLower(strings.TrimSpace(a.Email))

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.emails[email]; taken {
		return models.Account{}, apperr.ErrInvalidInput.With("email", "already registered")
	}
	s.emails[email] = a.ID
	s.accounts[a.ID] = &accountRow{account: a, pin: models.PinState{AccountID: a.ID, PinHash: pinHash}}
	return a, nil
}

func (r accountsRepo) GetByID(ctx context.Context, id string) (models.Account, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.accounts[id]
	if !ok {
		return models.Account{}, apperr.ErrUnauthorized
	}
	return row.account, nil
}

func (r accountsRepo) GetByEmail(ctx context.Context, email string) (models.Account, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.emails[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return models.Account{}, apperr.ErrUnauthorized
	}
	return s.accounts[id].account, nil
}

func (r accountsRepo) SetPinHash(ctx context.Context, accountID, pinHash string) error {
	s := r.s
	unlock, err := s.pinLocks.Lock(ctx, accountID)
	if err != nil {
		return apperr.Unavailable(err)
	}
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.accounts[accountID]
	if !ok {
		return apperr.ErrUnauthorized
	}
	row.pin.PinHash = pinHash
	row.account.UpdatedAt = s.clock.Now()
	return nil
}

func (r accountsRepo) UpdatePinState(ctx context.Context, accountID string, fn func(st *models.PinState) error) (models.PinState, error) {
	s := r.s
	unlock, err := s.pinLocks.Lock(ctx, accountID)
	if err != nil {
		return models.PinState{}, apperr.Unavailable(err)
	}
	defer unlock()

	s.mu.RLock()
	row, ok := s.accounts[accountID]
	var st models.PinState
	if ok {
		st = row.pin
	}
	s.mu.RUnlock()
	if !ok {
		return models.PinState{}, apperr.ErrUnauthorized
	}

	if err := fn(&st); err != nil {
		return models.PinState{}, err
	}
	s.mu.Lock()
	row.pin = st
	s.mu.Unlock()
	return st, nil
}

// ----------------- Customers -----------------

func (r customersRepo) Create(ctx context.Context, c models.Customer) (models.Customer, error) {
	s := r.s
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CurrentBalance != 0 {
		return models.Customer{}, apperr.ErrInvalidInput.With("current_balance", "starts at zero")
	}
	c.CreatedAt = s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[c.AccountID]; !ok {
		return models.Customer{}, apperr.ErrUnauthorized
	}
	s.customers[c.ID] = c
	return c, nil
}

func (r customersRepo) GetByID(ctx context.Context, id string) (models.Customer, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.customers[id]
	if !ok {
		return models.Customer{}, apperr.ErrCustomerNotFound
	}
	return c, nil
}

// ----------------- Ledger -----------------

type ledgerTx struct {
	s        *Store
	customer models.Customer
}

func (t *ledgerTx) Customer() models.Customer { return t.customer }

func (t *ledgerTx) CancelOf(ctx context.Context, originalID string) (*models.Transaction, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	id, ok := t.s.cancels[originalID]
	if !ok {
		return nil, nil
	}
	c := t.s.txns[id]
	return &c, nil
}

func (r ledgerRepo) AtomicUpdate(ctx context.Context, customerID string, fn func(repo.LedgerTx) (repo.Mutation, error)) (models.Transaction, int64, error) {
	s := r.s
	unlock, err := s.customerLocks.Lock(ctx, customerID)
	if err != nil {
		return models.Transaction{}, 0, apperr.Unavailable(err)
	}
	defer unlock()

	s.mu.RLock()
	c, ok := s.customers[customerID]
	s.mu.RUnlock()
	if !ok {
		return models.Transaction{}, 0, apperr.ErrCustomerNotFound
	}

	m, err := fn(&ledgerTx{s: s, customer: c})
	if err != nil {
		return models.Transaction{}, 0, err
	}
	newBalance := c.CurrentBalance + m.Delta
	if newBalance < 0 {
		return models.Transaction{}, 0, apperr.ErrInsufficientBalance.With("current_balance", c.CurrentBalance)
	}
	// a caller whose deadline passed while fn ran gets no write
	if err := ctx.Err(); err != nil {
		return models.Transaction{}, 0, apperr.Unavailable(err)
	}

	e := m.Entry
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.CustomerID = customerID
	e.CreatedAt = s.clock.Now()
	e.BalanceAfter = newBalance
	e.CancelledByID = nil

	s.mu.Lock()
	defer s.mu.Unlock()
	if e.Kind == models.TxnCancel {
		if e.OriginalTransactionID == nil {
			return models.Transaction{}, 0, apperr.ErrInvalidCancel
		}
		if _, dup := s.cancels[*e.OriginalTransactionID]; dup {
			return models.Transaction{}, 0, apperr.ErrAlreadyCancelled
		}
		s.cancels[*e.OriginalTransactionID] = e.ID
	}
	c.CurrentBalance = newBalance
	s.customers[customerID] = c
	s.txns[e.ID] = e
	s.byCustomer[customerID] = append(s.byCustomer[customerID], e.ID)
	return e, newBalance, nil
}

// ----------------- Transactions -----------------

func (r transactionsRepo) GetByID(ctx context.Context, id string) (models.Transaction, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.txns[id]
	if !ok {
		return models.Transaction{}, apperr.ErrTransactionNotFound
	}
	return s.withCancel(t), nil
}

func (s *Store) withCancel(t models.Transaction) models.Transaction {
	if id, ok := s.cancels[t.ID]; ok {
		cid := id
		t.CancelledByID = &cid
	}
	return t
}

func (r transactionsRepo) ListByCustomer(ctx context.Context, customerID string, f models.TxnFilter) ([]models.Transaction, error) {
	s := r.s
	s.mu.RLock()
	ids := s.byCustomer[customerID]
	out := make([]models.Transaction, 0, len(ids))
	for _, id := range ids {
		t := s.txns[id]
		if f.Match(t) {
			out = append(out, s.withCancel(t))
		}
	}
	s.mu.RUnlock()

	if f.Order == models.OrderAsc {
		sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	} else {
		// newest first; reverse insertion order keeps ties deterministic
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
		sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	}

	if f.Offset >= len(out) {
		return []models.Transaction{}, nil
	}
	out = out[f.Offset:]
	if f.Limit > 0 && f.Limit < len(out) {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r transactionsRepo) History(ctx context.Context, customerID string) ([]models.Transaction, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byCustomer[customerID]
	out := make([]models.Transaction, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.withCancel(s.txns[id]))
	}
	return out, nil
}

// ----------------- Revocations -----------------

func (r revocationsRepo) Revoke(ctx context.Context, rec models.RevocationRecord) error {
	s := r.s
	if rec.RevokedAt.IsZero() {
		rec.RevokedAt = s.clock.Now()
	}
	s.mu.Lock()
	s.revocations[rec.JTI] = rec
	s.mu.Unlock()
	return nil
}

func (r revocationsRepo) IsRevoked(ctx context.Context, jti string) (bool, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.revocations[jti]
	return ok, nil
}

func (r revocationsRepo) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for jti, rec := range s.revocations {
		if !rec.ExpiresAt.After(now) {
			delete(s.revocations, jti)
			n++
		}
	}
	return n, nil
}

// ----------------- Audit -----------------

func (r auditLogsRepo) Create(ctx context.Context, l models.AuditLog) error {
	s := r.s
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	l.CreatedAt = s.clock.Now()
	s.mu.Lock()
	s.audit = append(s.audit, l)
	s.mu.Unlock()
	return nil
}

// AuditLogs returns a snapshot of recorded security events.
func (s *Store) AuditLogs() []models.AuditLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.AuditLog(nil), s.audit...)
}
