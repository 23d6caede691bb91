package services

import (
	"context"
	"strings"
	"time"

	"github.com/baharkarakas/prepaid-ledger/internal/apperr"
	"github.com/baharkarakas/prepaid-ledger/internal/auth"
	"github.com/baharkarakas/prepaid-ledger/internal/models"
	repo "github.com/baharkarakas/prepaid-ledger/internal/repository"
)

const minPasswordLen = 8

// AccountService registers shops and their customers and is the default
// identity provider (email and password).
type AccountService struct {
	accounts  repo.Accounts
	customers repo.Customers
	hasher    *auth.Hasher
	timeout   time.Duration

	// compared against when the email is unknown so both paths cost a
	// bcrypt round
	dummyHash string
}

func NewAccountService(accounts repo.Accounts, customers repo.Customers, hasher *auth.Hasher, storeTimeout time.Duration) *AccountService {
	dummy, _ := hasher.Hash("not-a-real-password")
	return &AccountService{accounts: accounts, customers: customers, hasher: hasher, timeout: storeTimeout, dummyHash: dummy}
}

func (s *AccountService) Register(ctx context.Context, name, email, password, pin string) (models.Account, error) {
	a := models.Account{Name: strings.TrimSpace(name), Email: strings.ToLower(strings.TrimSpace(email))}
	if err := a.Validate(); err != nil {
		return models.Account{}, apperr.ErrInvalidInput.With("account", err.Error())
	}
	if len(password) < minPasswordLen {
		return models.Account{}, apperr.ErrInvalidInput.With("password", "at least 8 characters")
	}
	if !ValidPIN(pin) {
		return models.Account{}, apperr.ErrInvalidInput.With("pin", "must be 4 digits")
	}

	pwHash, err := s.hasher.Hash(password)
	if err != nil {
		return models.Account{}, apperr.ErrInternal.Wrap(err)
	}
	pinHash, err := s.hasher.Hash(pin)
	if err != nil {
		return models.Account{}, apperr.ErrInternal.Wrap(err)
	}
	a.PasswordHash = pwHash

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	out, err := s.accounts.Create(ctx, a, pinHash)
	return out, apperr.Unavailable(err)
}

// Authenticate returns the account for email and password. Every failure
// is UNAUTHORIZED so callers cannot tell which emails exist.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (models.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	a, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if apperr.KindOf(err) != apperr.KindUnauthorized {
			return models.Account{}, apperr.Unavailable(err)
		}
		_, _ = s.hasher.Matches(s.dummyHash, password)
		return models.Account{}, apperr.ErrUnauthorized
	}
	ok, err := s.hasher.Matches(a.PasswordHash, password)
	if err != nil || !ok {
		return models.Account{}, apperr.ErrUnauthorized
	}
	return a, nil
}

func (s *AccountService) CreateCustomer(ctx context.Context, accountID, name, phoneSuffix string) (models.Customer, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Customer{}, apperr.ErrInvalidInput.With("name", "required")
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	c, err := s.customers.Create(ctx, models.Customer{AccountID: accountID, Name: name, PhoneSuffix: phoneSuffix})
	return c, apperr.Unavailable(err)
}

// ConfirmPassword re-proves an already authenticated account, e.g. before
// a PIN reset.
func (s *AccountService) ConfirmPassword(ctx context.Context, accountID, password string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	a, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return apperr.Unavailable(err)
	}
	ok, err := s.hasher.Matches(a.PasswordHash, password)
	if err != nil || !ok {
		return apperr.ErrUnauthorized
	}
	return nil
}
