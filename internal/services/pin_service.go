package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/baharkarakas/prepaid-ledger/internal/apperr"
	"github.com/baharkarakas/prepaid-ledger/internal/auth"
	"github.com/baharkarakas/prepaid-ledger/internal/clock"
	"github.com/baharkarakas/prepaid-ledger/internal/metrics"
	"github.com/baharkarakas/prepaid-ledger/internal/models"
	repo "github.com/baharkarakas/prepaid-ledger/internal/repository"
)

type PinPolicy struct {
	MaxFailedAttempts int
	LockDuration      time.Duration
}

// DefaultPinPolicy is five consecutive failures then a one minute lock.
var DefaultPinPolicy = PinPolicy{MaxFailedAttempts: 5, LockDuration: time.Minute}

type PinResult struct {
	Verified          bool       `json:"verified"`
	RemainingAttempts int        `json:"remaining_attempts"`
	LockedUntil       *time.Time `json:"locked_until,omitempty"`
}

// PinGuard is the step-up check in front of destructive operations. The
// hash comparison and the failure-count update happen under one per-account
// lock held by the repository.
type PinGuard struct {
	accounts repo.Accounts
	hasher   *auth.Hasher
	policy   PinPolicy
	clock    clock.Clock
	audit    auditor
	timeout  time.Duration
}

func NewPinGuard(accounts repo.Accounts, audit repo.AuditLogs, hasher *auth.Hasher, policy PinPolicy, c clock.Clock, log *slog.Logger, storeTimeout time.Duration) *PinGuard {
	if c == nil {
		c = clock.System
	}
	return &PinGuard{
		accounts: accounts,
		hasher:   hasher,
		policy:   policy,
		clock:    c,
		audit:    auditor{logs: audit, log: log},
		timeout:  storeTimeout,
	}
}

// ValidPIN reports whether pin is exactly four ASCII digits.
func ValidPIN(pin string) bool {
	if len(pin) != 4 {
		return false
	}
	for i := 0; i < len(pin); i++ {
		if pin[i] < '0' || pin[i] > '9' {
			return false
		}
	}
	return true
}

// Verify checks pin. A locked account answers without consuming an
// attempt; the failure that reaches MaxFailedAttempts sets the lock.
func (g *PinGuard) Verify(ctx context.Context, accountID, pin string) (PinResult, error) {
	if !ValidPIN(pin) {
		return PinResult{}, apperr.ErrInvalidInput.With("pin", "must be 4 digits")
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var (
		res     PinResult
		failed  bool
		lockout bool
	)
	_, err := g.accounts.UpdatePinState(ctx, accountID, func(st *models.PinState) error {
		now := g.clock.Now()
		if st.PinHash == "" {
			return apperr.ErrPinNotSet
		}
		if st.Locked(now) {
			until := *st.LockedUntil
			res = PinResult{Verified: false, RemainingAttempts: 0, LockedUntil: &until}
			return nil
		}
		if st.LockedUntil != nil {
			// lock has run out
			st.FailedCount, st.LockedUntil = 0, nil
		}

		ok, err := g.hasher.Matches(st.PinHash, pin)
		if err != nil {
			return apperr.ErrInternal.Wrap(err)
		}
		if ok {
			st.FailedCount = 0
			res = PinResult{Verified: true, RemainingAttempts: g.policy.MaxFailedAttempts}
			return nil
		}

		st.FailedCount++
		failed = true
		if st.FailedCount >= g.policy.MaxFailedAttempts {
			until := now.Add(g.policy.LockDuration)
			st.LockedUntil = &until
			lockout = true
			res = PinResult{Verified: false, RemainingAttempts: 0, LockedUntil: &until}
			return nil
		}
		res = PinResult{Verified: false, RemainingAttempts: g.policy.MaxFailedAttempts - st.FailedCount}
		return nil
	})
	if err != nil {
		return PinResult{}, apperr.Unavailable(err)
	}

	if failed {
		metrics.PinFailures.Inc()
	}
	if lockout {
		metrics.PinLockouts.Inc()
		g.audit.record(ctx, "account", accountID, "pin_locked", map[string]any{
			"locked_until": res.LockedUntil.Format(time.RFC3339),
		})
	}
	return res, nil
}

// Require is Verify as an error: PIN_LOCKED or PIN_MISMATCH with the
// counters a client needs.
func (g *PinGuard) Require(ctx context.Context, accountID, pin string) error {
	res, err := g.Verify(ctx, accountID, pin)
	if err != nil {
		return err
	}
	return resultErr(res)
}

func resultErr(res PinResult) error {
	switch {
	case res.Verified:
		return nil
	case res.LockedUntil != nil:
		return apperr.ErrPinLocked.With("locked_until", *res.LockedUntil).With("remaining_attempts", 0)
	default:
		return apperr.ErrPinMismatch.With("remaining_attempts", res.RemainingAttempts)
	}
}

// ChangePin stores newPin after currentPin verifies.
func (g *PinGuard) ChangePin(ctx context.Context, accountID, currentPin, newPin string) error {
	if !ValidPIN(newPin) {
		return apperr.ErrInvalidInput.With("new_pin", "must be 4 digits")
	}
	if err := g.Require(ctx, accountID, currentPin); err != nil {
		return err
	}
	hash, err := g.hasher.Hash(newPin)
	if err != nil {
		return apperr.ErrInternal.Wrap(err)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	if err := g.accounts.SetPinHash(ctx, accountID, hash); err != nil {
		return apperr.Unavailable(err)
	}
	g.audit.record(ctx, "account", accountID, "pin_changed", nil)
	return nil
}

// ResetPin overrides the PIN and clears any lockout. Callers must have
// re-authenticated the account through another channel first.
func (g *PinGuard) ResetPin(ctx context.Context, accountID, newPin string) error {
	if !ValidPIN(newPin) {
		return apperr.ErrInvalidInput.With("new_pin", "must be 4 digits")
	}
	hash, err := g.hasher.Hash(newPin)
	if err != nil {
		return apperr.ErrInternal.Wrap(err)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	_, err = g.accounts.UpdatePinState(ctx, accountID, func(st *models.PinState) error {
		st.PinHash = hash
		st.FailedCount = 0
		st.LockedUntil = nil
		return nil
	})
	if err != nil {
		return apperr.Unavailable(err)
	}
	g.audit.record(ctx, "account", accountID, "pin_reset", nil)
	return nil
}
