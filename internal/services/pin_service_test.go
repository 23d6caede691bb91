package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/baharkarakas/prepaid-ledger/internal/apperr"
)

func TestPinLockoutBoundary(t *testing.T) {
	e := newTestEnv(t)
	a := e.account(t, "shop@example.com")
	ctx := context.Background()

	for i := 1; i < DefaultPinPolicy.MaxFailedAttempts; i++ {
		res, err := e.pins.Verify(ctx, a.ID, "0000")
		if err != nil {
			t.Fatalf("attempt %d: %v", i, err)
		}
		if res.Verified || res.LockedUntil != nil || res.RemainingAttempts != DefaultPinPolicy.MaxFailedAttempts-i {
			t.Fatalf("attempt %d: unexpected %+v", i, res)
		}
	}

	res, err := e.pins.Verify(ctx, a.ID, "0000")
	if err != nil {
		t.Fatalf("final attempt: %v", err)
	}
	if res.RemainingAttempts != 0 || res.LockedUntil == nil || !res.LockedUntil.After(e.clock.Now()) {
		t.Fatalf("expected lock in the future, got %+v", res)
	}

	e.clock.Advance(30 * time.Second)
	res, _ = e.pins.Verify(ctx, a.ID, testPIN)
	if res.Verified || res.LockedUntil == nil {
		t.Fatalf("correct pin during lock must fail, got %+v", res)
	}
	if err := e.pins.Require(ctx, a.ID, testPIN); !errors.Is(err, apperr.ErrPinLocked) {
		t.Fatalf("expected PIN_LOCKED, got %v", err)
	}

	e.clock.Advance(31 * time.Second)
	res, err = e.pins.Verify(ctx, a.ID, testPIN)
	if err != nil || !res.Verified {
		t.Fatalf("expected success after lock expiry, got %+v %v", res, err)
	}

	var lockouts int
	for _, l := range e.store.AuditLogs() {
		if l.Action == "pin_locked" {
			lockouts++
		}
	}
	if lockouts != 1 {
		t.Fatalf("expected one pin_locked audit row, got %d", lockouts)
	}
}

func TestPinSuccessResetsFailures(t *testing.T) {
	e := newTestEnv(t)
	a := e.account(t, "shop@example.com")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		e.pins.Verify(ctx, a.ID, "9999")
	}
	if res, _ := e.pins.Verify(ctx, a.ID, testPIN); !res.Verified {
		t.Fatal("expected success")
	}
	res, _ := e.pins.Verify(ctx, a.ID, "9999")
	if res.RemainingAttempts != DefaultPinPolicy.MaxFailedAttempts-1 {
		t.Fatalf("failures were not reset: %+v", res)
	}
}

func TestConcurrentWrongPinsAreAllCounted(t *testing.T) {
	e := newTestEnv(t)
	a := e.account(t, "shop@example.com")
	n := DefaultPinPolicy.MaxFailedAttempts

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		remaining []int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := e.pins.Verify(context.Background(), a.ID, "0000")
			if err != nil {
				t.Errorf("verify: %v", err)
				return
			}
			mu.Lock()
			remaining = append(remaining, res.RemainingAttempts)
			mu.Unlock()
		}()
	}
	wg.Wait()

	sort.Ints(remaining)
	for i, r := range remaining {
		if r != i {
			t.Fatalf("expected remaining counts 0..%d, got %v", n-1, remaining)
		}
	}
	if err := e.pins.Require(context.Background(), a.ID, testPIN); !errors.Is(err, apperr.ErrPinLocked) {
		t.Fatalf("expected lock after %d concurrent failures, got %v", n, err)
	}
}

func TestRequireMismatchCarriesRemaining(t *testing.T) {
	e := newTestEnv(t)
	a := e.account(t, "shop@example.com")

	err := e.pins.Require(context.Background(), a.ID, "4321")
	ae, ok := apperr.As(err)
	if !ok || ae.Kind != apperr.KindPinMismatch || ae.Details["remaining_attempts"] != DefaultPinPolicy.MaxFailedAttempts-1 {
		t.Fatalf("expected PIN_MISMATCH with remaining attempts, got %v", err)
	}
}

func TestVerifyRejectsMalformedPin(t *testing.T) {
	e := newTestEnv(t)
	a := e.account(t, "shop@example.com")
	for _, pin := range []string{"", "123", "12345", "12a4"} {
		if _, err := e.pins.Verify(context.Background(), a.ID, pin); !errors.Is(err, apperr.ErrInvalidInput) {
			t.Fatalf("pin %q: expected INVALID_INPUT, got %v", pin, err)
		}
	}
	res, _ := e.pins.Verify(context.Background(), a.ID, "0000")
	if res.RemainingAttempts != DefaultPinPolicy.MaxFailedAttempts-1 {
		t.Fatalf("malformed pins must not consume attempts: %+v", res)
	}
}

func TestChangePin(t *testing.T) {
	e := newTestEnv(t)
	a := e.account(t, "shop@example.com")
	ctx := context.Background()

	if err := e.pins.ChangePin(ctx, a.ID, "0000", "5678"); !errors.Is(err, apperr.ErrPinMismatch) {
		t.Fatalf("expected PIN_MISMATCH, got %v", err)
	}
	if err := e.pins.ChangePin(ctx, a.ID, testPIN, "5678"); err != nil {
		t.Fatalf("change: %v", err)
	}
	if err := e.pins.Require(ctx, a.ID, "5678"); err != nil {
		t.Fatalf("new pin should verify: %v", err)
	}
	if err := e.pins.Require(ctx, a.ID, testPIN); !errors.Is(err, apperr.ErrPinMismatch) {
		t.Fatalf("old pin should fail, got %v", err)
	}
}

func TestResetPinClearsLockout(t *testing.T) {
	e := newTestEnv(t)
	a := e.account(t, "shop@example.com")
	ctx := context.Background()

	for i := 0; i < DefaultPinPolicy.MaxFailedAttempts; i++ {
		e.pins.Verify(ctx, a.ID, "0000")
	}
	if err := e.pins.ResetPin(ctx, a.ID, "2468"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	res, err := e.pins.Verify(ctx, a.ID, "2468")
	if err != nil || !res.Verified || res.RemainingAttempts != DefaultPinPolicy.MaxFailedAttempts {
		t.Fatalf("expected clean state after reset, got %+v %v", res, err)
	}
}
