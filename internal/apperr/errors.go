// Package apperr carries the typed error taxonomy shared by the ledger,
// session and access-guard layers. Every error returned to a caller is an
// *Error so clients can render it without string parsing.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindCustomerNotFound          Kind = "CUSTOMER_NOT_FOUND"
	KindTransactionNotFound       Kind = "TRANSACTION_NOT_FOUND"
	KindUnauthorized              Kind = "UNAUTHORIZED"
	KindInvalidAmount             Kind = "INVALID_AMOUNT"
	KindInsufficientBalance       Kind = "INSUFFICIENT_BALANCE"
	KindInsufficientBalanceCancel Kind = "INSUFFICIENT_BALANCE_FOR_CANCEL"
	KindAlreadyCancelled          Kind = "ALREADY_CANCELLED"
	KindInvalidCancel             Kind = "INVALID_CANCEL"
	KindTokenExpired              Kind = "TOKEN_EXPIRED"
	KindTokenInvalid              Kind = "TOKEN_INVALID"
	KindTokenRevoked              Kind = "TOKEN_REVOKED"
	KindPinMismatch               Kind = "PIN_MISMATCH"
	KindPinLocked                 Kind = "PIN_LOCKED"
	KindRateLimited               Kind = "RATE_LIMITED"
	KindStoreUnavailable          Kind = "STORE_UNAVAILABLE"

	// not part of the ledger taxonomy proper
	KindInvalidInput Kind = "INVALID_INPUT"
	KindPinNotSet    Kind = "PIN_NOT_SET"
	KindInternal     Kind = "INTERNAL"
)

// Error is a typed failure. Details holds the counters a client needs
// (current_balance, remaining_attempts, locked_until, reset_at ...).
type Error struct {
	Kind    Kind
	Message string
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind, so the package sentinels work
// with errors.Is regardless of details.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// With returns a copy of e with key=value added to Details.
func (e *Error) With(key string, value any) *Error {
	cp := *e
	cp.Details = make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		cp.Details[k] = v
	}
	cp.Details[key] = value
	return &cp
}

// Wrap returns a copy of e with cause attached.
func (e *Error) Wrap(cause error) *Error {
	cp := *e
	cp.Err = cause
	return &cp
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

var (
	ErrCustomerNotFound          = New(KindCustomerNotFound, "customer not found")
	ErrTransactionNotFound       = New(KindTransactionNotFound, "transaction not found")
	ErrUnauthorized              = New(KindUnauthorized, "not permitted for this account")
	ErrInvalidAmount             = New(KindInvalidAmount, "amount must be positive")
	ErrInsufficientBalance       = New(KindInsufficientBalance, "insufficient balance")
	ErrInsufficientBalanceCancel = New(KindInsufficientBalanceCancel, "charged funds already spent")
	ErrAlreadyCancelled          = New(KindAlreadyCancelled, "transaction already cancelled")
	ErrInvalidCancel             = New(KindInvalidCancel, "a cancel cannot be cancelled")
	ErrTokenExpired              = New(KindTokenExpired, "token expired")
	ErrTokenInvalid              = New(KindTokenInvalid, "token invalid")
	ErrTokenRevoked              = New(KindTokenRevoked, "token revoked")
	ErrPinMismatch               = New(KindPinMismatch, "pin mismatch")
	ErrPinLocked                 = New(KindPinLocked, "pin locked")
	ErrPinNotSet                 = New(KindPinNotSet, "pin not set")
	ErrRateLimited               = New(KindRateLimited, "too many requests")
	ErrStoreUnavailable          = New(KindStoreUnavailable, "store unavailable")
	ErrInvalidInput              = New(KindInvalidInput, "invalid input")
	ErrInternal                  = New(KindInternal, "internal error")
)

// KindOf reports the Kind of err, or KindInternal for untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// As returns the *Error in err's chain, if any.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// Retryable is true only for STORE_UNAVAILABLE, which guarantees no
// mutation took place.
func Retryable(err error) bool {
	return err != nil && KindOf(err) == KindStoreUnavailable
}

// Unavailable wraps a store failure as STORE_UNAVAILABLE unless it is
// already typed.
func Unavailable(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := As(err); ok {
		return err
	}
	return ErrStoreUnavailable.Wrap(err)
}
