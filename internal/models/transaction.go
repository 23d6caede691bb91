package models

import "time"

type TransactionKind string

const (
	TxnCharge TransactionKind = "CHARGE"
	TxnDeduct TransactionKind = "DEDUCT"
	TxnCancel TransactionKind = "CANCEL"
)

func (k TransactionKind) Valid() bool {
	switch k {
	case TxnCharge, TxnDeduct, TxnCancel:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PayCard     PaymentMethod = "CARD"
	PayCash     PaymentMethod = "CASH"
	PayTransfer PaymentMethod = "TRANSFER"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PayCard, PayCash, PayTransfer:
		return true
	}
	return false
}

// Transaction is an append-only ledger row. OriginalTransactionID is set
// only on CANCEL rows; CancelledByID is derived on read.
type Transaction struct {
	ID                    string          `json:"id"`
	CustomerID            string          `json:"customer_id"`
	Kind                  TransactionKind `json:"type"`
	Amount                int64           `json:"amount"`
	ActualPayment         *int64          `json:"actual_payment,omitempty"`
	ServiceAmount         *int64          `json:"service_amount,omitempty"`
	PaymentMethod         *PaymentMethod  `json:"payment_method,omitempty"`
	OriginalTransactionID *string         `json:"original_transaction_id,omitempty"`
	BalanceAfter          int64           `json:"balance_after"`
	Note                  string          `json:"note,omitempty"`
	CreatedAt             time.Time       `json:"created_at"`
	CancelledByID         *string         `json:"cancelled_by_id,omitempty"`
}

func (t Transaction) IsCancelled() bool { return t.CancelledByID != nil }

// SignedEffect is the contribution of t to its customer's balance. A
// CANCEL needs the kind of the row it reverses.
func (t Transaction) SignedEffect(original TransactionKind) int64 {
	switch t.Kind {
	case TxnCharge:
		return t.Amount
	case TxnDeduct:
		return -t.Amount
	case TxnCancel:
		if original == TxnCharge {
			return -t.Amount
		}
		return t.Amount
	}
	return 0
}

type SortOrder string

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// TxnFilter selects a page of one customer's history.
type TxnFilter struct {
	Kind   TransactionKind
	From   *time.Time
	To     *time.Time
	Order  SortOrder
	Limit  int
	Offset int
}

// Match reports whether t passes the kind and time-range parts of f. Both
// ends of the range are inclusive.
func (f TxnFilter) Match(t Transaction) bool {
	if f.Kind != "" && t.Kind != f.Kind {
		return false
	}
	if f.From != nil && t.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && t.CreatedAt.After(*f.To) {
		return false
	}
	return true
}
