package models

import "time"

// Customer.CurrentBalance is a cache of the signed transaction sum and is
// written only by the ledger engine.
type Customer struct {
	ID             string    `json:"id"`
	AccountID      string    `json:"account_id"`
	Name           string    `json:"name"`
	PhoneSuffix    string    `json:"phone_suffix,omitempty"`
	CurrentBalance int64     `json:"current_balance"`
	CreatedAt      time.Time `json:"created_at"`
}
