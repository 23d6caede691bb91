package models

import (
	"errors"
	"strings"
	"time"
)

// Account is a shop. It owns its customers, one PIN and its sessions.
type Account struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (a *Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return errors.New("name required")
	}
	if !strings.Contains(a.Email, "@") {
		return errors.New("invalid email")
	}
	return nil
}

// PinState is the PIN hash plus consecutive-failure tracking of one account.
type PinState struct {
	AccountID   string     `json:"account_id"`
	PinHash     string     `json:"-"`
	FailedCount int        `json:"failed_count"`
	LockedUntil *time.Time `json:"locked_until,omitempty"`
}

func (p PinState) Locked(now time.Time) bool {
	return p.LockedUntil != nil && now.Before(*p.LockedUntil)
}
