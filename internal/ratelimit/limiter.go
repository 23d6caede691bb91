// Package ratelimit throttles attempts per key (client IP plus action)
// within a time window. Memory keeps buckets in process; Redis shares them
// across instances.
package ratelimit

import (
	"context"
	"time"

	"github.com/baharkarakas/prepaid-ledger/internal/apperr"
)

type Decision struct {
	Allowed   bool      `json:"allowed"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
}

type Limiter interface {
	// Check records one attempt against key and reports whether it fits in
	// the current window of at most max attempts.
	Check(ctx context.Context, key string, window time.Duration, max int) (Decision, error)
	// Reset zeroes key, e.g. after a successful login.
	Reset(ctx context.Context, key string) error
}

// Rule is one throttled action.
type Rule struct {
	Action string
	Max    int
	Window time.Duration
}

func (r Rule) Key(subject string) string { return r.Action + ":" + subject }

// Enforce runs Check and turns a denial into RATE_LIMITED carrying reset_at
// and retry_after_seconds. A limiter failure is STORE_UNAVAILABLE.
func Enforce(ctx context.Context, l Limiter, r Rule, subject string, now time.Time) (Decision, error) {
	d, err := l.Check(ctx, r.Key(subject), r.Window, r.Max)
	if err != nil {
		return Decision{}, apperr.Unavailable(err)
	}
	if !d.Allowed {
		retry := int(d.ResetAt.Sub(now).Round(time.Second) / time.Second)
		if retry < 1 {
			retry = 1
		}
		return d, apperr.ErrRateLimited.
			With("reset_at", d.ResetAt).
			With("retry_after_seconds", retry)
	}
	return d, nil
}
