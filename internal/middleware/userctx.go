package middleware

import (
	"context"

	"github.com/baharkarakas/prepaid-ledger/internal/auth"
)

type sessionKey struct{}

func WithSession(ctx context.Context, s auth.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFrom returns the verified access session set by Auth.
func SessionFrom(ctx context.Context) (auth.Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(auth.Session)
	return s, ok
}

// AccountID is SessionFrom reduced to the account id.
func AccountID(ctx context.Context) string {
	s, _ := SessionFrom(ctx)
	return s.AccountID
}
