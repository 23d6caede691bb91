package middleware

import (
	"context"
	"net/http"

	"github.com/baharkarakas/prepaid-ledger/internal/api/httpx"
	"github.com/baharkarakas/prepaid-ledger/internal/apperr"
)

const PinHeader = "X-Shop-Pin"

// PinChecker is the part of services.PinGuard the middleware needs.
type PinChecker interface {
	Require(ctx context.Context, accountID, pin string) error
}

// RequirePIN gates a route behind the account PIN sent in X-Shop-Pin.
// Must run after Auth.
func RequirePIN(g PinChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, ok := SessionFrom(r.Context())
			if !ok {
				httpx.WriteAppError(w, apperr.ErrTokenInvalid)
				return
			}
			pin := r.Header.Get(PinHeader)
			if pin == "" {
				httpx.WriteAppError(w, apperr.ErrInvalidInput.With("header", PinHeader+" required"))
				return
			}
			if err := g.Require(r.Context(), s.AccountID, pin); err != nil {
				httpx.WriteAppError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
