package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/baharkarakas/prepaid-ledger/internal/api/httpx"
	"github.com/baharkarakas/prepaid-ledger/internal/apperr"
	"github.com/baharkarakas/prepaid-ledger/internal/auth"
	"github.com/baharkarakas/prepaid-ledger/internal/models"
)

// TokenVerifier is the part of auth.Authority the middleware needs.
type TokenVerifier interface {
	Verify(ctx context.Context, token string, want models.TokenKind) (auth.Session, error)
}

// BearerToken extracts the token from an Authorization header.
func BearerToken(r *http.Request) (string, bool) {
	ah := r.Header.Get("Authorization")
	if len(ah) < 7 || !strings.EqualFold(ah[:7], "bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(ah[7:])
	return tok, tok != ""
}

// Auth requires a valid, unrevoked access token and stores its session in
// the request context.
func Auth(v TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				httpx.WriteAppError(w, apperr.ErrTokenInvalid.With("reason", "missing_bearer"))
				return
			}
			s, err := v.Verify(r.Context(), token, models.TokenAccess)
			if err != nil {
				httpx.WriteAppError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
		})
	}
}
