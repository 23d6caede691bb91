package middleware

import (
	"net"
	"net/http"

	"github.com/baharkarakas/prepaid-ledger/internal/api/httpx"
	"github.com/baharkarakas/prepaid-ledger/internal/apperr"
	"github.com/baharkarakas/prepaid-ledger/internal/clock"
	"github.com/baharkarakas/prepaid-ledger/internal/metrics"
	"github.com/baharkarakas/prepaid-ledger/internal/ratelimit"
)

// ClientIP is the request's remote host. TrustedRealIP rewrites RemoteAddr
// from proxy headers before this runs, and only for trusted proxies.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimit throttles by client IP under rule. A limiter failure fails the
// request with STORE_UNAVAILABLE rather than letting it through.
func RateLimit(l ratelimit.Limiter, rule ratelimit.Rule, c clock.Clock) func(http.Handler) http.Handler {
	if l == nil || rule.Max <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if c == nil {
		c = clock.System
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := ratelimit.Enforce(r.Context(), l, rule, ClientIP(r), c.Now()); err != nil {
				if apperr.KindOf(err) == apperr.KindRateLimited {
					metrics.RateLimited.WithLabelValues(rule.Action).Inc()
				}
				httpx.WriteAppError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
