package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"
	"time"

	"github.com/baharkarakas/prepaid-ledger/internal/apperr"
	"github.com/baharkarakas/prepaid-ledger/internal/auth"
	"github.com/baharkarakas/prepaid-ledger/internal/clock"
	"github.com/baharkarakas/prepaid-ledger/internal/logger"
	"github.com/baharkarakas/prepaid-ledger/internal/models"
	"github.com/baharkarakas/prepaid-ledger/internal/ratelimit"
)

type stubVerifier struct {
	session auth.Session
	err     error
	gotKind models.TokenKind
}

func (s *stubVerifier) Verify(_ context.Context, _ string, want models.TokenKind) (auth.Session, error) {
	s.gotKind = want
	return s.session, s.err
}

type stubPins struct {
	err        error
	gotAccount string
	gotPin     string
}

func (s *stubPins) Require(_ context.Context, accountID, pin string) error {
	s.gotAccount, s.gotPin = accountID, pin
	return s.err
}

func okHandler(t *testing.T, wantAccount string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if wantAccount != "" && AccountID(r.Context()) != wantAccount {
			t.Errorf("expected account %q in context, got %q", wantAccount, AccountID(r.Context()))
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestAuthMissingBearer(t *testing.T) {
	h := Auth(&stubVerifier{})(okHandler(t, ""))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthStoresSession(t *testing.T) {
	v := &stubVerifier{session: auth.Session{AccountID: "acc-1", JTI: "j"}}
	h := Auth(v)(okHandler(t, "acc-1"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer abc.def.ghi")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if v.gotKind != models.TokenAccess {
		t.Fatalf("expected access kind, got %q", v.gotKind)
	}
}

func TestAuthPropagatesRevoked(t *testing.T) {
	h := Auth(&stubVerifier{err: apperr.ErrTokenRevoked})(okHandler(t, ""))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer x")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequirePIN(t *testing.T) {
	pins := &stubPins{}
	h := RequirePIN(pins)(okHandler(t, ""))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req = req.WithContext(WithSession(req.Context(), auth.Session{AccountID: "acc-1"}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing header: expected 400, got %d", rec.Code)
	}

	req.Header.Set(PinHeader, "1234")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent || pins.gotAccount != "acc-1" || pins.gotPin != "1234" {
		t.Fatalf("expected pass-through, got %d (%+v)", rec.Code, pins)
	}

	pins.err = apperr.ErrPinLocked.With("locked_until", time.Now())
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusLocked {
		t.Fatalf("expected 423, got %d", rec.Code)
	}
}

func TestRateLimitByClientIP(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	l := ratelimit.NewMemory(clk)
	h := RateLimit(l, ratelimit.Rule{Action: "pin", Max: 2, Window: time.Minute}, clk)(okHandler(t, ""))

	do := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}
	do("10.0.0.1:1111")
	do("10.0.0.1:2222")
	rec := do("10.0.0.1:3333")
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") != "60" {
		t.Fatalf("expected 429 with Retry-After 60, got %d %q", rec.Code, rec.Header().Get("Retry-After"))
	}
	if rec := do("10.0.0.2:1111"); rec.Code != http.StatusNoContent {
		t.Fatalf("other ip should pass, got %d", rec.Code)
	}
}

func TestRequestIDKeepsValidInbound(t *testing.T) {
	const id = "0b5f2a56-8c1d-4c6e-9a53-0d8a2c6f7e11"
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFrom(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, id)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if seen != id || rec.Header().Get(RequestIDHeader) != id {
		t.Fatalf("expected inbound id reused, got %q", seen)
	}

	req.Header.Set(RequestIDHeader, "<script>")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen == "<script>" || seen == "" {
		t.Fatalf("expected a fresh id, got %q", seen)
	}
}

func TestRecoverReturns500(t *testing.T) {
	h := Recover(logger.Discard())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestTrustedRealIP(t *testing.T) {
	trusted := []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")}
	var seen string
	h := TrustedRealIP(trusted)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ClientIP(r)
	}))

	cases := []struct {
		name   string
		remote string
		xff    string
		realIP string
		want   string
	}{
		{"untrusted peer keeps socket address", "198.51.100.7:4000", "203.0.113.9", "", "198.51.100.7"},
		{"trusted peer uses rightmost untrusted hop", "10.1.1.1:4000", "6.6.6.6, 203.0.113.9, 10.2.2.2", "", "203.0.113.9"},
		{"trusted peer falls back to X-Real-IP", "10.1.1.1:4000", "", "203.0.113.10", "203.0.113.10"},
		{"garbage hop keeps socket address", "10.1.1.1:4000", "not-an-ip", "", "10.1.1.1"},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = tc.remote
		if tc.xff != "" {
			req.Header.Set("X-Forwarded-For", tc.xff)
		}
		if tc.realIP != "" {
			req.Header.Set("X-Real-IP", tc.realIP)
		}
		h.ServeHTTP(httptest.NewRecorder(), req)
		if seen != tc.want {
			t.Fatalf("%s: client = %q, want %q", tc.name, seen, tc.want)
		}
	}
}

func TestTrustedRealIPDisabledWithoutProxies(t *testing.T) {
	var seen string
	h := TrustedRealIP(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ClientIP(r)
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.7:4000"
	req.Header.Set("X-Forwarded-For", "1.2.3.4")
	req.Header.Set("X-Real-IP", "1.2.3.5")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "198.51.100.7" {
		t.Fatalf("forwarding headers must be ignored, got %q", seen)
	}
}
