package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/baharkarakas/prepaid-ledger/internal/apperr"
	"github.com/baharkarakas/prepaid-ledger/internal/clock"
	"github.com/baharkarakas/prepaid-ledger/internal/models"
	"github.com/baharkarakas/prepaid-ledger/internal/repository/memory"
)

func newTestAuthority(t *testing.T) (*Authority, *clock.Fake) {
	t.Helper()
	clk := clock.NewFake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	_, repos := memory.NewRepositories(clk)
	a := NewAuthority(AuthorityConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		Issuer:        "prepaid-ledger-test",
		AccessTTL:     30 * time.Minute,
		RefreshTTL:    14 * 24 * time.Hour,
	}, repos.Revocations, clk)
	return a, clk
}

func TestIssueAndVerifyAccessToken(t *testing.T) {
	a, _ := newTestAuthority(t)
	tok, err := a.IssueAccessToken("acc-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if tok.JTI == "" || tok.Kind != models.TokenAccess {
		t.Fatalf("unexpected token %+v", tok)
	}

	s, err := a.Verify(context.Background(), tok.Value, models.TokenAccess)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if s.AccountID != "acc-1" || s.JTI != tok.JTI {
		t.Fatalf("unexpected session %+v", s)
	}
}

func TestVerifyExpired(t *testing.T) {
	a, clk := newTestAuthority(t)
	tok, _ := a.IssueAccessToken("acc-1")

	clk.Advance(31 * time.Minute)
	_, err := a.Verify(context.Background(), tok.Value, models.TokenAccess)
	if !errors.Is(err, apperr.ErrTokenExpired) {
		t.Fatalf("expected TOKEN_EXPIRED, got %v", err)
	}
}

func TestVerifyWrongKind(t *testing.T) {
	a, _ := newTestAuthority(t)
	pair, err := a.IssuePair("acc-1")
	if err != nil {
		t.Fatalf("issue pair: %v", err)
	}

	_, err = a.Verify(context.Background(), pair.Refresh.Value, models.TokenAccess)
	e, ok := apperr.As(err)
	if !ok || e.Kind != apperr.KindTokenInvalid || e.Details["reason"] != "wrong_kind" {
		t.Fatalf("expected wrong_kind TOKEN_INVALID, got %v", err)
	}
	_, err = a.Verify(context.Background(), pair.Access.Value, models.TokenRefresh)
	if !errors.Is(err, apperr.ErrTokenInvalid) {
		t.Fatalf("expected TOKEN_INVALID, got %v", err)
	}
}

func TestVerifyTamperedSignature(t *testing.T) {
	a, _ := newTestAuthority(t)
	tok, _ := a.IssueAccessToken("acc-1")

	parts := strings.Split(tok.Value, ".")
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	forged := parts[0] + "." + parts[1] + "." + string(sig)

	_, err := a.Verify(context.Background(), forged, models.TokenAccess)
	if !errors.Is(err, apperr.ErrTokenInvalid) {
		t.Fatalf("expected TOKEN_INVALID, got %v", err)
	}
}

func TestVerifyForeignSecret(t *testing.T) {
	a, clk := newTestAuthority(t)
	_, repos := memory.NewRepositories(clk)
	other := NewAuthority(AuthorityConfig{
		AccessSecret:  "someone-else",
		RefreshSecret: "someone-else-refresh",
		Issuer:        "prepaid-ledger-test",
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
	}, repos.Revocations, clk)

	tok, _ := other.IssueAccessToken("acc-1")
	if _, err := a.Verify(context.Background(), tok.Value, models.TokenAccess); !errors.Is(err, apperr.ErrTokenInvalid) {
		t.Fatalf("expected TOKEN_INVALID, got %v", err)
	}
}

func TestRevokeUntilExpiry(t *testing.T) {
	a, clk := newTestAuthority(t)
	ctx := context.Background()
	tok, _ := a.IssueAccessToken("acc-1")

	if err := a.Revoke(ctx, tok.JTI, "acc-1", tok.ExpiresAt); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := a.Verify(ctx, tok.Value, models.TokenAccess); !errors.Is(err, apperr.ErrTokenRevoked) {
			t.Fatalf("attempt %d: expected TOKEN_REVOKED, got %v", i, err)
		}
	}

	clk.Advance(time.Hour)
	if _, err := a.Verify(ctx, tok.Value, models.TokenAccess); !errors.Is(err, apperr.ErrTokenExpired) {
		t.Fatalf("expected TOKEN_EXPIRED after expiry, got %v", err)
	}
}

func TestRefreshKeepsRefreshTokenValid(t *testing.T) {
	a, clk := newTestAuthority(t)
	ctx := context.Background()
	pair, _ := a.IssuePair("acc-1")

	clk.Advance(45 * time.Minute)
	if _, err := a.Verify(ctx, pair.Access.Value, models.TokenAccess); !errors.Is(err, apperr.ErrTokenExpired) {
		t.Fatalf("expected old access token expired, got %v", err)
	}

	fresh, err := a.Refresh(ctx, pair.Refresh.Value)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if fresh.JTI == pair.Access.JTI {
		t.Fatal("expected a new jti")
	}
	if _, err := a.Verify(ctx, fresh.Value, models.TokenAccess); err != nil {
		t.Fatalf("fresh token should verify: %v", err)
	}
	if _, err := a.Refresh(ctx, pair.Refresh.Value); err != nil {
		t.Fatalf("refresh token should still be usable: %v", err)
	}
}

func TestRefreshRejectsRevokedRefreshToken(t *testing.T) {
	a, _ := newTestAuthority(t)
	ctx := context.Background()
	pair, _ := a.IssuePair("acc-1")

	if err := a.Revoke(ctx, pair.Refresh.JTI, "acc-1", pair.Refresh.ExpiresAt); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := a.Refresh(ctx, pair.Refresh.Value); !errors.Is(err, apperr.ErrTokenRevoked) {
		t.Fatalf("expected TOKEN_REVOKED, got %v", err)
	}
}

func TestVerifyGarbage(t *testing.T) {
	a, _ := newTestAuthority(t)
	if _, err := a.Verify(context.Background(), "not-a-jwt", models.TokenAccess); !errors.Is(err, apperr.ErrTokenInvalid) {
		t.Fatalf("expected TOKEN_INVALID, got %v", err)
	}
}
