package auth

import (
	"context"
	"errors"
	"time"

	"github.com/baharkarakas/prepaid-ledger/internal/apperr"
	"github.com/baharkarakas/prepaid-ledger/internal/clock"
	"github.com/baharkarakas/prepaid-ledger/internal/models"
	repo "github.com/baharkarakas/prepaid-ledger/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Authority issues, verifies and revokes session tokens. Access and refresh
// tokens are signed with different secrets so one can never pass for the
// other even if the typ claim is forged.
type Authority struct {
	accessSecret  []byte
	refreshSecret []byte
	issuer        string
	accessTTL     time.Duration
	refreshTTL    time.Duration
	revocations   repo.Revocations
	clock         clock.Clock
}

type AuthorityConfig struct {
	AccessSecret  string
	RefreshSecret string
	Issuer        string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

func NewAuthority(cfg AuthorityConfig, revocations repo.Revocations, c clock.Clock) *Authority {
	if c == nil {
		c = clock.System
	}
	return &Authority{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		issuer:        cfg.Issuer,
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		revocations:   revocations,
		clock:         c,
	}
}

type Claims struct {
	Type models.TokenKind `json:"typ"`
	jwt.RegisteredClaims
}

// Token is one signed token plus the fields needed to revoke it later.
type Token struct {
	Value     string           `json:"token"`
	JTI       string           `json:"jti"`
	Kind      models.TokenKind `json:"kind"`
	ExpiresAt time.Time        `json:"expires_at"`
}

type Pair struct {
	Access  Token `json:"access"`
	Refresh Token `json:"refresh"`
}

// Session is what a verified token proves.
type Session struct {
	AccountID string
	JTI       string
	Kind      models.TokenKind
	ExpiresAt time.Time
}

func (a *Authority) IssueAccessToken(accountID string) (Token, error) {
	return a.issue(accountID, models.TokenAccess, a.accessTTL, a.accessSecret)
}

func (a *Authority) IssueRefreshToken(accountID string) (Token, error) {
	return a.issue(accountID, models.TokenRefresh, a.refreshTTL, a.refreshSecret)
}

func (a *Authority) IssuePair(accountID string) (Pair, error) {
	access, err := a.IssueAccessToken(accountID)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := a.IssueRefreshToken(accountID)
	if err != nil {
		return Pair{}, err
	}
	return Pair{Access: access, Refresh: refresh}, nil
}

func (a *Authority) issue(accountID string, kind models.TokenKind, ttl time.Duration, secret []byte) (Token, error) {
	now := a.clock.Now()
	jti := uuid.NewString()
	exp := now.Add(ttl)
	claims := Claims{
		Type: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   accountID,
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return Token{}, apperr.ErrInternal.Wrap(err)
	}
	// NumericDate truncates to seconds; report what the token actually says.
	return Token{Value: signed, JTI: jti, Kind: kind, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// Verify checks signature and expiry, then kind, then the revocation list.
func (a *Authority) Verify(ctx context.Context, token string, want models.TokenKind) (Session, error) {
	claims, err := a.parse(token)
	if err != nil {
		return Session{}, err
	}
	if claims.Type != want {
		return Session{}, apperr.ErrTokenInvalid.With("reason", "wrong_kind")
	}
	revoked, err := a.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return Session{}, apperr.Unavailable(err)
	}
	if revoked {
		return Session{}, apperr.ErrTokenRevoked
	}
	return sessionOf(claims), nil
}

func (a *Authority) parse(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, a.keyFor,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.clock.Now),
		jwt.WithIssuer(a.issuer),
		jwt.WithExpirationRequired(),
	)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, apperr.ErrTokenExpired
	default:
		return nil, apperr.ErrTokenInvalid.Wrap(err)
	}
	if claims.ID == "" || claims.Subject == "" {
		return nil, apperr.ErrTokenInvalid.With("reason", "missing_claims")
	}
	return claims, nil
}

// keyFor picks the secret by the unverified typ claim; a forged typ only
// selects a key the signature will not match.
func (a *Authority) keyFor(t *jwt.Token) (any, error) {
	c, ok := t.Claims.(*Claims)
	if !ok {
		return nil, errors.New("unexpected claims type")
	}
	switch c.Type {
	case models.TokenAccess:
		return a.accessSecret, nil
	case models.TokenRefresh:
		return a.refreshSecret, nil
	}
	return nil, errors.New("unknown token type")
}

// Revoke blacklists jti until expiresAt.
func (a *Authority) Revoke(ctx context.Context, jti, accountID string, expiresAt time.Time) error {
	err := a.revocations.Revoke(ctx, models.RevocationRecord{
		JTI:       jti,
		Subject:   accountID,
		ExpiresAt: expiresAt,
		RevokedAt: a.clock.Now(),
	})
	return apperr.Unavailable(err)
}

// RevokeSession revokes a verified session.
func (a *Authority) RevokeSession(ctx context.Context, s Session) error {
	return a.Revoke(ctx, s.JTI, s.AccountID, s.ExpiresAt)
}

// Refresh trades a valid refresh token for a new access token. The refresh
// token stays valid until it expires or is revoked.
func (a *Authority) Refresh(ctx context.Context, refreshToken string) (Token, error) {
	s, err := a.Verify(ctx, refreshToken, models.TokenRefresh)
	if err != nil {
		return Token{}, err
	}
	return a.IssueAccessToken(s.AccountID)
}

func sessionOf(c *Claims) Session {
	return Session{
		AccountID: c.Subject,
		JTI:       c.ID,
		Kind:      c.Type,
		ExpiresAt: c.ExpiresAt.Time,
	}
}
