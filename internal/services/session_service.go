package services

import (
	"context"
	"log/slog"

	"github.com/baharkarakas/prepaid-ledger/internal/apperr"
	"github.com/baharkarakas/prepaid-ledger/internal/auth"
	"github.com/baharkarakas/prepaid-ledger/internal/clock"
	"github.com/baharkarakas/prepaid-ledger/internal/metrics"
	"github.com/baharkarakas/prepaid-ledger/internal/models"
	"github.com/baharkarakas/prepaid-ledger/internal/ratelimit"
	repo "github.com/baharkarakas/prepaid-ledger/internal/repository"
)

// SessionService is login, refresh and logout on top of the token
// authority. Login failures count against the caller's login bucket; a
// success clears it.
type SessionService struct {
	accounts  *AccountService
	authority *auth.Authority
	limiter   ratelimit.Limiter
	loginRule ratelimit.Rule
	clock     clock.Clock
	audit     auditor
	log       *slog.Logger
}

func NewSessionService(accounts *AccountService, authority *auth.Authority, limiter ratelimit.Limiter, loginRule ratelimit.Rule, audit repo.AuditLogs, c clock.Clock, log *slog.Logger) *SessionService {
	if c == nil {
		c = clock.System
	}
	return &SessionService{
		accounts:  accounts,
		authority: authority,
		limiter:   limiter,
		loginRule: loginRule,
		clock:     c,
		audit:     auditor{logs: audit, log: log},
		log:       log,
	}
}

type LoginResult struct {
	Account models.Account `json:"account"`
	Tokens  auth.Pair      `json:"tokens"`
}

// Login authenticates email and password for the client at clientKey.
func (s *SessionService) Login(ctx context.Context, clientKey, email, password string) (LoginResult, error) {
	if _, err := ratelimit.Enforce(ctx, s.limiter, s.loginRule, clientKey, s.clock.Now()); err != nil {
		if apperr.KindOf(err) == apperr.KindRateLimited {
			metrics.RateLimited.WithLabelValues(s.loginRule.Action).Inc()
		}
		return LoginResult{}, err
	}

	a, err := s.accounts.Authenticate(ctx, email, password)
	if err != nil {
		return LoginResult{}, err
	}
	if err := s.limiter.Reset(ctx, s.loginRule.Key(clientKey)); err != nil {
		s.log.Warn("login bucket reset failed", "client", clientKey, "err", err)
	}

	pair, err := s.authority.IssuePair(a.ID)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{Account: a, Tokens: pair}, nil
}

func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (auth.Token, error) {
	return s.authority.Refresh(ctx, refreshToken)
}

// Logout revokes the presented access session and, when given, a refresh
// token of the same account.
func (s *SessionService) Logout(ctx context.Context, access auth.Session, refreshToken string) error {
	if err := s.authority.RevokeSession(ctx, access); err != nil {
		return err
	}
	revoked := []string{access.JTI}

	if refreshToken != "" {
		rs, err := s.authority.Verify(ctx, refreshToken, models.TokenRefresh)
		switch {
		case err == nil && rs.AccountID != access.AccountID:
			return apperr.ErrUnauthorized
		case err == nil:
			if err := s.authority.RevokeSession(ctx, rs); err != nil {
				return err
			}
			revoked = append(revoked, rs.JTI)
		case apperr.KindOf(err) == apperr.KindTokenRevoked, apperr.KindOf(err) == apperr.KindTokenExpired:
			// already unusable
		default:
			return err
		}
	}

	s.audit.record(ctx, "account", access.AccountID, "tokens_revoked", map[string]any{"jti": revoked})
	return nil
}
