// Package app wires configuration into stores, limiters and services for
// the binaries.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/baharkarakas/prepaid-ledger/internal/auth"
	"github.com/baharkarakas/prepaid-ledger/internal/clock"
	"github.com/baharkarakas/prepaid-ledger/internal/config"
	"github.com/baharkarakas/prepaid-ledger/internal/db"
	"github.com/baharkarakas/prepaid-ledger/internal/notify"
	"github.com/baharkarakas/prepaid-ledger/internal/ratelimit"
	repo "github.com/baharkarakas/prepaid-ledger/internal/repository"
	"github.com/baharkarakas/prepaid-ledger/internal/repository/memory"
	"github.com/baharkarakas/prepaid-ledger/internal/repository/postgres"
	"github.com/baharkarakas/prepaid-ledger/internal/services"
)

const connectTimeout = 10 * time.Second

// OpenRepositories opens the configured store and runs migrations when
// APP_MIGRATE is set. The returned func releases the store.
func OpenRepositories(ctx context.Context, cfg config.Config, log *slog.Logger) (repo.Repositories, func(), error) {
	if cfg.StorageDriver == "memory" {
		log.Warn("using in-memory store; data is lost on exit")
		_, repos := memory.NewRepositories(clock.System)
		return repos, func() {}, nil
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, connectTimeout)
	if err != nil {
		return repo.Repositories{}, nil, fmt.Errorf("db connect: %w", err)
	}
	if cfg.Migrate {
		if err := db.RunMigrations(ctx, pool, log); err != nil {
			pool.Close()
			return repo.Repositories{}, nil, fmt.Errorf("migrations: %w", err)
		}
	}
	return postgres.NewRepositories(pool), pool.Close, nil
}

// OpenLimiter returns the Redis limiter when REDIS_URL is set and
// reachable, otherwise the in-process one. sweeper is nil for Redis.
func OpenLimiter(ctx context.Context, cfg config.Config, log *slog.Logger) (l ratelimit.Limiter, sweeper *ratelimit.Memory, closeFn func()) {
	if strings.TrimSpace(cfg.RedisURL) != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Warn("redis url parse failed; using in-memory rate limits", "err", err)
		} else {
			client := redis.NewClient(opts)
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			if err := client.Ping(pingCtx).Err(); err != nil {
				log.Warn("redis ping failed; using in-memory rate limits", "err", err)
				_ = client.Close()
			} else {
				log.Info("redis connected")
				return ratelimit.NewRedis(client, cfg.RedisRateLimitPrefix, clock.System), nil, func() { _ = client.Close() }
			}
		}
	}
	m := ratelimit.NewMemory(clock.System)
	return m, m, func() {}
}

// OpenPublisher connects to RabbitMQ when RABBITMQ_URL is set and falls
// back to logging events.
func OpenPublisher(cfg config.Config, log *slog.Logger) notify.Publisher {
	if strings.TrimSpace(cfg.RabbitMQURL) != "" {
		p, err := notify.NewAMQPPublisher(cfg.RabbitMQURL, cfg.NotifyExchange)
		if err == nil {
			log.Info("rabbitmq connected", "exchange", cfg.NotifyExchange)
			return p
		}
		log.Warn("rabbitmq unavailable; logging notifications instead", "err", err)
	}
	return notify.NewLogPublisher(log)
}

// Services is the full service graph of one process.
type Services struct {
	Authority *auth.Authority
	Accounts  *services.AccountService
	Sessions  *services.SessionService
	Pins      *services.PinGuard
	Ledger    *services.LedgerService
	TxnLog    *services.TransactionLog
	Balances  *services.BalanceService
}

func LoginRule(cfg config.Config) ratelimit.Rule {
	return ratelimit.Rule{Action: "login", Max: cfg.LoginRateLimit, Window: cfg.LoginRateWindow()}
}

func PinRule(cfg config.Config) ratelimit.Rule {
	return ratelimit.Rule{Action: "pin", Max: cfg.PinRateLimit, Window: cfg.PinRateWindow()}
}

func APIRule(cfg config.Config) ratelimit.Rule {
	return ratelimit.Rule{Action: "api", Max: cfg.APIRateLimit, Window: cfg.APIRateWindow()}
}

func NewServices(cfg config.Config, repos repo.Repositories, limiter ratelimit.Limiter, n notify.Notifier, log *slog.Logger) Services {
	c := clock.System
	timeout := cfg.StoreTimeout()
	hasher := auth.NewHasher(cfg.BcryptCost)

	authority := auth.NewAuthority(auth.AuthorityConfig{
		AccessSecret:  cfg.JWTAccessSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
		Issuer:        cfg.JWTIssuer,
		AccessTTL:     cfg.AccessTTL(),
		RefreshTTL:    cfg.RefreshTTL(),
	}, repos.Revocations, c)
	accounts := services.NewAccountService(repos.Accounts, repos.Customers, hasher, timeout)
	policy := services.PinPolicy{MaxFailedAttempts: cfg.PinMaxFailedAttempts, LockDuration: cfg.PinLockDuration()}

	return Services{
		Authority: authority,
		Accounts:  accounts,
		Sessions:  services.NewSessionService(accounts, authority, limiter, LoginRule(cfg), repos.AuditLogs, c, log),
		Pins:      services.NewPinGuard(repos.Accounts, repos.AuditLogs, hasher, policy, c, log, timeout),
		Ledger:    services.NewLedgerService(repos.Ledger, repos.Transactions, n, log, timeout),
		TxnLog:    services.NewTransactionLog(repos.Customers, repos.Transactions, timeout),
		Balances:  services.NewBalanceService(repos.Customers, repos.Transactions, timeout),
	}
}
