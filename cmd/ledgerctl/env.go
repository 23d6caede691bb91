package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"

	"github.com/baharkarakas/prepaid-ledger/internal/app"
	"github.com/baharkarakas/prepaid-ledger/internal/config"
	"github.com/baharkarakas/prepaid-ledger/internal/logger"
	"github.com/baharkarakas/prepaid-ledger/internal/notify"
	"github.com/baharkarakas/prepaid-ledger/internal/ratelimit"
	repo "github.com/baharkarakas/prepaid-ledger/internal/repository"
)

// env is what every subcommand runs against.
type env struct {
	cfg   config.Config
	log   *slog.Logger
	repos repo.Repositories
	svc   app.Services
	close func()
}

func openEnv(ctx context.Context, migrate bool) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if migrate {
		cfg.Migrate = true
	}
	lg := logger.NewWithWriter(os.Stderr, cfg.Env, cfg.LogLevel)
	slog.SetDefault(lg)

	repos, closeRepos, err := app.OpenRepositories(ctx, cfg, lg)
	if err != nil {
		return nil, err
	}
	// login throttling does not apply to operator commands
	svc := app.NewServices(cfg, repos, ratelimit.NewMemory(nil), notify.Nop{}, lg)
	return &env{cfg: cfg, log: lg, repos: repos, svc: svc, close: closeRepos}, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
