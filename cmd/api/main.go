package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/baharkarakas/prepaid-ledger/internal/api"
	"github.com/baharkarakas/prepaid-ledger/internal/app"
	"github.com/baharkarakas/prepaid-ledger/internal/clock"
	"github.com/baharkarakas/prepaid-ledger/internal/config"
	"github.com/baharkarakas/prepaid-ledger/internal/logger"
	"github.com/baharkarakas/prepaid-ledger/internal/metrics"
	"github.com/baharkarakas/prepaid-ledger/internal/notify"
	"github.com/baharkarakas/prepaid-ledger/internal/scheduler"
	"github.com/baharkarakas/prepaid-ledger/internal/worker"
)

func main() {
	// .env is for local development; real deployments set the environment.
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	lg := logger.New(cfg.Env, cfg.LogLevel)
	slog.SetDefault(lg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repos, closeRepos, err := app.OpenRepositories(ctx, cfg, lg)
	if err != nil {
		lg.Error("storage", "err", err)
		os.Exit(1)
	}
	defer closeRepos()

	limiter, sweeper, closeLimiter := app.OpenLimiter(ctx, cfg, lg)
	defer closeLimiter()

	pub := app.OpenPublisher(cfg, lg)
	defer pub.Close()

	wp := worker.NewPool(cfg.WorkerCount, 256, lg)
	defer wp.Stop()
	dispatcher := notify.NewDispatcher(wp, pub, lg, 5*time.Second)

	svc := app.NewServices(cfg, repos, limiter, dispatcher, lg)

	var sw scheduler.Sweeper
	if sweeper != nil {
		sw = sweeper
	}
	sched := scheduler.New(scheduler.NewJobs(repos.Revocations, sw, clock.System, cfg.StoreTimeout(), lg), cfg.CleanupSchedule, lg)
	if err := sched.Start(); err != nil {
		lg.Error("scheduler", "err", err)
		os.Exit(1)
	}

	proxies, err := cfg.ProxyPrefixes()
	if err != nil {
		lg.Error("config", "err", err)
		os.Exit(1)
	}

	metrics.Init()
	r := api.NewRouter(api.RouterDeps{
		Log:            lg,
		Clock:          clock.System,
		AllowedOrigins: cfg.AllowedOrigins(),
		TrustedProxies: proxies,
		Authority:      svc.Authority,
		Limiter:        limiter,
		Rules:          api.RateRules{Pin: app.PinRule(cfg), API: app.APIRule(cfg)},
		Sessions:       svc.Sessions,
		Accounts:       svc.Accounts,
		Pins:           svc.Pins,
		Ledger:         svc.Ledger,
		TxnLog:         svc.TxnLog,
		Balances:       svc.Balances,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		lg.Info("server starting", "port", cfg.HTTPPort, "env", cfg.Env, "storage", cfg.StorageDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Error("server", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	lg.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	<-sched.Stop().Done()
}
