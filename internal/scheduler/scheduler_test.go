package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/baharkarakas/prepaid-ledger/internal/clock"
	"github.com/baharkarakas/prepaid-ledger/internal/logger"
	"github.com/baharkarakas/prepaid-ledger/internal/models"
	"github.com/baharkarakas/prepaid-ledger/internal/ratelimit"
	"github.com/baharkarakas/prepaid-ledger/internal/repository/memory"
)

func TestRunAllPurgesAndSweeps(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFake(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	_, repos := memory.NewRepositories(clk)
	limiter := ratelimit.NewMemory(clk)

	now := clk.Now()
	_ = repos.Revocations.Revoke(ctx, models.RevocationRecord{JTI: "old", ExpiresAt: now.Add(time.Minute)})
	_ = repos.Revocations.Revoke(ctx, models.RevocationRecord{JTI: "live", ExpiresAt: now.Add(time.Hour)})
	if _, err := limiter.Check(ctx, "login:1.2.3.4", time.Minute, 5); err != nil {
		t.Fatal(err)
	}

	clk.Advance(2 * time.Minute)
	NewJobs(repos.Revocations, limiter, clk, time.Second, logger.Discard()).RunAll()

	if ok, _ := repos.Revocations.IsRevoked(ctx, "old"); ok {
		t.Fatal("expired revocation not purged")
	}
	if ok, _ := repos.Revocations.IsRevoked(ctx, "live"); !ok {
		t.Fatal("live revocation purged")
	}
	if n := limiter.Len(); n != 0 {
		t.Fatalf("buckets left = %d", n)
	}
}

func TestSweepWithoutSweeper(t *testing.T) {
	_, repos := memory.NewRepositories(clock.System)
	NewJobs(repos.Revocations, nil, nil, time.Second, logger.Discard()).SweepRateLimits()
}

func TestStartRejectsBadSchedule(t *testing.T) {
	_, repos := memory.NewRepositories(clock.System)
	s := New(NewJobs(repos.Revocations, nil, nil, time.Second, logger.Discard()), "every now and then", logger.Discard())
	if err := s.Start(); err == nil {
		t.Fatal("expected schedule error")
	}
}

func TestStartStop(t *testing.T) {
	_, repos := memory.NewRepositories(clock.System)
	s := New(NewJobs(repos.Revocations, nil, nil, time.Second, logger.Discard()), "@every 1h", logger.Discard())
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	select {
	case <-s.Stop().Done():
	case <-time.After(time.Second):
		t.Fatal("stop did not finish")
	}
}
