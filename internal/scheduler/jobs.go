package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/baharkarakas/prepaid-ledger/internal/clock"
	repo "github.com/baharkarakas/prepaid-ledger/internal/repository"
)

// Sweeper drops idle buckets. ratelimit.Memory implements it; the Redis
// limiter relies on key expiry instead.
type Sweeper interface {
	Sweep() int
}

// Jobs are the housekeeping tasks run on the cleanup schedule.
type Jobs struct {
	revocations repo.Revocations
	sweeper     Sweeper
	clock       clock.Clock
	timeout     time.Duration
	log         *slog.Logger
}

func NewJobs(revocations repo.Revocations, sweeper Sweeper, c clock.Clock, timeout time.Duration, log *slog.Logger) *Jobs {
	if c == nil {
		c = clock.System
	}
	return &Jobs{revocations: revocations, sweeper: sweeper, clock: c, timeout: timeout, log: log}
}

// PurgeRevocations deletes revocation records whose token has expired by
// itself.
func (j *Jobs) PurgeRevocations() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	n, err := j.revocations.PurgeExpired(ctx, j.clock.Now())
	if err != nil {
		j.log.Error("purge revocations", "error", err)
		return
	}
	if n > 0 {
		j.log.Info("purged revocations", "count", n)
	}
}

func (j *Jobs) SweepRateLimits() {
	if j.sweeper == nil {
		return
	}
	if n := j.sweeper.Sweep(); n > 0 {
		j.log.Debug("swept rate limit buckets", "count", n)
	}
}

// RunAll runs every job once, e.g. from ledgerctl gc.
func (j *Jobs) RunAll() {
	j.PurgeRevocations()
	j.SweepRateLimits()
}
