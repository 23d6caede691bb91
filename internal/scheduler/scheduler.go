// Package scheduler runs periodic housekeeping on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

type Scheduler struct {
	cron     *cron.Cron
	jobs     *Jobs
	schedule string
	logger   *slog.Logger
}

func New(jobs *Jobs, schedule string, logger *slog.Logger) *Scheduler {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)))

	return &Scheduler{cron: c, jobs: jobs, schedule: schedule, logger: logger}
}

// Start registers the cleanup jobs and starts the cron loop. An invalid
// schedule is reported before anything runs.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.jobs.PurgeRevocations); err != nil {
		return fmt.Errorf("schedule revocation purge %q: %w", s.schedule, err)
	}
	if _, err := s.cron.AddFunc(s.schedule, s.jobs.SweepRateLimits); err != nil {
		return fmt.Errorf("schedule rate limit sweep %q: %w", s.schedule, err)
	}
	s.logger.Info("scheduled cleanup jobs", "schedule", s.schedule)

	s.cron.Start()
	return nil
}

// Stop stops the scheduler; the returned context is done once running
// jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
