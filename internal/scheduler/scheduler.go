package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const jobTimeout = 5 * time.Minute

// SubscriptionSweeper expires subscriptions whose canceled period has ended.
type SubscriptionSweeper interface {
	ExpireEnded(ctx context.Context) (int64, error)
}

// StatsRefresher recomputes cached troop sales statistics.
type StatsRefresher interface {
	RefreshAllActive(ctx context.Context) (int, error)
}

// Schedules holds the cron expressions of each job.
type Schedules struct {
	SubscriptionSweep string
	TroopStats        string
}

// Scheduler runs periodic maintenance jobs.
type Scheduler struct {
	cron      *cron.Cron
	subs      SubscriptionSweeper
	troops    StatsRefresher
	schedules Schedules
	logger    *slog.Logger
}

// New creates a scheduler. Jobs are registered by Start.
func New(subs SubscriptionSweeper, troops StatsRefresher, schedules Schedules, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	return &Scheduler{
		cron:      cron.New(cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger))),
		subs:      subs,
		troops:    troops,
		schedules: schedules,
		logger:    logger,
	}
}

// Start registers the jobs and starts the cron scheduler. An invalid
// schedule is returned as an error and nothing is started.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedules.SubscriptionSweep, s.SweepSubscriptions); err != nil {
		return err
	}
	s.logger.Info("scheduled subscription sweep", "schedule", s.schedules.SubscriptionSweep)

	if _, err := s.cron.AddFunc(s.schedules.TroopStats, s.RefreshTroopStats); err != nil {
		return err
	}
	s.logger.Info("scheduled troop stats refresh", "schedule", s.schedules.TroopStats)

	s.cron.Start()
	return nil
}

// Stop stops scheduling and returns a context done when running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// SweepSubscriptions expires subscriptions past their final period.
func (s *Scheduler) SweepSubscriptions() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := s.subs.ExpireEnded(ctx)
	if err != nil {
		s.logger.Error("subscription sweep failed", "error", err)
		return
	}
	if n > 0 {
		s.logger.Info("expired subscriptions", "count", n)
	}
}

// RefreshTroopStats recomputes statistics for every active troop.
func (s *Scheduler) RefreshTroopStats() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := s.troops.RefreshAllActive(ctx)
	if err != nil {
		s.logger.Error("troop stats refresh failed", "error", err, "refreshed", n)
		return
	}
	s.logger.Info("refreshed troop stats", "count", n)
}
