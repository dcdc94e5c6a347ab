// Package maintenance runs periodic housekeeping: expired session sweeps and
// a drift check between the dataset configuration and the transfer routines.
package maintenance

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"cm-admin/internal/metrics"
)

// Default schedules, standard five-field cron syntax.
const (
	DefaultSweepSchedule = "*/5 * * * *"
	DefaultDriftSchedule = "@hourly"
)

// SessionSweeper drops expired sessions and reports how many remain.
type SessionSweeper interface {
	SweepExpired() int
}

// DriftChecker reports inconsistencies between the stored dataset
// configuration and the registered routines.
type DriftChecker interface {
	Problems(ctx context.Context) (fatal, warnings []string, err error)
}

// Scheduler runs maintenance jobs on cron schedules.
type Scheduler struct {
	cron     *cron.Cron
	sessions SessionSweeper
	drift    DriftChecker
	timeout  time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	entries map[string]cron.EntryID // job name → cron entry
}

// NewScheduler creates a Scheduler. Either job dependency may be nil, in
// which case that job is not scheduled.
func NewScheduler(sessions SessionSweeper, drift DriftChecker, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		sessions: sessions,
		drift:    drift,
		timeout:  time.Minute,
		logger:   logger.With("component", "maintenance"),
		entries:  make(map[string]cron.EntryID),
	}
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start(sweepSchedule, driftSchedule string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sessions != nil {
		if err := s.add("session-sweep", sweepSchedule, s.SweepSessions); err != nil {
			return err
		}
	}
	if s.drift != nil {
		if err := s.add("config-drift", driftSchedule, func() { s.CheckDrift(context.Background()) }); err != nil {
			return err
		}
	}
	s.cron.Start()
	s.logger.Info("maintenance scheduler started", "jobs", len(s.entries))
	return nil
}

// Stop stops the cron loop and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("maintenance scheduler stopped")
}

// Run starts the scheduler and blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context, sweepSchedule, driftSchedule string) error {
	if err := s.Start(sweepSchedule, driftSchedule); err != nil {
		return err
	}
	<-ctx.Done()
	s.Stop()
	return nil
}

func (s *Scheduler) add(name, schedule string, job func()) error {
	id, err := s.cron.AddFunc(schedule, job)
	if err != nil {
		s.logger.Error("invalid cron schedule", "job", name, "schedule", schedule, "error", err)
		return err
	}
	s.entries[name] = id
	s.logger.Info("scheduled job", "job", name, "schedule", schedule)
	return nil
}

// SweepSessions drops expired sessions and updates the active session gauge.
func (s *Scheduler) SweepSessions() {
	n := s.sessions.SweepExpired()
	metrics.ActiveSessions.Set(float64(n))
	s.logger.Debug("sessions swept", "active", n)
}

// CheckDrift re-runs the routine consistency check and records the number
// of problems found. Fatal drift is logged at error level; the server keeps
// running and the affected uploads fail with a ConfigurationError.
func (s *Scheduler) CheckDrift(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	fatal, warnings, err := s.drift.Problems(ctx)
	if err != nil {
		s.logger.Warn("config drift check failed", "error", err)
		return
	}
	metrics.ConfigDriftProblems.Set(float64(len(fatal) + len(warnings)))
	for _, p := range fatal {
		s.logger.Error("config drift", "problem", p)
	}
	for _, p := range warnings {
		s.logger.Warn("config drift", "problem", p)
	}
}
