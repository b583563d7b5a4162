package aggregation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	v1 "github.com/aevon-lab/telemetry-rollup/internal/api/v1"
	"github.com/aevon-lab/telemetry-rollup/internal/core/partition"
)

// Runner runs one family for one day.
type Runner interface {
	Run(ctx context.Context, family v1.Family, day time.Time) (RunSummary, error)
}

// Purger deletes expired aggregates on stores without native TTL.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Scheduler runs yesterday's rollup of every family on a cron schedule.
type Scheduler struct {
	runner     Runner
	schedule   string
	families   []v1.Family
	purger     Purger
	runOnStart bool
	now        func() time.Time
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithPurger purges expired aggregates after each scheduled run.
func WithPurger(p Purger) SchedulerOption {
	return func(s *Scheduler) { s.purger = p }
}

// WithRunOnStart also runs yesterday once when the scheduler starts,
// catching up a day missed while the process was down.
func WithRunOnStart() SchedulerOption {
	return func(s *Scheduler) { s.runOnStart = true }
}

// NewScheduler creates a scheduler for families on a five-field cron spec evaluated in UTC.
func NewScheduler(runner Runner, schedule string, families []v1.Family, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		runner:   runner,
		schedule: schedule,
		families: families,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start schedules the daily rollup and blocks until ctx is cancelled.
// On shutdown it waits for an in-flight run to finish.
func (s *Scheduler) Start(ctx context.Context) error {
	c := cron.New(cron.WithLocation(time.UTC))
	if _, err := c.AddFunc(s.schedule, func() { s.tick(ctx) }); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", s.schedule, err)
	}

	slog.Info("[Scheduler] Starting daily rollup scheduler",
		"schedule", s.schedule,
		"families", s.families,
	)

	if s.runOnStart {
		s.tick(ctx)
	}

	c.Start()
	<-ctx.Done()

	slog.Info("[Scheduler] Stopping (context cancelled), waiting for running jobs")
	stopped := c.Stop()
	select {
	case <-stopped.Done():
		slog.Info("[Scheduler] Stopped")
	case <-time.After(30 * time.Second):
		slog.Warn("[Scheduler] Timed out waiting for running jobs")
	}
	return nil
}

func (s *Scheduler) tick(ctx context.Context) {
	day := partition.Yesterday(s.now())
	if err := s.RunDay(ctx, day); err != nil {
		slog.Error("[Scheduler] Daily rollup failed",
			"date", day.Format(partition.DateLayout),
			"error", err,
		)
	}

	if s.purger == nil {
		return
	}
	n, err := s.purger.PurgeExpired(ctx)
	if err != nil {
		slog.Error("[Scheduler] Purge of expired aggregates failed", "error", err)
		return
	}
	slog.Info("[Scheduler] Purged expired aggregates", "count", n)
}

// RunDay runs every family for day in order. A failed family does not stop
// the others; all failures are returned joined.
func (s *Scheduler) RunDay(ctx context.Context, day time.Time) error {
	var errs []error
	for _, f := range s.families {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		if _, err := s.runner.Run(ctx, f, day); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", f, err))
		}
	}
	return errors.Join(errs...)
}
