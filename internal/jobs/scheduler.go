package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Intervals sets how often each job type fires.
type Intervals struct {
	Fixtures   time.Duration
	Odds       time.Duration
	LiveScores time.Duration
	AlertCheck time.Duration
}

// Scheduler runs each job type on its own timer. Jobs of different types may
// overlap; the rotation state, metrics log and browser pool are all safe for
// that. A failed run is logged and the next tick tries again.
type Scheduler struct {
	runner    *Runner
	monitor   *AlertMonitor
	intervals Intervals
	wg        sync.WaitGroup
}

func NewScheduler(runner *Runner, monitor *AlertMonitor, intervals Intervals) *Scheduler {
	if intervals.AlertCheck <= 0 {
		intervals.AlertCheck = time.Minute
	}
	return &Scheduler{runner: runner, monitor: monitor, intervals: intervals}
}

// Start launches the job loops. Each job runs once immediately, then on its
// interval, until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.loop(ctx, "sync_fixtures", s.intervals.Fixtures, s.runner.SyncFixtures)
	s.loop(ctx, "sync_odds", s.intervals.Odds, s.runner.SyncOdds)
	s.loop(ctx, "sync_live_scores", s.intervals.LiveScores, s.runner.SyncLiveScores)

	if s.monitor != nil {
		s.loop(ctx, "alert_check", s.intervals.AlertCheck, func(ctx context.Context) error {
			s.monitor.Check(ctx)
			return nil
		})
	}
}

// Wait blocks until all job loops have exited.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, name string, every time.Duration, job func(context.Context) error) {
	if every <= 0 {
		slog.Warn("job disabled, no interval configured", "job", name)
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		if err := job(ctx); err != nil && ctx.Err() == nil {
			slog.Error("job run failed", "job", name, "error", err)
		}

		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				slog.Info("job loop stopped", "job", name)
				return
			case <-ticker.C:
				if err := job(ctx); err != nil && ctx.Err() == nil {
					slog.Error("job run failed", "job", name, "error", err)
				}
			}
		}
	}()
}
