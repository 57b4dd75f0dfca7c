package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jamiebrown201/sport-sage-sub001/internal/pkg/browser"
	"github.com/jamiebrown201/sport-sage-sub001/internal/pkg/models"
	"github.com/jamiebrown201/sport-sage-sub001/internal/pkg/scrape"
	"github.com/jamiebrown201/sport-sage-sub001/internal/pkg/storage"
	"github.com/jamiebrown201/sport-sage-sub001/internal/reconcile"
	"github.com/jamiebrown201/sport-sage-sub001/internal/rotation"
)

// PagePool is the slice of the browser pool the jobs use. Pages are scarce:
// one is acquired per source attempt and released on every exit path.
type PagePool interface {
	Acquire(ctx context.Context) (browser.Page, error)
	Release(page browser.Page)
}

// Options configures the shared job runner.
type Options struct {
	Sports          []string
	MaxAttempts     int           // distinct sources tried per sport
	InterSportDelay time.Duration // pause between sports to avoid burst patterns
}

// Runner drives the three sync jobs. Each job iterates the configured
// sports, scrapes with source rotation, feeds results through the
// reconciler and records a ScraperRun. Per-source failures are absorbed;
// only infrastructure failures (store or queue unreachable) abort a run.
type Runner struct {
	manager    *rotation.Manager
	adapters   *scrape.Registry
	pool       PagePool
	reconciler *reconcile.Reconciler
	events     storage.EventStore
	runs       storage.RunStore
	opts       Options
}

func NewRunner(manager *rotation.Manager, adapters *scrape.Registry, pool PagePool,
	reconciler *reconcile.Reconciler, events storage.EventStore, runs storage.RunStore, opts Options) *Runner {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	return &Runner{
		manager:    manager,
		adapters:   adapters,
		pool:       pool,
		reconciler: reconciler,
		events:     events,
		runs:       runs,
		opts:       opts,
	}
}

// SyncFixtures discovers upcoming events and creates canonical records.
func (r *Runner) SyncFixtures(ctx context.Context) error {
	return r.runJob(ctx, models.JobSyncFixtures, r.syncFixturesSport)
}

// SyncOdds refreshes match-winner odds on open events.
func (r *Runner) SyncOdds(ctx context.Context) error {
	return r.runJob(ctx, models.JobSyncOdds, r.syncOddsSport)
}

// SyncLiveScores updates in-play scores and settles finished events.
func (r *Runner) SyncLiveScores(ctx context.Context) error {
	return r.runJob(ctx, models.JobSyncLiveScores, r.syncLiveScoresSport)
}

// sportResult is what one per-sport pass reports back to the run loop.
type sportResult struct {
	sources []string
	failed  bool // every source attempt failed; absorbed, run becomes partial
}

type sportFunc func(ctx context.Context, sport string, run *models.ScraperRun) (sportResult, error)

func (r *Runner) runJob(ctx context.Context, jobType models.JobType, perSport sportFunc) error {
	run := &models.ScraperRun{
		JobType:   jobType,
		Status:    models.RunRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := r.runs.InsertRun(ctx, run); err != nil {
		return fmt.Errorf("start %s run: %w", jobType, err)
	}
	slog.Info("job started", "job", jobType, "run_id", run.ID, "sports", r.opts.Sports)

	var anyFailed bool
	triedSet := make(map[string]bool)
	var tried []string

	fail := func(err error) error {
		run.Status = models.RunFailed
		run.ErrorMessage = err.Error()
		run.Source = strings.Join(tried, ",")
		r.finishRun(ctx, run)
		slog.Error("job aborted", "job", jobType, "run_id", run.ID, "error", err)
		return err
	}

	for i, sport := range r.opts.Sports {
		if i > 0 && r.opts.InterSportDelay > 0 {
			if err := sleepCtx(ctx, r.opts.InterSportDelay); err != nil {
				return fail(err)
			}
		}

		sr, err := perSport(ctx, sport, run)
		for _, s := range sr.sources {
			if !triedSet[s] {
				triedSet[s] = true
				tried = append(tried, s)
			}
		}
		if err != nil {
			return fail(err)
		}
		if sr.failed {
			anyFailed = true
		}
	}

	run.Source = strings.Join(tried, ",")
	if anyFailed {
		run.Status = models.RunPartial
	} else {
		run.Status = models.RunSuccess
	}
	r.finishRun(ctx, run)
	slog.Info("job finished", "job", jobType, "run_id", run.ID, "status", run.Status,
		"processed", run.ItemsProcessed, "created", run.ItemsCreated,
		"updated", run.ItemsUpdated, "failed", run.ItemsFailed)
	return nil
}

// finishRun records the run outcome even when the job context was cancelled.
func (r *Runner) finishRun(ctx context.Context, run *models.ScraperRun) {
	run.CompletedAt = time.Now().UTC()
	if err := r.runs.FinishRun(context.WithoutCancel(ctx), run); err != nil {
		slog.Error("finish run failed", "run_id", run.ID, "error", err)
	}
}

func (r *Runner) syncFixturesSport(ctx context.Context, sport string, run *models.ScraperRun) (sportResult, error) {
	var collected []models.Fixture
	res, err := r.manager.ScrapeWithRotation(ctx, sport, r.opts.MaxAttempts,
		func(ctx context.Context, src models.Source) (int, error) {
			fixtures, err := scrapeOne(ctx, r, src, func(ctx context.Context, a scrape.Adapter, page browser.Page) ([]models.Fixture, error) {
				return a.ScrapeFixtures(ctx, page, sport)
			})
			if err != nil {
				return 0, err
			}
			collected = append(collected, fixtures...)
			return len(fixtures), nil
		})

	out := sportResult{sources: res.SourcesTried}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return out, ctxErr
		}
		slog.Warn("fixtures scrape failed", "sport", sport, "error", err)
		out.failed = true
	}

	for _, f := range collected {
		run.ItemsProcessed++
		_, isNew, err := r.reconciler.ReconcileFixture(ctx, f)
		if err != nil {
			return out, fmt.Errorf("reconcile fixture (%s, %s): %w", f.Source, f.ExternalID, err)
		}
		if isNew {
			run.ItemsCreated++
		} else {
			run.ItemsUpdated++
		}
	}
	return out, nil
}

func (r *Runner) syncOddsSport(ctx context.Context, sport string, run *models.ScraperRun) (sportResult, error) {
	var collected []models.NormalizedOdds
	res, err := r.manager.ScrapeWithRotation(ctx, sport, r.opts.MaxAttempts,
		func(ctx context.Context, src models.Source) (int, error) {
			odds, err := scrapeOne(ctx, r, src, func(ctx context.Context, a scrape.Adapter, page browser.Page) ([]models.NormalizedOdds, error) {
				return a.Scrape(ctx, page, sport)
			})
			if err != nil {
				return 0, err
			}
			filtered := scrape.FilterOdds(src.Name, odds)
			run.ItemsFailed += len(odds) - len(filtered)
			collected = append(collected, filtered...)
			return len(filtered), nil
		})

	out := sportResult{sources: res.SourcesTried}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return out, ctxErr
		}
		slog.Warn("odds scrape failed", "sport", sport, "error", err)
		out.failed = true
	}

	for _, o := range collected {
		run.ItemsProcessed++
		matched, err := r.reconciler.ReconcileOdds(ctx, sport, o)
		if err != nil {
			return out, fmt.Errorf("reconcile odds (%s vs %s): %w", o.HomeTeam, o.AwayTeam, err)
		}
		if matched {
			run.ItemsUpdated++
		}
	}
	return out, nil
}

func (r *Runner) syncLiveScoresSport(ctx context.Context, sport string, run *models.ScraperRun) (sportResult, error) {
	var collected []models.LiveScore
	res, err := r.manager.ScrapeWithRotation(ctx, sport, r.opts.MaxAttempts,
		func(ctx context.Context, src models.Source) (int, error) {
			scores, err := scrapeOne(ctx, r, src, func(ctx context.Context, a scrape.Adapter, page browser.Page) ([]models.LiveScore, error) {
				return a.ScrapeLiveScores(ctx, page, sport)
			})
			if err != nil {
				return 0, err
			}
			for i := range scores {
				if scores[i].Source == "" {
					scores[i].Source = src.Name
				}
			}
			collected = append(collected, scores...)
			return len(scores), nil
		})

	out := sportResult{sources: res.SourcesTried}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return out, ctxErr
		}
		slog.Warn("live scores scrape failed", "sport", sport, "error", err)
		out.failed = true
	}

	for _, s := range collected {
		run.ItemsProcessed++
		event, err := r.events.FindByExternal(ctx, s.Source, s.ExternalID)
		if err != nil {
			return out, fmt.Errorf("find event (%s, %s): %w", s.Source, s.ExternalID, err)
		}
		if event == nil {
			// Live score for an event the fixtures job has not seen yet.
			slog.Debug("live score for unknown event", "source", s.Source, "external_id", s.ExternalID)
			run.ItemsFailed++
			continue
		}
		if err := r.reconciler.ReconcileLiveScore(ctx, event.ID, s); err != nil {
			return out, fmt.Errorf("reconcile live score for %s: %w", event.ID, err)
		}
		run.ItemsUpdated++
	}
	return out, nil
}

// scrapeOne acquires a page, runs one adapter call and releases the page
// regardless of outcome.
func scrapeOne[T any](ctx context.Context, r *Runner, src models.Source,
	call func(ctx context.Context, a scrape.Adapter, page browser.Page) ([]T, error)) ([]T, error) {
	adapter, err := r.adapters.Get(src.Name)
	if err != nil {
		return nil, err
	}
	page, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer r.pool.Release(page)
	return call(ctx, adapter, page)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
