package jobs

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jamiebrown201/sport-sage-sub001/internal/pkg/browser"
	"github.com/jamiebrown201/sport-sage-sub001/internal/pkg/metrics"
	"github.com/jamiebrown201/sport-sage-sub001/internal/pkg/models"
	"github.com/jamiebrown201/sport-sage-sub001/internal/pkg/scrape"
	"github.com/jamiebrown201/sport-sage-sub001/internal/pkg/storage"
	"github.com/jamiebrown201/sport-sage-sub001/internal/pkg/teamident"
	"github.com/jamiebrown201/sport-sage-sub001/internal/reconcile"
	"github.com/jamiebrown201/sport-sage-sub001/internal/rotation"
	"github.com/jamiebrown201/sport-sage-sub001/internal/settlement"
)

type stubPage struct{}

func (stubPage) Navigate(context.Context, string, time.Duration) error    { return nil }
func (stubPage) WaitVisible(context.Context, string, time.Duration) error { return nil }
func (stubPage) Evaluate(context.Context, string, any) error              { return nil }
func (stubPage) Content(context.Context) (string, error)                  { return "", nil }
func (stubPage) Screenshot(context.Context) ([]byte, error)               { return nil, nil }

type stubPool struct {
	mu       sync.Mutex
	acquired int
	released int
}

func (p *stubPool) Acquire(context.Context) (browser.Page, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.acquired++
	return stubPage{}, nil
}

func (p *stubPool) Release(browser.Page) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.released++
}

func (p *stubPool) balanced() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.acquired == p.released
}

type fakeAdapter struct {
	name     string
	fixtures []models.Fixture
	odds     []models.NormalizedOdds
	scores   []models.LiveScore
	err      error
}

func (a *fakeAdapter) Name() string { return a.name }

func (a *fakeAdapter) Scrape(context.Context, browser.Page, string) ([]models.NormalizedOdds, error) {
	return a.odds, a.err
}

func (a *fakeAdapter) ScrapeFixtures(context.Context, browser.Page, string) ([]models.Fixture, error) {
	return a.fixtures, a.err
}

func (a *fakeAdapter) ScrapeLiveScores(context.Context, browser.Page, string) ([]models.LiveScore, error) {
	return a.scores, a.err
}

type fixture struct {
	runner     *Runner
	store      *storage.MemoryStore
	pool       *stubPool
	dispatcher *settlement.MemoryDispatcher
	adapter    *fakeAdapter
}

func newJobFixture(t *testing.T) *fixture {
	t.Helper()
	sources := []models.Source{{
		Name: "alpha", Domain: "alpha.example.com", Priority: 1, Enabled: true,
		SportURLs: map[string][]string{"football": {"https://alpha.example.com/football"}},
	}}
	registry, err := rotation.NewRegistry(sources)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	manager := rotation.NewManager(registry, rotation.NewMemoryStore(), nil, metrics.NewCollector(100), 10)

	store := storage.NewMemoryStore()
	resolver := teamident.NewResolver(store, 0.72)
	dispatcher := settlement.NewMemoryDispatcher()
	reconciler := reconcile.NewReconciler(store, resolver, dispatcher)

	adapter := &fakeAdapter{name: "alpha"}
	adapters := scrape.NewRegistry()
	adapters.Register(adapter)

	pool := &stubPool{}
	runner := NewRunner(manager, adapters, pool, reconciler, store, store, Options{
		Sports:      []string{"football"},
		MaxAttempts: 3,
	})
	return &fixture{runner: runner, store: store, pool: pool, dispatcher: dispatcher, adapter: adapter}
}

func lastRun(t *testing.T, store *storage.MemoryStore) models.ScraperRun {
	t.Helper()
	runs, err := store.RecentRuns(context.Background(), 1)
	if err != nil {
		t.Fatalf("recent runs: %v", err)
	}
	if len(runs) == 0 {
		t.Fatal("no run recorded")
	}
	return runs[0]
}

func TestSyncFixturesCreatesEvents(t *testing.T) {
	f := newJobFixture(t)
	start := time.Now().Add(3 * time.Hour)
	f.adapter.fixtures = []models.Fixture{
		{ExternalID: "m1", SportSlug: "football", HomeTeam: "Arsenal", AwayTeam: "Chelsea", StartTime: start, Source: "alpha"},
		{ExternalID: "m2", SportSlug: "football", HomeTeam: "Liverpool", AwayTeam: "Everton", StartTime: start, Source: "alpha"},
	}

	if err := f.runner.SyncFixtures(context.Background()); err != nil {
		t.Fatalf("sync fixtures: %v", err)
	}

	run := lastRun(t, f.store)
	if run.Status != models.RunSuccess {
		t.Errorf("run status = %s, want success", run.Status)
	}
	if run.JobType != models.JobSyncFixtures {
		t.Errorf("run job type = %s", run.JobType)
	}
	if run.ItemsProcessed != 2 || run.ItemsCreated != 2 {
		t.Errorf("run counters = %+v, want 2 processed, 2 created", run)
	}
	if run.Source != "alpha" {
		t.Errorf("run source = %q, want alpha", run.Source)
	}
	if !f.pool.balanced() {
		t.Error("pages were not released")
	}

	ev, err := f.store.FindByExternal(context.Background(), "alpha", "m1")
	if err != nil || ev == nil {
		t.Fatalf("event m1 not persisted: %v", err)
	}

	// A second run re-sights the same fixtures without duplicating them.
	if err := f.runner.SyncFixtures(context.Background()); err != nil {
		t.Fatalf("second sync: %v", err)
	}
	run = lastRun(t, f.store)
	if run.ItemsCreated != 0 || run.ItemsUpdated != 2 {
		t.Errorf("second run counters = %+v, want 0 created, 2 updated", run)
	}
}

func TestSyncOddsFiltersAndMatches(t *testing.T) {
	f := newJobFixture(t)
	start := time.Now().Add(3 * time.Hour)
	f.adapter.fixtures = []models.Fixture{
		{ExternalID: "m1", SportSlug: "football", HomeTeam: "Arsenal", AwayTeam: "Chelsea", StartTime: start, Source: "alpha"},
	}
	if err := f.runner.SyncFixtures(context.Background()); err != nil {
		t.Fatalf("seed fixtures: %v", err)
	}

	f.adapter.odds = []models.NormalizedOdds{
		{HomeTeam: "Arsenal", AwayTeam: "Chelsea", HomeWin: 2.0, Draw: 3.3, AwayWin: 3.8, Source: "alpha"},
		{HomeTeam: "Arsenal", AwayTeam: "Chelsea", HomeWin: 0.9, AwayWin: 3.8, Source: "alpha"}, // parse artifact
	}
	if err := f.runner.SyncOdds(context.Background()); err != nil {
		t.Fatalf("sync odds: %v", err)
	}

	run := lastRun(t, f.store)
	if run.ItemsProcessed != 1 {
		t.Errorf("invalid odds should be filtered before reconciliation, processed = %d", run.ItemsProcessed)
	}
	if run.ItemsUpdated != 1 {
		t.Errorf("run updated = %d, want 1", run.ItemsUpdated)
	}
	if run.ItemsFailed != 1 {
		t.Errorf("run failed = %d, want 1 for the dropped parse artifact", run.ItemsFailed)
	}

	ev, _ := f.store.FindByExternal(context.Background(), "alpha", "m1")
	for _, o := range ev.Markets[0].Outcomes {
		if o.Name == "home" && o.Odds != 2.0 {
			t.Errorf("home odds = %v, want 2.0", o.Odds)
		}
	}
}

func TestSyncLiveScoresSettlesFinishedEvents(t *testing.T) {
	f := newJobFixture(t)
	start := time.Now().Add(-time.Hour)
	f.adapter.fixtures = []models.Fixture{
		{ExternalID: "m1", SportSlug: "football", HomeTeam: "Arsenal", AwayTeam: "Chelsea", StartTime: start, Source: "alpha"},
	}
	if err := f.runner.SyncFixtures(context.Background()); err != nil {
		t.Fatalf("seed fixtures: %v", err)
	}

	f.adapter.scores = []models.LiveScore{
		{ExternalID: "m1", HomeScore: 2, AwayScore: 1, Status: models.StatusFinished, Source: "alpha"},
		{ExternalID: "unseen", HomeScore: 1, AwayScore: 0, Status: models.StatusLive, Source: "alpha"},
	}
	if err := f.runner.SyncLiveScores(context.Background()); err != nil {
		t.Fatalf("sync live scores: %v", err)
	}

	run := lastRun(t, f.store)
	if run.ItemsProcessed != 2 || run.ItemsUpdated != 1 {
		t.Errorf("run counters = %+v, want 2 processed, 1 updated", run)
	}
	if run.ItemsFailed != 1 {
		t.Errorf("run failed = %d, want 1 for the score without a known event", run.ItemsFailed)
	}

	msgs := f.dispatcher.Messages()
	if len(msgs) != 1 {
		t.Fatalf("got %d settlement messages, want 1", len(msgs))
	}
	if msgs[0].Result.HomeScore != 2 || msgs[0].Result.AwayScore != 1 {
		t.Errorf("settlement result = %+v", msgs[0].Result)
	}
}

func TestRunPartialWhenScrapeFails(t *testing.T) {
	f := newJobFixture(t)
	f.adapter.err = &scrape.NetworkTimeoutError{Source: "alpha", URL: "https://alpha.example.com/football"}

	if err := f.runner.SyncFixtures(context.Background()); err != nil {
		t.Fatalf("per-source failures must be absorbed: %v", err)
	}

	run := lastRun(t, f.store)
	if run.Status != models.RunPartial {
		t.Errorf("run status = %s, want partial", run.Status)
	}
	if !f.pool.balanced() {
		t.Error("pages were not released on the failure path")
	}
}

func TestNoDataIsNotAFailure(t *testing.T) {
	f := newJobFixture(t)
	f.adapter.err = &scrape.NoDataAvailableError{Source: "alpha", Sport: "football"}

	if err := f.runner.SyncFixtures(context.Background()); err != nil {
		t.Fatalf("sync fixtures: %v", err)
	}
	run := lastRun(t, f.store)
	if run.Status != models.RunSuccess {
		t.Errorf("run status = %s, want success for an empty schedule", run.Status)
	}
}

type failingRunStore struct {
	storage.RunStore
}

func (failingRunStore) InsertRun(context.Context, *models.ScraperRun) error {
	return fmt.Errorf("datastore unreachable")
}

func TestRunFailedOnInfrastructureError(t *testing.T) {
	f := newJobFixture(t)
	f.runner.runs = failingRunStore{}

	if err := f.runner.SyncFixtures(context.Background()); err == nil {
		t.Error("infrastructure failure must abort the run")
	}
}

type countingNotifier struct {
	mu    sync.Mutex
	count int
}

func (n *countingNotifier) Notify(context.Context, models.Alert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.count++
	return nil
}

func (n *countingNotifier) total() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.count
}

func TestAlertMonitorSuppressesRepeats(t *testing.T) {
	collector := metrics.NewCollector(100)
	for i := 0; i < 5; i++ {
		collector.RecordRequest("alpha", false, 100, metrics.RequestOpts{Blocked: true})
	}

	store := storage.NewMemoryStore()
	notifier := &countingNotifier{}
	monitor := NewAlertMonitor(collector, store, notifier)

	if raised := monitor.Check(context.Background()); raised != 2 {
		t.Fatalf("first check raised %d alerts, want 2", raised)
	}
	if raised := monitor.Check(context.Background()); raised != 0 {
		t.Errorf("repeat check raised %d alerts, want 0 within suppression window", raised)
	}
	if notifier.total() != 2 {
		t.Errorf("notifier received %d alerts, want 2", notifier.total())
	}

	alerts, err := store.RecentAlerts(context.Background(), 10)
	if err != nil {
		t.Fatalf("recent alerts: %v", err)
	}
	if len(alerts) != 2 {
		t.Errorf("got %d persisted alerts, want 2", len(alerts))
	}

	// Past the suppression window the same condition raises again.
	monitor.now = func() time.Time { return time.Now().Add(repeatSuppression + time.Minute) }
	if raised := monitor.Check(context.Background()); raised != 2 {
		t.Errorf("post-window check raised %d alerts, want 2", raised)
	}
}

func TestSchedulerStopsOnCancel(t *testing.T) {
	f := newJobFixture(t)
	scheduler := NewScheduler(f.runner, nil, Intervals{
		Fixtures:   time.Hour,
		Odds:       time.Hour,
		LiveScores: time.Hour,
	})

	ctx, cancel := context.WithCancel(context.Background())
	scheduler.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		scheduler.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
}
