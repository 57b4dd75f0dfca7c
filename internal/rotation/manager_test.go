package rotation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jamiebrown201/sport-sage-sub001/internal/pkg/models"
	"github.com/jamiebrown201/sport-sage-sub001/internal/pkg/scrape"
)

func testSources() []models.Source {
	urls := map[string][]string{
		"football": {"https://example.test/football"},
		"tennis":   {"https://example.test/tennis"},
	}
	return []models.Source{
		{Name: "alpha", Domain: "alpha.test", Priority: 1, CooldownMinutes: 30, Enabled: true, SportURLs: urls},
		{Name: "bravo", Domain: "bravo.test", Priority: 2, CooldownMinutes: 30, Enabled: true, SportURLs: urls},
		{Name: "charlie", Domain: "charlie.test", Priority: 3, CooldownMinutes: 30, Enabled: true, SportURLs: urls},
	}
}

func newTestManager(t *testing.T) (*Manager, *MemoryStore) {
	t.Helper()
	reg, err := NewRegistry(testSources())
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	store := NewMemoryStore()
	return NewManager(reg, store, nil, nil, 10), store
}

func TestCooldownGrowsExponentiallyAndCaps(t *testing.T) {
	src := models.Source{Name: "alpha", CooldownMinutes: 10}
	tests := []struct {
		failures int
		want     time.Duration
	}{
		{0, 10 * time.Minute},
		{1, 20 * time.Minute},
		{2, 40 * time.Minute},
		{3, 80 * time.Minute},
		{4, 160 * time.Minute},
		{5, 160 * time.Minute}, // capped at 16x
		{9, 160 * time.Minute},
	}
	prev := time.Duration(0)
	for _, tt := range tests {
		got := cooldownFor(src, models.SourceUsage{ConsecutiveFailures: tt.failures})
		if got != tt.want {
			t.Errorf("cooldown(%d failures) = %v, want %v", tt.failures, got, tt.want)
		}
		if got < prev {
			t.Errorf("cooldown must be non-decreasing, got %v after %v", got, prev)
		}
		prev = got
	}
}

func TestCooldown_BotBlockEscalates(t *testing.T) {
	src := models.Source{Name: "alpha", CooldownMinutes: 10}
	usage := models.SourceUsage{ConsecutiveFailures: 1, LastError: botBlockedMarker + "captcha"}
	if got, want := cooldownFor(src, usage), 40*time.Minute; got != want {
		t.Errorf("bot-blocked cooldown = %v, want %v (2x ordinary)", got, want)
	}
}

func TestSelectSource_RoundRobinFairness(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	seen := map[string]int{}
	for i := 0; i < 6; i++ {
		src, ok := m.SelectSource(ctx, "football")
		if !ok {
			t.Fatalf("call %d: no source selected", i)
		}
		seen[src.Name]++
	}
	for name, n := range seen {
		if n != 2 {
			t.Errorf("source %s selected %d times in 6 calls over 3 sources, want 2", name, n)
		}
	}
}

func TestSportAvoidance_IndependentPerSport(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	cause := errors.New("timeout")

	for i := 0; i < 3; i++ {
		if err := m.RecordFailure(ctx, "alpha", "football", cause); err != nil {
			t.Fatalf("RecordFailure: %v", err)
		}
	}

	avoided, err := m.Avoided(ctx, "alpha", "football")
	if err != nil || !avoided {
		t.Errorf("alpha should be avoided for football after 3 failures (avoided=%v err=%v)", avoided, err)
	}
	avoided, err = m.Avoided(ctx, "alpha", "tennis")
	if err != nil || avoided {
		t.Errorf("alpha must not be avoided for tennis (avoided=%v err=%v)", avoided, err)
	}

	// Exactly one success resets the avoidance.
	if err := m.RecordSuccess(ctx, "alpha", "football"); err != nil {
		t.Fatalf("RecordSuccess: %v", err)
	}
	avoided, _ = m.Avoided(ctx, "alpha", "football")
	if avoided {
		t.Error("one success must clear sport avoidance")
	}
}

func TestSelectSource_SkipsAvoidedSource(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = m.RecordFailure(ctx, "alpha", "football", errors.New("timeout"))
	}
	// alpha is now both avoided for football and on failure cooldown.

	for i := 0; i < 4; i++ {
		src, ok := m.SelectSource(ctx, "football")
		if !ok {
			t.Fatal("no source selected")
		}
		if src.Name == "alpha" {
			t.Fatal("avoided source selected while alternatives exist")
		}
	}
}

func TestSelectSource_FallsBackToAvoidedWhenNothingElse(t *testing.T) {
	reg, err := NewRegistry(testSources()[:1]) // only alpha
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	store := NewMemoryStore()
	m := NewManager(reg, store, nil, nil, 10)
	ctx := context.Background()

	// Avoid alpha for football without putting it on cooldown.
	stats := models.SportSourceStats{ConsecutiveFailures: 3}
	if err := store.SetSportStats(ctx, "alpha", "football", stats); err != nil {
		t.Fatalf("SetSportStats: %v", err)
	}

	src, ok := m.SelectSource(ctx, "football")
	if !ok {
		t.Fatal("expected fallback to the avoided source")
	}
	if src.Name != "alpha" {
		t.Errorf("fallback selected %s, want alpha", src.Name)
	}
}

func TestSelectSource_NoneWhenAllOnCooldown(t *testing.T) {
	m, store := newTestManager(t)
	ctx := context.Background()

	for _, name := range []string{"alpha", "bravo", "charlie"} {
		usage := models.SourceUsage{LastUsedAt: time.Now(), ConsecutiveFailures: 1}
		if err := store.SetUsage(ctx, name, usage); err != nil {
			t.Fatalf("SetUsage: %v", err)
		}
	}

	if _, ok := m.SelectSource(ctx, "football"); ok {
		t.Error("expected no source while everything is on cooldown")
	}
}

func TestScrapeWithRotation_TriesDistinctSources(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	var tried []string
	res, err := m.ScrapeWithRotation(ctx, "football", 3, func(_ context.Context, src models.Source) (int, error) {
		tried = append(tried, src.Name)
		return 0, &scrape.NetworkTimeoutError{Source: src.Name, URL: "u", Err: errors.New("deadline")}
	})
	if err == nil {
		t.Fatal("expected error when every attempt fails")
	}
	if res.Attempts != 3 {
		t.Errorf("attempts = %d, want 3", res.Attempts)
	}
	seen := map[string]bool{}
	for _, name := range tried {
		if seen[name] {
			t.Errorf("source %s tried twice in one rotation", name)
		}
		seen[name] = true
	}
}

func TestScrapeWithRotation_StopsEarlyOnGoodEnough(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	calls := 0
	res, err := m.ScrapeWithRotation(ctx, "football", 3, func(context.Context, models.Source) (int, error) {
		calls++
		return 25, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("made %d attempts, want 1 (first source returned plenty)", calls)
	}
	if !res.Succeeded || res.Records != 25 {
		t.Errorf("result = %+v", res)
	}
}

func TestScrapeWithRotation_ZeroRecordsIsSuccess(t *testing.T) {
	m, store := newTestManager(t)
	ctx := context.Background()

	res, err := m.ScrapeWithRotation(ctx, "football", 1, func(_ context.Context, src models.Source) (int, error) {
		return 0, &scrape.NoDataAvailableError{Source: src.Name, Sport: "football"}
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Succeeded {
		t.Error("no-data scrape must count as success")
	}

	usage, _ := store.Usage(ctx, res.SourcesTried[0])
	if usage.SuccessCount != 1 || usage.FailureCount != 0 {
		t.Errorf("usage after no-data = %+v, want one success and no failures", usage)
	}
}

func TestScrapeWithRotation_FailoverScenario(t *testing.T) {
	// Source alpha fails 3x for football -> avoided for football only;
	// bravo succeeds next and its football failures reset.
	m, store := newTestManager(t)
	ctx := context.Background()

	_ = store.SetSportStats(ctx, "bravo", "football", models.SportSourceStats{ConsecutiveFailures: 2})

	failures := 0
	for i := 0; i < 3; i++ {
		_, _ = m.ScrapeWithRotation(ctx, "football", 1, func(_ context.Context, src models.Source) (int, error) {
			if src.Name == "alpha" {
				failures++
				return 0, &scrape.BotBlockedError{Source: "alpha", URL: "u", Marker: "captcha"}
			}
			return 12, nil
		})
	}
	if failures == 0 {
		t.Fatal("alpha was never tried")
	}

	avoided, _ := m.Avoided(ctx, "alpha", "football")
	if stats, _ := store.SportStats(ctx, "alpha", "football"); stats.ConsecutiveFailures >= 3 && !avoided {
		t.Error("alpha should be avoided for football")
	}
	avoidedTennis, _ := m.Avoided(ctx, "alpha", "tennis")
	if avoidedTennis {
		t.Error("alpha must not be avoided for tennis")
	}

	stats, _ := store.SportStats(ctx, "bravo", "football")
	if stats.SuccessCount > 0 && stats.ConsecutiveFailures != 0 {
		t.Errorf("bravo consecutive failures = %d, want 0 after success", stats.ConsecutiveFailures)
	}
}

func TestStatuses(t *testing.T) {
	m, store := newTestManager(t)
	ctx := context.Background()

	_ = store.SetUsage(ctx, "alpha", models.SourceUsage{SuccessCount: 9, FailureCount: 1})
	_ = store.SetUsage(ctx, "bravo", models.SourceUsage{SuccessCount: 1, FailureCount: 9})
	_ = store.SetUsage(ctx, "charlie", models.SourceUsage{SuccessCount: 1, FailureCount: 9, ConsecutiveFailures: 6})

	byName := map[string]models.SourceSummary{}
	for _, s := range m.Statuses(ctx) {
		byName[s.Name] = s
	}
	if byName["alpha"].Status != models.SourceStatusHealthy {
		t.Errorf("alpha status = %s, want healthy", byName["alpha"].Status)
	}
	if byName["bravo"].Status != models.SourceStatusDegraded {
		t.Errorf("bravo status = %s, want degraded", byName["bravo"].Status)
	}
	if byName["charlie"].Status != models.SourceStatusDown {
		t.Errorf("charlie status = %s, want down", byName["charlie"].Status)
	}
}
