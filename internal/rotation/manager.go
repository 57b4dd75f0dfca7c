package rotation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jamiebrown201/sport-sage-sub001/internal/pkg/metrics"
	"github.com/jamiebrown201/sport-sage-sub001/internal/pkg/models"
	"github.com/jamiebrown201/sport-sage-sub001/internal/pkg/ratelimit"
	"github.com/jamiebrown201/sport-sage-sub001/internal/pkg/scrape"
)

const (
	// After this many consecutive failures for one sport, the source is
	// avoided for that sport (independent of the global cooldown).
	sportAvoidThreshold = 3

	// Exponential cooldown exponent cap: cooldown never exceeds base * 16.
	cooldownExpCap = 4

	// Bot blocks escalate backoff harder than ordinary failures.
	botBlockCooldownMultiplier = 2

	// lastError prefix marking a bot block, so cooldown math can see it
	// without keeping a second field per source.
	botBlockedMarker = "bot_blocked: "
)

// Manager picks which source to scrape next for a sport, tracking global
// and per-sport usage state. It depends on the adapter layer only through
// the typed scrape errors.
type Manager struct {
	registry  *Registry
	store     StateStore
	detector  *ratelimit.Detector
	collector *metrics.Collector

	goodEnough int
	now        func() time.Time

	mu       sync.Mutex
	rotation map[string]int // per-sport rotation pointer
}

// NewManager wires the rotation manager. goodEnough is the record count at
// which ScrapeWithRotation stops trying further sources.
func NewManager(registry *Registry, store StateStore, detector *ratelimit.Detector, collector *metrics.Collector, goodEnough int) *Manager {
	if goodEnough <= 0 {
		goodEnough = 10
	}
	return &Manager{
		registry:   registry,
		store:      store,
		detector:   detector,
		collector:  collector,
		goodEnough: goodEnough,
		now:        time.Now,
		rotation:   make(map[string]int),
	}
}

// SelectSource returns the best source for the sport that is neither on
// cooldown nor avoided for this sport. When everything eligible is avoided,
// it falls back to an avoided-but-cooldown-clear source (logged as
// "fallback"). Returns ok=false only when every source is cooling down.
func (m *Manager) SelectSource(ctx context.Context, sport string) (models.Source, bool) {
	candidates := m.registry.SourcesForSport(sport)
	if len(candidates) == 0 {
		return models.Source{}, false
	}

	var eligible, fallback []models.Source
	for _, src := range candidates {
		usage, err := m.store.Usage(ctx, src.Name)
		if err != nil {
			slog.Warn("rotation state read failed", "source", src.Name, "error", err)
			continue
		}
		if m.onCooldown(src, usage) {
			continue
		}
		avoided, err := m.Avoided(ctx, src.Name, sport)
		if err != nil {
			slog.Warn("rotation state read failed", "source", src.Name, "sport", sport, "error", err)
			continue
		}
		if avoided {
			fallback = append(fallback, src)
			continue
		}
		eligible = append(eligible, src)
	}

	if len(eligible) == 0 && len(fallback) > 0 {
		src := m.rotate(sport, fallback)
		slog.Warn("all preferred sources avoided, using fallback", "sport", sport, "source", src.Name)
		return src, true
	}
	if len(eligible) == 0 {
		return models.Source{}, false
	}

	// Priority-sorted, but advanced by a rotation pointer so repeated calls
	// cycle through all eligible sources instead of hammering the top one.
	// Spreading requests lowers per-source density and detection risk.
	return m.rotate(sport, eligible), true
}

func (m *Manager) rotate(sport string, eligible []models.Source) models.Source {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.rotation[sport] % len(eligible)
	m.rotation[sport]++
	return eligible[idx]
}

// RecordSuccess resets global and per-sport consecutive failures and
// timestamps the use.
func (m *Manager) RecordSuccess(ctx context.Context, source, sport string) error {
	usage, err := m.store.Usage(ctx, source)
	if err != nil {
		return fmt.Errorf("read usage for %s: %w", source, err)
	}
	usage.SuccessCount++
	usage.ConsecutiveFailures = 0
	usage.LastError = ""
	usage.LastUsedAt = m.now()
	if err := m.store.SetUsage(ctx, source, usage); err != nil {
		return fmt.Errorf("write usage for %s: %w", source, err)
	}

	stats, err := m.store.SportStats(ctx, source, sport)
	if err != nil {
		return fmt.Errorf("read sport stats for %s/%s: %w", source, sport, err)
	}
	stats.SuccessCount++
	stats.ConsecutiveFailures = 0
	stats.LastSuccessAt = m.now()
	if err := m.store.SetSportStats(ctx, source, sport, stats); err != nil {
		return fmt.Errorf("write sport stats for %s/%s: %w", source, sport, err)
	}
	return nil
}

// RecordFailure increments global and per-sport failure counters. Callers
// must never pass a NoDataAvailableError here; an empty page that loaded
// cleanly is a success.
func (m *Manager) RecordFailure(ctx context.Context, source, sport string, cause error) error {
	usage, err := m.store.Usage(ctx, source)
	if err != nil {
		return fmt.Errorf("read usage for %s: %w", source, err)
	}
	usage.FailureCount++
	usage.ConsecutiveFailures++
	usage.LastUsedAt = m.now()
	if cause != nil {
		if scrape.IsBotBlocked(cause) {
			usage.LastError = botBlockedMarker + cause.Error()
		} else {
			usage.LastError = cause.Error()
		}
	}
	if err := m.store.SetUsage(ctx, source, usage); err != nil {
		return fmt.Errorf("write usage for %s: %w", source, err)
	}

	stats, err := m.store.SportStats(ctx, source, sport)
	if err != nil {
		return fmt.Errorf("read sport stats for %s/%s: %w", source, sport, err)
	}
	stats.FailureCount++
	stats.ConsecutiveFailures++
	stats.LastFailureAt = m.now()
	if err := m.store.SetSportStats(ctx, source, sport, stats); err != nil {
		return fmt.Errorf("write sport stats for %s/%s: %w", source, sport, err)
	}
	return nil
}

// Avoided reports whether the source is avoided for this sport.
func (m *Manager) Avoided(ctx context.Context, source, sport string) (bool, error) {
	stats, err := m.store.SportStats(ctx, source, sport)
	if err != nil {
		return false, err
	}
	return stats.ConsecutiveFailures >= sportAvoidThreshold, nil
}

// onCooldown applies cooldown = base * 2^min(consecutiveFailures, 4), with
// an extra multiplier when the last failure was a bot block.
func (m *Manager) onCooldown(src models.Source, usage models.SourceUsage) bool {
	if usage.LastUsedAt.IsZero() {
		return false
	}
	return m.now().Sub(usage.LastUsedAt) < cooldownFor(src, usage)
}

func cooldownFor(src models.Source, usage models.SourceUsage) time.Duration {
	exp := usage.ConsecutiveFailures
	if exp > cooldownExpCap {
		exp = cooldownExpCap
	}
	cooldown := time.Duration(src.CooldownMinutes) * time.Minute << uint(exp)
	if strings.HasPrefix(usage.LastError, botBlockedMarker) {
		cooldown *= botBlockCooldownMultiplier
	}
	return cooldown
}

// AttemptFunc runs one scrape attempt against a source and returns how many
// records it yielded.
type AttemptFunc func(ctx context.Context, source models.Source) (records int, err error)

// Result summarizes one ScrapeWithRotation call.
type Result struct {
	Attempts     int
	Records      int
	SourcesTried []string
	Succeeded    bool
}

// ScrapeWithRotation tries up to maxAttempts distinct sources in rotation
// order, stopping early once a source yields at least the good-enough
// record count. A source returning zero records without error is recorded
// as a success: "no data available" is not the same signal as being
// blocked.
func (m *Manager) ScrapeWithRotation(ctx context.Context, sport string, maxAttempts int, attempt AttemptFunc) (Result, error) {
	var res Result
	tried := make(map[string]bool)

	for res.Attempts < maxAttempts {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		src, ok := m.SelectSource(ctx, sport)
		if !ok {
			slog.Warn("no source available", "sport", sport, "attempts", res.Attempts)
			break
		}
		if tried[src.Name] {
			// Rotation wrapped around to a source we already tried this
			// cycle; nothing new left to try.
			break
		}
		tried[src.Name] = true
		res.Attempts++
		res.SourcesTried = append(res.SourcesTried, src.Name)

		if m.detector != nil {
			if err := m.detector.WaitForRateLimit(ctx, src.Domain); err != nil {
				return res, err
			}
		}

		start := m.now()
		records, err := attempt(ctx, src)
		elapsed := time.Since(start)

		switch {
		case err == nil, scrape.IsNoData(err):
			if recErr := m.RecordSuccess(ctx, src.Name, sport); recErr != nil {
				slog.Error("record success failed", "source", src.Name, "error", recErr)
			}
			if m.detector != nil {
				m.detector.RecordSuccess(src.Domain)
			}
			if m.collector != nil {
				m.collector.RecordRequest(src.Name, true, elapsed.Milliseconds(), metrics.RequestOpts{})
			}
			res.Records += records
			res.Succeeded = true
			if records == 0 {
				slog.Info("source returned no data", "source", src.Name, "sport", sport)
			}
			if records >= m.goodEnough {
				slog.Debug("good enough record count reached", "sport", sport, "source", src.Name, "records", records)
				return res, nil
			}
		default:
			blocked := scrape.IsBotBlocked(err)
			if recErr := m.RecordFailure(ctx, src.Name, sport, err); recErr != nil {
				slog.Error("record failure failed", "source", src.Name, "error", recErr)
			}
			if m.detector != nil {
				m.detector.RecordFailure(src.Domain)
			}
			if m.collector != nil {
				m.collector.RecordRequest(src.Name, false, elapsed.Milliseconds(), metrics.RequestOpts{Blocked: blocked})
			}
			slog.Warn("scrape attempt failed", "source", src.Name, "sport", sport, "blocked", blocked, "error", err)
		}
	}

	if !res.Succeeded && res.Attempts > 0 {
		return res, fmt.Errorf("all %d source attempts failed for %s", res.Attempts, sport)
	}
	return res, nil
}

// Statuses builds the per-source operational summary for the dashboard.
func (m *Manager) Statuses(ctx context.Context) []models.SourceSummary {
	sources := m.registry.Sources()
	out := make([]models.SourceSummary, 0, len(sources))
	for _, src := range sources {
		usage, err := m.store.Usage(ctx, src.Name)
		if err != nil {
			out = append(out, models.SourceSummary{Name: src.Name, Status: models.SourceStatusUnknown})
			continue
		}
		out = append(out, models.SourceSummary{
			Name:        src.Name,
			Status:      statusFor(src, usage, m.now()),
			SuccessRate: successRate(usage),
			LastRun:     usage.LastUsedAt,
			LastError:   usage.LastError,
		})
	}
	return out
}

func statusFor(src models.Source, usage models.SourceUsage, now time.Time) string {
	total := usage.SuccessCount + usage.FailureCount
	if total == 0 {
		return models.SourceStatusUnknown
	}
	if usage.ConsecutiveFailures >= 5 {
		return models.SourceStatusDown
	}
	if !usage.LastUsedAt.IsZero() && now.Sub(usage.LastUsedAt) < cooldownFor(src, usage) && usage.ConsecutiveFailures > 0 {
		return models.SourceStatusCooldown
	}
	if successRate(usage) < 0.8 {
		return models.SourceStatusDegraded
	}
	return models.SourceStatusHealthy
}

func successRate(usage models.SourceUsage) float64 {
	total := usage.SuccessCount + usage.FailureCount
	if total == 0 {
		return 0
	}
	return float64(usage.SuccessCount) / float64(total)
}
