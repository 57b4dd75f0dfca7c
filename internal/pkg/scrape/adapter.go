package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/jamiebrown201/sport-sage-sub001/internal/pkg/browser"
	"github.com/jamiebrown201/sport-sage-sub001/internal/pkg/models"
)

// Adapter is the per-source scraping capability. One implementation exists
// per configured source; the rotation manager depends only on this
// interface. Implementations return the typed errors from errors.go; any
// other error is treated as an ordinary failure.
type Adapter interface {
	// Name returns the source name this adapter serves.
	Name() string

	// Scrape fetches and normalizes match-winner odds for a sport.
	Scrape(ctx context.Context, page browser.Page, sport string) ([]models.NormalizedOdds, error)

	// ScrapeFixtures fetches upcoming fixtures for a sport.
	ScrapeFixtures(ctx context.Context, page browser.Page, sport string) ([]models.Fixture, error)

	// ScrapeLiveScores fetches in-play and just-finished scores for a sport.
	ScrapeLiveScores(ctx context.Context, page browser.Page, sport string) ([]models.LiveScore, error)
}

// Registry holds the adapter for each source name.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register adds an adapter; the last registration for a name wins.
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Name()] = a
}

// Get returns the adapter for a source name.
func (r *Registry) Get(source string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[source]
	if !ok {
		return nil, fmt.Errorf("no scrape adapter registered for source %q", source)
	}
	return a, nil
}

// Names returns the registered source names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FilterOdds drops records that fail sanity checks before they reach
// reconciliation. Odds at or below 1.0 are parse artifacts, not prices.
func FilterOdds(source string, odds []models.NormalizedOdds) []models.NormalizedOdds {
	out := odds[:0]
	dropped := 0
	for _, o := range odds {
		if o.Valid() {
			out = append(out, o)
		} else {
			dropped++
		}
	}
	if dropped > 0 {
		slog.Warn("dropped invalid odds records", "source", source, "dropped", dropped, "kept", len(out))
	}
	return out
}
