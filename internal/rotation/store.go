package rotation

import (
	"context"
	"sync"

	"github.com/jamiebrown201/sport-sage-sub001/internal/pkg/models"
)

// StateStore holds the mutable rotation state: global per-source usage and
// per-(source, sport) stats. Injectable so tests get a fresh store per case
// and multi-worker deployments can externalize the state to Redis.
type StateStore interface {
	Usage(ctx context.Context, source string) (models.SourceUsage, error)
	SetUsage(ctx context.Context, source string, u models.SourceUsage) error
	SportStats(ctx context.Context, source, sport string) (models.SportSourceStats, error)
	SetSportStats(ctx context.Context, source, sport string, s models.SportSourceStats) error
}

// MemoryStore is the single-process StateStore: plain maps behind a mutex.
type MemoryStore struct {
	mu    sync.Mutex
	usage map[string]models.SourceUsage
	sport map[string]models.SportSourceStats
}

var _ StateStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		usage: make(map[string]models.SourceUsage),
		sport: make(map[string]models.SportSourceStats),
	}
}

func (m *MemoryStore) Usage(_ context.Context, source string) (models.SourceUsage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.usage[source], nil
}

func (m *MemoryStore) SetUsage(_ context.Context, source string, u models.SourceUsage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.usage[source] = u
	return nil
}

func (m *MemoryStore) SportStats(_ context.Context, source, sport string) (models.SportSourceStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sport[source+"|"+sport], nil
}

func (m *MemoryStore) SetSportStats(_ context.Context, source, sport string, s models.SportSourceStats) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sport[source+"|"+sport] = s
	return nil
}
