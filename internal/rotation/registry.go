package rotation

import (
	"fmt"
	"sort"

	"github.com/jamiebrown201/sport-sage-sub001/internal/pkg/models"
)

// Registry is the static catalog of configured sources, priority-sorted.
type Registry struct {
	sources []models.Source
	byName  map[string]models.Source
}

// NewRegistry builds a registry from config. Disabled sources are kept out
// entirely; order is by priority (lower first), config order breaking ties.
func NewRegistry(sources []models.Source) (*Registry, error) {
	enabled := make([]models.Source, 0, len(sources))
	byName := make(map[string]models.Source, len(sources))
	for _, s := range sources {
		if s.Name == "" {
			return nil, fmt.Errorf("source with empty name in config")
		}
		if _, dup := byName[s.Name]; dup {
			return nil, fmt.Errorf("duplicate source %q in config", s.Name)
		}
		byName[s.Name] = s
		if s.Enabled {
			enabled = append(enabled, s)
		}
	}
	sort.SliceStable(enabled, func(i, j int) bool {
		return enabled[i].Priority < enabled[j].Priority
	})
	return &Registry{sources: enabled, byName: byName}, nil
}

// Sources returns the enabled sources in priority order.
func (r *Registry) Sources() []models.Source {
	return r.sources
}

// SourcesForSport returns enabled sources that have URLs configured for the
// sport, in priority order.
func (r *Registry) SourcesForSport(sport string) []models.Source {
	out := make([]models.Source, 0, len(r.sources))
	for _, s := range r.sources {
		if len(s.SportURLs[sport]) > 0 {
			out = append(out, s)
		}
	}
	return out
}

// Get returns a configured source by name, whether enabled or not.
func (r *Registry) Get(name string) (models.Source, bool) {
	s, ok := r.byName[name]
	return s, ok
}
