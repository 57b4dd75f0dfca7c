package teamident

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jamiebrown201/sport-sage-sub001/internal/pkg/models"
)

// TeamStore is the slice of the canonical store the resolver needs.
type TeamStore interface {
	ListTeams(ctx context.Context) ([]models.Team, error)
	CreateTeam(ctx context.Context, name string, aliases []string) (models.Team, error)
	AddAlias(ctx context.Context, teamID, alias string) error
}

// Resolver maps free-text participant names to canonical team identities,
// auto-learning aliases. Each source spells the same team differently
// ("Man United" vs "Manchester United FC"); the resolver absorbs that
// without manual mapping tables.
type Resolver struct {
	store     TeamStore
	threshold float64

	mu    sync.Mutex
	cache []models.Team // loaded lazily, appended on create
}

// NewResolver creates a resolver. threshold is the minimum similarity in
// (0,1] for two names to be treated as the same team.
func NewResolver(store TeamStore, threshold float64) *Resolver {
	if threshold <= 0 || threshold > 1 {
		threshold = 0.72
	}
	return &Resolver{store: store, threshold: threshold}
}

// Resolve returns the canonical team for rawName, creating one if no known
// alias is similar enough. The raw name is attached as a new alias of the
// best match when similarity clears the threshold.
func (r *Resolver) Resolve(ctx context.Context, rawName string) (models.Team, error) {
	norm := Normalize(rawName)
	if norm == "" {
		return models.Team{}, fmt.Errorf("team name %q normalizes to empty", rawName)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cache == nil {
		teams, err := r.store.ListTeams(ctx)
		if err != nil {
			return models.Team{}, fmt.Errorf("list teams: %w", err)
		}
		r.cache = teams
	}

	best, bestScore := -1, 0.0
	for i, team := range r.cache {
		for _, alias := range team.Aliases {
			if alias == norm {
				return r.cache[i], nil
			}
			if score := Similarity(alias, norm); score > bestScore {
				best, bestScore = i, score
			}
		}
	}

	if best >= 0 && bestScore >= r.threshold {
		team := r.cache[best]
		if err := r.store.AddAlias(ctx, team.ID, norm); err != nil {
			return models.Team{}, fmt.Errorf("add alias %q to team %s: %w", norm, team.ID, err)
		}
		r.cache[best].Aliases = append(r.cache[best].Aliases, norm)
		slog.Debug("learned team alias", "team", team.Name, "alias", norm, "score", bestScore)
		return r.cache[best], nil
	}

	created, err := r.store.CreateTeam(ctx, rawName, []string{norm})
	if err != nil {
		return models.Team{}, fmt.Errorf("create team %q: %w", rawName, err)
	}
	r.cache = append(r.cache, created)
	slog.Info("created team", "team", created.Name, "alias", norm)
	return created, nil
}
