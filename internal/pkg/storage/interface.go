package storage

import (
	"context"
	"time"

	"github.com/jamiebrown201/sport-sage-sub001/internal/pkg/models"
)

// EventStore is the canonical store surface the reconciliation engine needs.
// Create-vs-update dedup by (source, external_id) must be safe under
// concurrent reconciliation of the same fixture; implementations guard the
// upsert with a unique constraint, not an application lock.
type EventStore interface {
	// UpsertEvent inserts ev unless an event with the same
	// (source, external_id) exists. Returns the stored event and whether a
	// new row was created.
	UpsertEvent(ctx context.Context, ev models.Event) (models.Event, bool, error)

	// FindByExternal returns the event for (source, externalID), or nil.
	FindByExternal(ctx context.Context, source, externalID string) (*models.Event, error)

	// GetEvent loads one event with its markets and outcomes, or nil.
	GetEvent(ctx context.Context, id string) (*models.Event, error)

	// ListOpenEvents returns scheduled and live events for a sport starting
	// before the horizon, with markets and outcomes loaded.
	ListOpenEvents(ctx context.Context, sport string, horizon time.Time) ([]models.Event, error)

	// UpdateEventState persists score/status/period/minute/updated_at.
	UpdateEventState(ctx context.Context, ev models.Event) error

	// UpdateOutcome persists odds, previous odds and the winner mark.
	UpdateOutcome(ctx context.Context, o models.Outcome) error
}

// TeamStore persists canonical team identities and their aliases.
type TeamStore interface {
	ListTeams(ctx context.Context) ([]models.Team, error)
	CreateTeam(ctx context.Context, name string, aliases []string) (models.Team, error)
	AddAlias(ctx context.Context, teamID, alias string) error
}

// RunStore is the append-only ScraperRun audit log.
type RunStore interface {
	// InsertRun persists a starting run and assigns its ID.
	InsertRun(ctx context.Context, run *models.ScraperRun) error
	// FinishRun writes the final status and counters of a run.
	FinishRun(ctx context.Context, run *models.ScraperRun) error
	RecentRuns(ctx context.Context, limit int) ([]models.ScraperRun, error)
}

// AlertStore persists operational alerts, append-only until acknowledged.
type AlertStore interface {
	InsertAlert(ctx context.Context, alert *models.Alert) error
	RecentAlerts(ctx context.Context, limit int) ([]models.Alert, error)
	AcknowledgeAlert(ctx context.Context, id int64, by string) error
}

// ScoreHistoryStore is the append-only score audit trail.
type ScoreHistoryStore interface {
	AppendScoreHistory(ctx context.Context, h models.ScoreHistory) error
	HistoryForEvent(ctx context.Context, eventID string) ([]models.ScoreHistory, error)
}

// Store bundles every persistence surface of the engine.
type Store interface {
	EventStore
	TeamStore
	RunStore
	AlertStore
	ScoreHistoryStore
	Close() error
}
