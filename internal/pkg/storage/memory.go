package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jamiebrown201/sport-sage-sub001/internal/pkg/models"
)

// MemoryStore implements the full Store surface in process memory. Used by
// tests and local development; the upsert semantics match Postgres.
type MemoryStore struct {
	mu       sync.Mutex
	events   map[string]models.Event // by event ID
	byExt    map[string]string       // source|externalID -> event ID
	teams    []models.Team
	runs     []models.ScraperRun
	alerts   []models.Alert
	history  []models.ScoreHistory
	runSeq   int64
	alertSeq int64
	histSeq  int64
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events: make(map[string]models.Event),
		byExt:  make(map[string]string),
	}
}

func extKey(source, externalID string) string { return source + "|" + externalID }

func (m *MemoryStore) UpsertEvent(_ context.Context, ev models.Event) (models.Event, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.byExt[extKey(ev.Source, ev.ExternalID)]; ok {
		return m.events[id], false, nil
	}

	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	ev.UpdatedAt = time.Now().UTC()
	for mi := range ev.Markets {
		mk := &ev.Markets[mi]
		if mk.ID == "" {
			mk.ID = uuid.NewString()
		}
		mk.EventID = ev.ID
		for oi := range mk.Outcomes {
			o := &mk.Outcomes[oi]
			if o.ID == "" {
				o.ID = uuid.NewString()
			}
			o.MarketID = mk.ID
		}
	}
	m.events[ev.ID] = ev
	m.byExt[extKey(ev.Source, ev.ExternalID)] = ev.ID
	return ev, true, nil
}

func (m *MemoryStore) FindByExternal(_ context.Context, source, externalID string) (*models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byExt[extKey(source, externalID)]
	if !ok {
		return nil, nil
	}
	ev := m.events[id]
	return &ev, nil
}

func (m *MemoryStore) GetEvent(_ context.Context, id string) (*models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[id]
	if !ok {
		return nil, nil
	}
	return &ev, nil
}

func (m *MemoryStore) ListOpenEvents(_ context.Context, sport string, horizon time.Time) ([]models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Event
	for _, ev := range m.events {
		if ev.Sport != sport {
			continue
		}
		if ev.Status != models.StatusScheduled && ev.Status != models.StatusLive {
			continue
		}
		if ev.StartTime.After(horizon) {
			continue
		}
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (m *MemoryStore) UpdateEventState(_ context.Context, ev models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.events[ev.ID]
	if !ok {
		return nil
	}
	stored.Status = ev.Status
	stored.HomeScore = ev.HomeScore
	stored.AwayScore = ev.AwayScore
	stored.Period = ev.Period
	stored.Minute = ev.Minute
	stored.UpdatedAt = time.Now().UTC()
	m.events[ev.ID] = stored
	return nil
}

func (m *MemoryStore) UpdateOutcome(_ context.Context, o models.Outcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for evID, ev := range m.events {
		for mi := range ev.Markets {
			for oi := range ev.Markets[mi].Outcomes {
				if ev.Markets[mi].Outcomes[oi].ID == o.ID {
					ev.Markets[mi].Outcomes[oi] = o
					m.events[evID] = ev
					return nil
				}
			}
		}
	}
	return nil
}

func (m *MemoryStore) ListTeams(_ context.Context) ([]models.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Team, len(m.teams))
	copy(out, m.teams)
	return out, nil
}

func (m *MemoryStore) CreateTeam(_ context.Context, name string, aliases []string) (models.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	team := models.Team{ID: uuid.NewString(), Name: name, Aliases: append([]string(nil), aliases...)}
	m.teams = append(m.teams, team)
	return team, nil
}

func (m *MemoryStore) AddAlias(_ context.Context, teamID, alias string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.teams {
		if m.teams[i].ID == teamID && !m.teams[i].HasAlias(alias) {
			m.teams[i].Aliases = append(m.teams[i].Aliases, alias)
			return nil
		}
	}
	return nil
}

func (m *MemoryStore) InsertRun(_ context.Context, run *models.ScraperRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runSeq++
	run.ID = m.runSeq
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	m.runs = append(m.runs, *run)
	return nil
}

func (m *MemoryStore) FinishRun(_ context.Context, run *models.ScraperRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if run.CompletedAt.IsZero() {
		run.CompletedAt = time.Now().UTC()
	}
	for i := range m.runs {
		if m.runs[i].ID == run.ID {
			m.runs[i] = *run
			return nil
		}
	}
	return nil
}

func (m *MemoryStore) RecentRuns(_ context.Context, limit int) ([]models.ScraperRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.ScraperRun, len(m.runs))
	copy(out, m.runs)
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) InsertAlert(_ context.Context, alert *models.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alertSeq++
	alert.ID = m.alertSeq
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now().UTC()
	}
	m.alerts = append(m.alerts, *alert)
	return nil
}

func (m *MemoryStore) RecentAlerts(_ context.Context, limit int) ([]models.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Alert
	for i := len(m.alerts) - 1; i >= 0; i-- {
		if m.alerts[i].AcknowledgedAt.IsZero() {
			out = append(out, m.alerts[i])
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *MemoryStore) AcknowledgeAlert(_ context.Context, id int64, by string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.alerts {
		if m.alerts[i].ID == id && m.alerts[i].AcknowledgedAt.IsZero() {
			m.alerts[i].AcknowledgedAt = time.Now().UTC()
			m.alerts[i].AcknowledgedBy = by
		}
	}
	return nil
}

func (m *MemoryStore) AppendScoreHistory(_ context.Context, h models.ScoreHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.histSeq++
	h.ID = m.histSeq
	if h.RecordedAt.IsZero() {
		h.RecordedAt = time.Now().UTC()
	}
	m.history = append(m.history, h)
	return nil
}

func (m *MemoryStore) HistoryForEvent(_ context.Context, eventID string) ([]models.ScoreHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ScoreHistory
	for _, h := range m.history {
		if h.EventID == eventID {
			out = append(out, h)
		}
	}
	return out, nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error { return nil }
