package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jamiebrown201/sport-sage-sub001/internal/pkg/models"
)

// UpsertEvent inserts ev with its markets unless an event with the same
// (source, external_id) exists. The unique constraint makes this safe when
// two job types reconcile the same fixture concurrently: exactly one insert
// wins, the other reads the winner's row.
func (s *PostgresStore) UpsertEvent(ctx context.Context, ev models.Event) (models.Event, bool, error) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	ev.UpdatedAt = time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Event{}, false, fmt.Errorf("begin upsert event: %w", err)
	}
	defer tx.Rollback()

	var insertedID string
	err = tx.QueryRowContext(ctx, `
	INSERT INTO events (
		id, sport, competition, home_team_id, away_team_id, home_team, away_team,
		start_time, status, home_score, away_score, period, minute, source, external_id, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	ON CONFLICT (source, external_id) DO NOTHING
	RETURNING id
	`,
		ev.ID, ev.Sport, ev.Competition, ev.HomeTeamID, ev.AwayTeamID, ev.HomeTeam, ev.AwayTeam,
		ev.StartTime, ev.Status, ev.HomeScore, ev.AwayScore, ev.Period, ev.Minute, ev.Source, ev.ExternalID, ev.UpdatedAt,
	).Scan(&insertedID)

	if err == sql.ErrNoRows {
		// Lost the race or the event already existed; load the present row.
		if err := tx.Commit(); err != nil {
			return models.Event{}, false, fmt.Errorf("commit noop upsert: %w", err)
		}
		existing, err := s.FindByExternal(ctx, ev.Source, ev.ExternalID)
		if err != nil {
			return models.Event{}, false, err
		}
		if existing == nil {
			return models.Event{}, false, fmt.Errorf("event (%s, %s) vanished during upsert", ev.Source, ev.ExternalID)
		}
		return *existing, false, nil
	}
	if err != nil {
		return models.Event{}, false, fmt.Errorf("insert event: %w", err)
	}

	for mi := range ev.Markets {
		m := &ev.Markets[mi]
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		m.EventID = ev.ID
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO markets (id, event_id, type, suspended) VALUES ($1, $2, $3, $4)`,
			m.ID, m.EventID, m.Type, m.Suspended,
		); err != nil {
			return models.Event{}, false, fmt.Errorf("insert market: %w", err)
		}
		for oi := range m.Outcomes {
			o := &m.Outcomes[oi]
			if o.ID == "" {
				o.ID = uuid.NewString()
			}
			o.MarketID = m.ID
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO outcomes (id, market_id, name, odds, previous_odds, is_winner) VALUES ($1, $2, $3, $4, $5, $6)`,
				o.ID, o.MarketID, o.Name, o.Odds, o.PreviousOdds, o.IsWinner,
			); err != nil {
				return models.Event{}, false, fmt.Errorf("insert outcome: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return models.Event{}, false, fmt.Errorf("commit upsert event: %w", err)
	}
	return ev, true, nil
}

// FindByExternal returns the event for (source, externalID) with markets
// loaded, or nil when absent.
func (s *PostgresStore) FindByExternal(ctx context.Context, source, externalID string) (*models.Event, error) {
	row := s.db.QueryRowContext(ctx, selectEvent+` WHERE source = $1 AND external_id = $2`, source, externalID)
	return s.scanEventWithMarkets(ctx, row)
}

// GetEvent loads one event with markets and outcomes, or nil.
func (s *PostgresStore) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	row := s.db.QueryRowContext(ctx, selectEvent+` WHERE id = $1`, id)
	return s.scanEventWithMarkets(ctx, row)
}

// ListOpenEvents returns scheduled and live events for a sport starting
// before the horizon.
func (s *PostgresStore) ListOpenEvents(ctx context.Context, sport string, horizon time.Time) ([]models.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		selectEvent+` WHERE sport = $1 AND status IN ('scheduled', 'live') AND start_time <= $2 ORDER BY start_time`,
		sport, horizon,
	)
	if err != nil {
		return nil, fmt.Errorf("list open events: %w", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list open events: %w", err)
	}
	for i := range events {
		markets, err := s.loadMarkets(ctx, events[i].ID)
		if err != nil {
			return nil, err
		}
		events[i].Markets = markets
	}
	return events, nil
}

// UpdateEventState persists the live fields of an event.
func (s *PostgresStore) UpdateEventState(ctx context.Context, ev models.Event) error {
	_, err := s.db.ExecContext(ctx, `
	UPDATE events SET status = $2, home_score = $3, away_score = $4, period = $5, minute = $6, updated_at = NOW()
	WHERE id = $1
	`, ev.ID, ev.Status, ev.HomeScore, ev.AwayScore, ev.Period, ev.Minute)
	if err != nil {
		return fmt.Errorf("update event %s: %w", ev.ID, err)
	}
	return nil
}

// UpdateOutcome persists odds movement and the winner mark.
func (s *PostgresStore) UpdateOutcome(ctx context.Context, o models.Outcome) error {
	_, err := s.db.ExecContext(ctx, `
	UPDATE outcomes SET odds = $2, previous_odds = $3, is_winner = $4 WHERE id = $1
	`, o.ID, o.Odds, o.PreviousOdds, o.IsWinner)
	if err != nil {
		return fmt.Errorf("update outcome %s: %w", o.ID, err)
	}
	return nil
}

const selectEvent = `
	SELECT id, sport, competition, home_team_id, away_team_id, home_team, away_team,
	       start_time, status, home_score, away_score, period, minute, source, external_id, updated_at
	FROM events`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(r rowScanner) (models.Event, error) {
	var ev models.Event
	err := r.Scan(
		&ev.ID, &ev.Sport, &ev.Competition, &ev.HomeTeamID, &ev.AwayTeamID, &ev.HomeTeam, &ev.AwayTeam,
		&ev.StartTime, &ev.Status, &ev.HomeScore, &ev.AwayScore, &ev.Period, &ev.Minute, &ev.Source, &ev.ExternalID, &ev.UpdatedAt,
	)
	if err != nil {
		return models.Event{}, fmt.Errorf("scan event: %w", err)
	}
	return ev, nil
}

func (s *PostgresStore) scanEventWithMarkets(ctx context.Context, row *sql.Row) (*models.Event, error) {
	ev, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	markets, err := s.loadMarkets(ctx, ev.ID)
	if err != nil {
		return nil, err
	}
	ev.Markets = markets
	return &ev, nil
}

func (s *PostgresStore) loadMarkets(ctx context.Context, eventID string) ([]models.Market, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, event_id, type, suspended FROM markets WHERE event_id = $1`, eventID)
	if err != nil {
		return nil, fmt.Errorf("load markets for %s: %w", eventID, err)
	}
	defer rows.Close()

	var markets []models.Market
	for rows.Next() {
		var m models.Market
		if err := rows.Scan(&m.ID, &m.EventID, &m.Type, &m.Suspended); err != nil {
			return nil, fmt.Errorf("scan market: %w", err)
		}
		markets = append(markets, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load markets for %s: %w", eventID, err)
	}

	for i := range markets {
		oRows, err := s.db.QueryContext(ctx,
			`SELECT id, market_id, name, odds, previous_odds, is_winner FROM outcomes WHERE market_id = $1`, markets[i].ID)
		if err != nil {
			return nil, fmt.Errorf("load outcomes for %s: %w", markets[i].ID, err)
		}
		for oRows.Next() {
			var o models.Outcome
			if err := oRows.Scan(&o.ID, &o.MarketID, &o.Name, &o.Odds, &o.PreviousOdds, &o.IsWinner); err != nil {
				oRows.Close()
				return nil, fmt.Errorf("scan outcome: %w", err)
			}
			markets[i].Outcomes = append(markets[i].Outcomes, o)
		}
		if err := oRows.Err(); err != nil {
			oRows.Close()
			return nil, fmt.Errorf("load outcomes for %s: %w", markets[i].ID, err)
		}
		oRows.Close()
	}
	return markets, nil
}
