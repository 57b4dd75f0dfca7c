package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
)

// Ensure PostgresStore implements the full Store surface.
var _ Store = (*PostgresStore)(nil)

// PostgresStore is the production canonical store.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens the connection, pings it, and initializes the schema.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	s := &PostgresStore{db: db}
	if err := s.initSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	slog.Info("postgres store initialized")
	return s, nil
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS teams (
		id VARCHAR(64) PRIMARY KEY,
		name VARCHAR(300) NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS team_aliases (
		team_id VARCHAR(64) NOT NULL REFERENCES teams(id),
		alias VARCHAR(300) NOT NULL,
		PRIMARY KEY (team_id, alias)
	);

	CREATE TABLE IF NOT EXISTS events (
		id VARCHAR(64) PRIMARY KEY,
		sport VARCHAR(100) NOT NULL,
		competition VARCHAR(300) NOT NULL DEFAULT '',
		home_team_id VARCHAR(64) NOT NULL,
		away_team_id VARCHAR(64) NOT NULL,
		home_team VARCHAR(300) NOT NULL,
		away_team VARCHAR(300) NOT NULL,
		start_time TIMESTAMP NOT NULL,
		status VARCHAR(20) NOT NULL,
		home_score INT NOT NULL DEFAULT 0,
		away_score INT NOT NULL DEFAULT 0,
		period VARCHAR(50) NOT NULL DEFAULT '',
		minute INT NOT NULL DEFAULT 0,
		source VARCHAR(100) NOT NULL,
		external_id VARCHAR(200) NOT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
		UNIQUE (source, external_id)
	);

	CREATE INDEX IF NOT EXISTS idx_events_sport_status ON events(sport, status);
	CREATE INDEX IF NOT EXISTS idx_events_start_time ON events(start_time);

	CREATE TABLE IF NOT EXISTS markets (
		id VARCHAR(64) PRIMARY KEY,
		event_id VARCHAR(64) NOT NULL REFERENCES events(id),
		type VARCHAR(100) NOT NULL,
		suspended BOOLEAN NOT NULL DEFAULT FALSE
	);

	CREATE INDEX IF NOT EXISTS idx_markets_event ON markets(event_id);

	CREATE TABLE IF NOT EXISTS outcomes (
		id VARCHAR(64) PRIMARY KEY,
		market_id VARCHAR(64) NOT NULL REFERENCES markets(id),
		name VARCHAR(100) NOT NULL,
		odds DECIMAL(10, 4) NOT NULL DEFAULT 0,
		previous_odds DECIMAL(10, 4) NOT NULL DEFAULT 0,
		is_winner SMALLINT NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_outcomes_market ON outcomes(market_id);

	CREATE TABLE IF NOT EXISTS scraper_runs (
		id SERIAL PRIMARY KEY,
		job_type VARCHAR(50) NOT NULL,
		source VARCHAR(100) NOT NULL DEFAULT '',
		status VARCHAR(20) NOT NULL,
		started_at TIMESTAMP NOT NULL,
		completed_at TIMESTAMP,
		items_processed INT NOT NULL DEFAULT 0,
		items_created INT NOT NULL DEFAULT 0,
		items_updated INT NOT NULL DEFAULT 0,
		items_failed INT NOT NULL DEFAULT 0,
		error_message TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS alerts (
		id SERIAL PRIMARY KEY,
		type VARCHAR(100) NOT NULL,
		severity VARCHAR(20) NOT NULL,
		message TEXT NOT NULL,
		metadata JSONB,
		created_at TIMESTAMP NOT NULL,
		acknowledged_at TIMESTAMP,
		acknowledged_by VARCHAR(100) NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS score_history (
		id SERIAL PRIMARY KEY,
		event_id VARCHAR(64) NOT NULL REFERENCES events(id),
		home_score INT NOT NULL,
		away_score INT NOT NULL,
		status VARCHAR(20) NOT NULL,
		note TEXT NOT NULL DEFAULT '',
		recorded_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_score_history_event ON score_history(event_id);
	`
	_, err := s.db.ExecContext(ctx, query)
	return err
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
