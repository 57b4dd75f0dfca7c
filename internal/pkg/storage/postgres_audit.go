package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jamiebrown201/sport-sage-sub001/internal/pkg/models"
)

// InsertRun persists a starting ScraperRun and assigns its ID.
func (s *PostgresStore) InsertRun(ctx context.Context, run *models.ScraperRun) error {
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	err := s.db.QueryRowContext(ctx, `
	INSERT INTO scraper_runs (job_type, source, status, started_at, items_processed, items_created, items_updated, items_failed, error_message)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	RETURNING id
	`, run.JobType, run.Source, run.Status, run.StartedAt,
		run.ItemsProcessed, run.ItemsCreated, run.ItemsUpdated, run.ItemsFailed, run.ErrorMessage,
	).Scan(&run.ID)
	if err != nil {
		return fmt.Errorf("insert scraper run: %w", err)
	}
	return nil
}

// FinishRun writes the final status and counters of a run.
func (s *PostgresStore) FinishRun(ctx context.Context, run *models.ScraperRun) error {
	if run.CompletedAt.IsZero() {
		run.CompletedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
	UPDATE scraper_runs SET status = $2, completed_at = $3, source = $4,
		items_processed = $5, items_created = $6, items_updated = $7, items_failed = $8, error_message = $9
	WHERE id = $1
	`, run.ID, run.Status, run.CompletedAt, run.Source,
		run.ItemsProcessed, run.ItemsCreated, run.ItemsUpdated, run.ItemsFailed, run.ErrorMessage)
	if err != nil {
		return fmt.Errorf("finish scraper run %d: %w", run.ID, err)
	}
	return nil
}

// RecentRuns returns the latest runs, newest first.
func (s *PostgresStore) RecentRuns(ctx context.Context, limit int) ([]models.ScraperRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
	SELECT id, job_type, source, status, started_at, COALESCE(completed_at, started_at),
	       items_processed, items_created, items_updated, items_failed, error_message
	FROM scraper_runs ORDER BY started_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent runs: %w", err)
	}
	defer rows.Close()

	var runs []models.ScraperRun
	for rows.Next() {
		var r models.ScraperRun
		if err := rows.Scan(&r.ID, &r.JobType, &r.Source, &r.Status, &r.StartedAt, &r.CompletedAt,
			&r.ItemsProcessed, &r.ItemsCreated, &r.ItemsUpdated, &r.ItemsFailed, &r.ErrorMessage); err != nil {
			return nil, fmt.Errorf("scan scraper run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// InsertAlert persists one alert row and assigns its ID.
func (s *PostgresStore) InsertAlert(ctx context.Context, alert *models.Alert) error {
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now().UTC()
	}
	meta, err := json.Marshal(alert.Metadata)
	if err != nil {
		return fmt.Errorf("marshal alert metadata: %w", err)
	}
	err = s.db.QueryRowContext(ctx, `
	INSERT INTO alerts (type, severity, message, metadata, created_at) VALUES ($1, $2, $3, $4, $5)
	RETURNING id
	`, alert.Type, alert.Severity, alert.Message, meta, alert.CreatedAt).Scan(&alert.ID)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

// RecentAlerts returns the latest unacknowledged alerts, newest first.
func (s *PostgresStore) RecentAlerts(ctx context.Context, limit int) ([]models.Alert, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
	SELECT id, type, severity, message, COALESCE(metadata, 'null'::jsonb), created_at, acknowledged_at, acknowledged_by
	FROM alerts WHERE acknowledged_at IS NULL ORDER BY created_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent alerts: %w", err)
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		var a models.Alert
		var meta []byte
		var ackAt sql.NullTime
		if err := rows.Scan(&a.ID, &a.Type, &a.Severity, &a.Message, &meta, &a.CreatedAt, &ackAt, &a.AcknowledgedBy); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		if err := json.Unmarshal(meta, &a.Metadata); err != nil {
			a.Metadata = nil
		}
		if ackAt.Valid {
			a.AcknowledgedAt = ackAt.Time
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// AcknowledgeAlert marks an alert handled.
func (s *PostgresStore) AcknowledgeAlert(ctx context.Context, id int64, by string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE alerts SET acknowledged_at = NOW(), acknowledged_by = $2 WHERE id = $1 AND acknowledged_at IS NULL`,
		id, by)
	if err != nil {
		return fmt.Errorf("acknowledge alert %d: %w", id, err)
	}
	return nil
}

// AppendScoreHistory writes one immutable score audit entry.
func (s *PostgresStore) AppendScoreHistory(ctx context.Context, h models.ScoreHistory) error {
	if h.RecordedAt.IsZero() {
		h.RecordedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO score_history (event_id, home_score, away_score, status, note, recorded_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	`, h.EventID, h.HomeScore, h.AwayScore, h.Status, h.Note, h.RecordedAt)
	if err != nil {
		return fmt.Errorf("append score history for %s: %w", h.EventID, err)
	}
	return nil
}

// HistoryForEvent returns the score trail of one event, oldest first.
func (s *PostgresStore) HistoryForEvent(ctx context.Context, eventID string) ([]models.ScoreHistory, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT id, event_id, home_score, away_score, status, note, recorded_at
	FROM score_history WHERE event_id = $1 ORDER BY recorded_at
	`, eventID)
	if err != nil {
		return nil, fmt.Errorf("history for %s: %w", eventID, err)
	}
	defer rows.Close()

	var history []models.ScoreHistory
	for rows.Next() {
		var h models.ScoreHistory
		if err := rows.Scan(&h.ID, &h.EventID, &h.HomeScore, &h.AwayScore, &h.Status, &h.Note, &h.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan score history: %w", err)
		}
		history = append(history, h)
	}
	return history, rows.Err()
}
