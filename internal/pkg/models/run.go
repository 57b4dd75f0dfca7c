package models

import (
	"time"
)

// RunStatus is the outcome of one scraper job execution.
type RunStatus string

const (
	RunRunning RunStatus = "running"
	RunSuccess RunStatus = "success"
	RunFailed  RunStatus = "failed"
	RunPartial RunStatus = "partial"
)

// JobType identifies which sync job produced a ScraperRun.
type JobType string

const (
	JobSyncFixtures   JobType = "sync_fixtures"
	JobSyncOdds       JobType = "sync_odds"
	JobSyncLiveScores JobType = "sync_live_scores"
)

// ScraperRun is the append-only audit record of one job execution.
type ScraperRun struct {
	ID             int64     `json:"id"`
	JobType        JobType   `json:"job_type"`
	Source         string    `json:"source"`
	Status         RunStatus `json:"status"`
	StartedAt      time.Time `json:"started_at"`
	CompletedAt    time.Time `json:"completed_at"`
	ItemsProcessed int       `json:"items_processed"`
	ItemsCreated   int       `json:"items_created"`
	ItemsUpdated   int       `json:"items_updated"`
	ItemsFailed    int       `json:"items_failed"`
	ErrorMessage   string    `json:"error_message,omitempty"`
}

// AlertSeverity levels for operational alerts.
type AlertSeverity string

const (
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

// Alert is an operational alert row, append-only until acknowledged.
type Alert struct {
	ID             int64             `json:"id"`
	Type           string            `json:"type"`
	Severity       AlertSeverity     `json:"severity"`
	Message        string            `json:"message"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	AcknowledgedAt time.Time         `json:"acknowledged_at,omitempty"`
	AcknowledgedBy string            `json:"acknowledged_by,omitempty"`
}
