package models

import (
	"time"
)

// Source is the immutable configuration of one external odds/fixtures origin.
type Source struct {
	Name            string              `yaml:"name" json:"name"`
	Domain          string              `yaml:"domain" json:"domain"`
	Priority        int                 `yaml:"priority" json:"priority"` // lower = preferred
	CooldownMinutes int                 `yaml:"cooldown_minutes" json:"cooldown_minutes"`
	Enabled         bool                `yaml:"enabled" json:"enabled"`
	SportURLs       map[string][]string `yaml:"sport_urls" json:"sport_urls"` // sport slug -> scrape URLs
}

// SourceUsage is the global mutable usage state of one source.
// Mutated by every scrape attempt regardless of sport.
type SourceUsage struct {
	LastUsedAt          time.Time `json:"last_used_at"`
	SuccessCount        int       `json:"success_count"`
	FailureCount        int       `json:"failure_count"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastError           string    `json:"last_error"`
}

// SportSourceStats tracks per-(source, sport) outcomes independently from
// the global usage so a source can be avoided for one sport only.
type SportSourceStats struct {
	SuccessCount        int       `json:"success_count"`
	FailureCount        int       `json:"failure_count"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastSuccessAt       time.Time `json:"last_success_at"`
	LastFailureAt       time.Time `json:"last_failure_at"`
}

// SourceStatus values for the /sources health summary.
const (
	SourceStatusHealthy  = "healthy"
	SourceStatusDegraded = "degraded"
	SourceStatusDown     = "down"
	SourceStatusCooldown = "cooldown"
	SourceStatusUnknown  = "unknown"
)

// SourceSummary is the per-source operational summary exposed to the dashboard.
type SourceSummary struct {
	Name        string    `json:"name"`
	Status      string    `json:"status"`
	SuccessRate float64   `json:"success_rate"`
	LastRun     time.Time `json:"last_run"`
	LastError   string    `json:"last_error,omitempty"`
}
