package models

import (
	"math"
	"time"
)

// NormalizedOdds is one scraped match-winner price set, produced per scrape
// and consumed immediately by reconciliation. Team names are the raw strings
// as scraped; identity resolution happens downstream.
type NormalizedOdds struct {
	HomeTeam       string    `json:"home_team"`
	AwayTeam       string    `json:"away_team"`
	HomeWin        float64   `json:"home_win"`
	Draw           float64   `json:"draw"` // 0 for two-outcome sports
	AwayWin        float64   `json:"away_win"`
	Source         string    `json:"source"`
	BookmakerCount int       `json:"bookmaker_count"`
	ScrapedAt      time.Time `json:"scraped_at"`
}

// Valid reports whether the odds pass basic sanity checks. A decimal price
// at or below 1.0 can never pay out and always indicates a parse artifact.
func (o NormalizedOdds) Valid() bool {
	if o.HomeTeam == "" || o.AwayTeam == "" {
		return false
	}
	if !isFinitePositiveOdd(o.HomeWin) || !isFinitePositiveOdd(o.AwayWin) {
		return false
	}
	if o.Draw != 0 && !isFinitePositiveOdd(o.Draw) {
		return false
	}
	return true
}

func isFinitePositiveOdd(v float64) bool {
	return v > 1.000001 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// Fixture is one scraped upcoming event, keyed by the source's own ID.
type Fixture struct {
	ExternalID  string    `json:"external_id"`
	SportSlug   string    `json:"sport_slug"`
	Competition string    `json:"competition"`
	HomeTeam    string    `json:"home_team"`
	AwayTeam    string    `json:"away_team"`
	StartTime   time.Time `json:"start_time"`
	Source      string    `json:"source"`
}

// LiveScore is one scraped in-play (or just-finished) score observation.
type LiveScore struct {
	ExternalID string      `json:"external_id"`
	HomeTeam   string      `json:"home_team"`
	AwayTeam   string      `json:"away_team"`
	HomeScore  int         `json:"home_score"`
	AwayScore  int         `json:"away_score"`
	Status     EventStatus `json:"status"`
	Period     string      `json:"period"`
	Minute     int         `json:"minute"`
	Source     string      `json:"source"`
}
