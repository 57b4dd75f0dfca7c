package models

import (
	"time"
)

// EventStatus is the lifecycle state of a canonical event.
type EventStatus string

const (
	StatusScheduled EventStatus = "scheduled"
	StatusLive      EventStatus = "live"
	StatusFinished  EventStatus = "finished"
	StatusCancelled EventStatus = "cancelled"
	StatusPostponed EventStatus = "postponed"
)

// Terminal reports whether no further status transitions are allowed from s.
// finished is not terminal: a live score correction may flip finished back to live.
func (s EventStatus) Terminal() bool {
	return s == StatusCancelled || s == StatusPostponed
}

// CanTransitionTo validates the one-directional status state machine:
// scheduled -> live -> finished, scheduled -> cancelled/postponed,
// plus live <-> finished in both directions.
func (s EventStatus) CanTransitionTo(next EventStatus) bool {
	if s == next {
		return true
	}
	if s.Terminal() {
		return false
	}
	switch s {
	case StatusScheduled:
		return next == StatusLive || next == StatusFinished || next == StatusCancelled || next == StatusPostponed
	case StatusLive:
		return next == StatusFinished
	case StatusFinished:
		return next == StatusLive
	default:
		return false
	}
}

// Team is a canonical team identity. Aliases grow monotonically as sources
// spell the same team differently; teams are never deleted.
type Team struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Aliases []string `json:"aliases"`
}

// HasAlias reports whether the normalized alias is already known.
func (t *Team) HasAlias(alias string) bool {
	for _, a := range t.Aliases {
		if a == alias {
			return true
		}
	}
	return false
}

// Event is the canonical record for one sporting event. Created on first
// sighting of a fixture and updated by every subsequent odds/score sync.
type Event struct {
	ID          string      `json:"id"`
	Sport       string      `json:"sport"`
	Competition string      `json:"competition"`
	HomeTeamID  string      `json:"home_team_id"`
	AwayTeamID  string      `json:"away_team_id"`
	HomeTeam    string      `json:"home_team"` // display names, denormalized for matching
	AwayTeam    string      `json:"away_team"`
	StartTime   time.Time   `json:"start_time"`
	Status      EventStatus `json:"status"`
	HomeScore   int         `json:"home_score"`
	AwayScore   int         `json:"away_score"`
	Period      string      `json:"period"`
	Minute      int         `json:"minute"`
	Source      string      `json:"source"`      // source that first sighted the event
	ExternalID  string      `json:"external_id"` // unique per source
	Markets     []Market    `json:"markets,omitempty"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Market groups the outcomes of one bet type on an event.
type Market struct {
	ID        string    `json:"id"`
	EventID   string    `json:"event_id"`
	Type      string    `json:"type"` // e.g. "match_winner"
	Suspended bool      `json:"suspended"`
	Outcomes  []Outcome `json:"outcomes"`
}

const MarketMatchWinner = "match_winner"

// Winner tri-state for an outcome. Set exactly once, at settlement time.
type Winner int

const (
	WinnerUnknown Winner = iota
	WinnerYes
	WinnerNo
)

// Outcome is one priced selection within a market.
type Outcome struct {
	ID           string  `json:"id"`
	MarketID     string  `json:"market_id"`
	Name         string  `json:"name"` // "home", "draw", "away"
	Odds         float64 `json:"odds"`
	PreviousOdds float64 `json:"previous_odds"`
	IsWinner     Winner  `json:"is_winner"`
}

// ScoreHistory is one immutable audit entry written when an event's score
// or status changes in a way worth keeping (finish, suspicious regression).
type ScoreHistory struct {
	ID         int64       `json:"id"`
	EventID    string      `json:"event_id"`
	HomeScore  int         `json:"home_score"`
	AwayScore  int         `json:"away_score"`
	Status     EventStatus `json:"status"`
	Note       string      `json:"note,omitempty"`
	RecordedAt time.Time   `json:"recorded_at"`
}
