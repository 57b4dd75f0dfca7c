package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jamiebrown201/sport-sage-sub001/internal/pkg/models"
	"github.com/jamiebrown201/sport-sage-sub001/internal/pkg/teamident"
	"github.com/jamiebrown201/sport-sage-sub001/internal/settlement"
)

// oddsMatchWindow bounds how far into the future an open event may start and
// still be matched against a scraped odds row. Odds scrapes carry no
// externalId, so matching is by team-pair similarity only.
const oddsMatchWindow = 48 * time.Hour

// oddsMatchThreshold is the minimum combined team-pair similarity for an
// odds row to attach to an open event.
const oddsMatchThreshold = 0.72

// Store is the slice of the canonical store the reconciler writes through.
type Store interface {
	UpsertEvent(ctx context.Context, ev models.Event) (models.Event, bool, error)
	GetEvent(ctx context.Context, id string) (*models.Event, error)
	ListOpenEvents(ctx context.Context, sport string, horizon time.Time) ([]models.Event, error)
	UpdateEventState(ctx context.Context, ev models.Event) error
	UpdateOutcome(ctx context.Context, o models.Outcome) error
	AppendScoreHistory(ctx context.Context, h models.ScoreHistory) error
}

// Reconciler merges scraped fixtures, odds and live scores into the
// canonical event store and triggers settlement when an event finishes.
type Reconciler struct {
	store      Store
	resolver   *teamident.Resolver
	dispatcher settlement.Dispatcher
	now        func() time.Time
}

func NewReconciler(store Store, resolver *teamident.Resolver, dispatcher settlement.Dispatcher) *Reconciler {
	return &Reconciler{
		store:      store,
		resolver:   resolver,
		dispatcher: dispatcher,
		now:        time.Now,
	}
}

// ReconcileFixture creates the canonical event for a scraped fixture, or
// confirms the existing one. Idempotent per (source, externalId): the second
// sighting returns the stored event with isNew false.
func (r *Reconciler) ReconcileFixture(ctx context.Context, fixture models.Fixture) (models.Event, bool, error) {
	home, err := r.resolver.Resolve(ctx, fixture.HomeTeam)
	if err != nil {
		return models.Event{}, false, fmt.Errorf("resolve home team: %w", err)
	}
	away, err := r.resolver.Resolve(ctx, fixture.AwayTeam)
	if err != nil {
		return models.Event{}, false, fmt.Errorf("resolve away team: %w", err)
	}

	ev := models.Event{
		Sport:       fixture.SportSlug,
		Competition: fixture.Competition,
		HomeTeamID:  home.ID,
		AwayTeamID:  away.ID,
		HomeTeam:    fixture.HomeTeam,
		AwayTeam:    fixture.AwayTeam,
		StartTime:   fixture.StartTime,
		Status:      models.StatusScheduled,
		Source:      fixture.Source,
		ExternalID:  fixture.ExternalID,
		Markets: []models.Market{{
			Type: models.MarketMatchWinner,
			Outcomes: []models.Outcome{
				{Name: "home"},
				{Name: "draw"},
				{Name: "away"},
			},
		}},
	}

	stored, isNew, err := r.store.UpsertEvent(ctx, ev)
	if err != nil {
		return models.Event{}, false, fmt.Errorf("upsert event (%s, %s): %w", fixture.Source, fixture.ExternalID, err)
	}
	if isNew {
		slog.Info("fixture created",
			"sport", fixture.SportSlug, "home", fixture.HomeTeam, "away", fixture.AwayTeam,
			"start", fixture.StartTime, "source", fixture.Source)
	}
	return stored, isNew, nil
}

// ReconcileOdds attaches a scraped odds row to the best-matching open event
// within the match window and updates its match-winner outcomes, keeping the
// previous price for delta tracking. Returns true when a match was found.
// Invalid odds must be filtered before this point; rows that match no event
// are skipped, not an error.
func (r *Reconciler) ReconcileOdds(ctx context.Context, sport string, odds models.NormalizedOdds) (bool, error) {
	if !odds.Valid() {
		return false, fmt.Errorf("invalid odds for %s vs %s from %s", odds.HomeTeam, odds.AwayTeam, odds.Source)
	}

	horizon := r.now().Add(oddsMatchWindow)
	candidates, err := r.store.ListOpenEvents(ctx, sport, horizon)
	if err != nil {
		return false, fmt.Errorf("list open events: %w", err)
	}

	event, score := bestEventMatch(odds, candidates)
	if event == nil {
		slog.Debug("no event match for odds",
			"sport", sport, "home", odds.HomeTeam, "away", odds.AwayTeam, "source", odds.Source)
		return false, nil
	}

	market := matchWinnerMarket(event)
	if market == nil {
		slog.Warn("matched event has no match-winner market", "event_id", event.ID)
		return false, nil
	}

	for i := range market.Outcomes {
		o := &market.Outcomes[i]
		var price float64
		switch o.Name {
		case "home":
			price = odds.HomeWin
		case "draw":
			price = odds.Draw
		case "away":
			price = odds.AwayWin
		default:
			continue
		}
		if price == 0 || price == o.Odds {
			continue
		}
		o.PreviousOdds = o.Odds
		o.Odds = price
		if err := r.store.UpdateOutcome(ctx, *o); err != nil {
			return false, fmt.Errorf("update outcome %s: %w", o.Name, err)
		}
	}

	slog.Debug("odds reconciled",
		"event_id", event.ID, "home", event.HomeTeam, "away", event.AwayTeam,
		"match_score", score, "source", odds.Source)
	return true, nil
}

// ReconcileLiveScore applies a score observation to an event. A finish
// transition writes one score-history entry, marks the match-winner outcomes
// and dispatches exactly one settlement message. A live score that moves
// backwards is accepted but recorded as suspicious; scraped score feeds
// occasionally glitch and the next observation corrects them.
func (r *Reconciler) ReconcileLiveScore(ctx context.Context, eventID string, score models.LiveScore) error {
	event, err := r.store.GetEvent(ctx, eventID)
	if err != nil {
		return fmt.Errorf("load event %s: %w", eventID, err)
	}
	if event == nil {
		return fmt.Errorf("event %s not found", eventID)
	}

	if !event.Status.CanTransitionTo(score.Status) {
		slog.Warn("rejected status transition",
			"event_id", eventID, "from", event.Status, "to", score.Status)
		return nil
	}

	regressed := score.HomeScore < event.HomeScore || score.AwayScore < event.AwayScore
	if regressed && event.Status == models.StatusLive {
		slog.Warn("suspicious score regression",
			"event_id", eventID,
			"from", fmt.Sprintf("%d:%d", event.HomeScore, event.AwayScore),
			"to", fmt.Sprintf("%d:%d", score.HomeScore, score.AwayScore),
			"source", score.Source)
		history := models.ScoreHistory{
			EventID:    eventID,
			HomeScore:  score.HomeScore,
			AwayScore:  score.AwayScore,
			Status:     score.Status,
			Note:       fmt.Sprintf("suspicious regression from %d:%d", event.HomeScore, event.AwayScore),
			RecordedAt: r.now().UTC(),
		}
		if err := r.store.AppendScoreHistory(ctx, history); err != nil {
			return fmt.Errorf("append regression history: %w", err)
		}
	}

	finished := score.Status == models.StatusFinished && event.Status != models.StatusFinished

	event.Status = score.Status
	event.HomeScore = score.HomeScore
	event.AwayScore = score.AwayScore
	event.Period = score.Period
	event.Minute = score.Minute
	if err := r.store.UpdateEventState(ctx, *event); err != nil {
		return fmt.Errorf("update event %s: %w", eventID, err)
	}

	if !finished {
		return nil
	}

	history := models.ScoreHistory{
		EventID:    eventID,
		HomeScore:  score.HomeScore,
		AwayScore:  score.AwayScore,
		Status:     models.StatusFinished,
		Note:       "final",
		RecordedAt: r.now().UTC(),
	}
	if err := r.store.AppendScoreHistory(ctx, history); err != nil {
		return fmt.Errorf("append final score history: %w", err)
	}

	if err := r.markWinners(ctx, event, score.HomeScore, score.AwayScore); err != nil {
		return err
	}

	if err := r.dispatcher.DispatchEventFinished(ctx, eventID, score.HomeScore, score.AwayScore); err != nil {
		return fmt.Errorf("dispatch settlement for %s: %w", eventID, err)
	}
	return nil
}

// markWinners sets the tri-state winner flag on every match-winner outcome.
func (r *Reconciler) markWinners(ctx context.Context, event *models.Event, homeScore, awayScore int) error {
	market := matchWinnerMarket(event)
	if market == nil {
		return nil
	}
	var winner string
	switch {
	case homeScore > awayScore:
		winner = "home"
	case awayScore > homeScore:
		winner = "away"
	default:
		winner = "draw"
	}
	for i := range market.Outcomes {
		o := &market.Outcomes[i]
		if o.IsWinner != models.WinnerUnknown {
			continue
		}
		if o.Name == winner {
			o.IsWinner = models.WinnerYes
		} else {
			o.IsWinner = models.WinnerNo
		}
		if err := r.store.UpdateOutcome(ctx, *o); err != nil {
			return fmt.Errorf("mark winner on outcome %s: %w", o.Name, err)
		}
	}
	return nil
}

// bestEventMatch scores every candidate by combined team-pair similarity and
// returns the best one at or above the threshold. Home and away are matched
// positionally; sources agree on which side is home.
func bestEventMatch(odds models.NormalizedOdds, candidates []models.Event) (*models.Event, float64) {
	var best *models.Event
	bestScore := 0.0
	for i := range candidates {
		ev := &candidates[i]
		home := teamident.Similarity(odds.HomeTeam, ev.HomeTeam)
		away := teamident.Similarity(odds.AwayTeam, ev.AwayTeam)
		score := (home + away) / 2
		if home < oddsMatchThreshold || away < oddsMatchThreshold {
			continue
		}
		if score > bestScore {
			best, bestScore = ev, score
		}
	}
	if best == nil || bestScore < oddsMatchThreshold {
		return nil, 0
	}
	return best, bestScore
}

func matchWinnerMarket(event *models.Event) *models.Market {
	for i := range event.Markets {
		if event.Markets[i].Type == models.MarketMatchWinner {
			return &event.Markets[i]
		}
	}
	return nil
}
