package adapters

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jamiebrown201/sport-sage-sub001/internal/pkg/scrape"
)

const oddsAPIBody = `[
	{
		"id": "evt1",
		"sport_key": "soccer",
		"home_team": "Arsenal",
		"away_team": "Chelsea",
		"commence_time": "2026-09-01T19:00:00Z",
		"bookmakers": [
			{"key": "bk1", "markets": [{"key": "h2h", "outcomes": [
				{"name": "Arsenal", "price": 2.05},
				{"name": "Draw", "price": 3.40},
				{"name": "Chelsea", "price": 3.10}
			]}]},
			{"key": "bk2", "markets": [{"key": "h2h", "outcomes": [
				{"name": "Arsenal", "price": 2.10},
				{"name": "Draw", "price": 3.30},
				{"name": "Chelsea", "price": 3.25}
			]}]}
		]
	}
]`

func TestOddsAPIScrapeTakesBestPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v4/sports/soccer/odds" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("apiKey") != "key123" {
			t.Error("missing api key")
		}
		w.Write([]byte(oddsAPIBody))
	}))
	defer srv.Close()

	adapter := NewOddsAPI("oddsapi", srv.URL, "key123", 5*time.Second)
	odds, err := adapter.Scrape(context.Background(), nil, "football")
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	if len(odds) != 1 {
		t.Fatalf("got %d odds rows, want 1", len(odds))
	}
	o := odds[0]
	if o.HomeWin != 2.10 || o.Draw != 3.40 || o.AwayWin != 3.25 {
		t.Errorf("best prices = %v/%v/%v, want 2.10/3.40/3.25", o.HomeWin, o.Draw, o.AwayWin)
	}
	if o.BookmakerCount != 2 {
		t.Errorf("bookmaker count = %d, want 2", o.BookmakerCount)
	}
}

func TestOddsAPIRateLimitIsBotBlock(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	adapter := NewOddsAPI("oddsapi", srv.URL, "key123", 5*time.Second)
	_, err := adapter.Scrape(context.Background(), nil, "football")
	if !scrape.IsBotBlocked(err) {
		t.Errorf("429 should map to BotBlockedError, got %v", err)
	}
}

func TestOddsAPIEmptyIsNoData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	adapter := NewOddsAPI("oddsapi", srv.URL, "key123", 5*time.Second)
	_, err := adapter.Scrape(context.Background(), nil, "football")
	if !scrape.IsNoData(err) {
		t.Errorf("empty response should be NoDataAvailableError, got %v", err)
	}
}

func TestOddsAPIFixtures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v4/sports/soccer/events" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`[{"id":"evt1","home_team":"Arsenal","away_team":"Chelsea","commence_time":"2026-09-01T19:00:00Z"}]`))
	}))
	defer srv.Close()

	adapter := NewOddsAPI("oddsapi", srv.URL, "key123", 5*time.Second)
	fixtures, err := adapter.ScrapeFixtures(context.Background(), nil, "football")
	if err != nil {
		t.Fatalf("fixtures: %v", err)
	}
	if len(fixtures) != 1 || fixtures[0].ExternalID != "evt1" || fixtures[0].Source != "oddsapi" {
		t.Errorf("fixtures = %+v", fixtures)
	}
}

func TestOddsAPILiveScoresUnsupported(t *testing.T) {
	adapter := NewOddsAPI("oddsapi", "http://example.invalid", "k", time.Second)
	_, err := adapter.ScrapeLiveScores(context.Background(), nil, "football")
	if !scrape.IsNoData(err) {
		t.Errorf("live scores should report NoData, got %v", err)
	}
}
