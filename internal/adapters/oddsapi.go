package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jamiebrown201/sport-sage-sub001/internal/pkg/browser"
	"github.com/jamiebrown201/sport-sage-sub001/internal/pkg/models"
	"github.com/jamiebrown201/sport-sage-sub001/internal/pkg/scrape"
)

// OddsAPIAdapter is the non-browser fallback: a JSON odds API used when
// browser scraping of a sport is exhausted. It ignores the page it is handed
// and speaks plain HTTP. Configure it as a source with the lowest priority
// so rotation only reaches it after the scrape sites fail.
type OddsAPIAdapter struct {
	name    string
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewOddsAPI creates the fallback adapter. name must match the configured
// source name so rotation can route to it.
func NewOddsAPI(name, baseURL, apiKey string, timeout time.Duration) *OddsAPIAdapter {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &OddsAPIAdapter{
		name:    name,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

func (a *OddsAPIAdapter) Name() string { return a.name }

// apiEvent mirrors the API response shape.
// GET /v4/sports/{sport}/odds?regions=eu&markets=h2h&apiKey=...
type apiEvent struct {
	ID         string    `json:"id"`
	SportKey   string    `json:"sport_key"`
	HomeTeam   string    `json:"home_team"`
	AwayTeam   string    `json:"away_team"`
	CommenceAt time.Time `json:"commence_time"`
	Bookmakers []struct {
		Key     string `json:"key"`
		Markets []struct {
			Key      string `json:"key"`
			Outcomes []struct {
				Name  string  `json:"name"`
				Price float64 `json:"price"`
			} `json:"outcomes"`
		} `json:"markets"`
	} `json:"bookmakers"`
}

// Scrape fetches h2h odds and reduces each event's bookmaker prices to the
// best (highest) available price per outcome.
func (a *OddsAPIAdapter) Scrape(ctx context.Context, _ browser.Page, sport string) ([]models.NormalizedOdds, error) {
	events, err := a.fetch(ctx, sport, "odds", url.Values{"regions": {"eu"}, "markets": {"h2h"}})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	out := make([]models.NormalizedOdds, 0, len(events))
	for _, ev := range events {
		odds := models.NormalizedOdds{
			HomeTeam:  ev.HomeTeam,
			AwayTeam:  ev.AwayTeam,
			Source:    a.name,
			ScrapedAt: now,
		}
		for _, bk := range ev.Bookmakers {
			for _, market := range bk.Markets {
				if market.Key != "h2h" {
					continue
				}
				odds.BookmakerCount++
				for _, o := range market.Outcomes {
					switch o.Name {
					case ev.HomeTeam:
						odds.HomeWin = max(odds.HomeWin, o.Price)
					case ev.AwayTeam:
						odds.AwayWin = max(odds.AwayWin, o.Price)
					case "Draw":
						odds.Draw = max(odds.Draw, o.Price)
					}
				}
			}
		}
		out = append(out, odds)
	}
	if len(out) == 0 {
		return nil, &scrape.NoDataAvailableError{Source: a.name, Sport: sport}
	}
	return out, nil
}

// ScrapeFixtures maps upcoming API events to fixtures.
func (a *OddsAPIAdapter) ScrapeFixtures(ctx context.Context, _ browser.Page, sport string) ([]models.Fixture, error) {
	events, err := a.fetch(ctx, sport, "events", nil)
	if err != nil {
		return nil, err
	}
	out := make([]models.Fixture, 0, len(events))
	for _, ev := range events {
		out = append(out, models.Fixture{
			ExternalID: ev.ID,
			SportSlug:  sport,
			HomeTeam:   ev.HomeTeam,
			AwayTeam:   ev.AwayTeam,
			StartTime:  ev.CommenceAt.UTC(),
			Source:     a.name,
		})
	}
	if len(out) == 0 {
		return nil, &scrape.NoDataAvailableError{Source: a.name, Sport: sport}
	}
	return out, nil
}

// ScrapeLiveScores is not offered by the odds API.
func (a *OddsAPIAdapter) ScrapeLiveScores(_ context.Context, _ browser.Page, sport string) ([]models.LiveScore, error) {
	return nil, &scrape.NoDataAvailableError{Source: a.name, Sport: sport}
}

func (a *OddsAPIAdapter) fetch(ctx context.Context, sport, endpoint string, params url.Values) ([]apiEvent, error) {
	if params == nil {
		params = url.Values{}
	}
	params.Set("apiKey", a.apiKey)
	u := fmt.Sprintf("%s/v4/sports/%s/%s?%s", a.baseURL, url.PathEscape(apiSportKey(sport)), endpoint, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &scrape.NetworkTimeoutError{Source: a.name, URL: u, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode == http.StatusForbidden:
		return nil, &scrape.BotBlockedError{Source: a.name, URL: u, Marker: resp.Status}
	case resp.StatusCode != http.StatusOK:
		return nil, &scrape.NetworkTimeoutError{Source: a.name, URL: u, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	var events []apiEvent
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		return nil, &scrape.ParseError{Source: a.name, URL: u, Err: err}
	}
	return events, nil
}

// apiSportKey maps our sport slugs to the API's sport keys.
func apiSportKey(sport string) string {
	switch sport {
	case "football":
		return "soccer"
	case "basketball":
		return "basketball_nba"
	case "tennis":
		return "tennis_atp"
	case "hockey":
		return "icehockey_nhl"
	default:
		return sport
	}
}

var _ scrape.Adapter = (*OddsAPIAdapter)(nil)
