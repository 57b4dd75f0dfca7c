package adapters

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jamiebrown201/sport-sage-sub001/internal/pkg/browser"
	"github.com/jamiebrown201/sport-sage-sub001/internal/pkg/models"
	"github.com/jamiebrown201/sport-sage-sub001/internal/pkg/scrape"
	"github.com/jamiebrown201/sport-sage-sub001/internal/pkg/teamident"
)

// Options are the shared knobs for browser-based adapters.
type Options struct {
	NavigateTimeout time.Duration
	SelectorTimeout time.Duration
	Dumper          *scrape.Dumper
}

func (o *Options) applyDefaults() {
	if o.NavigateTimeout <= 0 {
		o.NavigateTimeout = 30 * time.Second
	}
	if o.SelectorTimeout <= 0 {
		o.SelectorTimeout = 10 * time.Second
	}
}

// siteConfig describes how one site exposes its data: which selector marks a
// loaded page and which in-page expression extracts the rows. The shared
// engine below does everything else, so adding a source is a config entry
// plus these three expressions.
type siteConfig struct {
	oddsSelector     string
	fixturesSelector string
	liveSelector     string
	oddsJS           string
	fixturesJS       string
	liveJS           string
}

// Row shapes the extraction expressions must produce. Keeping them identical
// across sites pushes all per-site variance into the JS. Sites that only
// render a combined "Home - Away" label set name instead of home/away and
// the engine splits it.
type oddsRow struct {
	Name       string  `json:"name"`
	Home       string  `json:"home"`
	Away       string  `json:"away"`
	HomeWin    float64 `json:"homeWin"`
	Draw       float64 `json:"draw"`
	AwayWin    float64 `json:"awayWin"`
	Bookmakers int     `json:"bookmakers"`
}

type fixtureRow struct {
	ID          string `json:"id"`
	Competition string `json:"competition"`
	Name        string `json:"name"`
	Home        string `json:"home"`
	Away        string `json:"away"`
	StartUnix   int64  `json:"startUnix"`
}

type liveRow struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Home      string `json:"home"`
	Away      string `json:"away"`
	HomeScore int    `json:"homeScore"`
	AwayScore int    `json:"awayScore"`
	Status    string `json:"status"`
	Period    string `json:"period"`
	Minute    int    `json:"minute"`
}

// rowTeams resolves the team pair for a row, splitting the combined match
// name when the site does not expose the teams separately.
func rowTeams(home, away, combined string) (string, string) {
	if home != "" && away != "" {
		return home, away
	}
	if h, a, ok := teamident.SplitTeamsFromName(combined); ok {
		return h, a
	}
	return home, away
}

// siteAdapter is the shared engine behind every browser-based source.
type siteAdapter struct {
	source models.Source
	cfg    siteConfig
	opts   Options
}

func newSiteAdapter(source models.Source, cfg siteConfig, opts Options) *siteAdapter {
	opts.applyDefaults()
	return &siteAdapter{source: source, cfg: cfg, opts: opts}
}

func (a *siteAdapter) Name() string { return a.source.Name }

func (a *siteAdapter) Scrape(ctx context.Context, page browser.Page, sport string) ([]models.NormalizedOdds, error) {
	var out []models.NormalizedOdds
	err := a.eachURL(ctx, page, sport, a.cfg.oddsSelector, func(url string) error {
		var rows []oddsRow
		if err := a.extract(ctx, page, sport, url, a.cfg.oddsSelector, a.cfg.oddsJS, &rows); err != nil {
			return err
		}
		now := time.Now().UTC()
		for _, row := range rows {
			home, away := rowTeams(row.Home, row.Away, row.Name)
			out = append(out, models.NormalizedOdds{
				HomeTeam:       home,
				AwayTeam:       away,
				HomeWin:        row.HomeWin,
				Draw:           row.Draw,
				AwayWin:        row.AwayWin,
				Source:         a.source.Name,
				BookmakerCount: row.Bookmakers,
				ScrapedAt:      now,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, &scrape.NoDataAvailableError{Source: a.source.Name, Sport: sport}
	}
	return out, nil
}

func (a *siteAdapter) ScrapeFixtures(ctx context.Context, page browser.Page, sport string) ([]models.Fixture, error) {
	var out []models.Fixture
	err := a.eachURL(ctx, page, sport, a.cfg.fixturesSelector, func(url string) error {
		var rows []fixtureRow
		if err := a.extract(ctx, page, sport, url, a.cfg.fixturesSelector, a.cfg.fixturesJS, &rows); err != nil {
			return err
		}
		for _, row := range rows {
			home, away := rowTeams(row.Home, row.Away, row.Name)
			if row.ID == "" || home == "" || away == "" {
				continue
			}
			out = append(out, models.Fixture{
				ExternalID:  row.ID,
				SportSlug:   sport,
				Competition: row.Competition,
				HomeTeam:    home,
				AwayTeam:    away,
				StartTime:   time.Unix(row.StartUnix, 0).UTC(),
				Source:      a.source.Name,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, &scrape.NoDataAvailableError{Source: a.source.Name, Sport: sport}
	}
	return out, nil
}

func (a *siteAdapter) ScrapeLiveScores(ctx context.Context, page browser.Page, sport string) ([]models.LiveScore, error) {
	var out []models.LiveScore
	err := a.eachURL(ctx, page, sport, a.cfg.liveSelector, func(url string) error {
		var rows []liveRow
		if err := a.extract(ctx, page, sport, url, a.cfg.liveSelector, a.cfg.liveJS, &rows); err != nil {
			return err
		}
		for _, row := range rows {
			if row.ID == "" {
				continue
			}
			home, away := rowTeams(row.Home, row.Away, row.Name)
			out = append(out, models.LiveScore{
				ExternalID: row.ID,
				HomeTeam:   home,
				AwayTeam:   away,
				HomeScore:  row.HomeScore,
				AwayScore:  row.AwayScore,
				Status:     liveStatus(row.Status),
				Period:     row.Period,
				Minute:     row.Minute,
				Source:     a.source.Name,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	// An empty live board is normal outside match hours, not a NoData signal
	// worth surfacing; the job just has nothing to update.
	return out, nil
}

// eachURL visits every configured URL for the sport. A capability the site
// does not offer (empty selector) reports NoData so rotation does not
// penalize it.
func (a *siteAdapter) eachURL(ctx context.Context, page browser.Page, sport, selector string, visit func(url string) error) error {
	if selector == "" {
		return &scrape.NoDataAvailableError{Source: a.source.Name, Sport: sport}
	}
	urls := a.source.SportURLs[sport]
	if len(urls) == 0 {
		return &scrape.NoDataAvailableError{Source: a.source.Name, Sport: sport}
	}
	for _, url := range urls {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := visit(url); err != nil {
			return err
		}
	}
	return nil
}

// extract loads one URL and runs the extraction expression. All failures come
// back as the typed scrape errors; a parse failure saves the page for
// offline selector diagnosis.
func (a *siteAdapter) extract(ctx context.Context, page browser.Page, sport, url, selector, expression string, out any) error {
	if err := page.Navigate(ctx, url, a.opts.NavigateTimeout); err != nil {
		return &scrape.NetworkTimeoutError{Source: a.source.Name, URL: url, Err: err}
	}

	content, err := page.Content(ctx)
	if err != nil {
		return &scrape.NetworkTimeoutError{Source: a.source.Name, URL: url, Err: err}
	}
	if marker, blocked := scrape.DetectBlock(content); blocked {
		return &scrape.BotBlockedError{Source: a.source.Name, URL: url, Marker: marker}
	}

	if err := page.WaitVisible(ctx, selector, a.opts.SelectorTimeout); err != nil {
		return a.parseError(ctx, page, sport, url, selector, content, err)
	}
	if err := page.Evaluate(ctx, expression, out); err != nil {
		return a.parseError(ctx, page, sport, url, selector, content, err)
	}
	return nil
}

func (a *siteAdapter) parseError(ctx context.Context, page browser.Page, sport, url, selector, content string, cause error) error {
	var dumpPath string
	if a.opts.Dumper != nil {
		screenshot, shotErr := page.Screenshot(ctx)
		if shotErr != nil {
			slog.Debug("screenshot for dump failed", "source", a.source.Name, "error", shotErr)
		}
		dumpPath = a.opts.Dumper.Save(a.source.Name, sport, content, screenshot)
	}
	return &scrape.ParseError{
		Source:   a.source.Name,
		URL:      url,
		Selector: selector,
		DumpPath: dumpPath,
		Err:      cause,
	}
}

func liveStatus(raw string) models.EventStatus {
	switch raw {
	case "live", "inplay", "in_play":
		return models.StatusLive
	case "finished", "ended", "ft":
		return models.StatusFinished
	case "cancelled", "canceled":
		return models.StatusCancelled
	case "postponed":
		return models.StatusPostponed
	default:
		return models.StatusLive
	}
}

// sanity check that every constructor returns something satisfying Adapter
var _ scrape.Adapter = (*siteAdapter)(nil)

func requireSport(source models.Source) error {
	if len(source.SportURLs) == 0 {
		return fmt.Errorf("source %s has no sport URLs configured", source.Name)
	}
	return nil
}
