package adapters

import (
	"fmt"
	"sort"

	"github.com/jamiebrown201/sport-sage-sub001/internal/pkg/models"
	"github.com/jamiebrown201/sport-sage-sub001/internal/pkg/scrape"
)

// Per-site extraction config. The selectors mark "data has rendered"; the
// expressions run inside the page and must return the row shapes from
// site.go. When a site redesigns, this table is what changes.
var siteConfigs = map[string]siteConfig{
	"oddsportal": {
		oddsSelector:     "div.eventRow",
		fixturesSelector: "div.eventRow",
		liveSelector:     "div.eventRow[data-live='true']",
		oddsJS: `Array.from(document.querySelectorAll('div.eventRow')).map(r => ({
			home: r.querySelector('.participant-home')?.textContent.trim() ?? '',
			away: r.querySelector('.participant-away')?.textContent.trim() ?? '',
			homeWin: parseFloat(r.querySelector('[data-odd="1"]')?.textContent) || 0,
			draw: parseFloat(r.querySelector('[data-odd="X"]')?.textContent) || 0,
			awayWin: parseFloat(r.querySelector('[data-odd="2"]')?.textContent) || 0,
			bookmakers: parseInt(r.querySelector('.bookmakers-count')?.textContent) || 0
		}))`,
		fixturesJS: `Array.from(document.querySelectorAll('div.eventRow')).map(r => ({
			id: r.dataset.eventId ?? '',
			competition: r.closest('[data-competition]')?.dataset.competition ?? '',
			home: r.querySelector('.participant-home')?.textContent.trim() ?? '',
			away: r.querySelector('.participant-away')?.textContent.trim() ?? '',
			startUnix: parseInt(r.dataset.startTimestamp) || 0
		}))`,
		liveJS: `Array.from(document.querySelectorAll("div.eventRow[data-live='true']")).map(r => ({
			id: r.dataset.eventId ?? '',
			home: r.querySelector('.participant-home')?.textContent.trim() ?? '',
			away: r.querySelector('.participant-away')?.textContent.trim() ?? '',
			homeScore: parseInt(r.querySelector('.score-home')?.textContent) || 0,
			awayScore: parseInt(r.querySelector('.score-away')?.textContent) || 0,
			status: r.dataset.status ?? 'live',
			period: r.querySelector('.event-period')?.textContent.trim() ?? '',
			minute: parseInt(r.querySelector('.event-minute')?.textContent) || 0
		}))`,
	},
	"betexplorer": {
		oddsSelector:     "table.table-main tr[data-dt]",
		fixturesSelector: "table.table-main tr[data-dt]",
		liveSelector:     "table.table-main tr.live",
		oddsJS: `Array.from(document.querySelectorAll('table.table-main tr[data-dt]')).map(r => {
			const odds = Array.from(r.querySelectorAll('td.table-main__odds')).map(c => parseFloat(c.textContent) || 0);
			return {
				name: r.querySelector('td.h-text-left a')?.textContent.trim() ?? '',
				homeWin: odds[0] ?? 0,
				draw: odds.length === 3 ? odds[1] : 0,
				awayWin: odds[odds.length - 1] ?? 0,
				bookmakers: parseInt(r.querySelector('td.h-text-center')?.textContent) || 0
			};
		})`,
		fixturesJS: `Array.from(document.querySelectorAll('table.table-main tr[data-dt]')).map(r => ({
			id: r.dataset.id ?? '',
			competition: document.querySelector('h1.wrap-section__header')?.textContent.trim() ?? '',
			name: r.querySelector('td.h-text-left a')?.textContent.trim() ?? '',
			startUnix: parseInt(r.dataset.dt) || 0
		}))`,
		liveJS: `Array.from(document.querySelectorAll('table.table-main tr.live')).map(r => {
			const score = (r.querySelector('td.table-main__score')?.textContent ?? '0:0').split(':');
			return {
				id: r.dataset.id ?? '',
				name: r.querySelector('td.h-text-left a')?.textContent.trim() ?? '',
				homeScore: parseInt(score[0]) || 0,
				awayScore: parseInt(score[1]) || 0,
				status: r.classList.contains('finished') ? 'finished' : 'live',
				period: r.querySelector('td.table-main__stage')?.textContent.trim() ?? '',
				minute: parseInt(r.querySelector('td.table-main__minute')?.textContent) || 0
			};
		})`,
	},
	"bmbets": {
		oddsSelector: "div.match-row",
		oddsJS: `Array.from(document.querySelectorAll('div.match-row')).map(r => ({
			home: r.querySelector('.team-home')?.textContent.trim() ?? '',
			away: r.querySelector('.team-away')?.textContent.trim() ?? '',
			homeWin: parseFloat(r.querySelector('.odd-1')?.textContent) || 0,
			draw: parseFloat(r.querySelector('.odd-x')?.textContent) || 0,
			awayWin: parseFloat(r.querySelector('.odd-2')?.textContent) || 0,
			bookmakers: parseInt(r.querySelector('.bk-count')?.textContent) || 0
		}))`,
	},
	"covers": {
		fixturesSelector: "tr.cmg_matchup_row",
		liveSelector:     "tr.cmg_matchup_row.cmg_live",
		fixturesJS: `Array.from(document.querySelectorAll('tr.cmg_matchup_row')).map(r => ({
			id: r.dataset.gameId ?? '',
			competition: r.dataset.league ?? '',
			home: r.dataset.homeTeamFullname ?? '',
			away: r.dataset.awayTeamFullname ?? '',
			startUnix: Math.floor(new Date(r.dataset.gameDate).getTime() / 1000) || 0
		}))`,
		liveJS: `Array.from(document.querySelectorAll('tr.cmg_matchup_row.cmg_live')).map(r => ({
			id: r.dataset.gameId ?? '',
			home: r.dataset.homeTeamFullname ?? '',
			away: r.dataset.awayTeamFullname ?? '',
			homeScore: parseInt(r.querySelector('.cmg_home_score')?.textContent) || 0,
			awayScore: parseInt(r.querySelector('.cmg_away_score')?.textContent) || 0,
			status: r.dataset.gameStatus === 'FINAL' ? 'finished' : 'live',
			period: r.querySelector('.cmg_game_period')?.textContent.trim() ?? '',
			minute: 0
		}))`,
	},
	"nicerodds": {
		oddsSelector: "table#odds-comparison tr.match",
		oddsJS: `Array.from(document.querySelectorAll('table#odds-comparison tr.match')).map(r => ({
			name: r.querySelector('td.match-name')?.textContent.trim() ?? '',
			homeWin: parseFloat(r.querySelector('td.best-1')?.textContent) || 0,
			draw: parseFloat(r.querySelector('td.best-x')?.textContent) || 0,
			awayWin: parseFloat(r.querySelector('td.best-2')?.textContent) || 0,
			bookmakers: parseInt(r.querySelector('td.num-bk')?.textContent) || 0
		}))`,
	},
}

// NewSiteAdapter builds the browser adapter for a configured source. The
// source name selects the extraction config.
func NewSiteAdapter(source models.Source, opts Options) (scrape.Adapter, error) {
	cfg, ok := siteConfigs[source.Name]
	if !ok {
		return nil, fmt.Errorf("no site config for source %q (known: %v)", source.Name, KnownSites())
	}
	if err := requireSport(source); err != nil {
		return nil, err
	}
	return newSiteAdapter(source, cfg, opts), nil
}

// KnownSites returns the source names a site config exists for.
func KnownSites() []string {
	names := make([]string, 0, len(siteConfigs))
	for name := range siteConfigs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
