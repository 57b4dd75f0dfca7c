package scrape

import (
	"errors"
	"fmt"
)

// BotBlockedError means the source actively detected and blocked us
// (CAPTCHA, Cloudflare challenge, "access denied" page). Always a failure,
// and the rotation layer escalates backoff harder than for ordinary errors.
type BotBlockedError struct {
	Source string
	URL    string
	Marker string // the page text that triggered detection
}

func (e *BotBlockedError) Error() string {
	return fmt.Sprintf("%s: bot block detected at %s (marker %q)", e.Source, e.URL, e.Marker)
}

// NoDataAvailableError means the page loaded fine but legitimately has no
// fixtures (off-season, empty schedule). Never penalizes the source.
type NoDataAvailableError struct {
	Source string
	Sport  string
}

func (e *NoDataAvailableError) Error() string {
	return fmt.Sprintf("%s: no %s data available", e.Source, e.Sport)
}

// NetworkTimeoutError wraps a connection or navigation timeout. Ordinary
// failure; rotation moves on to another source.
type NetworkTimeoutError struct {
	Source string
	URL    string
	Err    error
}

func (e *NetworkTimeoutError) Error() string {
	return fmt.Sprintf("%s: network/timeout fetching %s: %v", e.Source, e.URL, e.Err)
}

func (e *NetworkTimeoutError) Unwrap() error { return e.Err }

// ParseError means the page structure no longer matches our selectors (site
// redesign). DumpPath points at the saved HTML/screenshot for diagnosing
// selector drift, the most common long-term scraper failure mode.
type ParseError struct {
	Source   string
	URL      string
	Selector string
	DumpPath string
	Err      error
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("%s: parse failed at %s (selector %q)", e.Source, e.URL, e.Selector)
	if e.DumpPath != "" {
		msg += ", dump saved to " + e.DumpPath
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsBotBlocked reports whether err is (or wraps) a BotBlockedError.
func IsBotBlocked(err error) bool {
	var be *BotBlockedError
	return errors.As(err, &be)
}

// IsNoData reports whether err is (or wraps) a NoDataAvailableError.
func IsNoData(err error) bool {
	var ne *NoDataAvailableError
	return errors.As(err, &ne)
}
