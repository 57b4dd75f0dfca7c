package scrape

import (
	"strings"
)

// blockMarkers are page fragments that indicate active bot blocking rather
// than an empty schedule. Matched case-insensitively against page content.
var blockMarkers = []string{
	"captcha",
	"cf-challenge",
	"cf-browser-verification",
	"checking your browser",
	"verify you are human",
	"access denied",
	"request blocked",
	"are you a robot",
	"unusual traffic",
	"attention required! | cloudflare",
	"ddos protection by",
	"just a moment...",
}

// DetectBlock scans page content for bot-block markers and returns the
// matched marker. Adapters call this before concluding "no data": a blocked
// page and an off-season page can otherwise look identical (both empty).
func DetectBlock(content string) (string, bool) {
	lowered := strings.ToLower(content)
	for _, m := range blockMarkers {
		if strings.Contains(lowered, m) {
			return m, true
		}
	}
	return "", false
}
