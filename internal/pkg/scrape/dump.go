package scrape

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Dumper saves page HTML and screenshots when parsing fails, so selector
// drift after a site redesign can be diagnosed offline.
type Dumper struct {
	dir string
}

// NewDumper creates a dumper writing under dir. An empty dir disables dumps.
func NewDumper(dir string) *Dumper {
	return &Dumper{dir: dir}
}

// Save writes content (and screenshot when non-nil) for a failed parse and
// returns the HTML dump path. Failures to dump are logged, never propagated:
// diagnostics must not mask the original parse error.
func (d *Dumper) Save(source, sport, content string, screenshot []byte) string {
	if d.dir == "" {
		return ""
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		slog.Warn("cannot create dump dir", "dir", d.dir, "error", err)
		return ""
	}

	stamp := time.Now().UTC().Format("20060102T150405")
	base := fmt.Sprintf("%s_%s_%s", source, sport, stamp)

	htmlPath := filepath.Join(d.dir, base+".html")
	if err := os.WriteFile(htmlPath, []byte(content), 0o644); err != nil {
		slog.Warn("cannot write html dump", "path", htmlPath, "error", err)
		return ""
	}
	if len(screenshot) > 0 {
		pngPath := filepath.Join(d.dir, base+".png")
		if err := os.WriteFile(pngPath, screenshot, 0o644); err != nil {
			slog.Warn("cannot write screenshot dump", "path", pngPath, "error", err)
		}
	}
	return htmlPath
}
