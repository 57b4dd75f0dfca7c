package browser

import (
	"context"
	"time"
)

// Page is the opaque browser-page capability handed to scrape adapters.
// Implementations wrap a real headless browser tab; tests use a stub.
type Page interface {
	// Navigate loads a URL, waiting at most timeout for the navigation.
	Navigate(ctx context.Context, url string, timeout time.Duration) error

	// WaitVisible blocks until the selector is visible or timeout elapses.
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error

	// Evaluate runs a JS expression in the page and unmarshals the result
	// into out.
	Evaluate(ctx context.Context, expression string, out any) error

	// Content returns the full serialized HTML of the current page.
	Content(ctx context.Context) (string, error)

	// Screenshot captures the current viewport as PNG.
	Screenshot(ctx context.Context) ([]byte, error)
}
