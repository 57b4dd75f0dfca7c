package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/chromedp/chromedp"
)

// Pool hands out a fixed number of browser tabs backed by one shared Chrome
// process. Tabs are a scarce resource: each job acquires one per source
// attempt and must release it on every exit path.
type Pool struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	slots       chan *chromePage

	mu     sync.Mutex
	closed bool
	pages  []*chromePage
}

// NewPool starts a headless Chrome allocator and opens size tabs.
func NewPool(ctx context.Context, size int, userAgent string) (*Pool, error) {
	if size <= 0 {
		size = 3
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.UserAgent(userAgent),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)

	p := &Pool{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		slots:       make(chan *chromePage, size),
	}

	for i := 0; i < size; i++ {
		tabCtx, tabCancel := chromedp.NewContext(allocCtx)
		// Materialize the tab up front so a broken Chrome install fails fast.
		if err := chromedp.Run(tabCtx); err != nil {
			tabCancel()
			p.Close()
			return nil, fmt.Errorf("start browser tab %d: %w", i, err)
		}
		page := &chromePage{ctx: tabCtx, cancel: tabCancel}
		p.pages = append(p.pages, page)
		p.slots <- page
	}

	slog.Info("browser pool started", "tabs", size)
	return p, nil
}

// Acquire blocks until a tab is free or ctx is done.
func (p *Pool) Acquire(ctx context.Context) (Page, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case page, ok := <-p.slots:
		if !ok {
			return nil, fmt.Errorf("browser pool closed")
		}
		return page, nil
	}
}

// Release returns a tab to the pool. Releasing a foreign page is a
// programming error and is dropped with a log.
func (p *Pool) Release(page Page) {
	cp, ok := page.(*chromePage)
	if !ok || cp == nil {
		slog.Error("released page does not belong to this pool")
		return
	}
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return
	}
	select {
	case p.slots <- cp:
	default:
		slog.Error("browser pool overflow on release")
	}
}

// Close tears down all tabs and the Chrome process.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	pages := p.pages
	p.mu.Unlock()

	close(p.slots)
	for _, page := range pages {
		page.cancel()
	}
	p.allocCancel()
	slog.Info("browser pool closed")
}
