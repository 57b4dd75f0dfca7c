package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// chromePage is a Page backed by one chromedp tab context.
type chromePage struct {
	ctx    context.Context
	cancel context.CancelFunc
}

var _ Page = (*chromePage)(nil)

func (p *chromePage) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	runCtx, cancel := mergeTimeout(p.ctx, ctx, timeout)
	defer cancel()

	if err := chromedp.Run(runCtx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

func (p *chromePage) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	runCtx, cancel := mergeTimeout(p.ctx, ctx, timeout)
	defer cancel()

	if err := chromedp.Run(runCtx, chromedp.WaitVisible(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("wait for %q: %w", selector, err)
	}
	return nil
}

func (p *chromePage) Evaluate(ctx context.Context, expression string, out any) error {
	runCtx, cancel := mergeTimeout(p.ctx, ctx, 0)
	defer cancel()

	if err := chromedp.Run(runCtx, chromedp.Evaluate(expression, out)); err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}
	return nil
}

func (p *chromePage) Content(ctx context.Context) (string, error) {
	runCtx, cancel := mergeTimeout(p.ctx, ctx, 0)
	defer cancel()

	var html string
	if err := chromedp.Run(runCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("get content: %w", err)
	}
	return html, nil
}

func (p *chromePage) Screenshot(ctx context.Context) ([]byte, error) {
	runCtx, cancel := mergeTimeout(p.ctx, ctx, 0)
	defer cancel()

	var buf []byte
	if err := chromedp.Run(runCtx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}
	return buf, nil
}

// mergeTimeout derives a run context from the tab context that is also
// cancelled when the caller's ctx is done, optionally with a timeout.
// chromedp actions must run on the tab context, but a stalled page has to
// abort when the job gives up.
func mergeTimeout(tabCtx, callCtx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	var runCtx context.Context
	var cancel context.CancelFunc
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(tabCtx, timeout)
	} else {
		runCtx, cancel = context.WithCancel(tabCtx)
	}
	stop := context.AfterFunc(callCtx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}
