package fetcher

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// DefaultWaitTimeout bounds how long a rendered fetch waits for the
// source-specific "jobs are present" selector.
const DefaultWaitTimeout = 15 * time.Second

// Rendered loads the page in a headless browser, waits until at least one
// element matching waitSelector is attached (bounded by waitTimeout, timeout
// is non-fatal) and returns the DOM as HTML. The browser context lives for
// exactly one call and is always cancelled before returning.
func Rendered(ctx context.Context, logger *zap.Logger, url, waitSelector string, waitTimeout time.Duration) (string, error) {
	if waitTimeout <= 0 {
		waitTimeout = DefaultWaitTimeout
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.UserAgent(randomUserAgent()),
		)...,
	)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	if err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
	); err != nil {
		return "", fmt.Errorf("navigate %s: %w", url, err)
	}

	if waitSelector != "" {
		waitCtx, cancelWait := context.WithTimeout(browserCtx, waitTimeout)
		if err := chromedp.Run(waitCtx, chromedp.WaitReady(waitSelector, chromedp.ByQuery)); err != nil {
			// Parsing proceeds on whatever DOM is present.
			logger.Debug("wait for listing selector timed out",
				zap.String("url", url),
				zap.String("selector", waitSelector),
				zap.Error(err),
			)
		}
		cancelWait()
	}

	var html string
	if err := chromedp.Run(browserCtx, chromedp.OuterHTML("html", &html)); err != nil {
		return "", fmt.Errorf("read rendered dom %s: %w", url, err)
	}

	return html, nil
}
