package crawler

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"sjsage522/shopcollagebot/helpers"
)

// fetchWithBrowser renders the storefront in headless Chrome and returns the
// resulting markup. Used for storefronts that build the product grid in JavaScript.
func fetchWithBrowser(ctx context.Context, url string, timeout time.Duration) (io.Reader, error) {
	allocCtx, cancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.UserAgent(helpers.RandomUserAgent()),
		)...,
	)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, timeout)
	defer cancel()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		// lazy-loaded product images need a moment after DOMContentLoaded
		chromedp.Sleep(2*time.Second),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return nil, fmt.Errorf("browser rendering failed: %w", err)
	}

	return strings.NewReader(html), nil
}
