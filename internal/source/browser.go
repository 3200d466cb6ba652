package source

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/chromedp/chromedp"
)

// BrowserFetcher loads a page in headless Chrome and returns the rendered
// document. Used for career sites that build their listing markup in JS.
type BrowserFetcher struct {
	url       string
	userAgent string
	waitFor   string // CSS selector that must be ready before capture
	timeout   time.Duration
	execPath  string
}

// NewBrowserFetcher creates a fetcher for pageURL. waitFor defaults to "body".
func NewBrowserFetcher(pageURL, waitFor, execPath string, timeout time.Duration) *BrowserFetcher {
	if waitFor == "" {
		waitFor = "body"
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &BrowserFetcher{
		url:       pageURL,
		userAgent: BrowserHeaders()["User-Agent"],
		waitFor:   waitFor,
		timeout:   timeout,
		execPath:  execPath,
	}
}

// Fetch renders the page and returns its outer HTML.
func (f *BrowserFetcher) Fetch(ctx context.Context) ([]byte, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(f.userAgent),
	)
	if f.execPath != "" {
		opts = append(opts, chromedp.ExecPath(f.execPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...any) {}))
	defer cancelBrowser()

	runCtx, cancel := context.WithTimeout(browserCtx, f.timeout)
	defer cancel()

	var html string
	err := chromedp.Run(runCtx,
		chromedp.Navigate(f.url),
		chromedp.WaitReady(f.waitFor, chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, &url.Error{Op: "Render", URL: f.url, Err: err}
	}
	if html == "" {
		return nil, fmt.Errorf("render %s: empty document", f.url)
	}
	return []byte(html), nil
}
