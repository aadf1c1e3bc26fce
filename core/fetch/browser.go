package fetch

import (
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/gaurav-prasanna/pageaudit/core"
)

// BrowserFetcher loads pages in headless Chrome and returns the DOM after
// scripts have run. Each attempt starts its own browser process, so the
// runner bounds browser fetches with a smaller pool.
type BrowserFetcher struct {
	allocOpts []chromedp.ExecAllocatorOption
}

// NewBrowser creates a BrowserFetcher. Extra allocator options (e.g.
// chromedp.ExecPath) are appended to the chromedp defaults.
func NewBrowser(userAgent string, extra ...chromedp.ExecAllocatorOption) *BrowserFetcher {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts, chromedp.Flag("ignore-certificate-errors", true))
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	opts = append(opts, chromedp.UserAgent(userAgent))
	opts = append(opts, extra...)
	return &BrowserFetcher{allocOpts: opts}
}

// Attempt navigates to url and captures the rendered document.
func (b *BrowserFetcher) Attempt(ctx context.Context, url string) (*core.FetchResult, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, b.allocOpts...)
	defer cancelAlloc()
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()

	// The first document response is the main frame after redirects.
	var (
		mu          sync.Mutex
		status      int64
		finalURL    string
		contentType string
	)
	chromedp.ListenTarget(tabCtx, func(ev any) {
		e, ok := ev.(*network.EventResponseReceived)
		if !ok || e.Type != network.ResourceTypeDocument {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if status == 0 {
			status = e.Response.Status
			finalURL = e.Response.URL
			contentType = e.Response.MimeType
		}
	})

	var html string
	err := chromedp.Run(tabCtx,
		network.Enable(),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("rendering %s: %w", url, err)
	}

	mu.Lock()
	defer mu.Unlock()
	if status != 0 && (status < 200 || status >= 300) {
		return nil, &core.FetchError{Kind: core.FetchHTTPStatus, URL: url, StatusCode: int(status)}
	}
	if finalURL == "" {
		finalURL = url
	}
	return &core.FetchResult{
		URL:         url,
		FinalURL:    finalURL,
		StatusCode:  int(status),
		ContentType: contentType,
		HTML:        html,
	}, nil
}
