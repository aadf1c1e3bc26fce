package fetch

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	neturl "net/url"
	"sync"
	"time"

	"github.com/gaurav-prasanna/pageaudit/core"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"
)

const (
	defaultUserAgent = "PageAudit/1.0 (https://github.com/gaurav-prasanna/pageaudit)"
	maxBodyBytes     = 8 << 20
)

// HTTPFetcher fetches web pages via plain HTTP GET.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string

	rps      float64
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// HTTPOption configures an HTTPFetcher.
type HTTPOption func(*HTTPFetcher)

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) HTTPOption {
	return func(f *HTTPFetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithRateLimit caps requests per second per host. Zero disables limiting.
func WithRateLimit(rps float64) HTTPOption {
	return func(f *HTTPFetcher) { f.rps = rps }
}

// WithClient replaces the HTTP client.
func WithClient(c *http.Client) HTTPOption {
	return func(f *HTTPFetcher) { f.client = c }
}

// NewHTTP creates an HTTPFetcher. Timeouts are applied per attempt by the
// Fetcher through the request context.
func NewHTTP(opts ...HTTPOption) *HTTPFetcher {
	f := &HTTPFetcher{
		client: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		userAgent: defaultUserAgent,
		limiters:  make(map[string]*rate.Limiter),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Attempt performs one GET of url and decodes the body to UTF-8.
func (f *HTTPFetcher) Attempt(ctx context.Context, url string) (*core.FetchResult, error) {
	if err := f.wait(ctx, url); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &core.FetchError{Kind: core.FetchHTTPStatus, URL: url, StatusCode: resp.StatusCode}
	}

	contentType := resp.Header.Get("Content-Type")
	body, err := charset.NewReader(io.LimitReader(resp.Body, maxBodyBytes), contentType)
	if err != nil {
		// Unknown charset: fall back to the raw bytes.
		body = io.LimitReader(resp.Body, maxBodyBytes)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	final := url
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL.String()
	}
	return &core.FetchResult{
		URL:         url,
		FinalURL:    final,
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		HTML:        string(data),
	}, nil
}

// wait blocks on the per-host limiter when rate limiting is enabled.
func (f *HTTPFetcher) wait(ctx context.Context, rawURL string) error {
	if f.rps <= 0 {
		return nil
	}
	host := rawURL
	if u, err := neturl.Parse(rawURL); err == nil {
		host = u.Host
	}

	f.mu.Lock()
	lim, ok := f.limiters[host]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(f.rps), 1)
		f.limiters[host] = lim
	}
	f.mu.Unlock()

	return lim.Wait(ctx)
}
