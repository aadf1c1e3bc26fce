// Package fetch implements the core.Fetcher interface.
// A Fetcher dispatches on the render mode to a static HTTP source or a
// headless-browser source and retries network failures and timeouts, so
// the rest of the pipeline never needs to know which mode was used.
package fetch

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/gaurav-prasanna/pageaudit/core"
	"github.com/sirupsen/logrus"
)

const (
	defaultTimeout = 30 * time.Second
	defaultBackoff = 250 * time.Millisecond
)

// Source performs a single fetch attempt.
type Source interface {
	Attempt(ctx context.Context, url string) (*core.FetchResult, error)
}

// Fetcher retrieves pages in static or browser mode with retries.
type Fetcher struct {
	static  Source
	browser Source
	backoff time.Duration
	log     *logrus.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithStatic replaces the static HTTP source.
func WithStatic(s Source) Option { return func(f *Fetcher) { f.static = s } }

// WithBrowser sets the source used for browser-rendered fetches.
func WithBrowser(s Source) Option { return func(f *Fetcher) { f.browser = s } }

// WithBackoff sets the base delay between attempts. Attempt n waits n*d.
func WithBackoff(d time.Duration) Option { return func(f *Fetcher) { f.backoff = d } }

// New creates a Fetcher. Without options it fetches statically with an
// HTTPFetcher; browser mode requires WithBrowser.
func New(log *logrus.Logger, opts ...Option) *Fetcher {
	f := &Fetcher{backoff: defaultBackoff, log: log}
	for _, opt := range opts {
		opt(f)
	}
	if f.static == nil {
		f.static = NewHTTP()
	}
	if f.log == nil {
		f.log = logrus.StandardLogger()
	}
	return f
}

// Fetch retrieves url, retrying up to opts.Retries times on network
// failures and timeouts. Any failure is returned as *core.FetchError.
func (f *Fetcher) Fetch(ctx context.Context, url string, opts core.FetchOptions) (*core.FetchResult, error) {
	src := f.static
	if opts.Mode == core.RenderBrowser {
		if f.browser == nil {
			return nil, &core.FetchError{Kind: core.FetchNetwork, URL: url, Err: errors.New("browser rendering is not configured")}
		}
		src = f.browser
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	retries := max(opts.Retries, 0)
	start := time.Now()
	log := f.log.WithFields(logrus.Fields{"url": url, "mode": opts.Mode})

	var last *core.FetchError
	for attempt := 1; attempt <= retries+1; attempt++ {
		if attempt > 1 {
			if err := sleep(ctx, time.Duration(attempt-1)*f.backoff); err != nil {
				break
			}
			log.WithField("attempt", attempt).Debugf("Retrying after %v", last)
		}

		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		result, err := src.Attempt(attemptCtx, url)
		cancel()
		if err == nil {
			result.Attempts = attempt
			result.Duration = time.Since(start)
			return result, nil
		}

		last = classify(ctx, url, err)
		last.Attempts = attempt
		if !last.Retryable() || ctx.Err() != nil {
			break
		}
	}

	if ctx.Err() != nil {
		attempts := last.Attempts
		last = classify(ctx, url, ctx.Err())
		last.Attempts = attempts
	}
	log.WithField("kind", last.Kind).Warnf("Fetch failed: %v", last)
	return nil, last
}

// classify turns an attempt error into a FetchError. The state of the
// parent context wins over the attempt error: a run that was cancelled or
// ran out of time reports that, not whatever the transport saw.
func classify(parent context.Context, url string, err error) *core.FetchError {
	switch {
	case errors.Is(parent.Err(), context.DeadlineExceeded):
		return &core.FetchError{Kind: core.FetchTimeout, URL: url, Err: err}
	case errors.Is(parent.Err(), context.Canceled):
		return &core.FetchError{Kind: core.FetchCanceled, URL: url, Err: err}
	}

	var fe *core.FetchError
	if errors.As(err, &fe) {
		return &core.FetchError{Kind: fe.Kind, URL: url, StatusCode: fe.StatusCode, Err: fe.Err}
	}
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return &core.FetchError{Kind: core.FetchTimeout, URL: url, Err: err}
	}
	return &core.FetchError{Kind: core.FetchNetwork, URL: url, Err: err}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
