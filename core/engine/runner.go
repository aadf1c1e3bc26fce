package engine

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gaurav-prasanna/pageaudit/core"
	"github.com/gaurav-prasanna/pageaudit/core/aggregate"
	"github.com/gaurav-prasanna/pageaudit/core/check"
	"github.com/gaurav-prasanna/pageaudit/crawl"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

const (
	DefaultConcurrency       = 4
	DefaultRenderConcurrency = 2
)

// ErrNoURLs is returned by Run when there is nothing to audit.
var ErrNoURLs = errors.New("no URLs to audit")

// Runner executes audit runs: a bounded pool of workers fetches, extracts
// and checks pages, then site checks run over the collected pages and the
// results are aggregated into a report.
type Runner struct {
	fetcher   core.Fetcher
	extractor core.Extractor
	resolver  core.SiteResolver
	registry  *check.Registry
	eval      *Evaluator
	log       *logrus.Logger
	now       func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithResolver sets the resolver used to discover the sitemap and
// robots.txt. Without one, site resources are reported as missing.
func WithResolver(r core.SiteResolver) Option {
	return func(rn *Runner) { rn.resolver = r }
}

// WithClock overrides the clock used to stamp run metadata.
func WithClock(now func() time.Time) Option {
	return func(rn *Runner) { rn.now = now }
}

// NewRunner creates a Runner. The registry is only read during runs.
func NewRunner(fetcher core.Fetcher, extractor core.Extractor, registry *check.Registry, log *logrus.Logger, opts ...Option) *Runner {
	if log == nil {
		log = logrus.StandardLogger()
	}
	r := &Runner{
		fetcher:   fetcher,
		extractor: extractor,
		registry:  registry,
		eval:      NewEvaluator(log),
		log:       log,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type job struct {
	index int
	url   string
}

type pageOutcome struct {
	index   int
	page    *core.Page
	results []core.CheckResult
}

// Run audits urls. The first URL is the site's base URL. Per-page failures
// and an expired RunTimeout degrade the report; only an empty URL list or
// an aggregation fault is returned as an error.
func (r *Runner) Run(ctx context.Context, urls []string, opts core.RunOptions) (*core.AuditReport, error) {
	queue := crawl.NewQueue()
	for _, u := range urls {
		queue.Add(u)
	}
	if queue.Visited() == 0 {
		return nil, ErrNoURLs
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = DefaultConcurrency
	}
	if opts.MaxRenderConcurrency <= 0 {
		opts.MaxRenderConcurrency = DefaultRenderConcurrency
	}

	started := r.now()
	runCtx, cancel := ctx, context.CancelFunc(func() {})
	if opts.RunTimeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, opts.RunTimeout)
	}
	defer cancel()

	var sem *semaphore.Weighted
	if opts.RenderMode == core.RenderBrowser {
		sem = semaphore.NewWeighted(int64(opts.MaxRenderConcurrency))
	}

	// The resolver reads the base page from the pool instead of fetching
	// it again. With sitemap URLs, the base page is audited first since the
	// run list depends on it.
	base := queue.All()[0]
	basePage := newPageFuture()
	var first *pageOutcome
	var resources core.SiteResources
	var resolving sync.WaitGroup
	if opts.IncludeSitemapURLs {
		o := r.process(runCtx, 0, job{index: 0, url: queue.Next()}, opts, sem)
		first = &o
		basePage.set(o.page)
		resources = r.resolve(runCtx, base, basePage.get, opts)
		added := 0
		for _, u := range resources.SitemapURLs {
			if sameHost(u, base) && queue.Add(u) {
				added++
			}
		}
		r.log.WithField("added", added).Info("Sitemap URLs added to the run")
	} else {
		resolving.Add(1)
		go func() {
			defer resolving.Done()
			resources = r.resolve(runCtx, base, basePage.get, opts)
		}()
	}

	n := queue.Visited()
	pages := make([]*core.Page, n)
	pageResults := make([][]core.CheckResult, n)
	if first != nil {
		pages[0], pageResults[0] = first.page, first.results
	}

	jobs := make(chan job)
	outcomes := make(chan pageOutcome)
	collected := make(chan struct{})

	// single writer for pages and pageResults
	go func() {
		defer close(collected)
		for o := range outcomes {
			pages[o.index] = o.page
			pageResults[o.index] = o.results
			if o.index == 0 {
				basePage.set(o.page)
			}
		}
	}()

	workers := min(opts.MaxConcurrency, n)
	r.log.WithFields(logrus.Fields{"urls": n, "workers": workers, "mode": opts.RenderMode}).Info("Audit started")

	var wg sync.WaitGroup
	for w := 1; w <= workers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := range jobs {
				outcomes <- r.process(runCtx, id, j, opts, sem)
			}
		}(w)
	}
	for i := n - queue.Remaining(); queue.HasNext(); i++ {
		jobs <- job{index: i, url: queue.Next()}
	}
	close(jobs)
	wg.Wait()
	close(outcomes)
	<-collected
	resolving.Wait()

	partial := errors.Is(runCtx.Err(), context.DeadlineExceeded)
	if partial {
		r.log.Warn("Run deadline exceeded, aggregating partial results")
	}

	site := &core.Site{BaseURL: base, Pages: pages, Resources: resources}
	var siteResults []core.CheckResult
	for _, def := range r.registry.List(core.ScopeSite) {
		siteResults = append(siteResults, r.eval.EvaluateSite(site, def))
	}
	var all []core.CheckResult
	for _, res := range pageResults {
		all = append(all, res...)
	}

	report, err := aggregate.Aggregate(site, all, siteResults)
	if err != nil {
		return nil, fmt.Errorf("aggregating results: %w", err)
	}
	report.Run = &core.RunInfo{
		ID:        uuid.NewString(),
		StartedAt: started,
		Duration:  r.now().Sub(started),
		Partial:   partial,
	}
	r.log.WithFields(logrus.Fields{
		"run_id":  report.Run.ID,
		"fetched": report.Site.Fetched,
		"pass":    report.Site.Totals.Pass,
		"fail":    report.Site.Totals.Fail,
		"error":   report.Site.Totals.Error,
	}).Info("Audit finished")
	return report, nil
}

// process runs one page through fetch, extract and element/page checks.
func (r *Runner) process(ctx context.Context, workerID int, j job, opts core.RunOptions, sem *semaphore.Weighted) pageOutcome {
	log := r.log.WithFields(logrus.Fields{"url": j.url, "worker_id": workerID})
	page := r.fetchPage(ctx, j.url, opts, sem, log)
	if page.OK() {
		log.WithField("degraded", page.Degraded).Debug("Page extracted")
	} else {
		log.Warnf("Page not audited: %s", page.Failure())
	}
	return pageOutcome{index: j.index, page: page, results: r.eval.EvaluatePageChecks(page, r.registry)}
}

func (r *Runner) fetchPage(ctx context.Context, url string, opts core.RunOptions, sem *semaphore.Weighted, log *logrus.Entry) *core.Page {
	// URLs still queued when the run deadline passes are never fetched.
	if err := ctx.Err(); err != nil {
		return failedPage(url, deadlineError(url, err))
	}
	if sem != nil {
		if err := sem.Acquire(ctx, 1); err != nil {
			return failedPage(url, deadlineError(url, err))
		}
		defer sem.Release(1)
	}

	res, err := r.fetcher.Fetch(ctx, url, opts.FetchOptions())
	if err != nil {
		var fe *core.FetchError
		if !errors.As(err, &fe) {
			fe = &core.FetchError{Kind: core.FetchNetwork, URL: url, Err: err}
		}
		return failedPage(url, fe)
	}
	log.WithFields(logrus.Fields{"status": res.StatusCode, "attempts": res.Attempts}).Debug("Page fetched")
	page := r.extractor.Extract(res)
	page.URL = url
	return page
}

func (r *Runner) resolve(ctx context.Context, base string, page core.BasePage, opts core.RunOptions) core.SiteResources {
	if r.resolver == nil {
		return core.SiteResources{}
	}
	res, err := r.resolver.Resolve(ctx, base, page, opts)
	if err != nil {
		r.log.WithField("url", base).Warnf("Site resources incomplete: %v", err)
	}
	return res
}

func failedPage(url string, fe *core.FetchError) *core.Page {
	return &core.Page{URL: url, Status: core.PageFetchFailed, FetchError: fe, StatusCode: fe.StatusCode}
}

func deadlineError(url string, err error) *core.FetchError {
	kind := core.FetchCanceled
	if errors.Is(err, context.DeadlineExceeded) {
		kind = core.FetchTimeout
	}
	return &core.FetchError{Kind: kind, URL: url, Err: err}
}

func sameHost(a, b string) bool {
	ua, err := url.Parse(a)
	if err != nil {
		return false
	}
	return crawl.IsSameDomain(b, ua.Host)
}

// pageFuture hands the base page from the pool to the resolver.
type pageFuture struct {
	once  sync.Once
	ready chan struct{}
	page  *core.Page
}

func newPageFuture() *pageFuture {
	return &pageFuture{ready: make(chan struct{})}
}

func (f *pageFuture) set(p *core.Page) {
	f.once.Do(func() {
		f.page = p
		close(f.ready)
	})
}

func (f *pageFuture) get(ctx context.Context) *core.Page {
	select {
	case <-f.ready:
		return f.page
	case <-ctx.Done():
		return nil
	}
}
