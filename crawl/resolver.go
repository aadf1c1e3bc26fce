// Package crawl discovers the site-wide resources of an audit run:
// robots.txt, the sitemap and the files the base page links to. It also provides the URL list helpers the
// runner uses to keep one page per address.
package crawl

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/gaurav-prasanna/pageaudit/core"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Resolver implements core.SiteResolver on top of a core.Fetcher.
type Resolver struct {
	fetcher   core.Fetcher
	userAgent string
	log       *logrus.Logger
	flight    singleflight.Group // concurrent resolutions share fetches
}

// NewResolver creates a Resolver. userAgent selects the robots.txt group;
// empty means "*".
func NewResolver(fetcher core.Fetcher, userAgent string, log *logrus.Logger) *Resolver {
	if userAgent == "" {
		userAgent = "*"
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Resolver{fetcher: fetcher, userAgent: userAgent, log: log}
}

// Resolve looks up robots.txt, the sitemap, and the web app manifest and
// browser config the base page links to, for the site rooted at baseURL.
// Missing files are reported in the result, not as errors; an error means
// the base URL is invalid or ctx ended.
//
// Sitemap locations are tried in order: opts.SitemapURL, the base page's
// link[rel=sitemap], Sitemap lines of robots.txt, then /sitemap.xml.
func (r *Resolver) Resolve(ctx context.Context, baseURL string, base core.BasePage, opts core.RunOptions) (core.SiteResources, error) {
	var res core.SiteResources
	root, err := Root(baseURL)
	if err != nil {
		return res, err
	}
	log := r.log.WithField("site", root.String())

	robots, err := r.robots(ctx, root.String()+"/robots.txt", opts)
	if err != nil {
		log.Debugf("No robots.txt: %v", err)
	} else {
		res.RobotsFound = true
		res.Robots = robots
	}

	var page *core.Page
	if base != nil {
		page = base(ctx)
	}

	candidates := NewQueue()
	if opts.SitemapURL != "" {
		candidates.Add(resolveURL(opts.SitemapURL, root))
	}
	if href := linkedURL(page, `link[rel="sitemap"]`, "href"); href != "" {
		candidates.Add(href)
	}
	if robots != nil {
		for _, s := range robots.sitemaps {
			candidates.Add(resolveURL(s, root))
		}
	}
	candidates.Add(root.String() + "/sitemap.xml")

	for candidates.HasNext() {
		loc := candidates.Next()
		urls, err := r.sitemap(ctx, loc, opts)
		if err != nil {
			log.WithField("sitemap", loc).Debugf("Sitemap not usable: %v", err)
			continue
		}
		res.SitemapFound = true
		res.SitemapURL = loc
		for _, u := range urls {
			if IsSameDomain(u, root.Host) && !IsStaticAsset(u) {
				res.SitemapURLs = append(res.SitemapURLs, u)
			}
		}
		log.WithFields(logrus.Fields{"sitemap": loc, "urls": len(res.SitemapURLs)}).Info("Sitemap found")
		break
	}

	if res.ManifestURL = linkedURL(page, `link[rel="manifest"]`, "href"); res.ManifestURL != "" {
		res.ManifestFound = r.linkedFile(ctx, res.ManifestURL, opts, validJSON)
	}
	if res.BrowserConfigURL = linkedURL(page, `meta[name="msapplication-config"]`, "content"); res.BrowserConfigURL != "" {
		res.BrowserConfigFound = r.linkedFile(ctx, res.BrowserConfigURL, opts, validXML)
	}

	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("resolving site resources: %w", err)
	}
	return res, nil
}

// linkedURL returns the absolute URL in attr of the first element of page
// matching selector, or "".
func linkedURL(page *core.Page, selector, attr string) string {
	if !page.OK() {
		return ""
	}
	href := strings.TrimSpace(page.Doc.Find(selector).First().AttrOr(attr, ""))
	if href == "" {
		return ""
	}
	loc := page.FinalURL
	if loc == "" {
		loc = page.URL
	}
	base, err := url.Parse(loc)
	if err != nil {
		return ""
	}
	return resolveURL(href, base)
}

// linkedFile fetches loc and reports whether its body passes validate.
func (r *Resolver) linkedFile(ctx context.Context, loc string, opts core.RunOptions, validate func(string) error) bool {
	res, err := r.get(ctx, loc, opts)
	if err == nil {
		err = validate(res.HTML)
	}
	if err != nil {
		r.log.WithField("url", loc).Debugf("Linked file not usable: %v", err)
		return false
	}
	return true
}

func validJSON(body string) error {
	if !json.Valid([]byte(body)) {
		return errors.New("invalid JSON")
	}
	return nil
}

// validXML accepts a well-formed document with a root element.
func validXML(body string) error {
	dec := xml.NewDecoder(strings.NewReader(body))
	// Bodies arrive already decoded to UTF-8.
	dec.CharsetReader = func(_ string, in io.Reader) (io.Reader, error) { return in, nil }
	root := false
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			if !root {
				return errors.New("no root element")
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("invalid XML: %w", err)
		}
		if _, ok := tok.(xml.StartElement); ok {
			root = true
		}
	}
}

// get fetches a site file statically. Concurrent requests for one URL
// share a single fetch.
func (r *Resolver) get(ctx context.Context, loc string, opts core.RunOptions) (*core.FetchResult, error) {
	v, err, _ := r.flight.Do(loc, func() (any, error) {
		return r.fetcher.Fetch(ctx, loc, core.FetchOptions{Mode: core.RenderStatic, Timeout: opts.Timeout, Retries: opts.Retries})
	})
	if err != nil {
		return nil, err
	}
	return v.(*core.FetchResult), nil
}
