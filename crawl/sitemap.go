package crawl

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gaurav-prasanna/pageaudit/core"
)

type sitemapLoc struct {
	Loc string `xml:"loc"`
}

// sitemapDoc reads both <urlset> and <sitemapindex> documents.
type sitemapDoc struct {
	XMLName  xml.Name
	URLs     []sitemapLoc `xml:"url"`
	Sitemaps []sitemapLoc `xml:"sitemap"`
}

// ParseSitemap decodes a sitemap or sitemap index. It returns the page
// URLs of a urlset, or the child sitemap URLs of an index.
func ParseSitemap(body string) (urls []string, children []string, err error) {
	dec := xml.NewDecoder(strings.NewReader(body))
	// Bodies arrive already decoded to UTF-8.
	dec.CharsetReader = func(_ string, in io.Reader) (io.Reader, error) { return in, nil }

	var doc sitemapDoc
	if err := dec.Decode(&doc); err != nil {
		return nil, nil, fmt.Errorf("decoding sitemap: %w", err)
	}
	switch doc.XMLName.Local {
	case "urlset":
		return locs(doc.URLs), nil, nil
	case "sitemapindex":
		return nil, locs(doc.Sitemaps), nil
	default:
		return nil, nil, fmt.Errorf("unexpected sitemap root <%s>", doc.XMLName.Local)
	}
}

func locs(in []sitemapLoc) []string {
	out := make([]string, 0, len(in))
	for _, l := range in {
		if loc := strings.TrimSpace(l.Loc); loc != "" {
			out = append(out, loc)
		}
	}
	return out
}

// sitemap fetches loc and returns its page URLs. Sitemap indexes are
// followed one level deep.
func (r *Resolver) sitemap(ctx context.Context, loc string, opts core.RunOptions) ([]string, error) {
	res, err := r.get(ctx, loc, opts)
	if err != nil {
		return nil, err
	}
	urls, children, err := ParseSitemap(res.HTML)
	if err != nil {
		return nil, err
	}
	if len(children) == 0 {
		return urls, nil
	}

	var errs []error
	for _, child := range children {
		res, err := r.get(ctx, child, opts)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		childURLs, _, err := ParseSitemap(res.HTML)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", child, err))
			continue
		}
		urls = append(urls, childURLs...)
	}
	if len(urls) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	for _, err := range errs {
		r.log.WithField("sitemap", loc).Debugf("Child sitemap skipped: %v", err)
	}
	return urls, nil
}
