package core

import (
	"time"

	"github.com/PuerkitoBio/goquery"
)

// PageStatus is the outcome of fetching and parsing a page.
type PageStatus string

const (
	PageOK          PageStatus = "ok"
	PageFetchFailed PageStatus = "fetch-failed"
	PageError       PageStatus = "error" // fetched but not parsable as HTML
)

// Page is the parsed representation of one audited URL. It is created by
// the fetch/extract stage of a run and read-only afterwards.
type Page struct {
	URL           string            `json:"url"`
	FinalURL      string            `json:"final_url,omitempty"`
	Status        PageStatus        `json:"status"`
	FetchError    *FetchError       `json:"fetch_error,omitempty"`
	StatusCode    int               `json:"status_code,omitempty"`
	ContentType   string            `json:"content_type,omitempty"`
	FetchDuration time.Duration     `json:"fetch_duration,omitempty"`
	Raw           string            `json:"-"`
	Doc           *goquery.Document `json:"-"`
	Text          string            `json:"-"`
	Markdown      string            `json:"-"`
	Title         string            `json:"title,omitempty"`
	Description   string            `json:"description,omitempty"`
	Metadata      []StructuredItem  `json:"metadata,omitempty"`
	Degraded      bool              `json:"parse_degraded,omitempty"`
	ParseError    string            `json:"parse_error,omitempty"`
}

// OK reports whether the page was fetched and parsed.
func (p *Page) OK() bool {
	return p != nil && p.Status == PageOK && p.Doc != nil
}

// Failure describes why a page is not OK. Empty for OK pages.
func (p *Page) Failure() string {
	switch {
	case p == nil:
		return "page missing"
	case p.Status == PageFetchFailed && p.FetchError != nil:
		return "page not fetched: " + p.FetchError.Error()
	case p.Status == PageFetchFailed:
		return "page not fetched"
	case p.Status == PageError:
		return "page not parsable: " + p.ParseError
	case p.Doc == nil:
		return "page has no DOM"
	}
	return ""
}

// StructuredItem is one embedded metadata object, normalized to a flat
// key/value form regardless of whether it came from JSON-LD, microdata,
// RDFa or OpenGraph. Nested objects are flattened with dotted keys.
type StructuredItem struct {
	Format     string              `json:"format"`
	Types      []string            `json:"types,omitempty"`
	Properties map[string][]string `json:"properties"`
}

// Has reports whether the item carries key, optionally with value.
func (s StructuredItem) Has(key, value string) bool {
	vals, ok := s.Properties[key]
	if !ok {
		return false
	}
	if value == "" {
		return true
	}
	for _, v := range vals {
		if v == value {
			return true
		}
	}
	return false
}

// Structured metadata formats.
const (
	FormatJSONLD    = "json-ld"
	FormatMicrodata = "microdata"
	FormatRDFa      = "rdfa"
	FormatOpenGraph = "opengraph"
)

// RobotsPolicy answers robots.txt questions for the audited site.
type RobotsPolicy interface {
	Allowed(url string) bool
}

// SiteResources are site-wide files discovered for a run.
type SiteResources struct {
	SitemapURL   string       `json:"sitemap_url,omitempty"`
	SitemapFound bool         `json:"sitemap_found"`
	SitemapURLs  []string     `json:"sitemap_urls,omitempty"`
	RobotsFound  bool         `json:"robots_found"`
	Robots       RobotsPolicy `json:"-"`

	// Linked from the base page; Found means retrieved and well-formed.
	ManifestURL        string `json:"manifest_url,omitempty"`
	ManifestFound      bool   `json:"manifest_found"`
	BrowserConfigURL   string `json:"browserconfig_url,omitempty"`
	BrowserConfigFound bool   `json:"browserconfig_found"`
}

// Site is the ordered set of pages of one run, fetched or not.
type Site struct {
	BaseURL   string
	Pages     []*Page
	Resources SiteResources
}

// Page returns the page with the given URL, or nil.
func (s *Site) Page(url string) *Page {
	for _, p := range s.Pages {
		if p.URL == url {
			return p
		}
	}
	return nil
}

// Fetched returns the pages that were fetched and parsed.
func (s *Site) Fetched() []*Page {
	var out []*Page
	for _, p := range s.Pages {
		if p.OK() {
			out = append(out, p)
		}
	}
	return out
}
