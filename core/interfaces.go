// Package core defines the audit pipeline types and interfaces for PageAudit.
// Each stage of the pipeline is a clean, testable interface.
package core

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// RenderMode selects how a page is retrieved.
type RenderMode string

const (
	// RenderStatic fetches the raw HTTP response body.
	RenderStatic RenderMode = "static"
	// RenderBrowser loads the page in a headless browser and captures the
	// DOM after scripts have run.
	RenderBrowser RenderMode = "browser"
)

// ParseRenderMode validates a render mode name. Empty means static.
func ParseRenderMode(s string) (RenderMode, error) {
	switch RenderMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", RenderStatic:
		return RenderStatic, nil
	case RenderBrowser:
		return RenderBrowser, nil
	default:
		return "", fmt.Errorf("unknown render mode %q (want static or browser)", s)
	}
}

// FetchOptions control a single fetch.
type FetchOptions struct {
	Mode    RenderMode
	Timeout time.Duration // per attempt; zero means the fetcher default
	Retries int           // extra attempts after the first on network/timeout failures
}

// FetchResult holds the raw content and response metadata from a fetch.
type FetchResult struct {
	URL         string
	FinalURL    string
	StatusCode  int
	ContentType string
	HTML        string
	Attempts    int
	Duration    time.Duration
}

// RunOptions configure one audit run.
type RunOptions struct {
	RenderMode           RenderMode
	Timeout              time.Duration // per fetch attempt
	Retries              int
	MaxConcurrency       int
	MaxRenderConcurrency int           // browser fetches only
	RunTimeout           time.Duration // zero disables the run deadline
	IncludeSitemapURLs   bool
	SitemapURL           string // explicit sitemap location, optional
}

// FetchOptions derives per-fetch options from the run options.
func (o RunOptions) FetchOptions() FetchOptions {
	return FetchOptions{Mode: o.RenderMode, Timeout: o.Timeout, Retries: o.Retries}
}

// Fetcher retrieves raw page content for a URL. Failures are returned as
// *FetchError so callers can record them on the page.
type Fetcher interface {
	Fetch(ctx context.Context, url string, opts FetchOptions) (*FetchResult, error)
}

// Extractor turns fetched content into a Page.
type Extractor interface {
	Extract(result *FetchResult) *Page
}

// Normalizer converts page HTML into Markdown of its main content.
type Normalizer interface {
	Normalize(html string) (string, error)
}

// BasePage waits for the run's own fetch of the base page and returns it.
// It returns nil when ctx ends first.
type BasePage func(ctx context.Context) *Page

// SiteResolver discovers site-wide resources (sitemap, robots policy, web
// app manifest, browser config) for the site rooted at baseURL. Files the
// base page links to are looked up on the page base returns; a nil base
// skips them.
type SiteResolver interface {
	Resolve(ctx context.Context, baseURL string, base BasePage, opts RunOptions) (SiteResources, error)
}

// Renderer converts an audit report into a final output format.
type Renderer interface {
	Render(report *AuditReport) ([]byte, error)
	// Extension returns the file extension for this renderer (e.g. ".json", ".pdf").
	Extension() string
}
