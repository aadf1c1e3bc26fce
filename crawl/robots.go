package crawl

import (
	"context"
	"fmt"
	"net/url"

	"github.com/gaurav-prasanna/pageaudit/core"
	"github.com/temoto/robotstxt"
)

// RobotsPolicy answers robots.txt questions for one user agent.
type RobotsPolicy struct {
	group    *robotstxt.Group
	sitemaps []string
}

// ParseRobots builds a policy for userAgent from a robots.txt body.
func ParseRobots(body []byte, userAgent string) (*RobotsPolicy, error) {
	data, err := robotstxt.FromBytes(body)
	if err != nil {
		return nil, fmt.Errorf("parsing robots.txt: %w", err)
	}
	return &RobotsPolicy{group: data.FindGroup(userAgent), sitemaps: data.Sitemaps}, nil
}

// Allowed reports whether rawURL may be crawled.
func (p *RobotsPolicy) Allowed(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return true
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return p.group.Test(path)
}

// Sitemaps returns the sitemap locations robots.txt declares.
func (p *RobotsPolicy) Sitemaps() []string { return p.sitemaps }

func (r *Resolver) robots(ctx context.Context, loc string, opts core.RunOptions) (*RobotsPolicy, error) {
	res, err := r.get(ctx, loc, opts)
	if err != nil {
		return nil, err
	}
	return ParseRobots([]byte(res.HTML), r.userAgent)
}
