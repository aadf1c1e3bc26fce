package core

import "time"

// VerdictCounts tallies results by verdict.
type VerdictCounts struct {
	Pass         int `json:"pass"`
	Fail         int `json:"fail"`
	Inapplicable int `json:"inapplicable"`
	Error        int `json:"error"`
}

// Add counts one verdict.
func (c *VerdictCounts) Add(v Verdict) {
	switch v {
	case Pass:
		c.Pass++
	case Fail:
		c.Fail++
	case Inapplicable:
		c.Inapplicable++
	case Error:
		c.Error++
	}
}

// Total returns the number of counted results.
func (c VerdictCounts) Total() int {
	return c.Pass + c.Fail + c.Inapplicable + c.Error
}

// PageSummary tallies the element and page results of one page.
type PageSummary struct {
	URL        string                     `json:"url"`
	Status     PageStatus                 `json:"status"`
	FetchError *FetchError                `json:"fetch_error,omitempty"`
	Degraded   bool                       `json:"parse_degraded,omitempty"`
	Totals     VerdictCounts              `json:"totals"`
	BySeverity map[Severity]VerdictCounts `json:"by_severity"`
}

// RollUp summarizes one element or page check across all pages.
// Pages that were not fetched or not parsable are counted in Unfetched and
// left out of the rates; so are pages whose outcome was error or
// inapplicable. PassRate and FailRate are nil when no page was evaluated.
type RollUp struct {
	CheckID      string   `json:"check"`
	Scope        Scope    `json:"scope"`
	Severity     Severity `json:"severity"`
	Pages        int      `json:"pages"`
	Passed       int      `json:"passed"`
	Failed       int      `json:"failed"`
	Inapplicable int      `json:"inapplicable"`
	Errored      int      `json:"errored"`
	Unfetched    int      `json:"unfetched"`
	Evaluated    int      `json:"evaluated"`
	PassRate     *float64 `json:"pass_rate,omitempty"`
	FailRate     *float64 `json:"fail_rate,omitempty"`
	FailedPages  []string `json:"failed_pages,omitempty"`
}

// SiteSummary is the site-level view of a run.
type SiteSummary struct {
	BaseURL      string        `json:"base_url"`
	Pages        int           `json:"pages"`
	Fetched      int           `json:"fetched"`
	Unfetched    int           `json:"unfetched"`
	Degraded     int           `json:"degraded"`
	Totals       VerdictCounts `json:"totals"`
	SiteChecks   []CheckResult `json:"site_checks"`
	RollUps      []RollUp      `json:"rollups"`
	SitemapFound bool          `json:"sitemap_found"`
	RobotsFound  bool          `json:"robots_found"`
}

// RunInfo describes the run that produced a report. It is stamped by the
// runner after aggregation.
type RunInfo struct {
	ID        string        `json:"id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Partial   bool          `json:"partial,omitempty"` // run deadline hit
}

// AuditReport is the full output of a run.
type AuditReport struct {
	Run     *RunInfo      `json:"run,omitempty"`
	Site    SiteSummary   `json:"site"`
	Pages   []PageSummary `json:"pages"`
	Results []CheckResult `json:"results"`
}
