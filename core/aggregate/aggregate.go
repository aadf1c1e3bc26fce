// Package aggregate combines check results into an AuditReport.
// Aggregation is pure: the same results in any order produce the same
// report.
package aggregate

import (
	"errors"
	"fmt"
	"sort"

	"github.com/gaurav-prasanna/pageaudit/core"
)

// ErrOrphanResult is returned when a result names a page outside the site.
var ErrOrphanResult = errors.New("result references a page outside the site")

// Aggregate builds the report for site from the element and page results
// of every page and the site-scope results.
func Aggregate(site *core.Site, pageResults, siteResults []core.CheckResult) (*core.AuditReport, error) {
	known := make(map[string]bool, len(site.Pages))
	for _, p := range site.Pages {
		known[p.URL] = true
	}
	for _, r := range pageResults {
		if !known[r.Subject.URL] {
			return nil, fmt.Errorf("%w: check %s, url %q", ErrOrphanResult, r.CheckID, r.Subject.URL)
		}
	}
	for _, r := range siteResults {
		if r.Subject.URL != site.BaseURL && !known[r.Subject.URL] {
			return nil, fmt.Errorf("%w: check %s, url %q", ErrOrphanResult, r.CheckID, r.Subject.URL)
		}
	}

	byPage := sorted(pageResults)
	siteChecks := sorted(siteResults)

	report := &core.AuditReport{
		Pages:   pageSummaries(site, byPage),
		Results: sorted(append(append([]core.CheckResult(nil), pageResults...), siteResults...)),
	}
	report.Site = core.SiteSummary{
		BaseURL:      site.BaseURL,
		Pages:        len(site.Pages),
		SiteChecks:   siteChecks,
		RollUps:      rollUps(site, byPage),
		SitemapFound: site.Resources.SitemapFound,
		RobotsFound:  site.Resources.RobotsFound,
	}
	for _, p := range site.Pages {
		if p.OK() {
			report.Site.Fetched++
			if p.Degraded {
				report.Site.Degraded++
			}
		} else {
			report.Site.Unfetched++
		}
	}
	for _, r := range report.Results {
		report.Site.Totals.Add(r.Verdict)
	}
	return report, nil
}

// sorted returns a copy of results ordered by scope, check id, subject URL,
// element index, verdict and message.
func sorted(results []core.CheckResult) []core.CheckResult {
	out := append([]core.CheckResult(nil), results...)
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func less(a, b core.CheckResult) bool {
	if a.Scope != b.Scope {
		return a.Scope.Rank() < b.Scope.Rank()
	}
	if a.CheckID != b.CheckID {
		return a.CheckID < b.CheckID
	}
	if a.Subject.URL != b.Subject.URL {
		return a.Subject.URL < b.Subject.URL
	}
	if a.Subject.Index != b.Subject.Index {
		return a.Subject.Index < b.Subject.Index
	}
	if a.Subject.Locator != b.Subject.Locator {
		return a.Subject.Locator < b.Subject.Locator
	}
	if a.Verdict != b.Verdict {
		return a.Verdict < b.Verdict
	}
	if a.Message != b.Message {
		return a.Message < b.Message
	}
	return fmt.Sprint(a.Value) < fmt.Sprint(b.Value)
}

func pageSummaries(site *core.Site, results []core.CheckResult) []core.PageSummary {
	index := make(map[string]int, len(site.Pages))
	summaries := make([]core.PageSummary, len(site.Pages))
	for i, p := range site.Pages {
		index[p.URL] = i
		summaries[i] = core.PageSummary{
			URL:        p.URL,
			Status:     p.Status,
			FetchError: p.FetchError,
			Degraded:   p.Degraded,
			BySeverity: make(map[core.Severity]core.VerdictCounts),
		}
	}
	for _, r := range results {
		s := &summaries[index[r.Subject.URL]]
		s.Totals.Add(r.Verdict)
		counts := s.BySeverity[r.Severity]
		counts.Add(r.Verdict)
		s.BySeverity[r.Severity] = counts
	}
	return summaries
}

// rollUps summarizes each element and page check over all pages. results
// must be sorted.
func rollUps(site *core.Site, results []core.CheckResult) []core.RollUp {
	var out []core.RollUp
	for start := 0; start < len(results); {
		end := start
		for end < len(results) && results[end].CheckID == results[start].CheckID && results[end].Scope == results[start].Scope {
			end++
		}
		out = append(out, rollUp(site, results[start:end]))
		start = end
	}
	return out
}

func rollUp(site *core.Site, results []core.CheckResult) core.RollUp {
	first := results[0]
	ru := core.RollUp{CheckID: first.CheckID, Scope: first.Scope, Severity: first.Severity, Pages: len(site.Pages)}

	perPage := make(map[string][]core.Verdict)
	for _, r := range results {
		perPage[r.Subject.URL] = append(perPage[r.Subject.URL], r.Verdict)
	}

	for _, p := range site.Pages {
		if !p.OK() {
			ru.Unfetched++
			continue
		}
		switch pageOutcome(perPage[p.URL]) {
		case core.Pass:
			ru.Passed++
		case core.Fail:
			ru.Failed++
			ru.FailedPages = append(ru.FailedPages, p.URL)
		case core.Error:
			ru.Errored++
		default:
			ru.Inapplicable++
		}
	}

	ru.Evaluated = ru.Passed + ru.Failed
	if ru.Evaluated > 0 {
		pass := float64(ru.Passed) / float64(ru.Evaluated)
		fail := float64(ru.Failed) / float64(ru.Evaluated)
		ru.PassRate, ru.FailRate = &pass, &fail
	}
	return ru
}

// pageOutcome folds the results of one check on one page: any error wins,
// then any failure, then any pass.
func pageOutcome(verdicts []core.Verdict) core.Verdict {
	var seen core.VerdictCounts
	for _, v := range verdicts {
		seen.Add(v)
	}
	switch {
	case seen.Error > 0:
		return core.Error
	case seen.Fail > 0:
		return core.Fail
	case seen.Pass > 0:
		return core.Pass
	default:
		return core.Inapplicable
	}
}
