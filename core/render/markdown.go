package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/gaurav-prasanna/pageaudit/core"
)

// MarkdownRenderer writes the report as a Markdown document: summary,
// site checks, per-check roll-ups, page table and findings.
type MarkdownRenderer struct{}

// NewMarkdownRenderer creates a MarkdownRenderer.
func NewMarkdownRenderer() *MarkdownRenderer {
	return &MarkdownRenderer{}
}

// Render builds the Markdown document.
func (r *MarkdownRenderer) Render(report *core.AuditReport) ([]byte, error) {
	if report == nil {
		return nil, errNilReport
	}
	var b strings.Builder
	site := report.Site

	fmt.Fprintf(&b, "# SEO audit: %s\n\n", site.BaseURL)
	if run := report.Run; run != nil {
		fmt.Fprintf(&b, "Run `%s` started %s, took %s.\n\n",
			run.ID, run.StartedAt.UTC().Format(time.RFC3339), run.Duration.Round(time.Millisecond))
		if run.Partial {
			b.WriteString("> The run deadline was reached; pages still queued were not fetched.\n\n")
		}
	}

	b.WriteString("## Summary\n\n")
	row(&b, "Pages", "Fetched", "Unfetched", "Degraded", "Pass", "Fail", "Inapplicable", "Error")
	separator(&b, 8)
	row(&b, itoa(site.Pages), itoa(site.Fetched), itoa(site.Unfetched), itoa(site.Degraded),
		itoa(site.Totals.Pass), itoa(site.Totals.Fail), itoa(site.Totals.Inapplicable), itoa(site.Totals.Error))
	fmt.Fprintf(&b, "\nSitemap: %s. robots.txt: %s.\n\n", found(site.SitemapFound), found(site.RobotsFound))

	if len(site.SiteChecks) > 0 {
		b.WriteString("## Site checks\n\n")
		row(&b, "Check", "Severity", "Verdict", "Message")
		separator(&b, 4)
		for _, c := range site.SiteChecks {
			row(&b, c.CheckID, string(c.Severity), string(c.Verdict), c.Message)
		}
		b.WriteString("\n")
	}

	if len(site.RollUps) > 0 {
		b.WriteString("## Checks across pages\n\n")
		row(&b, "Check", "Scope", "Severity", "Passed", "Failed", "Inapplicable", "Errored", "Unfetched", "Pass rate")
		separator(&b, 9)
		for _, ru := range site.RollUps {
			row(&b, ru.CheckID, string(ru.Scope), string(ru.Severity), itoa(ru.Passed), itoa(ru.Failed),
				itoa(ru.Inapplicable), itoa(ru.Errored), itoa(ru.Unfetched), FormatRate(ru.PassRate))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Pages\n\n")
	row(&b, "URL", "Status", "Pass", "Fail", "Inapplicable", "Error")
	separator(&b, 6)
	for _, p := range report.Pages {
		status := string(p.Status)
		if p.FetchError != nil {
			status += " (" + string(p.FetchError.Kind) + ")"
		} else if p.Degraded {
			status += " (degraded)"
		}
		row(&b, p.URL, status, itoa(p.Totals.Pass), itoa(p.Totals.Fail), itoa(p.Totals.Inapplicable), itoa(p.Totals.Error))
	}

	if fs := findings(report); len(fs) > 0 {
		b.WriteString("\n## Findings\n")
		for _, f := range fs {
			fmt.Fprintf(&b, "\n### %s\n\n", f.url)
			for _, res := range f.results {
				fmt.Fprintf(&b, "- **%s** (%s) %s\n", res.CheckID, res.Severity, inline(describe(res)))
			}
		}
	}
	return []byte(b.String()), nil
}

// Extension returns the file extension for Markdown output.
func (r *MarkdownRenderer) Extension() string {
	return ".md"
}

func row(b *strings.Builder, cells ...string) {
	b.WriteString("|")
	for _, c := range cells {
		b.WriteString(" " + cell(c) + " |")
	}
	b.WriteString("\n")
}

func separator(b *strings.Builder, n int) {
	b.WriteString("|" + strings.Repeat("---|", n) + "\n")
}

// cell keeps a value on one table row.
func cell(s string) string {
	return strings.ReplaceAll(inline(s), "|", `\|`)
}

func inline(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func itoa(n int) string {
	return fmt.Sprint(n)
}

func found(ok bool) string {
	if ok {
		return "found"
	}
	return "not found"
}
