// Package render serializes audit reports. Each renderer implements
// core.Renderer for one output format.
package render

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gaurav-prasanna/pageaudit/core"
)

var errNilReport = errors.New("render: nil report")

// Formats lists the accepted output format names.
var Formats = []string{"json", "markdown", "pdf"}

// New returns the renderer for a format name.
func New(format string) (core.Renderer, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		return NewJSONRenderer(), nil
	case "markdown", "md":
		return NewMarkdownRenderer(), nil
	case "pdf":
		return NewPDFRenderer(), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want one of %s)", format, strings.Join(Formats, ", "))
	}
}

// FormatRate renders a roll-up rate; nil means no page was evaluated.
func FormatRate(rate *float64) string {
	if rate == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", *rate*100)
}

// finding holds the failed or errored result of one page.
type finding struct {
	url     string
	results []core.CheckResult
}

// findings groups fail and error results by page, in page order. Site
// results are reported separately and left out.
func findings(report *core.AuditReport) []finding {
	byURL := make(map[string][]core.CheckResult)
	for _, r := range report.Results {
		if r.Scope == core.ScopeSite || (r.Verdict != core.Fail && r.Verdict != core.Error) {
			continue
		}
		byURL[r.Subject.URL] = append(byURL[r.Subject.URL], r)
	}
	var out []finding
	for _, p := range report.Pages {
		if rs := byURL[p.URL]; len(rs) > 0 {
			out = append(out, finding{url: p.URL, results: rs})
		}
	}
	return out
}

func describe(r core.CheckResult) string {
	var b strings.Builder
	b.WriteString(string(r.Verdict))
	if r.Subject.Locator != "" {
		b.WriteString(" at " + r.Subject.Locator)
	}
	if r.Message != "" {
		b.WriteString(": " + r.Message)
	}
	return b.String()
}
