package render

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/gaurav-prasanna/pageaudit/core"
)

func sampleReport() *core.AuditReport {
	half := 0.5
	return &core.AuditReport{
		Run: &core.RunInfo{ID: "run-1", StartedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), Duration: 1500 * time.Millisecond},
		Site: core.SiteSummary{
			BaseURL: "https://a.test/", Pages: 2, Fetched: 1, Unfetched: 1,
			Totals: core.VerdictCounts{Pass: 1, Fail: 1, Error: 1},
			SiteChecks: []core.CheckResult{
				{CheckID: "robots-found", Scope: core.ScopeSite, Severity: core.SeverityInfo, Subject: core.Subject{URL: "https://a.test/"}, Verdict: core.Fail, Message: "no robots.txt"},
			},
			RollUps: []core.RollUp{
				{CheckID: "single-h1", Scope: core.ScopeElement, Severity: core.SeverityWarning, Pages: 2, Failed: 1, Unfetched: 1, Evaluated: 1, PassRate: new(float64), FailRate: &half},
			},
		},
		Pages: []core.PageSummary{
			{URL: "https://a.test/", Status: core.PageOK, Totals: core.VerdictCounts{Fail: 1}},
			{URL: "https://a.test/slow", Status: core.PageFetchFailed, FetchError: &core.FetchError{Kind: core.FetchTimeout, URL: "https://a.test/slow"}, Totals: core.VerdictCounts{Error: 1}},
		},
		Results: []core.CheckResult{
			{CheckID: "single-h1", Scope: core.ScopeElement, Severity: core.SeverityWarning, Subject: core.Subject{URL: "https://a.test/", Locator: "html > body > h1:nth-of-type(2)", Index: 2}, Verdict: core.Fail, Message: "h1 | appears 2 times"},
			{CheckID: "single-h1", Scope: core.ScopeElement, Severity: core.SeverityWarning, Subject: core.Subject{URL: "https://a.test/slow"}, Verdict: core.Error, Message: "page not fetched: timeout"},
			{CheckID: "robots-found", Scope: core.ScopeSite, Severity: core.SeverityInfo, Subject: core.Subject{URL: "https://a.test/"}, Verdict: core.Fail, Message: "no robots.txt"},
		},
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		format string
		ext    string
		ok     bool
	}{
		{"json", ".json", true},
		{"Markdown", ".md", true},
		{"md", ".md", true},
		{"pdf", ".pdf", true},
		{"embeddings", "", false},
	}
	for _, tt := range tests {
		r, err := New(tt.format)
		if (err == nil) != tt.ok {
			t.Errorf("New(%q) error = %v", tt.format, err)
			continue
		}
		if tt.ok && r.Extension() != tt.ext {
			t.Errorf("New(%q).Extension() = %q, want %q", tt.format, r.Extension(), tt.ext)
		}
	}
}

func TestRenderers_NilReport(t *testing.T) {
	for _, f := range Formats {
		r, _ := New(f)
		if _, err := r.Render(nil); err == nil {
			t.Errorf("%s: expected error for nil report", f)
		}
	}
}

func TestJSONRenderer(t *testing.T) {
	data, err := NewJSONRenderer().Render(sampleReport())
	if err != nil {
		t.Fatal(err)
	}
	var decoded struct {
		Run  struct{ ID string }
		Site struct {
			RollUps []struct {
				Check    string   `json:"check"`
				PassRate *float64 `json:"pass_rate"`
			} `json:"rollups"`
		}
		Pages []struct {
			FetchError struct {
				Kind string `json:"kind"`
			} `json:"fetch_error"`
		}
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if decoded.Run.ID != "run-1" || len(decoded.Site.RollUps) != 1 || decoded.Site.RollUps[0].PassRate == nil {
		t.Errorf("decoded = %+v", decoded)
	}
	if decoded.Pages[1].FetchError.Kind != "timeout" {
		t.Errorf("fetch error kind = %q", decoded.Pages[1].FetchError.Kind)
	}
}

func TestMarkdownRenderer(t *testing.T) {
	data, err := NewMarkdownRenderer().Render(sampleReport())
	if err != nil {
		t.Fatal(err)
	}
	md := string(data)
	for _, want := range []string{
		"# SEO audit: https://a.test/",
		"Run `run-1` started 2026-01-02T03:04:05Z, took 1.5s.",
		"| 2 | 1 | 1 | 0 | 1 | 1 | 0 | 1 |",
		"| robots-found | info | fail | no robots.txt |",
		"| single-h1 | element | warning | 0 | 1 | 0 | 0 | 1 | 0.0% |",
		"| https://a.test/slow | fetch-failed (timeout) | 0 | 0 | 0 | 1 |",
		"### https://a.test/slow",
		`- **single-h1** (warning) fail at html > body > h1:nth-of-type(2): h1 | appears 2 times`,
		"Sitemap: not found. robots.txt: not found.",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q\n%s", want, md)
		}
	}
	if strings.Contains(md, "### https://a.test/\n\n- **robots-found**") {
		t.Error("site results listed as page findings")
	}
}

func TestPDFRenderer(t *testing.T) {
	report := sampleReport()
	report.Site.BaseURL = "https://café.test/"
	data, err := NewPDFRenderer().Render(report)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Errorf("output does not start with a PDF header: %q", data[:min(len(data), 8)])
	}
}

func TestFormatRate(t *testing.T) {
	r := 2.0 / 3.0
	if got := FormatRate(&r); got != "66.7%" {
		t.Errorf("FormatRate = %q", got)
	}
	if got := FormatRate(nil); got != "n/a" {
		t.Errorf("FormatRate(nil) = %q", got)
	}
}
