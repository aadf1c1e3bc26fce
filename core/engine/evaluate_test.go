package engine

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/gaurav-prasanna/pageaudit/core"
	"github.com/gaurav-prasanna/pageaudit/core/check"
	"github.com/gaurav-prasanna/pageaudit/core/extract"
	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func pageFrom(t *testing.T, url, html string) *core.Page {
	t.Helper()
	p := extract.New(nil, quietLogger()).Extract(&core.FetchResult{URL: url, StatusCode: 200, ContentType: "text/html", HTML: html})
	if !p.OK() {
		t.Fatalf("fixture did not parse: %s", p.Failure())
	}
	return p
}

func registry(t *testing.T, defs ...check.Definition) *check.Registry {
	t.Helper()
	r, err := check.LoadCatalogues(check.Catalogue{Name: "test", Definitions: defs})
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestEvaluateElement_ZeroMatchesIsInapplicable(t *testing.T) {
	page := pageFrom(t, "https://a.test/", `<html><head><title>x</title></head><body><p>no headings</p></body></html>`)
	reg := registry(t,
		check.Definition{ID: "single-h1", Scope: core.ScopeElement, Selector: "h1", Element: check.Unique()},
		check.Definition{ID: "img-alt", Scope: core.ScopeElement, Selector: "img", Attribute: "alt", Element: check.AttributeFound()},
	)
	ev := NewEvaluator(quietLogger())
	for _, def := range reg.List(core.ScopeElement) {
		results := ev.EvaluateElement(page, def)
		if len(results) != 1 || results[0].Verdict != core.Inapplicable {
			t.Errorf("%s: got %+v, want one inapplicable result", def.ID, results)
		}
	}
}

func TestEvaluateElement_OneResultPerMatch(t *testing.T) {
	page := pageFrom(t, "https://a.test/", `<html><body>
		<img src="a.png" alt="A"><img src="b.png"><img src="c.png" alt="">
	</body></html>`)
	reg := registry(t, check.Definition{ID: "img-alt", Scope: core.ScopeElement, Selector: "img", Attribute: "alt", Element: check.AttributeFound()})
	def, _ := reg.Lookup("img-alt")

	results := NewEvaluator(quietLogger()).EvaluateElement(page, def)
	want := []core.Verdict{core.Pass, core.Fail, core.Fail}
	if len(results) != len(want) {
		t.Fatalf("got %d results, want %d", len(results), len(want))
	}
	for i, r := range results {
		if r.Verdict != want[i] || r.Subject.Index != i+1 {
			t.Errorf("result %d = %+v", i, r)
		}
	}
	if results[1].Subject.Locator != "html > body > img:nth-of-type(2)" {
		t.Errorf("locator = %q", results[1].Subject.Locator)
	}
}

func TestEvaluate_FaultsBecomeErrors(t *testing.T) {
	page := pageFrom(t, "https://a.test/", `<html><head><title>A title</title></head><body><h1>x</h1></body></html>`)
	reg := registry(t,
		check.Definition{ID: "panics", Scope: core.ScopePage, Page: check.PageFunc(func(*core.Page) (check.Outcome, error) {
			panic("boom")
		})},
		check.Definition{ID: "errors", Scope: core.ScopeElement, Selector: "h1", Element: check.ElementFunc(func(check.Element) (check.Outcome, error) {
			return check.Outcome{}, errors.New("cannot decide")
		})},
		check.Definition{ID: "no-verdict", Scope: core.ScopePage, Page: check.PageFunc(func(*core.Page) (check.Outcome, error) {
			return check.Outcome{}, nil
		})},
		check.Definition{ID: "single-title", Scope: core.ScopePage, Page: mustPage(check.ElementsCount("title", 1, 1))},
		check.Definition{ID: "robots", Scope: core.ScopeSite, Site: check.SiteFunc(func(*core.Site) (check.Outcome, error) {
			var m map[string]int
			m["x"]++
			return check.Outcome{}, nil
		})},
	)
	ev := NewEvaluator(quietLogger())

	results := ev.EvaluatePageChecks(page, reg)
	if len(results) != 4 {
		t.Fatalf("got %d results, want 4: %+v", len(results), results)
	}
	got := map[string]core.CheckResult{}
	for _, r := range results {
		got[r.CheckID] = r
	}
	if r := got["panics"]; r.Verdict != core.Error || r.Message != "fault: boom" {
		t.Errorf("panicking check = %+v", r)
	}
	if r := got["errors"]; r.Verdict != core.Error || !strings.Contains(r.Message, "cannot decide") {
		t.Errorf("erroring check = %+v", r)
	}
	if r := got["no-verdict"]; r.Verdict != core.Error {
		t.Errorf("check without verdict = %+v", r)
	}
	if r := got["single-title"]; r.Verdict != core.Pass {
		t.Errorf("sibling check = %+v", r)
	}

	site := &core.Site{BaseURL: page.URL, Pages: []*core.Page{page}}
	def, _ := reg.Lookup("robots")
	if r := ev.EvaluateSite(site, def); r.Verdict != core.Error || r.Subject.URL != page.URL {
		t.Errorf("panicking site check = %+v", r)
	}
}

func TestEvaluatePageChecks_UnfetchedPage(t *testing.T) {
	page := &core.Page{URL: "https://a.test/slow", Status: core.PageFetchFailed,
		FetchError: &core.FetchError{Kind: core.FetchTimeout, URL: "https://a.test/slow"}}
	reg := registry(t,
		check.Definition{ID: "single-h1", Scope: core.ScopeElement, Selector: "h1", Element: check.Unique()},
		check.Definition{ID: "well-formed", Scope: core.ScopePage, Page: check.WellFormed()},
		check.Definition{ID: "robots-found", Scope: core.ScopeSite, Site: check.RobotsFound()},
	)
	results := NewEvaluator(quietLogger()).EvaluatePageChecks(page, reg)
	if len(results) != 2 {
		t.Fatalf("got %d results, want one per element/page check", len(results))
	}
	for _, r := range results {
		if r.Verdict != core.Error || !strings.Contains(r.Message, "timeout") || r.Subject.URL != page.URL {
			t.Errorf("unexpected result %+v", r)
		}
	}
}

func TestLocator(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<html><body><div id="main"><p>a</p><p>b</p></div><section><h1>t</h1></section></body></html>`))
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		sel  *goquery.Selection
		want string
	}{
		{doc.Find("p").Eq(1), "div#main > p:nth-of-type(2)"},
		{doc.Find("h1"), "html > body > section > h1"},
		{doc.Find("nav"), ""},
	}
	for _, tt := range tests {
		if got := Locator(tt.sel); got != tt.want {
			t.Errorf("Locator() = %q, want %q", got, tt.want)
		}
	}
}

func mustPage(ev check.PageEvaluator, err error) check.PageEvaluator {
	if err != nil {
		panic(err)
	}
	return ev
}
