// Package engine evaluates registered checks against pages and sites and
// drives a whole audit run.
package engine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/gaurav-prasanna/pageaudit/core"
	"github.com/gaurav-prasanna/pageaudit/core/check"
	"github.com/gaurav-prasanna/pageaudit/core/extract"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"
)

// Evaluator applies check definitions to subjects. A failing or panicking
// evaluator yields an error result; it never reaches the caller.
type Evaluator struct {
	log *logrus.Logger
}

// NewEvaluator creates an Evaluator that logs recovered faults to log.
func NewEvaluator(log *logrus.Logger) *Evaluator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Evaluator{log: log}
}

// EvaluatePageChecks runs every element and page check of reg against
// page, in registration order. Site checks are skipped; they run once all
// pages are in.
func (e *Evaluator) EvaluatePageChecks(page *core.Page, reg *check.Registry) []core.CheckResult {
	var results []core.CheckResult
	for _, def := range reg.All() {
		switch def.Scope {
		case core.ScopeElement:
			results = append(results, e.EvaluateElement(page, def)...)
		case core.ScopePage:
			results = append(results, e.EvaluatePage(page, def))
		case core.ScopeSite:
		default:
			results = append(results, def.Result(core.Subject{URL: page.URL},
				check.Outcome{Verdict: core.Error, Message: fmt.Sprintf("fault: unknown scope %q", def.Scope)}))
		}
	}
	return results
}

// EvaluateElement evaluates def against every element its selector matches
// on page, one result per match. No match yields a single inapplicable
// result.
func (e *Evaluator) EvaluateElement(page *core.Page, def check.Definition) []core.CheckResult {
	if !page.OK() {
		return []core.CheckResult{failedSubject(page, def)}
	}
	matcher := def.Matcher()
	if matcher == nil {
		m, err := cascadia.Compile(def.Selector)
		if err != nil {
			return []core.CheckResult{def.Result(core.Subject{URL: page.URL},
				check.Outcome{Verdict: core.Error, Message: fmt.Sprintf("fault: malformed selector %q: %v", def.Selector, err)})}
		}
		matcher = m
	}

	matches := page.Doc.FindMatcher(matcher)
	count := matches.Length()
	if count == 0 {
		return []core.CheckResult{def.Result(core.Subject{URL: page.URL, Locator: def.Selector},
			check.NotApplicable(fmt.Sprintf("no element matches %q", def.Selector)))}
	}

	results := make([]core.CheckResult, 0, count)
	matches.Each(func(i int, s *goquery.Selection) {
		el := check.Element{
			Page:      page,
			Selection: s,
			Index:     i + 1,
			Count:     count,
			Locator:   Locator(s),
		}
		el.Content, el.HasContent = content(s, def.Attribute)
		o := e.guard(def, page.URL, func() (check.Outcome, error) { return def.Element.EvaluateElement(el) })
		results = append(results, def.Result(core.Subject{URL: page.URL, Locator: el.Locator, Index: el.Index}, o))
	})
	return results
}

// EvaluatePage evaluates def against the whole page.
func (e *Evaluator) EvaluatePage(page *core.Page, def check.Definition) core.CheckResult {
	if !page.OK() {
		return failedSubject(page, def)
	}
	o := e.guard(def, page.URL, func() (check.Outcome, error) { return def.Page.EvaluatePage(page) })
	return def.Result(core.Subject{URL: page.URL}, o)
}

// EvaluateSite evaluates def against every page of the run. The subject
// is the site's base URL.
func (e *Evaluator) EvaluateSite(site *core.Site, def check.Definition) core.CheckResult {
	o := e.guard(def, site.BaseURL, func() (check.Outcome, error) { return def.Site.EvaluateSite(site) })
	return def.Result(core.Subject{URL: site.BaseURL}, o)
}

// guard runs fn, turning errors, panics and missing verdicts into error
// outcomes.
func (e *Evaluator) guard(def check.Definition, url string, fn func() (check.Outcome, error)) (o check.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			e.log.WithFields(logrus.Fields{"check": def.ID, "url": url}).Errorf("Check panicked: %v", r)
			o = check.Outcome{Verdict: core.Error, Message: fmt.Sprintf("fault: %v", r)}
		}
	}()

	o, err := fn()
	if err != nil {
		e.log.WithFields(logrus.Fields{"check": def.ID, "url": url}).Debugf("Check failed to evaluate: %v", err)
		return check.Outcome{Verdict: core.Error, Value: o.Value, Message: "fault: " + err.Error()}
	}
	switch o.Verdict {
	case core.Pass, core.Fail, core.Inapplicable, core.Error:
		return o
	default:
		return check.Outcome{Verdict: core.Error, Value: o.Value, Message: fmt.Sprintf("fault: invalid verdict %q", o.Verdict)}
	}
}

// failedSubject is the single result a page-bound check gets when the page
// could not be fetched or parsed.
func failedSubject(page *core.Page, def check.Definition) core.CheckResult {
	var url string
	if page != nil {
		url = page.URL
	}
	return def.Result(core.Subject{URL: url}, check.Outcome{Verdict: core.Error, Message: page.Failure()})
}

func content(s *goquery.Selection, attr string) (string, bool) {
	if attr == "" || attr == check.TextContent {
		return extract.VisibleText(s), true
	}
	v, ok := s.Attr(attr)
	return strings.TrimSpace(v), ok
}

// Locator returns a CSS path identifying the first node of s, anchored at
// the nearest ancestor with an id.
func Locator(s *goquery.Selection) string {
	if s.Length() == 0 {
		return ""
	}
	var parts []string
	for n := s.Nodes[0]; n != nil && n.Type == html.ElementNode; n = n.Parent {
		if id := attr(n, "id"); id != "" {
			parts = append(parts, n.Data+"#"+id)
			break
		}
		part := n.Data
		if pos, total := typePosition(n); total > 1 {
			part += ":nth-of-type(" + strconv.Itoa(pos) + ")"
		}
		parts = append(parts, part)
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, " > ")
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// typePosition returns the 1-based position of n among its siblings of the
// same element type, and how many such siblings there are.
func typePosition(n *html.Node) (pos, total int) {
	if n.Parent == nil {
		return 1, 1
	}
	for c := n.Parent.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.Data != n.Data {
			continue
		}
		total++
		if c == n {
			pos = total
		}
	}
	return pos, total
}
