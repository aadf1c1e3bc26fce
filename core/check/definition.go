// Package check defines audit checks and the registry that holds them.
//
// A check is data: an id, a scope, an optional CSS selector and exactly one
// evaluator matching the scope. Built-in checks and YAML catalogues are
// both expressed as Definitions, so the engine never special-cases either.
package check

import (
	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/gaurav-prasanna/pageaudit/core"
)

// TextContent is the pseudo attribute naming an element's visible text.
const TextContent = "textContent"

// Element is the subject of an element-scope check: one selector match.
type Element struct {
	Page       *core.Page
	Selection  *goquery.Selection
	Index      int // 1-based position among the matches
	Count      int // total matches on the page
	Locator    string
	Content    string // value of the check's attribute
	HasContent bool   // false when the attribute is absent
}

// Outcome is what an evaluator decides about one subject.
type Outcome struct {
	Verdict core.Verdict
	Value   any
	Message string
}

// PassIf returns a pass outcome when ok holds and a fail outcome
// carrying msg otherwise.
func PassIf(ok bool, value any, msg string) Outcome {
	if ok {
		return Outcome{Verdict: core.Pass, Value: value}
	}
	return Outcome{Verdict: core.Fail, Value: value, Message: msg}
}

// NotApplicable returns an inapplicable outcome.
func NotApplicable(msg string) Outcome {
	return Outcome{Verdict: core.Inapplicable, Message: msg}
}

// ElementEvaluator decides one selector match.
type ElementEvaluator interface {
	EvaluateElement(el Element) (Outcome, error)
}

// PageEvaluator decides one page.
type PageEvaluator interface {
	EvaluatePage(page *core.Page) (Outcome, error)
}

// SiteEvaluator decides the whole site once all pages are in.
type SiteEvaluator interface {
	EvaluateSite(site *core.Site) (Outcome, error)
}

// ElementFunc adapts a function to ElementEvaluator.
type ElementFunc func(el Element) (Outcome, error)

func (f ElementFunc) EvaluateElement(el Element) (Outcome, error) { return f(el) }

// PageFunc adapts a function to PageEvaluator.
type PageFunc func(page *core.Page) (Outcome, error)

func (f PageFunc) EvaluatePage(page *core.Page) (Outcome, error) { return f(page) }

// SiteFunc adapts a function to SiteEvaluator.
type SiteFunc func(site *core.Site) (Outcome, error)

func (f SiteFunc) EvaluateSite(site *core.Site) (Outcome, error) { return f(site) }

// Definition describes one check. Exactly one of Element, Page or Site is
// set, matching Scope. Definitions are copied into the Registry and never
// changed afterwards.
type Definition struct {
	ID          string
	Scope       core.Scope
	Selector    string // element scope: which elements are subjects
	Attribute   string // element scope: defaults to TextContent
	Element     ElementEvaluator
	Page        PageEvaluator
	Site        SiteEvaluator
	Description string
	Severity    core.Severity

	matcher cascadia.Selector
}

// Matcher returns the compiled selector. It is nil until the definition
// has been registered.
func (d Definition) Matcher() goquery.Matcher {
	if d.matcher == nil {
		return nil
	}
	return d.matcher
}

// Result builds a CheckResult for this check from an outcome.
func (d Definition) Result(subject core.Subject, o Outcome) core.CheckResult {
	return core.CheckResult{
		CheckID:  d.ID,
		Scope:    d.Scope,
		Severity: d.Severity,
		Subject:  subject,
		Verdict:  o.Verdict,
		Value:    o.Value,
		Message:  o.Message,
	}
}
