package core

import (
	"fmt"
	"strings"
)

// Scope is the granularity a check applies to.
type Scope string

const (
	ScopeElement Scope = "element"
	ScopePage    Scope = "page"
	ScopeSite    Scope = "site"
)

// Scopes lists every scope in evaluation and report order.
var Scopes = []Scope{ScopeElement, ScopePage, ScopeSite}

// ParseScope validates a scope name.
func ParseScope(s string) (Scope, error) {
	switch Scope(strings.ToLower(strings.TrimSpace(s))) {
	case ScopeElement:
		return ScopeElement, nil
	case ScopePage:
		return ScopePage, nil
	case ScopeSite:
		return ScopeSite, nil
	default:
		return "", fmt.Errorf("unknown scope %q", s)
	}
}

// Rank orders scopes element < page < site.
func (s Scope) Rank() int {
	switch s {
	case ScopeElement:
		return 0
	case ScopePage:
		return 1
	case ScopeSite:
		return 2
	default:
		return 3
	}
}

// Verdict is the outcome of evaluating a check against one subject.
type Verdict string

const (
	Pass         Verdict = "pass"
	Fail         Verdict = "fail"
	Inapplicable Verdict = "inapplicable" // no subject matched the selector
	Error        Verdict = "error"
)

// Severity weighs a check in summaries.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// ParseSeverity validates a severity name. Empty means warning.
func ParseSeverity(s string) (Severity, error) {
	switch Severity(strings.ToLower(strings.TrimSpace(s))) {
	case "", SeverityWarning:
		return SeverityWarning, nil
	case SeverityInfo:
		return SeverityInfo, nil
	case SeverityCritical:
		return SeverityCritical, nil
	default:
		return "", fmt.Errorf("unknown severity %q", s)
	}
}

// Subject identifies what a result is about: a page, or an element of a
// page. Site results use the site's base URL.
type Subject struct {
	URL     string `json:"url"`
	Locator string `json:"locator,omitempty"`
	Index   int    `json:"index,omitempty"` // 1-based match position, element scope only
}

func (s Subject) String() string {
	if s.Locator == "" {
		return s.URL
	}
	return s.URL + " " + s.Locator
}

// CheckResult is produced once per (check, subject) pair.
type CheckResult struct {
	CheckID  string   `json:"check"`
	Scope    Scope    `json:"scope"`
	Severity Severity `json:"severity"`
	Subject  Subject  `json:"subject"`
	Verdict  Verdict  `json:"verdict"`
	Value    any      `json:"value,omitempty"`
	Message  string   `json:"message,omitempty"`
}
