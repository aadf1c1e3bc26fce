package check

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gaurav-prasanna/pageaudit/core"
)

const shopCatalogue = `
name: shop
checks:
  - id: title-has-brand
    scope: element
    selector: head > title
    severity: info
    description: Title names the brand
    rule: {type: regex, pattern: "Acme"}
  - id: h2-count
    scope: page
    selector: h2
    rule: {type: elements-count, min: 3}
  - id: product-data
    scope: page
    severity: critical
    rule:
      type: structured-data
      format: json-ld
      key: "@type"
      value: Product
  - id: title-in-h1
    scope: page
    rule:
      type: elements-similarity
      first: {selector: title}
      second: {selector: h1}
      most_common: 2
      stop_words: [the, and]
      stem: true
  - id: main-in-title
    scope: page
    rule:
      type: elements-similarity
      first: {main_content: true}
      second: {selector: title}
      most_common: 1
  - id: main-words
    scope: page
    rule: {type: main-content-words, min: 20}
  - id: sitemap
    scope: site
    rule: {type: sitemap-found}
`

func TestDecodeCatalogue(t *testing.T) {
	c, err := DecodeCatalogue(strings.NewReader(shopCatalogue), "fallback")
	if err != nil {
		t.Fatalf("DecodeCatalogue() error = %v", err)
	}
	if c.Name != "shop" || len(c.Definitions) != 7 {
		t.Fatalf("unexpected catalogue %s with %d checks", c.Name, len(c.Definitions))
	}
	if d := c.Definitions[0]; d.Scope != core.ScopeElement || d.Element == nil || d.Severity != core.SeverityInfo {
		t.Errorf("element check decoded wrong: %+v", d)
	}
	if d := c.Definitions[2]; d.Severity != core.SeverityCritical || d.Page == nil {
		t.Errorf("page check decoded wrong: %+v", d)
	}

	r, err := LoadCatalogues(Builtin(), c)
	if err != nil {
		t.Fatalf("LoadCatalogues() error = %v", err)
	}
	h2, _ := r.Lookup("h2-count")
	page := pageFrom(t, "https://acme.test/", richPage)
	if o, _ := h2.Page.EvaluatePage(page); o.Verdict != core.Fail {
		t.Errorf("extension h2-count should require 3 headings, got %s", o.Verdict)
	}
}

func TestDecodeCatalogue_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown rule", "checks: [{id: a, scope: page, rule: {type: pagerank}}]"},
		{"scope mismatch", "checks: [{id: a, scope: element, selector: h1, rule: {type: dom-size, max: 10}}]"},
		{"bad scope", "checks: [{id: a, scope: row, rule: {type: unique}}]"},
		{"bad regex", "checks: [{id: a, scope: element, selector: h1, rule: {type: regex, pattern: '('}}]"},
		{"missing max", "checks: [{id: a, scope: element, selector: h1, rule: {type: max-length}}]"},
		{"count without selector", "checks: [{id: a, scope: page, rule: {type: elements-count, min: 1}}]"},
		{"unknown field", "checks: [{id: a, scope: page, colour: red, rule: {type: well-formed}}]"},
		{"negative word count", "checks: [{id: a, scope: page, rule: {type: main-content-words, min: -1}}]"},
		{"bad severity", "checks: [{id: a, scope: page, severity: fatal, rule: {type: well-formed}}]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeCatalogue(strings.NewReader(tt.yaml), "bad"); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestDecodeCatalogue_MalformedSelectorFailsAtLoad(t *testing.T) {
	c, err := DecodeCatalogue(strings.NewReader("checks: [{id: a, scope: element, selector: 'h1[', rule: {type: unique}}]"), "bad")
	if err != nil {
		t.Fatalf("DecodeCatalogue() error = %v", err)
	}
	_, err = LoadCatalogues(c)
	var ce *ConfigurationError
	if !errors.As(err, &ce) || ce.CheckID != "a" {
		t.Errorf("expected configuration error for check a, got %v", err)
	}
}

func TestLoadCatalogueFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "extra.yaml")
	if err := os.WriteFile(path, []byte("checks: [{id: wf, scope: page, rule: {type: well-formed}}]"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := LoadCatalogueFile(path)
	if err != nil {
		t.Fatalf("LoadCatalogueFile() error = %v", err)
	}
	if c.Name != "extra" || len(c.Definitions) != 1 {
		t.Errorf("unexpected catalogue %+v", c)
	}

	if _, err := LoadCatalogueFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
