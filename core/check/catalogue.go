package check

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gaurav-prasanna/pageaudit/core"
	"gopkg.in/yaml.v3"
)

// Rule types usable in YAML catalogues.
const (
	RuleAttributeFound        = "attribute-found"
	RuleMinLength             = "min-length"
	RuleMaxLength             = "max-length"
	RuleRegex                 = "regex"
	RuleUnique                = "unique"
	RuleElementsCount         = "elements-count"
	RuleDOMSize               = "dom-size"
	RuleTextToCodeRatio       = "text-to-code-ratio"
	RuleElementsSimilarity    = "elements-similarity"
	RuleMainContentWords      = "main-content-words"
	RuleStructuredData        = "structured-data"
	RuleWellFormed            = "well-formed"
	RuleTitleRepetition       = "title-repetition"
	RuleDescriptionRepetition = "description-repetition"
	RulePagesInSitemap        = "pages-in-sitemap"
	RulePagesCrawlable        = "pages-crawlable"
	RuleSitemapFound          = "sitemap-found"
	RuleRobotsFound           = "robots-found"
	RuleManifestLinked        = "manifest-linked"
	RuleBrowserConfigLinked   = "browserconfig-linked"
)

// ruleScopes maps each rule type to the scope it evaluates.
var ruleScopes = map[string]core.Scope{
	RuleAttributeFound:        core.ScopeElement,
	RuleMinLength:             core.ScopeElement,
	RuleMaxLength:             core.ScopeElement,
	RuleRegex:                 core.ScopeElement,
	RuleUnique:                core.ScopeElement,
	RuleElementsCount:         core.ScopePage,
	RuleDOMSize:               core.ScopePage,
	RuleTextToCodeRatio:       core.ScopePage,
	RuleElementsSimilarity:    core.ScopePage,
	RuleMainContentWords:      core.ScopePage,
	RuleStructuredData:        core.ScopePage,
	RuleWellFormed:            core.ScopePage,
	RuleTitleRepetition:       core.ScopeSite,
	RuleDescriptionRepetition: core.ScopeSite,
	RulePagesInSitemap:        core.ScopeSite,
	RulePagesCrawlable:        core.ScopeSite,
	RuleSitemapFound:          core.ScopeSite,
	RuleRobotsFound:           core.ScopeSite,
	RuleManifestLinked:        core.ScopeSite,
	RuleBrowserConfigLinked:   core.ScopeSite,
}

// catalogueFile is the YAML layout of a catalogue:
//
//	name: shop
//	checks:
//	  - id: title-has-brand
//	    scope: element
//	    selector: head > title
//	    severity: info
//	    rule: {type: regex, pattern: "Acme"}
type catalogueFile struct {
	Name   string       `yaml:"name"`
	Checks []checkEntry `yaml:"checks"`
}

type checkEntry struct {
	ID          string    `yaml:"id"`
	Scope       string    `yaml:"scope"`
	Selector    string    `yaml:"selector"`
	Attribute   string    `yaml:"attribute"`
	Severity    string    `yaml:"severity"`
	Description string    `yaml:"description"`
	Rule        ruleEntry `yaml:"rule"`
}

type ruleEntry struct {
	Type       string   `yaml:"type"`
	Min        *int     `yaml:"min"`
	Max        *int     `yaml:"max"`
	Ratio      float64  `yaml:"ratio"`
	Pattern    string   `yaml:"pattern"`
	Format     string   `yaml:"format"`
	Key        string   `yaml:"key"`
	Value      string   `yaml:"value"`
	First      Target   `yaml:"first"`
	Second     Target   `yaml:"second"`
	MostCommon int      `yaml:"most_common"`
	StopWords  []string `yaml:"stop_words"`
	Stem       bool     `yaml:"stem"`
}

// DecodeCatalogue reads a YAML catalogue. fallbackName names the catalogue
// when the document does not.
func DecodeCatalogue(r io.Reader, fallbackName string) (Catalogue, error) {
	var file catalogueFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return Catalogue{}, fmt.Errorf("decoding catalogue %s: %w", fallbackName, err)
	}

	c := Catalogue{Name: file.Name}
	if c.Name == "" {
		c.Name = fallbackName
	}
	for i, entry := range file.Checks {
		def, err := entry.definition()
		if err != nil {
			return Catalogue{}, fmt.Errorf("catalogue %s, check %d: %w", c.Name, i+1, err)
		}
		c.Definitions = append(c.Definitions, def)
	}
	return c, nil
}

// LoadCatalogueFile reads a YAML catalogue from path.
func LoadCatalogueFile(path string) (Catalogue, error) {
	f, err := os.Open(path)
	if err != nil {
		return Catalogue{}, fmt.Errorf("opening catalogue: %w", err)
	}
	defer f.Close()
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return DecodeCatalogue(f, name)
}

func (s checkEntry) definition() (Definition, error) {
	confErr := func(reason string, err error) error {
		return &ConfigurationError{CheckID: s.ID, Reason: reason, Err: err}
	}

	scope, err := core.ParseScope(s.Scope)
	if err != nil {
		return Definition{}, confErr("invalid scope", err)
	}
	ruleScope, ok := ruleScopes[s.Rule.Type]
	if !ok {
		return Definition{}, confErr(fmt.Sprintf("unknown rule type %q", s.Rule.Type), nil)
	}
	if ruleScope != scope {
		return Definition{}, confErr(fmt.Sprintf("rule %s evaluates %s scope, check is %s", s.Rule.Type, ruleScope, scope), nil)
	}
	severity, err := core.ParseSeverity(s.Severity)
	if err != nil {
		return Definition{}, confErr("invalid severity", err)
	}

	def := Definition{
		ID:          s.ID,
		Scope:       scope,
		Selector:    s.Selector,
		Attribute:   s.Attribute,
		Description: s.Description,
		Severity:    severity,
	}
	if err := s.Rule.bind(&def); err != nil {
		return Definition{}, confErr("invalid rule "+s.Rule.Type, err)
	}
	return def, nil
}

// bind sets the evaluator of def from the rule parameters.
func (r ruleEntry) bind(def *Definition) error {
	intOr := func(p *int, fallback int) int {
		if p == nil {
			return fallback
		}
		return *p
	}

	switch r.Type {
	case RuleAttributeFound:
		def.Element = AttributeFound()
	case RuleMinLength:
		if r.Min == nil {
			return errors.New("min is required")
		}
		def.Element = MinLength(*r.Min)
	case RuleMaxLength:
		if r.Max == nil || *r.Max <= 0 {
			return errors.New("max must be positive")
		}
		def.Element = MaxLength(*r.Max)
	case RuleRegex:
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return err
		}
		def.Element = Regex(re)
	case RuleUnique:
		def.Element = Unique()
	case RuleElementsCount:
		if def.Selector == "" {
			return errors.New("selector is required")
		}
		ev, err := ElementsCount(def.Selector, intOr(r.Min, 0), intOr(r.Max, -1))
		if err != nil {
			return err
		}
		def.Page = ev
	case RuleDOMSize:
		if r.Max == nil || *r.Max <= 0 {
			return errors.New("max must be positive")
		}
		def.Page = DOMSize(*r.Max)
	case RuleTextToCodeRatio:
		def.Page = TextToCodeRatio(r.Ratio)
	case RuleElementsSimilarity:
		ev, err := ElementsSimilarity(r.First, r.Second, r.MostCommon, r.StopWords, r.Stem)
		if err != nil {
			return err
		}
		def.Page = ev
	case RuleMainContentWords:
		if r.Min == nil || *r.Min < 0 {
			return errors.New("min must not be negative")
		}
		def.Page = MainContentWords(*r.Min)
	case RuleStructuredData:
		def.Page = StructuredData(r.Format, r.Key, r.Value)
	case RuleWellFormed:
		def.Page = WellFormed()
	case RuleTitleRepetition:
		def.Site = TitleRepetition()
	case RuleDescriptionRepetition:
		def.Site = DescriptionRepetition()
	case RulePagesInSitemap:
		def.Site = PagesInSitemap()
	case RulePagesCrawlable:
		def.Site = PagesCrawlable()
	case RuleSitemapFound:
		def.Site = SitemapFound()
	case RuleRobotsFound:
		def.Site = RobotsFound()
	case RuleManifestLinked:
		def.Site = ManifestLinked()
	case RuleBrowserConfigLinked:
		def.Site = BrowserConfigLinked()
	default:
		return fmt.Errorf("unknown rule type %q", r.Type)
	}
	return nil
}
