package check

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/andybalholm/cascadia"
	"github.com/gaurav-prasanna/pageaudit/core"
	"github.com/gaurav-prasanna/pageaudit/core/extract"
	"github.com/gaurav-prasanna/pageaudit/core/tokenize"
)

// Element rules

// AttributeFound passes when the element carries a non-empty value.
func AttributeFound() ElementEvaluator {
	return ElementFunc(func(el Element) (Outcome, error) {
		ok := el.HasContent && strings.TrimSpace(el.Content) != ""
		return PassIf(ok, nil, "missing or empty"), nil
	})
}

// MinLength passes when the content has at least min characters.
// A non-positive min always passes.
func MinLength(min int) ElementEvaluator {
	return ElementFunc(func(el Element) (Outcome, error) {
		n := utf8.RuneCountInString(el.Content)
		if min <= 0 {
			return PassIf(true, n, ""), nil
		}
		return PassIf(el.HasContent && n >= min, n, fmt.Sprintf("length %d is below %d", n, min)), nil
	})
}

// MaxLength passes when the content has at most max characters.
func MaxLength(max int) ElementEvaluator {
	return ElementFunc(func(el Element) (Outcome, error) {
		n := utf8.RuneCountInString(el.Content)
		if !el.HasContent {
			return PassIf(false, n, "no content"), nil
		}
		return PassIf(n <= max, n, fmt.Sprintf("length %d exceeds %d", n, max)), nil
	})
}

// Regex passes when the content matches re.
func Regex(re *regexp.Regexp) ElementEvaluator {
	return ElementFunc(func(el Element) (Outcome, error) {
		ok := el.HasContent && re.MatchString(el.Content)
		return PassIf(ok, nil, fmt.Sprintf("content does not match %s", re)), nil
	})
}

// Unique fails every match when the selector matches more than once.
func Unique() ElementEvaluator {
	return ElementFunc(func(el Element) (Outcome, error) {
		return PassIf(el.Count <= 1, el.Count, fmt.Sprintf("%d elements match, expected one", el.Count)), nil
	})
}

// Page rules

// ElementsCount passes when the number of elements matching selector lies
// in [min, max]. A negative max means no upper bound.
func ElementsCount(selector string, min, max int) (PageEvaluator, error) {
	m, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("malformed selector %q: %w", selector, err)
	}
	return PageFunc(func(page *core.Page) (Outcome, error) {
		n := page.Doc.FindMatcher(m).Length()
		ok := n >= min && (max < 0 || n <= max)
		var bound string
		if max < 0 {
			bound = fmt.Sprintf("at least %d", min)
		} else {
			bound = fmt.Sprintf("between %d and %d", min, max)
		}
		return PassIf(ok, n, fmt.Sprintf("%d elements match %q, expected %s", n, selector, bound)), nil
	}), nil
}

// DOMSize passes when the page has fewer than max element nodes.
func DOMSize(max int) PageEvaluator {
	return PageFunc(func(page *core.Page) (Outcome, error) {
		n := page.Doc.Find("*").Length()
		return PassIf(n < max, n, fmt.Sprintf("%d DOM elements, limit %d", n, max)), nil
	})
}

// TextToCodeRatio passes when visible text length divided by source length
// is at least min.
func TextToCodeRatio(min float64) PageEvaluator {
	return PageFunc(func(page *core.Page) (Outcome, error) {
		if len(page.Raw) == 0 {
			return Outcome{}, fmt.Errorf("page has no source")
		}
		ratio := float64(len(page.Text)) / float64(len(page.Raw))
		return PassIf(ratio >= min, ratio, fmt.Sprintf("text-to-code ratio %.3f is below %.3f", ratio, min)), nil
	})
}

// Target names the text of the first element matching Selector, or its
// Attribute when set. With MainContent the target is the page's main
// content rendition instead, and Selector is ignored.
type Target struct {
	Selector    string `yaml:"selector"`
	Attribute   string `yaml:"attribute"`
	MainContent bool   `yaml:"main_content"`
}

func (t Target) compile() (cascadia.Selector, error) {
	if t.MainContent {
		return nil, nil
	}
	m, err := cascadia.Compile(t.Selector)
	if err != nil {
		return nil, fmt.Errorf("malformed selector %q: %w", t.Selector, err)
	}
	return m, nil
}

func (t Target) text(page *core.Page, m cascadia.Selector) (string, bool) {
	if t.MainContent {
		text := MainContent(page)
		return text, text != ""
	}
	sel := page.Doc.FindMatcher(m).First()
	if sel.Length() == 0 {
		return "", false
	}
	if t.Attribute == "" || t.Attribute == TextContent {
		return extract.VisibleText(sel), true
	}
	return sel.Attr(t.Attribute)
}

func (t Target) String() string {
	if t.MainContent {
		return "main content"
	}
	return fmt.Sprintf("%q", t.Selector)
}

// markdownTarget matches the URL part of Markdown links and images.
var markdownTarget = regexp.MustCompile(`\]\([^)]*\)`)

// MainContent returns the Markdown rendition of the page's main content
// with link and image targets removed, or "" when the page has none.
func MainContent(page *core.Page) string {
	return strings.TrimSpace(markdownTarget.ReplaceAllString(page.Markdown, "]"))
}

// SimilarityResult is the value reported by ElementsSimilarity.
type SimilarityResult struct {
	Keywords []tokenize.Keyword `json:"keywords"`
	Missing  []string           `json:"missing,omitempty"`
}

// ElementsSimilarity passes when the mostCommon most frequent keywords of
// the first target all occur in the second target. With stem, words of
// both targets are reduced to their English stems before comparing.
func ElementsSimilarity(first, second Target, mostCommon int, stopWords []string, stem bool) (PageEvaluator, error) {
	if mostCommon <= 0 {
		return nil, fmt.Errorf("most_common must be positive, got %d", mostCommon)
	}
	m1, err := first.compile()
	if err != nil {
		return nil, err
	}
	m2, err := second.compile()
	if err != nil {
		return nil, err
	}
	tok := tokenize.New(stopWords)
	tok.Stem = stem

	return PageFunc(func(page *core.Page) (Outcome, error) {
		text1, ok := first.text(page, m1)
		if !ok {
			return PassIf(false, nil, fmt.Sprintf("no text for %s", first)), nil
		}
		text2, ok := second.text(page, m2)
		if !ok {
			return PassIf(false, nil, fmt.Sprintf("no text for %s", second)), nil
		}
		keywords := tok.MostCommon(text1, mostCommon)
		missing := tok.Missing(keywords, text2)
		res := SimilarityResult{Keywords: keywords, Missing: missing}
		return PassIf(len(missing) == 0, res, fmt.Sprintf("keywords missing: %s", strings.Join(missing, ", "))), nil
	}), nil
}

// MainContentWords passes when the page's main content has at least min
// words.
func MainContentWords(min int) PageEvaluator {
	tok := tokenize.New(nil)
	return PageFunc(func(page *core.Page) (Outcome, error) {
		n := len(tok.Words(MainContent(page)))
		return PassIf(n >= min, n, fmt.Sprintf("main content has %d words, expected at least %d", n, min)), nil
	})
}

// StructuredData passes when the page carries a structured item of the
// given format with key, and value when set. Empty format matches any.
func StructuredData(format, key, value string) PageEvaluator {
	return PageFunc(func(page *core.Page) (Outcome, error) {
		for _, item := range page.Metadata {
			if format != "" && item.Format != format {
				continue
			}
			if key == "" || item.Has(key, value) {
				return PassIf(true, item.Types, ""), nil
			}
		}
		want := "structured data"
		if format != "" {
			want = format + " data"
		}
		if key != "" {
			want += " with " + key
			if value != "" {
				want += "=" + value
			}
		}
		return PassIf(false, nil, "no "+want), nil
	})
}

// WellFormed fails pages whose markup or metadata had to be repaired.
func WellFormed() PageEvaluator {
	return PageFunc(func(page *core.Page) (Outcome, error) {
		return PassIf(!page.Degraded, nil, page.ParseError), nil
	})
}

// Site rules

// TitleRepetition fails when fetched pages share a title.
func TitleRepetition() SiteEvaluator {
	return repetition("title", func(p *core.Page) string { return p.Title })
}

// DescriptionRepetition fails when fetched pages share a meta description.
func DescriptionRepetition() SiteEvaluator {
	return repetition("description", func(p *core.Page) string { return p.Description })
}

func repetition(what string, field func(*core.Page) string) SiteEvaluator {
	return SiteFunc(func(site *core.Site) (Outcome, error) {
		byValue := make(map[string][]string)
		for _, p := range site.Fetched() {
			if v := field(p); v != "" {
				byValue[v] = append(byValue[v], p.URL)
			}
		}
		repeated := make(map[string][]string)
		for v, urls := range byValue {
			if len(urls) > 1 {
				repeated[v] = urls
			}
		}
		if len(repeated) == 0 {
			return PassIf(true, nil, ""), nil
		}
		return PassIf(false, repeated, fmt.Sprintf("%d %s(s) shared by several pages", len(repeated), what)), nil
	})
}

// PagesInSitemap fails when a fetched page is not listed in the sitemap.
func PagesInSitemap() SiteEvaluator {
	return SiteFunc(func(site *core.Site) (Outcome, error) {
		if !site.Resources.SitemapFound {
			return NotApplicable("no sitemap"), nil
		}
		listed := make(map[string]bool, len(site.Resources.SitemapURLs))
		for _, u := range site.Resources.SitemapURLs {
			listed[strings.TrimSuffix(u, "/")] = true
		}
		var missing []string
		for _, p := range site.Fetched() {
			if !listed[strings.TrimSuffix(p.URL, "/")] {
				missing = append(missing, p.URL)
			}
		}
		return PassIf(len(missing) == 0, missing, fmt.Sprintf("%d page(s) not in sitemap", len(missing))), nil
	})
}

// PagesCrawlable fails when robots.txt disallows a fetched page or the
// page opts out of indexing with a robots meta tag.
func PagesCrawlable() SiteEvaluator {
	return SiteFunc(func(site *core.Site) (Outcome, error) {
		var blocked []string
		for _, p := range site.Fetched() {
			if site.Resources.Robots != nil && !site.Resources.Robots.Allowed(p.URL) {
				blocked = append(blocked, p.URL)
				continue
			}
			content := strings.ToLower(p.Doc.Find(`meta[name="robots"]`).First().AttrOr("content", ""))
			if strings.Contains(content, "noindex") || strings.Contains(content, "none") {
				blocked = append(blocked, p.URL)
			}
		}
		sort.Strings(blocked)
		return PassIf(len(blocked) == 0, blocked, fmt.Sprintf("%d page(s) not crawlable", len(blocked))), nil
	})
}

// SitemapFound passes when a sitemap was discovered.
func SitemapFound() SiteEvaluator {
	return SiteFunc(func(site *core.Site) (Outcome, error) {
		return PassIf(site.Resources.SitemapFound, site.Resources.SitemapURL, "no sitemap found"), nil
	})
}

// RobotsFound passes when robots.txt was retrieved.
func RobotsFound() SiteEvaluator {
	return SiteFunc(func(site *core.Site) (Outcome, error) {
		return PassIf(site.Resources.RobotsFound, nil, "no robots.txt found"), nil
	})
}

// ManifestLinked passes when the base page links a web app manifest that
// was retrieved and holds valid JSON.
func ManifestLinked() SiteEvaluator {
	return linkedFile("web app manifest", func(r core.SiteResources) (string, bool) {
		return r.ManifestURL, r.ManifestFound
	})
}

// BrowserConfigLinked passes when the base page references a browser
// config file that was retrieved and holds valid XML.
func BrowserConfigLinked() SiteEvaluator {
	return linkedFile("browser config", func(r core.SiteResources) (string, bool) {
		return r.BrowserConfigURL, r.BrowserConfigFound
	})
}

func linkedFile(what string, lookup func(core.SiteResources) (string, bool)) SiteEvaluator {
	return SiteFunc(func(site *core.Site) (Outcome, error) {
		if base := site.Page(site.BaseURL); !base.OK() {
			return Outcome{}, fmt.Errorf("base %s", base.Failure())
		}
		loc, found := lookup(site.Resources)
		msg := "no " + what + " linked"
		if loc != "" {
			msg = fmt.Sprintf("%s at %s is missing or invalid", what, loc)
		}
		return PassIf(found, loc, msg), nil
	})
}
