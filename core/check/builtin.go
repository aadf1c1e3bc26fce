package check

import "github.com/gaurav-prasanna/pageaudit/core"

// BuiltinName names the default catalogue.
const BuiltinName = "builtin"

// Builtin returns the default catalogue of SEO checks.
func Builtin() Catalogue {
	var defs []Definition

	element := func(id, selector, attr string, ev ElementEvaluator, sev core.Severity, desc string) {
		defs = append(defs, Definition{ID: id, Scope: core.ScopeElement, Selector: selector, Attribute: attr,
			Element: ev, Severity: sev, Description: desc})
	}
	page := func(id string, ev PageEvaluator, sev core.Severity, desc string) {
		defs = append(defs, Definition{ID: id, Scope: core.ScopePage, Page: ev, Severity: sev, Description: desc})
	}
	site := func(id string, ev SiteEvaluator, sev core.Severity, desc string) {
		defs = append(defs, Definition{ID: id, Scope: core.ScopeSite, Site: ev, Severity: sev, Description: desc})
	}

	element("html-lang", "html", "lang", AttributeFound(), core.SeverityWarning, "Document declares its language")
	element("meta-charset", "meta[charset]", "charset", AttributeFound(), core.SeverityWarning, "Document declares its character set")
	element("title-min-length", "head > title", TextContent, MinLength(10), core.SeverityWarning, "Title has at least 10 characters")
	element("title-max-length", "head > title", TextContent, MaxLength(60), core.SeverityWarning, "Title has at most 60 characters")
	element("description-min-length", `meta[name="description"]`, "content", MinLength(50), core.SeverityWarning, "Meta description has at least 50 characters")
	element("description-max-length", `meta[name="description"]`, "content", MaxLength(160), core.SeverityWarning, "Meta description has at most 160 characters")
	element("single-h1", "h1", TextContent, Unique(), core.SeverityWarning, "Page has a single h1 heading")
	element("meta-viewport", `meta[name="viewport"]`, "content", AttributeFound(), core.SeverityCritical, "Viewport is configured for mobile devices")
	element("img-alt", "img", "alt", AttributeFound(), core.SeverityWarning, "Images carry alternative text")
	element("link-title", "a[href]", "title", AttributeFound(), core.SeverityInfo, "Links carry a title")
	for _, p := range []string{"locale", "title", "description", "type", "url", "image"} {
		element("og-"+p, `meta[property="og:`+p+`"]`, "content", AttributeFound(), core.SeverityInfo, "OpenGraph og:"+p+" is set")
	}
	for _, n := range []string{"title", "description", "image", "card"} {
		element("twitter-"+n, `meta[name="twitter:`+n+`"]`, "content", AttributeFound(), core.SeverityInfo, "Twitter card twitter:"+n+" is set")
	}
	element("canonical-link", `link[rel="canonical"]`, "href", AttributeFound(), core.SeverityWarning, "Canonical URL is declared")

	page("single-title", must(ElementsCount("title", 1, 1)), core.SeverityCritical, "Page has exactly one title")
	page("text-to-code-ratio", TextToCodeRatio(0.1), core.SeverityInfo, "Visible text is at least 10% of the source")
	page("dom-size", DOMSize(1500), core.SeverityWarning, "DOM has fewer than 1500 elements")
	page("keywords-in-title", must(ElementsSimilarity(Target{Selector: "html"}, Target{Selector: "head > title"}, 5, nil, false)),
		core.SeverityInfo, "Top page keywords appear in the title")
	page("keywords-in-description", must(ElementsSimilarity(Target{Selector: "html"}, Target{Selector: `meta[name="description"]`, Attribute: "content"}, 5, nil, false)),
		core.SeverityInfo, "Top page keywords appear in the meta description")
	page("h1-keywords-in-description", must(ElementsSimilarity(Target{Selector: "h1"}, Target{Selector: `meta[name="description"]`, Attribute: "content"}, 5, nil, false)),
		core.SeverityInfo, "Top h1 keywords appear in the meta description")
	page("main-content-words", MainContentWords(100), core.SeverityInfo, "Main content has at least 100 words")
	page("h2-count", must(ElementsCount("h2", 2, -1)), core.SeverityInfo, "Page has at least two h2 headings")
	page("organization-json-ld", StructuredData(core.FormatJSONLD, "@type", "Organization"), core.SeverityInfo, "JSON-LD describes an Organization")
	page("well-formed-markup", WellFormed(), core.SeverityWarning, "Markup needed no repair")

	site("title-repetition", TitleRepetition(), core.SeverityWarning, "Titles are unique across pages")
	site("description-repetition", DescriptionRepetition(), core.SeverityWarning, "Meta descriptions are unique across pages")
	site("pages-in-sitemap", PagesInSitemap(), core.SeverityWarning, "Audited pages are listed in the sitemap")
	site("pages-crawlable", PagesCrawlable(), core.SeverityCritical, "Audited pages are open to crawlers")
	site("sitemap-found", SitemapFound(), core.SeverityWarning, "Site publishes a sitemap")
	site("robots-found", RobotsFound(), core.SeverityWarning, "Site publishes robots.txt")
	site("manifest-linked", ManifestLinked(), core.SeverityInfo, "Base page links a web app manifest")
	site("browserconfig-linked", BrowserConfigLinked(), core.SeverityInfo, "Base page references a browser config")

	return Catalogue{Name: BuiltinName, Definitions: defs}
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}
