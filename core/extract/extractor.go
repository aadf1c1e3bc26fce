// Package extract implements the core.Extractor interface.
// It turns a fetched document into a Page by:
//  1. Rejecting payloads that are empty or not HTML
//  2. Parsing a tolerant DOM tree (malformed markup degrades, never fails)
//  3. Deriving visible text, title, description and structured metadata
package extract

import (
	"fmt"
	"mime"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gaurav-prasanna/pageaudit/core"
	"github.com/sirupsen/logrus"
)

// maxReportedProblems bounds the parse diagnostics kept on a page.
const maxReportedProblems = 5

// nonHTMLTypes are media type prefixes that can never hold a page.
var nonHTMLTypes = []string{
	"image/", "audio/", "video/", "font/",
	"application/json", "application/pdf", "application/zip",
	"application/octet-stream", "text/css", "text/javascript",
}

var markupStart = regexp.MustCompile(`<\s*[a-zA-Z!]`)

// HTMLExtractor parses fetched HTML into Pages.
type HTMLExtractor struct {
	normalizer core.Normalizer
	log        *logrus.Logger
}

// New creates an HTMLExtractor. normalizer may be nil, in which case pages
// carry no Markdown rendition.
func New(normalizer core.Normalizer, log *logrus.Logger) *HTMLExtractor {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &HTMLExtractor{normalizer: normalizer, log: log}
}

// Extract builds a Page from a fetch result. It never returns nil; content
// that cannot be parsed yields a page with Status core.PageError.
func (e *HTMLExtractor) Extract(res *core.FetchResult) *core.Page {
	page := &core.Page{
		URL:           res.URL,
		FinalURL:      res.FinalURL,
		StatusCode:    res.StatusCode,
		ContentType:   res.ContentType,
		FetchDuration: res.Duration,
		Raw:           res.HTML,
	}

	if reason := unparsable(res.ContentType, res.HTML); reason != "" {
		page.Status = core.PageError
		page.ParseError = reason
		return page
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(res.HTML))
	if err != nil {
		page.Status = core.PageError
		page.ParseError = fmt.Sprintf("parsing HTML: %v", err)
		return page
	}

	page.Status = core.PageOK
	page.Doc = doc
	page.Text = VisibleText(doc.Selection)
	page.Title = strings.TrimSpace(doc.Find("title").First().Text())
	page.Description = strings.TrimSpace(doc.Find(`meta[name="description"]`).First().AttrOr("content", ""))

	problems := markupProblems(res.HTML)
	items, sdProblems := Structured(doc)
	page.Metadata = items
	problems = append(problems, sdProblems...)
	if len(problems) > 0 {
		page.Degraded = true
		if len(problems) > maxReportedProblems {
			problems = append(problems[:maxReportedProblems], fmt.Sprintf("and %d more", len(problems)-maxReportedProblems))
		}
		page.ParseError = strings.Join(problems, "; ")
	}

	if e.normalizer != nil {
		md, err := e.normalizer.Normalize(res.HTML)
		if err != nil {
			e.log.WithField("url", res.URL).Debugf("Markdown conversion failed: %v", err)
		} else {
			page.Markdown = md
		}
	}
	return page
}

// unparsable returns why content cannot be treated as HTML, or "".
func unparsable(contentType, body string) string {
	if strings.TrimSpace(body) == "" {
		return "empty payload"
	}
	if contentType != "" {
		mediaType, _, err := mime.ParseMediaType(contentType)
		if err == nil {
			for _, prefix := range nonHTMLTypes {
				if strings.HasPrefix(mediaType, prefix) {
					return fmt.Sprintf("non-HTML content type %q", mediaType)
				}
			}
		}
	}
	if !markupStart.MatchString(body) {
		return "payload contains no markup"
	}
	return ""
}
