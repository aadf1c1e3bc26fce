package extract

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// hiddenText are elements whose content never renders as text.
var hiddenText = map[string]bool{
	"script": true, "style": true, "noscript": true, "template": true,
}

// VisibleText returns the whitespace-collapsed text of sel, skipping
// script, style, noscript and template content.
func VisibleText(sel *goquery.Selection) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			b.WriteByte(' ')
			return
		case html.ElementNode:
			if hiddenText[n.Data] {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

// optionalEnd are elements whose end tag HTML lets authors omit.
var optionalEnd = map[string]bool{
	"html": true, "head": true, "body": true, "p": true, "li": true,
	"dt": true, "dd": true, "option": true, "optgroup": true, "tr": true,
	"td": true, "th": true, "thead": true, "tbody": true, "tfoot": true,
	"colgroup": true, "caption": true, "rt": true, "rp": true,
}

// markupProblems tokenizes src and reports stray end tags and elements
// left open. The DOM parser silently repairs both; they are surfaced so the
// page can be flagged as degraded.
func markupProblems(src string) []string {
	z := html.NewTokenizer(strings.NewReader(src))
	var stack, problems []string

	unclosed := func(open []string) {
		for _, tag := range open {
			if !optionalEnd[tag] {
				problems = append(problems, fmt.Sprintf("unclosed <%s>", tag))
			}
		}
	}

	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); err != io.EOF {
				problems = append(problems, fmt.Sprintf("tokenizer: %v", err))
			}
			unclosed(stack)
			return problems
		case html.StartTagToken:
			name, _ := z.TagName()
			if tag := string(name); !voidElements[tag] {
				stack = append(stack, tag)
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if voidElements[tag] {
				continue
			}
			i := len(stack) - 1
			for i >= 0 && stack[i] != tag {
				i--
			}
			if i < 0 {
				problems = append(problems, fmt.Sprintf("stray </%s>", tag))
				continue
			}
			unclosed(stack[i+1:])
			stack = stack[:i]
		}
	}
}
