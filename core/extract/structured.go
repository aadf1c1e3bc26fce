package extract

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gaurav-prasanna/pageaudit/core"
)

// typeKey is the property every item carries its short type names under,
// whatever the source encoding.
const typeKey = "@type"

// Structured extracts embedded metadata from JSON-LD, microdata, RDFa and
// OpenGraph annotations. Invalid JSON-LD blocks are skipped and reported as
// problems.
func Structured(doc *goquery.Document) ([]core.StructuredItem, []string) {
	var items []core.StructuredItem
	var problems []string

	doc.Find(`script[type="application/ld+json"]`).Each(func(i int, s *goquery.Selection) {
		found, err := jsonLD(s.Text())
		if err != nil {
			problems = append(problems, fmt.Sprintf("invalid JSON-LD block %d: %v", i+1, err))
			return
		}
		items = append(items, found...)
	})

	doc.Find("[itemscope]").Each(func(_ int, s *goquery.Selection) {
		if s.Is("[itemprop]") {
			return // nested item, flattened into its owner
		}
		items = append(items, scopedItem(core.FormatMicrodata, s, "itemscope", "itemprop", s.AttrOr("itemtype", "")))
	})

	doc.Find("[typeof]").Each(func(_ int, s *goquery.Selection) {
		if s.Is("[property]") {
			return
		}
		items = append(items, scopedItem(core.FormatRDFa, s, "typeof", "property", s.AttrOr("typeof", "")))
	})

	if og := openGraph(doc); og != nil {
		items = append(items, *og)
	}
	return items, problems
}

func newItem(format string) core.StructuredItem {
	return core.StructuredItem{Format: format, Properties: make(map[string][]string)}
}

// jsonLD decodes one JSON-LD block. Top-level arrays and @graph
// containers yield one item per node.
func jsonLD(src string) ([]core.StructuredItem, error) {
	var v any
	if err := json.Unmarshal([]byte(strings.TrimSpace(src)), &v); err != nil {
		return nil, err
	}

	var nodes []map[string]any
	var collect func(any)
	collect = func(v any) {
		switch t := v.(type) {
		case []any:
			for _, e := range t {
				collect(e)
			}
		case map[string]any:
			if graph, ok := t["@graph"]; ok {
				collect(graph)
				return
			}
			nodes = append(nodes, t)
		}
	}
	collect(v)

	items := make([]core.StructuredItem, 0, len(nodes))
	for _, n := range nodes {
		item := newItem(core.FormatJSONLD)
		flatten("", n, item.Properties)
		item.Types = append(item.Types, item.Properties[typeKey]...)
		items = append(items, item)
	}
	return items, nil
}

// flatten writes v into props, joining nested keys with dots.
func flatten(prefix string, v any, props map[string][]string) {
	switch t := v.(type) {
	case map[string]any:
		for k, vv := range t {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			flatten(key, vv, props)
		}
	case []any:
		for _, e := range t {
			flatten(prefix, e, props)
		}
	case string:
		props[prefix] = append(props[prefix], t)
	case float64:
		props[prefix] = append(props[prefix], strconv.FormatFloat(t, 'f', -1, 64))
	case bool:
		props[prefix] = append(props[prefix], strconv.FormatBool(t))
	}
}

// scopedItem reads a microdata or RDFa item rooted at root. scopeAttr marks
// item boundaries and propAttr names properties; nested items are
// flattened under their property name.
func scopedItem(format string, root *goquery.Selection, scopeAttr, propAttr, types string) core.StructuredItem {
	item := newItem(format)
	for _, t := range strings.Fields(types) {
		item.Types = append(item.Types, t)
		item.Properties[typeKey] = append(item.Properties[typeKey], shortType(t))
	}
	collectProps(root, "", scopeAttr, propAttr, item.Properties)
	return item
}

func collectProps(root *goquery.Selection, prefix, scopeAttr, propAttr string, props map[string][]string) {
	owner := "[" + scopeAttr + "]"
	root.Find("[" + propAttr + "]").Each(func(_ int, p *goquery.Selection) {
		closest := p.Parent().Closest(owner)
		if len(closest.Nodes) == 0 || closest.Nodes[0] != root.Nodes[0] {
			return
		}
		for _, name := range strings.Fields(p.AttrOr(propAttr, "")) {
			key := name
			if prefix != "" {
				key = prefix + "." + name
			}
			if p.Is(owner) {
				for _, t := range strings.Fields(p.AttrOr(typeAttr(scopeAttr), "")) {
					props[key+"."+typeKey] = append(props[key+"."+typeKey], shortType(t))
				}
				collectProps(p, key, scopeAttr, propAttr, props)
				continue
			}
			props[key] = append(props[key], propValue(p))
		}
	})
}

func typeAttr(scopeAttr string) string {
	if scopeAttr == "itemscope" {
		return "itemtype"
	}
	return scopeAttr
}

// propValue follows the microdata value rules, which RDFa lite shares for
// the attributes that matter here.
func propValue(p *goquery.Selection) string {
	if v, ok := p.Attr("content"); ok {
		return strings.TrimSpace(v)
	}
	switch goquery.NodeName(p) {
	case "a", "link", "area":
		return p.AttrOr("href", "")
	case "img", "audio", "video", "source", "iframe", "embed", "track":
		return p.AttrOr("src", "")
	case "object":
		return p.AttrOr("data", "")
	case "time":
		if v, ok := p.Attr("datetime"); ok {
			return v
		}
	case "data", "meter":
		return p.AttrOr("value", "")
	}
	return strings.Join(strings.Fields(p.Text()), " ")
}

// shortType reduces "https://schema.org/Organization" to "Organization".
func shortType(t string) string {
	t = strings.TrimRight(t, "/")
	if i := strings.LastIndexAny(t, "/#"); i >= 0 {
		return t[i+1:]
	}
	if i := strings.LastIndex(t, ":"); i >= 0 {
		return t[i+1:]
	}
	return t
}

func openGraph(doc *goquery.Document) *core.StructuredItem {
	sel := doc.Find(`meta[property^="og:"]`)
	if sel.Length() == 0 {
		return nil
	}
	item := newItem(core.FormatOpenGraph)
	sel.Each(func(_ int, s *goquery.Selection) {
		key := s.AttrOr("property", "")
		item.Properties[key] = append(item.Properties[key], strings.TrimSpace(s.AttrOr("content", "")))
	})
	if types := item.Properties["og:type"]; len(types) > 0 {
		item.Types = append(item.Types, types...)
		item.Properties[typeKey] = append(item.Properties[typeKey], types...)
	}
	return &item
}
