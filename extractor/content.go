package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Elements whose text never counts as page content.
var invisibleElements = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Iframe:   true,
	atom.Object:   true,
	atom.Embed:    true,
	atom.Template: true,
}

// Elements that separate words in rendered text. Inline elements such as <em> or <a> do not.
var blockElements = map[atom.Atom]bool{
	atom.Address: true, atom.Article: true, atom.Aside: true, atom.Blockquote: true, atom.Br: true,
	atom.Caption: true, atom.Dd: true, atom.Details: true, atom.Dialog: true, atom.Div: true,
	atom.Dl: true, atom.Dt: true, atom.Fieldset: true, atom.Figcaption: true, atom.Figure: true,
	atom.Footer: true, atom.Form: true, atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true,
	atom.H5: true, atom.H6: true, atom.Header: true, atom.Hr: true, atom.Li: true, atom.Main: true,
	atom.Nav: true, atom.Ol: true, atom.Option: true, atom.P: true, atom.Pre: true, atom.Section: true,
	atom.Summary: true, atom.Table: true, atom.Tbody: true, atom.Td: true, atom.Tfoot: true,
	atom.Th: true, atom.Thead: true, atom.Tr: true, atom.Ul: true, atom.Body: true, atom.Title: true,
}

var headingAtoms = map[atom.Atom]int{
	atom.H1: 1, atom.H2: 2, atom.H3: 3, atom.H4: 4, atom.H5: 5, atom.H6: 6,
}

func extractContent(doc *goquery.Document, p *Page) {
	body := doc.Find("body").First()
	if body.Length() > 0 {
		p.Text = visibleText(body.Get(0))
	}
	p.WordCount = len(strings.Fields(p.Text))

	p.Paragraphs = []string{}
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		if t := cleanText(s); t != "" {
			p.Paragraphs = append(p.Paragraphs, t)
		}
	})

	levels := make([][]string, 7)
	order := make([]int, 0, 16)
	walkElements(doc.Get(0), func(n *html.Node) {
		level, ok := headingAtoms[n.DataAtom]
		if !ok {
			return
		}
		if t := normalizeSpace(nodeText(n)); t != "" {
			levels[level] = append(levels[level], t)
			order = append(order, level)
		}
	})
	p.Headings = Headings{
		H1: nonNil(levels[1]), H2: nonNil(levels[2]), H3: nonNil(levels[3]),
		H4: nonNil(levels[4]), H5: nonNil(levels[5]), H6: nonNil(levels[6]),
	}
	p.Accessibility.ProperHeadingStructure = h2FollowsH1(order)
}

// visibleText concatenates the text nodes under n, skipping non-content elements, and
// normalizes the whitespace. Block elements separate words; inline markup does not.
func visibleText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			if invisibleElements[n.DataAtom] {
				return
			}
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.CommentNode:
			return
		}
		block := n.Type == html.ElementNode && blockElements[n.DataAtom]
		if block {
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			b.WriteByte(' ')
		}
	}
	walk(n)
	return normalizeSpace(b.String())
}

// nodeText returns all descendant text of n, including script text, with block elements
// separating words.
func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			return
		}
		block := n.Type == html.ElementNode && blockElements[n.DataAtom]
		if block {
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			b.WriteByte(' ')
		}
	}
	walk(n)
	return b.String()
}

// walkElements calls fn for every element under n in document order.
func walkElements(n *html.Node, fn func(*html.Node)) {
	if n == nil {
		return
	}
	if n.Type == html.ElementNode {
		fn(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkElements(c, fn)
	}
}

// h2FollowsH1 reports whether the heading sequence has an h1 followed, at any distance, by an h2.
func h2FollowsH1(order []int) bool {
	seenH1 := false
	for _, level := range order {
		switch {
		case level == 1:
			seenH1 = true
		case level == 2 && seenH1:
			return true
		}
	}
	return false
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
