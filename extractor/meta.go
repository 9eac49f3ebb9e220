package extractor

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

func extractMeta(doc *goquery.Document, base *url.URL, p *Page) {
	p.Meta.OpenGraph = make(map[string]string)
	p.Meta.Twitter = make(map[string]string)

	// Titles inside inline SVG describe the graphic, not the page.
	titles := doc.Find("title").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.ParentsFiltered("svg").Length() == 0
	})
	p.TitleCount = titles.Length()
	p.Title = cleanText(titles.First())

	descriptions := 0
	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		name := attrLower(s, "name")
		property := attrLower(s, "property")
		content := strings.TrimSpace(s.AttrOr("content", ""))

		switch name {
		case "description":
			descriptions++
			if p.Meta.Description == "" {
				p.Meta.Description = content
			}
		case "keywords":
			setOnce(&p.Meta.Keywords, content)
		case "author":
			setOnce(&p.Meta.Author, content)
		case "robots":
			setOnce(&p.Meta.Robots, content)
		case "googlebot":
			setOnce(&p.Meta.Googlebot, content)
		case "viewport":
			setOnce(&p.Meta.Viewport, content)
		case "theme-color":
			setOnce(&p.Meta.ThemeColor, content)
		}

		// OpenGraph uses property=, Twitter cards use name= but property= is common too.
		for _, key := range []string{property, name} {
			switch {
			case strings.HasPrefix(key, "og:") && len(key) > 3:
				if _, ok := p.Meta.OpenGraph[key[3:]]; !ok {
					p.Meta.OpenGraph[key[3:]] = content
				}
			case strings.HasPrefix(key, "twitter:") && len(key) > 8:
				if _, ok := p.Meta.Twitter[key[8:]]; !ok {
					p.Meta.Twitter[key[8:]] = content
				}
			}
		}
	})

	if p.Meta.Description == "" {
		p.Meta.Description = p.Meta.OpenGraph["description"]
	}
	if descriptions > 1 {
		p.Issues.DuplicateDescription = true
	}

	doc.Find("link[rel]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !hasToken(s.AttrOr("rel", ""), "canonical") {
			return true
		}
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if href == "" {
			return true
		}
		if u, err := base.Parse(href); err == nil {
			p.Meta.Canonical = u.String()
		} else {
			p.Meta.Canonical = href
		}
		return false
	})

	p.Lang = strings.TrimSpace(doc.Find("html").First().AttrOr("lang", ""))
}

func setOnce(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}
