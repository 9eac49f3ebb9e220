package extractor

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/seo-optimizer/auditor/errs"
	"github.com/seo-optimizer/auditor/fetcher"
)

// ThinContentWords is the word count below which a page is considered thin.
const ThinContentWords = 300

// Extract builds a Page from a successful fetch. Failed fetches return their stage error.
func Extract(res *fetcher.PageFetchResult) (*Page, error) {
	if !res.OK() {
		return nil, res.Err()
	}

	page, err := Parse(res.Body, res.FinalURL, res.Headers)
	if err != nil {
		return nil, err
	}
	page.StatusCode = res.StatusCode
	page.LoadTime = res.LoadTime
	page.ByteSize = res.ByteSize
	return page, nil
}

// Parse extracts every signal from an HTML document. pageURL is the absolute URL the body was
// served from and is used to resolve relative references; headers may be nil.
func Parse(body, pageURL string, headers http.Header) (*Page, error) {
	page, err := url.Parse(pageURL)
	if err != nil || page.Host == "" {
		return nil, errs.New(errs.InvalidURL, "cannot extract a page without an absolute URL", err)
	}

	root, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return nil, errs.New(errs.NonHTMLContent, "the page could not be parsed as HTML", err)
	}
	doc := goquery.NewDocumentFromNode(root)

	// <base href> only changes how relative references resolve. Internal links and HTTPS are
	// still judged against the page URL.
	base := page
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if b, err := page.Parse(strings.TrimSpace(href)); err == nil && b.Host != "" {
			base = b
		}
	}

	p := &Page{URL: pageURL}
	extractMeta(doc, base, p)
	extractContent(doc, p)
	extractLinks(doc, base, page, p)
	extractImages(doc, base, p)
	extractSchema(doc, p)
	extractResources(doc, p)
	extractStructure(doc, p)
	extractSecurity(doc, page, headers, p)
	extractAccessibility(doc, p)
	extractAuthorship(doc, p)
	detectIssues(headers, p)

	p.MobileCompatible = isMobileViewport(p.Meta.Viewport)
	p.DetectedLanguage = DetectLanguage(p.Text, p.WordCount)
	return p, nil
}

func isMobileViewport(viewport string) bool {
	v := strings.ReplaceAll(strings.ToLower(viewport), " ", "")
	return v != "" && strings.Contains(v, "width=device-width")
}

// normalizeSpace collapses every run of whitespace to a single space.
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func cleanText(s *goquery.Selection) string {
	return normalizeSpace(s.Text())
}

// attrLower returns the trimmed, lowercased value of an attribute.
func attrLower(s *goquery.Selection, name string) string {
	return strings.ToLower(strings.TrimSpace(s.AttrOr(name, "")))
}

// hasToken reports whether a space-separated attribute value such as rel contains token.
func hasToken(value, token string) bool {
	for _, f := range strings.Fields(strings.ToLower(value)) {
		if f == token {
			return true
		}
	}
	return false
}
