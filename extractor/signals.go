package extractor

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/cloudflare/ahocorasick"
	"golang.org/x/net/html"
)

// securityHeaders is the allowlist behind Security.HasSecurityHeaders.
var securityHeaders = []string{
	"Strict-Transport-Security",
	"Content-Security-Policy",
	"X-Content-Type-Options",
	"X-Frame-Options",
	"Referrer-Policy",
}

// Link relations that point at documents rather than load resources.
var navigationalRels = []string{"canonical", "alternate", "author", "next", "prev", "shortlink", "amphtml", "me"}

var ctaPhrases = []string{
	"buy now", "shop now", "add to cart", "get started", "sign up", "subscribe", "contact us",
	"book now", "request a quote", "get a quote", "download", "try it", "free trial", "learn more",
	"call now", "order now", "register", "join now",
}

var ctaMatcher = ahocorasick.NewStringMatcher(ctaPhrases)

var citationHosts = []string{".gov", ".edu", "wikipedia.org", "doi.org", "ncbi.nlm.nih.gov", "who.int"}

func extractResources(doc *goquery.Document, p *Page) {
	r := &p.Resources

	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		if strings.Contains(attrLower(s, "type"), "ld+json") {
			return
		}
		if strings.TrimSpace(s.AttrOr("src", "")) != "" {
			r.ExternalScripts++
		} else if strings.TrimSpace(s.Text()) != "" {
			r.InlineScripts++
		}
	})

	doc.Find("link[rel]").Each(func(_ int, s *goquery.Selection) {
		rel := s.AttrOr("rel", "")
		switch {
		case hasToken(rel, "stylesheet"):
			r.Stylesheets++
			if strings.Contains(s.AttrOr("media", ""), "(") {
				r.MediaQueries++
			}
		case hasToken(rel, "apple-touch-icon"), hasToken(rel, "apple-touch-icon-precomposed"):
			r.TouchIcon = true
			r.Favicon = true
		case hasToken(rel, "icon"):
			r.Favicon = true
		}
	})

	doc.Find("style").Each(func(_ int, s *goquery.Selection) {
		r.InlineStyles++
		r.MediaQueries += strings.Count(strings.ToLower(s.Text()), "@media")
	})

	r.Plugins = doc.Find("object, embed, applet").Length()
}

func extractStructure(doc *goquery.Document, p *Page) {
	st := &p.Structure
	st.Lists = doc.Find("ul, ol").Length()
	st.Tables = doc.Find("table").Length()
	st.Forms = doc.Find("form").Length()
	st.Buttons = doc.Find(`button, input[type="submit"], input[type="button"]`).Length()
	st.Videos = doc.Find("video").Length()
	st.Audio = doc.Find("audio").Length()
	st.Embeds = doc.Find("iframe").Length()
	st.Pictures = doc.Find("picture").Length()
	st.Blockquotes = doc.Find("blockquote").Length()
	st.HasNav = doc.Find("nav").Length() > 0
	st.HasFooter = doc.Find("footer").Length() > 0

	doc.Find("iframe[src]").Each(func(_ int, s *goquery.Selection) {
		src := attrLower(s, "src")
		if strings.Contains(src, "youtube.com") || strings.Contains(src, "youtube-nocookie.com") ||
			strings.Contains(src, "vimeo.com") {
			st.Videos++
		}
	})

	doc.Find(`a, button, input[type="submit"]`).Each(func(_ int, s *goquery.Selection) {
		label := strings.ToLower(cleanText(s))
		if label == "" {
			label = attrLower(s, "value")
		}
		if label != "" && len(ctaMatcher.MatchThreadSafe([]byte(label))) > 0 {
			st.CallsToAction++
		}
	})
}

func extractSecurity(doc *goquery.Document, page *url.URL, headers http.Header, p *Page) {
	sec := &p.Security
	sec.HasHTTPS = page.Scheme == "https"
	sec.SecurityHeaders = []string{}

	for _, name := range securityHeaders {
		if headerValue(headers, name) != "" {
			sec.SecurityHeaders = append(sec.SecurityHeaders, name)
		}
	}
	sec.HasSecurityHeaders = len(sec.SecurityHeaders) >= 2

	if !sec.HasHTTPS {
		return
	}
	check := func(selector, attr string) {
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			if strings.HasPrefix(attrLower(s, attr), "http://") {
				sec.MixedContentCount++
			}
		})
	}
	check("img[src]", "src")
	check("script[src]", "src")
	check("iframe[src]", "src")
	check("object[data]", "data")
	check("form[action]", "action")
	doc.Find("link[href]").Each(func(_ int, s *goquery.Selection) {
		rel := s.AttrOr("rel", "")
		for _, nav := range navigationalRels {
			if hasToken(rel, nav) {
				return
			}
		}
		if strings.HasPrefix(attrLower(s, "href"), "http://") {
			sec.MixedContentCount++
		}
	})
	sec.HasMixedContent = sec.MixedContentCount > 0
}

// headerValue looks a header up case-insensitively, including keys that were never canonicalized.
func headerValue(h http.Header, name string) string {
	if v := h.Get(name); v != "" {
		return v
	}
	for k, vs := range h {
		if strings.EqualFold(k, name) && len(vs) > 0 {
			return vs[0]
		}
	}
	return ""
}

func extractAccessibility(doc *goquery.Document, p *Page) {
	a := &p.Accessibility
	for _, img := range p.Images {
		if !img.HasAlt || img.Alt == "" {
			a.MissingAltText++
		}
	}
	a.HasLang = p.Lang != ""

	walkElements(doc.Get(0), func(n *html.Node) {
		for _, attr := range n.Attr {
			if attr.Key == "role" || strings.HasPrefix(attr.Key, "aria-") {
				a.ARIAAttributeCount++
			}
		}
	})
	a.HasARIA = a.ARIAAttributeCount > 0

	labelled := make(map[string]bool)
	doc.Find("label[for]").Each(func(_ int, s *goquery.Selection) {
		labelled[s.AttrOr("for", "")] = true
	})
	doc.Find("input, select, textarea").Each(func(_ int, s *goquery.Selection) {
		switch attrLower(s, "type") {
		case "hidden", "submit", "button", "reset", "image":
			return
		}
		if id := s.AttrOr("id", ""); id != "" && labelled[id] {
			return
		}
		if s.AttrOr("aria-label", "") != "" || s.AttrOr("aria-labelledby", "") != "" {
			return
		}
		if s.ParentsFiltered("label").Length() > 0 {
			return
		}
		a.FormInputsWithoutLabels++
	})
}

func extractAuthorship(doc *goquery.Document, p *Page) {
	au := &p.Authorship
	au.Author = p.Meta.Author
	if au.Author == "" {
		byline := doc.Find(`[rel~="author"], [itemprop="author"], .author, .byline, [class*="byline"]`).First()
		if byline.Length() > 0 {
			au.HasAuthor = true
			au.Author = cleanText(byline)
			if au.Author == "" {
				au.Author = strings.TrimSpace(byline.AttrOr("content", ""))
			}
		}
	}
	au.HasAuthor = au.HasAuthor || au.Author != ""

	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		key := attrLower(s, "property")
		if key == "" {
			key = attrLower(s, "name")
		}
		if key == "" {
			key = attrLower(s, "itemprop")
		}
		switch key {
		case "article:published_time", "datepublished", "date", "dc.date":
			au.HasPublished = true
		case "article:modified_time", "og:updated_time", "datemodified", "last-modified":
			au.HasModified = true
		}
	})
	if doc.Find(`time[datetime], [itemprop="datePublished"]`).Length() > 0 {
		au.HasPublished = true
	}
	if doc.Find(`[itemprop="dateModified"]`).Length() > 0 {
		au.HasModified = true
	}

	for _, l := range p.InternalLinks {
		u, err := url.Parse(l.URL)
		if err != nil {
			continue
		}
		lp := strings.ToLower(u.Path)
		switch {
		case strings.Contains(lp, "about"):
			au.AboutLink = true
		case strings.Contains(lp, "contact"):
			au.ContactLink = true
		case strings.Contains(lp, "privacy"), strings.Contains(lp, "terms"), strings.Contains(lp, "policy"):
			au.PolicyLink = true
		}
	}
	for _, l := range p.ExternalLinks {
		u, err := url.Parse(l.URL)
		if err != nil {
			continue
		}
		host := strings.ToLower(u.Hostname())
		for _, c := range citationHosts {
			if strings.HasSuffix(host, c) {
				au.Citations++
				break
			}
		}
	}
}

func detectIssues(headers http.Header, p *Page) {
	robots := strings.ToLower(p.Meta.Robots + "," + p.Meta.Googlebot + "," + headerValue(headers, "X-Robots-Tag"))
	p.Issues.NoIndex = strings.Contains(robots, "noindex") || hasToken(strings.ReplaceAll(robots, ",", " "), "none")
	p.Issues.DuplicateTitle = p.TitleCount > 1
	p.Issues.ThinContent = p.WordCount < ThinContentWords
	p.Issues.MissingH1 = len(p.Headings.H1) == 0
	p.Issues.MissingTitle = p.Title == ""
	p.Issues.MissingDescription = p.Meta.Description == ""
}
