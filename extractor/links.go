package extractor

import (
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var skippedSchemes = []string{"javascript:", "mailto:", "tel:", "data:", "sms:"}

var socialHosts = []string{
	"facebook.com", "twitter.com", "x.com", "linkedin.com", "instagram.com",
	"youtube.com", "pinterest.com", "tiktok.com", "github.com",
}

var imageFormats = map[string]string{
	".jpg": "jpeg", ".jpeg": "jpeg", ".png": "png", ".gif": "gif", ".webp": "webp",
	".avif": "avif", ".svg": "svg", ".bmp": "bmp", ".ico": "ico",
}

// extractLinks resolves hrefs against base and classifies them as internal when they share the
// host of page.
func extractLinks(doc *goquery.Document, base, page *url.URL, p *Page) {
	p.InternalLinks = []Link{}
	p.ExternalLinks = []Link{}

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if skipHref(href) {
			return
		}

		link := Link{
			AnchorText: anchorText(s),
			NoFollow:   hasToken(s.AttrOr("rel", ""), "nofollow"),
		}

		u, err := base.Parse(href)
		if err != nil {
			// Unresolvable hrefs are kept as internal and broken.
			link.URL = href
			link.Broken = true
			p.InternalLinks = append(p.InternalLinks, link)
			return
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return
		}
		u.Host = strings.ToLower(u.Host)
		u.Fragment = ""
		u.RawFragment = ""
		link.URL = u.String()

		if SameHost(u, page) {
			p.InternalLinks = append(p.InternalLinks, link)
			return
		}
		p.ExternalLinks = append(p.ExternalLinks, link)
		if isSocialHost(u.Hostname()) {
			p.Structure.SocialLinks++
		}
	})
}

// SameHost reports whether two URLs share a hostname, ignoring case and port.
func SameHost(a, b *url.URL) bool {
	return strings.EqualFold(a.Hostname(), b.Hostname())
}

func skipHref(href string) bool {
	if href == "" || strings.HasPrefix(href, "#") {
		return true
	}
	lower := strings.ToLower(href)
	for _, prefix := range skippedSchemes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// anchorText falls back to an image alt or an aria-label when the anchor has no text.
func anchorText(s *goquery.Selection) string {
	if t := cleanText(s); t != "" {
		return t
	}
	if alt := strings.TrimSpace(s.Find("img[alt]").First().AttrOr("alt", "")); alt != "" {
		return alt
	}
	if label := strings.TrimSpace(s.AttrOr("aria-label", "")); label != "" {
		return label
	}
	return strings.TrimSpace(s.AttrOr("title", ""))
}

func isSocialHost(host string) bool {
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	for _, h := range socialHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

func extractImages(doc *goquery.Document, base *url.URL, p *Page) {
	p.Images = []Image{}

	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		src := strings.TrimSpace(s.AttrOr("src", ""))
		lazySrc := strings.TrimSpace(s.AttrOr("data-src", ""))
		if src == "" || (strings.HasPrefix(strings.ToLower(src), "data:") && lazySrc != "") {
			src = lazySrc
		}
		if src == "" {
			return
		}

		alt, hasAlt := s.Attr("alt")
		img := Image{
			URL:    src,
			Alt:    strings.TrimSpace(alt),
			HasAlt: hasAlt,
			Lazy:   attrLower(s, "loading") == "lazy" || lazySrc != "",
			Sized:  s.AttrOr("width", "") != "" && s.AttrOr("height", "") != "",
			Srcset: s.AttrOr("srcset", "") != "" || s.ParentsFiltered("picture").Length() > 0,
		}
		if u, err := base.Parse(src); err == nil {
			img.URL = u.String()
			img.Format = imageFormats[strings.ToLower(path.Ext(u.Path))]
		}
		p.Images = append(p.Images, img)
	})
}
