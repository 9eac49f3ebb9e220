package extractor

import (
	"net/http"
	"strings"
	"testing"

	"github.com/seo-optimizer/auditor/errs"
	"github.com/seo-optimizer/auditor/fetcher"
)

const samplePage = `<!DOCTYPE html>
<html lang="en">
<head>
  <title>Best Plumbing Services in Town</title>
  <meta name="description" content="Reliable plumbing services for homes and businesses.">
  <meta name="robots" content="index, follow">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <meta property="og:title" content="Plumbing">
  <meta property="og:description" content="OG description">
  <meta name="twitter:card" content="summary">
  <link rel="canonical" href="/services">
  <link rel="stylesheet" href="http://cdn.example.net/style.css">
  <link rel="icon" href="/favicon.ico">
  <script src="/app.js"></script>
  <script type="application/ld+json">
  {"@context":"https://schema.org","@graph":[{"@type":"Organization","name":"Acme"},{"@type":["WebPage","FAQPage"]}]}
  </script>
  <style>@media (max-width: 600px) { body { font-size: 14px } }</style>
</head>
<body>
  <svg><title>icon</title></svg>
  <h1>Plumbing   services</h1>
  <p>First paragraph of text.</p>
  <p>   </p>
  <h2>Emergency repairs</h2>
  <script>var hidden = "not content";</script>
  <noscript>enable javascript</noscript>
  <p>Second paragraph.</p>
  <a href="/contact#form">Contact us</a>
  <a href="https://EXAMPLE.com/about">About</a>
  <a href="#top">Top</a>
  <a href="javascript:void(0)">JS</a>
  <a href="mailto:hi@example.com">Mail</a>
  <a href="https://other.org/page" rel="nofollow">Other</a>
  <a href="https://twitter.com/acme"><img src="/tw.png" alt="Twitter"></a>
  <a href="http://[::1:bad">Bad</a>
  <img src="/a.webp" alt="A picture" width="10" height="10">
  <img data-src="/lazy.jpg">
  <img src="http://insecure.example.com/b.png" alt="">
  <ul><li>one</li></ul>
</body>
</html>`

func parseSample(t *testing.T, headers http.Header) *Page {
	t.Helper()
	p, err := Parse(samplePage, "https://example.com/index.html", headers)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return p
}

func TestParseMeta(t *testing.T) {
	p := parseSample(t, nil)

	if p.Title != "Best Plumbing Services in Town" {
		t.Errorf("Title = %q", p.Title)
	}
	if p.TitleCount != 1 {
		t.Errorf("TitleCount = %d, want 1 (svg titles excluded)", p.TitleCount)
	}
	if p.Meta.Description != "Reliable plumbing services for homes and businesses." {
		t.Errorf("Description = %q", p.Meta.Description)
	}
	if p.Meta.Canonical != "https://example.com/services" {
		t.Errorf("Canonical = %q", p.Meta.Canonical)
	}
	if p.Meta.OpenGraph["title"] != "Plumbing" || p.Meta.Twitter["card"] != "summary" {
		t.Errorf("OpenGraph = %v, Twitter = %v", p.Meta.OpenGraph, p.Meta.Twitter)
	}
	if !p.MobileCompatible {
		t.Error("expected viewport with device-width to be mobile compatible")
	}
	if p.Lang != "en" {
		t.Errorf("Lang = %q", p.Lang)
	}
}

func TestDescriptionFallsBackToOpenGraph(t *testing.T) {
	p, err := Parse(`<html><head><meta property="og:description" content="From OG"></head></html>`,
		"https://example.com/", nil)
	if err != nil {
		t.Fatal(err)
	}
	if p.Meta.Description != "From OG" {
		t.Errorf("Description = %q, want OG fallback", p.Meta.Description)
	}
}

func TestParseContent(t *testing.T) {
	p := parseSample(t, nil)

	if strings.Contains(p.Text, "not content") || strings.Contains(p.Text, "enable javascript") {
		t.Errorf("script/noscript text leaked into content: %q", p.Text)
	}
	if len(p.Paragraphs) != 2 || p.Paragraphs[0] != "First paragraph of text." {
		t.Errorf("Paragraphs = %q", p.Paragraphs)
	}
	if len(p.Headings.H1) != 1 || p.Headings.H1[0] != "Plumbing services" {
		t.Errorf("H1 = %q", p.Headings.H1)
	}
	if len(p.Headings.H2) != 1 {
		t.Errorf("H2 = %q", p.Headings.H2)
	}
	if !p.Accessibility.ProperHeadingStructure {
		t.Error("expected proper heading structure")
	}
}

func TestWordCountMatchesText(t *testing.T) {
	inputs := []string{
		"",
		"<html></html>",
		"<p>one two\tthree\n four</p>",
		samplePage,
		"<body><div>a<span>b</span> c</div><script>x y z</script></body>",
		"<<<>>> not really html &amp; entities",
	}
	for _, in := range inputs {
		p, err := Parse(in, "https://example.com/", nil)
		if err != nil {
			t.Fatalf("Parse(%q) failed: %v", in, err)
		}
		if p.WordCount != len(strings.Fields(p.Text)) {
			t.Errorf("WordCount = %d, fields = %d for %q", p.WordCount, len(strings.Fields(p.Text)), in)
		}
		if p.WordCount < 0 {
			t.Errorf("negative word count for %q", in)
		}
	}
}

func TestHeadingStructureRequiresH2AfterH1(t *testing.T) {
	tests := []struct {
		html string
		want bool
	}{
		{"<h1>a</h1><h2>b</h2>", true},
		{"<h2>b</h2><h1>a</h1>", false},
		{"<h2>b</h2><h1>a</h1><h3>c</h3><h2>d</h2>", true},
		{"<h1>a</h1>", false},
		{"<h1> </h1><h2>b</h2>", false},
	}
	for _, tt := range tests {
		p, err := Parse(tt.html, "https://example.com/", nil)
		if err != nil {
			t.Fatal(err)
		}
		if p.Accessibility.ProperHeadingStructure != tt.want {
			t.Errorf("%s: ProperHeadingStructure = %v, want %v", tt.html, p.Accessibility.ProperHeadingStructure, tt.want)
		}
	}
}

func TestParseLinks(t *testing.T) {
	p := parseSample(t, nil)

	internal := map[string]Link{}
	for _, l := range p.InternalLinks {
		internal[l.URL] = l
	}
	if _, ok := internal["https://example.com/contact"]; !ok {
		t.Errorf("expected fragment-stripped contact link, got %v", p.InternalLinks)
	}
	if _, ok := internal["https://example.com/about"]; !ok {
		t.Errorf("expected case-insensitive same-host link, got %v", p.InternalLinks)
	}
	bad, ok := internal["http://[::1:bad"]
	if !ok || !bad.Broken {
		t.Errorf("expected unresolvable href to be internal and broken, got %v", p.InternalLinks)
	}
	if len(p.InternalLinks) != 3 {
		t.Errorf("internal links = %d, want 3", len(p.InternalLinks))
	}
	for _, l := range p.InternalLinks {
		if l.URL != bad.URL && l.Broken {
			t.Errorf("link %s must not be broken before verification", l.URL)
		}
	}

	if len(p.ExternalLinks) != 2 {
		t.Fatalf("external links = %v, want 2", p.ExternalLinks)
	}
	if !p.ExternalLinks[0].NoFollow {
		t.Error("expected nofollow on external link")
	}
	if p.ExternalLinks[1].AnchorText != "Twitter" {
		t.Errorf("anchor text = %q, want image alt fallback", p.ExternalLinks[1].AnchorText)
	}
	if p.Structure.SocialLinks != 1 {
		t.Errorf("SocialLinks = %d, want 1", p.Structure.SocialLinks)
	}
}

func TestParseImages(t *testing.T) {
	p := parseSample(t, nil)

	// The twitter anchor image plus three standalone images.
	if len(p.Images) != 4 {
		t.Fatalf("images = %d, want 4", len(p.Images))
	}
	webp := p.Images[1]
	if webp.URL != "https://example.com/a.webp" || webp.Format != "webp" || !webp.Sized {
		t.Errorf("webp image = %+v", webp)
	}
	lazy := p.Images[2]
	if lazy.URL != "https://example.com/lazy.jpg" || !lazy.Lazy || lazy.HasAlt {
		t.Errorf("lazy image = %+v", lazy)
	}
	if p.Accessibility.MissingAltText != 2 {
		t.Errorf("MissingAltText = %d, want 2 (absent and empty alt)", p.Accessibility.MissingAltText)
	}
}

func TestParseSchema(t *testing.T) {
	p := parseSample(t, nil)
	want := []string{"Organization", "WebPage", "FAQPage"}
	if strings.Join(p.SchemaTypes, ",") != strings.Join(want, ",") {
		t.Errorf("SchemaTypes = %v, want %v", p.SchemaTypes, want)
	}
	if len(p.Schema) != 1 || p.Schema[0].Source != "json-ld" {
		t.Errorf("Schema = %+v", p.Schema)
	}
}

func TestSchemaFallbacks(t *testing.T) {
	microdata := `<div itemscope itemtype="https://schema.org/Product"><span itemprop="name">X</span></div>
<div itemscope itemtype="http://schema.org/Product"></div>`
	p, err := Parse(microdata, "https://example.com/", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(p.SchemaTypes) != 1 || p.SchemaTypes[0] != "Product" {
		t.Errorf("microdata types = %v", p.SchemaTypes)
	}

	rdfa := `<div vocab="https://schema.org/" typeof="BreadcrumbList"><span property="name">X</span></div>`
	p, err = Parse(rdfa, "https://example.com/", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(p.SchemaTypes) != 1 || p.SchemaTypes[0] != "BreadcrumbList" {
		t.Errorf("rdfa types = %v", p.SchemaTypes)
	}

	broken := `<script type="application/ld+json">{not json</script>`
	p, err = Parse(broken, "https://example.com/", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(p.SchemaTypes) != 0 {
		t.Errorf("invalid JSON-LD produced types %v", p.SchemaTypes)
	}
}

func TestBaseHrefOnlyAffectsResolution(t *testing.T) {
	p, err := Parse(`<html><head><base href="http://cdn.example.net/assets/"></head><body>
<a href="/about">About</a>
<a href="team">Team</a>
<a href="https://www.example.com/contact">Contact</a>
<img src="logo.png" alt="Logo">
</body></html>`, "https://www.example.com/", nil)
	if err != nil {
		t.Fatal(err)
	}

	if !p.Security.HasHTTPS {
		t.Error("HTTPS must follow the page URL, not the base element")
	}
	if len(p.InternalLinks) != 1 || p.InternalLinks[0].URL != "https://www.example.com/contact" {
		t.Errorf("internal links = %v, want only the www.example.com link", p.InternalLinks)
	}
	external := map[string]bool{}
	for _, l := range p.ExternalLinks {
		external[l.URL] = true
	}
	if !external["http://cdn.example.net/about"] || !external["http://cdn.example.net/assets/team"] {
		t.Errorf("relative links must resolve against the base element, got %v", p.ExternalLinks)
	}
	if len(p.Images) != 1 || p.Images[0].URL != "http://cdn.example.net/assets/logo.png" {
		t.Errorf("images = %v", p.Images)
	}
}

func TestInlineMarkupDoesNotSplitWords(t *testing.T) {
	p, err := Parse(`<html><body><h1>Plumb<em>ing</em> services</h1>
<p>Emergency plumb<strong>ing</strong> repairs<br>today</p><ul><li>one</li><li>two</li></ul></body></html>`,
		"https://example.com/", nil)
	if err != nil {
		t.Fatal(err)
	}

	want := "Plumbing services Emergency plumbing repairs today one two"
	if p.Text != want {
		t.Errorf("Text = %q, want %q", p.Text, want)
	}
	if p.WordCount != 8 {
		t.Errorf("WordCount = %d, want 8", p.WordCount)
	}
	if len(p.Headings.H1) != 1 || p.Headings.H1[0] != "Plumbing services" {
		t.Errorf("H1 = %q", p.Headings.H1)
	}
}

func TestParseSecurity(t *testing.T) {
	headers := http.Header{}
	headers.Set("Strict-Transport-Security", "max-age=63072000")
	headers["x-frame-options"] = []string{"DENY"}

	p := parseSample(t, headers)
	if !p.Security.HasHTTPS {
		t.Error("expected https")
	}
	if !p.Security.HasSecurityHeaders {
		t.Errorf("expected security headers, got %v", p.Security.SecurityHeaders)
	}
	// The http stylesheet and the http image.
	if !p.Security.HasMixedContent || p.Security.MixedContentCount != 2 {
		t.Errorf("mixed content = %v (%d)", p.Security.HasMixedContent, p.Security.MixedContentCount)
	}

	onlyOne := http.Header{}
	onlyOne.Set("Referrer-Policy", "no-referrer")
	if parseSample(t, onlyOne).Security.HasSecurityHeaders {
		t.Error("one header must not count as having security headers")
	}

	plain, err := Parse(samplePage, "http://example.com/", nil)
	if err != nil {
		t.Fatal(err)
	}
	if plain.Security.HasHTTPS || plain.Security.HasMixedContent {
		t.Error("http pages cannot have mixed content")
	}
}

func TestParseResourcesAndStructure(t *testing.T) {
	p := parseSample(t, nil)
	if p.Resources.ExternalScripts != 1 || p.Resources.InlineScripts != 1 {
		t.Errorf("scripts = %+v", p.Resources)
	}
	if p.Resources.Stylesheets != 1 || p.Resources.MediaQueries != 1 || !p.Resources.Favicon {
		t.Errorf("resources = %+v", p.Resources)
	}
	if p.Structure.Lists != 1 {
		t.Errorf("lists = %d", p.Structure.Lists)
	}
	if p.Structure.CallsToAction != 1 {
		t.Errorf("calls to action = %d, want 1", p.Structure.CallsToAction)
	}
	if !p.Authorship.ContactLink || !p.Authorship.AboutLink {
		t.Errorf("authorship = %+v", p.Authorship)
	}
}

func TestDetectIssues(t *testing.T) {
	dup := `<html><head><title>A</title><title>B</title>
<meta name="description" content="one"><meta name="description" content="two">
<meta name="robots" content="NOINDEX, nofollow"></head><body><p>short</p></body></html>`
	p, err := Parse(dup, "https://example.com/", nil)
	if err != nil {
		t.Fatal(err)
	}
	issues := p.Issues
	if !issues.DuplicateTitle || !issues.DuplicateDescription || !issues.NoIndex ||
		!issues.ThinContent || !issues.MissingH1 {
		t.Errorf("issues = %+v", issues)
	}
	if issues.MissingTitle || issues.MissingDescription {
		t.Errorf("title and description are present: %+v", issues)
	}

	headers := http.Header{}
	headers.Set("X-Robots-Tag", "noindex")
	p, err = Parse("<html></html>", "https://example.com/", headers)
	if err != nil {
		t.Fatal(err)
	}
	if !p.Issues.NoIndex || !p.Issues.MissingTitle || !p.Issues.MissingDescription {
		t.Errorf("issues = %+v", p.Issues)
	}
}

func TestExtractFromFetchResult(t *testing.T) {
	res := &fetcher.PageFetchResult{
		URL:        "https://example.com/",
		FinalURL:   "https://example.com/home",
		Status:     fetcher.StatusOK,
		StatusCode: 404,
		Body:       "<title>Gone</title>",
		ByteSize:   19,
	}
	p, err := Extract(res)
	if err != nil {
		t.Fatal(err)
	}
	if p.URL != "https://example.com/home" || p.StatusCode != 404 || p.ByteSize != 19 {
		t.Errorf("page = %+v", p)
	}

	failed := &fetcher.PageFetchResult{URL: "https://example.com/", Status: fetcher.StatusNonHTML, Message: "pdf"}
	if _, err := Extract(failed); errs.KindOf(err) != errs.NonHTMLContent {
		t.Errorf("kind = %q, want %q", errs.KindOf(err), errs.NonHTMLContent)
	}
}

func TestDetectLanguage(t *testing.T) {
	if got := DetectLanguage("too short", 2); got != "" {
		t.Errorf("short text detected as %q", got)
	}
	text := "The quick brown fox jumps over the lazy dog while the children play in the garden " +
		"and their parents prepare a lovely dinner for the whole family this evening"
	if got := DetectLanguage(text, len(strings.Fields(text))); got != "en" {
		t.Errorf("DetectLanguage = %q, want en", got)
	}
}
