package analyzer

import (
	"fmt"
	"net/http"
	"slices"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/seo-optimizer/auditor/extractor"
)

func parse(t *testing.T, body string) *extractor.Page {
	t.Helper()
	return parseAt(t, body, "https://example.com/services/plumbing")
}

func parseAt(t *testing.T, body, pageURL string) *extractor.Page {
	t.Helper()
	page, err := extractor.Parse(body, pageURL, nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return page
}

func score(t *testing.T, fn func(*extractor.Page, string) (Factor, error), page *extractor.Page, keyword string) Factor {
	t.Helper()
	f, err := fn(page, keyword)
	if err != nil {
		t.Fatalf("scorer failed: %v", err)
	}
	return f
}

func TestMetaTagsScore(t *testing.T) {
	page := parse(t, `<html><head>
<title>Plumbing services in Springfield | Acme Co</title>
<meta name="description" content="Plumbing services for homes and businesses. Fast repairs, honest quotes and licensed plumbers on call.">
<meta name="robots" content="index, follow">
<link rel="canonical" href="https://example.com/services/plumbing">
<meta property="og:title" content="Plumbing">
<meta name="twitter:card" content="summary">
</head><body></body></html>`)

	f := score(t, analyzeMetaTags, page, "plumbing services").(*MetaTagsAnalysis)
	// 50 + title 10 + length 10 + keyword 5 + early keyword 5 + description 10 + length 10 + keyword 5
	// + canonical, robots, og, twitter 20, capped
	if f.OverallScore.Score != 100 {
		t.Errorf("score = %d, want 100", f.OverallScore.Score)
	}
	if !f.KeywordInTitle || !f.KeywordInDescription || !f.HasCanonical {
		t.Errorf("unexpected flags %+v", f)
	}

	empty := score(t, analyzeMetaTags, parse(t, `<html><body></body></html>`), "").(*MetaTagsAnalysis)
	if empty.OverallScore.Score != 50 || len(empty.Recommendations) == 0 {
		t.Errorf("empty page = %d with %v", empty.OverallScore.Score, empty.Recommendations)
	}
}

func TestTitleKeywordPosition(t *testing.T) {
	tests := []struct {
		title string
		want  int
	}{
		{"Plumbing services in Springfield", 0},
		{"Our plumbing services", 4},
		{"Replumbing services and more", -1},
		{"Plumbingservices pros", -1},
		{"Acme Co | PLUMBING Services", 10},
	}
	for _, tt := range tests {
		if got := phraseIndex(tt.title, "plumbing services"); got != tt.want {
			t.Errorf("phraseIndex(%q) = %d, want %d", tt.title, got, tt.want)
		}
		if got := containsPhrase(tt.title, "plumbing services"); got != (tt.want >= 0) {
			t.Errorf("containsPhrase(%q) = %v, disagrees with phraseIndex", tt.title, got)
		}
	}

	// "Re" + keyword matches no whole word, so neither the title keyword nor the early bonus apply.
	page := parse(t, `<html><head><title>Replumbing services and plumbing services</title></head><body></body></html>`)
	f := score(t, analyzeMetaTags, page, "plumbing services").(*MetaTagsAnalysis)
	early := score(t, analyzeMetaTags,
		parse(t, `<html><head><title>Plumbing services and replumbing services</title></head><body></body></html>`),
		"plumbing services").(*MetaTagsAnalysis)
	if !f.KeywordInTitle || early.OverallScore.Score-f.OverallScore.Score != 5 {
		t.Errorf("late keyword = %d, early keyword = %d, want a 5 point difference",
			f.OverallScore.Score, early.OverallScore.Score)
	}
}

func TestContentScoreTiers(t *testing.T) {
	words := func(n int) string { return strings.TrimSpace(strings.Repeat("word ", n)) }
	tests := []struct {
		name string
		body string
		want int
	}{
		{"empty", ``, 50},
		// 300 words in a single sentence reads at a high grade: no readability bonus
		{"300 words", `<p>` + words(300) + `</p>`, 60},
		{"h1 and h2", `<h1>Title</h1><h2>Sub</h2><h3>Detail</h3>`, 50 + 10 + 5 + 3 + 5},
		{"two h1", `<h1>One</h1><h1>Two</h1>`, 50 + 5 + 5},
		{"image", `<img src="a.png" alt="a">`, 50 + 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := score(t, analyzeContent, parse(t, `<html><body>`+tt.body+`</body></html>`), "")
			if got := f.Base().OverallScore.Score; got != tt.want {
				t.Errorf("score = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestInternalLinksScore(t *testing.T) {
	page := parse(t, `<html><body>
<a href="/a">Emergency plumbing repairs</a>
<a href="/b">click here</a>
<a href="/c">read more</a>
<a href="/d">Water heater installation</a>
<a href="/e">Drain cleaning</a>
<a href="https://other.example/">Elsewhere</a>
</body></html>`)
	page.InternalLinks[1].Broken = true

	f := score(t, analyzeInternalLinks, page, "").(*InternalLinksAnalysis)
	// 50 + 15 quantity + 10 unique + 10 descriptive - 5 broken
	if f.OverallScore.Score != 80 {
		t.Errorf("score = %d, want 80", f.OverallScore.Score)
	}
	if f.GenericAnchors != 2 || f.DescriptiveAnchors != 3 || f.BrokenLinks != 1 || f.ExternalLinks != 1 {
		t.Errorf("unexpected counts %+v", f)
	}
}

func TestInternalLinksClampsAtZero(t *testing.T) {
	var b strings.Builder
	for i := range 20 {
		fmt.Fprintf(&b, `<a href="/p%d">here</a>`, i)
	}
	page := parse(t, `<html><body>`+b.String()+`</body></html>`)
	for i := range page.InternalLinks {
		page.InternalLinks[i].Broken = true
	}
	if got := score(t, analyzeInternalLinks, page, "").Base().OverallScore.Score; got != 0 {
		t.Errorf("score = %d, want 0", got)
	}
}

func TestGenericAnchors(t *testing.T) {
	for _, text := range []string{"", "Click here", "READ MORE", "learn more »", "here"} {
		if !isGenericAnchor(text) {
			t.Errorf("%q should be generic", text)
		}
	}
	for _, text := range []string{"Pricing", "Water heater installation", "Read more about our drain cleaning service"} {
		if isGenericAnchor(text) {
			t.Errorf("%q should be descriptive", text)
		}
	}
}

func TestImagesScore(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"none", ``, 50},
		{"all alt, optimized", `<img src="a.webp" alt="a"><img src="b.avif" alt="b">`, 50 + 10 + 25 + 15},
		{"half alt, none optimized", `<img src="a.png" alt="a"><img src="b.png">`, 50 + 10 + 10},
		{"lazy and sized", `<img src="a.jpg" alt="a" loading="lazy" width="10" height="10"><img src="b.jpg" alt="">`, 50 + 10 + 10 + 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := score(t, analyzeImages, parse(t, `<html><body>`+tt.body+`</body></html>`), "")
			if got := f.Base().OverallScore.Score; got != tt.want {
				t.Errorf("score = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSchemaMarkupScore(t *testing.T) {
	page := parse(t, `<html><head><script type="application/ld+json">
{"@context":"https://schema.org","@graph":[
 {"@type":"LocalBusiness","name":"Acme"},
 {"@type":"BreadcrumbList"},
 {"@type":"FAQPage"}
]}</script></head><body></body></html>`)

	f := score(t, analyzeSchemaMarkup, page, "").(*SchemaMarkupAnalysis)
	if f.OverallScore.Score != 50+25+15 {
		t.Errorf("score = %d, want 90", f.OverallScore.Score)
	}
	if !f.Organization || !f.Breadcrumb || !f.FAQ || f.Product || f.Article {
		t.Errorf("unexpected families %+v", f)
	}
	if !slices.Equal(f.Formats, []string{"json-ld"}) {
		t.Errorf("formats = %v", f.Formats)
	}

	none := score(t, analyzeSchemaMarkup, parse(t, `<html></html>`), "")
	if none.Base().OverallScore.Score != 50 {
		t.Errorf("no schema = %d, want 50", none.Base().OverallScore.Score)
	}
}

func TestMobileScore(t *testing.T) {
	good := parse(t, `<html><head>
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta name="theme-color" content="#fff">
<style>@media (max-width: 600px) { body { margin: 0 } }</style>
</head><body><img src="a.jpg" srcset="a-2x.jpg 2x" alt="a"></body></html>`)
	f := score(t, analyzeMobile, good, "").(*MobileAnalysis)
	if f.OverallScore.Score != 50+20+5+5+5+5+5 {
		t.Errorf("score = %d, want 95", f.OverallScore.Score)
	}

	locked := parse(t, `<html><head><meta name="viewport" content="width=1024, user-scalable=no"></head>
<body><object data="movie.swf"></object></body></html>`)
	f = score(t, analyzeMobile, locked, "").(*MobileAnalysis)
	if !f.ZoomDisabled || f.OverallScore.Score != 40 {
		t.Errorf("locked viewport = %d (zoom disabled %v), want 40", f.OverallScore.Score, f.ZoomDisabled)
	}
}

func TestPageSpeedScore(t *testing.T) {
	tests := []struct {
		load     time.Duration
		size     int64
		want     int
		severity string
	}{
		{500 * time.Millisecond, 100 * kb, 50 + 20 + 15 + 10, "good"},
		{1800 * time.Millisecond, 700 * kb, 50 + 15 + 10 + 10, "moderate"},
		{4 * time.Second, 1500 * kb, 50 + 5 + 5 + 10, "critical"},
		{9 * time.Second, 4 * mb, 50 - 10 - 10 + 10, "critical"},
	}
	for _, tt := range tests {
		page := &extractor.Page{LoadTime: tt.load, ByteSize: tt.size}
		f := score(t, analyzePageSpeed, page, "").(*PageSpeedAnalysis)
		if f.OverallScore.Score != tt.want || f.LoadTimeSeverity != tt.severity {
			t.Errorf("%v/%d: score %d severity %s, want %d %s",
				tt.load, tt.size, f.OverallScore.Score, f.LoadTimeSeverity, tt.want, tt.severity)
		}
	}
}

func TestUserEngagementScore(t *testing.T) {
	thin := score(t, analyzeUserEngagement, parse(t, `<html><body><p>Hi.</p></body></html>`), "").(*UserEngagementAnalysis)
	if thin.ContentDepth != "shallow" || thin.EstimatedBounceRate <= 70 {
		t.Errorf("thin page: depth %s bounce %.1f", thin.ContentDepth, thin.EstimatedBounceRate)
	}

	var b strings.Builder
	b.WriteString(`<html><body><h2>One</h2><h2>Two</h2><ul><li>a</li></ul><img src="a.jpg" alt="a">`)
	for i := range 20 {
		fmt.Fprintf(&b, `<p>%s</p><a href="/p%d">Page %d</a>`, strings.Repeat("useful words here ", 25), i, i)
	}
	b.WriteString(`<a href="/contact" class="btn">Get a quote</a></body></html>`)
	rich := score(t, analyzeUserEngagement, parse(t, b.String()), "").(*UserEngagementAnalysis)
	if rich.ContentDepth != "comprehensive" {
		t.Errorf("depth = %s, want comprehensive", rich.ContentDepth)
	}
	if rich.OverallScore.Score <= thin.OverallScore.Score || rich.EstimatedBounceRate >= thin.EstimatedBounceRate {
		t.Errorf("rich page (%d, %.1f%%) should beat thin page (%d, %.1f%%)",
			rich.OverallScore.Score, rich.EstimatedBounceRate, thin.OverallScore.Score, thin.EstimatedBounceRate)
	}
	if rich.ReadingTimeMinutes < 7 {
		t.Errorf("reading time = %.1f", rich.ReadingTimeMinutes)
	}
}

func TestAuthorityScore(t *testing.T) {
	page := parse(t, `<html><head><meta name="author" content="Jane Doe">
<script type="application/ld+json">{"@type":"Organization","name":"Acme"}</script></head>
<body><p>Jane is a licensed plumber with 20 years of experience. According to
<a href="https://www.epa.gov/watersense">the EPA</a>, leaks waste water.</p>
<a href="/about">About us</a><a href="/contact">Contact</a><a href="/privacy">Privacy policy</a>
</body></html>`)

	f := score(t, analyzeAuthority, page, "").(*AuthorityAnalysis)
	if !f.HasAuthor || !f.AboutPage || !f.ContactPage || !f.PolicyPages || !f.HTTPS || !f.OrganizationSchema {
		t.Errorf("missing signals %+v", f)
	}
	if !slices.Contains(f.ExpertiseSignals, "years of experience") || !slices.Contains(f.ExpertiseSignals, "licensed") {
		t.Errorf("expertise signals = %v", f.ExpertiseSignals)
	}
	if f.OverallScore.Score < 70 {
		t.Errorf("score = %d, want at least 70", f.OverallScore.Score)
	}

	bare := score(t, analyzeAuthority, parse(t, `<html><body></body></html>`), "")
	if bare.Base().OverallScore.Score >= f.OverallScore.Score {
		t.Error("bare page should score below a page with authority signals")
	}
}

func TestAuthoritySecuritySignals(t *testing.T) {
	const pageURL = "https://example.com/services/plumbing"
	clean := `<html><body><p>Hi</p><img src="/a.png" alt="a"></body></html>`
	mixed := `<html><body><p>Hi</p><img src="http://cdn.example.com/a.png" alt="a">
<script src="http://cdn.example.com/app.js"></script></body></html>`
	headers := http.Header{
		"Strict-Transport-Security": {"max-age=31536000"},
		"Content-Security-Policy":   {"default-src 'self'"},
	}
	hardenedPage, err := extractor.Parse(clean, pageURL, headers)
	if err != nil {
		t.Fatal(err)
	}

	plain := score(t, analyzeAuthority, parse(t, clean), "").(*AuthorityAnalysis)
	hardened := score(t, analyzeAuthority, hardenedPage, "").(*AuthorityAnalysis)
	insecure := score(t, analyzeAuthority, parse(t, mixed), "").(*AuthorityAnalysis)

	if !hardened.HasSecurityHeaders || len(hardened.SecurityHeaders) != 2 {
		t.Errorf("security headers = %v", hardened.SecurityHeaders)
	}
	if d := hardened.OverallScore.Score - plain.OverallScore.Score; d != 5 {
		t.Errorf("security headers added %d points, want 5", d)
	}
	if !slices.ContainsFunc(plain.Recommendations, func(s string) bool { return strings.Contains(s, "security headers") }) {
		t.Errorf("missing security header advice in %v", plain.Recommendations)
	}

	if !insecure.MixedContent || insecure.MixedContentCount != 2 {
		t.Errorf("mixed content = %v (%d)", insecure.MixedContent, insecure.MixedContentCount)
	}
	if d := plain.OverallScore.Score - insecure.OverallScore.Score; d != 10 {
		t.Errorf("mixed content cost %d points, want 10", d)
	}

	// Plain HTTP pages are never flagged for mixed content or missing headers.
	plainHTTP := score(t, analyzeAuthority, parseAt(t, mixed, "http://example.com/"), "").(*AuthorityAnalysis)
	if plainHTTP.MixedContent || slices.ContainsFunc(plainHTTP.Recommendations, func(s string) bool { return strings.Contains(s, "security headers") }) {
		t.Errorf("unexpected HTTPS findings on an HTTP page: %+v", plainHTTP)
	}
}

func TestContentReportsAccessibility(t *testing.T) {
	page := parse(t, `<html lang="en"><body><h1>Contact</h1>
<form><input type="text" name="q"><label>Name <input name="name"></label>
<input type="email" aria-label="Email"><input type="submit"></form>
<nav role="navigation"><img src="/a.png"></nav></body></html>`)

	f := score(t, analyzeContent, page, "").(*ContentAnalysis)
	a := f.Accessibility
	if a.FormInputsWithoutLabels != 1 || !a.HasARIA || a.MissingAltText != 1 || !a.HasLang {
		t.Errorf("accessibility = %+v", a)
	}
}

func TestAggregateReportsStatusAndSecurity(t *testing.T) {
	res := &AnalysisResult{StatusCode: http.StatusGone}
	for _, name := range FactorNames {
		f := newFactor(name)
		f.Base().OverallScore = NewScore(65)
		res.setFactor(f)
	}
	res.AuthorityAnalysis.HTTPS = true
	res.AuthorityAnalysis.MixedContent = true
	res.AuthorityAnalysis.MixedContentCount = 3
	res.ContentAnalysis.H1Count = 1
	res.ContentAnalysis.Accessibility.FormInputsWithoutLabels = 2
	aggregate(res)

	want := []string{
		"Page returned HTTP 410",
		"2 form input(s) without labels",
		"Mixed content: 3 resource(s) loaded over HTTP",
		"Missing security headers",
	}
	for _, w := range want {
		if !slices.Contains(res.Weaknesses, w) {
			t.Errorf("weaknesses %v lack %q", res.Weaknesses, w)
		}
	}
	if res.Weaknesses[0] != want[0] {
		t.Errorf("first weakness = %q, want the status", res.Weaknesses[0])
	}
	if len(res.Recommendations) == 0 || res.Recommendations[0] != statusAdvice(http.StatusGone) {
		t.Errorf("recommendations = %v", res.Recommendations)
	}

	res = &AnalysisResult{StatusCode: http.StatusOK}
	for _, name := range FactorNames {
		res.setFactor(newFactor(name))
	}
	aggregate(res)
	for _, w := range res.Weaknesses {
		if strings.HasPrefix(w, "Page returned HTTP") {
			t.Errorf("200 page reported %q", w)
		}
	}
}

func TestKeywordScore(t *testing.T) {
	page := parseAt(t, `<html><head><title>Plumbing Services</title>
<meta name="description" content="Plumbing services near you."></head><body>
<h1>Plumbing services</h1><h2>Our plumbing services</h2>
<p>`+strings.Repeat("Trusted local team for repairs and installs. ", 60)+`Plumbing services.</p>
<img src="a.jpg" alt="plumbing services van"></body></html>`, "https://example.com/plumbing-services")

	f := score(t, analyzeKeyword, page, "plumbing services").(*KeywordAnalysis)
	if !f.InTitle || !f.InDescription || !f.InH1 || !f.InH2 || !f.InFirst100Words || !f.InURL || !f.InImageAlt {
		t.Errorf("unexpected placement flags %+v", f)
	}
	if f.Stuffing {
		t.Errorf("density %.2f flagged as stuffing", f.Density)
	}

	stuffed := parse(t, `<html><body><p>`+strings.Repeat("cheap shoes ", 40)+`</p></body></html>`)
	s := score(t, analyzeKeyword, stuffed, "cheap shoes").(*KeywordAnalysis)
	if !s.Stuffing {
		t.Errorf("density %.2f not flagged", s.Density)
	}
}

func TestDeriveKeyword(t *testing.T) {
	page := parse(t, `<html><head><title>Fresh Coffee Beans | Roastery</title>
<meta name="description" content="Order fresh coffee beans online."></head>
<body><h1>Fresh coffee beans, roasted daily</h1></body></html>`)
	if got := DeriveKeyword(page); got != "fresh coffee" {
		t.Errorf("DeriveKeyword = %q, want \"fresh coffee\"", got)
	}
	if got := DeriveKeyword(parse(t, `<html></html>`)); got != "" {
		t.Errorf("empty page keyword = %q", got)
	}
}

func TestScoresStayInBounds(t *testing.T) {
	pages := []*extractor.Page{
		parse(t, ``),
		parse(t, `<html><body>`+strings.Repeat(`<h1>x</h1><a href="/x">here</a><img src="x.png">`, 200)+`</body></html>`),
		{LoadTime: time.Hour, ByteSize: 1 << 40},
		{WordCount: 1 << 20, Issues: extractor.Issues{ThinContent: true}},
	}
	for i, page := range pages {
		res := &AnalysisResult{}
		New(nil).scorePage(page, "", res, zap.NewNop())
		for _, f := range res.Factors() {
			if s := f.Base().OverallScore.Score; s < 0 || s > 100 {
				t.Errorf("page %d: %s = %d", i, f.Name(), s)
			}
		}
		if s := res.OverallScore.Score; s < 0 || s > 100 {
			t.Errorf("page %d: overall = %d", i, s)
		}
	}
}

func TestOverallScoreUsesWeightsByName(t *testing.T) {
	meta := newFactor(MetaTagsFactor)
	meta.Base().OverallScore = NewScore(100)
	authority := newFactor(AuthorityFactor)
	authority.Base().OverallScore = NewScore(0)
	content := defaultFactor(ContentFactor, "failed")

	// .15*100 / (.15+.04) = 78.9; the fallback content factor is ignored
	got := overallScore([]Factor{authority, content, meta})
	if got.Score != 79 || got.Category != Good {
		t.Errorf("overall = %+v, want 79/good", got)
	}

	if got := overallScore([]Factor{content}); got.Score != 0 || got.Category != Poor {
		t.Errorf("all fallback = %+v, want 0/poor", got)
	}
}

func TestAggregateCapsAndDedupes(t *testing.T) {
	res := &AnalysisResult{}
	for _, name := range FactorNames {
		f := newFactor(name)
		f.Base().OverallScore = NewScore(10)
		for i := range 6 {
			f.Base().recommend(fmt.Sprintf("Fix %s issue %d", name, i))
			f.Base().recommend("Shared advice")
		}
		res.setFactor(f)
	}
	aggregate(res)

	check := func(name string, list []string, limit int) {
		if len(list) > limit {
			t.Errorf("%s has %d entries, cap %d", name, len(list), limit)
		}
		seen := make(map[string]bool)
		for _, s := range list {
			if seen[s] {
				t.Errorf("%s repeats %q", name, s)
			}
			seen[s] = true
		}
	}
	check("strengths", res.Strengths, maxStrengths)
	check("weaknesses", res.Weaknesses, maxWeaknesses)
	check("recommendations", res.Recommendations, maxRecommendations)

	if len(res.Weaknesses) != maxWeaknesses || len(res.Recommendations) != maxRecommendations {
		t.Errorf("expected full lists, got %d weaknesses and %d recommendations",
			len(res.Weaknesses), len(res.Recommendations))
	}
}
