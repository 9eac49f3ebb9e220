package analyzer

import (
	"fmt"
	"strings"

	"github.com/cloudflare/ahocorasick"

	"github.com/seo-optimizer/auditor/extractor"
)

var expertisePhrases = []string{
	"years of experience", "certified", "licensed", "phd", "ph.d", "m.d.", "accredited",
	"award-winning", "award winning", "expert", "specialist", "professor", "peer-reviewed",
	"board-certified", "published in", "according to", "research shows", "case study",
}

var expertiseMatcher = ahocorasick.NewStringMatcher(expertisePhrases)

// expertiseSignals returns the distinct expertise phrases found in text, in list order.
func expertiseSignals(text string) []string {
	hits := expertiseMatcher.MatchThreadSafe([]byte(strings.ToLower(text)))
	seen := make(map[int]bool, len(hits))
	for _, i := range hits {
		seen[i] = true
	}
	found := []string{}
	for i, p := range expertisePhrases {
		if seen[i] {
			found = append(found, p)
		}
	}
	return found
}

// analyzeAuthority collects E-E-A-T signals. Base 40, clamped.
func analyzeAuthority(page *extractor.Page, _ string) (Factor, error) {
	f := newFactor(AuthorityFactor).(*AuthorityAnalysis)
	a := page.Authorship
	f.HasAuthor = a.HasAuthor
	f.Author = a.Author
	f.HasPublishedDate = a.HasPublished
	f.HasModifiedDate = a.HasModified
	f.AboutPage = a.AboutLink
	f.ContactPage = a.ContactLink
	f.PolicyPages = a.PolicyLink
	f.Citations = a.Citations
	f.ExpertiseSignals = expertiseSignals(page.Text)
	f.HTTPS = page.Security.HasHTTPS
	f.MixedContent = page.Security.HasMixedContent
	f.MixedContentCount = page.Security.MixedContentCount
	f.HasSecurityHeaders = page.Security.HasSecurityHeaders
	if page.Security.SecurityHeaders != nil {
		f.SecurityHeaders = page.Security.SecurityHeaders
	}
	for _, t := range page.SchemaTypes {
		switch t {
		case "Organization", "LocalBusiness", "Corporation":
			f.OrganizationSchema = true
		case "Person":
			f.PersonSchema = true
		}
	}

	score := 40
	if f.HasAuthor {
		score += 10
	} else {
		f.recommend("Show who wrote the content (author name or byline)")
	}
	if f.HasPublishedDate {
		score += 5
	}
	if f.HasModifiedDate {
		score += 5
	}
	if !f.HasPublishedDate && !f.HasModifiedDate {
		f.recommend("Display publication or last-updated dates")
	}
	if f.AboutPage {
		score += 5
	}
	if f.ContactPage {
		score += 5
	}
	if !f.AboutPage || !f.ContactPage {
		f.recommend("Link to About and Contact pages")
	}
	if f.PolicyPages {
		score += 5
	}
	switch {
	case f.Citations >= 3:
		score += 10
	case f.Citations > 0:
		score += 5
	default:
		f.recommend("Cite authoritative sources (.gov, .edu, research papers)")
	}
	if n := len(f.ExpertiseSignals); n > 0 {
		score += min(n*3, 10)
	}
	if f.HTTPS {
		score += 5
	} else {
		f.recommend("Serve the site over HTTPS")
	}
	// Mixed content is only counted on HTTPS pages.
	if f.MixedContent {
		score -= 10
		f.recommend(fmt.Sprintf("Load all %d insecure resource(s) over HTTPS to remove mixed content", f.MixedContentCount))
	}
	if f.HasSecurityHeaders {
		score += 5
	} else if f.HTTPS {
		f.recommend("Send security headers such as Strict-Transport-Security and Content-Security-Policy")
	}
	if f.OrganizationSchema || f.PersonSchema {
		score += 5
	} else {
		f.recommend("Add Organization or Person structured data")
	}

	f.OverallScore = NewScore(score)
	return f, nil
}
