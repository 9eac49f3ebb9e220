package analyzer

import (
	"fmt"
	"strings"

	"github.com/cloudflare/ahocorasick"

	"github.com/seo-optimizer/auditor/extractor"
)

var genericAnchorPhrases = []string{
	"click here", "read more", "learn more", "more info", "more", "here", "this link", "link",
	"continue", "continue reading", "details", "view more", "see more", "this page", "website",
}

// Phrases are padded with spaces so they only match whole words.
var genericAnchors = func() *ahocorasick.Matcher {
	padded := make([]string, len(genericAnchorPhrases))
	for i, p := range genericAnchorPhrases {
		padded[i] = " " + p + " "
	}
	return ahocorasick.NewStringMatcher(padded)
}()

// isGenericAnchor reports whether anchor text says nothing about its target: empty, or at most
// four words including a blocklisted phrase.
func isGenericAnchor(text string) bool {
	words := tokenize(text)
	if len(words) == 0 {
		return true
	}
	if len(words) > 4 {
		return false
	}
	padded := " " + strings.Join(words, " ") + " "
	return len(genericAnchors.MatchThreadSafe([]byte(padded))) > 0
}

// analyzeInternalLinks scores same-site linking. Base 50, clamped.
func analyzeInternalLinks(page *extractor.Page, _ string) (Factor, error) {
	f := newFactor(InternalLinksFactor).(*InternalLinksAnalysis)
	f.InternalLinks = len(page.InternalLinks)
	f.ExternalLinks = len(page.ExternalLinks)

	unique := make(map[string]bool, len(page.InternalLinks))
	for _, l := range page.InternalLinks {
		unique[l.URL] = true
		if l.Broken {
			f.BrokenLinks++
		}
		if l.NoFollow {
			f.NoFollowLinks++
		}
		if isGenericAnchor(l.AnchorText) {
			f.GenericAnchors++
		} else {
			f.DescriptiveAnchors++
		}
	}
	f.UniqueInternal = len(unique)

	score := 50
	if f.InternalLinks >= 1 {
		score += 5
	}
	if f.InternalLinks >= 3 {
		score += 5
	}
	if f.InternalLinks >= 5 {
		score += 5
	}
	if f.UniqueInternal >= 3 {
		score += 10
	}
	if f.DescriptiveAnchors > 0 {
		score += 10
	}
	score -= 5 * f.BrokenLinks

	if f.InternalLinks < 3 {
		f.recommend("Add more internal links to improve site navigation and SEO (aim for at least 3-5)")
	}
	if f.GenericAnchors > 0 {
		f.recommend(fmt.Sprintf("Replace %d generic anchor text(s) such as \"click here\" with descriptive text", f.GenericAnchors))
	}
	if f.BrokenLinks > 0 {
		f.recommend(fmt.Sprintf("Fix broken links: Found %d broken internal link(s)", f.BrokenLinks))
	}
	if f.NoFollowLinks > 0 {
		f.recommend("Avoid rel=\"nofollow\" on internal links so link equity flows through the site")
	}

	f.OverallScore = NewScore(score)
	return f, nil
}
