package analyzer

import (
	"fmt"
	"unicode/utf8"

	"github.com/seo-optimizer/auditor/extractor"
)

// analyzeMetaTags scores the title, description and head metadata. Base 50, capped at 100.
func analyzeMetaTags(page *extractor.Page, keyword string) (Factor, error) {
	f := newFactor(MetaTagsFactor).(*MetaTagsAnalysis)
	meta := page.Meta

	f.Title = page.Title
	f.TitleLength = utf8.RuneCountInString(page.Title)
	f.HasTitle = f.TitleLength > 0
	f.Description = meta.Description
	f.DescriptionLength = utf8.RuneCountInString(meta.Description)
	f.HasDescription = f.DescriptionLength > 0
	f.Canonical = meta.Canonical
	f.HasCanonical = meta.Canonical != ""
	f.Robots = meta.Robots
	f.HasRobots = meta.Robots != ""
	f.HasOpenGraph = len(meta.OpenGraph) > 0
	f.HasTwitterCard = len(meta.Twitter) > 0
	f.DuplicateTitle = page.Issues.DuplicateTitle
	f.DuplicateDescription = page.Issues.DuplicateDescription
	f.NoIndex = page.Issues.NoIndex

	score := 50

	switch {
	case !f.HasTitle:
		f.recommend("Add a title tag to your page")
	default:
		score += 10
		switch {
		case f.TitleLength >= 30 && f.TitleLength <= 60:
			score += 10
		case f.TitleLength < 30:
			f.recommend(fmt.Sprintf("Title tag is too short (%d characters, should be 30-60)", f.TitleLength))
		default:
			f.recommend(fmt.Sprintf("Title tag is too long (%d characters, should be 30-60)", f.TitleLength))
		}
		if keyword != "" && containsPhrase(page.Title, keyword) {
			f.KeywordInTitle = true
			score += 5
			if i := phraseIndex(page.Title, keyword); i >= 0 && i < 5 {
				score += 5
			}
		}
	}

	switch {
	case !f.HasDescription:
		f.recommend("Add a meta description")
	default:
		score += 10
		switch {
		case f.DescriptionLength >= 70 && f.DescriptionLength <= 160:
			score += 10
		case f.DescriptionLength < 70:
			f.recommend(fmt.Sprintf("Meta description is too short (%d characters, should be 70-160)", f.DescriptionLength))
		default:
			f.recommend(fmt.Sprintf("Meta description is too long (%d characters, should be 70-160)", f.DescriptionLength))
		}
		if keyword != "" && containsPhrase(meta.Description, keyword) {
			f.KeywordInDescription = true
			score += 5
		}
	}

	if f.HasCanonical {
		score += 5
	} else {
		f.recommend("Add a canonical link to declare the preferred URL of this page")
	}
	if f.HasRobots {
		score += 5
	}
	if f.HasOpenGraph {
		score += 5
	} else {
		f.recommend("Add Open Graph tags (og:title, og:description, og:image) for social sharing")
	}
	if f.HasTwitterCard {
		score += 5
	} else {
		f.recommend("Add Twitter card tags for richer previews")
	}

	if f.DuplicateTitle {
		f.recommend("Remove duplicate title tags; a page should have exactly one")
	}
	if f.DuplicateDescription {
		f.recommend("Remove duplicate meta description tags")
	}
	if f.NoIndex {
		f.recommend("The page is marked noindex; remove the directive if it should appear in search results")
	}

	f.OverallScore = NewScore(min(score, 100))
	return f, nil
}
