package analyzer

import (
	"fmt"

	"github.com/seo-optimizer/auditor/extractor"
)

const wordsPerMinute = 200

// analyzeUserEngagement estimates engagement from content signals. The bounce rate starts at 70%
// and drops with every engagement signal found; reading time assumes 200 words per minute.
func analyzeUserEngagement(page *extractor.Page, _ string) (Factor, error) {
	f := newFactor(UserEngagementFactor).(*UserEngagementAnalysis)
	s := page.Structure
	f.Lists = s.Lists
	f.MediaElements = len(page.Images) + s.Videos + s.Audio + s.Embeds
	f.InternalLinks = len(page.InternalLinks)
	f.CallsToAction = s.CallsToAction
	f.SubHeadings = page.HeadingCount(2) + page.HeadingCount(3)
	f.SocialLinks = s.SocialLinks
	f.ReadingTimeMinutes = round1(float64(page.WordCount) / wordsPerMinute)
	if n := len(page.Paragraphs); n > 0 {
		words := 0
		for _, p := range page.Paragraphs {
			words += len(tokenize(p))
		}
		f.AvgParagraphWords = round1(float64(words) / float64(n))
	}

	score := 50
	bounce := 70.0

	switch {
	case page.WordCount >= 1500:
		f.ContentDepth = "comprehensive"
		score += 10
		bounce -= 10
	case page.WordCount >= 600:
		f.ContentDepth = "moderate"
		score += 5
		bounce -= 5
	default:
		f.ContentDepth = "shallow"
	}
	if f.Lists > 0 {
		score += 5
		bounce -= 3
	}
	if f.MediaElements > 0 || s.Tables > 0 {
		score += 5
		bounce -= 5
	} else {
		f.recommend("Add images, video or tables to break up the text")
	}
	if f.InternalLinks >= 5 {
		score += 5
		bounce -= 5
	}
	if f.CallsToAction > 0 {
		score += 5
		bounce -= 3
	} else {
		f.recommend("Add a clear call to action")
	}
	if f.AvgParagraphWords > 0 && f.AvgParagraphWords <= 100 {
		score += 5
	} else if f.AvgParagraphWords > 150 {
		f.recommend(fmt.Sprintf("Shorten paragraphs (average %.0f words)", f.AvgParagraphWords))
	}
	if f.SubHeadings >= 2 {
		score += 5
		bounce -= 2
	} else {
		f.recommend("Use sub-headings (h2/h3) to make the page easier to scan")
	}
	if f.SocialLinks > 0 {
		score += 3
	}
	if page.Issues.ThinContent {
		score -= 10
		bounce += 10
	}

	f.EstimatedBounceRate = min(max(bounce, 20), 90)
	f.OverallScore = NewScore(score)
	return f, nil
}
