package analyzer

import (
	"fmt"

	"github.com/seo-optimizer/auditor/extractor"
)

// analyzeContent scores text depth, heading structure and readability. Base 50, clamped.
func analyzeContent(page *extractor.Page, _ string) (Factor, error) {
	f := newFactor(ContentFactor).(*ContentAnalysis)
	f.WordCount = page.WordCount
	f.ParagraphCount = len(page.Paragraphs)
	f.H1Count = page.HeadingCount(1)
	f.H2Count = page.HeadingCount(2)
	f.H3Count = page.HeadingCount(3)
	f.ProperHeadingStructure = page.Accessibility.ProperHeadingStructure
	f.ImageCount = len(page.Images)
	f.ThinContent = page.WordCount < extractor.ThinContentWords
	f.ReadabilityGrade, f.ReadingEase = readability(page.Text)
	f.Accessibility = page.Accessibility

	score := 50

	if f.WordCount >= 300 {
		score += 10
	}
	if f.WordCount >= 600 {
		score += 10
	}
	if f.WordCount >= 1000 {
		score += 5
	}
	if f.ThinContent {
		f.recommend(fmt.Sprintf("Add more content (%d words, aim for at least 300)", f.WordCount))
	}

	switch {
	case f.H1Count == 1:
		score += 10
	case f.H1Count > 1:
		score += 5
		f.recommend("Multiple H1 headings found - consider using only one")
	default:
		f.recommend("Add an H1 heading")
	}
	if f.H2Count > 0 {
		score += 5
	} else {
		f.recommend("Break the content into sections with H2 subheadings")
	}
	if f.H3Count > 0 {
		score += 3
	}
	if f.ParagraphCount >= 5 {
		score += 5
	}

	if f.WordCount > 0 {
		switch {
		case f.ReadabilityGrade <= 8:
			score += 5
		case f.ReadabilityGrade <= 12:
			score += 3
		default:
			f.recommend(fmt.Sprintf("Simplify the writing (reading grade %.1f, aim for 8-12)", f.ReadabilityGrade))
		}
	}

	if f.ImageCount > 0 {
		score += 7
	} else {
		f.recommend("Add relevant images to support the content")
	}

	f.OverallScore = NewScore(score)
	return f, nil
}
