package analyzer

import (
	"fmt"

	"github.com/seo-optimizer/auditor/extractor"
)

var modernImageFormats = map[string]bool{"webp": true, "avif": true, "svg": true}

// analyzeImages scores alt coverage and an optimization proxy built from markup hints, since
// image bytes are never downloaded. Base 50, clamped.
func analyzeImages(page *extractor.Page, _ string) (Factor, error) {
	f := newFactor(ImageFactor).(*ImageAnalysis)
	f.TotalImages = len(page.Images)

	for _, img := range page.Images {
		if img.HasAlt && img.Alt != "" {
			f.WithAlt++
		}
		modern := modernImageFormats[img.Format]
		if modern {
			f.ModernFormats++
		}
		if img.Lazy {
			f.LazyLoaded++
		}
		if img.Srcset {
			f.Responsive++
		}
		if modern || img.Srcset || (img.Lazy && img.Sized) {
			f.OptimizedImages++
		}
	}
	f.MissingAlt = f.TotalImages - f.WithAlt

	score := 50
	if f.TotalImages == 0 {
		f.OverallScore = NewScore(score)
		return f, nil
	}
	score += 10

	f.AltCoverage = round2(float64(f.WithAlt) / float64(f.TotalImages))
	switch {
	case f.WithAlt == f.TotalImages:
		score += 25
	case f.AltCoverage >= 0.75:
		score += 15
	case f.AltCoverage >= 0.5:
		score += 10
	}
	if f.MissingAlt > 0 {
		f.recommend(fmt.Sprintf("Add alt text to all images (%d missing)", f.MissingAlt))
	}

	optimized := float64(f.OptimizedImages) / float64(f.TotalImages)
	switch {
	case optimized >= 0.75:
		score += 15
	case optimized >= 0.5:
		score += 10
	case optimized > 0:
		score += 5
	}
	if optimized < 0.75 {
		f.recommend("Serve images in modern formats (WebP/AVIF), with srcset or lazy loading and explicit dimensions")
	}

	f.OverallScore = NewScore(score)
	return f, nil
}
