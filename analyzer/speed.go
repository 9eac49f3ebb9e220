package analyzer

import (
	"fmt"
	"time"

	"github.com/seo-optimizer/auditor/extractor"
)

const (
	kb = 1024
	mb = 1024 * kb
)

func loadTimeSeverity(d time.Duration) string {
	ms := d.Milliseconds()
	switch {
	case ms > 3000:
		return "critical"
	case ms > 2000:
		return "major"
	case ms > 1500:
		return "moderate"
	case ms > 1000:
		return "minor"
	}
	return "good"
}

func pageSizeSeverity(size int64) string {
	switch {
	case size > 5*mb:
		return "critical"
	case size > 2*mb:
		return "major"
	case size > mb:
		return "moderate"
	case size > 500*kb:
		return "minor"
	}
	return "good"
}

// analyzePageSpeed scores the measured fetch of the page. Base 50, clamped.
func analyzePageSpeed(page *extractor.Page, _ string) (Factor, error) {
	f := newFactor(PageSpeedFactor).(*PageSpeedAnalysis)
	f.LoadTimeMs = page.LoadTime.Milliseconds()
	f.PageSize = page.ByteSize
	f.LoadTimeSeverity = loadTimeSeverity(page.LoadTime)
	f.PageSizeSeverity = pageSizeSeverity(page.ByteSize)
	f.ExternalScripts = page.Resources.ExternalScripts
	f.Stylesheets = page.Resources.Stylesheets
	for _, img := range page.Images {
		if img.Lazy {
			f.LazyImages++
		}
	}

	score := 50
	switch lt := page.LoadTime; {
	case lt < time.Second:
		score += 20
	case lt < 2*time.Second:
		score += 15
	case lt < 3*time.Second:
		score += 10
	case lt < 5*time.Second:
		score += 5
	case lt >= 8*time.Second:
		score -= 10
	}
	if page.LoadTime >= 3*time.Second {
		f.recommend(fmt.Sprintf("Reduce server response time (page took %.1fs to load)", page.LoadTime.Seconds()))
	}

	switch size := page.ByteSize; {
	case size < 500*kb:
		score += 15
	case size < mb:
		score += 10
	case size < 2*mb:
		score += 5
	case size > 3*mb:
		score -= 10
	}
	if page.ByteSize >= mb {
		f.recommend(fmt.Sprintf("Reduce page size (currently %.1f MB); compress and minify HTML", float64(page.ByteSize)/mb))
	}

	if f.ExternalScripts <= 10 {
		score += 5
	} else {
		f.recommend(fmt.Sprintf("Reduce the number of external scripts (%d found); bundle or defer them", f.ExternalScripts))
	}
	if f.Stylesheets <= 5 {
		score += 5
	} else {
		f.recommend(fmt.Sprintf("Combine stylesheets (%d found)", f.Stylesheets))
	}
	if f.LazyImages > 0 {
		score += 5
	} else if len(page.Images) > 3 {
		f.recommend("Lazy-load below-the-fold images with loading=\"lazy\"")
	}

	f.OverallScore = NewScore(score)
	return f, nil
}
