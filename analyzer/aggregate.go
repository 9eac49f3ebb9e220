package analyzer

import (
	"fmt"
	"math"
	"slices"
)

const (
	maxStrengths       = 8
	maxWeaknesses      = 8
	maxRecommendations = 15
)

// capped collects unique strings up to a limit.
type capped struct {
	limit int
	items []string
	seen  map[string]bool
}

func newCapped(limit int) *capped {
	return &capped{limit: limit, items: []string{}, seen: make(map[string]bool)}
}

func (c *capped) add(items ...string) {
	for _, s := range items {
		if len(c.items) >= c.limit {
			return
		}
		if s == "" || c.seen[s] {
			continue
		}
		c.seen[s] = true
		c.items = append(c.items, s)
	}
}

// overallScore is the weighted mean of the computed factors. Fallback factors are left out of both
// sides of the division; if none was computed the score is 0.
func overallScore(factors []Factor) SeoScore {
	var sum, weights float64
	for _, f := range factors {
		b := f.Base()
		if b.Fallback {
			continue
		}
		w := Weights[f.Name()]
		sum += w * float64(b.OverallScore.Score)
		weights += w
	}
	if weights == 0 {
		return NewScore(0)
	}
	return NewScore(int(math.Round(sum / weights)))
}

// aggregate fills the overall score and the strengths, weaknesses and recommendations of r from
// its factors.
func aggregate(r *AnalysisResult) {
	factors := r.Factors()
	r.OverallScore = overallScore(factors)

	strengths := newCapped(maxStrengths)
	weaknesses := newCapped(maxWeaknesses)
	recs := newCapped(maxRecommendations)

	// An error status outranks every other finding, so it goes in first and survives the caps.
	if r.StatusCode >= 400 {
		weaknesses.add(fmt.Sprintf("Page returned HTTP %d", r.StatusCode))
		recs.add(statusAdvice(r.StatusCode))
	}

	for _, f := range factors {
		b := f.Base()
		if b.Fallback {
			continue
		}
		switch score := b.OverallScore.Score; {
		case score >= 80:
			strengths.add(fmt.Sprintf("Strong %s (score %d)", f.Name().Label(), score))
		case score < 50:
			weaknesses.add(fmt.Sprintf("Weak %s (score %d)", f.Name().Label(), score))
		}
	}

	if c := r.ContentAnalysis; c != nil && !c.Fallback {
		if c.WordCount >= 1000 {
			strengths.add("Comprehensive content")
		}
		if c.H1Count == 1 {
			strengths.add("Single, clear H1 heading")
		}
		switch {
		case c.H1Count == 0:
			weaknesses.add("Missing H1 heading")
			recs.add("Add an H1 heading")
		case c.H1Count > 1:
			weaknesses.add("Multiple H1 headings")
			recs.add("Multiple H1 headings found - consider using only one")
		}
		if c.ThinContent {
			weaknesses.add("Thin content")
			recs.add("Add more content (aim for at least 300 words)")
		}
		if n := c.Accessibility.FormInputsWithoutLabels; n > 0 {
			weaknesses.add(fmt.Sprintf("%d form input(s) without labels", n))
			recs.add("Give every form input a <label> or an aria-label")
		}
	}
	if m := r.MetaTagsAnalysis; m != nil && !m.Fallback {
		if !m.HasTitle {
			weaknesses.add("Missing title tag")
		}
		if !m.HasDescription {
			weaknesses.add("Missing meta description")
		}
		if m.NoIndex {
			weaknesses.add("Page is blocked from indexing (noindex)")
			recs.add("Remove the noindex directive if this page should appear in search results")
		}
	}
	if l := r.InternalLinksAnalysis; l != nil && !l.Fallback {
		if l.BrokenLinks > 0 {
			weaknesses.add(fmt.Sprintf("%d broken internal link(s)", l.BrokenLinks))
		}
		if l.ExternalLinks == 0 {
			recs.add("Add relevant external links to authoritative sources to improve content credibility")
		} else if l.ExternalLinks > 50 {
			recs.add(fmt.Sprintf("Consider reducing the number of external links (current: %d) to maintain focus", l.ExternalLinks))
		}
	}
	if m := r.MobileAnalysis; m != nil && !m.Fallback {
		if m.MobileCompatible {
			strengths.add("Mobile-friendly viewport")
		} else {
			weaknesses.add("Not optimized for mobile devices")
		}
	}
	if s := r.SchemaMarkupAnalysis; s != nil && !s.Fallback && s.HasStructuredData {
		strengths.add("Structured data present")
	}
	if a := r.AuthorityAnalysis; a != nil && !a.Fallback {
		if a.HTTPS {
			strengths.add("Served over HTTPS")
		} else {
			weaknesses.add("Not served over HTTPS")
		}
		if a.MixedContent {
			weaknesses.add(fmt.Sprintf("Mixed content: %d resource(s) loaded over HTTP", a.MixedContentCount))
			recs.add("Load every image, script and stylesheet over HTTPS")
		}
		if a.HTTPS && !a.HasSecurityHeaders {
			weaknesses.add("Missing security headers")
		}
	}
	if p := r.PageSpeedAnalysis; p != nil && !p.Fallback {
		switch p.LoadTimeSeverity {
		case "good":
			strengths.add("Fast page load")
		case "major", "critical":
			weaknesses.add(fmt.Sprintf("Slow page load (%dms)", p.LoadTimeMs))
		}
	}

	// Factor recommendations follow, heaviest factor first.
	ordered := slices.Clone(factors)
	slices.SortStableFunc(ordered, func(a, b Factor) int {
		wa, wb := Weights[a.Name()], Weights[b.Name()]
		switch {
		case wa > wb:
			return -1
		case wa < wb:
			return 1
		}
		return 0
	})
	for _, f := range ordered {
		recs.add(f.Base().Recommendations...)
	}

	r.Strengths = strengths.items
	r.Weaknesses = weaknesses.items
	r.Recommendations = recs.items
}

func statusAdvice(code int) string {
	switch code {
	case 404, 410:
		return "Restore the page or 301-redirect its URL to the closest live page"
	case 401, 403:
		return "Make the page publicly accessible or keep it out of search results"
	case 429:
		return "Allow search engine crawlers through your rate limits"
	}
	return fmt.Sprintf("Fix the server response (HTTP %d) so the page returns 200", code)
}
