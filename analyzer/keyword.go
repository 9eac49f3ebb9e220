package analyzer

import (
	"sort"
	"strings"

	"github.com/seo-optimizer/auditor/extractor"
)

const maxRelatedTerms = 5

type termScore struct {
	term  string
	score int
	first int
}

// DeriveKeyword picks a primary keyword from the title, the first h1 and the description when
// none is given. Terms are weighted title 3, h1 2, description 1; a two-word phrase wins when it
// appears in more than one of them. The choice is deterministic.
func DeriveKeyword(page *extractor.Page) string {
	terms := rankTerms(page)
	for _, t := range terms {
		if strings.Contains(t.term, " ") && t.score >= 4 {
			return t.term
		}
	}
	for _, t := range terms {
		if !strings.Contains(t.term, " ") {
			return t.term
		}
	}
	return ""
}

func rankTerms(page *extractor.Page) []termScore {
	sources := []struct {
		text   string
		weight int
	}{
		{page.Title, 3},
		{firstOf(page.Headings.H1), 2},
		{page.Meta.Description, 1},
	}

	scores := make(map[string]*termScore)
	order := 0
	add := func(term string, weight int) {
		ts, ok := scores[term]
		if !ok {
			ts = &termScore{term: term, first: order}
			scores[term] = ts
			order++
		}
		ts.score += weight
	}

	for _, src := range sources {
		words := tokenize(src.text)
		seen := make(map[string]bool)
		for i, w := range words {
			if len(w) < 3 || stopWords[w] {
				continue
			}
			if !seen[w] {
				seen[w] = true
				add(w, src.weight)
			}
			if i+1 < len(words) {
				next := words[i+1]
				if len(next) >= 3 && !stopWords[next] {
					bigram := w + " " + next
					if !seen[bigram] {
						seen[bigram] = true
						add(bigram, src.weight)
					}
				}
			}
		}
	}

	out := make([]termScore, 0, len(scores))
	for _, ts := range scores {
		out = append(out, *ts)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].first < out[j].first
	})
	return out
}

func firstOf(s []string) string {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}

// analyzeKeyword scores how the primary keyword is used on the page.
func analyzeKeyword(page *extractor.Page, keyword string) (Factor, error) {
	f := newFactor(KeywordFactor).(*KeywordAnalysis)
	f.PrimaryKeyword = keyword
	for _, t := range rankTerms(page) {
		if len(f.RelatedTerms) == maxRelatedTerms {
			break
		}
		if t.term != strings.ToLower(keyword) {
			f.RelatedTerms = append(f.RelatedTerms, t.term)
		}
	}

	score := 50
	if keyword == "" {
		f.recommend("Define a primary keyword and use it in the title, description and main heading")
		f.OverallScore = NewScore(score)
		return f, nil
	}

	words := tokenize(page.Text)
	phrase := tokenize(keyword)
	f.Occurrences = countPhrase(words, phrase)
	if len(words) > 0 {
		f.Density = round2(float64(f.Occurrences*len(phrase)) / float64(len(words)) * 100)
	}

	f.InTitle = containsPhrase(page.Title, keyword)
	f.InDescription = containsPhrase(page.Meta.Description, keyword)
	f.InH1 = anyContains(page.Headings.H1, keyword)
	f.InH2 = anyContains(page.Headings.H2, keyword)
	f.InFirst100Words = containsPhrase(firstWords(page.Text, 100), keyword)
	f.InURL = urlContains(page.URL, phrase)
	for _, img := range page.Images {
		if containsPhrase(img.Alt, keyword) {
			f.InImageAlt = true
			break
		}
	}

	if f.InTitle {
		score += 10
	} else {
		f.recommend("Include the keyword \"" + keyword + "\" in the page title")
	}
	if f.InDescription {
		score += 5
	} else {
		f.recommend("Include the keyword \"" + keyword + "\" in the meta description")
	}
	if f.InH1 {
		score += 10
	} else {
		f.recommend("Use the keyword \"" + keyword + "\" in the H1 heading")
	}
	if f.InH2 {
		score += 5
	}
	if f.InFirst100Words {
		score += 5
	} else {
		f.recommend("Mention the keyword within the first 100 words of the content")
	}
	if f.InURL {
		score += 5
	}
	if f.InImageAlt {
		score += 5
	}

	switch {
	case f.Density > 3.5:
		f.Stuffing = true
		score -= 15
		f.recommend("Keyword density is too high; rewrite to avoid keyword stuffing (aim for 0.5-2.5%)")
	case f.Density >= 0.5 && f.Density <= 2.5:
		score += 10
	case f.Density < 0.5:
		f.recommend("Use the keyword more often in the body text (aim for 0.5-2.5% density)")
	}

	f.OverallScore = NewScore(score)
	return f, nil
}

func anyContains(texts []string, keyword string) bool {
	for _, t := range texts {
		if containsPhrase(t, keyword) {
			return true
		}
	}
	return false
}

func urlContains(pageURL string, phrase []string) bool {
	if len(phrase) == 0 {
		return false
	}
	return countPhrase(tokenize(pageURL), phrase) > 0
}
