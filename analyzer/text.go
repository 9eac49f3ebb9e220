package analyzer

import (
	"strings"
	"unicode"
)

var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true, "be": true, "but": true,
	"by": true, "for": true, "from": true, "has": true, "have": true, "how": true, "in": true,
	"into": true, "is": true, "it": true, "its": true, "of": true, "on": true, "or": true, "our": true,
	"that": true, "the": true, "their": true, "this": true, "to": true, "was": true, "we": true,
	"what": true, "when": true, "where": true, "which": true, "who": true, "why": true, "will": true,
	"with": true, "you": true, "your": true, "best": true, "top": true, "home": true, "page": true,
	"welcome": true, "official": true, "site": true, "website": true, "all": true, "more": true,
	"new": true, "not": true, "can": true, "about": true, "get": true, "us": true,
}

// tokenize lowercases s and splits it into words of letters and digits.
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// countPhrase counts non-overlapping occurrences of phrase in words.
func countPhrase(words, phrase []string) int {
	if len(phrase) == 0 || len(words) < len(phrase) {
		return 0
	}
	count := 0
	for i := 0; i+len(phrase) <= len(words); {
		if equalWords(words[i:i+len(phrase)], phrase) {
			count++
			i += len(phrase)
			continue
		}
		i++
	}
	return count
}

func equalWords(a, b []string) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// containsPhrase reports whether text contains the keyword as whole words.
func containsPhrase(text, keyword string) bool {
	return countPhrase(tokenize(text), tokenize(keyword)) > 0
}

// phraseIndex returns the byte offset in text of the first whole-word match of keyword,
// ignoring case, or -1. It agrees with containsPhrase.
func phraseIndex(text, keyword string) int {
	phrase := tokenize(keyword)
	if len(phrase) == 0 {
		return -1
	}
	var words []string
	var starts []int
	start := -1
	for i, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			words = append(words, strings.ToLower(text[start:i]))
			starts = append(starts, start)
			start = -1
		}
	}
	if start >= 0 {
		words = append(words, strings.ToLower(text[start:]))
		starts = append(starts, start)
	}
	for i := 0; i+len(phrase) <= len(words); i++ {
		if equalWords(words[i:i+len(phrase)], phrase) {
			return starts[i]
		}
	}
	return -1
}

// readability returns the Flesch-Kincaid grade level and Flesch reading ease of text.
func readability(text string) (grade, ease float64) {
	words := tokenize(text)
	if len(words) == 0 {
		return 0, 0
	}
	sentences := countSentences(text)
	syllables := 0
	for _, w := range words {
		syllables += estimateSyllables(w)
	}

	wordsPerSentence := float64(len(words)) / float64(sentences)
	syllablesPerWord := float64(syllables) / float64(len(words))
	grade = 0.39*wordsPerSentence + 11.8*syllablesPerWord - 15.59
	ease = 206.835 - 1.015*wordsPerSentence - 84.6*syllablesPerWord
	return round1(max(grade, 0)), round1(min(max(ease, 0), 100))
}

func countSentences(text string) int {
	n := 0
	inTerminator := false
	for _, r := range text {
		if r == '.' || r == '!' || r == '?' {
			if !inTerminator {
				n++
			}
			inTerminator = true
			continue
		}
		inTerminator = false
	}
	return max(n, 1)
}

// estimateSyllables counts vowel groups, dropping a silent trailing e.
func estimateSyllables(word string) int {
	count := 0
	prevVowel := false
	for _, r := range word {
		vowel := strings.ContainsRune("aeiouy", r)
		if vowel && !prevVowel {
			count++
		}
		prevVowel = vowel
	}
	if strings.HasSuffix(word, "e") && !strings.HasSuffix(word, "le") && count > 1 {
		count--
	}
	return max(count, 1)
}

func round1(f float64) float64 {
	return float64(int(f*10+0.5)) / 10
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

// firstWords returns the first n words of text.
func firstWords(text string, n int) string {
	fields := strings.Fields(text)
	return strings.Join(fields[:min(n, len(fields))], " ")
}
