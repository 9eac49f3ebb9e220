package extractor

import (
	"strings"
	"sync"

	"github.com/pemistahl/lingua-go"
)

// minLanguageWords is the shortest text worth running detection on.
const minLanguageWords = 20

var (
	detectorOnce sync.Once
	detector     lingua.LanguageDetector
)

// languageDetector builds the shared detector on first use.
func languageDetector() lingua.LanguageDetector {
	detectorOnce.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(
				lingua.English, lingua.Spanish, lingua.French, lingua.German,
				lingua.Italian, lingua.Portuguese, lingua.Dutch, lingua.Russian,
			).
			Build()
	})
	return detector
}

// DetectLanguage returns the lowercase ISO 639-1 code of text, or "" when the text is too short
// or detection is inconclusive.
func DetectLanguage(text string, words int) string {
	if words < minLanguageWords {
		return ""
	}
	lang, ok := languageDetector().DetectLanguageOf(text)
	if !ok {
		return ""
	}
	return strings.ToLower(lang.IsoCode639_1().String())
}
