package competitor

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/seo-optimizer/auditor/logging"
)

// Supplier finds URLs that compete with a page for a keyword.
type Supplier interface {
	FindCandidateURLs(ctx context.Context, keyword, location string) ([]string, error)
}

// Static is the deterministic built-in supplier. It never fails and needs no network.
type Static struct{}

var staticTemplates = []string{
	"https://en.wikipedia.org/wiki/%s",
	"https://www.yelp.com/search?find_desc=%s",
	"https://www.reddit.com/search/?q=%s",
	"https://medium.com/search?q=%s",
	"https://www.youtube.com/results?search_query=%s",
}

// FindCandidateURLs builds well-known search and reference URLs for keyword.
func (Static) FindCandidateURLs(_ context.Context, keyword, location string) ([]string, error) {
	keyword = strings.Join(strings.Fields(keyword), " ")
	if keyword == "" {
		return []string{}, nil
	}

	urls := make([]string, 0, len(staticTemplates))
	for i, tmpl := range staticTemplates {
		var term string
		if i == 0 {
			words := strings.Fields(keyword)
			r, size := utf8.DecodeRuneInString(words[0])
			words[0] = string(unicode.ToUpper(r)) + words[0][size:]
			term = url.PathEscape(strings.Join(words, "_"))
		} else {
			term = url.QueryEscape(keyword)
		}
		u := fmt.Sprintf(tmpl, term)
		if i == 1 && location != "" {
			u += "&find_loc=" + url.QueryEscape(location)
		}
		urls = append(urls, u)
	}
	return urls, nil
}

type fallbackSupplier struct {
	primary  Supplier
	fallback Supplier
}

// WithFallback returns a supplier that asks fallback whenever primary fails or finds nothing.
func WithFallback(primary, fallback Supplier) Supplier {
	return &fallbackSupplier{primary: primary, fallback: fallback}
}

func (s *fallbackSupplier) FindCandidateURLs(ctx context.Context, keyword, location string) ([]string, error) {
	urls, err := s.primary.FindCandidateURLs(ctx, keyword, location)
	if err == nil && len(urls) > 0 {
		return urls, nil
	}
	if err != nil {
		logging.Log.Warn("Competitor search failed, using fallback list",
			zap.String("keyword", keyword),
			zap.Error(err))
	}
	return s.fallback.FindCandidateURLs(ctx, keyword, location)
}
