package fetcher

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/seo-optimizer/auditor/errs"
)

var schemePrefix = regexp.MustCompile(`^(?i)[a-z][a-z0-9+.\-]*://`)

const invalidURLMessage = "Invalid URL format. Please ensure you entered a valid URL (e.g., https://example.com)."

// Normalize turns raw user input into one absolute http(s) URL.
// Repeated leading schemes collapse to the last one and a missing scheme becomes https.
// Normalize(Normalize(x)) == Normalize(x) for every accepted input.
func Normalize(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", errs.New(errs.InvalidURL, invalidURLMessage, nil)
	}

	for {
		loc := schemePrefix.FindStringIndex(s)
		if loc == nil {
			break
		}
		rest := s[loc[1]:]
		if !schemePrefix.MatchString(rest) {
			break
		}
		s = rest
	}

	if !schemePrefix.MatchString(s) {
		s = "https://" + s
	}

	u, err := url.Parse(s)
	if err != nil {
		return "", errs.New(errs.InvalidURL, invalidURLMessage, err)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", errs.New(errs.InvalidURL, "Only http and https URLs are supported.", nil)
	}
	if u.Host == "" || u.Hostname() == "" || strings.ContainsAny(u.Host, " \t") {
		return "", errs.New(errs.InvalidURL, invalidURLMessage, nil)
	}

	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	if u.Path == "" {
		u.Path = "/"
		u.RawPath = ""
	}
	return u.String(), nil
}
