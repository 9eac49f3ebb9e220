package competitor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/seo-optimizer/auditor/circuitbreaker"
	"github.com/seo-optimizer/auditor/logging"
)

const maxResults = 10

// SearchOptions configure the search API client.
type SearchOptions struct {
	Endpoint string
	APIKey   string
	RPS      float64
	Timeout  time.Duration
}

// Search queries a SerpAPI-style JSON endpoint for organic results.
type Search struct {
	opts    SearchOptions
	client  *http.Client
	limiter *rate.Limiter
	breaker *circuitbreaker.Breaker
}

type searchResponse struct {
	Error          string `json:"error"`
	OrganicResults []struct {
		Position int    `json:"position"`
		Link     string `json:"link"`
		Title    string `json:"title"`
	} `json:"organic_results"`
}

// NewSearch creates a search client. A nil client gets one bounded by opts.Timeout.
func NewSearch(opts SearchOptions, client *http.Client) *Search {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	limit := rate.Inf
	if opts.RPS > 0 {
		limit = rate.Limit(opts.RPS)
	}
	return &Search{
		opts:    opts,
		client:  client,
		limiter: rate.NewLimiter(limit, 1),
		breaker: circuitbreaker.New("search-api", 5, 30*time.Second),
	}
}

// FindCandidateURLs returns the organic result links for keyword, best ranked first.
func (s *Search) FindCandidateURLs(ctx context.Context, keyword, location string) ([]string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var urls []string
	err := s.breaker.Execute(func() error {
		var err error
		urls, err = s.search(ctx, keyword, location)
		return err
	})
	if err != nil {
		return nil, err
	}
	return urls, nil
}

func (s *Search) search(ctx context.Context, keyword, location string) ([]string, error) {
	q := url.Values{}
	q.Set("engine", "google")
	q.Set("q", keyword)
	q.Set("num", fmt.Sprint(maxResults))
	if location != "" {
		q.Set("location", location)
	}
	if s.opts.APIKey != "" {
		q.Set("api_key", s.opts.APIKey)
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.opts.Endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building search request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("search API returned status %d", resp.StatusCode)
	}

	var body searchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}
	if body.Error != "" {
		return nil, fmt.Errorf("search API error: %s", body.Error)
	}

	urls := make([]string, 0, len(body.OrganicResults))
	for _, r := range body.OrganicResults {
		if r.Link != "" {
			urls = append(urls, r.Link)
		}
	}
	logging.Log.Debug("Search API answered",
		zap.String("keyword", keyword),
		zap.Int("results", len(urls)))
	return urls, nil
}
