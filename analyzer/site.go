package analyzer

import (
	"context"
	"errors"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/seo-optimizer/auditor/crawler"
	"github.com/seo-optimizer/auditor/extractor"
	"github.com/seo-optimizer/auditor/stats"
)

// SiteOptions tune a site analysis. Zero values fall back to the analyzer's crawl options.
type SiteOptions struct {
	Keyword  string
	MaxPages int
	OnPage   func(visited, budget int, pageURL string)
}

// PageSummary is the per-page line of a site analysis.
type PageSummary struct {
	URL          string           `json:"url"`
	Title        string           `json:"title"`
	StatusCode   int              `json:"statusCode"`
	WordCount    int              `json:"wordCount"`
	OverallScore SeoScore         `json:"overallScore"`
	Issues       extractor.Issues `json:"issues"`
	BrokenLinks  int              `json:"brokenLinks"`

	Security      extractor.Security      `json:"security"`
	Accessibility extractor.Accessibility `json:"accessibility"`
}

// SiteIssues counts page-level problems across the crawl.
type SiteIssues struct {
	MissingTitles       int `json:"missingTitles"`
	DuplicateTitles     int `json:"duplicateTitles"`
	MissingDescriptions int `json:"missingDescriptions"`
	MissingH1           int `json:"missingH1"`
	ThinPages           int `json:"thinPages"`
	NoIndexPages        int `json:"noindexPages"`
	BrokenLinks         int `json:"brokenLinks"`
	ErrorPages          int `json:"errorPages"`
	MixedContentPages   int `json:"mixedContentPages"`
}

// SiteAnalysis is the outcome of AnalyzeSite. Homepage is always set; when it carries an error no
// other page was visited.
type SiteAnalysis struct {
	URL               string              `json:"url"`
	Timestamp         time.Time           `json:"timestamp"`
	Homepage          *AnalysisResult     `json:"homepage"`
	Pages             []PageSummary       `json:"pages"`
	Issues            SiteIssues          `json:"issues"`
	AverageScore      SeoScore            `json:"averageScore"`
	ReachedPageBudget bool                `json:"reachedPageBudget"`
	Cancelled         bool                `json:"cancelled,omitempty"`
	Site              crawler.SiteReport  `json:"site"`
	Stats             crawler.Stats       `json:"stats"`
	PageErrors        []crawler.PageError `json:"pageErrors"`
	Error             string              `json:"error,omitempty"`
}

// AnalyzeSite crawls the site of rawURL, fully analyzes the homepage and scores every crawled
// page. Cancellation returns what was gathered so far with Cancelled set.
func (a *Analyzer) AnalyzeSite(ctx context.Context, rawURL string, opts SiteOptions) *SiteAnalysis {
	crawlOpts := a.crawl
	if opts.MaxPages > 0 {
		crawlOpts.MaxPages = opts.MaxPages
	}
	if opts.OnPage != nil {
		crawlOpts.OnPage = opts.OnPage
	}

	start := time.Now()
	sess := a.fetcher.NewSession()
	logger := sess.Logger().With(zap.String("url", rawURL))
	site := &SiteAnalysis{
		URL:        rawURL,
		Timestamp:  start.UTC(),
		Pages:      []PageSummary{},
		PageErrors: []crawler.PageError{},
	}

	home := &AnalysisResult{URL: rawURL, Timestamp: site.Timestamp}
	crawl, err := crawler.New(crawlOpts, a.verifier).Crawl(ctx, sess, rawURL)
	if crawl != nil {
		site.ReachedPageBudget = crawl.ReachedPageBudget
		site.Site = crawl.Site
		site.Stats = crawl.Stats
		site.PageErrors = crawl.PageErrors
	}

	switch {
	case crawl == nil || crawl.Homepage == nil:
		if err == nil {
			err = errors.New("homepage could not be crawled")
		}
		fail(home, err)
		site.Error = home.Error
	default:
		site.Cancelled = err != nil
		home.URL = crawl.Homepage.URL
		home.FinalURL = crawl.Homepage.URL
		home.StatusCode = crawl.Homepage.StatusCode
		a.scorePage(crawl.Homepage, opts.Keyword, home, logger)
		a.summarize(site, home, crawl, logger)
	}

	home.Session = SessionStats{
		SessionID:      sess.ID,
		NetworkFetches: sess.NetworkFetches(),
		CacheHits:      sess.CacheHits(),
		LinksProbed:    site.Stats.LinksProbed,
		Duration:       time.Since(start),
	}
	site.Homepage = home

	a.record(home, sess, stats.Counters{
		SiteCrawls:   1,
		PagesCrawled: site.Stats.PagesCrawled,
		CrawlErrors:  site.Stats.Errors,
	})
	return site
}

// summarize scores every crawled page and fills the per-page lines, site issues and average score.
func (a *Analyzer) summarize(site *SiteAnalysis, home *AnalysisResult, crawl *crawler.Result, logger *zap.Logger) {
	titles := make(map[string]int)
	total := 0

	add := func(page *extractor.Page, score SeoScore) {
		s := PageSummary{
			URL:          page.URL,
			Title:        page.Title,
			StatusCode:   page.StatusCode,
			WordCount:    page.WordCount,
			OverallScore: score,
			Issues:       page.Issues,
			BrokenLinks:  page.BrokenInternalLinks(),

			Security:      page.Security,
			Accessibility: page.Accessibility,
		}
		site.Pages = append(site.Pages, s)
		total += score.Score

		is := &site.Issues
		if page.Issues.MissingTitle {
			is.MissingTitles++
		} else {
			titles[page.Title]++
		}
		if page.Issues.MissingDescription {
			is.MissingDescriptions++
		}
		if page.Issues.MissingH1 {
			is.MissingH1++
		}
		if page.Issues.ThinContent {
			is.ThinPages++
		}
		if page.Issues.NoIndex {
			is.NoIndexPages++
		}
		if page.StatusCode >= 400 {
			is.ErrorPages++
		}
		if page.Security.HasMixedContent {
			is.MixedContentPages++
		}
		is.BrokenLinks += s.BrokenLinks
	}

	add(crawl.Homepage, home.OverallScore)
	for _, page := range crawl.Pages {
		res := &AnalysisResult{URL: page.URL, StatusCode: page.StatusCode}
		a.scorePage(page, "", res, logger)
		add(page, res.OverallScore)
	}

	// Every page sharing a title with another page counts as a duplicate.
	for _, n := range titles {
		if n > 1 {
			site.Issues.DuplicateTitles += n
		}
	}
	site.AverageScore = NewScore(int(math.Round(float64(total) / float64(len(site.Pages)))))
}
