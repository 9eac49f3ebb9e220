package crawler

import (
	"context"
	"net/url"
	"path"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/seo-optimizer/auditor/errs"
	"github.com/seo-optimizer/auditor/extractor"
	"github.com/seo-optimizer/auditor/fetcher"
	"github.com/seo-optimizer/auditor/linkcheck"
	"github.com/seo-optimizer/auditor/metrics"
)

// Options bound one site crawl.
type Options struct {
	MaxPages        int     // page budget, homepage included
	Workers         int     // concurrent page visits
	NewLinksPerPage int     // links enqueued from each non-home page
	ExpandBelow     float64 // fraction of the budget after which no new links are enqueued

	ExcludedExtensions []string
	ExcludedPaths      []string

	// OnPage, if set, is called after every visit with the number of pages visited so far.
	OnPage func(visited, budget int, pageURL string)
}

// DefaultOptions returns the documented crawl limits.
func DefaultOptions() Options {
	return Options{
		MaxPages:        50,
		Workers:         4,
		NewLinksPerPage: 10,
		ExpandBelow:     0.8,
		ExcludedExtensions: []string{
			".jpg", ".jpeg", ".png", ".gif", ".webp", ".avif", ".svg", ".ico", ".bmp", ".tif", ".tiff",
			".mp3", ".mp4", ".avi", ".mov", ".wmv", ".webm", ".ogg", ".wav", ".flv",
			".pdf", ".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx", ".csv",
			".zip", ".gz", ".tar", ".rar", ".7z", ".exe", ".dmg", ".apk", ".iso", ".bin",
			".css", ".js", ".json", ".xml", ".txt", ".rss", ".atom",
			".woff", ".woff2", ".ttf", ".eot", ".otf",
		},
		ExcludedPaths: []string{
			"/admin", "/wp-admin", "/wp-login", "/login", "/logout", "/signin", "/signup", "/register",
			"/account", "/my-account", "/cart", "/checkout", "/basket", "/cgi-bin",
		},
	}
}

// PageError records a page that could not be fetched or extracted.
type PageError struct {
	URL     string    `json:"url"`
	Kind    errs.Kind `json:"kind"`
	Message string    `json:"message"`
}

// Stats describes the work a crawl did.
type Stats struct {
	PagesVisited   int           `json:"pagesVisited"`
	PagesCrawled   int           `json:"pagesCrawled"`
	Errors         int           `json:"errors"`
	LinksProbed    int           `json:"linksProbed"`
	NetworkFetches int64         `json:"networkFetches"`
	CacheHits      int64         `json:"cacheHits"`
	Elapsed        time.Duration `json:"elapsed"`
}

// Result is the outcome of a crawl. Pages excludes the homepage and holds no URL twice.
type Result struct {
	Homepage          *extractor.Page   `json:"homepage"`
	Pages             []*extractor.Page `json:"pages"`
	ReachedPageBudget bool              `json:"reachedPageBudget"`
	Stats             Stats             `json:"stats"`
	PageErrors        []PageError       `json:"pageErrors"`
	Site              SiteReport        `json:"site"`
}

// Crawler performs bounded breadth-first crawls of a single host.
type Crawler struct {
	opts     Options
	verifier *linkcheck.Verifier
	prober   *prober
}

// New creates a Crawler. A nil verifier disables link verification of crawled pages.
func New(opts Options, verifier *linkcheck.Verifier) *Crawler {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.MaxPages < 1 {
		opts.MaxPages = 1
	}
	return &Crawler{opts: opts, verifier: verifier, prober: newProber()}
}

type visit struct {
	requested string
	page      *extractor.Page
	err       error
	probes    int
}

// Crawl visits the site of rootURL within the session. A homepage failure returns the stage
// error and an empty result. Cancellation is honored between waves and between dispatches; the
// pages gathered so far are returned together with ctx.Err().
func (c *Crawler) Crawl(ctx context.Context, sess *fetcher.Session, rootURL string) (*Result, error) {
	start := time.Now()
	logger := sess.Logger()
	result := &Result{Pages: []*extractor.Page{}, PageErrors: []PageError{}}
	finish := func() {
		result.Stats.PagesCrawled = len(result.Pages)
		if result.Homepage != nil {
			result.Stats.PagesCrawled++
		}
		result.Stats.NetworkFetches = sess.NetworkFetches()
		result.Stats.CacheHits = sess.CacheHits()
		result.Stats.Elapsed = time.Since(start)
	}

	root, err := fetcher.Normalize(rootURL)
	if err != nil {
		finish()
		return result, err
	}

	var visited, done atomic.Int64
	visited.Store(1)
	done.Store(1)
	home := c.visit(ctx, sess, root)
	result.Stats.PagesVisited = 1
	result.Stats.LinksProbed += home.probes
	if home.err != nil {
		result.Stats.Errors++
		result.PageErrors = append(result.PageErrors, pageError(root, home.err))
		finish()
		return result, home.err
	}
	result.Homepage = home.page
	c.report(1, root)
	metrics.PagesCrawled.Inc()

	base, _ := url.Parse(home.page.URL)
	seen := map[string]bool{root: true}
	recorded := map[string]bool{root: true}
	if final, err := fetcher.Normalize(home.page.URL); err == nil {
		seen[final] = true
		recorded[final] = true
	}

	budget := int64(c.opts.MaxPages)
	frontier := c.discover(home.page, base, seen, -1)
	processed := 1
	expandLimit := int(float64(c.opts.MaxPages) * c.opts.ExpandBelow)

	for len(frontier) > 0 && ctx.Err() == nil && visited.Load() < budget {
		wave := frontier
		frontier = nil
		outcomes := make([]*visit, len(wave))

		g := new(errgroup.Group)
		g.SetLimit(c.opts.Workers)
		for i, pageURL := range wave {
			if ctx.Err() != nil {
				break
			}
			if visited.Add(1) > budget {
				visited.Add(-1)
				break
			}
			g.Go(func() error {
				outcomes[i] = c.visit(ctx, sess, pageURL)
				c.report(int(done.Add(1)), pageURL)
				return nil
			})
		}
		_ = g.Wait()

		// Outcomes are folded in frontier order so the result does not depend on scheduling.
		for _, v := range outcomes {
			if v == nil {
				continue
			}
			processed++
			result.Stats.LinksProbed += v.probes
			if v.err != nil {
				result.Stats.Errors++
				result.PageErrors = append(result.PageErrors, pageError(v.requested, v.err))
				logger.Debug("crawl page failed", zap.String("url", v.requested), zap.Error(v.err))
				continue
			}

			final, err := fetcher.Normalize(v.page.URL)
			if err != nil {
				final = v.page.URL
			}
			if recorded[final] {
				continue
			}
			recorded[final] = true
			seen[final] = true
			result.Pages = append(result.Pages, v.page)
			metrics.PagesCrawled.Inc()

			if processed < expandLimit {
				frontier = append(frontier, c.discover(v.page, base, seen, c.opts.NewLinksPerPage)...)
			}
		}
	}

	result.Stats.PagesVisited = int(visited.Load())
	result.ReachedPageBudget = visited.Load() >= budget

	if err := ctx.Err(); err != nil {
		logger.Info("crawl cancelled", zap.String("url", root), zap.Int("pages", len(result.Pages)+1))
		finish()
		return result, err
	}

	result.Site = c.prober.probe(ctx, base)
	finish()

	logger.Info("crawl finished",
		zap.String("url", root),
		zap.Int("pages", result.Stats.PagesCrawled),
		zap.Int("errors", result.Stats.Errors),
		zap.Bool("reached_budget", result.ReachedPageBudget),
		zap.Duration("elapsed", result.Stats.Elapsed),
	)
	return result, nil
}

func (c *Crawler) visit(ctx context.Context, sess *fetcher.Session, pageURL string) *visit {
	v := &visit{requested: pageURL}
	page, err := extractor.Extract(sess.Fetch(ctx, pageURL))
	if err != nil {
		v.err = err
		return v
	}
	if c.verifier != nil {
		v.probes = c.verifier.Verify(ctx, page.InternalLinks, page.URL, sess)
	}
	v.page = page
	return v
}

func (c *Crawler) report(visited int, pageURL string) {
	if c.opts.OnPage != nil {
		c.opts.OnPage(visited, c.opts.MaxPages, pageURL)
	}
}

// discover returns up to limit (all when limit < 0) crawlable internal links of page that are not
// yet in seen, marking them seen.
func (c *Crawler) discover(page *extractor.Page, base *url.URL, seen map[string]bool, limit int) []string {
	var out []string
	for _, link := range page.InternalLinks {
		if limit >= 0 && len(out) >= limit {
			break
		}
		if link.Broken {
			continue
		}
		normalized, err := fetcher.Normalize(link.URL)
		if err != nil || seen[normalized] {
			continue
		}
		u, err := url.Parse(normalized)
		if err != nil || !extractor.SameHost(u, base) || !c.allowed(u) {
			continue
		}
		seen[normalized] = true
		out = append(out, normalized)
	}
	return out
}

// allowed applies the extension and path-prefix filters.
func (c *Crawler) allowed(u *url.URL) bool {
	p := strings.ToLower(u.Path)
	ext := path.Ext(p)
	for _, e := range c.opts.ExcludedExtensions {
		if ext == e {
			return false
		}
	}
	for _, prefix := range c.opts.ExcludedPaths {
		if p == prefix || strings.HasPrefix(p, prefix+"/") || strings.HasPrefix(p, prefix+".") {
			return false
		}
	}
	return true
}

func pageError(pageURL string, err error) PageError {
	return PageError{URL: pageURL, Kind: errs.KindOf(err), Message: errs.MessageOf(err)}
}
