package analyzer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/seo-optimizer/auditor/competitor"
	"github.com/seo-optimizer/auditor/crawler"
	"github.com/seo-optimizer/auditor/errs"
	"github.com/seo-optimizer/auditor/extractor"
	"github.com/seo-optimizer/auditor/fetcher"
	"github.com/seo-optimizer/auditor/linkcheck"
	"github.com/seo-optimizer/auditor/logging"
	"github.com/seo-optimizer/auditor/metrics"
	"github.com/seo-optimizer/auditor/stats"
)

// Recorder receives the counters of every finished analysis. *stats.Storage satisfies it.
type Recorder interface {
	Add(stats.Counters)
}

// Options tune a single analysis.
type Options struct {
	// Keyword forces the primary keyword; empty means derive it from the page.
	Keyword string
}

type scorer struct {
	name  FactorName
	score func(page *extractor.Page, keyword string) (Factor, error)
}

var defaultScorers = []scorer{
	{KeywordFactor, analyzeKeyword},
	{MetaTagsFactor, analyzeMetaTags},
	{ContentFactor, analyzeContent},
	{InternalLinksFactor, analyzeInternalLinks},
	{ImageFactor, analyzeImages},
	{SchemaMarkupFactor, analyzeSchemaMarkup},
	{MobileFactor, analyzeMobile},
	{PageSpeedFactor, analyzePageSpeed},
	{UserEngagementFactor, analyzeUserEngagement},
	{AuthorityFactor, analyzeAuthority},
}

// Analyzer runs the crawl-and-score pipeline. It keeps no per-analysis state: every call to
// Analyze, AnalyzeSite or Competitors opens its own fetch session.
type Analyzer struct {
	fetcher  *fetcher.Fetcher
	verifier *linkcheck.Verifier
	crawl    crawler.Options
	supplier competitor.Supplier
	recorder Recorder
	logger   *zap.Logger
	scorers  []scorer
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithVerifier enables sampled broken-link verification.
func WithVerifier(v *linkcheck.Verifier) Option {
	return func(a *Analyzer) { a.verifier = v }
}

// WithCrawlOptions sets the crawl limits used by AnalyzeSite.
func WithCrawlOptions(opts crawler.Options) Option {
	return func(a *Analyzer) { a.crawl = opts }
}

// WithSupplier sets the competitor URL supplier.
func WithSupplier(s competitor.Supplier) Option {
	return func(a *Analyzer) { a.supplier = s }
}

// WithRecorder sets where pipeline counters are recorded.
func WithRecorder(r Recorder) Option {
	return func(a *Analyzer) { a.recorder = r }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Analyzer) { a.logger = l }
}

// New creates an Analyzer that fetches through f.
func New(f *fetcher.Fetcher, options ...Option) *Analyzer {
	a := &Analyzer{
		fetcher:  f,
		crawl:    crawler.DefaultOptions(),
		supplier: competitor.Static{},
		logger:   logging.Log,
		scorers:  defaultScorers,
	}
	for _, o := range options {
		o(a)
	}
	return a
}

// Analyze runs the full pipeline for one URL. It never fails: stage errors produce a result with
// Error set and every factor at its flagged default.
func (a *Analyzer) Analyze(ctx context.Context, rawURL string, opts Options) *AnalysisResult {
	sess := a.fetcher.NewSession()
	res := a.analyze(ctx, sess, rawURL, opts)
	a.record(res, sess, stats.Counters{})
	return res
}

func (a *Analyzer) analyze(ctx context.Context, sess *fetcher.Session, rawURL string, opts Options) *AnalysisResult {
	start := time.Now()
	res := &AnalysisResult{URL: rawURL, Timestamp: start.UTC()}
	logger := sess.Logger().With(zap.String("url", rawURL))

	page, probes, err := a.load(ctx, sess, res)
	if err != nil {
		logger.Warn("Analysis stopped",
			zap.String("kind", string(errs.KindOf(err))),
			zap.Error(err))
		fail(res, err)
	} else {
		a.scorePage(page, opts.Keyword, res, logger)
	}

	res.Session = SessionStats{
		SessionID:      sess.ID,
		NetworkFetches: sess.NetworkFetches(),
		CacheHits:      sess.CacheHits(),
		LinksProbed:    probes,
		Duration:       time.Since(start),
	}
	logger.Debug("Analysis finished",
		zap.Int("score", res.OverallScore.Score),
		zap.Duration("duration", res.Session.Duration))
	return res
}

// load runs the sequential stages: normalize, resolve, fetch, extract, verify.
func (a *Analyzer) load(ctx context.Context, sess *fetcher.Session, res *AnalysisResult) (*extractor.Page, int, error) {
	normalized, err := fetcher.Normalize(res.URL)
	if err != nil {
		return nil, 0, err
	}
	res.URL = normalized

	if _, err := sess.CheckAvailability(ctx, normalized); err != nil {
		return nil, 0, err
	}

	fr := sess.Fetch(ctx, normalized)
	res.StatusCode = fr.StatusCode
	res.FinalURL = fr.FinalURL
	page, err := extractor.Extract(fr)
	if err != nil {
		return nil, 0, err
	}

	probes := 0
	if a.verifier != nil {
		probes = a.verifier.Verify(ctx, page.InternalLinks, page.URL, sess)
	}
	return page, probes, nil
}

// scorePage runs every scorer on page and aggregates the factors into res.
func (a *Analyzer) scorePage(page *extractor.Page, keyword string, res *AnalysisResult, logger *zap.Logger) {
	keyword = strings.Join(strings.Fields(keyword), " ")
	derived := keyword == ""
	if derived {
		keyword = DeriveKeyword(page)
	}

	for _, f := range a.runScorers(page, keyword, logger) {
		res.setFactor(f)
	}
	if k := res.KeywordAnalysis; !k.Fallback {
		k.Derived = derived
	}
	aggregate(res)
}

// runScorers runs the scorers concurrently. Each writes only its own slot, so a failing scorer
// cannot affect the others.
func (a *Analyzer) runScorers(page *extractor.Page, keyword string, logger *zap.Logger) []Factor {
	out := make([]Factor, len(FactorNames))
	for i, name := range FactorNames {
		out[i] = defaultFactor(name, "scorer not registered")
	}
	slot := make(map[FactorName]int, len(FactorNames))
	for i, name := range FactorNames {
		slot[name] = i
	}

	var g errgroup.Group
	for _, s := range a.scorers {
		i, ok := slot[s.name]
		if !ok {
			continue
		}
		g.Go(func() error {
			out[i] = runScorer(s, page, keyword, logger)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func runScorer(s scorer, page *extractor.Page, keyword string, logger *zap.Logger) (f Factor) {
	defer func() {
		if p := recover(); p != nil {
			f = factorFailed(s.name, fmt.Errorf("panic: %v", p), logger)
		}
	}()

	f, err := s.score(page, keyword)
	if err != nil {
		return factorFailed(s.name, err, logger)
	}
	if f == nil || f.Name() != s.name {
		return factorFailed(s.name, fmt.Errorf("scorer returned no %s result", s.name), logger)
	}
	return f
}

func factorFailed(name FactorName, err error, logger *zap.Logger) Factor {
	metrics.FactorFailures.WithLabelValues(string(name)).Inc()
	logger.Warn("Factor analysis failed",
		zap.String("factor", string(name)),
		zap.Error(err))
	ferr := errs.New(errs.FactorAnalysisFailure, name.Label()+" could not be analyzed", err)
	return defaultFactor(name, ferr.Error())
}

// fail turns res into the error-flagged result of a stage error.
func fail(res *AnalysisResult, err error) {
	res.Error = errs.MessageOf(err)
	res.ErrorKind = errs.KindOf(err)
	for _, name := range FactorNames {
		res.setFactor(defaultFactor(name, res.Error))
	}
	res.OverallScore = NewScore(0)
	res.Strengths = []string{}
	res.Weaknesses = []string{}
	res.Recommendations = []string{}
}

// record publishes metrics for res and adds the session's counters, plus extra, to the recorder.
func (a *Analyzer) record(res *AnalysisResult, sess *fetcher.Session, extra stats.Counters) {
	if res.Failed() {
		metrics.StageFailures.WithLabelValues(string(res.ErrorKind)).Inc()
	} else {
		metrics.AnalysesCompleted.WithLabelValues(string(res.OverallScore.Category)).Inc()
	}
	if a.recorder == nil {
		return
	}

	c := extra
	c.Analyses++
	c.NetworkFetches += int(sess.NetworkFetches())
	c.FetchCacheHits += int(sess.CacheHits())
	c.LinksProbed += res.Session.LinksProbed
	c.BrokenLinks += sess.BrokenCount()
	if res.Failed() {
		c.FailedAnalyses++
	} else {
		for _, f := range res.Factors() {
			if f.Base().Fallback {
				c.FactorFailures++
			}
		}
	}
	a.recorder.Add(c)
}
