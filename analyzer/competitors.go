package analyzer

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/seo-optimizer/auditor/extractor"
	"github.com/seo-optimizer/auditor/fetcher"
)

const (
	maxCompetitors        = 5
	competitorConcurrency = 3
)

// CompetitorOptions tune a competitor comparison.
type CompetitorOptions struct {
	Keyword  string
	Location string
}

// FactorGap is the target's factor score minus a competitor's. Factors that fell back on either
// side are left out.
type FactorGap struct {
	Factor     FactorName `json:"factor"`
	Target     int        `json:"target"`
	Competitor int        `json:"competitor"`
	Gap        int        `json:"gap"`
}

// CompetitorResult is one analyzed competitor.
type CompetitorResult struct {
	URL          string          `json:"url"`
	Analysis     *AnalysisResult `json:"analysis"`
	ScoreGap     int             `json:"scoreGap"`
	FactorGaps   []FactorGap     `json:"factorGaps"`
	Outperformed bool            `json:"outperformed"`
}

// CompetitorReport compares a target page with pages ranking for the same keyword.
type CompetitorReport struct {
	Keyword                string             `json:"keyword"`
	Location               string             `json:"location,omitempty"`
	Timestamp              time.Time          `json:"timestamp"`
	Target                 *AnalysisResult    `json:"target"`
	Competitors            []CompetitorResult `json:"competitors"`
	AverageCompetitorScore int                `json:"averageCompetitorScore"`
	Opportunities          []string           `json:"opportunities"`
	Error                  string             `json:"error,omitempty"`
}

// Competitors analyzes the target and up to five candidate URLs from the supplier, each in its own
// session, and reports the score gaps.
func (a *Analyzer) Competitors(ctx context.Context, rawURL string, opts CompetitorOptions) *CompetitorReport {
	report := &CompetitorReport{
		Keyword:       opts.Keyword,
		Location:      opts.Location,
		Timestamp:     time.Now().UTC(),
		Competitors:   []CompetitorResult{},
		Opportunities: []string{},
	}

	report.Target = a.Analyze(ctx, rawURL, Options{Keyword: opts.Keyword})
	if report.Target.Failed() {
		report.Error = report.Target.Error
		return report
	}
	if report.Keyword == "" {
		report.Keyword = report.Target.KeywordAnalysis.PrimaryKeyword
	}
	if report.Keyword == "" {
		report.Error = "No keyword given and none could be derived from the page"
		return report
	}

	candidates, err := a.supplier.FindCandidateURLs(ctx, report.Keyword, opts.Location)
	if err != nil {
		a.logger.Warn("Competitor lookup failed", zap.String("keyword", report.Keyword), zap.Error(err))
		report.Error = "Competitor lookup failed: " + err.Error()
		return report
	}
	candidates = selectCandidates(candidates, report.Target)

	results := make([]*AnalysisResult, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(competitorConcurrency)
	for i, u := range candidates {
		g.Go(func() error {
			results[i] = a.Analyze(gctx, u, Options{Keyword: report.Keyword})
			return nil
		})
	}
	_ = g.Wait()

	sum, n := 0, 0
	for i, res := range results {
		c := CompetitorResult{URL: candidates[i], Analysis: res, FactorGaps: []FactorGap{}}
		if !res.Failed() {
			c.ScoreGap = report.Target.OverallScore.Score - res.OverallScore.Score
			c.Outperformed = c.ScoreGap < 0
			c.FactorGaps = factorGaps(report.Target, res)
			sum += res.OverallScore.Score
			n++
		}
		report.Competitors = append(report.Competitors, c)
	}
	if n > 0 {
		report.AverageCompetitorScore = int(math.Round(float64(sum) / float64(n)))
	}
	report.Opportunities = opportunities(report.Competitors)
	return report
}

// selectCandidates normalizes and dedupes candidate URLs, drops the target's own host and keeps at
// most maxCompetitors.
func selectCandidates(candidates []string, target *AnalysisResult) []string {
	targetURL := target.FinalURL
	if targetURL == "" {
		targetURL = target.URL
	}
	own, _ := url.Parse(targetURL)

	seen := make(map[string]bool)
	out := make([]string, 0, maxCompetitors)
	for _, raw := range candidates {
		if len(out) == maxCompetitors {
			break
		}
		u, err := fetcher.Normalize(raw)
		if err != nil || seen[u] {
			continue
		}
		parsed, err := url.Parse(u)
		if err != nil || (own != nil && extractor.SameHost(parsed, own)) {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}

func factorGaps(target, competitor *AnalysisResult) []FactorGap {
	gaps := []FactorGap{}
	for _, name := range FactorNames {
		t, c := target.Factor(name).Base(), competitor.Factor(name).Base()
		if t.Fallback || c.Fallback {
			continue
		}
		gaps = append(gaps, FactorGap{
			Factor:     name,
			Target:     t.OverallScore.Score,
			Competitor: c.OverallScore.Score,
			Gap:        t.OverallScore.Score - c.OverallScore.Score,
		})
	}
	return gaps
}

// opportunities names the factors where the target trails the best competitor by 10 points or
// more, in reporting order.
func opportunities(competitors []CompetitorResult) []string {
	worst := make(map[FactorName]int)
	for _, c := range competitors {
		for _, g := range c.FactorGaps {
			worst[g.Factor] = min(worst[g.Factor], g.Gap)
		}
	}
	out := []string{}
	for _, name := range FactorNames {
		if gap := worst[name]; gap <= -10 {
			out = append(out, fmt.Sprintf("Improve %s: competitors score up to %d points higher", name.Label(), -gap))
		}
	}
	return out
}
