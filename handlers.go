package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/seo-optimizer/auditor/analyzer"
	"github.com/seo-optimizer/auditor/fetcher"
	"github.com/seo-optimizer/auditor/logging"
	"github.com/seo-optimizer/auditor/middleware"
	"github.com/seo-optimizer/auditor/resultcache"
	"github.com/seo-optimizer/auditor/stats"
)

const maxCrawlPages = 1000

var analysisRoutes = []string{"/api/analyze", "/api/crawl", "/api/competitors"}

// server holds what the HTTP handlers need.
type server struct {
	analyzer    *analyzer.Analyzer
	cache       resultcache.Cache
	statistics  *logging.Statistics
	storage     *stats.Storage
	rateLimiter *middleware.RateLimiter
}

func (s *server) router() *gin.Engine {
	r := gin.New()

	r.Use(middleware.RequestID())
	r.Use(middleware.AccessLog())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORS())
	r.Use(middleware.Stats(s.statistics, analysisRoutes...))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})
		api.GET("/statistics", s.statisticsHandler)
		api.GET("/stats/monthly", s.monthlyStats)

		limited := api.Group("", s.rateLimiter.RateLimit())
		limited.POST("/analyze", s.analyzeURL)
		limited.POST("/crawl", s.crawlSite)
		limited.POST("/competitors", s.compareCompetitors)
	}
	return r
}

func (s *server) analyzeURL(c *gin.Context) {
	var request struct {
		URL     string `json:"url" binding:"required"`
		Keyword string `json:"keyword"`
	}
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.URL) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid URL provided"})
		return
	}
	ctx := c.Request.Context()
	logger := logging.Log.With(zap.String("requestId", middleware.RequestIDFrom(c)))

	key := ""
	if normalized, err := fetcher.Normalize(request.URL); err == nil {
		key = resultcache.Key(normalized, request.Keyword)
		if data, ok := s.cache.Get(ctx, key); ok {
			logger.Debug("Serving cached analysis", zap.String("url", normalized))
			s.storage.Add(stats.Counters{ResultCacheHits: 1})
			s.trackCached(normalized, data)
			c.Data(http.StatusOK, "application/json; charset=utf-8", data)
			return
		}
		s.storage.Add(stats.Counters{ResultCacheMisses: 1})
	}

	res := s.analyzer.Analyze(ctx, request.URL, analyzer.Options{Keyword: request.Keyword})
	s.track(res)

	data, err := json.Marshal(res)
	if err != nil {
		logger.Error("Failed to encode analysis", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "An unexpected error occurred"})
		return
	}
	if key != "" && !res.Failed() {
		s.cache.Set(context.WithoutCancel(ctx), key, data)
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

func (s *server) crawlSite(c *gin.Context) {
	var request struct {
		URL      string `json:"url" binding:"required"`
		MaxPages int    `json:"maxPages"`
		Keyword  string `json:"keyword"`
	}
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.URL) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid URL provided"})
		return
	}
	if request.MaxPages < 0 || request.MaxPages > maxCrawlPages {
		c.JSON(http.StatusBadRequest, gin.H{"error": "maxPages must be between 1 and 1000"})
		return
	}

	site := s.analyzer.AnalyzeSite(c.Request.Context(), request.URL, analyzer.SiteOptions{
		Keyword:  request.Keyword,
		MaxPages: request.MaxPages,
	})
	s.track(site.Homepage)
	c.JSON(http.StatusOK, site)
}

func (s *server) compareCompetitors(c *gin.Context) {
	var request struct {
		URL      string `json:"url" binding:"required"`
		Keyword  string `json:"keyword"`
		Location string `json:"location"`
	}
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.URL) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid URL provided"})
		return
	}

	report := s.analyzer.Competitors(c.Request.Context(), request.URL, analyzer.CompetitorOptions{
		Keyword:  request.Keyword,
		Location: request.Location,
	})
	s.track(report.Target)
	c.JSON(http.StatusOK, report)
}

func (s *server) statisticsHandler(c *gin.Context) {
	out := s.statistics.Snapshot()
	out["resultCache"] = s.cache.Stats()
	c.JSON(http.StatusOK, out)
}

// monthlyStats returns one month with ?month=YYYY-MM, otherwise the current month and the list of
// recorded months.
func (s *server) monthlyStats(c *gin.Context) {
	if month := c.Query("month"); month != "" {
		m, ok := s.storage.GetMonthlyStats(month)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "No statistics for " + month})
			return
		}
		c.JSON(http.StatusOK, m)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"current": s.storage.GetCurrentStats(),
		"months":  s.storage.GetAllMonths(),
	})
}

func (s *server) track(res *analyzer.AnalysisResult) {
	s.statistics.TrackAnalysis(res.URL, res.OverallScore.Score, string(res.OverallScore.Category), res.Failed())
}

// trackCached tracks a cache hit from the stored JSON. Only successful analyses are cached.
func (s *server) trackCached(url string, data []byte) {
	var cached struct {
		OverallScore analyzer.SeoScore `json:"overallScore"`
	}
	if err := json.Unmarshal(data, &cached); err != nil {
		return
	}
	s.statistics.TrackAnalysis(url, cached.OverallScore.Score, string(cached.OverallScore.Category), false)
}
