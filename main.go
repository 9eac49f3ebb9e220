package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/seo-optimizer/auditor/analyzer"
	"github.com/seo-optimizer/auditor/competitor"
	"github.com/seo-optimizer/auditor/config"
	"github.com/seo-optimizer/auditor/fetcher"
	"github.com/seo-optimizer/auditor/linkcheck"
	"github.com/seo-optimizer/auditor/logging"
	"github.com/seo-optimizer/auditor/middleware"
	"github.com/seo-optimizer/auditor/resultcache"
	"github.com/seo-optimizer/auditor/stats"
)

const (
	shutdownTimeout = 30 * time.Second
	maintenanceTick = 10 * time.Minute
	retainMonths    = 12
)

func main() {
	analyzeURL := flag.String("analyze", "", "analyze one URL, print the result as JSON and exit")
	crawlURL := flag.String("crawl", "", "crawl and analyze a site, print the result as JSON and exit")
	keyword := flag.String("keyword", "", "primary keyword (derived from the page when empty)")
	maxPages := flag.Int("max-pages", 0, "page budget for -crawl (default MAX_PAGES)")
	flag.Parse()

	config.LoadEnv()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration:\n%v\n", err)
		os.Exit(1)
	}

	cli := *analyzeURL != "" || *crawlURL != ""
	logOutput := "stdout"
	if cli {
		logOutput = "stderr"
	}
	if err := logging.InitLogger(cfg.LogLevel, logOutput); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.Log.Sync()

	storage, err := stats.NewStorage(cfg.DataDir)
	if err != nil {
		logging.Log.Fatal("Failed to open statistics storage", zap.Error(err))
	}
	defer func() {
		if err := storage.Shutdown(); err != nil {
			logging.Log.Error("Failed to save statistics storage", zap.Error(err))
		}
	}()

	seoAnalyzer := newAnalyzer(cfg, storage)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case *analyzeURL != "":
		res := seoAnalyzer.Analyze(ctx, *analyzeURL, analyzer.Options{Keyword: *keyword})
		printJSON(res)
	case *crawlURL != "":
		budget := *maxPages
		if budget <= 0 {
			budget = cfg.MaxPages
		}
		bar := newCrawlBar(budget)
		site := seoAnalyzer.AnalyzeSite(ctx, *crawlURL, analyzer.SiteOptions{
			Keyword:  *keyword,
			MaxPages: budget,
			OnPage:   bar.onPage,
		})
		bar.finish()
		printJSON(site)
	default:
		serve(ctx, cfg, seoAnalyzer, storage)
	}
}

func newAnalyzer(cfg *config.Config, storage *stats.Storage) *analyzer.Analyzer {
	f := fetcher.New(cfg.FetchOptions(), fetcher.WithLogger(logging.Log))
	verifier := linkcheck.New(cfg.VerifierOptions(), nil).WithLogger(logging.Log)

	var supplier competitor.Supplier = competitor.Static{}
	if cfg.SearchAPIURL != "" {
		supplier = competitor.WithFallback(competitor.NewSearch(cfg.SearchOptions(), nil), competitor.Static{})
	}

	return analyzer.New(f,
		analyzer.WithVerifier(verifier),
		analyzer.WithCrawlOptions(cfg.CrawlOptions()),
		analyzer.WithSupplier(supplier),
		analyzer.WithRecorder(storage),
		analyzer.WithLogger(logging.Log),
	)
}

// newResultCache uses Redis when configured and reachable, the in-memory cache otherwise.
func newResultCache(cfg *config.Config) resultcache.Cache {
	if cfg.RedisAddr != "" {
		cache, err := resultcache.NewRedis(cfg.RedisOptions())
		if err == nil {
			return cache
		}
		logging.Log.Warn("Falling back to the in-memory result cache", zap.Error(err))
	}
	return resultcache.NewMemory(cfg.ResultCacheTTL, cfg.ResultCacheSize)
}

func serve(ctx context.Context, cfg *config.Config, seoAnalyzer *analyzer.Analyzer, storage *stats.Storage) {
	gin.SetMode(cfg.GinMode)

	statistics := logging.NewStatistics(cfg.DataDir, cfg.DevMode)
	cache := newResultCache(cfg)
	defer cache.Close()

	s := &server{
		analyzer:    seoAnalyzer,
		cache:       cache,
		statistics:  statistics,
		storage:     storage,
		rateLimiter: middleware.NewRateLimiter(cfg.RateLimit, cfg.RateBurst),
	}
	go s.maintain(ctx)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           s.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logging.Log.Info("Server starting", zap.String("addr", "http://localhost:"+cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logging.Log.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Log.Error("Server shutdown failed", zap.Error(err))
	}
	if err := statistics.Save(); err != nil {
		logging.Log.Error("Failed to save statistics", zap.Error(err))
	}
}

// maintain prunes idle rate limit buckets and old monthly statistics until ctx ends.
func (s *server) maintain(ctx context.Context) {
	s.storage.Cleanup(retainMonths)

	ticker := time.NewTicker(maintenanceTick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.rateLimiter.Prune()
			s.storage.Cleanup(retainMonths)
		case <-ctx.Done():
			return
		}
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		logging.Log.Error("Failed to encode result", zap.Error(err))
	}
}

// crawlBar shows crawl progress on stderr. The crawler reports from several workers.
type crawlBar struct {
	mu   sync.Mutex
	bar  *progressbar.ProgressBar
	seen int
}

func newCrawlBar(budget int) *crawlBar {
	return &crawlBar{bar: progressbar.NewOptions(budget,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("crawling"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)}
}

func (b *crawlBar) onPage(visited, budget int, pageURL string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seen = max(b.seen, visited)
	b.bar.ChangeMax(budget)
	b.bar.Describe(pageURL)
	_ = b.bar.Set(b.seen)
}

func (b *crawlBar) finish() {
	b.mu.Lock()
	defer b.mu.Unlock()
	_ = b.bar.Finish()
	fmt.Fprintln(os.Stderr)
}
