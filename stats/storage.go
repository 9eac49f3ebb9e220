package stats

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/seo-optimizer/auditor/logging"
)

// Counters are the pipeline counters tracked per month.
type Counters struct {
	Analyses          int `json:"analyses"`
	FailedAnalyses    int `json:"failed_analyses"`
	SiteCrawls        int `json:"site_crawls"`
	PagesCrawled      int `json:"pages_crawled"`
	CrawlErrors       int `json:"crawl_errors"`
	NetworkFetches    int `json:"network_fetches"`
	FetchCacheHits    int `json:"fetch_cache_hits"`
	LinksProbed       int `json:"links_probed"`
	BrokenLinks       int `json:"broken_links"`
	FactorFailures    int `json:"factor_failures"`
	ResultCacheHits   int `json:"result_cache_hits"`
	ResultCacheMisses int `json:"result_cache_misses"`
}

func (c *Counters) add(d Counters) {
	c.Analyses += d.Analyses
	c.FailedAnalyses += d.FailedAnalyses
	c.SiteCrawls += d.SiteCrawls
	c.PagesCrawled += d.PagesCrawled
	c.CrawlErrors += d.CrawlErrors
	c.NetworkFetches += d.NetworkFetches
	c.FetchCacheHits += d.FetchCacheHits
	c.LinksProbed += d.LinksProbed
	c.BrokenLinks += d.BrokenLinks
	c.FactorFailures += d.FactorFailures
	c.ResultCacheHits += d.ResultCacheHits
	c.ResultCacheMisses += d.ResultCacheMisses
}

// MonthlyStats represents statistics for a specific month
type MonthlyStats struct {
	Counters
	LastUpdated time.Time `json:"last_updated"`
}

// Storage handles persistent storage of statistics
type Storage struct {
	mutex       sync.RWMutex
	stats       map[string]*MonthlyStats // key: "YYYY-MM"
	filePath    string
	lastWrite   time.Time
	writeBuffer chan struct{}
	done        chan struct{}
	stopped     chan struct{}
	closeOnce   sync.Once
	now         func() time.Time
}

// NewStorage creates a new statistics storage instance
func NewStorage(dataDir string) (*Storage, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	s := &Storage{
		stats:       make(map[string]*MonthlyStats),
		filePath:    filepath.Join(dataDir, "stats.json"),
		writeBuffer: make(chan struct{}, 1),
		done:        make(chan struct{}),
		stopped:     make(chan struct{}),
		now:         time.Now,
	}

	if err := s.load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load stats: %w", err)
	}

	go s.backgroundWriter()
	return s, nil
}

func (s *Storage) load() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	return json.Unmarshal(data, &s.stats)
}

// save writes statistics to a temporary file and renames it over the real one.
func (s *Storage) save() error {
	s.mutex.RLock()
	data, err := json.Marshal(s.stats)
	s.mutex.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}

	tempFile := s.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := os.Rename(tempFile, s.filePath); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}

// backgroundWriter handles requested and periodic writes until Shutdown.
func (s *Storage) backgroundWriter() {
	defer close(s.stopped)
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.writeBuffer:
		case <-ticker.C:
		case <-s.done:
			return
		}
		if err := s.save(); err != nil {
			logging.Log.Warn("failed to persist monthly stats", zap.Error(err))
		}
	}
}

func (s *Storage) month() string {
	return s.now().Format("2006-01")
}

// requestWrite signals that a write to disk is needed
func (s *Storage) requestWrite() {
	select {
	case s.writeBuffer <- struct{}{}:
	default:
		// a write is already pending
	}
}

// Add accumulates d into the current month.
func (s *Storage) Add(d Counters) {
	month := s.month()

	s.mutex.Lock()
	defer s.mutex.Unlock()

	stats, exists := s.stats[month]
	if !exists {
		stats = &MonthlyStats{}
		s.stats[month] = stats
	}
	stats.add(d)
	stats.LastUpdated = s.now()

	if time.Since(s.lastWrite) > time.Minute {
		s.requestWrite()
		s.lastWrite = time.Now()
	}
}

// GetCurrentStats returns statistics for the current month
func (s *Storage) GetCurrentStats() MonthlyStats {
	stats, _ := s.GetMonthlyStats(s.month())
	return stats
}

// Cleanup removes statistics older than the given number of months before the current one.
func (s *Storage) Cleanup(retainMonths int) {
	current := s.now()
	keep := make(map[string]bool, retainMonths+1)
	for i := 0; i <= retainMonths; i++ {
		keep[current.AddDate(0, -i, 0).Format("2006-01")] = true
	}

	s.mutex.Lock()
	removed := 0
	for key := range s.stats {
		if !keep[key] {
			delete(s.stats, key)
			removed++
		}
	}
	s.mutex.Unlock()

	s.requestWrite()
	logging.Log.Debug("monthly stats cleaned up", zap.Int("retained_months", retainMonths+1), zap.Int("removed", removed))
}

// GetMonthlyStats returns statistics for a specific month
func (s *Storage) GetMonthlyStats(yearMonth string) (MonthlyStats, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if stats, exists := s.stats[yearMonth]; exists {
		return *stats, true
	}
	return MonthlyStats{}, false
}

// GetAllMonths returns all months that have statistics, newest first.
func (s *Storage) GetAllMonths() []string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	months := make([]string, 0, len(s.stats))
	for month := range s.stats {
		months = append(months, month)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(months)))
	return months
}

// Shutdown stops the background writer and persists the current state.
func (s *Storage) Shutdown() error {
	s.closeOnce.Do(func() {
		close(s.done)
		<-s.stopped
	})
	return s.save()
}
