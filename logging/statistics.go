package logging

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Statistics represents request-level statistics for the API server.
type Statistics struct {
	UniqueVisitors   map[string]time.Time `json:"uniqueVisitors"`   // IP -> last visit
	AnalysisRequests int                  `json:"analysisRequests"` // total analysis requests
	ErrorCount       int                  `json:"errorCount"`       // analyses that produced an error result
	PopularSites     map[string]int       `json:"popularSites"`     // site -> count
	Categories       map[string]int       `json:"categories"`       // score category -> count
	AverageLoadTime  float64              `json:"averageLoadTime"`  // milliseconds
	AverageScore     float64              `json:"averageScore"`
	TotalLoadTime    float64              `json:"totalLoadTime"`
	TotalScore       float64              `json:"totalScore"`
	ScoredCount      int                  `json:"scoredCount"`
	RequestCount     int                  `json:"requestCount"`
	LastPersisted    time.Time            `json:"lastPersisted"`

	devMode  bool
	filePath string
	mutex    sync.RWMutex
}

// NewStatistics creates the tracker and loads previously saved statistics from dataDir.
func NewStatistics(dataDir string, devMode bool) *Statistics {
	s := &Statistics{
		UniqueVisitors: make(map[string]time.Time),
		PopularSites:   make(map[string]int),
		Categories:     make(map[string]int),
		LastPersisted:  time.Now(),
		devMode:        devMode,
		filePath:       filepath.Join(dataDir, "statistics.json"),
	}

	if err := s.Load(); err != nil {
		Log.Sugar().Warnf("could not load existing statistics: %v", err)
	}
	return s
}

// TrackVisitor records a unique visitor.
func (s *Statistics) TrackVisitor(ip string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.UniqueVisitors[ip] = time.Now()
}

// cleanURL reduces an analyzed URL to scheme, host and path. Local and API URLs are dropped.
func cleanURL(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil || u.Host == "" {
		return ""
	}

	if strings.Contains(u.Host, "localhost") ||
		strings.Contains(u.Host, "127.0.0.1") ||
		strings.Contains(strings.ToLower(u.Path), "/api/") {
		return ""
	}

	clean := u.Scheme + "://" + u.Host
	if u.Path != "" && u.Path != "/" {
		clean += u.Path
	}
	return strings.TrimSuffix(clean, "/")
}

// TrackRequest records the duration of an analysis request.
func (s *Statistics) TrackRequest(loadTime float64) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.TotalLoadTime += loadTime
	s.RequestCount++
	s.AverageLoadTime = s.TotalLoadTime / float64(s.RequestCount)
}

// TrackAnalysis records the outcome of one analysis.
func (s *Statistics) TrackAnalysis(analyzedURL string, score int, category string, hasError bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.AnalysisRequests++
	if site := cleanURL(analyzedURL); site != "" {
		s.PopularSites[site]++
	}

	if hasError {
		s.ErrorCount++
		return
	}

	s.Categories[category]++
	s.TotalScore += float64(score)
	s.ScoredCount++
	s.AverageScore = s.TotalScore / float64(s.ScoredCount)
}

// Requests returns the number of tracked analysis requests.
func (s *Statistics) Requests() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.AnalysisRequests
}

func (s *Statistics) uniqueVisitorsLocked() int {
	count := 0
	cutoff := time.Now().Add(-24 * time.Hour)
	for _, lastVisit := range s.UniqueVisitors {
		if lastVisit.After(cutoff) {
			count++
		}
	}
	return count
}

func (s *Statistics) errorRateLocked() float64 {
	if s.AnalysisRequests == 0 {
		return 0
	}
	return (float64(s.ErrorCount) / float64(s.AnalysisRequests)) * 100
}

// popularSitesLocked returns the n most analyzed sites, most frequent first.
func (s *Statistics) popularSitesLocked(n int) []SiteCount {
	sites := make([]SiteCount, 0, len(s.PopularSites))
	for site, count := range s.PopularSites {
		sites = append(sites, SiteCount{Site: site, Count: count})
	}
	sort.Slice(sites, func(i, j int) bool {
		if sites[i].Count != sites[j].Count {
			return sites[i].Count > sites[j].Count
		}
		return sites[i].Site < sites[j].Site
	})
	if len(sites) > n {
		sites = sites[:n]
	}
	return sites
}

// SiteCount is one entry of the popular sites list.
type SiteCount struct {
	Site  string `json:"site"`
	Count int    `json:"count"`
}

// Save persists the statistics to disk.
func (s *Statistics) Save() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.LastPersisted = time.Now()

	if err := os.MkdirAll(filepath.Dir(s.filePath), 0o755); err != nil {
		return fmt.Errorf("could not create statistics directory: %w", err)
	}

	file, err := os.Create(s.filePath)
	if err != nil {
		return fmt.Errorf("could not create statistics file: %w", err)
	}
	defer file.Close()

	if err := json.NewEncoder(file).Encode(s); err != nil {
		return fmt.Errorf("could not encode statistics: %w", err)
	}
	return nil
}

// Load reads the statistics from disk. A missing file is not an error.
func (s *Statistics) Load() error {
	file, err := os.Open(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("could not open statistics file: %w", err)
	}
	defer file.Close()

	s.mutex.Lock()
	defer s.mutex.Unlock()
	if err := json.NewDecoder(file).Decode(s); err != nil {
		return fmt.Errorf("could not decode statistics: %w", err)
	}
	return nil
}

// Snapshot returns the public view of the statistics. Popular sites are only shown in dev mode.
func (s *Statistics) Snapshot() map[string]any {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	categories := make(map[string]int, len(s.Categories))
	for k, v := range s.Categories {
		categories[k] = v
	}

	out := map[string]any{
		"uniqueVisitors24h": s.uniqueVisitorsLocked(),
		"totalRequests":     s.AnalysisRequests,
		"errorRate":         s.errorRateLocked(),
		"averageLoadTime":   s.AverageLoadTime,
		"averageScore":      s.AverageScore,
		"categories":        categories,
	}
	if s.devMode {
		out["popularSites"] = s.popularSitesLocked(5)
	}
	return out
}
