package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/seo-optimizer/auditor/errs"
	"github.com/seo-optimizer/auditor/metrics"
)

// Session is the mutable state of one analysis or crawl: the fetch cache, the DNS cache,
// the known-broken link set and the politeness limiter. It is safe for concurrent use.
type Session struct {
	ID string

	fetcher  *Fetcher
	resolver Resolver
	logger   *zap.Logger
	limiter  *rate.Limiter
	group    singleflight.Group

	mu       sync.Mutex
	dnsCache map[string]string
	pages    map[string]*PageFetchResult
	broken   map[string]struct{}

	networkFetches atomic.Int64
	cacheHits      atomic.Int64
}

// Logger returns the session-scoped logger.
func (s *Session) Logger() *zap.Logger {
	return s.logger
}

// NetworkFetches reports how many fetches of this session went to the network.
func (s *Session) NetworkFetches() int64 {
	return s.networkFetches.Load()
}

// CacheHits reports how many fetches of this session were served from its cache.
func (s *Session) CacheHits() int64 {
	return s.cacheHits.Load()
}

// MarkBroken adds a link to the session's known-broken set.
func (s *Session) MarkBroken(link string) {
	s.mu.Lock()
	s.broken[link] = struct{}{}
	s.mu.Unlock()
}

// IsKnownBroken reports whether a link was already found broken in this session.
func (s *Session) IsKnownBroken(link string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.broken[link]
	return ok
}

// BrokenCount returns the size of the known-broken set.
func (s *Session) BrokenCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.broken)
}

// Fetch returns the page at pageURL, which must already be normalized. Repeated fetches of
// the same URL return the cached result without touching the network. Once the request has
// started it runs to completion or to its own timeout regardless of ctx.
func (s *Session) Fetch(ctx context.Context, pageURL string) *PageFetchResult {
	if r := s.cached(pageURL); r != nil {
		return r
	}

	v, _, _ := s.group.Do(pageURL, func() (any, error) {
		if r := s.lookup(pageURL); r != nil {
			return r, nil
		}
		r, cacheable := s.fetch(ctx, pageURL)
		if cacheable {
			s.mu.Lock()
			s.pages[pageURL] = r
			s.mu.Unlock()
		}
		return r, nil
	})
	return v.(*PageFetchResult)
}

func (s *Session) lookup(pageURL string) *PageFetchResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pages[pageURL]
}

func (s *Session) cached(pageURL string) *PageFetchResult {
	r := s.lookup(pageURL)
	if r != nil {
		s.cacheHits.Add(1)
		metrics.FetchCacheHits.Inc()
		s.logger.Debug("fetch cache hit", zap.String("url", pageURL))
	}
	return r
}

// fetch performs the network round trip. The bool reports whether the result may be cached.
func (s *Session) fetch(ctx context.Context, pageURL string) (*PageFetchResult, bool) {
	opts := s.fetcher.opts
	result := &PageFetchResult{URL: pageURL, FinalURL: pageURL}

	if _, err := s.CheckAvailability(ctx, pageURL); err != nil {
		result.Status = StatusDNSError
		if errs.KindOf(err) == errs.InvalidURL {
			result.Status = StatusNetworkError
		}
		result.Message = err.Error()
		return result, false
	}

	if err := s.limiter.Wait(ctx); err != nil {
		result.Status = StatusNetworkError
		result.Message = "fetch cancelled before it started"
		return result, false
	}

	reqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, pageURL, nil)
	if err != nil {
		result.Status = StatusNetworkError
		result.Message = err.Error()
		return result, true
	}
	req.Header.Set("User-Agent", opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	start := time.Now()
	resp, err := s.fetcher.client.Do(req)
	s.networkFetches.Add(1)
	metrics.NetworkFetches.Inc()
	if err != nil {
		result.Status = StatusNetworkError
		result.Message = describeTransportError(err, pageURL, opts)
		result.LoadTime = time.Since(start)
		s.logger.Debug("fetch failed", zap.String("url", pageURL), zap.Error(err))
		return result, true
	}
	defer resp.Body.Close()

	result.FinalURL = resp.Request.URL.String()
	result.StatusCode = resp.StatusCode
	result.Headers = resp.Header.Clone()
	result.ContentType = resp.Header.Get("Content-Type")

	if resp.StatusCode >= 500 {
		result.Status = StatusHTTPError
		result.Message = httpErrorMessage(resp.StatusCode)
		result.LoadTime = time.Since(start)
		return result, true
	}

	if resp.ContentLength > opts.MaxContentSize {
		result.Status = StatusNetworkError
		result.Message = tooLargeMessage(opts.MaxContentSize)
		result.LoadTime = time.Since(start)
		return result, true
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, opts.MaxContentSize+1))
	result.LoadTime = time.Since(start)
	metrics.FetchDuration.Observe(result.LoadTime.Seconds())
	if err != nil {
		result.Status = StatusNetworkError
		result.Message = describeTransportError(err, pageURL, opts)
		return result, true
	}
	if int64(len(raw)) > opts.MaxContentSize {
		result.Status = StatusNetworkError
		result.Message = tooLargeMessage(opts.MaxContentSize)
		return result, true
	}
	result.ByteSize = int64(len(raw))

	contentType := result.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(raw)
		result.ContentType = contentType
	}
	if !isHTML(contentType) {
		result.Status = StatusNonHTML
		result.Message = fmt.Sprintf("The URL returned %q content, not an HTML page", mediaType(contentType))
		return result, true
	}

	result.Body = decodeBody(raw, contentType)
	result.Status = StatusOK

	s.logger.Debug("fetched page",
		zap.String("url", pageURL),
		zap.String("final_url", result.FinalURL),
		zap.Int("status", result.StatusCode),
		zap.Int64("bytes", result.ByteSize),
		zap.Duration("load_time", result.LoadTime),
	)
	return result, true
}

func decodeBody(raw []byte, contentType string) string {
	reader, err := charset.NewReader(bytes.NewReader(raw), contentType)
	if err != nil {
		return string(raw)
	}
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return string(raw)
	}
	return string(decoded)
}

func mediaType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt = strings.TrimSpace(strings.Split(contentType, ";")[0])
	}
	return strings.ToLower(mt)
}

func isHTML(contentType string) bool {
	switch mediaType(contentType) {
	case "text/html", "application/xhtml+xml":
		return true
	}
	return false
}

func tooLargeMessage(limit int64) string {
	return fmt.Sprintf("The page exceeds the maximum content size of %d bytes", limit)
}

func describeTransportError(err error, pageURL string, opts Options) string {
	if errors.Is(err, errTooManyRedirects) {
		return fmt.Sprintf("Too many redirects (more than %d)", opts.MaxRedirects)
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Sprintf("The request timed out after %s", opts.Timeout)
	}

	host := pageURL
	if u, perr := url.Parse(pageURL); perr == nil {
		host = u.Host
	}
	return fmt.Sprintf("Could not connect to %s: %v", host, err)
}
