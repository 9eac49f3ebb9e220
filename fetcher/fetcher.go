package fetcher

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/seo-optimizer/auditor/logging"
)

// Options bound every network fetch.
type Options struct {
	Timeout        time.Duration // whole request including redirects and body
	MaxRedirects   int
	MaxContentSize int64         // bytes
	Delay          time.Duration // minimum spacing between network fetches of one session
	UserAgent      string
}

// DefaultOptions returns the documented fetch limits.
func DefaultOptions() Options {
	return Options{
		Timeout:        45 * time.Second,
		MaxRedirects:   10,
		MaxContentSize: 10 << 20,
		Delay:          500 * time.Millisecond,
		UserAgent:      "SEOAnalyzer/2.0",
	}
}

var errTooManyRedirects = errors.New("too many redirects")

// Fetcher owns the HTTP client shared by all analysis sessions. It holds no per-session state.
type Fetcher struct {
	client   *http.Client
	opts     Options
	resolver Resolver
	logger   *zap.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithResolver replaces the DNS resolver.
func WithResolver(r Resolver) Option {
	return func(f *Fetcher) { f.resolver = r }
}

// WithTransport replaces the HTTP transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(f *Fetcher) { f.client.Transport = rt }
}

// WithLogger sets the logger used by sessions.
func WithLogger(l *zap.Logger) Option {
	return func(f *Fetcher) { f.logger = l }
}

// New creates a Fetcher. Certificates are not verified: the auditor checks reachability and
// content, not certificate trust.
func New(opts Options, options ...Option) *Fetcher {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = 100
	transport.MaxIdleConnsPerHost = 10
	transport.IdleConnTimeout = 90 * time.Second
	transport.TLSHandshakeTimeout = 10 * time.Second
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // audits content, not trust

	f := &Fetcher{
		opts:     opts,
		resolver: net.DefaultResolver,
		logger:   logging.Log,
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
	}
	f.client.CheckRedirect = redirectPolicy(opts.MaxRedirects)

	for _, o := range options {
		o(f)
	}
	return f
}

// Options returns the limits the fetcher was built with.
func (f *Fetcher) Options() Options {
	return f.opts
}

// redirectPolicy stops a redirect chain longer than maxRedirects and refuses non-http(s) targets.
func redirectPolicy(maxRedirects int) func(*http.Request, []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		if len(via) > maxRedirects {
			return fmt.Errorf("%w: stopped after %d", errTooManyRedirects, maxRedirects)
		}
		if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
			return fmt.Errorf("redirect to unsupported scheme %q", req.URL.Scheme)
		}
		return nil
	}
}

// NewSession opens a session. Caches and counters live on the session and die with it.
func (f *Fetcher) NewSession() *Session {
	limit := rate.Inf
	if f.opts.Delay > 0 {
		limit = rate.Every(f.opts.Delay)
	}

	id := uuid.NewString()
	return &Session{
		ID:       id,
		fetcher:  f,
		resolver: f.resolver,
		logger:   f.logger.With(zap.String("session_id", id)),
		limiter:  rate.NewLimiter(limit, 1),
		dnsCache: make(map[string]string),
		pages:    make(map[string]*PageFetchResult),
		broken:   make(map[string]struct{}),
	}
}
